package push

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lpetrova/mira/internal/observability"
)

var ErrDisabled = errors.New("push notifications are disabled")

type Config struct {
	Enabled       bool
	DatabaseURL   string
	QueueTTL      time.Duration
	SweepInterval time.Duration
}

// QueueRequest is one notification to queue for a user.
type QueueRequest struct {
	UserID string         `json:"user_id"`
	Title  string         `json:"title"`
	Body   string         `json:"body"`
	Icon   string         `json:"icon"`
	Tag    string         `json:"tag"`
	Data   map[string]any `json:"data"`
}

// QueueResult reports whether the notification was stored and the payload the
// delivery layer will eventually send.
type QueueResult struct {
	Queued  bool
	Message string
	Payload *Payload
}

type Service struct {
	enabled       bool
	storeMode     string
	queueTTL      time.Duration
	sweepInterval time.Duration
	store         Store
	metrics       *observability.Metrics
}

func New(ctx context.Context, cfg Config, metrics *observability.Metrics) (*Service, error) {
	if cfg.QueueTTL <= 0 {
		cfg.QueueTTL = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Minute
	}

	svc := &Service{
		enabled:       cfg.Enabled,
		storeMode:     "disabled",
		queueTTL:      cfg.QueueTTL,
		sweepInterval: cfg.SweepInterval,
		metrics:       metrics,
	}
	if !cfg.Enabled {
		return svc, nil
	}

	store, err := NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	svc.store = store
	svc.storeMode = "in-memory"
	if strings.TrimSpace(cfg.DatabaseURL) != "" {
		svc.storeMode = "postgres"
	}
	return svc, nil
}

func (s *Service) Enabled() bool {
	return s != nil && s.enabled
}

func (s *Service) StoreMode() string {
	if s == nil {
		return "disabled"
	}
	return s.storeMode
}

func (s *Service) Subscribe(ctx context.Context, sub Subscription) (Subscription, error) {
	if !s.Enabled() {
		return Subscription{}, ErrDisabled
	}
	if strings.TrimSpace(sub.UserID) == "" || strings.TrimSpace(sub.Endpoint) == "" {
		return Subscription{}, errors.New("subscription requires user_id and endpoint")
	}
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	if err := s.store.SaveSubscription(ctx, sub); err != nil {
		return Subscription{}, err
	}
	return sub, nil
}

// Queue looks up the user's subscriptions and stores one queued notification.
// A user with no subscriptions yields Queued=false, not an error.
func (s *Service) Queue(ctx context.Context, req QueueRequest) (QueueResult, error) {
	if !s.Enabled() {
		return QueueResult{}, ErrDisabled
	}
	subs, err := s.store.ListSubscriptions(ctx, req.UserID)
	if err != nil {
		return QueueResult{}, fmt.Errorf("look up subscriptions: %w", err)
	}
	if len(subs) == 0 {
		s.observe("no_subscriptions")
		return QueueResult{Queued: false, Message: "no push subscriptions registered for user"}, nil
	}

	n := Notification{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Payload: Payload{
			Title: req.Title,
			Body:  req.Body,
			Icon:  req.Icon,
			Tag:   req.Tag,
			Data:  req.Data,
		},
		Status:    StatusQueued,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.Enqueue(ctx, n); err != nil {
		return QueueResult{}, fmt.Errorf("enqueue notification: %w", err)
	}
	s.observe("queued")
	payload := n.Payload
	return QueueResult{Queued: true, Message: "notification queued for delivery", Payload: &payload}, nil
}

// Pending returns the user's queued notifications and marks them delivered.
func (s *Service) Pending(ctx context.Context, userID string, limit int) ([]Notification, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	items, err := s.store.ListPending(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.ID)
	}
	if err := s.store.MarkDelivered(ctx, ids); err != nil {
		return nil, err
	}
	s.observeN("delivered", len(ids))
	return items, nil
}

// StartSweeper expires queued notifications older than the queue TTL.
func (s *Service) StartSweeper(ctx context.Context) {
	if !s.Enabled() {
		return
	}
	ticker := time.NewTicker(s.sweepInterval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cutoff := time.Now().UTC().Add(-s.queueTTL)
				if n, err := s.store.ExpireBefore(ctx, cutoff); err == nil && n > 0 {
					s.observeN("expired", n)
				}
			}
		}
	}()
}

func (s *Service) Close() error {
	if s == nil || s.store == nil {
		return nil
	}
	return s.store.Close()
}

func (s *Service) observe(outcome string) { s.observeN(outcome, 1) }

func (s *Service) observeN(outcome string, n int) {
	if s.metrics == nil || n <= 0 {
		return
	}
	s.metrics.NotificationEvents.WithLabelValues(outcome).Add(float64(n))
}
