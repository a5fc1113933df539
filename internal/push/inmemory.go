package push

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps subscriptions and the notification queue in process,
// for local/dev use.
type InMemoryStore struct {
	mu    sync.RWMutex
	subs  map[string][]Subscription
	queue []*Notification
	byID  map[string]*Notification
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		subs: make(map[string][]Subscription),
		byID: make(map[string]*Notification),
	}
}

func (s *InMemoryStore) SaveSubscription(_ context.Context, sub Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = time.Now().UTC()
	}
	arr := s.subs[sub.UserID]
	for i, existing := range arr {
		if existing.Endpoint == sub.Endpoint {
			sub.ID = existing.ID
			arr[i] = sub
			return nil
		}
	}
	s.subs[sub.UserID] = append(arr, sub)
	return nil
}

func (s *InMemoryStore) ListSubscriptions(_ context.Context, userID string) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	arr := s.subs[userID]
	out := make([]Subscription, len(arr))
	copy(out, arr)
	return out, nil
}

func (s *InMemoryStore) Enqueue(_ context.Context, n Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	if n.Status == "" {
		n.Status = StatusQueued
	}
	stored := n
	s.queue = append(s.queue, &stored)
	s.byID[stored.ID] = &stored
	return nil
}

func (s *InMemoryStore) ListPending(_ context.Context, userID string, limit int) ([]Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 20
	}
	out := make([]Notification, 0, limit)
	for _, n := range s.queue {
		if n.UserID != userID || n.Status != StatusQueued {
			continue
		}
		out = append(out, *n)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *InMemoryStore) MarkDelivered(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		n, ok := s.byID[id]
		if !ok {
			return ErrStoreNotFound
		}
		n.Status = StatusDelivered
		n.DeliveredAt = &now
	}
	return nil
}

func (s *InMemoryStore) ExpireBefore(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	expired := 0
	for _, n := range s.queue {
		if n.Status != StatusQueued || !n.CreatedAt.Before(cutoff) {
			continue
		}
		n.Status = StatusExpired
		expired++
	}
	return expired, nil
}

func (s *InMemoryStore) Close() error { return nil }
