package push

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestQueueWithoutSubscriptionsReportsNotQueued(t *testing.T) {
	svc := newTestService(t, Config{Enabled: true})

	res, err := svc.Queue(context.Background(), QueueRequest{UserID: "user-1", Title: "hi"})
	if err != nil {
		t.Fatalf("Queue() error = %v", err)
	}
	if res.Queued {
		t.Fatal("expected Queued=false for a user with no subscriptions")
	}
	if res.Message != "no push subscriptions registered for user" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Payload != nil {
		t.Fatal("expected no payload when nothing was queued")
	}
}

func TestQueueAfterSubscribeReturnsPayload(t *testing.T) {
	svc := newTestService(t, Config{Enabled: true})
	ctx := context.Background()

	sub, err := svc.Subscribe(ctx, Subscription{UserID: "user-1", Endpoint: "https://push.example/ep-1"})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if sub.ID == "" {
		t.Fatal("expected subscription to be assigned an id")
	}

	res, err := svc.Queue(ctx, QueueRequest{
		UserID: "user-1",
		Title:  "Reminder",
		Body:   "time to check in",
		Tag:    "checkin",
		Data:   map[string]any{"kind": "checkin"},
	})
	if err != nil {
		t.Fatalf("Queue() error = %v", err)
	}
	if !res.Queued {
		t.Fatalf("expected Queued=true, message %q", res.Message)
	}
	if res.Message != "notification queued for delivery" {
		t.Fatalf("unexpected message %q", res.Message)
	}
	if res.Payload == nil {
		t.Fatal("expected queued payload")
	}
	if res.Payload.Title != "Reminder" || res.Payload.Body != "time to check in" {
		t.Fatalf("payload = %+v", res.Payload)
	}
	if res.Payload.Data["kind"] != "checkin" {
		t.Fatalf("payload data = %v", res.Payload.Data)
	}
}

func TestPendingMarksNotificationsDelivered(t *testing.T) {
	svc := newTestService(t, Config{Enabled: true})
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, Subscription{UserID: "user-1", Endpoint: "https://push.example/ep-1"}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.Queue(ctx, QueueRequest{UserID: "user-1", Title: "n"}); err != nil {
			t.Fatalf("Queue() error = %v", err)
		}
	}

	first, err := svc.Pending(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected 3 pending notifications, got %d", len(first))
	}

	second, err := svc.Pending(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("Pending() second call error = %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("expected pending queue drained, got %d", len(second))
	}
}

func TestSweeperExpiresStaleNotifications(t *testing.T) {
	svc := newTestService(t, Config{
		Enabled:       true,
		QueueTTL:      30 * time.Millisecond,
		SweepInterval: 10 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := svc.Subscribe(ctx, Subscription{UserID: "user-1", Endpoint: "https://push.example/ep-1"}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if _, err := svc.Queue(ctx, QueueRequest{UserID: "user-1", Title: "stale"}); err != nil {
		t.Fatalf("Queue() error = %v", err)
	}

	svc.StartSweeper(ctx)
	time.Sleep(90 * time.Millisecond)

	pending, err := svc.Pending(ctx, "user-1", 10)
	if err != nil {
		t.Fatalf("Pending() error = %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected stale notification expired, got %d pending", len(pending))
	}
}

func TestDisabledServiceRejectsOperations(t *testing.T) {
	svc := newTestService(t, Config{Enabled: false})
	ctx := context.Background()

	if _, err := svc.Queue(ctx, QueueRequest{UserID: "user-1"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Queue() error = %v, want ErrDisabled", err)
	}
	if _, err := svc.Subscribe(ctx, Subscription{UserID: "user-1", Endpoint: "e"}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Subscribe() error = %v, want ErrDisabled", err)
	}
	if _, err := svc.Pending(ctx, "user-1", 10); !errors.Is(err, ErrDisabled) {
		t.Fatalf("Pending() error = %v, want ErrDisabled", err)
	}
	if svc.StoreMode() != "disabled" {
		t.Fatalf("StoreMode() = %q, want disabled", svc.StoreMode())
	}

	var nilSvc *Service
	if nilSvc.Enabled() {
		t.Fatal("nil service should report disabled")
	}
}

func TestSubscribeRequiresUserAndEndpoint(t *testing.T) {
	svc := newTestService(t, Config{Enabled: true})

	if _, err := svc.Subscribe(context.Background(), Subscription{UserID: "user-1"}); err == nil {
		t.Fatal("expected error for subscription without endpoint")
	}
	if _, err := svc.Subscribe(context.Background(), Subscription{Endpoint: "https://push.example/ep"}); err == nil {
		t.Fatal("expected error for subscription without user")
	}
}

func newTestService(t *testing.T, cfg Config) *Service {
	t.Helper()
	svc, err := New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { svc.Close() })
	return svc
}
