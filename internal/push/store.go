package push

import (
	"context"
	"errors"
	"time"
)

var ErrStoreNotFound = errors.New("push record not found in store")

type Store interface {
	SaveSubscription(ctx context.Context, sub Subscription) error
	ListSubscriptions(ctx context.Context, userID string) ([]Subscription, error)
	Enqueue(ctx context.Context, n Notification) error
	ListPending(ctx context.Context, userID string, limit int) ([]Notification, error)
	MarkDelivered(ctx context.Context, ids []string) error
	ExpireBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}
