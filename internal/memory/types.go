package memory

import (
	"context"
	"time"
)

// Memory is a single remembered fact about the user.
type Memory struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Kind        string    `json:"kind"`
	Content     string    `json:"content"`
	PIIRedacted bool      `json:"pii_redacted"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists and retrieves user memories. ListByUser returns them newest
// first.
type Store interface {
	Save(ctx context.Context, m Memory) error
	ListByUser(ctx context.Context, userID string, limit int) ([]Memory, error)
	Close() error
}
