package session

import "time"

// CreateRequest defines payload for creating a new control session.
type CreateRequest struct {
	UserID string `json:"user_id"`
	Client string `json:"client"`
}

// CreateResponse returns created session metadata.
type CreateResponse struct {
	SessionID       string    `json:"session_id"`
	UserID          string    `json:"user_id"`
	Status          Status    `json:"status"`
	Client          string    `json:"client"`
	CaptureState    string    `json:"capture_state"`
	StartedAt       time.Time `json:"started_at"`
	LastActivityAt  time.Time `json:"last_activity_at"`
	InactivityTTLMS int64     `json:"inactivity_ttl_ms"`
}
