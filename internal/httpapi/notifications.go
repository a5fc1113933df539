package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/lpetrova/mira/internal/push"
)

const maxPendingFetchLimit = 100

type queueNotificationResponse struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Payload *push.Payload `json:"payload,omitempty"`
}

type saveSubscriptionRequest struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

type subscriptionResponse struct {
	Success      bool              `json:"success"`
	Subscription push.Subscription `json:"subscription"`
}

type pendingNotificationsResponse struct {
	Success       bool                `json:"success"`
	Notifications []push.Notification `json:"notifications"`
}

// handleQueueNotification accepts a reminder from the scheduling layer and
// stores it for the user's subscribed devices. Queueing for a user with no
// subscriptions is a soft failure: 200 with success=false, so schedulers do
// not retry what can never deliver.
func (s *Server) handleQueueNotification(w http.ResponseWriter, r *http.Request) {
	var req push.QueueRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	req.UserID = strings.TrimSpace(req.UserID)
	req.Title = strings.TrimSpace(req.Title)
	if req.UserID == "" || req.Title == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "user_id and title are required")
		return
	}

	result, err := s.svcs.Push.Queue(r.Context(), req)
	if err != nil {
		if errors.Is(err, push.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "push_disabled", "push notifications are disabled")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", "failed to queue notification")
		return
	}
	respondJSON(w, http.StatusOK, queueNotificationResponse{
		Success: result.Queued,
		Message: result.Message,
		Payload: result.Payload,
	})
}

func (s *Server) handleSaveSubscription(w http.ResponseWriter, r *http.Request) {
	userID := authedUser(r)

	var req saveSubscriptionRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Endpoint) == "" {
		respondError(w, http.StatusBadRequest, "missing_endpoint", "endpoint must not be empty")
		return
	}

	sub, err := s.svcs.Push.Subscribe(r.Context(), push.Subscription{
		UserID:   userID,
		Endpoint: strings.TrimSpace(req.Endpoint),
		P256dh:   strings.TrimSpace(req.P256dh),
		Auth:     strings.TrimSpace(req.Auth),
	})
	if err != nil {
		if errors.Is(err, push.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "push_disabled", "push notifications are disabled")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", "failed to save subscription")
		return
	}
	respondJSON(w, http.StatusCreated, subscriptionResponse{Success: true, Subscription: sub})
}

func (s *Server) handlePendingNotifications(w http.ResponseWriter, r *http.Request) {
	userID := authedUser(r)

	limit := maxPendingFetchLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		if n < limit {
			limit = n
		}
	}

	items, err := s.svcs.Push.Pending(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, push.ErrDisabled) {
			respondError(w, http.StatusServiceUnavailable, "push_disabled", "push notifications are disabled")
			return
		}
		respondError(w, http.StatusInternalServerError, "store_error", "failed to load notifications")
		return
	}
	if items == nil {
		items = []push.Notification{}
	}
	respondJSON(w, http.StatusOK, pendingNotificationsResponse{Success: true, Notifications: items})
}
