package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/lpetrova/mira/internal/content"
	"github.com/lpetrova/mira/internal/greeting"
)

type quickActionsResponse struct {
	QuickActions []content.QuickAction `json:"quick_actions"`
}

// handleGreeting returns the line shown when the companion opens. The client
// may report when it last saw the user (last_seen_ms, unix millis); without
// it the server falls back to its own visit tracking.
func (s *Server) handleGreeting(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		name = "anonymous"
	}

	var g greeting.Greeting
	if raw := strings.TrimSpace(r.URL.Query().Get("last_seen_ms")); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			respondError(w, http.StatusBadRequest, "invalid_last_seen", "last_seen_ms must be a non-negative integer")
			return
		}
		var lastSeen time.Time
		if ms > 0 {
			lastSeen = time.UnixMilli(ms)
		}
		g = s.svcs.Greeter.GreetSeen(name, lastSeen)
	} else {
		g = s.svcs.Greeter.Greet(name)
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"greeting": g.Text,
		"bucket":   g.Bucket,
	})
}

func (s *Server) handleQuickActions(w http.ResponseWriter, _ *http.Request) {
	actions := s.svcs.Catalog.QuickActions
	if actions == nil {
		actions = []content.QuickAction{}
	}
	respondJSON(w, http.StatusOK, quickActionsResponse{QuickActions: actions})
}
