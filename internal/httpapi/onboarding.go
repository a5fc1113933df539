package httpapi

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type onboardingCheck struct {
	ID     string `json:"id"`
	Status string `json:"status"` // ok|warn|error
	Label  string `json:"label"`
	Detail string `json:"detail,omitempty"`
	Fix    string `json:"fix,omitempty"`
}

type onboardingStatusResponse struct {
	CaptureProvider      string            `json:"capture_provider"`
	MemoryStoreMode      string            `json:"memory_store_mode"`
	PushStoreMode        string            `json:"push_store_mode"`
	NotificationsEnabled bool              `json:"notifications_enabled"`
	Checks               []onboardingCheck `json:"checks"`
}

func (s *Server) handleOnboardingStatus(w http.ResponseWriter, _ *http.Request) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.CaptureProvider))
	if provider == "" {
		provider = "auto"
	}
	memoryStoreMode := s.memoryStoreMode()
	pushStoreMode := s.svcs.Push.StoreMode()

	checks := make([]onboardingCheck, 0, 8)
	checks = append(checks, s.captureChecks(provider)...)

	switch memoryStoreMode {
	case "postgres":
		checks = append(checks, onboardingCheck{
			ID:     "memory_store",
			Status: "ok",
			Label:  "Memory persistence",
			Detail: "postgres",
		})
	default:
		checks = append(checks, onboardingCheck{
			ID:     "memory_store",
			Status: "warn",
			Label:  "Memory persistence",
			Detail: "in-memory only",
			Fix:    "Set DATABASE_URL to persist memories across restarts.",
		})
	}

	if s.svcs.Push.Enabled() {
		checks = append(checks, onboardingCheck{
			ID:     "push_queue",
			Status: "ok",
			Label:  "Notification queue",
			Detail: fmt.Sprintf("enabled (%s store)", pushStoreMode),
		})
		if pushStoreMode == "in-memory" {
			checks = append(checks, onboardingCheck{
				ID:     "push_store",
				Status: "warn",
				Label:  "Notification persistence",
				Detail: "in-memory only",
				Fix:    "Set DATABASE_URL to keep queued reminders across restarts.",
			})
		}
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "push_queue",
			Status: "warn",
			Label:  "Notification queue",
			Detail: "disabled",
			Fix:    "Set PUSH_ENABLED=true to queue reminders for the companion.",
		})
	}

	if s.svcs.Tokens.Configured() {
		checks = append(checks, onboardingCheck{
			ID:     "auth_secret",
			Status: "ok",
			Label:  "Bearer auth",
			Detail: "secret present",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "auth_secret",
			Status: "warn",
			Label:  "Bearer auth",
			Detail: "AUTH_SECRET is not set",
			Fix:    "Set AUTH_SECRET to enable the memories and pending-notification endpoints.",
		})
	}

	checks = append(checks, s.contentCheck())

	if strings.TrimSpace(s.cfg.HostTranscriptURL) != "" {
		checks = append(checks, onboardingCheck{
			ID:     "host_forwarder",
			Status: "ok",
			Label:  "Host forwarder",
			Detail: "forwarding transcripts",
		})
	} else {
		checks = append(checks, onboardingCheck{
			ID:     "host_forwarder",
			Status: "warn",
			Label:  "Host forwarder",
			Detail: "standalone mode",
			Fix:    "Set HOST_TRANSCRIPT_URL to hand captured transcripts to a host assistant.",
		})
	}

	respondJSON(w, http.StatusOK, onboardingStatusResponse{
		CaptureProvider:      provider,
		MemoryStoreMode:      memoryStoreMode,
		PushStoreMode:        pushStoreMode,
		NotificationsEnabled: s.svcs.Push.Enabled(),
		Checks:               checks,
	})
}

func (s *Server) captureChecks(provider string) []onboardingCheck {
	out := make([]onboardingCheck, 0, 2)
	switch provider {
	case "remote":
		out = append(out, onboardingCheck{
			ID:     "capture_provider",
			Status: "ok",
			Label:  "Capture device",
			Detail: "remote (browser recognizer)",
		})
	case "scripted":
		out = append(out, onboardingCheck{
			ID:     "capture_provider",
			Status: "ok",
			Label:  "Capture device",
			Detail: "scripted (canned transcript)",
		})
		if strings.TrimSpace(s.cfg.ScriptedTranscript) == "" {
			out = append(out, onboardingCheck{
				ID:     "scripted_transcript",
				Status: "warn",
				Label:  "Scripted transcript",
				Detail: "SCRIPTED_TRANSCRIPT is empty; captures report no speech",
				Fix:    "Set SCRIPTED_TRANSCRIPT to the lines the fake recognizer should produce.",
			})
		}
	default:
		out = append(out, onboardingCheck{
			ID:     "capture_provider_unknown",
			Status: "warn",
			Label:  "Capture device",
			Detail: "unknown provider; expected remote|scripted|auto",
		})
	}
	return out
}

func (s *Server) contentCheck() onboardingCheck {
	path := strings.TrimSpace(s.cfg.ContentPath)
	if path == "" {
		return onboardingCheck{
			ID:     "content_catalog",
			Status: "ok",
			Label:  "Content catalog",
			Detail: "built-in",
		}
	}
	if !filepath.IsAbs(path) {
		if wd, err := os.Getwd(); err == nil {
			path = filepath.Join(wd, path)
		}
	}
	if _, err := os.Stat(path); err != nil {
		return onboardingCheck{
			ID:     "content_catalog",
			Status: "error",
			Label:  "Content catalog",
			Detail: "content file missing",
			Fix:    "Create the file CONTENT_PATH points at, or unset it to use the built-in catalog.",
		}
	}
	return onboardingCheck{
		ID:     "content_catalog",
		Status: "ok",
		Label:  "Content catalog",
		Detail: "custom file loaded",
	}
}

func (s *Server) memoryStoreMode() string {
	if strings.TrimSpace(s.cfg.DatabaseURL) != "" {
		return "postgres"
	}
	return "in-memory"
}
