package httpapi

import "net/http"

type uiSettingsResponse struct {
	CaptureProvider      string `json:"capture_provider"`
	MaxListenMS          int64  `json:"max_listen_ms"`
	FinalizeTimeoutMS    int64  `json:"finalize_timeout_ms"`
	NotificationsEnabled bool   `json:"notifications_enabled"`
	QuickActionCount     int    `json:"quick_action_count"`
}

func (s *Server) handleUISettings(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, uiSettingsResponse{
		CaptureProvider:      s.cfg.CaptureProvider,
		MaxListenMS:          s.cfg.CaptureMaxListen.Milliseconds(),
		FinalizeTimeoutMS:    s.cfg.CaptureFinalizeTimeout.Milliseconds(),
		NotificationsEnabled: s.svcs.Push.Enabled(),
		QuickActionCount:     len(s.svcs.Catalog.QuickActions),
	})
}
