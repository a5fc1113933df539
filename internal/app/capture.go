package app

import (
	"fmt"
	"strings"

	"github.com/lpetrova/mira/internal/capture"
	"github.com/lpetrova/mira/internal/config"
)

type captureSetup struct {
	resolvedProvider string
	scripted         capture.Opener
	detail           string
}

// resolveCaptureProvider picks where capture devices come from. "remote"
// drives the browser's recognizer over the control connection; "scripted"
// replays SCRIPTED_TRANSCRIPT locally, which is what tests and headless dev
// setups use. "auto" goes scripted only when a script is configured.
func resolveCaptureProvider(cfg config.Config) (captureSetup, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.CaptureProvider))
	if mode == "" {
		mode = "auto"
	}

	buildScripted := func() captureSetup {
		lines := splitScript(cfg.ScriptedTranscript)
		opener := capture.NewScriptedOpener(capture.ScriptedConfig{
			Lines:         lines,
			FinalizeDelay: cfg.ScriptedFinalizeDelay,
		})
		detail := fmt.Sprintf("scripted (%d lines)", len(lines))
		if len(lines) == 0 {
			detail = "scripted (empty script; captures report no speech)"
		}
		return captureSetup{resolvedProvider: "scripted", scripted: opener, detail: detail}
	}

	switch mode {
	case "remote":
		return captureSetup{resolvedProvider: "remote", detail: "remote (browser recognizer)"}, nil
	case "scripted":
		return buildScripted(), nil
	case "auto":
		if strings.TrimSpace(cfg.ScriptedTranscript) != "" {
			return buildScripted(), nil
		}
		return captureSetup{resolvedProvider: "remote", detail: "remote (browser recognizer)"}, nil
	default:
		return captureSetup{}, fmt.Errorf("invalid CAPTURE_PROVIDER: %q (expected auto|remote|scripted)", cfg.CaptureProvider)
	}
}

// splitScript turns SCRIPTED_TRANSCRIPT into capture lines. "|" separates
// attempts so one env var can script a whole conversation; blank segments
// stand for attempts that hear nothing.
func splitScript(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, "|")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}
