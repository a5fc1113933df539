package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/lpetrova/mira/internal/capture"
	"github.com/lpetrova/mira/internal/config"
	"github.com/lpetrova/mira/internal/content"
	"github.com/lpetrova/mira/internal/greeting"
	"github.com/lpetrova/mira/internal/host"
	"github.com/lpetrova/mira/internal/httpapi"
	"github.com/lpetrova/mira/internal/memory"
	"github.com/lpetrova/mira/internal/observability"
	"github.com/lpetrova/mira/internal/policy"
	"github.com/lpetrova/mira/internal/push"
	"github.com/lpetrova/mira/internal/session"
	"github.com/lpetrova/mira/internal/voice"
)

type CaptureInfo struct {
	Provider string
	Detail   string
}

type BuildResult struct {
	Config   config.Config
	API      *httpapi.Server
	Sessions *session.Manager
	Gateway  *voice.Gateway
	Push     *push.Service
	Metrics  *observability.Metrics
	Capture  CaptureInfo

	// Cleanup should be called on shutdown to release external resources (DB pools etc).
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	memoryStore, err := memory.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("memory store init failed: %w", err)
	}

	pushService, err := push.New(ctx, push.Config{
		Enabled:       cfg.PushEnabled,
		DatabaseURL:   cfg.DatabaseURL,
		QueueTTL:      cfg.PushQueueTTL,
		SweepInterval: cfg.PushSweepInterval,
	}, metrics)
	if err != nil {
		_ = memoryStore.Close()
		return nil, fmt.Errorf("push service init failed: %w", err)
	}

	catalog, err := content.Load(cfg.ContentPath)
	if err != nil {
		_ = pushService.Close()
		_ = memoryStore.Close()
		return nil, fmt.Errorf("content catalog init failed: %w", err)
	}

	captureSetup, err := resolveCaptureProvider(cfg)
	if err != nil {
		_ = pushService.Close()
		_ = memoryStore.Close()
		return nil, err
	}

	// Ensure API handlers report the resolved provider, not "auto".
	cfg.CaptureProvider = captureSetup.resolvedProvider

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	sessions.SetExpireHook(func(_ *session.Session) {
		metrics.SessionEvents.WithLabelValues("expired").Inc()
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	gateway := voice.NewGateway(voice.GatewayConfig{
		Provider:        captureSetup.resolvedProvider,
		OpenTimeout:     cfg.CaptureOpenTimeout,
		FinalizeTimeout: cfg.CaptureFinalizeTimeout,
		MaxListen:       cfg.CaptureMaxListen,
	}, sessions, capture.NewGate(), captureSetup.scripted, host.NewClient(cfg.HostTranscriptURL, cfg.HostTranscriptToken), metrics)

	api := httpapi.New(cfg, sessions, gateway, metrics, httpapi.Services{
		Memories: memoryStore,
		Push:     pushService,
		Greeter:  greeting.NewService(catalog),
		Catalog:  catalog,
		Tokens:   policy.NewTokenIssuer(cfg.AuthSecret),
	})

	cleanup := func() error {
		var errs []string
		if err := pushService.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if err := memoryStore.Close(); err != nil {
			errs = append(errs, err.Error())
		}
		if len(errs) > 0 {
			return fmt.Errorf("%s", strings.Join(errs, "; "))
		}
		return nil
	}

	return &BuildResult{
		Config:   cfg,
		API:      api,
		Sessions: sessions,
		Gateway:  gateway,
		Push:     pushService,
		Metrics:  metrics,
		Capture: CaptureInfo{
			Provider: captureSetup.resolvedProvider,
			Detail:   captureSetup.detail,
		},
		Cleanup: cleanup,
	}, nil
}
