// Package app wires every component of the comparison engine together:
// configuration, storage, the browser pool, the reasoner, the pipeline
// orchestrator, and the HTTP handlers that sit in front of it all.
// Grounded on the teacher's phased New()/initX()/Close() composition root.
package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/common"
	"github.com/ternarybob/parityguard/internal/handlers"
	"github.com/ternarybob/parityguard/internal/orchestrator"
	"github.com/ternarybob/parityguard/internal/ratelimit"
	"github.com/ternarybob/parityguard/internal/reasoning"
	"github.com/ternarybob/parityguard/internal/server"
	"github.com/ternarybob/parityguard/internal/services/jobs"
	"github.com/ternarybob/parityguard/internal/stages/capture"
	"github.com/ternarybob/parityguard/internal/stages/crawl"
	"github.com/ternarybob/parityguard/internal/stages/data"
	"github.com/ternarybob/parityguard/internal/stages/functional"
	"github.com/ternarybob/parityguard/internal/stages/visual"
	"github.com/ternarybob/parityguard/internal/storage"
)

// App holds every long-lived component the server and orchestrator share.
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	Store        *storage.Store
	Pool         *browser.Pool
	Limiters     *ratelimit.Limiters
	Reasoner     reasoning.Reasoner
	AuditLogger  reasoning.AuditLogger
	JobService   *jobs.Service
	Orchestrator *orchestrator.Orchestrator

	handlers *server.Handlers
}

// New initializes the application with all dependencies, in the order each
// depends on the last: storage before services, services before the
// orchestrator, the orchestrator before handlers.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if err := a.initStorage(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := a.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	a.initOrchestrator()

	if err := a.recoverCrashedRuns(); err != nil {
		a.Logger.Warn().Err(err).Msg("Crash-recovery sweep reported an error")
	}

	a.initHandlers()

	a.Logger.Info().
		Str("reasoner", a.Orchestrator.ReasonerName()).
		Str("data_dir", cfg.Storage.DataDir).
		Msg("Application initialization complete")

	return a, nil
}

// initStorage initializes the snapshot-backed storage layer.
func (a *App) initStorage() error {
	store, err := storage.New(a.Config.Storage.DataDir, a.Logger)
	if err != nil {
		return err
	}
	a.Store = store
	a.Logger.Info().Str("data_dir", a.Config.Storage.DataDir).Msg("Storage layer initialized")
	return nil
}

// initServices initializes the browser pool, rate limiters, reasoner, and
// job service, in that order since the job service has no dependency on
// the others but the reasoner's audit log must exist before any run starts.
func (a *App) initServices() error {
	a.Pool = browser.NewPoolFromConfig(a.Config, a.Logger)
	if err := a.Pool.Init(); err != nil {
		return fmt.Errorf("failed to initialize browser pool: %w", err)
	}
	a.Logger.Info().Int("pool_size", a.Config.Capture.PoolSize).Msg("Browser pool initialized")

	a.Limiters = ratelimit.NewLimiters(
		a.Config.RateLimit.SiteRequestsPerSecond, a.Config.RateLimit.SiteBurst,
		a.Config.RateLimit.LLMRequestsPerSecond, a.Config.RateLimit.LLMBurst,
	)

	reasoner, audit, err := reasoning.NewReasoner(a.Config, a.Config.Storage.DataDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize reasoner: %w", err)
	}
	a.Reasoner = reasoner
	a.AuditLogger = audit

	a.JobService = jobs.New(a.Store, a.Logger)

	return nil
}

// initOrchestrator builds the Orchestrator and registers the fixed stage
// pipeline: Crawl, Capture, then Visual/Functional/Data gated per-job by
// TestMatrix.
func (a *App) initOrchestrator() {
	o := orchestrator.New(a.Store, a.Pool, a.Reasoner, a.AuditLogger, a.Logger)

	o.RegisterStage(orchestrator.StageCrawl, crawl.NewStage(a.Config.Crawl.NavigationTimeout, a.Logger))
	o.RegisterStage(orchestrator.StageCapture, capture.NewStage(a.captureViewports(), a.Config.Capture.NavigationTimeout, a.Logger))
	o.RegisterStage(orchestrator.StageVisual, visual.NewStage(visual.DiffThresholds{
		PixelDiffRatio:       a.Config.Visual.DiffThreshold,
		LayoutShiftMinPixels: a.Config.Visual.LayoutShiftMinPixels,
	}, a.Logger))
	o.RegisterStage(orchestrator.StageFunctional, functional.NewStage(a.Config.Functional.LinkProbeTimeout, a.Logger))
	o.RegisterStage(orchestrator.StageData, data.NewStage(a.Logger))

	a.Orchestrator = o
}

func (a *App) captureViewports() []browser.Viewport {
	if len(a.Config.Capture.Viewports) == 0 {
		return browser.DefaultViewports
	}
	viewports := make([]browser.Viewport, len(a.Config.Capture.Viewports))
	for i, v := range a.Config.Capture.Viewports {
		viewports[i] = browser.Viewport{Name: v.Name, Width: int64(v.Width), Height: int64(v.Height)}
	}
	return viewports
}

// recoverCrashedRuns marks every run left "running" from a prior process
// as failed, since its in-memory browser state can never be resumed.
func (a *App) recoverCrashedRuns() error {
	return a.Orchestrator.RecoverCrashedRuns()
}

// initHandlers builds the HTTP handler set the server's router dispatches
// to.
func (a *App) initHandlers() {
	a.handlers = &server.Handlers{
		Jobs:   handlers.NewJobHandler(a.JobService, a.Store, a.Orchestrator, a.Logger),
		Runs:   handlers.NewRunHandler(a.Store, a.Logger),
		System: handlers.NewSystemHandler(),
	}
}

// Handlers exposes the handler bundle for server.New to wire into routes.
func (a *App) Handlers() *server.Handlers {
	return a.handlers
}

// Close tears down every component in reverse dependency order.
func (a *App) Close() error {
	a.Logger.Info().Msg("Flushing logs")
	common.Stop()

	if a.AuditLogger != nil {
		if err := a.AuditLogger.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close reasoning audit log")
		}
	}

	if a.Pool != nil {
		if err := a.Pool.Shutdown(10 * time.Second); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to shut down browser pool")
		} else {
			a.Logger.Info().Msg("Browser pool shut down")
		}
	}

	return nil
}
