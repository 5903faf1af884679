package orchestrator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/reasoning"
	"github.com/ternarybob/parityguard/internal/storage"
)

// pollInterval is how often a run's background supervisor goroutine logs a
// still-in-progress heartbeat, matching the teacher's 5-second child-job
// poll cadence. Cancellation is observed through the run context, not
// on this tick.
const pollInterval = 5 * time.Second

// Orchestrator drives Runs through the fixed queued -> running ->
// {completed, failed} state machine and the fixed stage order: Crawl,
// Capture, then Visual/Functional/Data gated by TestMatrix, then
// Reasoning, then Report.
type Orchestrator struct {
	store  *storage.Store
	pool   *browser.Pool
	reason reasoning.Reasoner
	audit  reasoning.AuditLogger
	logger arbor.ILogger

	stages map[string]Stage

	mu      sync.Mutex
	running map[string]context.CancelFunc // runID -> cancel, for in-flight runs
}

// New constructs an Orchestrator. Register stages with RegisterStage
// before calling Start/TriggerRun.
func New(store *storage.Store, pool *browser.Pool, reasoner reasoning.Reasoner, audit reasoning.AuditLogger, logger arbor.ILogger) *Orchestrator {
	return &Orchestrator{
		store:   store,
		pool:    pool,
		reason:  reasoner,
		audit:   audit,
		logger:  logger,
		stages:  map[string]Stage{},
		running: map[string]context.CancelFunc{},
	}
}

// Fixed stage names, in pipeline order. Visual/Functional/Data run
// concurrently once Capture completes; their relative order here is only
// for TestMatrix lookups, not execution order.
const (
	StageCrawl      = "crawl"
	StageCapture    = "capture"
	StageVisual     = "visual"
	StageFunctional = "functional"
	StageData       = "data"
)

// RegisterStage wires a concrete Stage implementation in under one of the
// fixed names above.
func (o *Orchestrator) RegisterStage(name string, stage Stage) {
	o.stages[name] = stage
}

// RecoverCrashedRuns marks every run left in "running" state as "failed"
// with an aborted-on-restart reason. Call once at process startup before
// accepting new work, per §4.3's crash-recovery requirement: a run that
// was mid-flight when the process died can never resume, since its
// in-memory browser contexts and goroutine state are gone.
func (o *Orchestrator) RecoverCrashedRuns() error {
	stale := o.store.RunningRuns()
	for _, run := range stale {
		if err := o.store.UpdateRunStatus(run.ID, models.RunStatusFailed, "aborted-on-restart: orchestrator process restarted mid-run"); err != nil {
			o.logger.Warn().Err(err).Str("run_id", run.ID).Msg("Failed to mark stale run as failed during crash recovery")
			continue
		}
		o.logger.Warn().Str("run_id", run.ID).Str("job_id", run.JobID).Msg("Marked running run as failed during crash-recovery sweep")
	}
	return nil
}

// TriggerRun advances a queued run to completion (or failure) in a
// background goroutine and returns immediately. Only one goroutine per run
// ID is ever started.
func (o *Orchestrator) TriggerRun(jobID, runID string) {
	ctx, cancel := context.WithCancel(context.Background())

	o.mu.Lock()
	o.running[runID] = cancel
	o.mu.Unlock()

	go func() {
		defer func() {
			o.mu.Lock()
			delete(o.running, runID)
			o.mu.Unlock()
			cancel()
		}()
		o.execute(ctx, jobID, runID)
	}()
}

// Cancel requests cancellation of an in-flight run. No-op if the run is
// not currently being supervised by this process.
func (o *Orchestrator) Cancel(runID string) {
	o.mu.Lock()
	cancel, ok := o.running[runID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
}

func (o *Orchestrator) execute(ctx context.Context, jobID, runID string) {
	runLogger := o.logger.WithCorrelationId(runID)

	job, err := o.store.GetJob(jobID)
	if err != nil {
		runLogger.Error().Err(err).Msg("Run failed: job no longer exists")
		o.fail(runID, "job no longer exists")
		return
	}

	run, err := o.store.GetRun(runID)
	if err != nil {
		runLogger.Error().Err(err).Msg("Run failed: run record no longer exists")
		return
	}

	if err := o.store.UpdateRunStatus(runID, models.RunStatusRunning, ""); err != nil {
		runLogger.Error().Err(err).Msg("Failed to transition run to running")
		return
	}
	runLogger.Info().Str("job_id", jobID).Msg("Run started")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		for {
			select {
			case <-ticker.C:
				runLogger.Debug().Msg("Run still in progress")
			case <-ctx.Done():
				return
			case <-watchDone:
				return
			}
		}
	}()

	artifactDir := o.store.RunArtifactDir(runID)
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		runLogger.Error().Err(err).Msg("Failed to create run artifact directory")
		o.fail(runID, "failed to create artifact directory")
		return
	}

	// Without a pool the drivers stay nil; stages that need a browser
	// report that themselves.
	var baselineDriver, candidateDriver browser.Driver
	if o.pool != nil {
		baselineDriver, err = o.pool.Checkout()
		if err != nil {
			runLogger.Error().Err(err).Msg("Failed to check out baseline browser")
			o.fail(runID, "browser pool unavailable")
			return
		}
		candidateDriver, err = o.pool.Checkout()
		if err != nil {
			runLogger.Error().Err(err).Msg("Failed to check out candidate browser")
			o.fail(runID, "browser pool unavailable")
			return
		}
	}

	sc := &StageContext{
		Ctx:         ctx,
		Job:         job,
		Run:         run,
		Baseline:    baselineDriver,
		Candidate:   candidateDriver,
		ArtifactDir: artifactDir,
	}

	if err := o.runPipeline(sc, runLogger); err != nil {
		runLogger.Error().Err(err).Msg("Run failed")
		o.fail(runID, err.Error())
		return
	}

	if err := o.store.UpdateRunStatus(runID, models.RunStatusCompleted, ""); err != nil {
		runLogger.Error().Err(err).Msg("Failed to transition run to completed")
		return
	}
	runLogger.Info().Msg("Run completed")
}

// runPipeline executes Crawl, Capture, the gated diff stages, Reasoning,
// and Report in order. Crawl/Capture errors are fatal (§4.3); diff-stage
// errors are recorded as "unavailable" categories and do not abort the
// run; Reasoning never errors (it falls back to the rule-based reasoner
// internally); Report errors are fatal.
func (o *Orchestrator) runPipeline(sc *StageContext, logger arbor.ILogger) error {
	if stage, ok := o.stages[StageCrawl]; ok {
		result, err := stage.Run(sc)
		if err != nil {
			return fmt.Errorf("crawl stage: %w", err)
		}
		o.registerArtifacts(sc, result.Artifacts, logger)
	}

	if stage, ok := o.stages[StageCapture]; ok {
		result, err := stage.Run(sc)
		if err != nil {
			return fmt.Errorf("capture stage: %w", err)
		}
		o.registerArtifacts(sc, result.Artifacts, logger)
	}

	summaries := o.runDiffStages(sc, logger)

	analysis, err := o.reason.Analyze(reasoning.AnalysisInput{
		RunID:      sc.Run.ID,
		JobName:    sc.Job.Name,
		Categories: summaries,
	})
	if err != nil {
		// The configured Reasoner contract never returns an error (the LLM
		// reasoner falls back internally); treat this defensively as fatal
		// since reasoning failing silently would produce a misleading report.
		return fmt.Errorf("reasoning: %w", err)
	}

	if err := o.writeReport(sc, summaries, analysis); err != nil {
		return fmt.Errorf("report: %w", err)
	}

	return nil
}

// runDiffStages runs Visual, Functional, and Data concurrently, gated by
// the job's TestMatrix, and returns one CategorySummary per stage (marking
// skipped or failed stages as unavailable so reasoning can still run).
func (o *Orchestrator) runDiffStages(sc *StageContext, logger arbor.ILogger) []reasoning.CategorySummary {
	type job struct {
		name    string
		enabled bool
	}
	jobs := []job{
		{StageVisual, sc.Job.TestMatrix.Visual},
		{StageFunctional, sc.Job.TestMatrix.Functional},
		{StageData, sc.Job.TestMatrix.Data},
	}

	results := make([]reasoning.CategorySummary, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		i, j := i, j
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !j.enabled {
				results[i] = reasoning.CategorySummary{Category: j.name, Available: false}
				return
			}
			stage, ok := o.stages[j.name]
			if !ok {
				results[i] = reasoning.CategorySummary{Category: j.name, Available: false}
				return
			}
			result, err := stage.Run(sc)
			if err != nil {
				logger.Warn().Err(err).Str("stage", j.name).Msg("Diff stage failed; marking category unavailable")
				results[i] = reasoning.CategorySummary{Category: j.name, Available: false}
				return
			}
			o.registerArtifacts(sc, result.Artifacts, logger)
			if result.CategorySummary != nil {
				results[i] = *result.CategorySummary
			} else {
				results[i] = reasoning.CategorySummary{Category: j.name, Available: false}
			}
		}()
	}
	wg.Wait()
	return results
}

// writeReport runs the report synthesizer (§4.9) over the run's reasoning
// analysis and diff-stage summaries, then emits both the JSON and Markdown
// documents under the run's reports/ subtree (§8 persisted state layout).
func (o *Orchestrator) writeReport(sc *StageContext, summaries []reasoning.CategorySummary, analysis reasoning.Analysis) error {
	reportsDir := filepath.Join(sc.ArtifactDir, "reports")
	if err := os.MkdirAll(reportsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create reports directory: %w", err)
	}

	report := reasoning.BuildReport(sc.Run.ID, sc.Job.Name, time.Now(), len(sc.MatchedPages), summaries, analysis)

	if err := writeJSONFile(filepath.Join(reportsDir, "report.json"), report); err != nil {
		return fmt.Errorf("failed to write JSON report: %w", err)
	}
	if err := os.WriteFile(filepath.Join(reportsDir, "report.md"), []byte(report.RenderMarkdown()), 0o644); err != nil {
		return fmt.Errorf("failed to write markdown report: %w", err)
	}

	if _, err := o.store.RegisterArtifact(sc.Run.ID, models.ArtifactTypeReport, "Comparison report (JSON)", filepath.Join(sc.Run.ID, "reports", "report.json")); err != nil {
		return err
	}
	if _, err := o.store.RegisterArtifact(sc.Run.ID, models.ArtifactTypeReport, "Comparison report (Markdown)", filepath.Join(sc.Run.ID, "reports", "report.md")); err != nil {
		return err
	}
	return nil
}

// registerArtifacts records every file a stage wrote with the storage
// layer's artifact registry. A registration failure is logged and skipped
// rather than failing the run: the file is already safely on disk, and an
// unregistered artifact is strictly less harmful than aborting a run that
// otherwise succeeded.
func (o *Orchestrator) registerArtifacts(sc *StageContext, artifacts []StageArtifact, logger arbor.ILogger) {
	for _, a := range artifacts {
		relPath := filepath.Join(sc.Run.ID, a.Path)
		if _, err := o.store.RegisterArtifact(sc.Run.ID, a.Type, a.Label, relPath); err != nil {
			logger.Warn().Err(err).Str("path", a.Path).Msg("Failed to register stage artifact")
		}
	}
}

func (o *Orchestrator) fail(runID, reason string) {
	if err := o.store.UpdateRunStatus(runID, models.RunStatusFailed, reason); err != nil {
		o.logger.Error().Err(err).Str("run_id", runID).Msg("Failed to mark run as failed")
	}
}

// ReasonerName exposes which reasoner backend is active, for the status
// endpoint.
func (o *Orchestrator) ReasonerName() string {
	return o.reason.Name()
}
