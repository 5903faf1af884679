// Package orchestrator drives the Pipeline Orchestrator & Run State
// Machine (SPEC_FULL.md §4.3): queued -> running -> {completed, failed},
// with a fixed stage order and write-ahead persisted transitions. Grounded
// on the teacher's parent-job monitoring goroutine
// (internal/jobs/orchestrator/job_orchestrator.go) and the stale-job
// detector in internal/app/app.go, generalized from "poll child jobs until
// all complete" into "run a fixed sequence of stages against one run".
package orchestrator

import (
	"context"

	"github.com/ternarybob/parityguard/internal/browser"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/reasoning"
)

// StageContext carries everything a Stage needs: the job definition, the
// in-flight run, accumulated evidence from prior stages, and the shared
// BrowserDriver contexts the orchestrator checked out before the first
// stage, kept for the lifetime of the run (per §4.3, reused by every stage
// rather than re-opened).
type StageContext struct {
	Ctx       context.Context
	Job       models.ComparisonJob
	Run       models.Run
	Baseline  browser.Driver
	Candidate browser.Driver

	// Evidence accumulated by earlier stages, consumed by later ones.
	MatchedPages []models.MatchedPage
	Captures     map[string]*StageCapture // keyed by MatchedPage.BaselinePath

	// ArtifactDir is the run's artifact directory
	// (data/artifacts/{runId}/), already created by the orchestrator before
	// the first stage runs.
	ArtifactDir string
}

// StageCapture holds the per-page, per-viewport evidence produced by the
// capture stage for one matched page pair.
type StageCapture struct {
	BaselineSnapshots  map[string]*browser.PageSnapshot // keyed by viewport name
	CandidateSnapshots map[string]*browser.PageSnapshot
}

// StageResult is what a Stage reports back to the orchestrator: category
// summaries ready for the reasoning stage, plus any artifact paths it
// wrote (relative to ArtifactDir) worth registering.
type StageResult struct {
	CategorySummary *reasoning.CategorySummary // nil for stages that don't feed reasoning directly (Crawl, Capture)
	Artifacts       []StageArtifact
}

// StageArtifact is a file a Stage wrote under StageContext.ArtifactDir,
// pending registration with the storage layer's artifact registry.
type StageArtifact struct {
	Type  models.ArtifactType
	Label string
	Path  string // relative to ArtifactDir
}

// Stage is one step of the fixed pipeline: Crawl, Capture, Visual,
// Functional, Data, Reasoning, Report. A Stage failure is fatal unless the
// orchestrator explicitly classifies it otherwise (§4.3: Crawl/Capture
// failures are fatal; Visual/Functional/Data failures are not).
type Stage interface {
	Name() string
	Run(sc *StageContext) (StageResult, error)
}
