package orchestrator

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/reasoning"
	"github.com/ternarybob/parityguard/internal/storage"
)

type fakeStage struct {
	name    string
	err     error
	summary *reasoning.CategorySummary
}

func (f *fakeStage) Name() string { return f.name }
func (f *fakeStage) Run(sc *StageContext) (StageResult, error) {
	if f.err != nil {
		return StageResult{}, f.err
	}
	return StageResult{CategorySummary: f.summary}, nil
}

func newTestOrchestrator(t *testing.T) (*Orchestrator, *storage.Store) {
	t.Helper()
	store, err := storage.New(t.TempDir(), nil)
	require.NoError(t, err)
	orch := New(store, nil, reasoning.NewRuleReasoner(), reasoning.NewNullAuditLogger(), arbor.NewLogger())
	return orch, store
}

func createJobAndRun(t *testing.T, store *storage.Store, matrix models.TestMatrix) (models.ComparisonJob, models.Run) {
	t.Helper()
	job, err := store.CreateJob(models.ComparisonJob{
		Name:         "test",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
		CrawlConfig:  models.DefaultCrawlConfig(),
		TestMatrix:   matrix,
		Status:       models.JobStatusPending,
	})
	require.NoError(t, err)
	run, err := store.CreateRun(job.ID, "manual")
	require.NoError(t, err)
	return job, run
}

func TestOrchestratorCompletesRunOnSuccess(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	orch.RegisterStage(StageCrawl, &fakeStage{name: StageCrawl})
	orch.RegisterStage(StageCapture, &fakeStage{name: StageCapture})
	orch.RegisterStage(StageVisual, &fakeStage{name: StageVisual, summary: &reasoning.CategorySummary{Category: "visual", Available: true}})
	orch.RegisterStage(StageFunctional, &fakeStage{name: StageFunctional, summary: &reasoning.CategorySummary{Category: "functional", Available: true}})
	orch.RegisterStage(StageData, &fakeStage{name: StageData, summary: &reasoning.CategorySummary{Category: "data", Available: true}})

	job, run := createJobAndRun(t, store, models.DefaultTestMatrix())

	orch.TriggerRun(job.ID, run.ID)
	waitForTerminal(t, store, run.ID)

	final, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, final.Status)

	artifacts := store.ListArtifacts(run.ID)
	require.Len(t, artifacts, 2)
	for _, a := range artifacts {
		assert.Equal(t, models.ArtifactTypeReport, a.Type)
	}
	assert.True(t, strings.HasSuffix(artifacts[0].Path, "report.json") || strings.HasSuffix(artifacts[0].Path, "report.md"))
	assert.True(t, strings.HasSuffix(artifacts[1].Path, "report.json") || strings.HasSuffix(artifacts[1].Path, "report.md"))
}

func TestOrchestratorFailsRunOnCrawlError(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	orch.RegisterStage(StageCrawl, &fakeStage{name: StageCrawl, err: assertErr{}})

	job, run := createJobAndRun(t, store, models.DefaultTestMatrix())

	orch.TriggerRun(job.ID, run.ID)
	waitForTerminal(t, store, run.ID)

	final, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, final.Status)
	assert.Contains(t, final.FailureReason, "crawl stage")
}

func TestOrchestratorMarksDiffStageUnavailableOnError(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	orch.RegisterStage(StageCrawl, &fakeStage{name: StageCrawl})
	orch.RegisterStage(StageCapture, &fakeStage{name: StageCapture})
	orch.RegisterStage(StageVisual, &fakeStage{name: StageVisual, err: assertErr{}})

	matrix := models.TestMatrix{Visual: true}
	job, run := createJobAndRun(t, store, matrix)

	orch.TriggerRun(job.ID, run.ID)
	waitForTerminal(t, store, run.ID)

	final, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusCompleted, final.Status, "a failing diff stage must not fail the run")
}

func TestRecoverCrashedRunsMarksRunningAsFailed(t *testing.T) {
	orch, store := newTestOrchestrator(t)
	job, run := createJobAndRun(t, store, models.DefaultTestMatrix())
	require.NoError(t, store.UpdateRunStatus(run.ID, models.RunStatusRunning, ""))

	require.NoError(t, orch.RecoverCrashedRuns())

	recovered, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusFailed, recovered.Status)
	assert.Contains(t, recovered.FailureReason, "aborted-on-restart")
	_ = job
}

func waitForTerminal(t *testing.T, store *storage.Store, runID string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		run, err := store.GetRun(runID)
		require.NoError(t, err)
		if run.Status == models.RunStatusCompleted || run.Status == models.RunStatusFailed {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("run did not reach a terminal state in time")
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
