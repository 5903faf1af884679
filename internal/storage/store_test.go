package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/parityguard/internal/models"
)

func TestCreateAndGetJob(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)

	job, err := store.CreateJob(models.ComparisonJob{
		Name:         "homepage migration",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
		CrawlConfig:  models.DefaultCrawlConfig(),
		TestMatrix:   models.DefaultTestMatrix(),
		Status:       models.JobStatusPending,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	fetched, err := store.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.Name, fetched.Name)
}

func TestGetJobNotFound(t *testing.T) {
	store, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = store.GetJob("does-not-exist")
	assert.Error(t, err)
}

func TestSnapshotPersistsAcrossReload(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)

	job, err := store.CreateJob(models.ComparisonJob{
		Name:         "persisted job",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
	})
	require.NoError(t, err)

	reloaded, err := New(dir, nil)
	require.NoError(t, err)

	fetched, err := reloaded.GetJob(job.ID)
	require.NoError(t, err)
	assert.Equal(t, "persisted job", fetched.Name)
}

func TestDeleteJobCascadesRunsAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)

	job, err := store.CreateJob(models.ComparisonJob{Name: "job", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	run, err := store.CreateRun(job.ID, "manual")
	require.NoError(t, err)

	runDir := store.RunArtifactDir(run.ID)
	require.NoError(t, os.MkdirAll(runDir, 0o755))
	artifactFile := filepath.Join(runDir, "report.json")
	require.NoError(t, os.WriteFile(artifactFile, []byte("{}"), 0o644))

	_, err = store.RegisterArtifact(run.ID, models.ArtifactTypeReport, "Final report", filepath.Join(run.ID, "report.json"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteJob(job.ID))

	_, err = store.GetJob(job.ID)
	assert.Error(t, err)
	_, err = store.GetRun(run.ID)
	assert.Error(t, err)
	assert.Empty(t, store.ListArtifacts(run.ID))
}

func TestMigrateLegacySnapshot(t *testing.T) {
	dir := t.TempDir()
	legacyJSON := `{
		"version": 0,
		"jobs": [
			{"id": "legacy-1", "name": "Old comparison", "sourceUrl": "https://old.example.com", "targetUrl": "https://new.example.com", "createdAt": "2026-01-01T00:00:00Z"}
		]
	}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFileName), []byte(legacyJSON), 0o644))

	store, err := New(dir, nil)
	require.NoError(t, err)

	jobs := store.ListJobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "legacy-1", jobs[0].ID)
	assert.Equal(t, "https://old.example.com", jobs[0].BaselineURL)
	assert.Equal(t, "legacy-1", jobs[0].MigratedFrom)

	raw, err := os.ReadFile(filepath.Join(dir, snapshotFileName))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"comparisonJobs"`)
	assert.NotContains(t, string(raw), `"jobs"`)
}

func TestRunStatusTransitionsStampCompletedAt(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)

	job, err := store.CreateJob(models.ComparisonJob{Name: "job", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	run, err := store.CreateRun(job.ID, "scheduler")
	require.NoError(t, err)
	assert.Nil(t, run.CompletedAt)

	require.NoError(t, store.UpdateRunStatus(run.ID, models.RunStatusRunning, ""))
	fetched, err := store.GetRun(run.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.CompletedAt)

	require.NoError(t, store.UpdateRunStatus(run.ID, models.RunStatusCompleted, ""))
	fetched, err = store.GetRun(run.ID)
	require.NoError(t, err)
	assert.NotNil(t, fetched.CompletedAt)
}

func TestRunningRunsForCrashRecovery(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, nil)
	require.NoError(t, err)

	job, err := store.CreateJob(models.ComparisonJob{Name: "job", BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	require.NoError(t, err)

	run, err := store.CreateRun(job.ID, "scheduler")
	require.NoError(t, err)
	require.NoError(t, store.UpdateRunStatus(run.ID, models.RunStatusRunning, ""))

	running := store.RunningRuns()
	require.Len(t, running, 1)
	assert.Equal(t, run.ID, running[0].ID)
}
