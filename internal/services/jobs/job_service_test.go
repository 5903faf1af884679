package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/storage"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	store, err := storage.New(t.TempDir(), nil)
	require.NoError(t, err)
	return New(store, arbor.NewLogger())
}

func TestCreateFillsDefaults(t *testing.T) {
	svc := newTestService(t)

	job, err := svc.Create(CreateInput{
		Name:         "homepage",
		BaselineURL:  "https://old.example.com",
		CandidateURL: "https://new.example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.CrawlConfig.MaxDepth)
	assert.True(t, job.TestMatrix.Visual)
	assert.True(t, job.TestMatrix.SEO)
}

func TestCreateRejectsEqualURLs(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(CreateInput{Name: "bad", BaselineURL: "https://example.com", CandidateURL: "https://example.com"})
	assert.Error(t, err)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(CreateInput{BaselineURL: "https://a.example.com", CandidateURL: "https://b.example.com"})
	assert.Error(t, err)
}

func TestUpdatePreservesIDAndValidatesURLPair(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Create(CreateInput{Name: "homepage", BaselineURL: "https://old.example.com", CandidateURL: "https://new.example.com"})
	require.NoError(t, err)

	sameURL := job.BaselineURL
	_, err = svc.Update(job.ID, UpdateInput{CandidateURL: &sameURL})
	assert.Error(t, err)

	newName := "renamed"
	updated, err := svc.Update(job.ID, UpdateInput{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, job.ID, updated.ID)
	assert.Equal(t, "renamed", updated.Name)
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(t)
	newName := "x"
	_, err := svc.Update("missing", UpdateInput{Name: &newName})
	assert.Error(t, err)
}

func TestDeleteCascades(t *testing.T) {
	svc := newTestService(t)
	job, err := svc.Create(CreateInput{Name: "homepage", BaselineURL: "https://old.example.com", CandidateURL: "https://new.example.com"})
	require.NoError(t, err)

	_, err = svc.TriggerRun(job.ID, "manual")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(job.ID))
	_, err = svc.Get(job.ID)
	assert.Error(t, err)
}

func TestTriggerRunRequiresExistingJob(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.TriggerRun("missing", "manual")
	assert.Error(t, err)
}
