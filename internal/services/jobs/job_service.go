// Package jobs implements the Job Service (SPEC_FULL.md §4.2): the
// validated create/get/list/update/delete surface the REST boundary and the
// orchestrator sit on top of, mediating all ComparisonJob access through the
// storage layer.
package jobs

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/common"
	"github.com/ternarybob/parityguard/internal/models"
	"github.com/ternarybob/parityguard/internal/storage"
)

// Service is the Job Service. It owns no state itself; every operation is a
// validated pass-through to the storage layer.
type Service struct {
	store  *storage.Store
	logger arbor.ILogger
}

func New(store *storage.Store, logger arbor.ILogger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateInput is the caller-supplied subset of ComparisonJob fields a create
// call accepts; id, status, and timestamps are always assigned by the
// service.
type CreateInput struct {
	Name         string
	Description  string
	BaselineURL  string
	CandidateURL string
	CrawlConfig  *models.CrawlConfig
	PageMap      models.PageMap
	TestMatrix   *models.TestMatrix
}

// Create validates the URL pair, fills CrawlConfig/TestMatrix defaults when
// omitted, and appends a new pending ComparisonJob.
func (s *Service) Create(input CreateInput) (models.ComparisonJob, error) {
	if err := common.ValidateJobURLPair(input.BaselineURL, input.CandidateURL); err != nil {
		return models.ComparisonJob{}, err
	}
	if input.Name == "" {
		return models.ComparisonJob{}, fmt.Errorf("%w: name is required", common.ErrInvalidInput)
	}

	crawlConfig := models.DefaultCrawlConfig()
	if input.CrawlConfig != nil {
		crawlConfig = *input.CrawlConfig
	}
	if crawlConfig.MaxDepth < 0 {
		return models.ComparisonJob{}, fmt.Errorf("%w: crawlConfig.maxDepth must be >= 0", common.ErrInvalidInput)
	}
	if crawlConfig.MaxPages < 1 {
		return models.ComparisonJob{}, fmt.Errorf("%w: crawlConfig.maxPages must be >= 1", common.ErrInvalidInput)
	}

	testMatrix := models.DefaultTestMatrix()
	if input.TestMatrix != nil {
		testMatrix = *input.TestMatrix
	}

	job := models.ComparisonJob{
		Name:         input.Name,
		Description:  input.Description,
		BaselineURL:  input.BaselineURL,
		CandidateURL: input.CandidateURL,
		CrawlConfig:  crawlConfig,
		PageMap:      input.PageMap,
		TestMatrix:   testMatrix,
		Status:       models.JobStatusPending,
	}

	created, err := s.store.CreateJob(job)
	if err != nil {
		return models.ComparisonJob{}, err
	}

	s.logger.Info().Str("job_id", created.ID).Str("name", created.Name).Msg("Created comparison job")
	return created, nil
}

func (s *Service) Get(id string) (models.ComparisonJob, error) {
	return s.store.GetJob(id)
}

func (s *Service) List() []models.ComparisonJob {
	return s.store.ListJobs()
}

// UpdateInput is a partial update; nil fields are left unchanged. Id and
// CreatedAt can never be changed through this path.
type UpdateInput struct {
	Name         *string
	Description  *string
	BaselineURL  *string
	CandidateURL *string
	CrawlConfig  *models.CrawlConfig
	PageMap      *models.PageMap
	TestMatrix   *models.TestMatrix
	Status       *models.JobStatus
}

func (s *Service) Update(id string, input UpdateInput) (models.ComparisonJob, error) {
	job, err := s.store.GetJob(id)
	if err != nil {
		return models.ComparisonJob{}, err
	}

	baselineURL := job.BaselineURL
	candidateURL := job.CandidateURL
	urlTouched := false

	if input.BaselineURL != nil {
		baselineURL = *input.BaselineURL
		urlTouched = true
	}
	if input.CandidateURL != nil {
		candidateURL = *input.CandidateURL
		urlTouched = true
	}
	if urlTouched {
		if err := common.ValidateJobURLPair(baselineURL, candidateURL); err != nil {
			return models.ComparisonJob{}, err
		}
		job.BaselineURL = baselineURL
		job.CandidateURL = candidateURL
	}

	if input.Name != nil {
		if *input.Name == "" {
			return models.ComparisonJob{}, fmt.Errorf("%w: name cannot be empty", common.ErrInvalidInput)
		}
		job.Name = *input.Name
	}
	if input.Description != nil {
		job.Description = *input.Description
	}
	if input.CrawlConfig != nil {
		if input.CrawlConfig.MaxDepth < 0 {
			return models.ComparisonJob{}, fmt.Errorf("%w: crawlConfig.maxDepth must be >= 0", common.ErrInvalidInput)
		}
		if input.CrawlConfig.MaxPages < 1 {
			return models.ComparisonJob{}, fmt.Errorf("%w: crawlConfig.maxPages must be >= 1", common.ErrInvalidInput)
		}
		job.CrawlConfig = *input.CrawlConfig
	}
	if input.PageMap != nil {
		job.PageMap = *input.PageMap
	}
	if input.TestMatrix != nil {
		job.TestMatrix = *input.TestMatrix
	}
	if input.Status != nil {
		job.Status = *input.Status
	}

	if err := s.store.UpdateJob(job); err != nil {
		return models.ComparisonJob{}, err
	}
	return s.store.GetJob(id)
}

// Delete cascades to the job's runs and artifacts.
func (s *Service) Delete(id string) error {
	if err := s.store.DeleteJob(id); err != nil {
		return err
	}
	s.logger.Info().Str("job_id", id).Msg("Deleted comparison job and cascaded runs/artifacts")
	return nil
}

// TriggerRun creates a new queued Run for the job. The orchestrator is
// responsible for actually advancing it; this only records intent.
func (s *Service) TriggerRun(jobID, triggeredBy string) (models.Run, error) {
	job, err := s.store.GetJob(jobID)
	if err != nil {
		return models.Run{}, err
	}

	run, err := s.store.CreateRun(job.ID, triggeredBy)
	if err != nil {
		return models.Run{}, err
	}

	s.logger.Info().Str("job_id", job.ID).Str("run_id", run.ID).Str("triggered_by", triggeredBy).Msg("Triggered comparison run")
	return run, nil
}
