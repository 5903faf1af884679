// Package storage implements the durable home for the comparison engine's
// StorageSnapshot and the artifact file tree that backs it (SPEC_FULL.md
// §4.1). A single JSON file is the unit of atomic save; each artifact is
// added to the registry in its own snapshot save, only after its backing
// file is found on disk, so a crash never leaves a dangling registry entry.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/parityguard/internal/common"
	"github.com/ternarybob/parityguard/internal/models"
)

// Store owns the StorageSnapshot and the artifact directory tree. All
// mutation goes through its methods, which serialize writes with a single
// mutex so snapshot transitions are linearizable.
type Store struct {
	mu         sync.Mutex
	dataDir    string
	snapshot   *models.StorageSnapshot
	logger     arbor.ILogger
}

// snapshotFileName is the name of the persisted snapshot file within dataDir.
const snapshotFileName = "snapshot.json"

// New constructs a Store rooted at dataDir, loading and migrating any
// existing snapshot.json. If none exists, a fresh empty snapshot is used.
func New(dataDir string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory %s: %w", dataDir, err)
	}
	if err := os.MkdirAll(filepath.Join(dataDir, "artifacts"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts directory: %w", err)
	}

	s := &Store{dataDir: dataDir, logger: logger}

	snapshot, err := s.load()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStorageCorruption, err)
	}
	s.snapshot = snapshot

	return s, nil
}

// ArtifactRoot returns the directory under which all run artifact
// subtrees live.
func (s *Store) ArtifactRoot() string {
	return filepath.Join(s.dataDir, "artifacts")
}

// RunArtifactDir returns the directory a given run's artifacts are written
// under.
func (s *Store) RunArtifactDir(runID string) string {
	return filepath.Join(s.ArtifactRoot(), runID)
}

func (s *Store) snapshotPath() string {
	return filepath.Join(s.dataDir, snapshotFileName)
}

// load reads snapshot.json from disk, migrating it to the current schema
// version if necessary, and persisting the migrated result before
// returning. A missing file is not an error: a fresh snapshot is returned.
func (s *Store) load() (*models.StorageSnapshot, error) {
	data, err := os.ReadFile(s.snapshotPath())
	if err != nil {
		if os.IsNotExist(err) {
			return models.NewEmptySnapshot(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot models.StorageSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	migrated, didMigrate, err := Migrate(&snapshot)
	if err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	if didMigrate {
		if err := s.writeSnapshot(migrated); err != nil {
			return nil, fmt.Errorf("failed to persist migrated snapshot: %w", err)
		}
		if s.logger != nil {
			s.logger.Info().Int("jobs_migrated", len(migrated.ComparisonJobs)).Msg("Migrated legacy snapshot to current schema")
		}
	}

	return migrated, nil
}

// writeSnapshot performs the atomic temp-file-and-rename save.
func (s *Store) writeSnapshot(snapshot *models.StorageSnapshot) error {
	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tmpFile, err := os.CreateTemp(s.dataDir, "snapshot-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp snapshot file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to sync temp snapshot file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot file: %w", err)
	}

	if err := os.Rename(tmpPath, s.snapshotPath()); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp snapshot file into place: %w", err)
	}

	return nil
}

// mutate runs fn against a deep-enough copy of the current snapshot and,
// if fn succeeds, persists the result atomically and swaps it in.
func (s *Store) mutate(fn func(snapshot *models.StorageSnapshot) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := cloneSnapshot(s.snapshot)
	if err := fn(working); err != nil {
		return err
	}
	if err := s.writeSnapshot(working); err != nil {
		return err
	}
	s.snapshot = working
	return nil
}

func cloneSnapshot(s *models.StorageSnapshot) *models.StorageSnapshot {
	data, err := json.Marshal(s)
	if err != nil {
		// Should be unreachable: the snapshot only contains JSON-marshalable
		// value types.
		panic(fmt.Sprintf("storage: snapshot failed to marshal for clone: %v", err))
	}
	var clone models.StorageSnapshot
	if err := json.Unmarshal(data, &clone); err != nil {
		panic(fmt.Sprintf("storage: snapshot failed to unmarshal for clone: %v", err))
	}
	return &clone
}

// Snapshot returns a read-only copy of the current snapshot.
func (s *Store) Snapshot() *models.StorageSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneSnapshot(s.snapshot)
}

// --- ComparisonJob operations -------------------------------------------------

func (s *Store) CreateJob(job models.ComparisonJob) (models.ComparisonJob, error) {
	job.ID = uuid.New().String()
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now
	job.SnapshotVersion = models.SnapshotVersion

	err := s.mutate(func(snap *models.StorageSnapshot) error {
		snap.ComparisonJobs = append(snap.ComparisonJobs, job)
		return nil
	})
	return job, err
}

func (s *Store) GetJob(id string) (models.ComparisonJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, j := range s.snapshot.ComparisonJobs {
		if j.ID == id {
			return j, nil
		}
	}
	return models.ComparisonJob{}, fmt.Errorf("%w: job %s", common.ErrNotFound, id)
}

func (s *Store) ListJobs() []models.ComparisonJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ComparisonJob, len(s.snapshot.ComparisonJobs))
	copy(out, s.snapshot.ComparisonJobs)
	return out
}

// UpdateJob replaces the stored job matching job.ID. The caller is
// responsible for preserving ID/CreatedAt.
func (s *Store) UpdateJob(job models.ComparisonJob) error {
	job.UpdatedAt = time.Now()
	return s.mutate(func(snap *models.StorageSnapshot) error {
		for i := range snap.ComparisonJobs {
			if snap.ComparisonJobs[i].ID == job.ID {
				snap.ComparisonJobs[i] = job
				return nil
			}
		}
		return fmt.Errorf("%w: job %s", common.ErrNotFound, job.ID)
	})
}

// DeleteJob removes a job and cascades to its runs and their artifacts.
// Artifact files on disk are removed best-effort; registry entries are
// always removed.
func (s *Store) DeleteJob(id string) error {
	var runIDs []string

	err := s.mutate(func(snap *models.StorageSnapshot) error {
		found := false
		jobs := snap.ComparisonJobs[:0]
		for _, j := range snap.ComparisonJobs {
			if j.ID == id {
				found = true
				continue
			}
			jobs = append(jobs, j)
		}
		if !found {
			return fmt.Errorf("%w: job %s", common.ErrNotFound, id)
		}
		snap.ComparisonJobs = jobs

		runs := snap.Runs[:0]
		for _, r := range snap.Runs {
			if r.JobID == id {
				runIDs = append(runIDs, r.ID)
				continue
			}
			runs = append(runs, r)
		}
		snap.Runs = runs

		artifacts := snap.Artifacts[:0]
		for _, a := range snap.Artifacts {
			owned := false
			for _, rid := range runIDs {
				if a.RunID == rid {
					owned = true
					break
				}
			}
			if owned {
				continue
			}
			artifacts = append(artifacts, a)
		}
		snap.Artifacts = artifacts

		return nil
	})
	if err != nil {
		return err
	}

	for _, rid := range runIDs {
		if rmErr := os.RemoveAll(s.RunArtifactDir(rid)); rmErr != nil && s.logger != nil {
			s.logger.Warn().Err(rmErr).Str("run_id", rid).Msg("Failed to remove orphaned artifact directory")
		}
	}

	return nil
}

// MigrateNow re-applies Migrate to the current snapshot and persists it if
// anything changed, for the operator-triggered migration endpoint (useful
// after restoring a legacy snapshot.json without restarting the process,
// since New already migrates automatically at load time).
func (s *Store) MigrateNow() (int, error) {
	var count int
	err := s.mutate(func(snap *models.StorageSnapshot) error {
		count = len(snap.LegacyJobs)
		_, _, err := Migrate(snap)
		return err
	})
	return count, err
}

// --- Run operations ------------------------------------------------------

func (s *Store) CreateRun(jobID, triggeredBy string) (models.Run, error) {
	run := models.Run{
		ID:          uuid.New().String(),
		JobID:       jobID,
		Status:      models.RunStatusQueued,
		TriggeredBy: triggeredBy,
		TriggeredAt: time.Now(),
	}

	err := s.mutate(func(snap *models.StorageSnapshot) error {
		found := false
		for _, j := range snap.ComparisonJobs {
			if j.ID == jobID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: job %s", common.ErrNotFound, jobID)
		}
		snap.Runs = append(snap.Runs, run)
		return nil
	})
	return run, err
}

func (s *Store) GetRun(id string) (models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.snapshot.Runs {
		if r.ID == id {
			return r, nil
		}
	}
	return models.Run{}, fmt.Errorf("%w: run %s", common.ErrNotFound, id)
}

func (s *Store) ListRuns() []models.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Run, len(s.snapshot.Runs))
	copy(out, s.snapshot.Runs)
	return out
}

// UpdateRunStatus transitions a run's status, stamping completedAt when the
// new status is terminal. It is the single write-ahead point the
// orchestrator uses before any stage side effect that depends on the
// transition having been durably recorded.
func (s *Store) UpdateRunStatus(id string, status models.RunStatus, failureReason string) error {
	return s.mutate(func(snap *models.StorageSnapshot) error {
		for i := range snap.Runs {
			if snap.Runs[i].ID == id {
				snap.Runs[i].Status = status
				snap.Runs[i].FailureReason = failureReason
				if status == models.RunStatusCompleted || status == models.RunStatusFailed {
					now := time.Now()
					snap.Runs[i].CompletedAt = &now
				}
				return nil
			}
		}
		return fmt.Errorf("%w: run %s", common.ErrNotFound, id)
	})
}

// RunningRuns returns every run currently in the running state. Used at
// startup for the crash-recovery sweep (§4.3).
func (s *Store) RunningRuns() []models.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Run
	for _, r := range s.snapshot.Runs {
		if r.Status == models.RunStatusRunning {
			out = append(out, r)
		}
	}
	return out
}

// --- Artifact registry ----------------------------------------------------

// RegisterArtifact appends a RunArtifact after verifying the backing file
// exists under the run's artifact subtree. relativePath is relative to
// ArtifactRoot().
func (s *Store) RegisterArtifact(runID string, artifactType models.ArtifactType, label, relativePath string) (models.RunArtifact, error) {
	absPath := filepath.Join(s.ArtifactRoot(), relativePath)
	expectedPrefix := s.RunArtifactDir(runID)
	if !isWithin(absPath, expectedPrefix) {
		return models.RunArtifact{}, fmt.Errorf("%w: artifact path %s escapes run directory %s", common.ErrInvalidInput, relativePath, expectedPrefix)
	}
	if _, err := os.Stat(absPath); err != nil {
		return models.RunArtifact{}, fmt.Errorf("artifact file missing at registration time: %w", err)
	}

	artifact := models.RunArtifact{
		ID:        uuid.New().String(),
		RunID:     runID,
		Type:      artifactType,
		Label:     label,
		Path:      filepath.ToSlash(filepath.Join("data", "artifacts", relativePath)),
		CreatedAt: time.Now(),
	}

	err := s.mutate(func(snap *models.StorageSnapshot) error {
		snap.Artifacts = append(snap.Artifacts, artifact)
		return nil
	})
	return artifact, err
}

func (s *Store) ListArtifacts(runID string) []models.RunArtifact {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RunArtifact
	for _, a := range s.snapshot.Artifacts {
		if a.RunID == runID {
			out = append(out, a)
		}
	}
	return out
}

func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepathHasDotDotPrefix(rel)
}

func filepathHasDotDotPrefix(rel string) bool {
	return len(rel) >= 2 && rel[0] == '.' && rel[1] == '.'
}
