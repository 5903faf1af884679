package models

import "time"

// SnapshotVersion is the current persisted snapshot schema version. Bump this
// and add a migration step in internal/storage whenever the shape changes.
const SnapshotVersion = 1

// SnapshotMetadata carries bookkeeping about the snapshot itself, not about
// any individual entity.
type SnapshotMetadata struct {
	LastMigrationAt *time.Time `json:"lastMigrationAt,omitempty"`
	Notes           []string   `json:"notes,omitempty"`
}

// StorageSnapshot is the durable top-level aggregate persisted to
// data/snapshot.json. It is the single unit of atomic save.
type StorageSnapshot struct {
	Version        int                    `json:"version"`
	ComparisonJobs []ComparisonJob        `json:"comparisonJobs"`
	Runs           []Run                  `json:"runs"`
	Artifacts      []RunArtifact          `json:"artifacts"`
	Metadata       SnapshotMetadata       `json:"metadata"`

	// LegacyJobs tolerates the pre-migration on-disk shape (sourceUrl/targetUrl
	// jobs under the "jobs" key) so an old snapshot.json can still be loaded.
	LegacyJobs []LegacyJob `json:"jobs,omitempty"`
}

// LegacyJob is the shape persisted by the system this one supersedes.
// Present only so StorageSnapshot can unmarshal an old snapshot.json; never
// written back out once migrated.
type LegacyJob struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SourceURL   string    `json:"sourceUrl"`
	TargetURL   string    `json:"targetUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}

// NewEmptySnapshot returns a fresh, current-version snapshot with no entities.
func NewEmptySnapshot() *StorageSnapshot {
	return &StorageSnapshot{
		Version:        SnapshotVersion,
		ComparisonJobs: []ComparisonJob{},
		Runs:           []Run{},
		Artifacts:      []RunArtifact{},
	}
}
