package storage

import (
	"fmt"

	"github.com/ternarybob/parityguard/internal/common"
	"github.com/ternarybob/parityguard/internal/models"
)

// Migrate brings a freshly-unmarshaled snapshot up to the current schema
// version. It returns the (possibly same) snapshot, whether any migration
// was applied, and an error if the snapshot's version is newer than this
// build understands.
//
// The only migration step today converts the legacy "jobs" array (plain
// sourceUrl/targetUrl comparison records with no crawl config, page map, or
// test matrix) into ComparisonJob entries carrying the current defaults,
// per the legacy-snapshot scenario (SPEC_FULL.md §10, S7).
func Migrate(snapshot *models.StorageSnapshot) (*models.StorageSnapshot, bool, error) {
	if snapshot.Version > models.SnapshotVersion {
		return nil, false, fmt.Errorf("%w: snapshot version %d is newer than this build supports (%d)",
			common.ErrStorageCorruption, snapshot.Version, models.SnapshotVersion)
	}

	migrated := false

	if len(snapshot.LegacyJobs) > 0 {
		for _, legacy := range snapshot.LegacyJobs {
			snapshot.ComparisonJobs = append(snapshot.ComparisonJobs, legacyToComparisonJob(legacy))
		}
		snapshot.Metadata.Notes = append(snapshot.Metadata.Notes,
			fmt.Sprintf("migrated %d legacy job(s) from schema version %d", len(snapshot.LegacyJobs), snapshot.Version))
		snapshot.LegacyJobs = nil
		migrated = true
	}

	if snapshot.Version != models.SnapshotVersion {
		snapshot.Version = models.SnapshotVersion
		migrated = true
	}

	return snapshot, migrated, nil
}

func legacyToComparisonJob(legacy models.LegacyJob) models.ComparisonJob {
	name := legacy.Name
	if name == "" {
		name = fmt.Sprintf("Migrated job %s", legacy.ID)
	}

	return models.ComparisonJob{
		ID:              legacy.ID,
		Name:            name,
		BaselineURL:     legacy.SourceURL,
		CandidateURL:    legacy.TargetURL,
		CrawlConfig:     models.DefaultCrawlConfig(),
		TestMatrix:      models.DefaultTestMatrix(),
		Status:          models.JobStatusPending,
		CreatedAt:       legacy.CreatedAt,
		UpdatedAt:       legacy.CreatedAt,
		MigratedFrom:    legacy.ID,
		SnapshotVersion: models.SnapshotVersion,
	}
}
