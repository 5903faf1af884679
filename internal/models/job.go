package models

import "time"

// JobStatus represents the lifecycle status of a ComparisonJob.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// CrawlConfig tunes the per-job crawl and page-matching behavior.
type CrawlConfig struct {
	MaxDepth            int      `json:"maxDepth"`
	IncludePatterns     []string `json:"includePatterns,omitempty"`
	ExcludePatterns     []string `json:"excludePatterns,omitempty"`
	MaxPages            int      `json:"maxPages"`
	FollowExternalLinks bool     `json:"followExternalLinks"`
}

// DefaultCrawlConfig returns the baseline values a ComparisonJob falls back to
// when the caller supplies none.
func DefaultCrawlConfig() CrawlConfig {
	return CrawlConfig{
		MaxDepth:            1,
		MaxPages:            10,
		FollowExternalLinks: false,
	}
}

// PageMapEntry is a single operator-supplied override mapping a baseline page
// to its candidate counterpart.
type PageMapEntry struct {
	BaselinePath  string `json:"baselinePath" yaml:"baselinePath"`
	CandidatePath string `json:"candidatePath" yaml:"candidatePath"`
	Notes         string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// PageMap is an ordered sequence of explicit page pairings.
type PageMap []PageMapEntry

// TestMatrix selects which diff stages a run should execute.
type TestMatrix struct {
	Visual     bool `json:"visual"`
	Functional bool `json:"functional"`
	Data       bool `json:"data"`
	SEO        bool `json:"seo"`
}

// DefaultTestMatrix enables every category, including SEO: the slot is
// reserved for a future stage and no stage currently honors it, but the
// default job still carries it as true like every other category.
func DefaultTestMatrix() TestMatrix {
	return TestMatrix{Visual: true, Functional: true, Data: true, SEO: true}
}

// ComparisonJob is the user-declared intent to compare a baseline site
// against a candidate site.
type ComparisonJob struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description,omitempty"`
	BaselineURL   string     `json:"baselineUrl"`
	CandidateURL  string     `json:"candidateUrl"`
	CrawlConfig   CrawlConfig `json:"crawlConfig"`
	PageMap       PageMap    `json:"pageMap,omitempty"`
	TestMatrix    TestMatrix `json:"testMatrix"`
	Status        JobStatus  `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	MigratedFrom  string     `json:"migratedFrom,omitempty"`
	SnapshotVersion int      `json:"snapshotVersion"`
}
