package models

import "time"

// ArtifactType categorizes a RunArtifact for display and filtering.
type ArtifactType string

const (
	ArtifactTypeLog        ArtifactType = "log"
	ArtifactTypeScreenshot ArtifactType = "screenshot"
	ArtifactTypeReport     ArtifactType = "report"
	ArtifactTypeHAR        ArtifactType = "har"
	ArtifactTypeOther      ArtifactType = "other"
)

// RunArtifact is a typed, labeled reference to a file produced during a Run.
// Path is always relative to the storage layer's artifact root and always
// lies under data/artifacts/{runId}/.
type RunArtifact struct {
	ID        string       `json:"id"`
	RunID     string       `json:"runId"`
	Type      ArtifactType `json:"type"`
	Label     string       `json:"label"`
	Path      string       `json:"path"`
	CreatedAt time.Time    `json:"createdAt"`
}

// MatchedPage pairs a baseline page with its candidate counterpart, produced
// by the crawl and page-matching engine.
type MatchedPage struct {
	BaselinePath  string  `json:"baselinePath"`
	BaselineURL   string  `json:"baselineUrl"`
	BaselineTitle string  `json:"baselineTitle,omitempty"`
	CandidatePath string  `json:"candidatePath"`
	CandidateURL  string  `json:"candidateUrl"`
	CandidateTitle string `json:"candidateTitle,omitempty"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// PageDescriptor is the ephemeral result of fetching one page during crawl,
// prior to matching.
type PageDescriptor struct {
	URL      string            `json:"url"`
	Path     string            `json:"path"`
	Title    string            `json:"title"`
	Status   int               `json:"status"`
	Depth    int               `json:"depth"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Order    int               `json:"order"` // discovery order, used for stable tie-break
}
