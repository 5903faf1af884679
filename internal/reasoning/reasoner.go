package reasoning

// Severity is a five-point ordinal scale shared by every category record and
// the overall analysis.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// severityOrder gives each Severity a comparable rank; higher is worse.
var severityOrder = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns s's ordinal position, or 0 for an unrecognized value.
func (s Severity) Rank() int {
	return severityOrder[s]
}

// maxSeverity returns the worst of the given severities; an empty slice
// returns SeverityNone.
func maxSeverity(severities ...Severity) Severity {
	worst := SeverityNone
	for _, s := range severities {
		if s.Rank() > worst.Rank() {
			worst = s
		}
	}
	return worst
}

// CategorySummary is the compact input handed to a Reasoner for one diff
// category (visual, functional, data). Stages populate this from their full
// result before the reasoning stage runs; Available is false when the
// category's stage did not run or failed (§4.3 fatal/non-fatal rules).
type CategorySummary struct {
	Category     string
	Available    bool
	PagesTested  int
	IssuesFound  int
	CriticalCount int
	Metrics      map[string]float64
	TopFindings  []string
}

// AnalysisInput is the full summary across categories passed to Analyze.
type AnalysisInput struct {
	RunID      string
	JobName    string
	Categories []CategorySummary
}

// CategoryAnalysis is one category's reasoning output.
type CategoryAnalysis struct {
	Category        string   `json:"category"`
	Severity        Severity `json:"severity"`
	Confidence      float64  `json:"confidence"`
	Pass            bool     `json:"pass"`
	Explanation     string   `json:"explanation"`
	KeyFindings     []string `json:"keyFindings,omitempty"`
	FalsePositives  []string `json:"falsePositives,omitempty"`
	ExpectedChanges []string `json:"expectedChanges,omitempty"`
}

// Analysis is the full reasoning output for a run.
type Analysis struct {
	Categories      []CategoryAnalysis `json:"categories"`
	Severity        Severity            `json:"severity"`
	Confidence      float64             `json:"confidence"`
	Pass            bool                `json:"pass"`
	Explanation     string              `json:"explanation"`
	Recommendations []string            `json:"recommendations,omitempty"`
	ReasonedBy      string              `json:"reasonedBy"` // "llm:<provider>" or "rule-based"
}

// Reasoner turns a run's diff-stage summaries into a severity-tagged
// analysis. An LLM-backed implementation and a deterministic rule-based
// implementation share this interface and output shape, so the orchestrator
// never has to know which one produced a given Analysis.
type Reasoner interface {
	Analyze(input AnalysisInput) (Analysis, error)
	Name() string
}

// overallFromCategories derives the overall Analysis fields from a set of
// already-scored CategoryAnalysis records. Shared by both reasoner
// implementations so "overall = worst category, pass = all categories pass"
// is defined exactly once.
func overallFromCategories(categories []CategoryAnalysis) (Severity, bool, float64) {
	if len(categories) == 0 {
		return SeverityNone, true, 1.0
	}

	var severities []Severity
	pass := true
	var confidenceSum float64
	for _, c := range categories {
		severities = append(severities, c.Severity)
		if !c.Pass {
			pass = false
		}
		confidenceSum += c.Confidence
	}

	return maxSeverity(severities...), pass, confidenceSum / float64(len(categories))
}
