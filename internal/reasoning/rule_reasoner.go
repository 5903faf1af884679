package reasoning

import "fmt"

// RuleReasoner is the deterministic fallback used when no LLM provider is
// configured, or when the LLM reasoner's call fails. It never errors: its
// whole purpose is to be the thing that cannot fail.
type RuleReasoner struct{}

func NewRuleReasoner() *RuleReasoner {
	return &RuleReasoner{}
}

func (r *RuleReasoner) Name() string {
	return "rule-based"
}

func (r *RuleReasoner) Analyze(input AnalysisInput) (Analysis, error) {
	var categories []CategoryAnalysis
	for _, summary := range input.Categories {
		if !summary.Available {
			continue
		}
		categories = append(categories, r.analyzeCategory(summary))
	}

	severity, pass, confidence := overallFromCategories(categories)

	return Analysis{
		Categories:      categories,
		Severity:        severity,
		Confidence:      confidence,
		Pass:            pass,
		Explanation:     r.overallExplanation(severity, categories),
		Recommendations: r.recommendations(categories),
		ReasonedBy:      "rule-based",
	}, nil
}

func (r *RuleReasoner) analyzeCategory(s CategorySummary) CategoryAnalysis {
	switch s.Category {
	case "visual":
		return r.analyzeVisual(s)
	case "functional":
		return r.analyzeFunctional(s)
	case "data":
		return r.analyzeData(s)
	default:
		return r.analyzeGeneric(s)
	}
}

// analyzeVisual: criticalIssues>0 -> critical; else bucket by average diff %.
func (r *RuleReasoner) analyzeVisual(s CategorySummary) CategoryAnalysis {
	severity := SeverityNone
	if s.CriticalCount > 0 {
		severity = SeverityCritical
	} else {
		avgDiff := s.Metrics["averageDiffPercent"]
		switch {
		case avgDiff >= 20:
			severity = SeverityHigh
		case avgDiff >= 10:
			severity = SeverityMedium
		case avgDiff >= 2:
			severity = SeverityLow
		}
	}

	return CategoryAnalysis{
		Category:    "visual",
		Severity:    severity,
		Confidence:  0.75,
		Pass:        severity.Rank() <= SeverityLow.Rank(),
		Explanation: fmt.Sprintf("%d of %d pages had visual differences (%d critical)", s.IssuesFound, s.PagesTested, s.CriticalCount),
		KeyFindings: s.TopFindings,
	}
}

// analyzeFunctional: broken links + JS errors bucketed at 0/1/5/10/20.
func (r *RuleReasoner) analyzeFunctional(s CategorySummary) CategoryAnalysis {
	count := s.IssuesFound
	severity := bucketByCount(count, 1, 5, 10, 20)

	return CategoryAnalysis{
		Category:    "functional",
		Severity:    severity,
		Confidence:  0.8,
		Pass:        severity.Rank() <= SeverityLow.Rank(),
		Explanation: fmt.Sprintf("%d functional regression(s) found across %d pages (%d critical)", count, s.PagesTested, s.CriticalCount),
		KeyFindings: s.TopFindings,
	}
}

// analyzeData: criticalMismatches or totalFieldDiffs bucketed at 0/20/50.
func (r *RuleReasoner) analyzeData(s CategorySummary) CategoryAnalysis {
	total := int(s.Metrics["totalFieldDiffs"])
	var severity Severity
	if s.CriticalCount > 0 {
		severity = SeverityCritical
	} else {
		switch {
		case total >= 50:
			severity = SeverityHigh
		case total >= 20:
			severity = SeverityMedium
		case total > 0:
			severity = SeverityLow
		default:
			severity = SeverityNone
		}
	}

	return CategoryAnalysis{
		Category:    "data",
		Severity:    severity,
		Confidence:  0.75,
		Pass:        severity.Rank() <= SeverityLow.Rank(),
		Explanation: fmt.Sprintf("%d data field difference(s) found across %d pages (%d critical)", total, s.PagesTested, s.CriticalCount),
		KeyFindings: s.TopFindings,
	}
}

func (r *RuleReasoner) analyzeGeneric(s CategorySummary) CategoryAnalysis {
	severity := bucketByCount(s.IssuesFound, 1, 5, 10, 20)
	return CategoryAnalysis{
		Category:    s.Category,
		Severity:    severity,
		Confidence:  0.7,
		Pass:        severity.Rank() <= SeverityLow.Rank(),
		Explanation: fmt.Sprintf("%d issue(s) found across %d pages", s.IssuesFound, s.PagesTested),
		KeyFindings: s.TopFindings,
	}
}

// bucketByCount maps a count to none/low/medium/high/critical given four
// ascending thresholds: [0,low) -> none, [low,medium) -> low,
// [medium,high) -> medium, [high,critical) -> high, else critical.
func bucketByCount(count, low, medium, high, critical int) Severity {
	switch {
	case count <= 0:
		return SeverityNone
	case count < low:
		return SeverityNone
	case count < medium:
		return SeverityLow
	case count < high:
		return SeverityMedium
	case count < critical:
		return SeverityHigh
	default:
		return SeverityCritical
	}
}

func (r *RuleReasoner) overallExplanation(severity Severity, categories []CategoryAnalysis) string {
	if len(categories) == 0 {
		return "no diff categories produced data for this run"
	}
	return fmt.Sprintf("overall severity %s derived from the worst of %d category result(s)", severity, len(categories))
}

func (r *RuleReasoner) recommendations(categories []CategoryAnalysis) []string {
	var recs []string
	for _, c := range categories {
		if c.Severity.Rank() >= SeverityMedium.Rank() {
			recs = append(recs, fmt.Sprintf("investigate %s regressions before promoting the candidate", c.Category))
		}
	}
	return recs
}
