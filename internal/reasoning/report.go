package reasoning

import (
	"fmt"
	"strings"
	"time"
)

// severityScore maps a Severity to its 0-100 risk-score contribution.
var severityScore = map[Severity]int{
	SeverityNone:     0,
	SeverityLow:      25,
	SeverityMedium:   50,
	SeverityHigh:     75,
	SeverityCritical: 100,
}

// RiskScore holds the per-category and overall 0-100 risk figures.
type RiskScore struct {
	Overall    float64            `json:"overall"`
	ByCategory map[string]float64 `json:"byCategory"`
}

// ComputeRiskScore maps each category's severity to {0,25,50,75,100} and
// averages across present categories for the overall figure.
func ComputeRiskScore(categories []CategoryAnalysis) RiskScore {
	byCategory := make(map[string]float64, len(categories))
	var sum float64
	for _, c := range categories {
		score := float64(severityScore[c.Severity])
		byCategory[c.Category] = score
		sum += score
	}

	overall := 0.0
	if len(categories) > 0 {
		overall = sum / float64(len(categories))
	}

	return RiskScore{Overall: overall, ByCategory: byCategory}
}

// TechnicalFinding is one entry in the report's technical findings list,
// emitted for each category that failed its reasoner verdict.
type TechnicalFinding struct {
	Title          string   `json:"title"`
	Severity       Severity `json:"severity"`
	Impact         string   `json:"impact"`
	Recommendation string   `json:"recommendation"`
	AffectedPages  []string `json:"affectedPages,omitempty"`
	Evidence       string   `json:"evidence"`
}

// BuildTechnicalFindings produces one finding per failing category.
func BuildTechnicalFindings(categories []CategoryAnalysis, affectedPagesByCategory map[string][]string) []TechnicalFinding {
	var findings []TechnicalFinding
	for _, c := range categories {
		if c.Pass {
			continue
		}
		findings = append(findings, TechnicalFinding{
			Title:          fmt.Sprintf("%s regressions detected", c.Category),
			Severity:       c.Severity,
			Impact:         c.Explanation,
			Recommendation: recommendationFor(c),
			AffectedPages:  affectedPagesByCategory[c.Category],
			Evidence:       joinFindings(c.KeyFindings),
		})
	}
	return findings
}

func recommendationFor(c CategoryAnalysis) string {
	if len(c.KeyFindings) > 0 {
		return fmt.Sprintf("review and resolve: %s", c.KeyFindings[0])
	}
	return fmt.Sprintf("review %s diff artifacts for this run before promoting the candidate", c.Category)
}

func joinFindings(findings []string) string {
	if len(findings) == 0 {
		return "see category artifacts for detail"
	}
	out := findings[0]
	for _, f := range findings[1:] {
		out += "; " + f
	}
	return out
}

// ExecutiveMetrics are the headline numbers shown at the top of a report.
type ExecutiveMetrics struct {
	PagesTested    int     `json:"pagesTested"`
	IssuesFound    int     `json:"issuesFound"`
	CriticalIssues int     `json:"criticalIssues"`
	PassRate       float64 `json:"passRate"`
}

// Decision is the Go/No-Go verdict surfaced to a migration owner.
type Decision string

const (
	DecisionGo          Decision = "go"
	DecisionNoGo        Decision = "no-go"
	DecisionConditional Decision = "conditional"
)

// ExecutiveSummary is the report's top-level narrative.
type ExecutiveSummary struct {
	Metrics  ExecutiveMetrics `json:"metrics"`
	Decision Decision         `json:"decision"`
	Narrative string          `json:"narrative"`
}

// BuildExecutiveSummary applies the Go/No-Go rule: go if overall risk < 50
// and no critical category; no-go if overall risk >= 75 or the reasoner's
// overall verdict failed; conditional otherwise.
func BuildExecutiveSummary(metrics ExecutiveMetrics, overallRisk float64, overallSeverity Severity, reasonerPass bool) ExecutiveSummary {
	var decision Decision
	switch {
	case overallRisk >= 75 || !reasonerPass:
		decision = DecisionNoGo
	case overallRisk < 50 && overallSeverity != SeverityCritical:
		decision = DecisionGo
	default:
		decision = DecisionConditional
	}

	narrative := fmt.Sprintf(
		"%d page(s) tested, %d issue(s) found (%d critical), %.0f%% pass rate. Overall risk score %.0f/100 -> %s.",
		metrics.PagesTested, metrics.IssuesFound, metrics.CriticalIssues, metrics.PassRate*100, overallRisk, decision,
	)

	return ExecutiveSummary{Metrics: metrics, Decision: decision, Narrative: narrative}
}

// Report is the full document the Report stage emits for a run, combining
// the reasoner's per-category analysis with the synthesizer's risk score,
// technical findings, and executive summary.
type Report struct {
	RunID             string             `json:"runId"`
	JobName           string             `json:"jobName"`
	GeneratedAt       string             `json:"generatedAt"`
	Categories        []CategoryAnalysis `json:"categories"`
	RiskScore         RiskScore          `json:"riskScore"`
	TechnicalFindings []TechnicalFinding `json:"technicalFindings"`
	ExecutiveSummary  ExecutiveSummary   `json:"executiveSummary"`
}

// BuildReport assembles a run's full Report: risk score averaged across
// the reasoner's categories, one technical finding per failing category,
// and an executive summary carrying the Go/No-Go decision (§4.9).
// pagesTested and summaries come from the diff stages directly since
// CategoryAnalysis itself carries no page counts.
func BuildReport(runID, jobName string, generatedAt time.Time, pagesTested int, summaries []CategorySummary, analysis Analysis) Report {
	risk := ComputeRiskScore(analysis.Categories)
	findings := BuildTechnicalFindings(analysis.Categories, nil)

	var issuesFound, criticalIssues int
	for _, s := range summaries {
		issuesFound += s.IssuesFound
		criticalIssues += s.CriticalCount
	}

	passing := 0
	for _, c := range analysis.Categories {
		if c.Pass {
			passing++
		}
	}
	passRate := 1.0
	if len(analysis.Categories) > 0 {
		passRate = float64(passing) / float64(len(analysis.Categories))
	}

	metrics := ExecutiveMetrics{
		PagesTested:    pagesTested,
		IssuesFound:    issuesFound,
		CriticalIssues: criticalIssues,
		PassRate:       passRate,
	}
	summary := BuildExecutiveSummary(metrics, risk.Overall, analysis.Severity, analysis.Pass)

	return Report{
		RunID:             runID,
		JobName:           jobName,
		GeneratedAt:       generatedAt.UTC().Format(time.RFC3339),
		Categories:        analysis.Categories,
		RiskScore:         risk,
		TechnicalFindings: findings,
		ExecutiveSummary:  summary,
	}
}

// RenderMarkdown renders the report as a human-readable Markdown document,
// the companion to the JSON document required alongside it (§4.9, §8).
func (r Report) RenderMarkdown() string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Migration Parity Report: %s\n\n", r.JobName)
	fmt.Fprintf(&b, "Run `%s` generated %s.\n\n", r.RunID, r.GeneratedAt)

	fmt.Fprintf(&b, "## Executive Summary\n\n")
	fmt.Fprintf(&b, "**Decision: %s**\n\n", strings.ToUpper(string(r.ExecutiveSummary.Decision)))
	fmt.Fprintf(&b, "%s\n\n", r.ExecutiveSummary.Narrative)
	fmt.Fprintf(&b, "| Metric | Value |\n|---|---|\n")
	fmt.Fprintf(&b, "| Pages tested | %d |\n", r.ExecutiveSummary.Metrics.PagesTested)
	fmt.Fprintf(&b, "| Issues found | %d |\n", r.ExecutiveSummary.Metrics.IssuesFound)
	fmt.Fprintf(&b, "| Critical issues | %d |\n", r.ExecutiveSummary.Metrics.CriticalIssues)
	fmt.Fprintf(&b, "| Pass rate | %.0f%% |\n\n", r.ExecutiveSummary.Metrics.PassRate*100)

	fmt.Fprintf(&b, "## Risk Score\n\n")
	fmt.Fprintf(&b, "Overall: **%.0f/100**\n\n", r.RiskScore.Overall)
	if len(r.RiskScore.ByCategory) > 0 {
		fmt.Fprintf(&b, "| Category | Score |\n|---|---|\n")
		for _, c := range r.Categories {
			fmt.Fprintf(&b, "| %s | %.0f |\n", c.Category, r.RiskScore.ByCategory[c.Category])
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Technical Findings\n\n")
	if len(r.TechnicalFindings) == 0 {
		b.WriteString("No regressions found in any tested category.\n\n")
	} else {
		for _, f := range r.TechnicalFindings {
			fmt.Fprintf(&b, "### %s (%s)\n\n", f.Title, f.Severity)
			fmt.Fprintf(&b, "%s\n\n", f.Impact)
			fmt.Fprintf(&b, "- Recommendation: %s\n", f.Recommendation)
			if len(f.AffectedPages) > 0 {
				fmt.Fprintf(&b, "- Affected pages: %s\n", strings.Join(f.AffectedPages, ", "))
			}
			fmt.Fprintf(&b, "- Evidence: %s\n\n", f.Evidence)
		}
	}

	fmt.Fprintf(&b, "## Category Detail\n\n")
	for _, c := range r.Categories {
		fmt.Fprintf(&b, "- **%s**: severity=%s pass=%t confidence=%.2f: %s\n", c.Category, c.Severity, c.Pass, c.Confidence, c.Explanation)
	}

	return b.String()
}
