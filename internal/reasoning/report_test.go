package reasoning

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeRiskScoreAverages(t *testing.T) {
	score := ComputeRiskScore([]CategoryAnalysis{
		{Category: "visual", Severity: SeverityHigh},
		{Category: "functional", Severity: SeverityNone},
	})
	assert.Equal(t, 37.5, score.Overall)
	assert.Equal(t, 75.0, score.ByCategory["visual"])
	assert.Equal(t, 0.0, score.ByCategory["functional"])
}

func TestBuildTechnicalFindingsOnlyFailing(t *testing.T) {
	findings := BuildTechnicalFindings([]CategoryAnalysis{
		{Category: "visual", Severity: SeverityHigh, Pass: false, Explanation: "layout shifted", KeyFindings: []string{"hero image missing"}},
		{Category: "data", Severity: SeverityNone, Pass: true},
	}, map[string][]string{"visual": {"/home"}})

	assert.Len(t, findings, 1)
	assert.Equal(t, "/home", findings[0].AffectedPages[0])
	assert.Contains(t, findings[0].Recommendation, "hero image missing")
}

func TestBuildExecutiveSummaryGoDecision(t *testing.T) {
	summary := BuildExecutiveSummary(ExecutiveMetrics{PagesTested: 10, IssuesFound: 1, PassRate: 0.9}, 25, SeverityLow, true)
	assert.Equal(t, DecisionGo, summary.Decision)
}

func TestBuildExecutiveSummaryNoGoOnHighRisk(t *testing.T) {
	summary := BuildExecutiveSummary(ExecutiveMetrics{}, 80, SeverityCritical, true)
	assert.Equal(t, DecisionNoGo, summary.Decision)
}

func TestBuildExecutiveSummaryNoGoOnReasonerFail(t *testing.T) {
	summary := BuildExecutiveSummary(ExecutiveMetrics{}, 10, SeverityLow, false)
	assert.Equal(t, DecisionNoGo, summary.Decision)
}

func TestBuildExecutiveSummaryConditional(t *testing.T) {
	summary := BuildExecutiveSummary(ExecutiveMetrics{}, 60, SeverityMedium, true)
	assert.Equal(t, DecisionConditional, summary.Decision)
}

func TestBuildReportAssemblesNoGoDocument(t *testing.T) {
	analysis := Analysis{
		Categories: []CategoryAnalysis{
			{Category: "visual", Severity: SeverityCritical, Pass: false, Explanation: "hero banner missing", KeyFindings: []string{"hero image missing"}},
			{Category: "functional", Severity: SeverityNone, Pass: true},
		},
		Severity: SeverityCritical,
		Pass:     false,
	}
	summaries := []CategorySummary{
		{Category: "visual", Available: true, PagesTested: 5, IssuesFound: 3, CriticalCount: 1},
		{Category: "functional", Available: true, PagesTested: 5, IssuesFound: 0},
	}

	report := BuildReport("run-1", "acme-migration", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), 5, summaries, analysis)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 100.0, report.RiskScore.ByCategory["visual"])
	assert.Equal(t, 50.0, report.RiskScore.Overall)
	assert.Len(t, report.TechnicalFindings, 1)
	assert.Equal(t, DecisionNoGo, report.ExecutiveSummary.Decision)
	assert.Equal(t, 5, report.ExecutiveSummary.Metrics.PagesTested)
	assert.Equal(t, 3, report.ExecutiveSummary.Metrics.IssuesFound)
	assert.Equal(t, 1, report.ExecutiveSummary.Metrics.CriticalIssues)

	md := report.RenderMarkdown()
	assert.Contains(t, md, "NO-GO")
	assert.Contains(t, md, "acme-migration")
	assert.Contains(t, md, "hero banner missing")
}
