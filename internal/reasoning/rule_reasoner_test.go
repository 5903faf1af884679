package reasoning

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRuleReasonerVisualCriticalOverridesAverage(t *testing.T) {
	r := NewRuleReasoner()
	analysis, err := r.Analyze(AnalysisInput{
		Categories: []CategorySummary{
			{Category: "visual", Available: true, PagesTested: 10, IssuesFound: 1, CriticalCount: 1, Metrics: map[string]float64{"averageDiffPercent": 0.5}},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, SeverityCritical, analysis.Categories[0].Severity)
	assert.Equal(t, SeverityCritical, analysis.Severity)
	assert.False(t, analysis.Pass)
}

func TestRuleReasonerFunctionalBuckets(t *testing.T) {
	r := NewRuleReasoner()

	cases := []struct {
		count    int
		expected Severity
	}{
		{0, SeverityNone},
		{1, SeverityLow},
		{4, SeverityLow},
		{5, SeverityMedium},
		{9, SeverityMedium},
		{10, SeverityHigh},
		{19, SeverityHigh},
		{20, SeverityCritical},
	}

	for _, tc := range cases {
		analysis, err := r.Analyze(AnalysisInput{
			Categories: []CategorySummary{
				{Category: "functional", Available: true, PagesTested: 5, IssuesFound: tc.count},
			},
		})
		assert.NoError(t, err)
		assert.Equalf(t, tc.expected, analysis.Categories[0].Severity, "count=%d", tc.count)
	}
}

func TestRuleReasonerDataCriticalMismatchOverridesCount(t *testing.T) {
	r := NewRuleReasoner()
	analysis, err := r.Analyze(AnalysisInput{
		Categories: []CategorySummary{
			{Category: "data", Available: true, PagesTested: 3, IssuesFound: 1, CriticalCount: 1},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, SeverityCritical, analysis.Categories[0].Severity)
}

func TestRuleReasonerUnavailableCategoryIsSkipped(t *testing.T) {
	r := NewRuleReasoner()
	analysis, err := r.Analyze(AnalysisInput{
		Categories: []CategorySummary{
			{Category: "visual", Available: false},
			{Category: "functional", Available: true, IssuesFound: 0},
		},
	})
	assert.NoError(t, err)
	assert.Len(t, analysis.Categories, 1)
	assert.Equal(t, "functional", analysis.Categories[0].Category)
}

func TestRuleReasonerOverallIsWorstCategory(t *testing.T) {
	r := NewRuleReasoner()
	analysis, err := r.Analyze(AnalysisInput{
		Categories: []CategorySummary{
			{Category: "visual", Available: true, Metrics: map[string]float64{"averageDiffPercent": 1}},
			{Category: "functional", Available: true, IssuesFound: 20},
		},
	})
	assert.NoError(t, err)
	assert.Equal(t, SeverityCritical, analysis.Severity)
}

func TestRuleReasonerNoCategoriesPasses(t *testing.T) {
	r := NewRuleReasoner()
	analysis, err := r.Analyze(AnalysisInput{})
	assert.NoError(t, err)
	assert.True(t, analysis.Pass)
	assert.Equal(t, SeverityNone, analysis.Severity)
}
