package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/parityguard/internal/models"
)

func TestMatchPagesExplicitPageMapTakesPriority(t *testing.T) {
	baseline := []models.PageDescriptor{
		{Path: "/old-home", Title: "Home", URL: "https://a.com/old-home", Order: 0},
	}
	candidate := []models.PageDescriptor{
		{Path: "/new-home", Title: "Home", URL: "https://b.com/new-home", Order: 0},
	}
	pageMap := models.PageMap{{BaselinePath: "/old-home", CandidatePath: "/new-home"}}

	matched, unmatchedB, unmatchedC := MatchPages(baseline, candidate, pageMap)

	assert.Len(t, matched, 1)
	assert.Equal(t, "explicit", matched[0].Reason)
	assert.Equal(t, 1.0, matched[0].Confidence)
	assert.Empty(t, unmatchedB)
	assert.Empty(t, unmatchedC)
}

func TestMatchPagesByExactPath(t *testing.T) {
	baseline := []models.PageDescriptor{{Path: "/about", Title: "About Us", Order: 0}}
	candidate := []models.PageDescriptor{{Path: "/about", Title: "About", Order: 0}}

	matched, _, _ := MatchPages(baseline, candidate, nil)

	require := assert.New(t)
	require.Len(matched, 1)
	require.Equal("path", matched[0].Reason)
	require.Equal(0.9, matched[0].Confidence)
}

func TestMatchPagesByTitleWhenPathsDiffer(t *testing.T) {
	baseline := []models.PageDescriptor{{Path: "/old/contact", Title: "Contact Us", Order: 0}}
	candidate := []models.PageDescriptor{{Path: "/new/contact-us", Title: "contact us", Order: 0}}

	matched, _, _ := MatchPages(baseline, candidate, nil)

	assert.Len(t, matched, 1)
	assert.Equal(t, "title", matched[0].Reason)
	assert.Equal(t, 0.7, matched[0].Confidence)
}

func TestMatchPagesStableTieBreakPicksEarliestDiscoveredCandidate(t *testing.T) {
	baseline := []models.PageDescriptor{{Path: "/p", Title: "Page", Order: 0}}
	candidate := []models.PageDescriptor{
		{Path: "/p", Title: "Other", Order: 0},
		{Path: "/p", Title: "Other2", Order: 1},
	}

	matched, _, unmatchedCandidate := MatchPages(baseline, candidate, nil)

	assert.Len(t, matched, 1)
	assert.Equal(t, "Other", matched[0].CandidateTitle)
	assert.Len(t, unmatchedCandidate, 1)
	assert.Equal(t, "Other2", unmatchedCandidate[0].Title)
}

func TestMatchPagesLeavesUnmatchedOnBothSides(t *testing.T) {
	baseline := []models.PageDescriptor{
		{Path: "/keep", Title: "Keep", Order: 0},
		{Path: "/gone", Title: "Gone Baseline", Order: 1},
	}
	candidate := []models.PageDescriptor{
		{Path: "/keep", Title: "Keep", Order: 0},
		{Path: "/new-only", Title: "New Only", Order: 1},
	}

	matched, unmatchedB, unmatchedC := MatchPages(baseline, candidate, nil)

	assert.Len(t, matched, 1)
	assert.Len(t, unmatchedB, 1)
	assert.Equal(t, "/gone", unmatchedB[0].Path)
	assert.Len(t, unmatchedC, 1)
	assert.Equal(t, "/new-only", unmatchedC[0].Path)
}
