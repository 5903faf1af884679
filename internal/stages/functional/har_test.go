package functional

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/parityguard/internal/browser"
)

func TestBuildHARPairsRequestsAndResponsesByPosition(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	requests := []browser.NetworkRequest{
		{URL: "https://example.com/", Method: "GET", Timestamp: now},
		{URL: "https://example.com/style.css", Method: "GET", Timestamp: now},
	}
	responses := []browser.NetworkResponse{
		{URL: "https://example.com/", Status: 200, StatusText: "OK"},
	}

	har := BuildHAR(requests, responses)

	assert.Equal(t, "1.2", har.Log.Version)
	assert.Len(t, har.Log.Entries, 2)
	assert.Equal(t, 200, har.Log.Entries[0].Response.Status)
	assert.Equal(t, 0, har.Log.Entries[1].Response.Status)
}

func TestBuildHARFallsBackToEmptyEntriesWhenNoRequests(t *testing.T) {
	har := BuildHAR(nil, nil)

	assert.Equal(t, "1.2", har.Log.Version)
	assert.Empty(t, har.Log.Entries)
	assert.NotNil(t, har.Log.Entries)
}
