package functional

import (
	"time"

	"github.com/ternarybob/parityguard/internal/browser"
)

// HAR is a minimal HAR-1.2-shaped document: only the fields the rich
// capture path populates plus the empty-entries fallback §4.7 requires
// when that path fails.
type HAR struct {
	Log HARLog `json:"log"`
}

type HARLog struct {
	Version string     `json:"version"`
	Creator HARCreator `json:"creator"`
	Entries []HAREntry `json:"entries"`
}

type HARCreator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type HAREntry struct {
	StartedDateTime string      `json:"startedDateTime"`
	Time            float64     `json:"time"`
	Request         HARRequest  `json:"request"`
	Response        HARResponse `json:"response"`
}

type HARRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

type HARResponse struct {
	Status     int    `json:"status"`
	StatusText string `json:"statusText"`
}

// BuildHAR pairs observed requests and responses by position (chromedp
// delivers them in the order they occur, which is all §4.7 asks for) and
// falls back to an empty-entries HAR if requests is empty, matching the
// "minimal valid HAR" fallback path.
func BuildHAR(requests []browser.NetworkRequest, responses []browser.NetworkResponse) HAR {
	har := HAR{Log: HARLog{
		Version: "1.2",
		Creator: HARCreator{Name: "parityguard", Version: "1.0"},
		Entries: []HAREntry{},
	}}

	for i, req := range requests {
		entry := HAREntry{
			StartedDateTime: req.Timestamp.Format(time.RFC3339),
			Request:         HARRequest{Method: req.Method, URL: req.URL},
		}
		if i < len(responses) {
			entry.Response = HARResponse{Status: responses[i].Status, StatusText: responses[i].StatusText}
		}
		har.Log.Entries = append(har.Log.Entries, entry)
	}

	return har
}
