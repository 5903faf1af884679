// Package functional implements the Functional QA Stage (SPEC_FULL.md
// §4.7): form-filling, broken-link detection, JS-error capture, and HAR
// output for each matched page on both sides.
package functional

import "strings"

// FillValueFor returns the heuristic fill value for a text input, keyed by
// the field's name/id/type/placeholder (whichever the caller has
// available), per §4.7's email/name/message/otherwise rules.
func FillValueFor(fieldHint string) string {
	hint := strings.ToLower(fieldHint)
	switch {
	case strings.Contains(hint, "email"):
		return "test@example.com"
	case strings.Contains(hint, "name"):
		return "Test User"
	case strings.Contains(hint, "message") || strings.Contains(hint, "comment"):
		return "Test message"
	default:
		return "test"
	}
}

// SubmitOutcome classifies a form submission attempt.
type SubmitOutcome string

const (
	SubmitSuccess            SubmitOutcome = "success"
	SubmitSubmittedNoResponse SubmitOutcome = "submitted-no-response"
	SubmitError              SubmitOutcome = "error"
)

// ClassifySubmit maps a (status, urlChanged, err) observation to a
// SubmitOutcome per §4.7: a sub-500 response within the timeout, or a URL
// change within the 1s grace period, both count as success.
func ClassifySubmit(status int, urlChanged bool, err error) SubmitOutcome {
	if err != nil {
		return SubmitError
	}
	if urlChanged {
		return SubmitSuccess
	}
	if status > 0 && status < 500 {
		return SubmitSuccess
	}
	return SubmitSubmittedNoResponse
}

// isSkippableLinkScheme mirrors the crawl stage's skip list; a broken-link
// probe never attempts navigation to these.
func isSkippableLinkScheme(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:", "#"} {
		if strings.HasPrefix(h, prefix) {
			return true
		}
	}
	return h == ""
}
