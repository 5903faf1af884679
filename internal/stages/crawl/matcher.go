package crawl

import (
	"strings"

	"github.com/ternarybob/parityguard/internal/models"
)

// MatchPages pairs baseline and candidate pages per §4.4's three ordered
// rules, removing each matched page from further consideration so a page
// is never matched twice. pageMap entries are consumed first.
func MatchPages(baseline, candidate []models.PageDescriptor, pageMap models.PageMap) ([]models.MatchedPage, []models.PageDescriptor, []models.PageDescriptor) {
	baselineRemaining := append([]models.PageDescriptor(nil), baseline...)
	candidateRemaining := append([]models.PageDescriptor(nil), candidate...)

	var matched []models.MatchedPage

	// Rule 1: explicit PageMap pairs.
	for _, entry := range pageMap {
		bi := findByPath(baselineRemaining, entry.BaselinePath)
		ci := findByPath(candidateRemaining, entry.CandidatePath)
		if bi < 0 || ci < 0 {
			continue
		}
		matched = append(matched, buildMatch(baselineRemaining[bi], candidateRemaining[ci], 1.0, "explicit"))
		baselineRemaining = removeAt(baselineRemaining, bi)
		candidateRemaining = removeAt(candidateRemaining, ci)
	}

	// Rule 2: exact normalized-path equality.
	baselineRemaining, candidateRemaining, matched = matchByKey(baselineRemaining, candidateRemaining, matched, 0.9, "path", func(p models.PageDescriptor) string {
		return p.Path
	})

	// Rule 3: exact title equality (case-insensitive, trimmed).
	baselineRemaining, candidateRemaining, matched = matchByKey(baselineRemaining, candidateRemaining, matched, 0.7, "title", func(p models.PageDescriptor) string {
		return strings.ToLower(strings.TrimSpace(p.Title))
	})

	return matched, baselineRemaining, candidateRemaining
}

// matchByKey walks baselineRemaining in discovery order (stable tie-break
// per §4.4) and, for each, picks the earliest-discovered candidate whose
// key matches.
func matchByKey(baselineRemaining, candidateRemaining []models.PageDescriptor, matched []models.MatchedPage, confidence float64, reason string, key func(models.PageDescriptor) string) ([]models.PageDescriptor, []models.PageDescriptor, []models.MatchedPage) {
	var stillBaseline []models.PageDescriptor
	for _, b := range baselineRemaining {
		bKey := key(b)
		if bKey == "" {
			stillBaseline = append(stillBaseline, b)
			continue
		}
		ci := -1
		for i, c := range candidateRemaining {
			if key(c) == bKey {
				ci = i
				break
			}
		}
		if ci < 0 {
			stillBaseline = append(stillBaseline, b)
			continue
		}
		matched = append(matched, buildMatch(b, candidateRemaining[ci], confidence, reason))
		candidateRemaining = removeAt(candidateRemaining, ci)
	}
	return stillBaseline, candidateRemaining, matched
}

func buildMatch(b, c models.PageDescriptor, confidence float64, reason string) models.MatchedPage {
	return models.MatchedPage{
		BaselinePath:   b.Path,
		BaselineURL:    b.URL,
		BaselineTitle:  b.Title,
		CandidatePath:  c.Path,
		CandidateURL:   c.URL,
		CandidateTitle: c.Title,
		Confidence:     confidence,
		Reason:         reason,
	}
}

func findByPath(pages []models.PageDescriptor, path string) int {
	for i, p := range pages {
		if p.Path == path {
			return i
		}
	}
	return -1
}

func removeAt(pages []models.PageDescriptor, i int) []models.PageDescriptor {
	out := make([]models.PageDescriptor, 0, len(pages)-1)
	out = append(out, pages[:i]...)
	out = append(out, pages[i+1:]...)
	return out
}
