package data

import (
	"fmt"
	"sort"
	"strings"
)

// PageStatus is the page-level data-integrity verdict.
type PageStatus string

const (
	StatusMatch    PageStatus = "match"
	StatusPartial  PageStatus = "partial"
	StatusMismatch PageStatus = "mismatch"
)

// CellDiffStatus classifies one table cell comparison.
type CellDiffStatus string

const (
	CellMatch            CellDiffStatus = "match"
	CellMismatch         CellDiffStatus = "mismatch"
	CellMissingBaseline  CellDiffStatus = "missing_baseline"
	CellMissingCandidate CellDiffStatus = "missing_candidate"
	CellChanged          CellDiffStatus = "changed"
)

// JSONDiffStatus classifies one recursive JSON comparison node.
type JSONDiffStatus string

const (
	JSONMissingBaseline  JSONDiffStatus = "missing_baseline"
	JSONMissingCandidate JSONDiffStatus = "missing_candidate"
	JSONMismatch         JSONDiffStatus = "mismatch" // type mismatch
	JSONChanged          JSONDiffStatus = "changed"  // differing primitive value
)

// TableCellDiff is one mismatching cell within a TableDiff.
type TableCellDiff struct {
	Row, Col int
	Status   CellDiffStatus
	Baseline string
	Candidate string
}

// TableDiff is the comparison result for one matched pair of tables.
type TableDiff struct {
	HeaderSizeMismatch bool
	Cells              []TableCellDiff
}

// PriceDiff is the comparison result for one matched pair of price elements.
type PriceDiff struct {
	Selector        string
	AmountChanged   bool
	CurrencyChanged bool
	Baseline        PriceElement
	Candidate       PriceElement
}

// JSONDiffEntry is one path-level difference found by DiffJSON.
type JSONDiffEntry struct {
	Path   string
	Status JSONDiffStatus
}

// JaccardSimilarity scores two texts by tokenizing on whitespace, lower
// casing, and computing |intersection|/|union| over the resulting word
// sets. Two empty texts are considered identical (similarity 1.0).
func JaccardSimilarity(a, b string) (similarity float64, added, removed []string) {
	setA := tokenize(a)
	setB := tokenize(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0, nil, nil
	}

	intersection, union := 0, 0
	for token := range union_(setA, setB) {
		_, inA := setA[token]
		_, inB := setB[token]
		union++
		if inA && inB {
			intersection++
		} else if inB {
			added = append(added, token)
		} else {
			removed = append(removed, token)
		}
	}

	sort.Strings(added)
	sort.Strings(removed)

	if union == 0 {
		return 1.0, added, removed
	}
	return float64(intersection) / float64(union), added, removed
}

func tokenize(text string) map[string]bool {
	set := map[string]bool{}
	for _, word := range strings.Fields(strings.ToLower(text)) {
		set[word] = true
	}
	return set
}

func union_(a, b map[string]bool) map[string]bool {
	out := map[string]bool{}
	for k := range a {
		out[k] = true
	}
	for k := range b {
		out[k] = true
	}
	return out
}

// DiffTables positionally compares two tables' headers and body cells.
func DiffTables(baseline, candidate Table) TableDiff {
	diff := TableDiff{HeaderSizeMismatch: len(baseline.Headers) != len(candidate.Headers)}

	rowCount := len(baseline.Rows)
	if len(candidate.Rows) > rowCount {
		rowCount = len(candidate.Rows)
	}

	for r := 0; r < rowCount; r++ {
		var baseRow, candRow []string
		if r < len(baseline.Rows) {
			baseRow = baseline.Rows[r]
		}
		if r < len(candidate.Rows) {
			candRow = candidate.Rows[r]
		}

		colCount := len(baseRow)
		if len(candRow) > colCount {
			colCount = len(candRow)
		}

		for c := 0; c < colCount; c++ {
			var baseCell, candCell string
			haveBase := c < len(baseRow)
			haveCand := c < len(candRow)
			if haveBase {
				baseCell = baseRow[c]
			}
			if haveCand {
				candCell = candRow[c]
			}

			status := cellStatus(haveBase, haveCand, baseCell, candCell)
			if status == CellMatch {
				continue
			}
			diff.Cells = append(diff.Cells, TableCellDiff{Row: r, Col: c, Status: status, Baseline: baseCell, Candidate: candCell})
		}
	}

	return diff
}

func cellStatus(haveBase, haveCand bool, baseCell, candCell string) CellDiffStatus {
	switch {
	case !haveBase && haveCand:
		return CellMissingBaseline
	case haveBase && !haveCand:
		return CellMissingCandidate
	case baseCell == candCell:
		return CellMatch
	default:
		return CellChanged
	}
}

// DiffPrices matches price elements by selector (the first unmatched
// baseline/candidate pair sharing a selector) and compares amount and
// currency independently.
func DiffPrices(baseline, candidate []PriceElement) []PriceDiff {
	candidateBySelector := map[string][]PriceElement{}
	for _, p := range candidate {
		candidateBySelector[p.Selector] = append(candidateBySelector[p.Selector], p)
	}

	var diffs []PriceDiff
	for _, b := range baseline {
		pool := candidateBySelector[b.Selector]
		if len(pool) == 0 {
			continue
		}
		c := pool[0]
		candidateBySelector[b.Selector] = pool[1:]

		if b.Amount == c.Amount && b.Currency == c.Currency {
			continue
		}
		diffs = append(diffs, PriceDiff{
			Selector:        b.Selector,
			AmountChanged:   b.Amount != c.Amount,
			CurrencyChanged: b.Currency != c.Currency,
			Baseline:        b,
			Candidate:       c,
		})
	}

	return diffs
}

// DiffJSON recursively compares two decoded JSON values (as produced by
// encoding/json.Unmarshal into interface{}) and reports every path-level
// difference.
func DiffJSON(baseline, candidate interface{}) []JSONDiffEntry {
	var entries []JSONDiffEntry
	diffJSONAt("$", baseline, candidate, &entries)
	return entries
}

func diffJSONAt(path string, baseline, candidate interface{}, entries *[]JSONDiffEntry) {
	if baseline == nil && candidate == nil {
		return
	}
	if baseline == nil {
		*entries = append(*entries, JSONDiffEntry{Path: path, Status: JSONMissingBaseline})
		return
	}
	if candidate == nil {
		*entries = append(*entries, JSONDiffEntry{Path: path, Status: JSONMissingCandidate})
		return
	}

	baseMap, baseIsMap := baseline.(map[string]interface{})
	candMap, candIsMap := candidate.(map[string]interface{})
	if baseIsMap && candIsMap {
		keys := map[string]bool{}
		for k := range baseMap {
			keys[k] = true
		}
		for k := range candMap {
			keys[k] = true
		}
		sortedKeys := make([]string, 0, len(keys))
		for k := range keys {
			sortedKeys = append(sortedKeys, k)
		}
		sort.Strings(sortedKeys)
		for _, k := range sortedKeys {
			bv, bOk := baseMap[k]
			cv, cOk := candMap[k]
			childPath := fmt.Sprintf("%s.%s", path, k)
			if !bOk {
				*entries = append(*entries, JSONDiffEntry{Path: childPath, Status: JSONMissingBaseline})
				continue
			}
			if !cOk {
				*entries = append(*entries, JSONDiffEntry{Path: childPath, Status: JSONMissingCandidate})
				continue
			}
			diffJSONAt(childPath, bv, cv, entries)
		}
		return
	}

	baseSlice, baseIsSlice := baseline.([]interface{})
	candSlice, candIsSlice := candidate.([]interface{})
	if baseIsSlice && candIsSlice {
		n := len(baseSlice)
		if len(candSlice) > n {
			n = len(candSlice)
		}
		for i := 0; i < n; i++ {
			childPath := fmt.Sprintf("%s[%d]", path, i)
			if i >= len(baseSlice) {
				*entries = append(*entries, JSONDiffEntry{Path: childPath, Status: JSONMissingBaseline})
				continue
			}
			if i >= len(candSlice) {
				*entries = append(*entries, JSONDiffEntry{Path: childPath, Status: JSONMissingCandidate})
				continue
			}
			diffJSONAt(childPath, baseSlice[i], candSlice[i], entries)
		}
		return
	}

	if fmt.Sprintf("%T", baseline) != fmt.Sprintf("%T", candidate) {
		*entries = append(*entries, JSONDiffEntry{Path: path, Status: JSONMismatch})
		return
	}

	if baseline != candidate {
		*entries = append(*entries, JSONDiffEntry{Path: path, Status: JSONChanged})
	}
}

// ClassifyPage derives the page-level status from text similarity and
// whether structured diffs were found. hasStructuredDiffs covers
// tables/pricing/JSON together (required clean for a match);
// hasTableOrPricingDiffs covers only tables/pricing (required clean for a
// partial — a JSON-only diff does not by itself drop a page below
// partial).
func ClassifyPage(similarity float64, hasStructuredDiffs, hasTableOrPricingDiffs bool) PageStatus {
	switch {
	case similarity > 0.9 && !hasStructuredDiffs:
		return StatusMatch
	case similarity > 0.5 && !hasTableOrPricingDiffs:
		return StatusPartial
	default:
		return StatusMismatch
	}
}
