package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJaccardSimilarityIdenticalText(t *testing.T) {
	similarity, added, removed := JaccardSimilarity("hello world", "hello world")
	assert.Equal(t, 1.0, similarity)
	assert.Empty(t, added)
	assert.Empty(t, removed)
}

func TestJaccardSimilarityBothEmpty(t *testing.T) {
	similarity, _, _ := JaccardSimilarity("", "")
	assert.Equal(t, 1.0, similarity)
}

func TestJaccardSimilarityPartialOverlap(t *testing.T) {
	similarity, added, removed := JaccardSimilarity("the quick fox", "the quick dog")
	assert.InDelta(t, 0.5, similarity, 0.01) // intersection={the,quick}=2, union={the,quick,fox,dog}=4
	assert.Equal(t, []string{"dog"}, added)
	assert.Equal(t, []string{"fox"}, removed)
}

func TestDiffTablesFlagsChangedAndMissingCells(t *testing.T) {
	baseline := Table{Headers: []string{"Name", "Price"}, Rows: [][]string{{"Widget", "$5"}}}
	candidate := Table{Headers: []string{"Name", "Price"}, Rows: [][]string{{"Widget", "$6"}, {"Gadget", "$9"}}}

	diff := DiffTables(baseline, candidate)

	assert.False(t, diff.HeaderSizeMismatch)
	assert.Len(t, diff.Cells, 3)
	assert.Equal(t, CellChanged, diff.Cells[0].Status)
	assert.Equal(t, CellMissingBaseline, diff.Cells[1].Status)
	assert.Equal(t, CellMissingBaseline, diff.Cells[2].Status)
}

func TestDiffTablesHeaderSizeMismatch(t *testing.T) {
	baseline := Table{Headers: []string{"Name"}}
	candidate := Table{Headers: []string{"Name", "Price"}}

	diff := DiffTables(baseline, candidate)
	assert.True(t, diff.HeaderSizeMismatch)
}

func TestDiffPricesMatchesBySelectorAndFlagsChanges(t *testing.T) {
	baseline := []PriceElement{{Selector: ".price", Amount: 19.99, Currency: "USD"}}
	candidate := []PriceElement{{Selector: ".price", Amount: 24.99, Currency: "USD"}}

	diffs := DiffPrices(baseline, candidate)

	assert.Len(t, diffs, 1)
	assert.True(t, diffs[0].AmountChanged)
	assert.False(t, diffs[0].CurrencyChanged)
}

func TestDiffPricesNoDiffWhenIdentical(t *testing.T) {
	baseline := []PriceElement{{Selector: ".price", Amount: 19.99, Currency: "USD"}}
	candidate := []PriceElement{{Selector: ".price", Amount: 19.99, Currency: "USD"}}

	diffs := DiffPrices(baseline, candidate)
	assert.Empty(t, diffs)
}

func decode(t *testing.T, raw string) interface{} {
	t.Helper()
	var v interface{}
	assert.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestDiffJSONDetectsMissingAndChangedKeys(t *testing.T) {
	baseline := decode(t, `{"name":"Widget","price":5,"tags":["a","b"]}`)
	candidate := decode(t, `{"name":"Widget","price":6,"tags":["a"],"sku":"W-1"}`)

	entries := DiffJSON(baseline, candidate)

	byPath := map[string]JSONDiffStatus{}
	for _, e := range entries {
		byPath[e.Path] = e.Status
	}

	assert.Equal(t, JSONChanged, byPath["$.price"])
	assert.Equal(t, JSONMissingBaseline, byPath["$.sku"])
	assert.Equal(t, JSONMissingCandidate, byPath["$.tags[1]"])
}

func TestDiffJSONDetectsTypeMismatch(t *testing.T) {
	baseline := decode(t, `{"value":5}`)
	candidate := decode(t, `{"value":"5"}`)

	entries := DiffJSON(baseline, candidate)
	assert.Len(t, entries, 1)
	assert.Equal(t, JSONMismatch, entries[0].Status)
}

func TestClassifyPage(t *testing.T) {
	assert.Equal(t, StatusMatch, ClassifyPage(0.95, false, false))
	assert.Equal(t, StatusPartial, ClassifyPage(0.95, true, false))
	assert.Equal(t, StatusPartial, ClassifyPage(0.6, true, false))
	assert.Equal(t, StatusMismatch, ClassifyPage(0.6, true, true))
	assert.Equal(t, StatusMismatch, ClassifyPage(0.3, false, false))
}
