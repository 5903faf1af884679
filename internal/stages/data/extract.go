// Package data implements the Data Integrity Stage (SPEC_FULL.md §4.8):
// extraction of visible text, structured content, pricing, and JSON-LD
// from each matched page on both sides, and comparison of the extracted
// content to flag regressions a migration should not introduce.
package data

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Heading is one h1-h6 element.
type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Anchor is one <a> element's text and destination.
type Anchor struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Table is one <table>'s headers and body rows.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// PriceElement is one element matched by the pricing selector set.
type PriceElement struct {
	Selector string  `json:"selector"`
	Raw      string  `json:"raw"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Extraction is everything pulled from one page's HTML for comparison.
type Extraction struct {
	VisibleText string
	Headings    []Heading
	Paragraphs  []string
	Anchors     []Anchor
	Metadata    map[string]string
	Tables      []Table
	Prices      []PriceElement
	JSONLD      []interface{}
}

// pricingSelectors is a hard-coded, non-configurable selector set (§4.8
// open question resolved: revisit only if a concrete customer selector
// surfaces).
var pricingSelectors = []string{".price", "[class*=price]", "[data-price]"}

// priceRegexp extracts an optional currency symbol/code and a numeric
// amount from pricing element text, e.g. "$19.99", "19.99 USD", "€5".
var priceRegexp = regexp.MustCompile(`(?i)([$€£]|usd|eur|gbp)?\s*([\d,]+(?:\.\d+)?)\s*([$€£]|usd|eur|gbp)?`)

// Extract parses html into an Extraction. It never returns an error: a
// malformed document simply yields emptier fields, consistent with the
// rest of this stage treating extraction as best-effort evidence
// gathering rather than a hard precondition.
func Extract(html string) Extraction {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Extraction{Metadata: map[string]string{}}
	}

	ext := Extraction{Metadata: map[string]string{}}

	doc.Find("script, style").Remove()
	ext.VisibleText = strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	for level := 1; level <= 6; level++ {
		tag := "h" + strconv.Itoa(level)
		doc.Find(tag).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text != "" {
				ext.Headings = append(ext.Headings, Heading{Level: level, Text: text})
			}
		})
	}

	doc.Find("p").Each(func(_ int, sel *goquery.Selection) {
		text := strings.TrimSpace(sel.Text())
		if text != "" {
			ext.Paragraphs = append(ext.Paragraphs, text)
		}
	})

	doc.Find("a").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		ext.Anchors = append(ext.Anchors, Anchor{Text: strings.TrimSpace(sel.Text()), Href: href})
	})

	ext.Metadata["title"] = strings.TrimSpace(doc.Find("title").First().Text())
	ext.Metadata["description"] = metaContent(doc, "description")
	ext.Metadata["keywords"] = metaContent(doc, "keywords")

	doc.Find("table").Each(func(_ int, sel *goquery.Selection) {
		ext.Tables = append(ext.Tables, extractTable(sel))
	})

	for _, selector := range pricingSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			text := strings.TrimSpace(sel.Text())
			if text == "" {
				return
			}
			amount, currency, ok := parsePrice(text)
			if !ok {
				return
			}
			ext.Prices = append(ext.Prices, PriceElement{Selector: selector, Raw: text, Amount: amount, Currency: currency})
		})
	}

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var payload interface{}
		if err := json.Unmarshal([]byte(sel.Text()), &payload); err == nil {
			ext.JSONLD = append(ext.JSONLD, payload)
		}
	})

	return ext
}

func metaContent(doc *goquery.Document, name string) string {
	var content string
	doc.Find("meta").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if n, _ := sel.Attr("name"); strings.EqualFold(n, name) {
			content, _ = sel.Attr("content")
			return false
		}
		if p, _ := sel.Attr("property"); strings.EqualFold(p, "og:"+name) {
			content, _ = sel.Attr("content")
			return false
		}
		return true
	})
	return content
}

func extractTable(sel *goquery.Selection) Table {
	var table Table

	headerRow := sel.Find("thead tr").First()
	if headerRow.Length() == 0 {
		headerRow = sel.Find("tr").First()
	}
	headerRow.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
		table.Headers = append(table.Headers, strings.TrimSpace(cell.Text()))
	})

	bodyRows := sel.Find("tbody tr")
	if bodyRows.Length() == 0 {
		bodyRows = sel.Find("tr")
	}
	// Skip the row already consumed as the header when there was no
	// explicit <thead> (the HTML parser wraps bare rows in an implied
	// <tbody>, so that row is the first of bodyRows either way).
	if sel.Find("thead tr").Length() == 0 && bodyRows.Length() > 0 {
		bodyRows = bodyRows.Slice(1, bodyRows.Length())
	}

	bodyRows.Each(func(_ int, row *goquery.Selection) {
		var cells []string
		row.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		table.Rows = append(table.Rows, cells)
	})

	return table
}

func parsePrice(text string) (amount float64, currency string, ok bool) {
	match := priceRegexp.FindStringSubmatch(text)
	if match == nil {
		return 0, "", false
	}
	numeric := strings.ReplaceAll(match[2], ",", "")
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return 0, "", false
	}
	currency = match[1]
	if currency == "" {
		currency = match[3]
	}
	return value, strings.ToUpper(currency), true
}
