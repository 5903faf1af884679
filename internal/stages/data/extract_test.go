package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPullsHeadingsParagraphsAndAnchors(t *testing.T) {
	html := `<html><head><title>Home</title><meta name="description" content="A test page"></head>
<body><h1>Welcome</h1><p>Hello there.</p><a href="/about">About</a></body></html>`

	ext := Extract(html)

	assert.Equal(t, "Home", ext.Metadata["title"])
	assert.Equal(t, "A test page", ext.Metadata["description"])
	assert.Equal(t, []Heading{{Level: 1, Text: "Welcome"}}, ext.Headings)
	assert.Equal(t, []string{"Hello there."}, ext.Paragraphs)
	assert.Equal(t, []Anchor{{Text: "About", Href: "/about"}}, ext.Anchors)
}

func TestExtractSkipsScriptAndStyleInVisibleText(t *testing.T) {
	html := `<html><body><p>Visible</p><script>var x = "hidden";</script><style>.a{color:red}</style></body></html>`

	ext := Extract(html)

	assert.Contains(t, ext.VisibleText, "Visible")
	assert.NotContains(t, ext.VisibleText, "hidden")
	assert.NotContains(t, ext.VisibleText, "color")
}

func TestExtractTableWithExplicitHeader(t *testing.T) {
	html := `<table><thead><tr><th>Name</th><th>Price</th></tr></thead>
<tbody><tr><td>Widget</td><td>$5</td></tr></tbody></table>`

	ext := Extract(html)

	assert.Len(t, ext.Tables, 1)
	assert.Equal(t, []string{"Name", "Price"}, ext.Tables[0].Headers)
	assert.Equal(t, [][]string{{"Widget", "$5"}}, ext.Tables[0].Rows)
}

func TestExtractTableWithoutExplicitHeaderUsesFirstRow(t *testing.T) {
	html := `<table><tr><td>Name</td><td>Price</td></tr><tr><td>Widget</td><td>$5</td></tr></table>`

	ext := Extract(html)

	assert.Len(t, ext.Tables, 1)
	assert.Equal(t, []string{"Name", "Price"}, ext.Tables[0].Headers)
	assert.Equal(t, [][]string{{"Widget", "$5"}}, ext.Tables[0].Rows)
}

func TestExtractPricingSelectors(t *testing.T) {
	html := `<div class="price">$19.99</div><span data-price>29.50 USD</span>`

	ext := Extract(html)

	assert.GreaterOrEqual(t, len(ext.Prices), 1)
	found := false
	for _, p := range ext.Prices {
		if p.Amount == 19.99 && p.Currency == "$" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestExtractJSONLD(t *testing.T) {
	html := `<script type="application/ld+json">{"@type":"Product","name":"Widget"}</script>`

	ext := Extract(html)

	assert.Len(t, ext.JSONLD, 1)
	obj, ok := ext.JSONLD[0].(map[string]interface{})
	assert.True(t, ok)
	assert.Equal(t, "Widget", obj["name"])
}

func TestParsePrice(t *testing.T) {
	amount, currency, ok := parsePrice("$1,234.56")
	assert.True(t, ok)
	assert.Equal(t, 1234.56, amount)
	assert.Equal(t, "$", currency)

	_, _, ok = parsePrice("no digits here")
	assert.False(t, ok)
}
