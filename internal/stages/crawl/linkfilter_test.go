package crawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldSkipLinkRejectsNonHTTPSchemes(t *testing.T) {
	for _, href := range []string{"javascript:void(0)", "mailto:a@b.com", "tel:+123", "sms:123", "ftp://x", "data:text/plain;base64,", "#section"} {
		assert.True(t, shouldSkipLink(href), href)
	}
}

func TestShouldSkipLinkAllowsHTTP(t *testing.T) {
	assert.False(t, shouldSkipLink("https://example.com/page"))
	assert.False(t, shouldSkipLink("/relative/path"))
}

func TestNormalizeURLCollapsesTrailingSlashAndDropsQueryFragment(t *testing.T) {
	got, err := normalizeURL("https://Example.COM/About/?x=1#section")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/About", got)
}

func TestNormalizeURLKeepsRootSlash(t *testing.T) {
	got, err := normalizeURL("https://example.com/")
	assert.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)
}

func TestResolveLinkResolvesAgainstPageURLNotSeed(t *testing.T) {
	resolved, ok := resolveLink("../sibling", "https://example.com/a/b/page")
	assert.True(t, ok)
	assert.Equal(t, "https://example.com/a/sibling", resolved)
}

func TestSameOrigin(t *testing.T) {
	assert.True(t, sameOrigin("https://example.com/x", "https://example.com/y"))
	assert.False(t, sameOrigin("https://example.com/x", "https://other.com/y"))
}

func TestMatchesPatternsIncludeThenExclude(t *testing.T) {
	assert.True(t, matchesPatterns("https://example.com/blog/post", []string{`/blog/`}, nil))
	assert.False(t, matchesPatterns("https://example.com/admin", []string{`/blog/`}, nil))
	assert.False(t, matchesPatterns("https://example.com/blog/draft", nil, []string{`/draft`}))
}
