// Package crawl implements the Crawl & Page-Matching Engine
// (SPEC_FULL.md §4.4): a bounded per-site BFS seeded at the site root and
// sitemap.xml, followed by a page-matching pass that pairs up baseline and
// candidate pages for the later diff stages.
package crawl

import (
	"net/url"
	"regexp"
	"strings"
)

// skippedSchemes are link prefixes that never become frontier entries,
// grounded on the teacher's LinkExtractor.shouldSkipLink
// (internal/services/crawler/link_extractor.go).
var skippedSchemes = []string{
	"javascript:", "mailto:", "tel:", "sms:", "ftp:", "data:",
}

// shouldSkipLink reports whether href should never reach the frontier:
// non-http(s) schemes and pure same-page fragment anchors.
func shouldSkipLink(href string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(href))
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return true
	}
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(trimmed, scheme) {
			return true
		}
	}
	return false
}

// normalizeURL lowercases the host, drops the fragment and query, and
// collapses a trailing slash (except for the bare root path), per §4.4
// step 1.
func normalizeURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawQuery = ""
	if len(u.Path) > 1 && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}

// resolveLink resolves href against the page's own URL (not the seed
// origin), matching §4.4's "Link discovery resolves relative hrefs
// against the page's own URL" requirement.
func resolveLink(href, pageURL string) (string, bool) {
	if shouldSkipLink(href) {
		return "", false
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	resolved, err := base.Parse(href)
	if err != nil {
		return "", false
	}
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	normalized, err := normalizeURL(resolved.String())
	if err != nil {
		return "", false
	}
	return normalized, true
}

// sameOrigin reports whether candidate shares scheme+host with seed.
func sameOrigin(seed, candidate string) bool {
	a, err1 := url.Parse(seed)
	b, err2 := url.Parse(candidate)
	if err1 != nil || err2 != nil {
		return false
	}
	return strings.EqualFold(a.Host, b.Host) && a.Scheme == b.Scheme
}

// matchesPatterns applies an include-then-exclude pattern check mirroring
// the teacher's LinkExtractor.FilterLinks: no include patterns means
// include-by-default, any exclude match rejects.
func matchesPatterns(link string, include, exclude []string) bool {
	if len(include) > 0 {
		matched := false
		for _, p := range include {
			if re, err := regexp.Compile(p); err == nil && re.MatchString(link) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, p := range exclude {
		if re, err := regexp.Compile(p); err == nil && re.MatchString(link) {
			return false
		}
	}
	return true
}
