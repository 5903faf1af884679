package common

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateAbsoluteURL checks that a URL is syntactically valid and absolute
// (http/https scheme, non-empty host). Used to validate ComparisonJob's
// baselineUrl and candidateUrl (§3).
func ValidateAbsoluteURL(rawURL string) error {
	if strings.TrimSpace(rawURL) == "" {
		return fmt.Errorf("%w: URL is empty", ErrInvalidInput)
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: invalid URL format: %v", ErrInvalidInput, err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%w: invalid URL scheme %q (expected http or https)", ErrInvalidInput, parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("%w: URL host is empty", ErrInvalidInput)
	}

	return nil
}

// ValidateJobURLPair validates that baseline and candidate are both absolute
// URLs and are not equal, per the ComparisonJob invariant in §3.
func ValidateJobURLPair(baselineURL, candidateURL string) error {
	if err := ValidateAbsoluteURL(baselineURL); err != nil {
		return fmt.Errorf("baselineUrl: %w", err)
	}
	if err := ValidateAbsoluteURL(candidateURL); err != nil {
		return fmt.Errorf("candidateUrl: %w", err)
	}
	if strings.EqualFold(normalizeForComparison(baselineURL), normalizeForComparison(candidateURL)) {
		return fmt.Errorf("%w: baselineUrl and candidateUrl must be distinct", ErrInvalidInput)
	}
	return nil
}

func normalizeForComparison(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	parsed.Fragment = ""
	return strings.TrimSuffix(parsed.String(), "/")
}
