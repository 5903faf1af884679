// Package ratelimit implements the per-origin and per-provider token
// buckets described in SPEC_FULL.md §5: one bucket per site origin for
// crawl/capture traffic, one bucket per LLM provider for reasoning calls.
// Grounded on golang.org/x/time/rate, which the teacher's go.mod already
// carries for its own outbound-request throttling.
package ratelimit

import (
	"context"
	"net/url"
	"sync"

	"golang.org/x/time/rate"
)

// Registry hands out a *rate.Limiter per key, creating one lazily on first
// use and reusing it thereafter. Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewRegistry builds a Registry where every key's limiter shares the same
// rate and burst.
func NewRegistry(requestsPerSecond float64, burst int) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		rps:      requestsPerSecond,
		burst:    burst,
	}
}

// Wait blocks until a token is available for key, or ctx is cancelled.
func (r *Registry) Wait(ctx context.Context, key string) error {
	return r.limiterFor(key).Wait(ctx)
}

// Allow reports whether a token is immediately available for key, without
// blocking or consuming a token when false.
func (r *Registry) Allow(key string) bool {
	return r.limiterFor(key).Allow()
}

func (r *Registry) limiterFor(key string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[key]; ok {
		return l
	}
	l := rate.NewLimiter(rate.Limit(r.rps), r.burst)
	r.limiters[key] = l
	return l
}

// SiteKey derives the per-origin rate-limit key for a page URL, so every
// page on the same site origin shares one bucket regardless of path.
func SiteKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Scheme + "://" + u.Host
}

// Limiters bundles the two buckets a run needs: one scoped per site origin
// (crawl and capture traffic) and one scoped per LLM provider name
// (reasoning calls).
type Limiters struct {
	Site *Registry
	LLM  *Registry
}

// NewLimiters builds the pair of registries from rate-limit configuration.
func NewLimiters(siteRPS float64, siteBurst int, llmRPS float64, llmBurst int) *Limiters {
	return &Limiters{
		Site: NewRegistry(siteRPS, siteBurst),
		LLM:  NewRegistry(llmRPS, llmBurst),
	}
}
