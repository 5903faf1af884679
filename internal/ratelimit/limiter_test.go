package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistryPerKeyIsolation(t *testing.T) {
	reg := NewRegistry(1000, 1)

	assert.True(t, reg.Allow("https://a.example.com"))
	assert.False(t, reg.Allow("https://a.example.com"), "second immediate call on the same key should exhaust the burst of 1")
	assert.True(t, reg.Allow("https://b.example.com"), "a different key must have its own independent bucket")
}

func TestRegistryWaitRespectsContextCancellation(t *testing.T) {
	reg := NewRegistry(0.001, 1) // effectively never refills within the test
	reg.Allow("key")            // drain the single burst token

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := reg.Wait(ctx, "key")
	assert.Error(t, err)
}

func TestSiteKeyNormalizesToOrigin(t *testing.T) {
	assert.Equal(t, "https://example.com", SiteKey("https://example.com/a/b?x=1"))
	assert.Equal(t, "https://example.com", SiteKey("https://example.com/c"))
}

func TestSiteKeyFallsBackToRawURLOnParseFailure(t *testing.T) {
	assert.Equal(t, "not a url", SiteKey("not a url"))
}
