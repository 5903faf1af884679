package browser

import (
	"context"
	"testing"
	"time"

	"github.com/ternarybob/arbor"
)

// These tests drive a real headless Chrome instance, matching the
// teacher's ChromeDPPool test style; they require a Chrome/Chromium
// binary on PATH.

func TestPool_BasicOperations(t *testing.T) {
	logger := arbor.NewLogger()
	config := PoolConfig{
		Size:              2,
		UserAgent:         "Test-Agent/1.0",
		NoSandbox:         true,
		DisableGPU:        true,
		NavigationTimeout: 30 * time.Second,
	}

	pool := NewPool(config, logger)
	if pool.IsInitialized() {
		t.Error("pool should not be initialized before Init")
	}

	if err := pool.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if !pool.IsInitialized() {
		t.Error("pool should be initialized after Init")
	}

	d1, err := pool.Checkout()
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}
	d2, err := pool.Checkout()
	if err != nil {
		t.Fatalf("second Checkout failed: %v", err)
	}
	if d1 == d2 {
		t.Error("round-robin checkout should not return the identical driver value twice in a row for a 2-instance pool")
	}

	stats := pool.Stats()
	if stats["requestedSize"] != 2 {
		t.Errorf("expected requestedSize=2, got %v", stats["requestedSize"])
	}
	if stats["instanceCount"] != 2 {
		t.Errorf("expected instanceCount=2, got %v", stats["instanceCount"])
	}

	if err := pool.Shutdown(10 * time.Second); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}
	if pool.IsInitialized() {
		t.Error("pool should not be initialized after Shutdown")
	}

	if _, err := pool.Checkout(); err == nil {
		t.Error("Checkout after Shutdown should fail")
	}
}

func TestPool_InvalidSize(t *testing.T) {
	pool := NewPool(PoolConfig{Size: 0}, arbor.NewLogger())
	if err := pool.Init(); err == nil {
		t.Error("Init should fail with Size=0")
	}
}

func TestPool_DoubleInit(t *testing.T) {
	pool := NewPool(PoolConfig{Size: 1, NoSandbox: true, DisableGPU: true}, arbor.NewLogger())
	if err := pool.Init(); err != nil {
		t.Fatalf("first Init should succeed: %v", err)
	}
	defer pool.Shutdown(10 * time.Second)

	if err := pool.Init(); err == nil {
		t.Error("second Init should fail")
	}
}

func TestPooledPage_NavigateCapturesEvidence(t *testing.T) {
	pool := NewPool(PoolConfig{Size: 1, NoSandbox: true, DisableGPU: true}, arbor.NewLogger())
	if err := pool.Init(); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer pool.Shutdown(10 * time.Second)

	driver, err := pool.Checkout()
	if err != nil {
		t.Fatalf("Checkout failed: %v", err)
	}

	page, err := driver.OpenPage(context.Background())
	if err != nil {
		t.Fatalf("OpenPage failed: %v", err)
	}
	defer page.Close()

	snapshot, err := page.Navigate(context.Background(), "about:blank", NavigateOptions{
		Viewport:          DefaultViewports[0],
		Timeout:           15 * time.Second,
		CaptureScreenshot: true,
	})
	if err != nil {
		t.Fatalf("Navigate failed: %v", err)
	}

	if len(snapshot.Screenshot) == 0 {
		t.Error("expected a non-empty screenshot")
	}
	if snapshot.HTML == "" {
		t.Error("expected non-empty HTML")
	}
}
