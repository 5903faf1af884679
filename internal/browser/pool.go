package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"
)

// PoolConfig configures a Pool. Grounded on the teacher's
// ChromeDPPoolConfig (internal/services/crawler/chromedp_pool.go),
// generalized with a DisableGPU/NoSandbox pair still useful for running
// headless in CI/container environments.
type PoolConfig struct {
	Size              int
	UserAgent         string
	NavigationTimeout time.Duration
	DisableGPU        bool
	NoSandbox         bool
}

// Pool is a fixed-size round-robin pool of headless-Chrome browser
// contexts, directly adapted from the teacher's ChromeDPPool. Crawl and
// Capture check a Driver out of the pool per site visit; the orchestrator
// keeps the two checked-out Drivers (baseline, candidate) alive across the
// Capture -> Visual/Functional/Data stage sequence for a run, per
// SPEC_FULL.md §4.3.
type Pool struct {
	mu                sync.Mutex
	browsers          []context.Context
	browserCancels    []context.CancelFunc
	allocatorCancels  []context.CancelFunc
	currentIndex      int
	config            PoolConfig
	logger            arbor.ILogger
	initialized       bool
}

// NewPool constructs an uninitialized pool. Call Init before use.
func NewPool(config PoolConfig, logger arbor.ILogger) *Pool {
	if config.UserAgent == "" {
		config.UserAgent = "ParityGuard/1.0"
	}
	if config.NavigationTimeout <= 0 {
		config.NavigationTimeout = 30 * time.Second
	}
	return &Pool{config: config, logger: logger}
}

// Init spins up config.Size browser instances, each verified with an
// about:blank navigation smoke test before being admitted to the pool.
// Individual instance failures are tolerated; Init only fails hard when
// every instance fails to start. Calling Init on an already-initialized
// pool is an error.
func (p *Pool) Init() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return fmt.Errorf("browser pool already initialized")
	}

	if p.config.Size <= 0 {
		return fmt.Errorf("pool size must be greater than 0, got: %d", p.config.Size)
	}
	if p.config.Size > 20 && p.logger != nil {
		p.logger.Warn().Int("size", p.config.Size).Msg("Large browser pool size detected - this may consume significant memory")
	}

	successCount := 0
	var lastErr error
	for i := 0; i < p.config.Size; i++ {
		if err := p.createInstance(i); err != nil {
			if p.logger != nil {
				p.logger.Warn().Err(err).Int("instance", i).Msg("Failed to start browser instance")
			}
			lastErr = err
			continue
		}
		successCount++
	}

	if successCount == 0 {
		return fmt.Errorf("failed to start any browser instance out of %d: %w", p.config.Size, lastErr)
	}

	p.initialized = true
	if p.logger != nil {
		p.logger.Info().Int("started", successCount).Int("requested", p.config.Size).Msg("Browser pool initialized")
	}
	return nil
}

// createInstance must be called with p.mu held.
func (p *Pool) createInstance(index int) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", p.config.DisableGPU),
		chromedp.Flag("no-sandbox", p.config.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-timer-throttling", false),
		chromedp.Flag("disable-backgrounding-occluded-windows", false),
		chromedp.Flag("disable-renderer-backgrounding", false),
		chromedp.UserAgent(p.config.UserAgent),
	)

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	smokeCtx, smokeCancel := context.WithTimeout(browserCtx, p.config.NavigationTimeout)
	defer smokeCancel()

	var title string
	if err := chromedp.Run(smokeCtx, chromedp.Navigate("about:blank"), chromedp.Title(&title)); err != nil {
		browserCancel()
		allocatorCancel()
		return fmt.Errorf("smoke test failed for instance %d: %w", index, err)
	}

	p.browsers = append(p.browsers, browserCtx)
	p.browserCancels = append(p.browserCancels, browserCancel)
	p.allocatorCancels = append(p.allocatorCancels, allocatorCancel)
	return nil
}

// Checkout returns a Driver bound to the next browser context in
// round-robin order. The Driver's Close is a no-op: the underlying browser
// context belongs to the pool and is torn down by Shutdown, not by
// individual checkouts (mirroring the teacher's GetBrowser/ReleaseBrowser
// pairing where ReleaseBrowser is intentionally a no-op).
func (p *Pool) Checkout() (Driver, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized || len(p.browsers) == 0 {
		return nil, fmt.Errorf("browser pool not initialized")
	}

	index := p.currentIndex % len(p.browsers)
	p.currentIndex = (p.currentIndex + 1) % len(p.browsers)

	return &pooledDriver{ctx: p.browsers[index], timeout: p.config.NavigationTimeout}, nil
}

// Shutdown tears down every browser instance, bounded by an overall
// timeout so a hung Chrome process can never block process exit.
func (p *Pool) Shutdown(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil
	}

	done := make(chan struct{})
	go func() {
		p.cleanup()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		if p.logger != nil {
			p.logger.Warn().Msg("Browser pool shutdown timed out, forcing cleanup")
		}
		p.cleanup()
	}

	p.initialized = false
	return nil
}

// cleanup must be called with p.mu held (or from a goroutine that owns the
// only reference during Shutdown).
func (p *Pool) cleanup() {
	for _, cancel := range p.browserCancels {
		cancel()
	}
	for _, cancel := range p.allocatorCancels {
		cancel()
	}
	p.browsers = nil
	p.browserCancels = nil
	p.allocatorCancels = nil
}

// Stats reports pool occupancy for the health/status endpoints.
func (p *Pool) Stats() map[string]interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]interface{}{
		"initialized":   p.initialized,
		"instanceCount": len(p.browsers),
		"requestedSize": p.config.Size,
	}
}

func (p *Pool) IsInitialized() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.initialized
}
