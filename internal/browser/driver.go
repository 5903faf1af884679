// Package browser implements the BrowserDriver capability (SPEC_FULL.md
// §4.5): navigate, screenshot, snapshot DOM, and observe console/network
// traffic against a headless Chrome instance. Adapted from the teacher's
// ChromeDPPool (internal/services/crawler/chromedp_pool.go), generalized
// from a crawl-only pool into the shared capability the Crawl, Capture,
// and Functional stages drive. The Data stage does not use the browser; it
// reads the HTML the Capture stage recorded.
package browser

import (
	"context"
	"time"
)

// ConsoleMessage is one browser console entry observed during a page visit.
type ConsoleMessage struct {
	Type      string    `json:"type"` // "log", "warning", "error"
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// JSError is an uncaught exception or unhandled promise rejection.
type JSError struct {
	Message   string    `json:"message"`
	Source    string    `json:"source"`
	Line      int       `json:"line"`
	Column    int       `json:"column"`
	Stack     string    `json:"stack,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkRequest is one observed outbound request.
type NetworkRequest struct {
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

// NetworkResponse is the matching response for a NetworkRequest, or a
// failure reason when the request never resolved.
type NetworkResponse struct {
	URL        string            `json:"url"`
	Status     int               `json:"status"`
	StatusText string            `json:"statusText"`
	Headers    map[string]string `json:"headers,omitempty"`
	Failed     string            `json:"failed,omitempty"`
}

// PageSnapshot is the full evidence bundle captured from one page visit.
type PageSnapshot struct {
	FinalURL     string
	Status       int
	LoadTimeMs   int64
	HTML         string
	VisibleText  string
	Title        string
	Screenshot   []byte // PNG
	Console      []ConsoleMessage
	JSErrors     []JSError
	Requests     []NetworkRequest
	Responses    []NetworkResponse
	Links        []string // absolute hrefs discovered on the page
}

// Viewport is a named screen size Capture renders against.
type Viewport struct {
	Name   string
	Width  int64
	Height int64
}

// NavigateOptions tune a single page visit.
type NavigateOptions struct {
	Viewport          Viewport
	Timeout           time.Duration
	CaptureScreenshot bool
}

// Page is a single checked-out page within a browser context. Callers must
// call Close when done with it.
type Page interface {
	// Navigate loads url and returns the full evidence snapshot.
	Navigate(ctx context.Context, url string, opts NavigateOptions) (*PageSnapshot, error)
	// Back navigates one step back in history, used by the functional
	// stage to restore state after a broken-link probe.
	Back(ctx context.Context) error
	// FillForm fills the given field values (keyed by a CSS selector) and
	// submits the form matched by formSelector, returning the observed
	// outcome. The pooled chromedp implementation returns only "success"
	// (the fill and submit actions completed) or "error"; it does not wait
	// for a response or URL change and never returns "submitted-no-response".
	FillForm(ctx context.Context, formSelector string, values map[string]string) (string, error)
	Close() error
}

// Driver is the BrowserDriver capability: a handle to a live browser
// context from which pages can be opened. Crawl and Capture check out a
// Driver per site; later diff stages reuse the same Driver from the run
// context.
type Driver interface {
	// OpenPage checks out a new Page from this browser context.
	OpenPage(ctx context.Context) (Page, error)
	// Close ends this checkout. For a Driver from Pool.Checkout it is a
	// no-op: the browser context belongs to the pool and is released by
	// Pool.Shutdown.
	Close() error
}

// DefaultViewports are the three fixed viewports Capture renders against
// unless configuration overrides them.
var DefaultViewports = []Viewport{
	{Name: "desktop", Width: 1920, Height: 1080},
	{Name: "tablet", Width: 768, Height: 1024},
	{Name: "mobile", Width: 375, Height: 667},
}
