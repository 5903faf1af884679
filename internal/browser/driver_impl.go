package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/log"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// pooledDriver is the Driver implementation returned by Pool.Checkout. It
// wraps a shared browser context from the pool; OpenPage creates an
// isolated chromedp tab context per page so concurrent pages under the
// same Driver never race on navigation state.
type pooledDriver struct {
	ctx     context.Context
	timeout time.Duration
}

func (d *pooledDriver) OpenPage(ctx context.Context) (Page, error) {
	tabCtx, tabCancel := chromedp.NewContext(d.ctx)
	return &pooledPage{ctx: tabCtx, cancel: tabCancel, timeout: d.timeout}, nil
}

// Close is a no-op: the browser context belongs to the pool, not to an
// individual checkout, matching the teacher's GetBrowser/ReleaseBrowser
// split where release never tears anything down.
func (d *pooledDriver) Close() error { return nil }

type pooledPage struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration

	console   []ConsoleMessage
	jsErrors  []JSError
	requests  []NetworkRequest
	responses []NetworkResponse
}

func (p *pooledPage) Navigate(ctx context.Context, url string, opts NavigateOptions) (*PageSnapshot, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = p.timeout
	}

	p.resetObservations()
	chromedp.ListenTarget(p.ctx, p.handleEvent)

	navCtx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()

	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		if err := chromedp.Run(navCtx, chromedp.EmulateViewport(opts.Viewport.Width, opts.Viewport.Height)); err != nil {
			return nil, fmt.Errorf("set viewport: %w", err)
		}
	}

	start := time.Now()
	var html, visibleText, title, finalURL string
	var statusCode int
	actions := []chromedp.Action{
		chromedp.Navigate(url),
		chromedp.Sleep(300 * time.Millisecond), // let post-load JS settle
		chromedp.Location(&finalURL),
		chromedp.Title(&title),
		chromedp.OuterHTML("html", &html),
		chromedp.Text("body", &visibleText, chromedp.NodeVisible),
		chromedp.Evaluate(`window.performance?.getEntriesByType?.('navigation')?.[0]?.responseStatus || 200`, &statusCode),
	}

	var links []string
	actions = append(actions, chromedp.Evaluate(
		`Array.from(document.querySelectorAll('a[href]')).map(a => a.href)`, &links))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return nil, fmt.Errorf("navigate to %s: %w", url, err)
	}

	snapshot := &PageSnapshot{
		FinalURL:    finalURL,
		Status:      statusCode,
		LoadTimeMs:  time.Since(start).Milliseconds(),
		HTML:        html,
		VisibleText: visibleText,
		Title:       title,
		Links:       links,
	}

	if opts.CaptureScreenshot {
		var buf []byte
		if err := chromedp.Run(navCtx, chromedp.FullScreenshot(&buf, 90)); err != nil {
			return nil, fmt.Errorf("screenshot %s: %w", url, err)
		}
		snapshot.Screenshot = buf
	}

	p.mu.Lock()
	snapshot.Console = append([]ConsoleMessage(nil), p.console...)
	snapshot.JSErrors = append([]JSError(nil), p.jsErrors...)
	snapshot.Requests = append([]NetworkRequest(nil), p.requests...)
	snapshot.Responses = append([]NetworkResponse(nil), p.responses...)
	p.mu.Unlock()

	return snapshot, nil
}

func (p *pooledPage) resetObservations() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.console = nil
	p.jsErrors = nil
	p.requests = nil
	p.responses = nil
}

// handleEvent is registered once per page via chromedp.ListenTarget and
// accumulates console, exception, and network evidence for the
// in-progress navigation.
func (p *pooledPage) handleEvent(ev interface{}) {
	switch e := ev.(type) {
	case *log.EventEntryAdded:
		p.mu.Lock()
		p.console = append(p.console, ConsoleMessage{
			Type:      e.Entry.Level.String(),
			Text:      e.Entry.Text,
			Timestamp: time.Now(),
		})
		p.mu.Unlock()
	case *runtime.EventExceptionThrown:
		p.mu.Lock()
		detail := e.ExceptionDetails
		jsErr := JSError{
			Message:   detail.Text,
			Line:      int(detail.LineNumber),
			Column:    int(detail.ColumnNumber),
			Timestamp: time.Now(),
		}
		if detail.URL != "" {
			jsErr.Source = detail.URL
		}
		if detail.Exception != nil && detail.Exception.Description != "" {
			jsErr.Stack = detail.Exception.Description
		}
		p.jsErrors = append(p.jsErrors, jsErr)
		p.mu.Unlock()
	case *network.EventRequestWillBeSent:
		p.mu.Lock()
		p.requests = append(p.requests, NetworkRequest{
			URL:       e.Request.URL,
			Method:    e.Request.Method,
			Timestamp: time.Now(),
		})
		p.mu.Unlock()
	case *network.EventResponseReceived:
		p.mu.Lock()
		p.responses = append(p.responses, NetworkResponse{
			URL:        e.Response.URL,
			Status:     int(e.Response.Status),
			StatusText: e.Response.StatusText,
		})
		p.mu.Unlock()
	case *network.EventLoadingFailed:
		p.mu.Lock()
		p.responses = append(p.responses, NetworkResponse{
			Failed: e.ErrorText,
		})
		p.mu.Unlock()
	}
}

func (p *pooledPage) Back(ctx context.Context) error {
	navCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()
	return chromedp.Run(navCtx, chromedp.NavigateBack())
}

// FillForm fills each selector->value pair then submits formSelector.
// Outcome classification is deliberately coarse: the functional stage only
// needs to know whether the form accepted input and produced a visible
// change, not the full semantics of the target application.
func (p *pooledPage) FillForm(ctx context.Context, formSelector string, values map[string]string) (string, error) {
	navCtx, cancel := context.WithTimeout(p.ctx, p.timeout)
	defer cancel()

	var actions []chromedp.Action
	for selector, value := range values {
		actions = append(actions, chromedp.SetValue(selector, value, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Submit(formSelector, chromedp.ByQuery))

	if err := chromedp.Run(navCtx, actions...); err != nil {
		return "error", err
	}
	return "success", nil
}

func (p *pooledPage) Close() error {
	p.cancel()
	return nil
}
