// File: internal/browser/driver.go

// Package browser manages the single Chrome session behind the tool surface
// and exposes it as a small set of page primitives.
package browser

import (
	"context"
	"errors"
	"time"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
)

// ErrNoElement reports that a selector matched nothing in the live DOM.
// Handlers translate it into the element-not-found contract.
var ErrNoElement = errors.New("element not found")

// ScreenshotOptions selects what and how to capture.
type ScreenshotOptions struct {
	// Selector captures a single element; empty captures the viewport.
	Selector string
	// FullPage captures the entire scrollable page instead of the viewport.
	FullPage bool
	// Format is "png" or "jpeg"; empty defaults to png.
	Format string
	// Quality applies to jpeg only, 1-100.
	Quality int
	// Path optionally also writes the image to disk.
	Path string
}

// Driver is the page primitive surface the tool handlers run against. The
// production implementation is the chromedp Session; tests substitute spies.
type Driver interface {
	// Navigate performs a single navigation attempt. Retries are the
	// caller's concern.
	Navigate(ctx context.Context, url, waitUntil string) error
	// Click scrolls the element into view and clicks it. The selector must
	// already be resolved; no fallback happens here.
	Click(ctx context.Context, selector string, waitForNavigation bool) error
	// Type focuses the element and types text with the given mean
	// per-keystroke delay. Zero delay types instantly.
	Type(ctx context.Context, selector, text string, delay time.Duration) error
	// Evaluate runs a JavaScript expression and decodes the result into out.
	Evaluate(ctx context.Context, expression string, out interface{}) error
	// Probe reports match count and visibility for a selector.
	Probe(ctx context.Context, selector string) (schemas.SelectorProbe, error)
	// HTML extracts serialized markup; empty selector means the document.
	HTML(ctx context.Context, selector string) (string, error)
	// Text extracts visible text; empty selector means the document body.
	Text(ctx context.Context, selector string) (string, error)
	// Screenshot captures an image of the page or one element.
	Screenshot(ctx context.Context, opts ScreenshotOptions) (*schemas.ImagePayload, error)
	// WaitVisible blocks until the selector has a visible match.
	WaitVisible(ctx context.Context, selector string) error
	// WaitReady blocks until the current document finishes loading.
	WaitReady(ctx context.Context) error
	// ScrollBy scrolls the page by the given pixel delta.
	ScrollBy(ctx context.Context, dx, dy int) error
	// DetectCaptcha reports whether a challenge of the given kind is present.
	DetectCaptcha(ctx context.Context, kind string) (bool, error)
	// Location returns the current page URL and title.
	Location(ctx context.Context) (url, title string, err error)
	// Close tears the browser down. Safe to call more than once.
	Close(ctx context.Context) error
}
