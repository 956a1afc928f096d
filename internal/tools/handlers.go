// File: internal/tools/handlers.go
package tools

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"github.com/xkilldash9x/lancet-mcp/internal/browser"
	"github.com/xkilldash9x/lancet-mcp/internal/content"
	"go.uber.org/zap"
)

// -- Argument validation (runs before workflow gating) --

func validateNavigateArgs(a schemas.NavigateArgs) *schemas.ToolError {
	if a.URL == "" {
		return schemas.NewToolError(schemas.ErrInvalidArgument, "navigate requires a url")
	}
	u, err := url.Parse(a.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid url %q, expected an absolute http(s) URL", a.URL)
	}
	switch a.WaitUntil {
	case "", "load", "domcontentloaded", "networkidle", "networkidle0", "networkidle2":
	default:
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid waitUntil %q, expected load, domcontentloaded or a networkidle variant", a.WaitUntil)
	}
	return nil
}

func validateContentArgs(a schemas.GetContentArgs) *schemas.ToolError {
	switch a.Type {
	case "", schemas.ContentHTML, schemas.ContentText:
		return nil
	default:
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid content type %q, expected %q or %q", a.Type, schemas.ContentHTML, schemas.ContentText)
	}
}

func validateWaitArgs(a schemas.WaitArgs) *schemas.ToolError {
	switch a.Type {
	case schemas.WaitSelector:
		if a.Value == "" {
			return schemas.NewToolError(schemas.ErrInvalidArgument, "wait type=selector requires a value")
		}
	case schemas.WaitTimeout:
		if _, err := strconv.Atoi(a.Value); err != nil {
			return schemas.NewToolError(schemas.ErrInvalidArgument,
				"wait type=timeout requires a numeric millisecond value, got %q", a.Value)
		}
	case schemas.WaitNavigation:
	default:
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid wait type %q, expected selector, navigation or timeout", a.Type)
	}
	if a.TimeoutMs != nil && *a.TimeoutMs <= 0 {
		return schemas.NewToolError(schemas.ErrInvalidArgument, "wait timeout must be positive")
	}
	return nil
}

func validateScreenshotArgs(a schemas.ScreenshotArgs) *schemas.ToolError {
	switch a.Format {
	case "", "png", "jpeg":
	default:
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid screenshot format %q, expected png or jpeg", a.Format)
	}
	if a.Quality != nil && (*a.Quality < 1 || *a.Quality > 100) {
		return schemas.NewToolError(schemas.ErrInvalidArgument, "screenshot quality must be within 1-100")
	}
	return nil
}

func validateCaptchaArgs(a schemas.SolveCaptchaArgs) *schemas.ToolError {
	switch a.Type {
	case schemas.CaptchaRecaptcha, schemas.CaptchaHCaptcha, schemas.CaptchaTurnstile:
		return nil
	default:
		return schemas.NewToolError(schemas.ErrInvalidArgument,
			"invalid captcha type %q, expected recaptcha, hcaptcha or turnstile", a.Type)
	}
}

// -- Handlers --

// requireDriver guards handlers that run against the live browser but are
// not state-gated (screenshot).
func (d *Dispatcher) requireDriver() *schemas.ToolError {
	if d.driver == nil {
		return &schemas.ToolError{
			Kind:       schemas.ErrSessionUninitialized,
			Message:    "no browser session is active",
			Suggestion: "call browser_init first",
		}
	}
	return nil
}

func (d *Dispatcher) handleBrowserInit(ctx context.Context, a schemas.BrowserInitArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	if d.driver != nil {
		// Idempotent re-init keeps the existing session.
		return "Browser session already active; reusing it.", nil, nil
	}

	ov := browser.InitOverrides{
		Headless:   a.Headless,
		Proxy:      a.Proxy,
		ChromePath: a.ChromePath,
		Plugins:    a.Plugins,
		ConnectURL: a.ConnectURL,
	}
	driver, err := d.newSession(ctx, d.cfg.Browser, d.cfg.Navigation, ov)
	if err != nil {
		return "", nil, &schemas.ToolError{
			Kind:       schemas.ErrDriverFailure,
			Message:    "failed to start browser: " + err.Error(),
			Suggestion: "check the chrome path and connect options, then retry browser_init",
		}
	}
	d.driver = driver
	return "Browser session started.", nil, nil
}

func (d *Dispatcher) handleNavigate(ctx context.Context, a schemas.NavigateArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	retries, err := d.retry.Do(ctx, func(ctx context.Context) error {
		return d.driver.Navigate(ctx, a.URL, a.WaitUntil)
	})
	if err != nil {
		// The last attempt's error is surfaced verbatim so the caller sees
		// the real failure, not a generic wrapper.
		return "", nil, &schemas.ToolError{
			Kind:       schemas.ErrTransientDriverFailure,
			Message:    err.Error(),
			Suggestion: "verify the URL is reachable and retry navigate",
			Trace:      fmt.Sprintf("navigation gave up after %d attempts", retries+1),
		}
	}

	text := fmt.Sprintf("Navigated to %s.", a.URL)
	if retries > 0 {
		text = fmt.Sprintf("Navigated to %s after %d retries.", a.URL, retries)
	}
	return text, nil, nil
}

func (d *Dispatcher) handleGetContent(ctx context.Context, a schemas.GetContentArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	chunk, err := d.pipeline.Retrieve(ctx, d.driver, content.Request{
		Type:     a.Type,
		Selector: a.Selector,
	})
	if err != nil {
		if errors.Is(err, browser.ErrNoElement) {
			return "", nil, &schemas.ToolError{
				Kind:       schemas.ErrElementNotFound,
				Message:    fmt.Sprintf("selector %q matched no element for content extraction", a.Selector),
				Suggestion: "call find_selector to discover a valid selector, or omit the selector for the full page",
			}
		}
		var toolErr *schemas.ToolError
		if errors.As(err, &toolErr) {
			return "", nil, toolErr
		}
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "content extraction failed: %s", err.Error())
	}

	d.logger.Debug("content retrieved",
		zap.Int("tokens", chunk.TotalEstimatedTokens),
		zap.Bool("truncated", chunk.Truncated))
	return chunk.Text, nil, nil
}

func (d *Dispatcher) handleFindSelector(ctx context.Context, a schemas.FindSelectorArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	candidates, err := d.engine.FindByText(ctx, d.driver, a.Text, a.ElementType, a.Exact)
	if err != nil {
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "selector discovery failed: %s", err.Error())
	}
	if len(candidates) == 0 {
		return "", nil, &schemas.ToolError{
			Kind:       schemas.ErrElementNotFound,
			Message:    fmt.Sprintf("no element with text %q found", a.Text),
			Suggestion: "call get_content to inspect the page text, or broaden the search with exact=false",
		}
	}

	var b strings.Builder
	best := candidates[0]
	fmt.Fprintf(&b, "Best match: %s (confidence %d, <%s> %q)\n",
		best.Selector, best.Confidence, best.TagName, best.MatchedText)
	if len(candidates) > 1 {
		b.WriteString("Alternatives:\n")
		for _, c := range candidates[1:] {
			fmt.Fprintf(&b, "  %s (confidence %d, <%s> %q)\n",
				c.Selector, c.Confidence, c.TagName, c.MatchedText)
		}
	}
	return strings.TrimRight(b.String(), "\n"), nil, nil
}

func (d *Dispatcher) handleClick(ctx context.Context, a schemas.ClickArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	resolved, toolErr := d.resolveElement(ctx, a.Selector)
	if toolErr != nil {
		return "", nil, toolErr
	}

	if err := d.driver.Click(ctx, resolved.Selector, a.WaitForNavigation); err != nil {
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure,
			"click on %q failed: %s", resolved.Selector, err.Error())
	}

	text := fmt.Sprintf("Clicked %s.", resolved.Selector)
	if resolved.Strategy != schemas.StrategyPrimary {
		text = fmt.Sprintf("Clicked %s (resolved from %q via %s strategy).",
			resolved.Selector, a.Selector, resolved.Strategy)
	}
	return text, nil, nil
}

func (d *Dispatcher) handleType(ctx context.Context, a schemas.TypeArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	resolved, toolErr := d.resolveElement(ctx, a.Selector)
	if toolErr != nil {
		return "", nil, toolErr
	}

	var delay time.Duration
	if a.DelayMs != nil {
		delay = time.Duration(*a.DelayMs) * time.Millisecond
	}
	if err := d.driver.Type(ctx, resolved.Selector, a.Text, delay); err != nil {
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure,
			"typing into %q failed: %s", resolved.Selector, err.Error())
	}

	text := fmt.Sprintf("Typed %d characters into %s.", len([]rune(a.Text)), resolved.Selector)
	if resolved.Strategy != schemas.StrategyPrimary {
		text = fmt.Sprintf("Typed %d characters into %s (resolved from %q via %s strategy).",
			len([]rune(a.Text)), resolved.Selector, a.Selector, resolved.Strategy)
	}
	return text, nil, nil
}

// resolveElement runs the self-healing resolution chain and, on failure,
// builds the full strategy trace for the error.
func (d *Dispatcher) resolveElement(ctx context.Context, selector string) (*schemas.LocatorResult, *schemas.ToolError) {
	resolved, err := d.resolver.Resolve(ctx, d.driver, selector)
	if err != nil {
		return nil, schemas.NewToolError(schemas.ErrDriverFailure,
			"resolving %q failed: %s", selector, err.Error())
	}
	if resolved == nil {
		return nil, &schemas.ToolError{
			Kind:       schemas.ErrElementNotFound,
			Message:    fmt.Sprintf("no interactable element found for %q", selector),
			Suggestion: "call find_selector to discover the element by its visible text",
			Trace:      d.resolver.FallbackSummary(ctx, d.driver, selector),
		}
	}
	return resolved, nil
}

func (d *Dispatcher) handleWait(ctx context.Context, a schemas.WaitArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	timeout := 30 * time.Second
	if a.TimeoutMs != nil {
		timeout = time.Duration(*a.TimeoutMs) * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	var err error
	switch a.Type {
	case schemas.WaitSelector:
		err = d.driver.WaitVisible(waitCtx, a.Value)
	case schemas.WaitNavigation:
		err = d.driver.WaitReady(waitCtx)
	case schemas.WaitTimeout:
		ms, _ := strconv.Atoi(a.Value)
		timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
		defer timer.Stop()
		select {
		case <-waitCtx.Done():
			err = waitCtx.Err()
		case <-timer.C:
		}
	}
	elapsed := time.Since(start).Round(time.Millisecond)

	if err != nil {
		return "", nil, &schemas.ToolError{
			Kind:       schemas.ErrDriverFailure,
			Message:    fmt.Sprintf("wait (%s) gave up after %s: %s", a.Type, elapsed, err.Error()),
			Suggestion: "increase the timeout or verify the condition can occur on this page",
		}
	}
	return fmt.Sprintf("Wait (%s) completed after %s.", a.Type, elapsed), nil, nil
}

func (d *Dispatcher) handleScreenshot(ctx context.Context, a schemas.ScreenshotArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	if toolErr := d.requireDriver(); toolErr != nil {
		return "", nil, toolErr
	}

	opts := browser.ScreenshotOptions{
		Selector: a.Selector,
		FullPage: a.FullPage,
		Format:   a.Format,
		Path:     a.Path,
	}
	if a.Quality != nil {
		opts.Quality = *a.Quality
	}
	image, err := d.driver.Screenshot(ctx, opts)
	if err != nil {
		if errors.Is(err, browser.ErrNoElement) {
			return "", nil, &schemas.ToolError{
				Kind:       schemas.ErrElementNotFound,
				Message:    fmt.Sprintf("selector %q matched no element to capture", a.Selector),
				Suggestion: "call find_selector to locate the element, or capture without a selector",
			}
		}
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "screenshot failed: %s", err.Error())
	}

	text := fmt.Sprintf("Captured %s screenshot (%dx%d, %d bytes).",
		image.MIMEType, image.Width, image.Height, len(image.Data))
	if image.Path != "" {
		text += " Saved to " + image.Path + "."
	}
	return text, image, nil
}

func (d *Dispatcher) handleSolveCaptcha(ctx context.Context, a schemas.SolveCaptchaArgs) (string, *schemas.ImagePayload, *schemas.ToolError) {
	present, err := d.driver.DetectCaptcha(ctx, a.Type)
	if err != nil {
		return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "captcha detection failed: %s", err.Error())
	}
	if !present {
		return fmt.Sprintf("No %s challenge detected on the current page.", a.Type), nil, nil
	}

	// Best effort: try the visible checkbox widget, then let the challenge
	// scripts settle. Anything beyond that needs the human behind the host.
	clicked := false
	if sel, ok := captchaWidgets[a.Type]; ok {
		if err := d.driver.Click(ctx, sel, false); err != nil {
			d.logger.Debug("captcha widget click failed",
				zap.String("kind", a.Type), zap.Error(err))
		} else {
			clicked = true
		}
	}
	if err := d.driver.WaitReady(ctx); err != nil {
		d.logger.Debug("post-captcha settle wait failed", zap.Error(err))
	}

	if clicked {
		return fmt.Sprintf("A %s challenge is present; its checkbox was clicked. Solving is best effort and may still require manual action.", a.Type), nil, nil
	}
	return fmt.Sprintf("A %s challenge is present. Detection is best effort; solving is delegated to the browser session and may require manual action.", a.Type), nil, nil
}

// captchaWidgets are the visible embed containers a best-effort click can
// reach. Challenge iframes themselves are cross-origin and out of reach.
var captchaWidgets = map[string]string{
	schemas.CaptchaRecaptcha: ".g-recaptcha",
	schemas.CaptchaHCaptcha:  ".h-captcha",
	schemas.CaptchaTurnstile: ".cf-turnstile",
}

func (d *Dispatcher) handleRandomScroll(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
	plan := d.scroller.Plan()
	total := 0
	for _, step := range plan {
		if err := d.scroller.Pace(ctx); err != nil {
			return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "scroll pacing interrupted: %s", err.Error())
		}
		if err := d.driver.ScrollBy(ctx, 0, step.DeltaY); err != nil {
			return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "scroll failed: %s", err.Error())
		}
		total += step.DeltaY

		timer := time.NewTimer(step.Pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", nil, schemas.NewToolError(schemas.ErrDriverFailure, "scroll interrupted: %s", ctx.Err().Error())
		case <-timer.C:
		}
	}
	return fmt.Sprintf("Scrolled %d steps (%+d px net).", len(plan), total), nil, nil
}

func (d *Dispatcher) handleBrowserClose(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
	// The validator resets no matter how the close goes, so a failed close
	// can never leave a ghost state behind.
	defer d.validator.Reset()

	if d.driver == nil {
		return "No browser session was active. Workflow state reset to UNINITIALIZED.", nil, nil
	}

	err := d.driver.Close(ctx)
	d.driver = nil
	if err != nil {
		d.logger.Warn("browser close reported an error", zap.Error(err))
		return fmt.Sprintf("Browser close reported an error (%s), session discarded. Workflow state reset to UNINITIALIZED.", err.Error()), nil, nil
	}
	return "Browser session closed. Workflow state reset to UNINITIALIZED.", nil, nil
}
