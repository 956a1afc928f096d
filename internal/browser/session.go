// File: internal/browser/session.go
package browser

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"github.com/xkilldash9x/lancet-mcp/internal/browser/stealth"
	"github.com/xkilldash9x/lancet-mcp/internal/config"
	"github.com/xkilldash9x/lancet-mcp/internal/humanoid"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// InitOverrides carries per-call startup options from browser_init. Zero
// values defer to configuration.
type InitOverrides struct {
	Headless   *bool
	Proxy      string
	ChromePath string
	Plugins    []string
	ConnectURL string
}

// Session is the chromedp-backed Driver implementation. One session owns one
// browser with one active page.
type Session struct {
	id     string
	ctx    context.Context
	logger *zap.Logger
	cfg    config.BrowserConfig
	nav    config.NavigationConfig

	typist *Typist

	allocCancel context.CancelFunc
	ctxCancel   context.CancelFunc
	closeOnce   sync.Once
}

// Typist is the keyboard pacing dependency. Aliased so tests can construct
// sessions without importing the humanoid package.
type Typist = humanoid.Typist

var _ Driver = (*Session)(nil)

// NewSession launches (or attaches to) a browser and prepares it for use.
// The stealth persona is applied before any page loads.
func NewSession(parent context.Context, cfg config.BrowserConfig, nav config.NavigationConfig, ov InitOverrides, logger *zap.Logger) (*Session, error) {
	sessionID := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", sessionID))

	var (
		allocCtx    context.Context
		allocCancel context.CancelFunc
	)
	if ov.ConnectURL != "" {
		log.Info("attaching to running browser", zap.String("url", ov.ConnectURL))
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, ov.ConnectURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, allocatorOptions(cfg, ov)...)
	}

	ctx, ctxCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		id:          sessionID,
		ctx:         ctx,
		logger:      log,
		cfg:         cfg,
		nav:         nav,
		typist:      humanoid.NewTypist(cfg.Humanoid, 0),
		allocCancel: allocCancel,
		ctxCancel:   ctxCancel,
	}

	// Starting the browser is itself a navigation-class operation, so it
	// gets the navigation timeout.
	startCtx, cancel := context.WithTimeout(ctx, nav.Timeout)
	defer cancel()
	if err := chromedp.Run(startCtx); err != nil {
		s.teardown()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	if cfg.Stealth.Enabled {
		persona := stealth.Persona{
			UserAgent: cfg.Stealth.UserAgent,
			Languages: cfg.Stealth.Languages,
			Timezone:  cfg.Stealth.Timezone,
			Locale:    cfg.Stealth.Locale,
		}
		if err := chromedp.Run(startCtx, stealth.Apply(persona, log)); err != nil {
			s.teardown()
			return nil, fmt.Errorf("failed to apply stealth persona: %w", err)
		}
	}

	log.Info("browser session started",
		zap.Bool("headless", resolveHeadless(cfg, ov)),
		zap.Bool("stealth", cfg.Stealth.Enabled))
	return s, nil
}

// allocatorOptions translates configuration and per-call overrides into exec
// allocator flags.
func allocatorOptions(cfg config.BrowserConfig, ov InitOverrides) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", resolveHeadless(cfg, ov)),
		chromedp.WindowSize(cfg.Viewport.Width, cfg.Viewport.Height),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if cfg.IgnoreTLSErrors {
		opts = append(opts, chromedp.Flag("ignore-certificate-errors", true))
	}
	if proxy := firstNonEmpty(ov.Proxy, cfg.Proxy); proxy != "" {
		opts = append(opts, chromedp.ProxyServer(proxy))
	}
	if path := firstNonEmpty(ov.ChromePath, cfg.ChromePath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	for _, arg := range append(append([]string{}, cfg.Args...), ov.Plugins...) {
		name, value, hasValue := strings.Cut(strings.TrimLeft(arg, "-"), "=")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}
	return opts
}

func resolveHeadless(cfg config.BrowserConfig, ov InitOverrides) bool {
	if ov.Headless != nil {
		return *ov.Headless
	}
	return cfg.Headless
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// run executes chromedp actions under the session context, bounded by the
// caller's context.
func (s *Session) run(ctx context.Context, actions ...chromedp.Action) error {
	opCtx, cancel := combineContext(s.ctx, ctx)
	defer cancel()
	return chromedp.Run(opCtx, actions...)
}

// Navigate performs one navigation attempt and waits for the requested load
// condition.
func (s *Session) Navigate(ctx context.Context, url, waitUntil string) error {
	navCtx, cancel := context.WithTimeout(ctx, s.nav.Timeout)
	defer cancel()

	s.logger.Info("navigating", zap.String("url", url), zap.String("wait_until", waitUntil))

	actions := []chromedp.Action{chromedp.Navigate(url)}
	switch waitUntil {
	case "domcontentloaded":
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	case "networkidle0", "networkidle2", "networkidle":
		// chromedp.Navigate already waits for the load event; give late
		// requests a quiet period on top of it.
		actions = append(actions,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(s.nav.PostLoadWait))
	default:
		actions = append(actions, chromedp.WaitReady("body", chromedp.ByQuery))
	}
	return s.run(navCtx, actions...)
}

// Click scrolls the element into view and clicks it. The selector is assumed
// to be fully resolved.
func (s *Session) Click(ctx context.Context, selector string, waitForNavigation bool) error {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	}
	if waitForNavigation {
		actions = append(actions,
			chromedp.WaitReady("body", chromedp.ByQuery),
			chromedp.Sleep(s.nav.PostLoadWait))
	}
	return s.run(opCtx, actions...)
}

// Type focuses the element, clears it, and sends the text. With a positive
// delay (or humanoid pacing enabled) keystrokes are spaced with jitter.
func (s *Session) Type(ctx context.Context, selector, text string, delay time.Duration) error {
	opCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	prep := []chromedp.Action{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
	}
	if err := s.run(opCtx, prep...); err != nil {
		return err
	}

	if delay <= 0 && !s.cfg.Humanoid.Enabled {
		return s.run(opCtx, chromedp.SendKeys(selector, text, chromedp.ByQuery))
	}

	delays := s.typist.Delays(text, delay)
	for i, r := range []rune(text) {
		if err := s.run(opCtx,
			chromedp.SendKeys(selector, string(r), chromedp.ByQuery),
			chromedp.Sleep(delays[i]),
		); err != nil {
			return err
		}
	}
	return nil
}

// Evaluate runs an expression in the page and decodes the result into out.
// nil out discards the result.
func (s *Session) Evaluate(ctx context.Context, expression string, out interface{}) error {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	withOpts := func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithReturnByValue(true).WithAwaitPromise(true).WithSilent(true)
	}
	if out == nil {
		var discard jsoniter.RawMessage
		return s.run(opCtx, chromedp.Evaluate(expression, &discard, withOpts))
	}
	return s.run(opCtx, chromedp.Evaluate(expression, out, withOpts))
}

// Probe reports match count and visibility for a selector.
func (s *Session) Probe(ctx context.Context, selector string) (schemas.SelectorProbe, error) {
	var probe schemas.SelectorProbe
	script := fmt.Sprintf(probeScript, jsonEncode(selector))
	if err := s.Evaluate(ctx, script, &probe); err != nil {
		return schemas.SelectorProbe{}, fmt.Errorf("probing %q: %w", selector, err)
	}
	return probe, nil
}

// HTML serializes the document, or one element when a selector is given.
func (s *Session) HTML(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		var html string
		if err := s.Evaluate(ctx, documentHTMLScript, &html); err != nil {
			return "", err
		}
		return html, nil
	}
	return s.extractElement(ctx, outerHTMLScript, selector)
}

// Text extracts rendered text from the body, or one element when a selector
// is given.
func (s *Session) Text(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		var text string
		if err := s.Evaluate(ctx, documentTextScript, &text); err != nil {
			return "", err
		}
		return text, nil
	}
	return s.extractElement(ctx, innerTextScript, selector)
}

// extractElement runs a selector-scoped extraction script. A null result
// means the selector matched nothing.
func (s *Session) extractElement(ctx context.Context, script, selector string) (string, error) {
	var raw jsoniter.RawMessage
	if err := s.Evaluate(ctx, fmt.Sprintf(script, jsonEncode(selector)), &raw); err != nil {
		return "", err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: %q", ErrNoElement, selector)
	}
	var out string
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decoding extraction result for %q: %w", selector, err)
	}
	return out, nil
}

// Screenshot captures the viewport, the full page, or a single element.
func (s *Session) Screenshot(ctx context.Context, opts ScreenshotOptions) (*schemas.ImagePayload, error) {
	opCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	format := opts.Format
	if format == "" {
		format = "png"
	}
	quality := opts.Quality
	if quality <= 0 || quality > 100 {
		quality = 90
	}

	var buf []byte
	var err error
	switch {
	case opts.Selector != "":
		probe, perr := s.Probe(opCtx, opts.Selector)
		if perr != nil {
			return nil, perr
		}
		if probe.Count == 0 {
			return nil, fmt.Errorf("%w: %q", ErrNoElement, opts.Selector)
		}
		err = s.run(opCtx,
			chromedp.ScrollIntoView(opts.Selector, chromedp.ByQuery),
			chromedp.Screenshot(opts.Selector, &buf, chromedp.ByQuery))
		format = "png" // element capture is always png
	case opts.FullPage:
		q := 100 // png
		if format == "jpeg" {
			q = quality
		}
		err = s.run(opCtx, chromedp.FullScreenshot(&buf, q))
	default:
		err = s.run(opCtx, chromedp.CaptureScreenshot(&buf))
		format = "png"
	}
	if err != nil {
		return nil, fmt.Errorf("screenshot failed: %w", err)
	}

	payload := &schemas.ImagePayload{
		Data:     buf,
		MIMEType: "image/" + format,
	}
	if cfg, _, derr := image.DecodeConfig(bytes.NewReader(buf)); derr == nil {
		payload.Width = int64(cfg.Width)
		payload.Height = int64(cfg.Height)
	}

	if opts.Path != "" {
		if werr := os.WriteFile(opts.Path, buf, 0o644); werr != nil {
			return nil, fmt.Errorf("saving screenshot to %s: %w", opts.Path, werr)
		}
		payload.Path = opts.Path
		s.logger.Info("screenshot saved", zap.String("path", opts.Path), zap.Int("bytes", len(buf)))
	}
	return payload, nil
}

// WaitVisible blocks until the selector has a visible match or the context
// ends.
func (s *Session) WaitVisible(ctx context.Context, selector string) error {
	return s.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// WaitReady blocks until the current document has finished loading.
func (s *Session) WaitReady(ctx context.Context) error {
	return s.run(ctx,
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.nav.PostLoadWait))
}

// ScrollBy scrolls the page by the given pixel delta.
func (s *Session) ScrollBy(ctx context.Context, dx, dy int) error {
	script := fmt.Sprintf(`window.scrollBy({left: %d, top: %d, behavior: 'smooth'}); true`, dx, dy)
	return s.Evaluate(ctx, script, nil)
}

// DetectCaptcha reports whether a challenge of the given kind is embedded in
// the current page.
func (s *Session) DetectCaptcha(ctx context.Context, kind string) (bool, error) {
	probe, ok := captchaProbes[kind]
	if !ok {
		return false, fmt.Errorf("unknown captcha kind %q", kind)
	}
	var present bool
	if err := s.Evaluate(ctx, probe, &present); err != nil {
		return false, err
	}
	return present, nil
}

// Location returns the current page URL and title.
func (s *Session) Location(ctx context.Context) (string, string, error) {
	var url, title string
	err := s.run(ctx, chromedp.Location(&url), chromedp.Title(&title))
	return url, title, err
}

// Close tears the browser down. Idempotent.
func (s *Session) Close(ctx context.Context) error {
	var err error
	s.closeOnce.Do(func() {
		s.logger.Info("closing browser session")
		closeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if cerr := chromedp.Cancel(s.ctx); cerr != nil && closeCtx.Err() == nil {
			err = cerr
		}
		s.teardown()
	})
	return err
}

func (s *Session) teardown() {
	if s.ctxCancel != nil {
		s.ctxCancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
}

// jsonEncode safely embeds a value into a script as a JS literal.
func jsonEncode(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return `""`
	}
	return string(b)
}

// combineContext derives a context canceled when either input ends. Keeps
// per-call deadlines from outliving the session itself.
func combineContext(primary, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(primary)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
