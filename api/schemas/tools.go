// File: api/schemas/tools.go
package schemas

// Tool names exposed to the host.
const (
	ToolBrowserInit  = "browser_init"
	ToolNavigate     = "navigate"
	ToolGetContent   = "get_content"
	ToolFindSelector = "find_selector"
	ToolClick        = "click"
	ToolType         = "type"
	ToolWait         = "wait"
	ToolScreenshot   = "screenshot"
	ToolSolveCaptcha = "solve_captcha"
	ToolRandomScroll = "random_scroll"
	ToolBrowserClose = "browser_close"
)

// BrowserInitArgs configures session startup. All fields are optional; zero
// values defer to configuration defaults. A second browser_init while a
// session is active is an idempotent no-op.
type BrowserInitArgs struct {
	Headless   *bool    `json:"headless,omitempty" jsonschema:"run the browser without a visible window"`
	Proxy      string   `json:"proxy,omitempty" jsonschema:"proxy server address, e.g. socks5://127.0.0.1:9050"`
	ChromePath string   `json:"customChromePath,omitempty" jsonschema:"path to a specific Chrome/Chromium binary"`
	Plugins    []string `json:"plugins,omitempty" jsonschema:"additional Chrome command-line switches"`
	ConnectURL string   `json:"connectUrl,omitempty" jsonschema:"DevTools websocket URL of an already-running browser to attach to"`
}

// NavigateArgs drives the navigate tool.
type NavigateArgs struct {
	URL       string `json:"url" jsonschema:"the absolute URL to navigate to"`
	WaitUntil string `json:"waitUntil,omitempty" jsonschema:"load condition: load, domcontentloaded, networkidle0 or networkidle2"`
}

// ContentType selects the extraction format for get_content.
const (
	ContentHTML = "html"
	ContentText = "text"
)

// GetContentArgs drives the get_content tool.
type GetContentArgs struct {
	Type     string `json:"type,omitempty" jsonschema:"content format: html or text (default text)"`
	Selector string `json:"selector,omitempty" jsonschema:"CSS selector to scope extraction to a single element"`
}

// FindSelectorArgs drives the find_selector tool.
type FindSelectorArgs struct {
	Text        string `json:"text" jsonschema:"visible text to search for"`
	ElementType string `json:"elementType,omitempty" jsonschema:"element hint: link, button, input, image, or a tag name"`
	Exact       bool   `json:"exact,omitempty" jsonschema:"require an exact text match instead of substring"`
}

// ClickArgs drives the click tool.
type ClickArgs struct {
	Selector          string `json:"selector" jsonschema:"CSS selector of the element to click"`
	WaitForNavigation bool   `json:"waitForNavigation,omitempty" jsonschema:"wait for a page load triggered by the click"`
}

// TypeArgs drives the type tool.
type TypeArgs struct {
	Selector string `json:"selector" jsonschema:"CSS selector of the input to type into"`
	Text     string `json:"text" jsonschema:"the text to type"`
	DelayMs  *int   `json:"delay,omitempty" jsonschema:"mean per-keystroke delay in milliseconds"`
}

// Wait condition kinds.
const (
	WaitSelector   = "selector"
	WaitNavigation = "navigation"
	WaitTimeout    = "timeout"
)

// WaitArgs drives the wait tool. Value is a CSS selector for type=selector, a
// millisecond count for type=timeout, and unused for type=navigation.
type WaitArgs struct {
	Type      string `json:"type" jsonschema:"wait kind: selector, navigation or timeout"`
	Value     string `json:"value,omitempty" jsonschema:"selector or millisecond count, depending on type"`
	TimeoutMs *int   `json:"timeout,omitempty" jsonschema:"upper bound for the wait in milliseconds"`
}

// ScreenshotArgs drives the screenshot tool.
type ScreenshotArgs struct {
	Selector string `json:"selector,omitempty" jsonschema:"CSS selector to capture a single element"`
	FullPage bool   `json:"fullPage,omitempty" jsonschema:"capture the full scrollable page"`
	Quality  *int   `json:"quality,omitempty" jsonschema:"JPEG quality 1-100 (jpeg format only)"`
	Format   string `json:"format,omitempty" jsonschema:"image format: png or jpeg (default png)"`
	Path     string `json:"path,omitempty" jsonschema:"optional file path to also save the image to"`
}

// Captcha kinds accepted by solve_captcha.
const (
	CaptchaRecaptcha = "recaptcha"
	CaptchaHCaptcha  = "hcaptcha"
	CaptchaTurnstile = "turnstile"
)

// SolveCaptchaArgs drives the solve_captcha tool.
type SolveCaptchaArgs struct {
	Type string `json:"type" jsonschema:"captcha kind: recaptcha, hcaptcha or turnstile"`
}

// RandomScrollArgs drives the random_scroll tool. No arguments today; the
// struct exists so the tool surface stays uniform.
type RandomScrollArgs struct{}

// BrowserCloseArgs drives the browser_close tool.
type BrowserCloseArgs struct{}
