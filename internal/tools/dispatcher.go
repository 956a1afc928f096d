// File: internal/tools/dispatcher.go

// Package tools routes tool invocations to their handlers, wrapping every
// call in workflow validation, execution recording and the uniform result
// envelope.
package tools

import (
	"context"
	"sync"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"github.com/xkilldash9x/lancet-mcp/internal/browser"
	"github.com/xkilldash9x/lancet-mcp/internal/config"
	"github.com/xkilldash9x/lancet-mcp/internal/content"
	"github.com/xkilldash9x/lancet-mcp/internal/discovery"
	"github.com/xkilldash9x/lancet-mcp/internal/humanoid"
	"github.com/xkilldash9x/lancet-mcp/internal/locator"
	"github.com/xkilldash9x/lancet-mcp/internal/workflow"
	"go.uber.org/zap"
)

// SessionFactory creates the browser driver for a new session. Injected so
// tests can substitute a spy for the real chromedp session.
type SessionFactory func(ctx context.Context, cfg config.BrowserConfig, nav config.NavigationConfig, ov browser.InitOverrides) (browser.Driver, error)

func defaultSessionFactory(ctx context.Context, cfg config.BrowserConfig, nav config.NavigationConfig, ov browser.InitOverrides) (browser.Driver, error) {
	return browser.NewSession(ctx, cfg, nav, ov, zap.L())
}

// Dispatcher owns the session and serializes every tool call against it.
// Handlers borrow the driver for one call and never retain it.
type Dispatcher struct {
	mu sync.Mutex

	cfg       *config.Config
	logger    *zap.Logger
	validator *workflow.Validator
	resolver  *locator.Resolver
	engine    *discovery.Engine
	pipeline  *content.Pipeline
	scroller  *humanoid.Scroller
	retry     *browser.RetryPolicy

	newSession SessionFactory
	driver     browser.Driver
}

// NewDispatcher wires the full production component graph.
func NewDispatcher(cfg *config.Config, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("dispatcher")
	estimator := content.NewEstimator(cfg.Content.Encoding, logger)
	return &Dispatcher{
		cfg:        cfg,
		logger:     log,
		validator:  workflow.NewValidator(logger),
		resolver:   locator.NewResolver(logger),
		engine:     discovery.NewEngine(logger),
		pipeline:   content.NewPipeline(estimator, cfg.Content.MaxTokens, logger),
		scroller:   humanoid.NewScroller(cfg.Browser.Humanoid, 0),
		retry:      browser.NewRetryPolicy(cfg.Navigation.RetryAttempts, cfg.Navigation.InitialBackoff, logger),
		newSession: defaultSessionFactory,
	}
}

// WithSessionFactory substitutes the driver constructor. Test hook.
func (d *Dispatcher) WithSessionFactory(f SessionFactory) *Dispatcher {
	d.newSession = f
	return d
}

// State exposes the current workflow state for diagnostics.
func (d *Dispatcher) State() schemas.WorkflowState {
	return d.validator.State()
}

// Dispatch runs one tool call through the full lifecycle: decode, validate,
// execute, record. It always returns a usable envelope; failures are carried
// inside it, never as transport faults.
func (d *Dispatcher) Dispatch(ctx context.Context, tool string, args map[string]interface{}) schemas.ToolResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	result := schemas.ToolResult{Tool: tool}

	// Argument decoding happens before workflow gating so malformed calls
	// never pollute the execution history.
	handler, toolErr := d.route(tool, args)
	if toolErr != nil {
		result.Err = toolErr
		d.logger.Warn("tool arguments rejected",
			zap.String("tool", tool),
			zap.String("kind", string(toolErr.Kind)))
		return result
	}

	if toolErr := d.validator.Validate(tool); toolErr != nil {
		d.validator.RecordExecution(tool, args, false, toolErr.Error())
		result.Err = toolErr
		d.logger.Info("tool rejected by workflow gate",
			zap.String("tool", tool),
			zap.String("kind", string(toolErr.Kind)))
		return result
	}

	text, image, execErr := handler(ctx)
	if execErr != nil {
		d.validator.RecordExecution(tool, args, false, execErr.Error())
		result.Err = execErr
		d.logger.Warn("tool execution failed",
			zap.String("tool", tool),
			zap.String("kind", string(execErr.Kind)))
		return result
	}

	d.validator.RecordExecution(tool, args, true, "")
	result.Text = text
	result.Image = image
	result.Hint = d.validator.Hint()
	d.logger.Info("tool executed",
		zap.String("tool", tool),
		zap.Stringer("state", d.validator.State()))
	return result
}

// handlerFunc executes one validated tool call.
type handlerFunc func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError)

// route decodes the raw arguments into the tool's typed form and binds the
// matching handler. A decode failure is an invalid_argument rejection.
func (d *Dispatcher) route(tool string, args map[string]interface{}) (handlerFunc, *schemas.ToolError) {
	decode := func(v interface{}) *schemas.ToolError {
		if err := schemas.FromMap(args, v); err != nil {
			return &schemas.ToolError{
				Kind:       schemas.ErrInvalidArgument,
				Message:    "malformed arguments for " + tool + ": " + err.Error(),
				Suggestion: "check the argument names and types against the tool schema",
			}
		}
		return nil
	}

	switch tool {
	case schemas.ToolBrowserInit:
		var a schemas.BrowserInitArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleBrowserInit(ctx, a)
		}, nil
	case schemas.ToolNavigate:
		var a schemas.NavigateArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if e := validateNavigateArgs(a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleNavigate(ctx, a)
		}, nil
	case schemas.ToolGetContent:
		var a schemas.GetContentArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if e := validateContentArgs(a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleGetContent(ctx, a)
		}, nil
	case schemas.ToolFindSelector:
		var a schemas.FindSelectorArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if a.Text == "" {
			return nil, schemas.NewToolError(schemas.ErrInvalidArgument, "find_selector requires non-empty text")
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleFindSelector(ctx, a)
		}, nil
	case schemas.ToolClick:
		var a schemas.ClickArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if a.Selector == "" {
			return nil, schemas.NewToolError(schemas.ErrInvalidArgument, "click requires a selector")
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleClick(ctx, a)
		}, nil
	case schemas.ToolType:
		var a schemas.TypeArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if a.Selector == "" {
			return nil, schemas.NewToolError(schemas.ErrInvalidArgument, "type requires a selector")
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleType(ctx, a)
		}, nil
	case schemas.ToolWait:
		var a schemas.WaitArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if e := validateWaitArgs(a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleWait(ctx, a)
		}, nil
	case schemas.ToolScreenshot:
		var a schemas.ScreenshotArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if e := validateScreenshotArgs(a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleScreenshot(ctx, a)
		}, nil
	case schemas.ToolSolveCaptcha:
		var a schemas.SolveCaptchaArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		if e := validateCaptchaArgs(a); e != nil {
			return nil, e
		}
		return func(ctx context.Context) (string, *schemas.ImagePayload, *schemas.ToolError) {
			return d.handleSolveCaptcha(ctx, a)
		}, nil
	case schemas.ToolRandomScroll:
		var a schemas.RandomScrollArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		return d.handleRandomScroll, nil
	case schemas.ToolBrowserClose:
		var a schemas.BrowserCloseArgs
		if e := decode(&a); e != nil {
			return nil, e
		}
		return d.handleBrowserClose, nil
	default:
		return nil, &schemas.ToolError{
			Kind:       schemas.ErrInvalidArgument,
			Message:    "unknown tool " + tool,
			Suggestion: "use one of the registered browser tools",
		}
	}
}
