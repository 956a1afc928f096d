// File: internal/server/server.go

// Package server exposes the browser tool surface over MCP stdio. All
// protocol traffic rides stdout; logging stays on stderr.
package server

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"github.com/xkilldash9x/lancet-mcp/internal/config"
	"github.com/xkilldash9x/lancet-mcp/internal/tools"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	// Name identifies this server to MCP hosts.
	Name = "lancet"
	// Version is the protocol-visible server version.
	Version = "0.1.0"
)

// Server binds the tool dispatcher to an MCP server instance.
type Server struct {
	dispatcher *tools.Dispatcher
	logger     *zap.Logger
	mcp        *mcp.Server
}

// New builds the server and registers every tool.
func New(cfg *config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	name, version := cfg.Server.Name, cfg.Server.Version
	if name == "" {
		name = Name
	}
	if version == "" || version == "dev" {
		version = Version
	}
	s := &Server{
		dispatcher: tools.NewDispatcher(cfg, logger),
		logger:     logger.Named("server"),
		mcp: mcp.NewServer(&mcp.Implementation{
			Name:    name,
			Version: version,
		}, nil),
	}
	s.register()
	return s
}

// Dispatcher exposes the underlying dispatcher. Test hook.
func (s *Server) Dispatcher() *tools.Dispatcher { return s.dispatcher }

// register wires each tool name to its typed argument struct. The dispatcher
// owns validation and sequencing; this layer only translates envelopes.
func (s *Server) register() {
	addTool[schemas.BrowserInitArgs](s, schemas.ToolBrowserInit,
		"Start a browser session. Must be called before any other browser tool.")
	addTool[schemas.NavigateArgs](s, schemas.ToolNavigate,
		"Navigate the browser to a URL. Requires an active session; retries transient failures automatically.")
	addTool[schemas.GetContentArgs](s, schemas.ToolGetContent,
		"Extract page content as text or HTML, truncated to the configured token budget. Call this after navigate and before interacting with elements.")
	addTool[schemas.FindSelectorArgs](s, schemas.ToolFindSelector,
		"Discover CSS selectors for an element by its visible text, ranked by confidence.")
	addTool[schemas.ClickArgs](s, schemas.ToolClick,
		"Click an element. If the selector fails, fallback strategies try to self-heal it. Requires get_content first.")
	addTool[schemas.TypeArgs](s, schemas.ToolType,
		"Type text into an input element with human-like keystroke timing. Requires get_content first.")
	addTool[schemas.WaitArgs](s, schemas.ToolWait,
		"Wait for a selector to become visible, for navigation to settle, or for a fixed duration.")
	addTool[schemas.ScreenshotArgs](s, schemas.ToolScreenshot,
		"Capture a screenshot of the page, the full scroll height, or a single element.")
	addTool[schemas.SolveCaptchaArgs](s, schemas.ToolSolveCaptcha,
		"Detect a captcha challenge on the current page. Detection is best effort.")
	addTool[schemas.RandomScrollArgs](s, schemas.ToolRandomScroll,
		"Scroll the page in randomized human-like steps.")
	addTool[schemas.BrowserCloseArgs](s, schemas.ToolBrowserClose,
		"Close the browser session and reset the workflow state.")
}

// addTool registers one tool whose arguments decode into In. The typed
// arguments round-trip through the untyped map the dispatcher consumes, so
// the dispatcher stays transport-agnostic.
func addTool[In any](s *Server, name, description string) {
	handler := func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, any, error) {
		args, err := schemas.ToMap(in)
		if err != nil {
			s.logger.Error("argument round-trip failed",
				zap.String("tool", name), zap.Error(err))
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "internal: malformed arguments: " + err.Error()}},
				IsError: true,
			}, nil, nil
		}
		result := s.dispatcher.Dispatch(ctx, name, args)
		return renderResult(result), nil, nil
	}
	mcp.AddTool(s.mcp, &mcp.Tool{Name: name, Description: description}, handler)
}

// renderResult flattens a dispatch envelope into MCP content. Failures are
// carried as IsError content so the host model can read and react to them,
// never as protocol faults.
func renderResult(result schemas.ToolResult) *mcp.CallToolResult {
	content := []mcp.Content{&mcp.TextContent{Text: result.RenderText()}}
	if result.Image != nil {
		content = append(content, &mcp.ImageContent{
			Data:     result.Image.Data,
			MIMEType: result.Image.MIMEType,
		})
	}
	return &mcp.CallToolResult{Content: content, IsError: result.IsError()}
}

// Run serves MCP over stdio until the context is canceled or the host closes
// the stream. The browser is always torn down on the way out.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("serving MCP on stdio",
		zap.String("name", Name), zap.String("version", Version))

	g, runCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.mcp.Run(runCtx, &mcp.StdioTransport{})
	})
	err := g.Wait()

	// Stream teardown must not leave a Chrome process behind.
	closeRes := s.dispatcher.Dispatch(context.Background(), schemas.ToolBrowserClose, nil)
	if closeRes.IsError() {
		s.logger.Warn("browser teardown on shutdown failed",
			zap.String("detail", closeRes.RenderText()))
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("mcp server stopped", zap.Error(err))
		return err
	}
	s.logger.Info("mcp server stopped")
	return nil
}
