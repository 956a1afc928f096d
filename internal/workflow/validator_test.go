// File: internal/workflow/validator_test.go
package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// advance drives the validator through a successful execution of each tool.
func advance(t *testing.T, v *Validator, tools ...string) {
	t.Helper()
	for _, tool := range tools {
		require.Nil(t, v.Validate(tool), "tool %s should be permitted", tool)
		v.RecordExecution(tool, nil, true, "")
	}
}

func TestValidator_HappyPath(t *testing.T) {
	v := NewValidator(zap.NewNop())
	assert.Equal(t, schemas.StateUninitialized, v.State())

	advance(t, v, schemas.ToolBrowserInit)
	assert.Equal(t, schemas.StateBrowserActive, v.State())

	advance(t, v, schemas.ToolNavigate)
	assert.Equal(t, schemas.StatePageLoaded, v.State())

	advance(t, v, schemas.ToolGetContent)
	assert.Equal(t, schemas.StateContentAnalyzed, v.State())

	advance(t, v, schemas.ToolClick)
	assert.Equal(t, schemas.StateInteractionReady, v.State())
}

func TestValidator_InteractionGatedOnAnalysis(t *testing.T) {
	for _, tool := range []string{schemas.ToolClick, schemas.ToolType} {
		t.Run(tool, func(t *testing.T) {
			v := NewValidator(zap.NewNop())
			advance(t, v, schemas.ToolBrowserInit, schemas.ToolNavigate)

			toolErr := v.Validate(tool)
			require.NotNil(t, toolErr)
			assert.Equal(t, schemas.ErrWorkflowViolation, toolErr.Kind)
			assert.Contains(t, toolErr.Message, "CONTENT_ANALYZED")
			assert.Contains(t, toolErr.Suggestion, "get_content")
			assert.Contains(t, toolErr.Trace, "PAGE_LOADED")
		})
	}
}

func TestValidator_UninitializedSession(t *testing.T) {
	v := NewValidator(zap.NewNop())

	toolErr := v.Validate(schemas.ToolNavigate)
	require.NotNil(t, toolErr)
	assert.Equal(t, schemas.ErrSessionUninitialized, toolErr.Kind)
	assert.Contains(t, toolErr.Suggestion, "browser_init")
}

func TestValidator_ScreenshotIsUngated(t *testing.T) {
	v := NewValidator(zap.NewNop())
	assert.Nil(t, v.Validate(schemas.ToolScreenshot))

	advance(t, v, schemas.ToolBrowserInit)
	assert.Nil(t, v.Validate(schemas.ToolScreenshot))
}

func TestValidator_FailedExecutionDoesNotAdvance(t *testing.T) {
	v := NewValidator(zap.NewNop())
	advance(t, v, schemas.ToolBrowserInit)

	v.RecordExecution(schemas.ToolNavigate, nil, false, "net::ERR_NAME_NOT_RESOLVED")
	assert.Equal(t, schemas.StateBrowserActive, v.State())

	history := v.History(0)
	require.Len(t, history, 2)
	assert.False(t, history[1].Success)
	assert.Equal(t, "net::ERR_NAME_NOT_RESOLVED", history[1].Error)
}

func TestValidator_RepeatedGetContentKeepsState(t *testing.T) {
	v := NewValidator(zap.NewNop())
	advance(t, v, schemas.ToolBrowserInit, schemas.ToolNavigate, schemas.ToolGetContent)
	require.Equal(t, schemas.StateContentAnalyzed, v.State())

	advance(t, v, schemas.ToolGetContent)
	assert.Equal(t, schemas.StateContentAnalyzed, v.State())

	// Interacting and then re-reading content must not regress past the
	// interaction state either.
	advance(t, v, schemas.ToolClick)
	advance(t, v, schemas.ToolGetContent)
	assert.Equal(t, schemas.StateInteractionReady, v.State())
}

func TestValidator_ResetClearsEverything(t *testing.T) {
	v := NewValidator(zap.NewNop())
	advance(t, v, schemas.ToolBrowserInit, schemas.ToolNavigate, schemas.ToolGetContent)

	v.Reset()
	assert.Equal(t, schemas.StateUninitialized, v.State())
	assert.Empty(t, v.History(0))

	toolErr := v.Validate(schemas.ToolNavigate)
	require.NotNil(t, toolErr)
	assert.Equal(t, schemas.ErrSessionUninitialized, toolErr.Kind)
}

func TestValidator_RejectionTraceIncludesRecentCalls(t *testing.T) {
	v := NewValidator(zap.NewNop())
	advance(t, v, schemas.ToolBrowserInit)
	v.RecordExecution(schemas.ToolNavigate, nil, false, "timeout")

	toolErr := v.Validate(schemas.ToolClick)
	require.NotNil(t, toolErr)
	assert.Contains(t, toolErr.Trace, "browser_init(ok)")
	assert.Contains(t, toolErr.Trace, "navigate(failed)")
}

func TestValidator_UnknownTool(t *testing.T) {
	v := NewValidator(zap.NewNop())
	toolErr := v.Validate("teleport")
	require.NotNil(t, toolErr)
	assert.Equal(t, schemas.ErrInvalidArgument, toolErr.Kind)
}

func TestValidator_HistoryWindow(t *testing.T) {
	v := NewValidator(zap.NewNop())
	advance(t, v, schemas.ToolBrowserInit)
	for i := 0; i < 10; i++ {
		v.RecordExecution(schemas.ToolScreenshot, nil, true, "")
	}

	assert.Len(t, v.History(3), 3)
	assert.Len(t, v.History(0), 11)
}

func TestValidator_HintTracksState(t *testing.T) {
	v := NewValidator(zap.NewNop())
	assert.Contains(t, v.Hint(), "browser_init")

	advance(t, v, schemas.ToolBrowserInit)
	assert.Contains(t, v.Hint(), "navigate")

	advance(t, v, schemas.ToolNavigate)
	assert.Contains(t, v.Hint(), "get_content")

	advance(t, v, schemas.ToolGetContent)
	assert.Contains(t, v.Hint(), "CONTENT_ANALYZED")
}
