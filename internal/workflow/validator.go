// File: internal/workflow/validator.go

// Package workflow tracks the coarse phase of the browser session and gates
// every incoming tool call against it. The phase only moves forward through
// successful tool executions; closing the browser is the one operation that
// forces it back to the start.
package workflow

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/xkilldash9x/lancet-mcp/api/schemas"
	"go.uber.org/zap"
)

// historyWindow is how many trailing execution records a rejection message
// includes so the caller can see how it got into the current state.
const historyWindow = 5

// Record is one logged tool invocation outcome. Records are append-only and
// never mutated after insertion; Reset discards them wholesale.
type Record struct {
	Tool      string
	Arguments map[string]interface{}
	Success   bool
	Error     string
	Timestamp time.Time
}

// requirement describes the gate and the success transition for one tool.
type requirement struct {
	// minState is the lowest state the tool may run in. Tools with no gate
	// use StateUninitialized, which every session satisfies.
	minState schemas.WorkflowState
	// next computes the state after a successful execution.
	next func(cur schemas.WorkflowState) schemas.WorkflowState
}

func unchanged(cur schemas.WorkflowState) schemas.WorkflowState { return cur }

// atLeast advances to s unless the session is already past it. Repeating
// get_content after an interaction must not drag the state backward.
func atLeast(s schemas.WorkflowState) func(schemas.WorkflowState) schemas.WorkflowState {
	return func(cur schemas.WorkflowState) schemas.WorkflowState {
		if cur > s {
			return cur
		}
		return s
	}
}

func exactly(s schemas.WorkflowState) func(schemas.WorkflowState) schemas.WorkflowState {
	return func(schemas.WorkflowState) schemas.WorkflowState { return s }
}

// requirements is the fixed transition table. Screenshot is deliberately
// ungated so it stays usable as a diagnostic at any point in the session.
var requirements = map[string]requirement{
	schemas.ToolBrowserInit:  {schemas.StateUninitialized, exactly(schemas.StateBrowserActive)},
	schemas.ToolNavigate:     {schemas.StateBrowserActive, exactly(schemas.StatePageLoaded)},
	schemas.ToolGetContent:   {schemas.StatePageLoaded, atLeast(schemas.StateContentAnalyzed)},
	schemas.ToolFindSelector: {schemas.StateContentAnalyzed, unchanged},
	schemas.ToolClick:        {schemas.StateContentAnalyzed, exactly(schemas.StateInteractionReady)},
	schemas.ToolType:         {schemas.StateContentAnalyzed, exactly(schemas.StateInteractionReady)},
	schemas.ToolWait:         {schemas.StateBrowserActive, unchanged},
	schemas.ToolScreenshot:   {schemas.StateUninitialized, unchanged},
	schemas.ToolRandomScroll: {schemas.StateBrowserActive, unchanged},
	schemas.ToolSolveCaptcha: {schemas.StateBrowserActive, unchanged},
	schemas.ToolBrowserClose: {schemas.StateUninitialized, exactly(schemas.StateUninitialized)},
}

// Validator owns the session state and the execution history. The dispatcher
// serializes tool calls, but the mutex keeps reads from diagnostics and tests
// safe regardless.
type Validator struct {
	mu      sync.Mutex
	state   schemas.WorkflowState
	history []Record
	logger  *zap.Logger
}

// NewValidator returns a validator in the UNINITIALIZED state with empty
// history.
func NewValidator(logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{
		state:  schemas.StateUninitialized,
		logger: logger.Named("workflow"),
	}
}

// State returns the current workflow state.
func (v *Validator) State() schemas.WorkflowState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Validate checks whether the tool may run in the current state. It is a pure
// read; it never mutates state or history. A nil return means the call may
// proceed.
func (v *Validator) Validate(tool string) *schemas.ToolError {
	v.mu.Lock()
	defer v.mu.Unlock()

	req, ok := requirements[tool]
	if !ok {
		return schemas.NewToolError(schemas.ErrInvalidArgument, "unknown tool %q", tool)
	}
	if v.state >= req.minState {
		return nil
	}

	if v.state == schemas.StateUninitialized {
		return &schemas.ToolError{
			Kind:       schemas.ErrSessionUninitialized,
			Message:    fmt.Sprintf("%s requires an active browser session, but none has been started", tool),
			Suggestion: "call browser_init first",
			Trace:      v.stateDumpLocked(),
		}
	}

	return &schemas.ToolError{
		Kind:       schemas.ErrWorkflowViolation,
		Message:    fmt.Sprintf("%s requires workflow state %s or later, but the session is in %s", tool, req.minState, v.state),
		Suggestion: v.suggestionLocked(req.minState),
		Trace:      v.stateDumpLocked(),
	}
}

// RecordExecution appends an execution record and, on success, advances the
// workflow state according to the transition table. Failed executions are
// recorded but never move the state.
func (v *Validator) RecordExecution(tool string, args map[string]interface{}, success bool, errMsg string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.history = append(v.history, Record{
		Tool:      tool,
		Arguments: args,
		Success:   success,
		Error:     errMsg,
		Timestamp: time.Now(),
	})

	if !success {
		return
	}
	req, ok := requirements[tool]
	if !ok {
		return
	}
	prev := v.state
	v.state = req.next(prev)
	if v.state != prev {
		v.logger.Debug("workflow state advanced",
			zap.String("tool", tool),
			zap.Stringer("from", prev),
			zap.Stringer("to", v.state))
	}
}

// Reset clears the history and returns the state to UNINITIALIZED. Called
// whenever the browser session is torn down, whether the close succeeded or
// not.
func (v *Validator) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = schemas.StateUninitialized
	v.history = nil
	v.logger.Debug("workflow state reset")
}

// History returns a copy of the most recent n execution records, oldest
// first. n <= 0 returns the full history.
func (v *Validator) History(n int) []Record {
	v.mu.Lock()
	defer v.mu.Unlock()
	records := v.history
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out
}

// Hint describes the recommended next tool for the current state. Handlers
// embed it into every successful result so a turn-based caller stays on the
// happy path.
func (v *Validator) Hint() string {
	v.mu.Lock()
	defer v.mu.Unlock()

	switch v.state {
	case schemas.StateUninitialized:
		return "state=UNINITIALIZED; call browser_init to start a session"
	case schemas.StateBrowserActive:
		return "state=BROWSER_ACTIVE; call navigate to load a page"
	case schemas.StatePageLoaded:
		return "state=PAGE_LOADED; call get_content to analyze the page before interacting"
	case schemas.StateContentAnalyzed:
		return "state=CONTENT_ANALYZED; click, type and find_selector are now available"
	case schemas.StateInteractionReady:
		return "state=INTERACTION_READY; call get_content to re-analyze if the page changed"
	default:
		return "state=" + v.state.String()
	}
}

// suggestionLocked maps the missing precondition to the concrete call that
// satisfies it. Callers must hold v.mu.
func (v *Validator) suggestionLocked(need schemas.WorkflowState) string {
	switch {
	case need == schemas.StatePageLoaded && v.state == schemas.StateBrowserActive:
		return "call navigate to load a page first"
	case need == schemas.StateContentAnalyzed && v.state == schemas.StateBrowserActive:
		return "call navigate and then get_content before interacting with elements"
	case need == schemas.StateContentAnalyzed && v.state == schemas.StatePageLoaded:
		return "call get_content to analyze the page before interacting with elements"
	default:
		return "call browser_init to start a session"
	}
}

// stateDumpLocked renders the current state plus the trailing execution
// records for embedding into rejection messages. Callers must hold v.mu.
func (v *Validator) stateDumpLocked() string {
	var b strings.Builder
	fmt.Fprintf(&b, "current state: %s", v.state)
	records := v.history
	if len(records) > historyWindow {
		records = records[len(records)-historyWindow:]
	}
	if len(records) == 0 {
		b.WriteString("; no tools executed yet")
		return b.String()
	}
	b.WriteString("; recent calls:")
	for _, r := range records {
		outcome := "ok"
		if !r.Success {
			outcome = "failed"
		}
		fmt.Fprintf(&b, " %s(%s)", r.Tool, outcome)
	}
	return b.String()
}
