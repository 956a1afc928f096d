// File: api/schemas/results.go
package schemas

import "fmt"

// ErrorKind classifies a tool failure. The kind is part of the external
// contract: callers pattern-match on it to decide retry vs. escalate vs.
// change approach.
type ErrorKind string

const (
	ErrWorkflowViolation      ErrorKind = "workflow_violation"
	ErrElementNotFound        ErrorKind = "element_not_found"
	ErrTransientDriverFailure ErrorKind = "transient_driver_failure"
	ErrInvalidArgument        ErrorKind = "invalid_argument"
	ErrSessionUninitialized   ErrorKind = "session_uninitialized"
	ErrDriverFailure          ErrorKind = "driver_failure"
	ErrInternal               ErrorKind = "internal"
)

// ToolError is the structured failure payload returned to the caller. It is
// always rendered as actionable text, never as a bare transport fault.
type ToolError struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	Suggestion string    `json:"suggestion,omitempty"`
	// Trace carries supporting diagnostics, e.g. the full fallback-strategy
	// trace for element_not_found. Only populated on the failure path.
	Trace string `json:"trace,omitempty"`
}

// Error implements the error interface so ToolError can flow through normal
// error returns inside handlers.
func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Render flattens the error into the single text payload sent to the host.
func (e *ToolError) Render() string {
	out := fmt.Sprintf("Error (%s): %s", e.Kind, e.Message)
	if e.Trace != "" {
		out += "\n" + e.Trace
	}
	if e.Suggestion != "" {
		out += "\nSuggested next action: " + e.Suggestion
	}
	return out
}

// NewToolError builds a ToolError with a formatted message.
func NewToolError(kind ErrorKind, format string, args ...interface{}) *ToolError {
	return &ToolError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ToolResult is the uniform envelope every tool call returns. Exactly one of
// Text or Image is the primary payload; Err is set when the call failed.
type ToolResult struct {
	Tool  string        `json:"tool"`
	Text  string        `json:"text,omitempty"`
	Image *ImagePayload `json:"image,omitempty"`
	Err   *ToolError    `json:"error,omitempty"`
	// Hint describes the recommended next tool call, keeping a turn-based
	// caller on the happy path without out-of-band documentation.
	Hint string `json:"workflowHint,omitempty"`
}

// IsError reports whether the result carries a failure.
func (r ToolResult) IsError() bool { return r.Err != nil }

// RenderText produces the final text body for the transport layer.
func (r ToolResult) RenderText() string {
	if r.Err != nil {
		return r.Err.Render()
	}
	out := r.Text
	if r.Hint != "" {
		out += "\n\nWorkflow: " + r.Hint
	}
	return out
}
