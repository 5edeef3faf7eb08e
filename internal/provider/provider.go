// Package provider adapts model completion endpoints to the conversation
// model used by the engine.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/tools"
)

// StopReason is the provider's reason for ending a completion. Only
// StopToolUse changes engine behaviour.
type StopReason string

const (
	StopToolUse   StopReason = "tool_use"
	StopEndTurn   StopReason = "end_turn"
	StopMaxTokens StopReason = "max_tokens"
)

const DefaultMaxTokens int64 = 1024

// Request is one completion call. Tools is nil when no tools are registered,
// in which case adapters send no tool configuration at all.
type Request struct {
	Model     string
	Messages  []conversation.Message
	Tools     []tools.Declaration
	MaxTokens int64
}

// Response carries the assistant message, or nil when the provider returned
// nothing usable.
type Response struct {
	Message    *conversation.Message
	StopReason StopReason
}

// Provider sends the full conversation to a model.
type Provider interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// ThrottledError reports a rate-limit or overload response. The same request
// may be sent again after a pause.
type ThrottledError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ThrottledError) Error() string {
	return fmt.Sprintf("%s: throttled (status %d): %v", e.Provider, e.StatusCode, e.Err)
}

func (e *ThrottledError) Unwrap() error { return e.Err }

// Error is any other provider failure. It is not retried.
type Error struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsThrottled reports whether err (or anything it wraps) is a ThrottledError.
func IsThrottled(err error) bool {
	var t *ThrottledError
	return errors.As(err, &t)
}

// classify maps an HTTP status to the matching error type.
func classify(name string, status int, err error) error {
	switch status {
	case 429, 529:
		return &ThrottledError{Provider: name, StatusCode: status, Err: err}
	default:
		return &Error{Provider: name, StatusCode: status, Err: err}
	}
}

func maxTokens(req Request) int64 {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}
