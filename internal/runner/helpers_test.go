package runner_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/tools"
)

// fakeTools is a tools.Provider backed by per-name handlers. It counts calls.
type fakeTools struct {
	mu       sync.Mutex
	handlers map[string]func(args json.RawMessage) (any, error)
	calls    map[string]int
}

func newFakeTools() *fakeTools {
	return &fakeTools{
		handlers: map[string]func(json.RawMessage) (any, error){},
		calls:    map[string]int{},
	}
}

func (f *fakeTools) on(name string, h func(args json.RawMessage) (any, error)) *fakeTools {
	f.handlers[name] = h
	return f
}

func (f *fakeTools) ListTools(context.Context) ([]tools.Descriptor, error) {
	var out []tools.Descriptor
	for name := range f.handlers {
		out = append(out, tools.Descriptor{Name: name, InputSchema: `{"type":"object"}`})
	}
	return out, nil
}

func (f *fakeTools) CallTool(_ context.Context, name string, args json.RawMessage) (any, error) {
	f.mu.Lock()
	f.calls[name]++
	h, ok := f.handlers[name]
	f.mu.Unlock()
	if !ok {
		return nil, tools.ErrToolNotFound
	}
	return h(args)
}

func (f *fakeTools) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

// failN fails the first n calls, then returns v.
func failN(n int, v any, errs ...error) func(json.RawMessage) (any, error) {
	var mu sync.Mutex
	calls := 0
	return func(json.RawMessage) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls <= n {
			if len(errs) >= calls {
				return nil, errs[calls-1]
			}
			return nil, errors.New("transient failure")
		}
		return v, nil
	}
}

type step struct {
	resp provider.Response
	err  error
}

// scriptedModel replays steps in order and records every request.
type scriptedModel struct {
	mu       sync.Mutex
	steps    []step
	requests []provider.Request
}

func (m *scriptedModel) Send(_ context.Context, req provider.Request) (provider.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if len(m.steps) == 0 {
		return provider.Response{}, errors.New("scriptedModel: no more steps")
	}
	s := m.steps[0]
	if len(m.steps) > 1 {
		m.steps = m.steps[1:]
	}
	return s.resp, s.err
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// sleepRecorder replaces real waits and records requested delays.
type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	return ctx.Err()
}

func (s *sleepRecorder) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func text(s string) provider.Response {
	msg := conversation.Message{Role: conversation.RoleAssistant, Content: []conversation.Block{conversation.Text{Text: s}}}
	return provider.Response{Message: &msg, StopReason: provider.StopEndTurn}
}

func toolUse(uses ...conversation.ToolUse) provider.Response {
	msg := conversation.Message{Role: conversation.RoleAssistant}
	for _, u := range uses {
		msg.Content = append(msg.Content, u)
	}
	return provider.Response{Message: &msg, StopReason: provider.StopToolUse}
}

func use(id, name, args string) conversation.ToolUse {
	return conversation.ToolUse{ID: id, Name: name, Input: json.RawMessage(args)}
}

// toolResults collects tool results from history keyed by tool_use id.
func toolResults(h *conversation.History) map[string]conversation.ToolResult {
	out := map[string]conversation.ToolResult{}
	for _, m := range h.Messages() {
		for _, b := range m.Content {
			if r, ok := b.(conversation.ToolResult); ok {
				out[r.ToolUseID] = r
			}
		}
	}
	return out
}
