package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tidwall/pretty"

	"github.com/petasbytes/go-mcp-agent/internal/metrics"
	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
)

const nullResultText = "Tool returned non-standard or null data."

var canonicalOpts = &pretty.Options{SortKeys: true}

// pendingCall is the shared outcome of one invocation.
type pendingCall struct {
	done    chan struct{}
	content string
	err     error
}

// callGroup collapses identical tool calls within one tool-use round. Keys
// stay in the map after completion, so a late duplicate still reuses the
// result. A group must not outlive its round.
type callGroup struct {
	inv   *Invoker
	mu    sync.Mutex
	calls map[string]*pendingCall
}

func newCallGroup(inv *Invoker) *callGroup {
	return &callGroup{inv: inv, calls: make(map[string]*pendingCall)}
}

// do returns the rendered result for (name, args), invoking the tool only for
// the first caller with that key. shared is true for reused results.
func (g *callGroup) do(ctx context.Context, name string, args json.RawMessage) (content string, shared bool, err error) {
	key := callKey(name, args)

	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		<-c.done
		return c.content, true, c.err
	}
	c := &pendingCall{done: make(chan struct{})}
	g.calls[key] = c
	g.mu.Unlock()

	start := time.Now()
	v, attempts, err := g.inv.invoke(ctx, name, args)
	if err == nil {
		c.content = renderResult(v)
	}
	c.err = err
	close(c.done)

	turnID, _ := telemetry.TurnIDFromContext(ctx)
	fields := map[string]any{
		"tool_name":   name,
		"duration_ms": time.Since(start).Milliseconds(),
		"input_size":  len(args),
		"attempts":    attempts,
		"turn_id":     turnID,
		"error":       nil,
	}
	metrics.Measure(c.content).AddTo(fields, "output")
	if err != nil {
		fields["error"] = "tool error"
	}
	telemetry.Emit("tool_exec", fields)

	return c.content, false, c.err
}

// callKey is the tool name plus the arguments as compact JSON with sorted
// keys, so formatting and key order do not defeat deduplication.
func callKey(name string, args json.RawMessage) string {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = []byte("{}")
	}
	canon := pretty.Ugly(pretty.PrettyOptions(trimmed, canonicalOpts))
	return name + "\x00" + string(canon)
}

func renderResult(v any) string {
	switch r := v.(type) {
	case nil:
		return nullResultText
	case string:
		return r
	case json.RawMessage:
		if len(r) == 0 || string(r) == "null" {
			return nullResultText
		}
		return string(r)
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(b)
	}
}

func errorResultText(name, id string, err error) string {
	msg := err.Error()
	var te *ToolExecutionError
	if errors.As(err, &te) && te.Err != nil {
		msg = te.Err.Error()
	}
	return fmt.Sprintf("Error during tool execution for %s (ID: %s): %s", name, id, msg)
}
