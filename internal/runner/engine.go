package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc/pool"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
	"github.com/petasbytes/go-mcp-agent/tools"
)

const (
	DefaultThrottleDelay = 2500 * time.Millisecond
	DefaultMaxToolRounds = 25
	DefaultConcurrency   = 8
)

type Options struct {
	Model     string
	MaxTokens int64

	ThrottleDelay time.Duration
	// MaxThrottleRetries caps resends of a throttled request; 0 retries forever.
	MaxThrottleRetries int
	// MaxToolRounds is how many tool rounds Converse runs before stopping.
	// The round that exceeds it is still resolved, then ErrToolRoundLimit
	// is returned.
	MaxToolRounds int
	// Concurrency bounds the tool calls of one round that run at once.
	Concurrency int

	Sleep SleepFunc // nil uses a timer
}

// Result describes how a Converse call ended.
type Result struct {
	Answer     string
	HasAnswer  bool
	StopReason provider.StopReason
	Rounds     int
}

// Engine runs the model/tool loop over a conversation history.
type Engine struct {
	model    provider.Provider
	registry *tools.Registry
	invoker  *Invoker
	opts     Options
	log      zerolog.Logger
}

func NewEngine(model provider.Provider, registry *tools.Registry, invoker *Invoker, opts Options, log zerolog.Logger) *Engine {
	if opts.ThrottleDelay <= 0 {
		opts.ThrottleDelay = DefaultThrottleDelay
	}
	if opts.MaxToolRounds <= 0 {
		opts.MaxToolRounds = DefaultMaxToolRounds
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	return &Engine{model: model, registry: registry, invoker: invoker, opts: opts, log: log}
}

// Converse sends h to the model and keeps resolving tool calls until the
// model stops asking for tools. The caller appends the human message first.
//
// Errors: *provider.Error for non-throttle provider failures,
// ErrThrottleLimit when a throttle cap is set and exhausted, and
// ErrToolRoundLimit when the model exceeds the tool round budget.
func (e *Engine) Converse(ctx context.Context, h *conversation.History) (Result, error) {
	ctx, turnID := telemetry.EnsureTurnID(ctx)
	log := e.log.With().Str("turn_id", turnID).Logger()

	var res Result
	for {
		resp, err := e.send(ctx, h, turnID, log)
		if err != nil {
			return res, err
		}
		res.StopReason = resp.StopReason

		if resp.Message == nil {
			log.Warn().Str("stop_reason", string(resp.StopReason)).Msg("model response carried no message")
			return res, nil
		}
		if err := h.Append(*resp.Message); err != nil {
			return res, fmt.Errorf("runner: append model response: %w", err)
		}

		uses := resp.Message.ToolUses()
		if resp.StopReason != provider.StopToolUse || len(uses) == 0 {
			if resp.StopReason == provider.StopToolUse {
				log.Warn().Msg("tool_use stop reason without tool_use blocks")
			}
			if text, ok := resp.Message.FirstText(); ok {
				res.Answer, res.HasAnswer = text, true
			}
			return res, nil
		}

		res.Rounds++
		if err := e.runTools(ctx, h, uses, log); err != nil {
			return res, err
		}
		if res.Rounds > e.opts.MaxToolRounds {
			log.Warn().Int("rounds", res.Rounds).Msg("tool round limit reached")
			return res, fmt.Errorf("%w: %d rounds", ErrToolRoundLimit, res.Rounds)
		}
	}
}

// send posts the current history, waiting out throttling. Nothing is
// appended while retrying, so every resend carries the same messages.
func (e *Engine) send(ctx context.Context, h *conversation.History, turnID string, log zerolog.Logger) (provider.Response, error) {
	req := provider.Request{
		Model:     e.opts.Model,
		Messages:  h.Messages(),
		MaxTokens: e.opts.MaxTokens,
	}
	if e.registry != nil {
		req.Tools = e.registry.ProviderFormat()
	}

	for retries := 0; ; retries++ {
		start := time.Now()
		resp, err := e.model.Send(ctx, req)
		fields := map[string]any{
			"turn_id":     turnID,
			"model":       req.Model,
			"messages":    len(req.Messages),
			"tools":       len(req.Tools),
			"duration_ms": time.Since(start).Milliseconds(),
			"stop_reason": string(resp.StopReason),
			"error":       nil,
		}
		if err != nil {
			fields["error"] = "provider error"
		}
		telemetry.Emit("model_request", fields)

		if err == nil {
			return resp, nil
		}
		if !provider.IsThrottled(err) {
			var perr *provider.Error
			if !errors.As(err, &perr) {
				err = &provider.Error{Provider: "unknown", Err: err}
			}
			return provider.Response{}, err
		}
		if e.opts.MaxThrottleRetries > 0 && retries >= e.opts.MaxThrottleRetries {
			return provider.Response{}, fmt.Errorf("%w (%d retries): %w", ErrThrottleLimit, retries, err)
		}

		log.Warn().Err(err).Dur("retry_in", e.opts.ThrottleDelay).Int("retry", retries+1).Msg("model throttled; waiting")
		telemetry.Emit("model_throttled", map[string]any{
			"turn_id":  turnID,
			"retry":    retries + 1,
			"delay_ms": e.opts.ThrottleDelay.Milliseconds(),
		})
		if serr := e.opts.Sleep(ctx, e.opts.ThrottleDelay); serr != nil {
			return provider.Response{}, serr
		}
	}
}

// runTools resolves every tool use of one round concurrently through a fresh
// callGroup and appends each result as soon as it is ready.
func (e *Engine) runTools(ctx context.Context, h *conversation.History, uses []conversation.ToolUse, log zerolog.Logger) error {
	group := newCallGroup(e.invoker)
	p := pool.New().WithMaxGoroutines(e.opts.Concurrency)

	var (
		mu   sync.Mutex
		errs []error
	)
	for _, use := range uses {
		p.Go(func() {
			result := conversation.ToolResult{ToolUseID: use.ID}
			content, shared, err := group.do(ctx, use.Name, use.Input)
			if err != nil {
				result.Content = errorResultText(use.Name, use.ID, err)
				result.IsError = true
			} else {
				result.Content = content
			}
			log.Debug().Str("tool", use.Name).Str("id", use.ID).Bool("shared", shared).Bool("is_error", result.IsError).Msg("tool call resolved")

			if aerr := h.Append(conversation.UserToolResult(result)); aerr != nil {
				mu.Lock()
				errs = append(errs, aerr)
				mu.Unlock()
			}
		})
	}
	p.Wait()

	if len(errs) > 0 {
		return fmt.Errorf("runner: append tool result: %w", errors.Join(errs...))
	}
	return nil
}
