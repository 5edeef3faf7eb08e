package runner

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-mcp-agent/tools"
)

const (
	DefaultMaxAttempts    = 3
	DefaultInitialBackoff = time.Second
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type InvokerOptions struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Sleep          SleepFunc // nil uses a timer
}

// Invoker executes single tool calls with bounded retry and doubling backoff.
type Invoker struct {
	tools       tools.Provider
	maxAttempts int
	backoff     time.Duration
	sleep       SleepFunc
	log         zerolog.Logger
}

func NewInvoker(p tools.Provider, opts InvokerOptions, log zerolog.Logger) *Invoker {
	inv := &Invoker{
		tools:       p,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.InitialBackoff,
		sleep:       opts.Sleep,
		log:         log,
	}
	if inv.maxAttempts <= 0 {
		inv.maxAttempts = DefaultMaxAttempts
	}
	if inv.backoff <= 0 {
		inv.backoff = DefaultInitialBackoff
	}
	if inv.sleep == nil {
		inv.sleep = sleepCtx
	}
	return inv
}

// Invoke calls the tool until it succeeds or the attempts are used up, in
// which case the error is a *ToolExecutionError wrapping the last failure.
func (inv *Invoker) Invoke(ctx context.Context, name string, args json.RawMessage) (any, error) {
	v, _, err := inv.invoke(ctx, name, args)
	return v, err
}

func (inv *Invoker) invoke(ctx context.Context, name string, args json.RawMessage) (any, int, error) {
	delay := inv.backoff
	var lastErr error
	for attempt := 1; attempt <= inv.maxAttempts; attempt++ {
		v, err := inv.tools.CallTool(ctx, name, args)
		if err == nil {
			return v, attempt, nil
		}
		lastErr = err
		if attempt == inv.maxAttempts {
			break
		}
		inv.log.Warn().Err(err).
			Str("tool", name).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("tool call failed; retrying")
		if serr := inv.sleep(ctx, delay); serr != nil {
			return nil, attempt, &ToolExecutionError{Tool: name, Attempts: attempt, Err: lastErr}
		}
		delay *= 2
	}
	inv.log.Error().Err(lastErr).Str("tool", name).Int("attempts", inv.maxAttempts).Msg("tool call failed")
	return nil, inv.maxAttempts, &ToolExecutionError{Tool: name, Attempts: inv.maxAttempts, Err: lastErr}
}
