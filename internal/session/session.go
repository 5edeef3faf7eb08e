// Package session alternates between human prompts and engine turns.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/internal/runner"
	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
)

// ErrPromptCancelled is returned by UI.Prompt when the human aborts input
// (EOF, Ctrl-C). It ends the session cleanly.
var ErrPromptCancelled = errors.New("session: prompt cancelled")

const (
	DefaultGreeting = "Whats up?"
	// DefaultMaxResumes bounds engine re-entries without human input while
	// tool results are still unanswered.
	DefaultMaxResumes = 3
)

// UI is the human side of the session.
type UI interface {
	// Prompt shows label and returns one line of input.
	Prompt(ctx context.Context, label string) (string, error)
	ShowAnswer(text string)
	ShowNotice(text string)
}

// Engine runs one human turn over the history.
type Engine interface {
	Converse(ctx context.Context, h *conversation.History) (runner.Result, error)
}

type Options struct {
	Greeting   string // label of the first prompt
	MaxResumes int    // 0 uses DefaultMaxResumes
}

type Loop struct {
	engine     Engine
	ui         UI
	history    *conversation.History
	greeting   string
	maxResumes int
	log        zerolog.Logger
}

func New(engine Engine, ui UI, opts Options, log zerolog.Logger) *Loop {
	greeting := opts.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}
	maxResumes := opts.MaxResumes
	if maxResumes <= 0 {
		maxResumes = DefaultMaxResumes
	}
	return &Loop{
		engine:     engine,
		ui:         ui,
		history:    conversation.NewHistory(),
		greeting:   greeting,
		maxResumes: maxResumes,
		log:        log,
	}
}

// History exposes the conversation for inspection.
func (l *Loop) History() *conversation.History { return l.history }

// Run prompts for the first message and then alternates engine turns and
// prompts until the human enters nothing or cancels. It returns nil on a
// clean end and the provider error when the model fails.
func (l *Loop) Run(ctx context.Context) error {
	ok, err := l.ask(ctx, l.greeting)
	if err != nil {
		return err
	}
	if !ok {
		l.ui.ShowNotice("Chat ended at initial prompt.")
		return nil
	}

	turnCtx := telemetry.WithTurnID(ctx, telemetry.NewTurnID())
	resumes := 0
	for {
		res, err := l.engine.Converse(turnCtx, l.history)
		switch {
		case ctx.Err() != nil:
			return nil
		case errors.Is(err, runner.ErrToolRoundLimit):
			l.log.Warn().Err(err).Msg("turn stopped by tool round limit")
			l.ui.ShowNotice(fmt.Sprintf("Stopped after %d tool rounds without an answer.", res.Rounds))
		case err != nil:
			return fmt.Errorf("session: %w", err)
		default:
			if res.HasAnswer {
				l.ui.ShowAnswer(res.Answer)
			}
			if last, ok := l.history.Last(); ok && last.OnlyToolResults() {
				if resumes < l.maxResumes {
					resumes++
					l.log.Debug().Int("resume", resumes).Msg("tool results pending; continuing without prompt")
					continue
				}
				l.log.Warn().Int("resumes", resumes).Msg("model keeps leaving tool results unanswered")
				l.ui.ShowNotice("No reply from the model after tool results.")
			}
		}

		ok, err := l.ask(ctx, "")
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		turnCtx = telemetry.WithTurnID(ctx, telemetry.NewTurnID())
		resumes = 0
	}
}

// ask prompts once. It reports false when the input is empty or cancelled.
func (l *Loop) ask(ctx context.Context, label string) (bool, error) {
	text, err := l.ui.Prompt(ctx, label)
	if err != nil {
		if errors.Is(err, ErrPromptCancelled) || ctx.Err() != nil {
			return false, nil
		}
		return false, fmt.Errorf("session: prompt: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return false, nil
	}
	if err := l.history.Append(conversation.UserText(text)); err != nil {
		return false, fmt.Errorf("session: append input: %w", err)
	}
	return true, nil
}
