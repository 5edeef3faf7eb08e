// Package console is the terminal front end of a session.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"

	"github.com/petasbytes/go-mcp-agent/internal/session"
)

// Console reads lines from in and writes prompts and answers to out.
// Input is read by a background goroutine so a prompt can be abandoned on
// shutdown.
type Console struct {
	in  io.Reader
	out io.Writer

	once    sync.Once
	lines   chan string
	readErr error // set before lines is closed

	AssistantName string

	prompt    *color.Color
	assistant *color.Color
	notice    *color.Color
}

func New(in io.Reader, out io.Writer) *Console {
	return &Console{
		in:            in,
		out:           out,
		AssistantName: "Claude",
		prompt:        color.New(color.FgHiBlue),
		assistant:     color.New(color.FgHiYellow),
		notice:        color.New(color.Faint),
	}
}

func (c *Console) start() {
	c.once.Do(func() {
		c.lines = make(chan string)
		go func() {
			scanner := bufio.NewScanner(c.in)
			for scanner.Scan() {
				c.lines <- scanner.Text()
			}
			c.readErr = scanner.Err()
			close(c.lines)
		}()
	})
}

// Prompt prints label and waits for one line. EOF and ctx cancellation
// return session.ErrPromptCancelled.
func (c *Console) Prompt(ctx context.Context, label string) (string, error) {
	c.start()
	if label == "" {
		label = ">"
	}
	c.prompt.Fprint(c.out, label)
	fmt.Fprint(c.out, " ")

	select {
	case <-ctx.Done():
		fmt.Fprintln(c.out)
		return "", session.ErrPromptCancelled
	case line, ok := <-c.lines:
		if !ok {
			if c.readErr != nil {
				return "", fmt.Errorf("console: read input: %w", c.readErr)
			}
			fmt.Fprintln(c.out)
			return "", session.ErrPromptCancelled
		}
		return line, nil
	}
}

func (c *Console) ShowAnswer(text string) {
	c.assistant.Fprint(c.out, c.AssistantName)
	fmt.Fprintf(c.out, ": %s\n", text)
}

func (c *Console) ShowNotice(text string) {
	c.notice.Fprintln(c.out, text)
}
