package conversation

import (
	"errors"
	"fmt"
	"sync"
)

var ErrUnknownToolUse = errors.New("conversation: tool_result references unknown tool_use id")

// History is the ordered, append-only message log of one conversation.
// Appends may come from concurrent tool workers; readers get copies.
type History struct {
	mu     sync.Mutex
	msgs   []Message
	useIDs map[string]struct{}
}

func NewHistory() *History {
	return &History{useIDs: make(map[string]struct{})}
}

// Append validates m and adds a copy of it to the end of the history.
func (h *History) Append(m Message) error {
	if err := m.validate(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.useIDs == nil {
		h.useIDs = make(map[string]struct{})
	}
	for _, b := range m.Content {
		if r, ok := b.(ToolResult); ok {
			if _, seen := h.useIDs[r.ToolUseID]; !seen {
				return fmt.Errorf("%w: %q", ErrUnknownToolUse, r.ToolUseID)
			}
		}
	}
	for _, b := range m.Content {
		if u, ok := b.(ToolUse); ok {
			h.useIDs[u.ID] = struct{}{}
		}
	}
	h.msgs = append(h.msgs, m.clone())
	return nil
}

// Messages returns a snapshot of the history in insertion order.
func (h *History) Messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.msgs))
	for i, m := range h.msgs {
		out[i] = m.clone()
	}
	return out
}

func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

// Last returns the most recently appended message.
func (h *History) Last() (Message, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.msgs) == 0 {
		return Message{}, false
	}
	return h.msgs[len(h.msgs)-1].clone(), true
}
