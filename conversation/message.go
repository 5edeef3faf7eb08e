package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Block is one content block of a message. Only the types in this package
// implement it.
type Block interface {
	isBlock()
}

// Text is plain text produced by the human or the model.
type Text struct {
	Text string
}

// ToolUse is a model request to invoke a tool.
type ToolUse struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResult answers the ToolUse with the same id.
type ToolResult struct {
	ToolUseID string
	Content   string
	IsError   bool
}

func (Text) isBlock()       {}
func (ToolUse) isBlock()    {}
func (ToolResult) isBlock() {}

type Message struct {
	Role    Role
	Content []Block
}

var ErrEmptyMessage = errors.New("conversation: message has no content")

// UserText builds a user message carrying a single text block.
func UserText(text string) Message {
	return Message{Role: RoleUser, Content: []Block{Text{Text: text}}}
}

// UserToolResult builds a user message carrying a single tool result.
func UserToolResult(r ToolResult) Message {
	return Message{Role: RoleUser, Content: []Block{r}}
}

// FirstText returns the first non-empty text block.
func (m Message) FirstText() (string, bool) {
	for _, b := range m.Content {
		if t, ok := b.(Text); ok && t.Text != "" {
			return t.Text, true
		}
	}
	return "", false
}

// ToolUses returns the tool use blocks in order of appearance.
func (m Message) ToolUses() []ToolUse {
	var out []ToolUse
	for _, b := range m.Content {
		if u, ok := b.(ToolUse); ok {
			out = append(out, u)
		}
	}
	return out
}

// OnlyToolResults reports whether m is a user message made of tool results only.
func (m Message) OnlyToolResults() bool {
	if m.Role != RoleUser || len(m.Content) == 0 {
		return false
	}
	for _, b := range m.Content {
		if _, ok := b.(ToolResult); !ok {
			return false
		}
	}
	return true
}

func (m Message) validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
	default:
		return fmt.Errorf("conversation: unknown role %q", m.Role)
	}
	if len(m.Content) == 0 {
		return ErrEmptyMessage
	}
	for i, b := range m.Content {
		switch v := b.(type) {
		case Text:
		case ToolUse:
			if m.Role != RoleAssistant {
				return fmt.Errorf("conversation: block %d: tool_use in %s message", i, m.Role)
			}
			if v.ID == "" || v.Name == "" {
				return fmt.Errorf("conversation: block %d: tool_use requires id and name", i)
			}
		case ToolResult:
			if m.Role != RoleUser {
				return fmt.Errorf("conversation: block %d: tool_result in %s message", i, m.Role)
			}
		case nil:
			return fmt.Errorf("conversation: block %d is nil", i)
		}
	}
	return nil
}

func (m Message) clone() Message {
	c := Message{Role: m.Role, Content: make([]Block, len(m.Content))}
	for i, b := range m.Content {
		if u, ok := b.(ToolUse); ok && u.Input != nil {
			u.Input = append(json.RawMessage(nil), u.Input...)
			b = u
		}
		c.Content[i] = b
	}
	return c
}
