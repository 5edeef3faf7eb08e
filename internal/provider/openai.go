package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/tools"
)

// OpenAI talks to any OpenAI-compatible chat completions endpoint.
type OpenAI struct {
	client *openai.Client
}

// NewOpenAI builds a client for apiKey. An empty baseURL keeps the public API;
// httpClient may be nil.
func NewOpenAI(apiKey, baseURL string, httpClient *http.Client) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if httpClient != nil {
		cfg.HTTPClient = httpClient
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg)}
}

func (o *OpenAI) Send(ctx context.Context, req Request) (Response, error) {
	msgs, err := toOpenAIMessages(req.Messages)
	if err != nil {
		return Response{}, &Error{Provider: "openai", Err: err}
	}
	creq := openai.ChatCompletionRequest{
		Model:     req.Model,
		Messages:  msgs,
		MaxTokens: int(maxTokens(req)),
	}
	if len(req.Tools) > 0 {
		creq.Tools = toOpenAITools(req.Tools)
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return Response{}, classifyOpenAI(err)
	}
	if len(resp.Choices) == 0 {
		return Response{}, nil
	}
	choice := resp.Choices[0]
	return Response{Message: fromOpenAI(choice.Message), StopReason: openAIStopReason(choice.FinishReason)}, nil
}

func classifyOpenAI(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classify("openai", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classify("openai", reqErr.HTTPStatusCode, err)
	}
	return &Error{Provider: "openai", Err: err}
}

func openAIStopReason(r openai.FinishReason) StopReason {
	switch r {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return StopToolUse
	case openai.FinishReasonStop:
		return StopEndTurn
	case openai.FinishReasonLength:
		return StopMaxTokens
	default:
		return StopReason(r)
	}
}

func toOpenAITools(decls []tools.Declaration) []openai.Tool {
	out := make([]openai.Tool, 0, len(decls))
	for _, d := range decls {
		params := d.InputSchema
		if len(params) == 0 {
			params = map[string]any{"type": "object", "properties": map[string]any{}}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  params,
			},
		})
	}
	return out
}

// toOpenAIMessages flattens history into chat messages. Tool results become
// role "tool" messages; text in the same user message follows them.
func toOpenAIMessages(msgs []conversation.Message) ([]openai.ChatCompletionMessage, error) {
	var out []openai.ChatCompletionMessage
	for i, m := range msgs {
		var texts []string
		switch m.Role {
		case conversation.RoleAssistant:
			am := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant}
			for _, b := range m.Content {
				switch v := b.(type) {
				case conversation.Text:
					texts = append(texts, v.Text)
				case conversation.ToolUse:
					args := string(v.Input)
					if args == "" {
						args = "{}"
					}
					am.ToolCalls = append(am.ToolCalls, openai.ToolCall{
						ID:       v.ID,
						Type:     openai.ToolTypeFunction,
						Function: openai.FunctionCall{Name: v.Name, Arguments: args},
					})
				default:
					return nil, fmt.Errorf("message %d: unsupported assistant block %T", i, b)
				}
			}
			am.Content = strings.Join(texts, "\n")
			out = append(out, am)
		case conversation.RoleUser:
			for _, b := range m.Content {
				switch v := b.(type) {
				case conversation.Text:
					texts = append(texts, v.Text)
				case conversation.ToolResult:
					out = append(out, openai.ChatCompletionMessage{
						Role:       openai.ChatMessageRoleTool,
						ToolCallID: v.ToolUseID,
						Content:    v.Content,
					})
				default:
					return nil, fmt.Errorf("message %d: unsupported user block %T", i, b)
				}
			}
			if len(texts) > 0 {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: strings.Join(texts, "\n"),
				})
			}
		default:
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}
	}
	return out, nil
}

func fromOpenAI(m openai.ChatCompletionMessage) *conversation.Message {
	out := conversation.Message{Role: conversation.RoleAssistant}
	if m.Content != "" {
		out.Content = append(out.Content, conversation.Text{Text: m.Content})
	}
	for _, tc := range m.ToolCalls {
		args := json.RawMessage(tc.Function.Arguments)
		if !json.Valid(args) {
			args = json.RawMessage("{}")
		}
		out.Content = append(out.Content, conversation.ToolUse{ID: tc.ID, Name: tc.Function.Name, Input: args})
	}
	if len(out.Content) == 0 {
		return nil
	}
	return &out
}
