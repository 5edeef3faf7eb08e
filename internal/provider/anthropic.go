package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"github.com/petasbytes/go-mcp-agent/conversation"
	"github.com/petasbytes/go-mcp-agent/tools"
)

const DefaultAnthropicModel = string(anthropic.ModelClaude3_7SonnetLatest)

// Anthropic talks to the Messages API, directly or through Bedrock.
type Anthropic struct {
	client anthropic.Client
	name   string
}

// NewAnthropic returns a client using the API key from the environment unless
// opts override it. SDK retries are disabled; the engine owns throttling.
func NewAnthropic(opts ...option.RequestOption) *Anthropic {
	opts = append([]option.RequestOption{option.WithMaxRetries(0)}, opts...)
	return &Anthropic{client: anthropic.NewClient(opts...), name: "anthropic"}
}

// NewBedrock returns an Anthropic client routed through Amazon Bedrock in the
// given region, using the default AWS credential chain.
func NewBedrock(ctx context.Context, region string, opts ...option.RequestOption) (*Anthropic, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("bedrock: load aws config: %w", err)
	}
	opts = append([]option.RequestOption{option.WithMaxRetries(0), bedrock.WithConfig(cfg)}, opts...)
	return &Anthropic{client: anthropic.NewClient(opts...), name: "bedrock"}, nil
}

func (a *Anthropic) Send(ctx context.Context, req Request) (Response, error) {
	msgs, err := toAnthropicMessages(req.Messages)
	if err != nil {
		return Response{}, &Error{Provider: a.name, Err: err}
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(req.Model),
		MaxTokens: maxTokens(req),
		Messages:  msgs,
	}
	if len(req.Tools) > 0 {
		params.Tools = toAnthropicTools(req.Tools)
	}

	msg, err := a.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return Response{}, classify(a.name, apiErr.StatusCode, err)
		}
		return Response{}, &Error{Provider: a.name, Err: err}
	}
	return Response{Message: fromAnthropic(msg), StopReason: StopReason(msg.StopReason)}, nil
}

func toAnthropicTools(decls []tools.Declaration) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(decls))
	for _, d := range decls {
		schema := anthropic.ToolInputSchemaParam{Required: d.Required()}
		if props := d.Properties(); props != nil {
			schema.Properties = props
		}
		// $defs, additionalProperties and the rest travel untouched.
		for k, v := range d.InputSchema {
			switch k {
			case "type", "properties", "required":
				continue
			}
			if schema.ExtraFields == nil {
				schema.ExtraFields = make(map[string]any)
			}
			schema.ExtraFields[k] = v
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: schema,
		}})
	}
	return out
}

// toAnthropicMessages converts history to request params. Consecutive
// messages with the same role are merged, since the API requires
// alternating turns and tool results are stored one per message.
func toAnthropicMessages(msgs []conversation.Message) ([]anthropic.MessageParam, error) {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for i, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Content))
		for _, b := range m.Content {
			switch v := b.(type) {
			case conversation.Text:
				blocks = append(blocks, anthropic.NewTextBlock(v.Text))
			case conversation.ToolUse:
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    v.ID,
					Name:  v.Name,
					Input: toolInput(v.Input),
				}})
			case conversation.ToolResult:
				blocks = append(blocks, anthropic.NewToolResultBlock(v.ToolUseID, v.Content, v.IsError))
			default:
				return nil, fmt.Errorf("message %d: unsupported block %T", i, b)
			}
		}

		var role anthropic.MessageParamRole
		switch m.Role {
		case conversation.RoleUser:
			role = anthropic.MessageParamRoleUser
		case conversation.RoleAssistant:
			role = anthropic.MessageParamRoleAssistant
		default:
			return nil, fmt.Errorf("message %d: unknown role %q", i, m.Role)
		}

		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Content = append(out[n-1].Content, blocks...)
			continue
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out, nil
}

func toolInput(raw json.RawMessage) any {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil || v == nil {
		return map[string]any{}
	}
	return v
}

func fromAnthropic(msg *anthropic.Message) *conversation.Message {
	if msg == nil {
		return nil
	}
	out := conversation.Message{Role: conversation.RoleAssistant}
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			if v.Text != "" {
				out.Content = append(out.Content, conversation.Text{Text: v.Text})
			}
		case anthropic.ToolUseBlock:
			out.Content = append(out.Content, conversation.ToolUse{
				ID:    v.ID,
				Name:  v.Name,
				Input: json.RawMessage(v.JSON.Input.Raw()),
			})
		}
	}
	if len(out.Content) == 0 {
		return nil
	}
	return &out
}
