// Package mcpclient exposes the tools of an MCP server as a tools.Provider.
package mcpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/petasbytes/go-mcp-agent/tools"
)

// transportBuilder is overridden in tests to stub the transport factory.
var transportBuilder = buildTransport

var ErrNotConnected = errors.New("mcpclient: not connected")

// Client owns one MCP client session. It connects lazily on first use.
type Client struct {
	impl    *mcpsdk.Client
	spec    string
	log     zerolog.Logger
	mu      sync.Mutex
	session *mcpsdk.ClientSession
	once    sync.Once
	connErr error
}

// New returns a client for the server described by spec (see ParseSpec).
func New(spec string, log zerolog.Logger) *Client {
	impl := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "go-mcp-agent", Version: "dev"}, nil)
	return &Client{impl: impl, spec: spec, log: log}
}

// Connect starts the transport and performs the MCP handshake once.
func (c *Client) Connect(ctx context.Context) error {
	c.once.Do(func() {
		transport, err := transportBuilder(ctx, c.spec)
		if err != nil {
			c.connErr = fmt.Errorf("mcpclient: build transport: %w", err)
			return
		}
		session, err := c.impl.Connect(ctx, transport, nil)
		if err != nil {
			c.connErr = fmt.Errorf("mcpclient: connect %q: %w", c.spec, err)
			return
		}
		c.mu.Lock()
		c.session = session
		c.mu.Unlock()
		c.log.Info().Str("server", c.spec).Msg("connected to MCP server")
	})
	return c.connErr
}

func (c *Client) current(ctx context.Context) (*mcpsdk.ClientSession, error) {
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

// ListTools pages through the server's tool list.
func (c *Client) ListTools(ctx context.Context) ([]tools.Descriptor, error) {
	session, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	var out []tools.Descriptor
	for tool, err := range session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("mcpclient: list tools: %w", err)
		}
		out = append(out, tools.Descriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: tool.InputSchema,
		})
	}
	return out, nil
}

// CallTool invokes name on the server. A result made only of text blocks is
// returned as a single string; anything else is returned as structured data.
// Results flagged IsError by the server come back as text, not as a Go error,
// so the model sees the server's explanation.
func (c *Client) CallTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	session, err := c.current(ctx)
	if err != nil {
		return nil, err
	}
	params := &mcpsdk.CallToolParams{Name: name}
	if len(args) > 0 && string(args) != "null" {
		var m map[string]any
		if err := json.Unmarshal(args, &m); err != nil {
			return nil, fmt.Errorf("mcpclient: %s: arguments must be a JSON object: %w", name, err)
		}
		params.Arguments = m
	}
	res, err := session.CallTool(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("mcpclient: call %s: %w", name, err)
	}
	if res.IsError {
		c.log.Debug().Str("tool", name).Msg("tool reported an error result")
	}
	return flatten(res), nil
}

func flatten(res *mcpsdk.CallToolResult) any {
	if res == nil {
		return nil
	}
	texts := make([]string, 0, len(res.Content))
	for _, ct := range res.Content {
		tc, ok := ct.(*mcpsdk.TextContent)
		if !ok {
			texts = nil
			break
		}
		texts = append(texts, tc.Text)
	}
	switch {
	case len(texts) > 0:
		return strings.Join(texts, "\n")
	case res.StructuredContent != nil:
		return res.StructuredContent
	case len(res.Content) == 0:
		return nil
	default:
		return res.Content
	}
}

// Close ends the session and stops a spawned server process.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}
