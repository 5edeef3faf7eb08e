package mcpclient

import (
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

type Kind string

const (
	KindStdio      Kind = "stdio"
	KindSSE        Kind = "sse"
	KindStreamable Kind = "streamable"
)

const (
	stdioSchemePrefix = "stdio://"
	sseSchemePrefix   = "sse://"
)

// Spec is a parsed server location.
type Spec struct {
	Kind     Kind
	Command  string
	Args     []string
	Endpoint string
}

// ParseSpec understands:
//
//	server.js / server.py   script run with node / python
//	stdio://cmd args        arbitrary command over stdio
//	sse://host/path         SSE endpoint (https assumed)
//	http(s)://host/path     streamable HTTP endpoint
//	cmd args                bare command over stdio
func ParseSpec(raw string) (Spec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Spec{}, fmt.Errorf("mcpclient: server spec is empty")
	}
	lowered := strings.ToLower(raw)
	switch {
	case strings.HasPrefix(lowered, stdioSchemePrefix):
		return commandSpec(raw[len(stdioSchemePrefix):])
	case strings.HasPrefix(lowered, sseSchemePrefix):
		endpoint, err := normalizeHTTPURL(raw[len(sseSchemePrefix):], true)
		if err != nil {
			return Spec{}, fmt.Errorf("mcpclient: invalid SSE endpoint: %w", err)
		}
		return Spec{Kind: KindSSE, Endpoint: endpoint}, nil
	case strings.HasPrefix(lowered, "http://"), strings.HasPrefix(lowered, "https://"):
		endpoint, err := normalizeHTTPURL(raw, false)
		if err != nil {
			return Spec{}, fmt.Errorf("mcpclient: invalid HTTP endpoint: %w", err)
		}
		return Spec{Kind: KindStreamable, Endpoint: endpoint}, nil
	}
	return commandSpec(raw)
}

func commandSpec(cmdline string) (Spec, error) {
	parts := strings.Fields(cmdline)
	if len(parts) == 0 {
		return Spec{}, fmt.Errorf("mcpclient: stdio command is empty")
	}
	if interp := interpreterFor(parts[0]); interp != "" {
		return Spec{Kind: KindStdio, Command: interp, Args: parts}, nil
	}
	return Spec{Kind: KindStdio, Command: parts[0], Args: parts[1:]}, nil
}

func interpreterFor(script string) string {
	switch strings.ToLower(filepath.Ext(script)) {
	case ".js":
		return "node"
	case ".py":
		if runtime.GOOS == "windows" {
			return "python"
		}
		return "python3"
	}
	return ""
}

func buildTransport(ctx context.Context, raw string) (mcpsdk.Transport, error) {
	spec, err := ParseSpec(raw)
	if err != nil {
		return nil, err
	}
	switch spec.Kind {
	case KindSSE:
		return &mcpsdk.SSEClientTransport{Endpoint: spec.Endpoint}, nil
	case KindStreamable:
		return &mcpsdk.StreamableClientTransport{Endpoint: spec.Endpoint}, nil
	default:
		// #nosec G204 -- the command comes from local configuration
		cmd := exec.CommandContext(ctx, spec.Command, spec.Args...)
		return &mcpsdk.CommandTransport{Command: cmd}, nil
	}
}

func normalizeHTTPURL(raw string, allowSchemeGuess bool) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("endpoint is empty")
	}
	if allowSchemeGuess && !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Host == "" {
		return "", fmt.Errorf("missing host")
	}
	parsed.Scheme = scheme
	return parsed.String(), nil
}
