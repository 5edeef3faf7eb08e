package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/dimiro1/banner"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/petasbytes/go-mcp-agent/internal/config"
	"github.com/petasbytes/go-mcp-agent/internal/console"
	"github.com/petasbytes/go-mcp-agent/internal/fsops"
	"github.com/petasbytes/go-mcp-agent/internal/logging"
	"github.com/petasbytes/go-mcp-agent/internal/mcpclient"
	"github.com/petasbytes/go-mcp-agent/internal/provider"
	"github.com/petasbytes/go-mcp-agent/internal/runner"
	"github.com/petasbytes/go-mcp-agent/internal/session"
	"github.com/petasbytes/go-mcp-agent/internal/telemetry"
	"github.com/petasbytes/go-mcp-agent/tools"
)

const version = "dev"

func main() {
	fs := pflag.NewFlagSet("agent", pflag.ContinueOnError)
	config.Flags(fs)
	if err := fs.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		os.Exit(2)
	}
	os.Exit(run(fs))
}

func run(fs *pflag.FlagSet) int {
	cfg, err := config.Load(fs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return 1
	}
	log := logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})
	telemetry.Configure(cfg.Telemetry.Enabled, cfg.Telemetry.Dir)

	// Set up graceful shutdown on Ctrl-C (SIGINT) / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	model, err := newModel(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}

	toolProvider, closeTools, err := newToolProvider(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer closeTools()

	registry := tools.NewRegistry(logging.Component(log, "registry"))
	warnings, err := registry.Load(ctx, toolProvider)
	if err != nil {
		fmt.Fprintf(os.Stderr, "tool discovery failed: %v\n", err)
		return 1
	}
	log.Info().Strs("tools", registry.Names()).Int("schema_warnings", len(warnings)).Msg("tools registered")

	invoker := runner.NewInvoker(toolProvider, runner.InvokerOptions{
		MaxAttempts:    cfg.Tools.MaxAttempts,
		InitialBackoff: cfg.Tools.InitialBackoff,
	}, logging.Component(log, "invoker"))
	engine := runner.NewEngine(model, registry, invoker, runner.Options{
		Model:              cfg.Model.ID,
		MaxTokens:          cfg.Model.MaxTokens,
		ThrottleDelay:      cfg.Engine.ThrottleDelay,
		MaxThrottleRetries: cfg.Engine.MaxThrottleRetries,
		MaxToolRounds:      cfg.Engine.MaxToolRounds,
		Concurrency:        cfg.Tools.Concurrency,
	}, logging.Component(log, "engine"))

	printBanner(os.Stdout)
	fmt.Println("Chat with the model (Ctrl-C to quit)")

	ui := console.New(os.Stdin, os.Stdout)
	loop := session.New(engine, ui, session.Options{Greeting: cfg.Session.Greeting, MaxResumes: cfg.Session.MaxResumes}, logging.Component(log, "session"))
	if err := loop.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Chat loop error: %v\n", err)
		return 1
	}
	fmt.Println("Chat ended.")
	return 0
}

func newModel(ctx context.Context, cfg *config.Config) (provider.Provider, error) {
	switch cfg.Model.Provider {
	case config.ProviderAnthropic:
		// Basic env check (SDK also reads API key)
		if os.Getenv("ANTHROPIC_API_KEY") == "" {
			return nil, errors.New("missing ANTHROPIC_API_KEY; export it before running")
		}
		var opts []option.RequestOption
		if cfg.Model.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.Model.BaseURL))
		}
		return provider.NewAnthropic(opts...), nil
	case config.ProviderBedrock:
		return provider.NewBedrock(ctx, cfg.Model.Region)
	case config.ProviderOpenAI:
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" && cfg.Model.BaseURL == "" {
			return nil, errors.New("missing OPENAI_API_KEY; export it before running")
		}
		return provider.NewOpenAI(key, cfg.Model.BaseURL, nil), nil
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Model.Provider)
	}
}

// newToolProvider connects to the configured MCP server, or serves the
// builtin tools when none is set. A configured workspace adds the read-only
// file tools to the builtins.
func newToolProvider(ctx context.Context, cfg *config.Config, log zerolog.Logger) (tools.Provider, func(), error) {
	if cfg.MCP.Server == "" {
		log.Info().Msg("no MCP server configured; using builtin tools")
		defs := tools.Builtins()
		if cfg.Tools.Workspace != "" {
			ws, err := fsops.NewWorkspace(cfg.Tools.Workspace, fsops.Options{
				MaxReadBytes: cfg.Tools.MaxReadBytes,
				Writable:     cfg.Tools.AllowWrite,
			})
			if err != nil {
				return nil, nil, err
			}
			log.Info().Str("root", ws.Root()).Bool("writable", ws.Writable()).Msg("workspace tools enabled")
			defs = append(defs, tools.WorkspaceTools(ws)...)
		}
		return tools.NewLocal(defs...), func() {}, nil
	}
	client := mcpclient.New(cfg.MCP.Server, logging.Component(log, "mcp"))
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}
	return client, func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("closing MCP session")
		}
	}, nil
}

func printBanner(out io.Writer) {
	tpl := "{{ .Title \"go-mcp-agent\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(out, true, !color.NoColor, bytes.NewBufferString(tpl))
}
