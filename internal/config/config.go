package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	ProviderAnthropic = "anthropic"
	ProviderBedrock   = "bedrock"
	ProviderOpenAI    = "openai"

	DefaultAnthropicModel = "claude-3-7-sonnet-latest"
	DefaultBedrockModel   = "us.anthropic.claude-3-7-sonnet-20250219-v1:0" // cross-region inference profile
	DefaultOpenAIModel    = "gpt-4o-mini"

	// EnvPrefix namespaces environment overrides, e.g. AGT_MODEL_ID.
	EnvPrefix = "AGT"
)

// Config is the full application configuration, read by viper from an
// optional YAML file, AGT_* environment variables and command-line flags.
type Config struct {
	Model     ModelConfig     `mapstructure:"model"`
	MCP       MCPConfig       `mapstructure:"mcp"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
	Session   SessionConfig   `mapstructure:"session"`
}

type ModelConfig struct {
	Provider  string `mapstructure:"provider"`
	ID        string `mapstructure:"id"`
	MaxTokens int64  `mapstructure:"max_tokens"`
	BaseURL   string `mapstructure:"base_url"`
	Region    string `mapstructure:"region"` // bedrock only
}

type MCPConfig struct {
	// Server is a script path (.js/.py), stdio://cmd, sse://host or an http(s) URL.
	// Empty selects the builtin tools.
	Server string `mapstructure:"server"`
}

type EngineConfig struct {
	ThrottleDelay      time.Duration `mapstructure:"throttle_delay"`
	MaxThrottleRetries int           `mapstructure:"max_throttle_retries"` // 0 = retry forever
	MaxToolRounds      int           `mapstructure:"max_tool_rounds"`
}

type ToolsConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	Concurrency    int           `mapstructure:"concurrency"`

	// Workspace enables read_file and list_files under this directory.
	// Only used with the builtin tools. AllowWrite adds edit_file.
	Workspace    string `mapstructure:"workspace"`
	MaxReadBytes int64  `mapstructure:"max_read_bytes"`
	AllowWrite   bool   `mapstructure:"allow_write"`
}

type TelemetryConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Dir     string `mapstructure:"dir"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type SessionConfig struct {
	Greeting   string `mapstructure:"greeting"`
	MaxResumes int    `mapstructure:"max_resumes"`
}

// Flags registers the command-line overrides understood by Load.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a YAML config file")
	fs.String("provider", "", "model provider: anthropic, bedrock or openai")
	fs.String("model", "", "model id")
	fs.String("server", "", "MCP server: script path, stdio://cmd, sse://host or http(s) URL")
	fs.String("workspace", "", "directory exposed to the builtin file tools")
	fs.Bool("allow-write", false, "let the model edit files in the workspace")
}

var flagKeys = map[string]string{
	"provider":    "model.provider",
	"model":       "model.id",
	"server":      "mcp.server",
	"workspace":   "tools.workspace",
	"allow-write": "tools.allow_write",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", ProviderAnthropic)
	v.SetDefault("model.id", "") // filled per provider by Load
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.base_url", "")
	v.SetDefault("model.region", "us-east-2")

	v.SetDefault("mcp.server", "")

	v.SetDefault("engine.throttle_delay", "2500ms")
	v.SetDefault("engine.max_throttle_retries", 0)
	v.SetDefault("engine.max_tool_rounds", 25)

	v.SetDefault("tools.max_attempts", 3)
	v.SetDefault("tools.initial_backoff", "1s")
	v.SetDefault("tools.concurrency", 8)
	v.SetDefault("tools.workspace", "")
	v.SetDefault("tools.max_read_bytes", 256<<10)
	v.SetDefault("tools.allow_write", false)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.dir", ".agent")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("session.greeting", "Whats up?")
	v.SetDefault("session.max_resumes", 3)
}

// Load reads .env (if present), then the config file, environment and flags.
// A missing default config file is not an error; a missing explicit one is.
// fs may be nil.
func Load(fs *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	path := ""
	if fs != nil {
		if f := fs.Lookup("config"); f != nil {
			path = f.Value.String()
		}
		for flag, key := range flagKeys {
			if f := fs.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", flag, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("agent")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if strings.TrimSpace(cfg.Model.ID) == "" {
		cfg.Model.ID = DefaultModelID(cfg.Model.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultModelID returns the model used when model.id is unset, or "" for
// an unknown provider.
func DefaultModelID(provider string) string {
	switch provider {
	case ProviderAnthropic:
		return DefaultAnthropicModel
	case ProviderBedrock:
		return DefaultBedrockModel
	case ProviderOpenAI:
		return DefaultOpenAIModel
	}
	return ""
}

// Validate rejects settings the agent cannot run with.
func (c *Config) Validate() error {
	switch c.Model.Provider {
	case ProviderAnthropic, ProviderBedrock, ProviderOpenAI:
	default:
		return fmt.Errorf("config: unknown model.provider %q", c.Model.Provider)
	}
	if strings.TrimSpace(c.Model.ID) == "" {
		return errors.New("config: model.id is required")
	}
	if c.Tools.MaxAttempts <= 0 {
		return fmt.Errorf("config: tools.max_attempts must be positive, got %d", c.Tools.MaxAttempts)
	}
	if c.Tools.InitialBackoff <= 0 {
		return fmt.Errorf("config: tools.initial_backoff must be positive, got %s", c.Tools.InitialBackoff)
	}
	if c.Engine.ThrottleDelay <= 0 {
		return fmt.Errorf("config: engine.throttle_delay must be positive, got %s", c.Engine.ThrottleDelay)
	}
	if c.Engine.MaxThrottleRetries < 0 {
		return errors.New("config: engine.max_throttle_retries must be >= 0")
	}
	if c.Engine.MaxToolRounds <= 0 {
		return errors.New("config: engine.max_tool_rounds must be positive")
	}
	if c.Tools.Concurrency <= 0 {
		return errors.New("config: tools.concurrency must be positive")
	}
	if c.Session.MaxResumes <= 0 {
		return errors.New("config: session.max_resumes must be positive")
	}
	if c.Tools.MaxReadBytes < 0 {
		return errors.New("config: tools.max_read_bytes must be >= 0")
	}
	return nil
}
