// Package config loads the typescope-agent configuration.
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"typescope/pkg/channel"
)

// ServiceName prefixes service-scoped environment variables and names the config file
const ServiceName = "typescope-agent"

// Config contains all configuration for the agent
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Agent   AgentConfig   `yaml:"agent"`
	Channel ChannelConfig `yaml:"channel"`
	Server  ServerConfig  `yaml:"server"`
	Admin   AdminConfig   `yaml:"admin"`
}

// LogConfig configures logging behavior
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" default:"auto"`
	Debug  bool   `yaml:"debug" env:"DEBUG" default:"false"`
}

// AgentConfig selects what gets inspected
type AgentConfig struct {
	// Unit name reported in snapshots; empty uses the provider's own name
	UnitName string `yaml:"unit_name" env:"AGENT_UNIT_NAME"`

	// Provider is "reflect" (registered runtime types) or "source" (a Go package)
	Provider string `yaml:"provider" env:"AGENT_PROVIDER" default:"reflect"`

	SourceDir     string `yaml:"source_dir" env:"AGENT_SOURCE_DIR" default:"."`
	SourcePattern string `yaml:"source_pattern" env:"AGENT_SOURCE_PATTERN" default:"."`
}

// ChannelConfig describes the streaming endpoint
type ChannelConfig struct {
	Transport   string        `yaml:"transport" env:"CHANNEL_TRANSPORT" default:"unix"`
	Address     string        `yaml:"address" env:"CHANNEL_ADDRESS" default:"/tmp/typescope.sock"`
	Path        string        `yaml:"path" env:"CHANNEL_PATH" default:"/stream"`
	Mode        string        `yaml:"mode" env:"CHANNEL_MODE" default:"duplex"`
	PollTimeout time.Duration `yaml:"poll_timeout" env:"CHANNEL_POLL_TIMEOUT" default:"100ms"`
}

// ServerConfig tunes the connection loop. The streaming interval is not
// configurable here; it only changes through INTERVAL commands.
type ServerConfig struct {
	RetryBackoff time.Duration `yaml:"retry_backoff" env:"SERVER_RETRY_BACKOFF" default:"1s"`
	JoinTimeout  time.Duration `yaml:"join_timeout" env:"SERVER_JOIN_TIMEOUT" default:"1s"`
}

// AdminConfig configures the health/status/metrics HTTP listener
type AdminConfig struct {
	Enabled bool   `yaml:"enabled" env:"ADMIN_ENABLED" default:"true"`
	Address string `yaml:"address" env:"ADMIN_ADDRESS" default:"127.0.0.1:9464"`
}

// Load loads configuration from the given files and the environment
func Load(configFile, envFile string) (*Config, error) {
	cfg := &Config{}
	loader := NewLoader(LoaderConfig{
		ConfigFile:      configFile,
		EnvironmentFile: envFile,
		ServiceName:     ServiceName,
	})
	if err := loader.Load(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	switch strings.ToLower(c.Agent.Provider) {
	case "reflect", "source":
	default:
		return fmt.Errorf("agent.provider must be 'reflect' or 'source', got %q", c.Agent.Provider)
	}
	if strings.EqualFold(c.Agent.Provider, "source") && c.Agent.SourcePattern == "" {
		return fmt.Errorf("agent.source_pattern is required for the source provider")
	}

	if channel.ParseTransport(c.Channel.Transport) == channel.TransportUnknown {
		return fmt.Errorf("channel.transport must be one of unix, tcp, fifo, websocket, got %q", c.Channel.Transport)
	}
	if c.Channel.Address == "" {
		return fmt.Errorf("channel.address is required")
	}
	if _, err := channel.ParseMode(c.Channel.Mode); err != nil {
		return err
	}
	if c.Channel.PollTimeout <= 0 {
		return fmt.Errorf("channel.poll_timeout must be positive")
	}

	if c.Server.RetryBackoff <= 0 {
		return fmt.Errorf("server.retry_backoff must be positive")
	}
	if c.Server.JoinTimeout <= 0 {
		return fmt.Errorf("server.join_timeout must be positive")
	}

	if c.Admin.Enabled && c.Admin.Address == "" {
		return fmt.Errorf("admin.address is required when admin is enabled")
	}
	return nil
}

// Endpoint converts the channel section for channel.NewOpener
func (c *ChannelConfig) Endpoint() channel.Endpoint {
	return channel.Endpoint{
		Transport:   c.Transport,
		Address:     c.Address,
		Path:        c.Path,
		PollTimeout: c.PollTimeout,
	}
}

// ChannelMode returns the parsed initial channel mode
func (c *ChannelConfig) ChannelMode() channel.Mode {
	mode, _ := channel.ParseMode(c.Mode)
	return mode
}

// ConfigureZerolog sets the global level and the output format of log.Logger.
// Format "auto" writes console output to a terminal and JSON otherwise.
func (c *LogConfig) ConfigureZerolog() {
	level := zerolog.InfoLevel
	if c.Debug {
		level = zerolog.DebugLevel
	} else {
		switch strings.ToLower(c.Level) {
		case "trace":
			level = zerolog.TraceLevel
		case "debug":
			level = zerolog.DebugLevel
		case "info":
			level = zerolog.InfoLevel
		case "warn", "warning":
			level = zerolog.WarnLevel
		case "error":
			level = zerolog.ErrorLevel
		case "fatal":
			level = zerolog.FatalLevel
		case "panic":
			level = zerolog.PanicLevel
		}
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(c.Writer(os.Stderr))
}

// Writer wraps out according to Format
func (c *LogConfig) Writer(out *os.File) io.Writer {
	switch strings.ToLower(c.Format) {
	case "json":
		return out
	case "console", "text":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	default:
		if term.IsTerminal(int(out.Fd())) {
			return zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
		}
		return out
	}
}
