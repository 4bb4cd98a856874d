package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"typescope/pkg/channel"
)

// Config is the viewer configuration
type Config struct {
	Agent AgentConfig `mapstructure:"agent"`
}

// AgentConfig locates the agent's streaming endpoint
type AgentConfig struct {
	Transport string        `mapstructure:"transport"`
	Address   string        `mapstructure:"address"`
	Path      string        `mapstructure:"path"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// Endpoint converts the agent section for viewer.Dial
func (c AgentConfig) Endpoint() channel.Endpoint {
	return channel.Endpoint{
		Transport: c.Transport,
		Address:   c.Address,
		Path:      c.Path,
	}
}

// LoadConfig reads the viewer configuration into v. An explicit cfgFile must
// exist; otherwise the search path is tried and a missing file is fine.
func LoadConfig(v *viper.Viper, cfgFile string) (*Config, error) {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Add config search paths
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.typescope")
		v.AddConfigPath("/etc/typescope/")
	}

	// Environment variable overrides: TYPESCOPE_AGENT_ADDRESS, ...
	v.SetEnvPrefix("TYPESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.BindEnv("agent.transport")
	v.BindEnv("agent.address")
	v.BindEnv("agent.path")
	v.BindEnv("agent.timeout")

	// Set defaults
	v.SetDefault("agent.transport", "unix")
	v.SetDefault("agent.address", "/tmp/typescope.sock")
	v.SetDefault("agent.path", channel.DefaultWebSocketPath)
	v.SetDefault("agent.timeout", 5*time.Second)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if channel.ParseTransport(cfg.Agent.Transport) == channel.TransportUnknown {
		return nil, fmt.Errorf("unknown transport: %s", cfg.Agent.Transport)
	}
	return &cfg, nil
}
