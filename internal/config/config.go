// Package config loads the process-level configuration the composition
// root needs: the base data directory, which channels to enable, the
// ordered LLM model list, skill directories, and a cron job list that is
// parsed but not applied (see CronSeed).
// Grounded on the teacher's internal/config package (one root Config
// struct assembled from yaml-tagged sub-structs via gopkg.in/yaml.v3,
// internal/config/config.go), deliberately thinner: spec.md §1 names
// "YAML configuration loading" out of scope as a feature, so this
// package carries only the ambient bootstrap values the runtime needs
// to start, not a general config-management subsystem (no $include
// resolution, no JSON5, no schema versioning).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document, usually loaded from
// $HOME/.squidbot/config.yaml.
type Config struct {
	BaseDir  string          `yaml:"base_dir"`
	LLM      LLMConfig       `yaml:"llm"`
	Channels ChannelsConfig  `yaml:"channels"`
	Skills   SkillsConfig    `yaml:"skills"`
	Cron     []CronSeed      `yaml:"cron"`
	Aliases  []AliasConfig   `yaml:"aliases"`
	MCP      []MCPServerSeed `yaml:"mcp_servers"`
}

// MCPServerSeed describes one external tool server to connect at startup
// (spec §1: sub-process transport is an external collaborator; the MCP
// client is the domain component, internal/tools/mcpserver).
type MCPServerSeed struct {
	Name    string   `yaml:"name"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// LLMConfig lists the ordered model fallback chain (spec §4.6).
type LLMConfig struct {
	Anthropic *AnthropicConfig `yaml:"anthropic"`
	OpenAI    *OpenAIConfig    `yaml:"openai"`
}

type AnthropicConfig struct {
	APIKey    string `yaml:"api_key"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

type OpenAIConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
}

// ChannelsConfig enables and configures the concrete channel adapters
// (spec §4.9).
type ChannelsConfig struct {
	CLI   *CLIChannelConfig   `yaml:"cli"`
	Slack *SlackChannelConfig `yaml:"slack"`
}

type CLIChannelConfig struct {
	Enabled bool   `yaml:"enabled"`
	Sender  string `yaml:"sender"`
}

type SlackChannelConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	AppToken string `yaml:"app_token"`
}

// SkillsConfig configures where the Skills Loader looks (spec §4.3).
type SkillsConfig struct {
	Directories []string `yaml:"directories"`
}

// CronSeed is one entry of the config file's cron list. Load parses the
// entries into Config.Cron; nothing in the runtime copies them into
// cron/jobs.json, whose jobs are managed with the `squidbot cron`
// commands.
type CronSeed struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Schedule string `yaml:"schedule"`
	Message  string `yaml:"message"`
	Channel  string `yaml:"channel"`
	Timezone string `yaml:"timezone"`
}

// AliasConfig is one owner-alias labelling rule (spec §4.4).
type AliasConfig struct {
	Address string `yaml:"address"`
	Channel string `yaml:"channel"`
	Label   string `yaml:"label"`
}

// Load reads path (if it exists) and applies SQUIDBOT_-prefixed
// environment overrides for secrets operators should not have to put in
// a file on disk. A missing config file is not an error: every field
// simply keeps its zero value, the way `squidbot onboard` would leave
// things before a user fills anything in.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config %q: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %q: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if cfg.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		cfg.BaseDir = filepath.Join(home, ".squidbot")
	}

	return cfg, nil
}

// applyEnvOverrides lets API keys live outside the config file.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("SQUIDBOT_ANTHROPIC_API_KEY")); v != "" {
		if cfg.LLM.Anthropic == nil {
			cfg.LLM.Anthropic = &AnthropicConfig{}
		}
		cfg.LLM.Anthropic.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SQUIDBOT_OPENAI_API_KEY")); v != "" {
		if cfg.LLM.OpenAI == nil {
			cfg.LLM.OpenAI = &OpenAIConfig{}
		}
		cfg.LLM.OpenAI.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("SQUIDBOT_SLACK_BOT_TOKEN")); v != "" && cfg.Channels.Slack != nil {
		cfg.Channels.Slack.BotToken = v
	}
	if v := strings.TrimSpace(os.Getenv("SQUIDBOT_SLACK_APP_TOKEN")); v != "" && cfg.Channels.Slack != nil {
		cfg.Channels.Slack.AppToken = v
	}
	if v := strings.TrimSpace(os.Getenv("SQUIDBOT_BASE_DIR")); v != "" {
		cfg.BaseDir = v
	}
}
