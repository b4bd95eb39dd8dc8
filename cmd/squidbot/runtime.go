package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/local/squidbot/internal/agent"
	"github.com/local/squidbot/internal/channel"
	"github.com/local/squidbot/internal/config"
	"github.com/local/squidbot/internal/gateway"
	"github.com/local/squidbot/internal/llm"
	"github.com/local/squidbot/internal/memorymgr"
	"github.com/local/squidbot/internal/registry"
	"github.com/local/squidbot/internal/skills"
	"github.com/local/squidbot/internal/store"
	"github.com/local/squidbot/internal/tools"
	"github.com/local/squidbot/internal/tools/mcpserver"
)

// defaultSystemPrompt seeds the Memory Manager's system-prompt assembly
// (spec §4.4) when no richer persona is configured.
const defaultSystemPrompt = "You are squidbot, a personal AI assistant with access to local tools and a persistent memory."

// configEnvVar is the environment variable honoured before constructing
// any component (spec §6: "overridable by a single environment variable
// pointing to the config file").
const configEnvVar = "SQUIDBOT_CONFIG"

// runtime bundles every composed component the CLI commands need.
type runtime struct {
	cfg      *config.Config
	store    *store.Store
	skills   *skills.Loader
	pool     *llm.Pool
	registry *registry.Registry
	memory   *memorymgr.Manager
	loop     *agent.Loop
	logger   *slog.Logger
}

// loadConfig resolves the config path (flag, then env var, then the
// base-dir default) and loads it.
func loadConfig(flagPath string) (*config.Config, error) {
	path := flagPath
	if path == "" {
		path = os.Getenv(configEnvVar)
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			path = filepath.Join(home, ".squidbot", "config.yaml")
		}
	}
	return config.Load(path)
}

// buildRuntime constructs the full component graph (C1-C7) from cfg. It
// does not start any channel or the scheduler; callers decide what to run.
func buildRuntime(cfg *config.Config) (*runtime, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	st := store.New(cfg.BaseDir, logger)

	var skillDirs []string
	skillDirs = append(skillDirs, cfg.Skills.Directories...)
	skillDirs = append(skillDirs, filepath.Join(st.WorkspaceDir(), "skills"))
	sk := skills.NewLoader(skillDirs, logger)

	var models []llm.Model
	if cfg.LLM.Anthropic != nil && cfg.LLM.Anthropic.APIKey != "" {
		m, err := llm.NewAnthropicModel(llm.AnthropicConfig{
			APIKey:    cfg.LLM.Anthropic.APIKey,
			Model:     cfg.LLM.Anthropic.Model,
			MaxTokens: cfg.LLM.Anthropic.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("configure anthropic model: %w", err)
		}
		models = append(models, m)
	}
	if cfg.LLM.OpenAI != nil && cfg.LLM.OpenAI.APIKey != "" {
		m, err := llm.NewOpenAIModel(llm.OpenAIConfig{
			APIKey:    cfg.LLM.OpenAI.APIKey,
			BaseURL:   cfg.LLM.OpenAI.BaseURL,
			Model:     cfg.LLM.OpenAI.Model,
			MaxTokens: cfg.LLM.OpenAI.MaxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("configure openai model: %w", err)
		}
		models = append(models, m)
	}
	pool := llm.New(logger, models...)

	reg := registry.New()
	reg.Register(tools.NewShellTool(st.WorkspaceDir()))
	reg.Register(tools.NewReadFileTool(st.WorkspaceDir()))
	reg.Register(tools.NewWriteFileTool(st.WorkspaceDir()))
	reg.Register(tools.NewListFilesTool(st.WorkspaceDir()))
	reg.Register(tools.NewHistorySearchTool(st))

	for _, srv := range cfg.MCP {
		remoteTools, err := mcpserver.Connect(context.Background(), mcpserver.StdioServer{
			Name:    srv.Name,
			Command: srv.Command,
			Args:    srv.Args,
		}, logger)
		if err != nil {
			logger.Warn("failed to connect mcp server, skipping", "server", srv.Name, "error", err)
			continue
		}
		for _, t := range remoteTools {
			reg.Register(t)
		}
	}

	var aliases []memorymgr.AliasRule
	for _, a := range cfg.Aliases {
		aliases = append(aliases, memorymgr.AliasRule{Address: a.Address, Channel: a.Channel, Label: a.Label})
	}
	mem := memorymgr.New(st, pool, sk, aliases, logger)

	loop := agent.New(reg, mem, pool, defaultSystemPrompt, logger)

	return &runtime{
		cfg:      cfg,
		store:    st,
		skills:   sk,
		pool:     pool,
		registry: reg,
		memory:   mem,
		loop:     loop,
		logger:   logger,
	}, nil
}

// buildChannels constructs the enabled channel set from cfg.
func buildChannels(cfg *config.Config, logger *slog.Logger) []channel.Channel {
	var chans []channel.Channel
	if cfg.Channels.CLI != nil && cfg.Channels.CLI.Enabled {
		sender := cfg.Channels.CLI.Sender
		if sender == "" {
			sender = "local"
		}
		chans = append(chans, channel.NewTerminal(os.Stdin, os.Stdout, sender, logger))
	}
	if cfg.Channels.Slack != nil && cfg.Channels.Slack.Enabled {
		chans = append(chans, channel.NewSlack(channel.SlackConfig{
			BotToken: cfg.Channels.Slack.BotToken,
			AppToken: cfg.Channels.Slack.AppToken,
		}, logger))
	}
	return chans
}

// buildGateway wires a runtime's components plus the given channels into
// a Gateway (C10).
func buildGateway(rt *runtime, chans []channel.Channel) *gateway.Gateway {
	return gateway.New(rt.store, rt.loop, chans, rt.logger)
}
