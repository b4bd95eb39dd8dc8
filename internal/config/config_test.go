package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_missingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BaseDir == "" {
		t.Error("expected a default BaseDir to be filled in")
	}
}

func TestLoad_parsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
base_dir: /data/squidbot
llm:
  anthropic:
    model: claude-sonnet-4-5
    max_tokens: 4096
channels:
  cli:
    enabled: true
    sender: local
  slack:
    enabled: true
skills:
  directories:
    - /data/squidbot/skills
cron:
  - id: morning-digest
    name: morning digest
    schedule: "0 8 * * *"
    message: "summarize overnight activity"
    channel: slack
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.BaseDir != "/data/squidbot" {
		t.Errorf("BaseDir = %q, want /data/squidbot", cfg.BaseDir)
	}
	if cfg.LLM.Anthropic == nil || cfg.LLM.Anthropic.Model != "claude-sonnet-4-5" {
		t.Errorf("LLM.Anthropic = %+v, want Model claude-sonnet-4-5", cfg.LLM.Anthropic)
	}
	if cfg.Channels.CLI == nil || !cfg.Channels.CLI.Enabled || cfg.Channels.CLI.Sender != "local" {
		t.Errorf("Channels.CLI = %+v, want enabled sender=local", cfg.Channels.CLI)
	}
	if cfg.Channels.Slack == nil || !cfg.Channels.Slack.Enabled {
		t.Errorf("Channels.Slack = %+v, want enabled", cfg.Channels.Slack)
	}
	if len(cfg.Skills.Directories) != 1 || cfg.Skills.Directories[0] != "/data/squidbot/skills" {
		t.Errorf("Skills.Directories = %v", cfg.Skills.Directories)
	}
	if len(cfg.Cron) != 1 || cfg.Cron[0].ID != "morning-digest" {
		t.Errorf("Cron = %+v", cfg.Cron)
	}
}

func TestLoad_envOverridesAPIKeysAndBaseDir(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
channels:
  slack:
    enabled: true
    bot_token: file-bot-token
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	t.Setenv("SQUIDBOT_ANTHROPIC_API_KEY", "env-anthropic-key")
	t.Setenv("SQUIDBOT_SLACK_BOT_TOKEN", "env-bot-token")
	t.Setenv("SQUIDBOT_SLACK_APP_TOKEN", "env-app-token")
	t.Setenv("SQUIDBOT_BASE_DIR", "/env/base")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.LLM.Anthropic == nil || cfg.LLM.Anthropic.APIKey != "env-anthropic-key" {
		t.Errorf("LLM.Anthropic = %+v, want APIKey from env", cfg.LLM.Anthropic)
	}
	if cfg.Channels.Slack.BotToken != "env-bot-token" {
		t.Errorf("BotToken = %q, want env override", cfg.Channels.Slack.BotToken)
	}
	if cfg.Channels.Slack.AppToken != "env-app-token" {
		t.Errorf("AppToken = %q, want env override", cfg.Channels.Slack.AppToken)
	}
	if cfg.BaseDir != "/env/base" {
		t.Errorf("BaseDir = %q, want env override", cfg.BaseDir)
	}
}
