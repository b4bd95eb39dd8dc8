package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"onboard", "agent", "gateway", "status", "cron", "skills"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestBuildCronCmdIncludesSubcommands(t *testing.T) {
	var path string
	cmd := buildCronCmd(&path)
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, name := range []string{"list", "add", "remove", "set-enabled"} {
		if !names[name] {
			t.Fatalf("expected cron subcommand %q to be registered", name)
		}
	}
}

func TestBuildSkillsCmdIncludesList(t *testing.T) {
	var path string
	cmd := buildSkillsCmd(&path)
	found := false
	for _, sub := range cmd.Commands() {
		if sub.Name() == "list" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected skills subcommand \"list\" to be registered")
	}
}
