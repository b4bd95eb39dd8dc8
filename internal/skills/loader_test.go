package skills

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeSkill(t *testing.T, dir, name, description, body string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	content := "---\nname: " + name + "\ndescription: " + description + "\n---\n\n" + body
	if err := os.WriteFile(filepath.Join(skillDir, SkillFilename), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
}

func TestListSkills_discoversAcrossDirs(t *testing.T) {
	bundled := t.TempDir()
	user := t.TempDir()

	writeSkill(t, bundled, "weather", "bundled weather skill", "# Weather\ncheck the forecast")
	writeSkill(t, user, "notes", "user notes skill", "# Notes\ntake notes")

	l := NewLoader([]string{bundled, user}, nil)
	defer l.Close()

	got, err := l.ListSkills()
	if err != nil {
		t.Fatalf("ListSkills error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(got) = %d, want 2", len(got))
	}
}

func TestListSkills_laterDirOverridesEarlierByName(t *testing.T) {
	bundled := t.TempDir()
	user := t.TempDir()

	writeSkill(t, bundled, "weather", "bundled version", "bundled body")
	writeSkill(t, user, "weather", "user version", "user body")

	l := NewLoader([]string{bundled, user}, nil)
	defer l.Close()

	got, err := l.ListSkills()
	if err != nil {
		t.Fatalf("ListSkills error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(got) = %d, want 1 (override, not duplicate)", len(got))
	}
	if got[0].Description != "user version" {
		t.Errorf("Description = %q, want user dir to win", got[0].Description)
	}
}

func TestLoadSkillBody_returnsMarkdownAfterFrontmatter(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "greeter", "says hello", "# Greeter\n\nSay hello warmly.")

	l := NewLoader([]string{dir}, nil)
	defer l.Close()

	body, err := l.LoadSkillBody("greeter")
	if err != nil {
		t.Fatalf("LoadSkillBody error: %v", err)
	}
	if body != "# Greeter\n\nSay hello warmly." {
		t.Errorf("body = %q", body)
	}
}

func TestLoadSkillBody_unknownNameIsError(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader([]string{dir}, nil)
	defer l.Close()

	if _, err := l.LoadSkillBody("nope"); err == nil {
		t.Error("expected error for unknown skill name")
	}
}

func TestListSkills_mtimeChangeForcesRescanWithinTTL(t *testing.T) {
	dir := t.TempDir()
	writeSkill(t, dir, "weather", "first version", "first body")

	l := NewLoader([]string{dir}, nil)
	defer l.Close()

	first, err := l.ListSkills()
	if err != nil {
		t.Fatalf("ListSkills error: %v", err)
	}
	if first[0].Description != "first version" {
		t.Fatalf("Description = %q, want %q", first[0].Description, "first version")
	}

	// Touch the file forward so its mtime visibly changes even on coarse
	// filesystem clocks, then rewrite content.
	skillFile := filepath.Join(dir, "weather", SkillFilename)
	future := time.Now().Add(5 * time.Second)
	writeSkill(t, dir, "weather", "second version", "second body")
	if err := os.Chtimes(skillFile, future, future); err != nil {
		t.Fatalf("Chtimes error: %v", err)
	}

	second, err := l.ListSkills()
	if err != nil {
		t.Fatalf("ListSkills error: %v", err)
	}
	if second[0].Description != "second version" {
		t.Errorf("Description = %q, want %q (mtime change should force rescan within TTL)", second[0].Description, "second version")
	}
}

func TestSplitFrontmatter_missingDelimitersIsError(t *testing.T) {
	_, _, err := splitFrontmatter([]byte("no frontmatter here"))
	if err == nil {
		t.Error("expected error for missing frontmatter delimiters")
	}
}

func TestParseSkill_requiresNameAndDescription(t *testing.T) {
	_, err := parseSkill([]byte("---\ndescription: missing name\n---\nbody"), "/tmp/x")
	if err == nil {
		t.Error("expected error when name is missing")
	}

	_, err = parseSkill([]byte("---\nname: no-description\n---\nbody"), "/tmp/x")
	if err == nil {
		t.Error("expected error when description is missing")
	}
}
