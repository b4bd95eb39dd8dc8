// Package skills discovers SKILL.md files across an ordered list of search
// directories and serves their parsed metadata and body text through a
// TTL+mtime cache. See spec §4.3.
package skills

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/local/squidbot/pkg/models"
)

const (
	// SkillFilename is the expected filename for a skill definition.
	SkillFilename = "SKILL.md"

	// frontmatterDelimiter marks the start and end of the YAML frontmatter block.
	frontmatterDelimiter = "---"
)

type skillFrontmatter struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Always      bool           `yaml:"always"`
	Requires    map[string]any `yaml:"requires"`
}

// parsed is one SKILL.md's metadata plus body, with the path it was
// discovered under.
type parsed struct {
	meta models.SkillMetadata
	body string
}

// parseSkillFile reads and parses a SKILL.md file at path. dir is the
// skill's directory, recorded as SkillMetadata.Path.
func parseSkillFile(path, dir string) (parsed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return parsed{}, fmt.Errorf("read skill file: %w", err)
	}
	return parseSkill(data, dir)
}

func parseSkill(data []byte, dir string) (parsed, error) {
	frontmatter, body, err := splitFrontmatter(data)
	if err != nil {
		return parsed{}, fmt.Errorf("split frontmatter: %w", err)
	}

	var fm skillFrontmatter
	if err := yaml.Unmarshal(frontmatter, &fm); err != nil {
		return parsed{}, fmt.Errorf("parse frontmatter: %w", err)
	}
	if fm.Name == "" {
		return parsed{}, fmt.Errorf("skill name is required")
	}
	if fm.Description == "" {
		return parsed{}, fmt.Errorf("skill description is required")
	}

	return parsed{
		meta: models.SkillMetadata{
			Name:        fm.Name,
			Description: fm.Description,
			Path:        dir,
			Always:      fm.Always,
			Requires:    fm.Requires,
		},
		body: strings.TrimSpace(string(body)),
	}, nil
}

// splitFrontmatter separates the YAML frontmatter block from the markdown
// body, the delimiter on its own line at the start and once more to close it.
func splitFrontmatter(data []byte) (frontmatter, body []byte, err error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))

	if !scanner.Scan() {
		return nil, nil, fmt.Errorf("empty file")
	}
	if strings.TrimSpace(scanner.Text()) != frontmatterDelimiter {
		return nil, nil, fmt.Errorf("missing opening frontmatter delimiter")
	}

	var fmLines []string
	closed := false
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == frontmatterDelimiter {
			closed = true
			break
		}
		fmLines = append(fmLines, line)
	}
	if !closed {
		return nil, nil, fmt.Errorf("missing closing frontmatter delimiter")
	}

	var bodyLines []string
	for scanner.Scan() {
		bodyLines = append(bodyLines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("scanner error: %w", err)
	}

	return []byte(strings.Join(fmLines, "\n")), []byte(strings.Join(bodyLines, "\n")), nil
}

// discoverDir scans one search directory's immediate subdirectories for a
// SKILL.md each, returning the successfully parsed ones. A subdirectory
// without a SKILL.md, or with one that fails to parse, is skipped rather
// than raised; the skip is not logged here or by the caller (Loader).
func discoverDir(dir string) ([]parsed, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}

	var out []parsed
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		skillPath := filepath.Join(dir, e.Name(), SkillFilename)
		if _, err := os.Stat(skillPath); err != nil {
			continue
		}
		p, err := parseSkillFile(skillPath, filepath.Join(dir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
