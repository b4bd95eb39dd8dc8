package tools

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteThenReadFile(t *testing.T) {
	dir := t.TempDir()
	write := NewWriteFileTool(dir)
	read := NewReadFileTool(dir)

	res, err := write.Execute(context.Background(), map[string]any{"path": "notes/a.txt", "content": "hello"})
	if err != nil {
		t.Fatalf("write Execute error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected write error: %s", res.Content)
	}

	res, err = read.Execute(context.Background(), map[string]any{"path": "notes/a.txt"})
	if err != nil {
		t.Fatalf("read Execute error: %v", err)
	}
	if res.IsError || res.Content != "hello" {
		t.Errorf("read result = %+v, want content hello", res)
	}
}

func TestReadFileTool_rejectsEscape(t *testing.T) {
	dir := t.TempDir()
	read := NewReadFileTool(dir)
	res, err := read.Execute(context.Background(), map[string]any{"path": "../../etc/passwd"})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	if !res.IsError {
		t.Error("expected an error result for a path escaping the workspace")
	}
}

func TestListFilesTool_sortsEntries(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "b.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("Mkdir error: %v", err)
	}

	list := NewListFilesTool(dir)
	res, err := list.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}
	want := "a.txt\nb.txt\nsub/"
	if res.Content != want {
		t.Errorf("list result = %q, want %q", res.Content, want)
	}
}
