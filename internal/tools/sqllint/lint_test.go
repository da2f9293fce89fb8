package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLintAcceptsMarkedQueries(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "q.go", "package q\n\nconst QSelect = `--sql 021e6211-09f5-4c6c-b1d5-61bf3373d31c\nselect 1;\n`\n\nconst label = \"not sql\"\n")

	vs, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected no violations, got %v", vs)
	}
}

func TestLintFlagsMissingMarker(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "q.go", "package q\n\nconst QUpdate = `update story_jobs set stage = $2 where id = $1`\n")

	vs, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 1 || vs[0].name != "QUpdate" || vs[0].line != 3 {
		t.Fatalf("unexpected violations %v", vs)
	}
}

func TestLintFlagsDuplicateMarker(t *testing.T) {
	dir := t.TempDir()
	marker := "--sql 7fe2c962-d31e-4462-87ae-b62f38469596"
	writeSource(t, dir, "a.go", "package q\n\nconst QA = `"+marker+"\nselect 1;\n`\n")
	writeSource(t, dir, "b.go", "package q\n\nconst QB = `"+marker+"\nselect 2;\n`\n")

	vs, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 1 || !strings.Contains(vs[0].message, "already used by QA") {
		t.Fatalf("unexpected violations %v", vs)
	}
}

func TestLintSkipsTestFiles(t *testing.T) {
	dir := t.TempDir()
	writeSource(t, dir, "q_test.go", "package q\n\nconst fixture = `select 1`\n")

	vs, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lint: %v", err)
	}
	if len(vs) != 0 {
		t.Fatalf("expected test files skipped, got %v", vs)
	}
}
