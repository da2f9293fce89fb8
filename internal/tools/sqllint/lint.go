package main

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	sqlKeywordPattern = regexp.MustCompile(`(?i)\b(select|insert|update|delete|with|create)\b`)
	markerPattern     = regexp.MustCompile(`^--sql ([0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12})$`)
)

type violation struct {
	file    string
	name    string
	line    int
	message string
}

func (v violation) String() string {
	return fmt.Sprintf("%s:%d %s (%s)", v.file, v.line, v.message, v.name)
}

// seenMarker remembers where a marker was first declared.
type seenMarker struct {
	name string
	file string
}

type linter struct {
	seen       map[string]seenMarker
	violations []violation
}

func lintTargets(targets []string) ([]violation, error) {
	l := &linter{seen: map[string]seenMarker{}}
	for _, target := range targets {
		info, err := os.Stat(target)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			if filepath.Ext(target) == ".go" {
				if err := l.lintFile(target); err != nil {
					return nil, err
				}
			}
			continue
		}
		err = filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != target && (strings.HasPrefix(d.Name(), ".") || strings.HasPrefix(d.Name(), "_") || d.Name() == "vendor") {
					return filepath.SkipDir
				}
				return nil
			}
			if filepath.Ext(path) != ".go" || strings.HasSuffix(path, "_test.go") {
				return nil
			}
			return l.lintFile(path)
		})
		if err != nil {
			return nil, err
		}
	}
	return l.violations, nil
}

func (l *linter) lintFile(path string) error {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return err
	}
	ast.Inspect(file, func(n ast.Node) bool {
		vs, ok := n.(*ast.ValueSpec)
		if !ok {
			return true
		}
		for i, value := range vs.Values {
			bl, ok := value.(*ast.BasicLit)
			if !ok || bl.Kind != token.STRING {
				continue
			}
			raw, err := unquote(bl.Value)
			if err != nil || !sqlKeywordPattern.MatchString(raw) {
				continue
			}
			name := "_"
			if i < len(vs.Names) && vs.Names[i] != nil {
				name = vs.Names[i].Name
			}
			pos := fset.Position(bl.Pos())
			m := markerPattern.FindStringSubmatch(firstLine(raw))
			if m == nil {
				l.add(path, name, pos.Line, "missing or invalid --sql <uuid> marker")
				continue
			}
			if prev, dup := l.seen[m[1]]; dup {
				l.add(path, name, pos.Line, fmt.Sprintf("marker %s already used by %s in %s", m[1], prev.name, prev.file))
				continue
			}
			l.seen[m[1]] = seenMarker{name: name, file: path}
		}
		return true
	})
	return nil
}

func (l *linter) add(file, name string, line int, message string) {
	l.violations = append(l.violations, violation{file: file, name: name, line: line, message: message})
}

func firstLine(s string) string {
	s = strings.TrimLeft(s, "\n\r \t")
	if idx := strings.IndexAny(s, "\n\r"); idx >= 0 {
		return strings.TrimSpace(s[:idx])
	}
	return strings.TrimSpace(s)
}

func unquote(v string) (string, error) {
	if len(v) == 0 {
		return v, nil
	}
	if v[0] == '`' {
		return v[1 : len(v)-1], nil
	}
	return strconv.Unquote(v)
}
