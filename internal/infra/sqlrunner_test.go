package infra

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractMarker(t *testing.T) {
	query := `--sql 0b7f6a52-1d2e-4c55-9a51-7f0d2c3e4b11
select 1;`
	marker, body, err := extractMarker(query)
	if err != nil {
		t.Fatalf("extractMarker: %v", err)
	}
	if marker != "0b7f6a52-1d2e-4c55-9a51-7f0d2c3e4b11" {
		t.Fatalf("marker = %q", marker)
	}
	if strings.TrimSpace(body) != "select 1;" {
		t.Fatalf("body = %q", body)
	}
}

func TestExtractMarkerRejectsUnmarkedSQL(t *testing.T) {
	for _, q := range []string{"select 1;", "--sql not-a-uuid\nselect 1;"} {
		if _, _, err := extractMarker(q); !errors.Is(err, ErrMissingMarker) {
			t.Fatalf("expected ErrMissingMarker for %q, got %v", q, err)
		}
	}
	if _, _, err := extractMarker("   "); err == nil {
		t.Fatalf("expected error for empty query")
	}
}
