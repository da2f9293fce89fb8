package infra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadRenderProfileDefaults(t *testing.T) {
	profile, err := LoadRenderProfile("")
	if err != nil {
		t.Fatalf("LoadRenderProfile: %v", err)
	}
	if profile.FPS != 24 || profile.Height != 720 || profile.FadeSeconds != 1.0 || profile.MusicVolume != 0.15 {
		t.Fatalf("unexpected defaults: %#v", profile)
	}
}

func TestLoadRenderProfileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.yaml")
	content := "fps: 30\nfade_seconds: 0.5\npreset: fast\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	profile, err := LoadRenderProfile(path)
	if err != nil {
		t.Fatalf("LoadRenderProfile: %v", err)
	}
	if profile.FPS != 30 || profile.FadeSeconds != 0.5 || profile.Preset != "fast" {
		t.Fatalf("overrides not applied: %#v", profile)
	}
	if profile.Height != 720 || profile.VideoCodec != "libx264" {
		t.Fatalf("defaults lost: %#v", profile)
	}
}

func TestLoadRenderProfileRejectsOddHeight(t *testing.T) {
	path := filepath.Join(t.TempDir(), "render.yaml")
	if err := os.WriteFile(path, []byte("height: 721\n"), 0o644); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if _, err := LoadRenderProfile(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
