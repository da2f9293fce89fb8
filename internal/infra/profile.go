package infra

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RenderProfile carries the encoding knobs of the final video.
type RenderProfile struct {
	FPS               int     `yaml:"fps"`
	Height            int     `yaml:"height"`
	FadeSeconds       float64 `yaml:"fade_seconds"`
	MusicVolume       float64 `yaml:"music_volume"`
	VideoCodec        string  `yaml:"video_codec"`
	AudioCodec        string  `yaml:"audio_codec"`
	Preset            string  `yaml:"preset"`
	CaptionFontSize   int     `yaml:"caption_font_size"`
	CaptionWidthRatio float64 `yaml:"caption_width_ratio"`
	CaptionFontFile   string  `yaml:"caption_font_file"`
}

// DefaultRenderProfile returns the profile used when no file is configured.
func DefaultRenderProfile() RenderProfile {
	return RenderProfile{
		FPS:               24,
		Height:            720,
		FadeSeconds:       1.0,
		MusicVolume:       0.15,
		VideoCodec:        "libx264",
		AudioCodec:        "aac",
		Preset:            "medium",
		CaptionFontSize:   40,
		CaptionWidthRatio: 0.9,
	}
}

// LoadRenderProfile reads a YAML profile; fields left out keep their defaults.
// An empty path returns the defaults.
func LoadRenderProfile(path string) (RenderProfile, error) {
	profile := DefaultRenderProfile()
	if path == "" {
		return profile, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return profile, fmt.Errorf("read render profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return profile, fmt.Errorf("parse render profile: %w", err)
	}
	if err := profile.Validate(); err != nil {
		return profile, err
	}
	return profile, nil
}

// Validate rejects values ffmpeg cannot honour.
func (p RenderProfile) Validate() error {
	switch {
	case p.FPS <= 0:
		return fmt.Errorf("render profile: fps must be positive")
	case p.Height <= 0 || p.Height%2 != 0:
		return fmt.Errorf("render profile: height must be a positive even number")
	case p.FadeSeconds < 0:
		return fmt.Errorf("render profile: fade_seconds must not be negative")
	case p.MusicVolume < 0:
		return fmt.Errorf("render profile: music_volume must not be negative")
	case p.CaptionWidthRatio <= 0 || p.CaptionWidthRatio > 1:
		return fmt.Errorf("render profile: caption_width_ratio must be in (0, 1]")
	}
	return nil
}
