package image

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

const defaultSize = "1024x1024"

// GenerateRequest describes one scene illustration.
type GenerateRequest struct {
	Prompt      string
	Size        string
	SceneNumber int
}

// Asset represents a generated image.
type Asset struct {
	Data     []byte
	Format   string
	Width    int
	Height   int
	Provider string
	URL      string
}

// Generator is the contract implemented by image backends and the fallback chain.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Asset, error)
}

// NormalizeSize accepts "WxH" or "W*H" and returns the "WxH" form, defaulting to 1024x1024.
func NormalizeSize(size string) string {
	size = strings.ToLower(strings.TrimSpace(size))
	size = strings.ReplaceAll(size, "*", "x")
	w, h, ok := strings.Cut(size, "x")
	if !ok {
		return defaultSize
	}
	width, errW := strconv.Atoi(strings.TrimSpace(w))
	height, errH := strconv.Atoi(strings.TrimSpace(h))
	if errW != nil || errH != nil || width <= 0 || height <= 0 {
		return defaultSize
	}
	return fmt.Sprintf("%dx%d", width, height)
}
