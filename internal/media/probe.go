package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"storyreel/internal/domain"
)

// Prober reads media durations with ffprobe.
type Prober struct {
	runner Runner
	bin    string
}

func NewProber(runner Runner, tools Tools) *Prober {
	return &Prober{runner: runner, bin: tools.withDefaults().FFprobe}
}

// Duration returns the length of an audio file in seconds. Every failure wraps
// domain.ErrAudioLoad.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	if _, err := os.Stat(path); err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrAudioLoad, path, err)
	}
	out, err := p.runner.Run(ctx, p.bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("%w: probe %s: %v", domain.ErrAudioLoad, path, err)
	}
	value := strings.TrimSpace(string(out))
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(seconds) || seconds <= 0 {
		return 0, fmt.Errorf("%w: %s: unreadable duration %q", domain.ErrAudioLoad, path, value)
	}
	return seconds, nil
}
