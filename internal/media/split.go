package media

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

// Span is a [Start, End) window of the source track in seconds.
type Span struct {
	Start float64
	End   float64
}

func (s Span) Length() float64 { return s.End - s.Start }

// Spans lays durations end to end from 0. The final span is stretched or shrunk to end
// exactly at total, so drift only ever lands in the last scene.
func Spans(durations []float64, total float64) ([]Span, error) {
	if len(durations) == 0 {
		return nil, fmt.Errorf("%w: no durations", domain.ErrInvalidScript)
	}
	spans := make([]Span, len(durations))
	cursor := 0.0
	for i, d := range durations {
		if d < 0 || math.IsNaN(d) {
			return nil, fmt.Errorf("%w: negative duration for scene %d", domain.ErrInvalidScript, i+1)
		}
		end := cursor + d
		if i == len(durations)-1 {
			if total < cursor {
				return nil, fmt.Errorf("%w: durations exceed track length %.3fs", domain.ErrInvalidScript, total)
			}
			end = total
		}
		spans[i] = Span{Start: cursor, End: end}
		cursor = end
	}
	return spans, nil
}

// Segment is one extracted per-scene clip.
type Segment struct {
	Path string
	Span Span
}

// Splitter slices a full narration track into per-scene files.
type Splitter struct {
	runner Runner
	prober *Prober
	ffmpeg string
	logger *infra.Logger
}

func NewSplitter(runner Runner, tools Tools, logger *infra.Logger) *Splitter {
	tools = tools.withDefaults()
	return &Splitter{
		runner: runner,
		prober: NewProber(runner, tools),
		ffmpeg: tools.FFmpeg,
		logger: infra.LoggerOrDiscard(logger),
	}
}

// Duration probes the full track.
func (s *Splitter) Duration(ctx context.Context, source string) (float64, error) {
	return s.prober.Duration(ctx, source)
}

// Split extracts one segment per duration into outPaths, in order.
func (s *Splitter) Split(ctx context.Context, source string, durations []float64, outPaths []string) ([]Segment, error) {
	if len(durations) != len(outPaths) {
		return nil, fmt.Errorf("%w: %d durations for %d outputs", domain.ErrScenesCountMismatch, len(durations), len(outPaths))
	}
	total, err := s.prober.Duration(ctx, source)
	if err != nil {
		return nil, err
	}
	spans, err := Spans(durations, total)
	if err != nil {
		return nil, err
	}
	segments := make([]Segment, 0, len(spans))
	for i, span := range spans {
		out := outPaths[i]
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return nil, fmt.Errorf("split: ensure directory: %w", err)
		}
		args := ffmpegArgs(
			"-i", source,
			"-ss", formatSeconds(span.Start),
			"-t", formatSeconds(span.Length()),
			"-vn",
			"-c:a", "libmp3lame",
			"-q:a", "2",
			out,
		)
		if _, err := s.runner.Run(ctx, s.ffmpeg, args...); err != nil {
			return nil, fmt.Errorf("%w: extract scene %d: %v", domain.ErrAudioLoad, i+1, err)
		}
		s.logger.Debug().
			Int("scene", i+1).
			Float64("start", span.Start).
			Float64("end", span.End).
			Str("path", out).
			Msg("split: wrote scene segment")
		segments = append(segments, Segment{Path: out, Span: span})
	}
	return segments, nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
