// Package media turns narration audio and still images into the final video
// using ffmpeg and ffprobe.
package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"storyreel/internal/infra"
)

const stderrTail = 800

// Runner executes an external media tool and returns its stdout.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// CommandError carries the tail of a failed tool's stderr.
type CommandError struct {
	Name   string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	if e.Stderr == "" {
		return fmt.Sprintf("%s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Name, e.Err, e.Stderr)
}

func (e *CommandError) Unwrap() error { return e.Err }

// ExecRunner runs tools with os/exec.
type ExecRunner struct {
	Logger *infra.Logger
}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	logger := infra.LoggerOrDiscard(r.Logger)
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	logger.Debug().Str("tool", name).Strs("args", args).Msg("media: exec")
	if err := cmd.Run(); err != nil {
		tail := strings.TrimSpace(stderr.String())
		if len(tail) > stderrTail {
			tail = tail[len(tail)-stderrTail:]
		}
		return stdout.Bytes(), &CommandError{Name: name, Stderr: tail, Err: err}
	}
	return stdout.Bytes(), nil
}

// Tools names the binaries used by the package.
type Tools struct {
	FFmpeg  string
	FFprobe string
}

func (t Tools) withDefaults() Tools {
	if t.FFmpeg == "" {
		t.FFmpeg = "ffmpeg"
	}
	if t.FFprobe == "" {
		t.FFprobe = "ffprobe"
	}
	return t
}

func ffmpegArgs(args ...string) []string {
	return append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
}
