package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

// TempAudioName is the intermediate mixed track written next to the output.
const TempAudioName = "_temp_audio.m4a"

// ComposeRequest lists per-scene media in scene order.
type ComposeRequest struct {
	Images     []string
	Audio      []string
	// Subtitles is nil for no captions; otherwise it needs one entry per scene.
	Subtitles  []string
	MusicPath  string
	OutputPath string
}

// ComposeResult describes the exported video.
type ComposeResult struct {
	OutputPath      string
	DurationSeconds float64
	ClipDurations   []float64
	Width           int
	Height          int
	MusicMixed      bool
}

// Composer renders one clip per scene, joins them and exports the final MP4.
type Composer struct {
	runner  Runner
	prober  *Prober
	ffmpeg  string
	profile infra.RenderProfile
	logger  *infra.Logger
}

func NewComposer(runner Runner, tools Tools, profile infra.RenderProfile, logger *infra.Logger) *Composer {
	tools = tools.withDefaults()
	return &Composer{
		runner:  runner,
		prober:  NewProber(runner, tools),
		ffmpeg:  tools.FFmpeg,
		profile: profile,
		logger:  infra.LoggerOrDiscard(logger),
	}
}

// ComposeOptions are the per-run switches for ComposeScript.
type ComposeOptions struct {
	Subtitles  bool
	MusicPath  string
	OutputPath string
}

// ComposeScript renders a document whose scenes all carry audio and image paths.
func (c *Composer) ComposeScript(ctx context.Context, doc *domain.ScriptDocument, opts ComposeOptions) (*ComposeResult, error) {
	if doc.Len() == 0 {
		return nil, fmt.Errorf("%w: script has no scenes", domain.ErrScenesCountMismatch)
	}
	req := ComposeRequest{MusicPath: opts.MusicPath, OutputPath: opts.OutputPath}
	for _, s := range doc.Scenes {
		if !s.RenderReady() {
			return nil, fmt.Errorf("%w: scene %d", domain.ErrSceneNotReady, s.SceneNumber)
		}
		req.Images = append(req.Images, s.ImagePath)
		req.Audio = append(req.Audio, s.AudioPath)
	}
	if opts.Subtitles {
		req.Subtitles = doc.Narrations()
	}
	return c.Compose(ctx, req)
}

// checkCounts runs before any file is touched or any tool is executed.
func checkCounts(req ComposeRequest) error {
	if len(req.Images) == 0 || len(req.Images) != len(req.Audio) {
		return fmt.Errorf("%w: %d images, %d audio clips", domain.ErrScenesCountMismatch, len(req.Images), len(req.Audio))
	}
	if req.Subtitles != nil && len(req.Subtitles) != len(req.Images) {
		return fmt.Errorf("%w: %d subtitles for %d scenes", domain.ErrSubtitleCountMismatch, len(req.Subtitles), len(req.Images))
	}
	if strings.TrimSpace(req.OutputPath) == "" {
		return errors.New("compose: output path is required")
	}
	return nil
}

type clipPlan struct {
	image    string
	audio    string
	caption  string
	width    int
	duration float64
}

// Compose renders the video. The exported duration equals the sum of the audio clip
// durations; fades sit inside each clip so they never lengthen the timeline.
func (c *Composer) Compose(ctx context.Context, req ComposeRequest) (*ComposeResult, error) {
	if err := checkCounts(req); err != nil {
		return nil, err
	}
	height := c.profile.Height

	plans := make([]clipPlan, len(req.Images))
	canvasWidth := 0
	total := 0.0
	for i := range req.Images {
		width, err := scaledWidth(req.Images[i], height)
		if err != nil {
			return nil, err
		}
		duration, err := c.prober.Duration(ctx, req.Audio[i])
		if err != nil {
			return nil, err
		}
		plans[i] = clipPlan{image: req.Images[i], audio: req.Audio[i], width: width, duration: duration}
		if req.Subtitles != nil {
			plans[i].caption = strings.TrimSpace(req.Subtitles[i])
		}
		canvasWidth = max(canvasWidth, width)
		total += duration
	}

	outDir := filepath.Dir(req.OutputPath)
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("compose: ensure output directory: %w", err)
	}
	workDir, err := os.MkdirTemp(outDir, ".compose-")
	if err != nil {
		return nil, fmt.Errorf("compose: work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	clips := make([]string, len(plans))
	for i, plan := range plans {
		clip := filepath.Join(workDir, fmt.Sprintf("clip_%03d.mp4", i+1))
		if err := c.renderClip(ctx, workDir, i, len(plans), plan, canvasWidth, clip); err != nil {
			return nil, fmt.Errorf("compose: scene %d: %w", i+1, err)
		}
		clips[i] = clip
	}

	joined := filepath.Join(workDir, "joined.mp4")
	if err := c.concat(ctx, workDir, clips, joined); err != nil {
		return nil, fmt.Errorf("compose: concat: %w", err)
	}

	tempAudio := filepath.Join(outDir, TempAudioName)
	mixed := false
	if req.MusicPath != "" {
		if _, statErr := os.Stat(req.MusicPath); statErr != nil {
			c.logger.Warn().Err(statErr).Str("music", req.MusicPath).Msg("compose: background music unavailable, using narration only")
		} else if err := c.mixMusic(ctx, joined, req.MusicPath, total, tempAudio); err != nil {
			c.logger.Warn().Err(err).Str("music", req.MusicPath).Msg("compose: music mix failed, using narration only")
			_ = os.Remove(tempAudio)
		} else {
			mixed = true
		}
	}
	if !mixed {
		if _, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(
			"-i", joined,
			"-map", "0:a:0",
			"-vn",
			"-c:a", c.profile.AudioCodec,
			"-b:a", "192k",
			tempAudio,
		)...); err != nil {
			_ = os.Remove(tempAudio)
			return nil, fmt.Errorf("compose: narration track: %w", err)
		}
	}

	// the export lands in the work directory and only a finished file is moved into place
	staged := filepath.Join(workDir, "final.mp4")
	if _, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(
		"-i", joined,
		"-i", tempAudio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "copy",
		"-t", formatSeconds(total),
		"-movflags", "+faststart",
		staged,
	)...); err != nil {
		_ = os.Remove(tempAudio)
		return nil, fmt.Errorf("compose: export: %w", err)
	}
	if err := os.Rename(staged, req.OutputPath); err != nil {
		_ = os.Remove(tempAudio)
		return nil, fmt.Errorf("compose: move output into place: %w", err)
	}
	if err := os.Remove(tempAudio); err != nil && !os.IsNotExist(err) {
		c.logger.Warn().Err(err).Str("path", tempAudio).Msg("compose: remove temp audio")
	}

	durations := make([]float64, len(plans))
	for i, p := range plans {
		durations[i] = p.duration
	}
	c.logger.Info().
		Str("output", req.OutputPath).
		Int("scenes", len(plans)).
		Float64("duration", total).
		Bool("music", mixed).
		Msg("compose: video exported")

	return &ComposeResult{
		OutputPath:      req.OutputPath,
		DurationSeconds: total,
		ClipDurations:   durations,
		Width:           canvasWidth,
		Height:          height,
		MusicMixed:      mixed,
	}, nil
}

func (c *Composer) renderClip(ctx context.Context, workDir string, index, count int, plan clipPlan, canvasWidth int, out string) error {
	p := c.profile
	filters := []string{
		fmt.Sprintf("scale=%d:%d", plan.width, p.Height),
		"setsar=1",
		fmt.Sprintf("pad=%d:%d:(ow-iw)/2:0:color=black", canvasWidth, p.Height),
		"format=yuv420p",
	}
	filters = append(filters, fadeFilters(index, count, plan.duration, p.FadeSeconds)...)

	if plan.caption != "" {
		captionFile := filepath.Join(workDir, fmt.Sprintf("caption_%03d.txt", index+1))
		maxChars := captionLineChars(canvasWidth, p.CaptionWidthRatio, p.CaptionFontSize)
		if err := os.WriteFile(captionFile, []byte(WrapCaption(plan.caption, maxChars)), 0o644); err != nil {
			return fmt.Errorf("write caption: %w", err)
		}
		filters = append(filters, drawTextFilter(captionFile, p))
	}

	graph := "[0:v]" + strings.Join(filters, ",") + "[v]"
	fps := fmt.Sprintf("%d", p.FPS)
	_, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(
		"-loop", "1",
		"-framerate", fps,
		"-i", plan.image,
		"-i", plan.audio,
		"-filter_complex", graph,
		"-map", "[v]",
		"-map", "1:a:0",
		"-t", formatSeconds(plan.duration),
		"-r", fps,
		"-c:v", p.VideoCodec,
		"-preset", p.Preset,
		"-pix_fmt", "yuv420p",
		"-c:a", p.AudioCodec,
		"-ar", "44100",
		"-ac", "2",
		out,
	)...)
	return err
}

// fadeFilters fades the first clip out only, the last clip in only and every clip in
// between both ways. The fade never exceeds half the clip.
func fadeFilters(index, count int, duration, fade float64) []string {
	fade = math.Min(fade, duration/2)
	if fade <= 0 || count < 2 {
		return nil
	}
	var out []string
	if index > 0 {
		out = append(out, fmt.Sprintf("fade=t=in:st=0:d=%s", formatSeconds(fade)))
	}
	if index < count-1 {
		out = append(out, fmt.Sprintf("fade=t=out:st=%s:d=%s", formatSeconds(duration-fade), formatSeconds(fade)))
	}
	return out
}

func drawTextFilter(captionFile string, p infra.RenderProfile) string {
	opts := []string{
		"textfile=" + escapeFilterValue(captionFile),
		"expansion=none",
		"fontcolor=white",
		fmt.Sprintf("fontsize=%d", p.CaptionFontSize),
		"borderw=2",
		"bordercolor=black",
		"line_spacing=6",
		"x=(w-text_w)/2",
		"y=h-text_h-40",
	}
	if p.CaptionFontFile != "" {
		opts = append(opts, "fontfile="+escapeFilterValue(p.CaptionFontFile))
	}
	return "drawtext=" + strings.Join(opts, ":")
}

func (c *Composer) concat(ctx context.Context, workDir string, clips []string, out string) error {
	var list strings.Builder
	for _, clip := range clips {
		list.WriteString("file '")
		list.WriteString(strings.ReplaceAll(clip, "'", `'\''`))
		list.WriteString("'\n")
	}
	listPath := filepath.Join(workDir, "clips.txt")
	if err := os.WriteFile(listPath, []byte(list.String()), 0o644); err != nil {
		return err
	}
	_, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(
		"-f", "concat",
		"-safe", "0",
		"-i", listPath,
		"-c", "copy",
		out,
	)...)
	return err
}

// mixMusic loops the bed under the narration, trimmed to the narration length.
func (c *Composer) mixMusic(ctx context.Context, joined, music string, total float64, out string) error {
	graph := fmt.Sprintf(
		"[1:a]volume=%.3f,atrim=0:%s,asetpts=PTS-STARTPTS[bg];[0:a][bg]amix=inputs=2:duration=first:dropout_transition=0:normalize=0[a]",
		c.profile.MusicVolume, formatSeconds(total),
	)
	_, err := c.runner.Run(ctx, c.ffmpeg, ffmpegArgs(
		"-i", joined,
		"-stream_loop", "-1",
		"-i", music,
		"-filter_complex", graph,
		"-map", "[a]",
		"-vn",
		"-c:a", c.profile.AudioCodec,
		"-b:a", "192k",
		out,
	)...)
	return err
}

// scaledWidth reads the image header and returns the even width that keeps its
// aspect ratio at the target height.
func scaledWidth(path string, height int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("compose: open image: %w", err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, fmt.Errorf("compose: decode image %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return 0, fmt.Errorf("compose: image %s has no size", path)
	}
	w := int(math.Round(float64(cfg.Width) * float64(height) / float64(cfg.Height)))
	if w%2 != 0 {
		w++
	}
	return max(w, 2), nil
}

func captionLineChars(canvasWidth int, ratio float64, fontSize int) int {
	if fontSize <= 0 {
		fontSize = 40
	}
	// average glyph advance is roughly 0.55 of the font size
	n := int(float64(canvasWidth) * ratio / (float64(fontSize) * 0.55))
	return max(n, 10)
}

// WrapCaption breaks text on word boundaries so no line exceeds maxChars unless a
// single word does.
func WrapCaption(text string, maxChars int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len([]rune(line))+1+len([]rune(w)) > maxChars {
			lines = append(lines, line)
			line = w
			continue
		}
		line += " " + w
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

var (
	optionEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `:`, `\:`)
	graphEscaper  = strings.NewReplacer(`\`, `\\`, `'`, `\'`, `[`, `\[`, `]`, `\]`, `,`, `\,`, `;`, `\;`)
)

// escapeFilterValue applies option-level then graph-level escaping.
func escapeFilterValue(v string) string {
	return graphEscaper.Replace(optionEscaper.Replace(v))
}
