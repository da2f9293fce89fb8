// Package pipeline runs the story stages in order and owns the run directory.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/media"
	"storyreel/internal/providers/image"
	"storyreel/internal/providers/script"
	"storyreel/internal/providers/speech"
	"storyreel/internal/storage"
	"storyreel/internal/textsplit"
)

const defaultScenes = 5

// StageStatus is reported through the OnStage hook.
type StageStatus string

const (
	StageStarted   StageStatus = "started"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
)

// StageEvent describes one stage transition.
type StageEvent struct {
	RunID  string
	Stage  domain.Stage
	Status StageStatus
	Err    error
}

// Prober reads the duration of an audio file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Splitter cuts a full narration track into per-scene segments.
type Splitter interface {
	Duration(ctx context.Context, source string) (float64, error)
	Split(ctx context.Context, source string, durations []float64, outPaths []string) ([]media.Segment, error)
}

// Composer renders the final video from a render-ready script.
type Composer interface {
	ComposeScript(ctx context.Context, doc *domain.ScriptDocument, opts media.ComposeOptions) (*media.ComposeResult, error)
}

// Dependencies are the collaborators of an Orchestrator.
type Dependencies struct {
	Scripts  script.Drafter
	Speech   speech.Synthesizer
	Images   image.Generator
	Prober   Prober
	Splitter Splitter
	Composer Composer
}

// Options tune an Orchestrator.
type Options struct {
	OutputDir        string
	ImageSize        string
	ImageConcurrency int
	MusicPath        string
	Logger           *infra.Logger
	OnStage          func(StageEvent)
	Now              func() time.Time
}

// Request is the input of one run.
type Request struct {
	Prompt        string
	Scenes        int
	Subtitles     bool
	NarrationMode domain.NarrationMode
	// Script, when set, is user-provided prose that replaces the Script stage.
	Script string
	// MusicPath overrides Options.MusicPath when not empty.
	MusicPath string
	// OnStage receives this run's stage events after Options.OnStage.
	OnStage func(StageEvent)
}

// Result is returned when every stage succeeded.
type Result struct {
	Run             *domain.PipelineRun
	VideoPath       string
	DurationSeconds float64
	MusicMixed      bool
}

// Orchestrator drives Script, Narration, Visuals and Compose strictly in order.
type Orchestrator struct {
	deps   Dependencies
	opts   Options
	logger *infra.Logger
}

func New(deps Dependencies, opts Options) (*Orchestrator, error) {
	switch {
	case deps.Scripts == nil:
		return nil, errors.New("pipeline: script drafter is required")
	case deps.Speech == nil:
		return nil, errors.New("pipeline: speech synthesizer is required")
	case deps.Images == nil:
		return nil, errors.New("pipeline: image generator is required")
	case deps.Prober == nil || deps.Splitter == nil || deps.Composer == nil:
		return nil, errors.New("pipeline: media tools are required")
	}
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, errors.New("pipeline: output directory is required")
	}
	if opts.ImageConcurrency < 1 {
		opts.ImageConcurrency = 1
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{deps: deps, opts: opts, logger: infra.LoggerOrDiscard(opts.Logger)}, nil
}

type runState struct {
	req   Request
	run   *domain.PipelineRun
	store *storage.FileStore
	video *media.ComposeResult
}

type stageFunc func(ctx context.Context, st *runState) error

// Run executes one pipeline. A failing stage stops the run and is reported as
// *domain.StageError; no later stage is attempted.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Result, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" && strings.TrimSpace(req.Script) == "" {
		return nil, fmt.Errorf("pipeline: %w: prompt is required", domain.ErrInvalidScript)
	}
	if req.Scenes <= 0 {
		req.Scenes = defaultScenes
	}
	if req.NarrationMode == "" {
		req.NarrationMode = domain.NarrationPerScene
	}

	run := domain.NewPipelineRun(o.opts.OutputDir, o.opts.Now())
	store, err := storage.NewFileStore(run.BaseDir)
	if err != nil {
		return nil, err
	}
	st := &runState{req: req, run: run, store: store}
	logger := o.logger.With().Str("run_id", run.ID.String()).Str("run_dir", run.BaseDir).Logger()
	logger.Info().Str("mode", string(req.NarrationMode)).Int("scenes", req.Scenes).Msg("pipeline: run started")

	stages := []struct {
		stage domain.Stage
		fn    stageFunc
	}{
		{domain.StageScript, o.scriptStage},
		{domain.StageNarration, o.narrationStage},
		{domain.StageVisuals, o.visualsStage},
		{domain.StageCompose, o.composeStage},
	}
	for _, s := range stages {
		started := time.Now()
		o.emit(req, StageEvent{RunID: run.ID.String(), Stage: s.stage, Status: StageStarted})
		err := ctx.Err()
		if err == nil {
			err = s.fn(ctx, st)
		}
		if err == nil && run.Script != nil {
			_, err = store.WriteJSON(ctx, domain.ScriptKey, run.Script.Scenes)
		}
		if err != nil {
			stageErr := &domain.StageError{Stage: s.stage, Err: err}
			o.emit(req, StageEvent{RunID: run.ID.String(), Stage: s.stage, Status: StageFailed, Err: err})
			logger.Error().Err(err).Str("stage", string(s.stage)).Msg("pipeline: stage failed")
			return nil, stageErr
		}
		o.emit(req, StageEvent{RunID: run.ID.String(), Stage: s.stage, Status: StageCompleted})
		logger.Info().
			Str("stage", string(s.stage)).
			Dur("elapsed", time.Since(started)).
			Msg("pipeline: stage completed")
	}

	return &Result{
		Run:             run,
		VideoPath:       st.video.OutputPath,
		DurationSeconds: st.video.DurationSeconds,
		MusicMixed:      st.video.MusicMixed,
	}, nil
}

func (o *Orchestrator) emit(req Request, ev StageEvent) {
	if o.opts.OnStage != nil {
		o.opts.OnStage(ev)
	}
	if req.OnStage != nil {
		req.OnStage(ev)
	}
}

func (o *Orchestrator) scriptStage(ctx context.Context, st *runState) error {
	var (
		doc *domain.ScriptDocument
		err error
	)
	if strings.TrimSpace(st.req.Script) != "" {
		doc, err = textsplit.ScenesFromText(st.req.Script, textsplit.DefaultMaxChars)
	} else {
		doc, err = o.deps.Scripts.Draft(ctx, script.Request{Prompt: st.req.Prompt, Scenes: st.req.Scenes})
	}
	if err != nil {
		return err
	}
	st.run.Script = doc
	return nil
}

func (o *Orchestrator) narrationStage(ctx context.Context, st *runState) error {
	if st.req.NarrationMode == domain.NarrationSingleTrack {
		return o.narrateSingleTrack(ctx, st)
	}
	doc := st.run.Script
	for i, scene := range doc.Scenes {
		asset, err := o.deps.Speech.Synthesize(ctx, speech.Request{Text: scene.Narration})
		if err != nil {
			return fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
		}
		path, err := st.store.Write(ctx, domain.AudioSegmentKey(scene.SceneNumber), asset.Data)
		if err != nil {
			return err
		}
		seconds, err := o.deps.Prober.Duration(ctx, path)
		if err != nil {
			return fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
		}
		if err := doc.SetAudio(i, path, seconds); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) narrateSingleTrack(ctx context.Context, st *runState) error {
	doc := st.run.Script
	asset, err := o.deps.Speech.Synthesize(ctx, speech.Request{Text: doc.FullNarration()})
	if err != nil {
		return err
	}
	full, err := st.store.Write(ctx, domain.FullNarrationKey, asset.Data)
	if err != nil {
		return err
	}
	total, err := o.deps.Splitter.Duration(ctx, full)
	if err != nil {
		return err
	}
	durations, err := media.Allocate(doc.Scenes, total)
	if err != nil {
		return err
	}
	outs := make([]string, doc.Len())
	for i, scene := range doc.Scenes {
		outs[i] = st.run.AudioSegmentPath(scene.SceneNumber)
	}
	segments, err := o.deps.Splitter.Split(ctx, full, durations, outs)
	if err != nil {
		return err
	}
	for i, seg := range segments {
		if err := doc.SetAudio(i, seg.Path, seg.Span.Length()); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) visualsStage(ctx context.Context, st *runState) error {
	doc := st.run.Script
	paths := make([]string, doc.Len())
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.ImageConcurrency)
	for i, scene := range doc.Scenes {
		g.Go(func() error {
			asset, err := o.deps.Images.Generate(gctx, image.GenerateRequest{
				Prompt:      scene.EffectivePrompt(),
				Size:        o.opts.ImageSize,
				SceneNumber: scene.SceneNumber,
			})
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
			}
			data, err := toJPEG(asset)
			if err != nil {
				return fmt.Errorf("scene %d: %w", scene.SceneNumber, err)
			}
			path, err := st.store.Write(gctx, domain.ImageKey(scene.SceneNumber), data)
			if err != nil {
				return err
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, p := range paths {
		if err := doc.SetImage(i, p); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) composeStage(ctx context.Context, st *runState) error {
	music := st.req.MusicPath
	if music == "" {
		music = o.opts.MusicPath
	}
	res, err := o.deps.Composer.ComposeScript(ctx, st.run.Script, media.ComposeOptions{
		Subtitles:  st.req.Subtitles,
		MusicPath:  music,
		OutputPath: st.run.VideoPath(),
	})
	if err != nil {
		return err
	}
	st.video = res
	return nil
}
