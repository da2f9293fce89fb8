package pipeline

import (
	"fmt"

	"storyreel/internal/infra"
	"storyreel/internal/media"
	"storyreel/internal/providers/fallback"
	"storyreel/internal/providers/image"
	"storyreel/internal/providers/script"
	"storyreel/internal/providers/speech"
)

// FromConfig wires provider chains and ffmpeg-backed media tools from cfg.
func FromConfig(cfg *infra.Config, logger *infra.Logger, onStage func(StageEvent)) (*Orchestrator, error) {
	if err := cfg.ValidateProviders(); err != nil {
		return nil, err
	}
	profile, err := infra.LoadRenderProfile(cfg.RenderProfilePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	chainOpts := fallback.Options{Logger: logger}
	providers := cfg.Providers()
	runner := media.ExecRunner{Logger: logger}
	tools := media.Tools{}

	return New(Dependencies{
		Scripts:  script.NewChain(script.FromConfig(providers, cfg.ProviderTimeout, logger), chainOpts),
		Speech:   speech.NewChain(speech.FromConfig(providers, cfg.TTSVoice, cfg.ProviderTimeout, logger), chainOpts),
		Images:   image.NewChain(image.FromConfig(providers, cfg.ImageSize, cfg.ProviderTimeout, logger), chainOpts),
		Prober:   media.NewProber(runner, tools),
		Splitter: media.NewSplitter(runner, tools, logger),
		Composer: media.NewComposer(runner, tools, profile, logger),
	}, Options{
		OutputDir:        cfg.OutputDir,
		ImageSize:        cfg.ImageSize,
		ImageConcurrency: cfg.ImageConcurrency,
		MusicPath:        cfg.BackgroundMusic,
		Logger:           logger,
		OnStage:          onStage,
	})
}
