package main

import (
	"context"
	"errors"
	"time"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/pipeline"
)

const defaultPollInterval = 2 * time.Second

type storyRunner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

type videoUploader interface {
	Upload(ctx context.Context, taskID, localPath string) (string, error)
}

type jobWorker struct {
	jobs     domain.StoryJobRepository
	pipeline storyRunner
	uploader videoUploader
	logger   *infra.Logger
	poll     time.Duration
	// mode applies to jobs queued without a narration mode.
	mode domain.NarrationMode
}

// Run claims queued jobs until ctx is cancelled.
func (w *jobWorker) Run(ctx context.Context) error {
	logger := infra.LoggerOrDiscard(w.logger)
	poll := w.poll
	if poll <= 0 {
		poll = defaultPollInterval
	}
	logger.Info().Dur("poll", poll).Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("worker: failed to claim job")
		}
		if err != nil || job == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(poll):
			}
			continue
		}
		w.handleJob(ctx, job)
	}
}

func (w *jobWorker) handleJob(ctx context.Context, job *domain.StoryJob) {
	logger := infra.LoggerOrDiscard(w.logger).With().Str("job_id", job.ID).Logger()
	logger.Info().Str("prompt", job.Request.Prompt).Msg("worker: picked job")

	// bookkeeping must land even when shutdown cancels the run
	ledger := context.WithoutCancel(ctx)

	mode := job.Request.NarrationMode
	if mode == "" {
		mode = w.mode
	}

	req := pipeline.Request{
		Prompt:        job.Request.Prompt,
		Scenes:        job.Request.Scenes,
		Subtitles:     job.Request.Subtitles,
		NarrationMode: mode,
		Script:        job.Request.Script,
		OnStage: func(ev pipeline.StageEvent) {
			if ev.Status != pipeline.StageStarted {
				return
			}
			if err := w.jobs.UpdateStage(ledger, job.ID, string(ev.Stage)); err != nil {
				logger.Warn().Err(err).Str("stage", string(ev.Stage)).Msg("worker: update stage failed")
			}
		},
	}
	res, err := w.pipeline.Run(ctx, req)
	if err != nil {
		stage := ""
		var stageErr *domain.StageError
		if errors.As(err, &stageErr) {
			stage = string(stageErr.Stage)
		}
		logger.Error().Err(err).Str("stage", stage).Msg("worker: job failed")
		if failErr := w.jobs.Fail(ledger, job.ID, stage, err.Error()); failErr != nil {
			logger.Error().Err(failErr).Msg("worker: mark failed")
		}
		return
	}

	videoURL := ""
	if w.uploader != nil {
		videoURL, err = w.uploader.Upload(ctx, job.ID, res.VideoPath)
		if err != nil {
			logger.Warn().Err(err).Msg("worker: upload failed, keeping local video only")
			videoURL = ""
		}
	}
	if err := w.jobs.Complete(ledger, job.ID, res.VideoPath, videoURL); err != nil {
		logger.Error().Err(err).Msg("worker: mark succeeded")
		return
	}
	logger.Info().
		Str("video", res.VideoPath).
		Str("url", videoURL).
		Float64("duration", res.DurationSeconds).
		Msg("worker: job succeeded")
}
