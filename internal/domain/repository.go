package domain

import "context"

// StoryJobRepository defines persistence for story jobs.
type StoryJobRepository interface {
	Enqueue(ctx context.Context, req StoryRequest) (*StoryJob, error)
	ClaimNext(ctx context.Context) (*StoryJob, error)
	UpdateStage(ctx context.Context, jobID, stage string) error
	Complete(ctx context.Context, jobID, videoPath, videoURL string) error
	Fail(ctx context.Context, jobID, stage, message string) error
	GetByID(ctx context.Context, jobID string) (*StoryJob, error)
}
