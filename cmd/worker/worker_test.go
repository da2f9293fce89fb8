package main

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"storyreel/internal/domain"
	"storyreel/internal/pipeline"
)

type memoryJobs struct {
	mu        sync.Mutex
	queue     []*domain.StoryJob
	stages    []string
	completed map[string][2]string
	failed    map[string][2]string
}

func newMemoryJobs(jobs ...*domain.StoryJob) *memoryJobs {
	return &memoryJobs{queue: jobs, completed: map[string][2]string{}, failed: map[string][2]string{}}
}

func (m *memoryJobs) Enqueue(context.Context, domain.StoryRequest) (*domain.StoryJob, error) {
	return nil, errors.New("not used")
}

func (m *memoryJobs) ClaimNext(context.Context) (*domain.StoryJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil, nil
	}
	job := m.queue[0]
	m.queue = m.queue[1:]
	return job, nil
}

func (m *memoryJobs) UpdateStage(_ context.Context, _ string, stage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
	return nil
}

func (m *memoryJobs) Complete(_ context.Context, id, videoPath, videoURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[id] = [2]string{videoPath, videoURL}
	return nil
}

func (m *memoryJobs) Fail(_ context.Context, id, stage, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed[id] = [2]string{stage, message}
	return nil
}

func (m *memoryJobs) GetByID(context.Context, string) (*domain.StoryJob, error) {
	return nil, domain.ErrNotFound
}

type stubRunner struct {
	got  pipeline.Request
	fail *domain.StageError
}

func (s *stubRunner) Run(_ context.Context, req pipeline.Request) (*pipeline.Result, error) {
	s.got = req
	for _, stage := range []domain.Stage{domain.StageScript, domain.StageNarration} {
		req.OnStage(pipeline.StageEvent{Stage: stage, Status: pipeline.StageStarted})
		if s.fail != nil && s.fail.Stage == stage {
			return nil, s.fail
		}
		req.OnStage(pipeline.StageEvent{Stage: stage, Status: pipeline.StageCompleted})
	}
	return &pipeline.Result{VideoPath: "/out/final_story.mp4", DurationSeconds: 12}, nil
}

type stubUploader struct {
	err error
}

func (s stubUploader) Upload(_ context.Context, taskID, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "https://minio.local/tasks/" + taskID + "/final_story.mp4", nil
}

func queuedJob(id string, mode domain.NarrationMode) *domain.StoryJob {
	return &domain.StoryJob{
		ID:      id,
		Status:  domain.JobStatusRunning,
		Request: domain.StoryRequest{Prompt: "a fox learns to sail", Scenes: 3, NarrationMode: mode},
	}
}

func TestHandleJobCompletesAndUploads(t *testing.T) {
	jobs := newMemoryJobs()
	runner := &stubRunner{}
	w := &jobWorker{jobs: jobs, pipeline: runner, uploader: stubUploader{}, mode: domain.NarrationSingleTrack}

	w.handleJob(context.Background(), queuedJob("job-1", ""))

	if runner.got.NarrationMode != domain.NarrationSingleTrack {
		t.Fatalf("expected worker default mode, got %q", runner.got.NarrationMode)
	}
	if runner.got.Scenes != 3 || runner.got.Prompt != "a fox learns to sail" {
		t.Fatalf("request not forwarded: %+v", runner.got)
	}
	if len(jobs.stages) != 2 || jobs.stages[0] != "script" || jobs.stages[1] != "narration" {
		t.Fatalf("unexpected stage updates %v", jobs.stages)
	}
	got, ok := jobs.completed["job-1"]
	if !ok {
		t.Fatalf("job not completed")
	}
	if got[0] != "/out/final_story.mp4" || got[1] != "https://minio.local/tasks/job-1/final_story.mp4" {
		t.Fatalf("unexpected completion %v", got)
	}
}

func TestHandleJobKeepsRequestedMode(t *testing.T) {
	runner := &stubRunner{}
	w := &jobWorker{jobs: newMemoryJobs(), pipeline: runner, mode: domain.NarrationSingleTrack}

	w.handleJob(context.Background(), queuedJob("job-1", domain.NarrationPerScene))

	if runner.got.NarrationMode != domain.NarrationPerScene {
		t.Fatalf("expected per_scene, got %q", runner.got.NarrationMode)
	}
}

func TestHandleJobRecordsFailedStage(t *testing.T) {
	jobs := newMemoryJobs()
	runner := &stubRunner{fail: &domain.StageError{Stage: domain.StageNarration, Err: domain.ErrAllProvidersExhausted}}
	w := &jobWorker{jobs: jobs, pipeline: runner}

	w.handleJob(context.Background(), queuedJob("job-2", ""))

	if _, ok := jobs.completed["job-2"]; ok {
		t.Fatalf("failed job must not complete")
	}
	got, ok := jobs.failed["job-2"]
	if !ok {
		t.Fatalf("job not marked failed")
	}
	if got[0] != "narration" {
		t.Fatalf("expected narration stage, got %q", got[0])
	}
	if got[1] == "" {
		t.Fatalf("expected failure message")
	}
}

func TestHandleJobUploadFailureStillCompletes(t *testing.T) {
	jobs := newMemoryJobs()
	w := &jobWorker{jobs: jobs, pipeline: &stubRunner{}, uploader: stubUploader{err: errors.New("bucket gone")}}

	w.handleJob(context.Background(), queuedJob("job-3", ""))

	got, ok := jobs.completed["job-3"]
	if !ok {
		t.Fatalf("job not completed")
	}
	if got[1] != "" {
		t.Fatalf("expected empty url after upload failure, got %q", got[1])
	}
}

func TestRunDrainsQueueUntilCancelled(t *testing.T) {
	jobs := newMemoryJobs(queuedJob("a", ""), queuedJob("b", ""))
	w := &jobWorker{jobs: jobs, pipeline: &stubRunner{}, poll: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := w.Run(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	jobs.mu.Lock()
	defer jobs.mu.Unlock()
	if len(jobs.completed) != 2 {
		t.Fatalf("expected both jobs completed, got %v", jobs.completed)
	}
}
