package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/sqlinline"
)

// StoryJobRepositoryPG implements domain.StoryJobRepository on Postgres.
type StoryJobRepositoryPG struct {
	db infra.SQLExecutor
}

// NewStoryJobRepository creates a repository over any marked-SQL executor.
func NewStoryJobRepository(db infra.SQLExecutor) *StoryJobRepositoryPG {
	return &StoryJobRepositoryPG{db: db}
}

// EnsureSchema creates the story_jobs table when missing.
func (r *StoryJobRepositoryPG) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, sqlinline.QEnsureStoryJobs)
	return err
}

func (r *StoryJobRepositoryPG) Enqueue(ctx context.Context, req domain.StoryRequest) (*domain.StoryJob, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode story request: %w", err)
	}
	return scanStoryJob(r.db.QueryRow(ctx, sqlinline.QInsertStoryJob, uuid.NewString(), payload))
}

// ClaimNext moves the oldest queued job to RUNNING. It returns (nil, nil) when the
// queue is empty.
func (r *StoryJobRepositoryPG) ClaimNext(ctx context.Context) (*domain.StoryJob, error) {
	job, err := scanStoryJob(r.db.QueryRow(ctx, sqlinline.QClaimStoryJob))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return job, nil
}

func (r *StoryJobRepositoryPG) UpdateStage(ctx context.Context, jobID, stage string) error {
	_, err := r.db.Exec(ctx, sqlinline.QUpdateStoryJobStage, jobID, stage)
	return err
}

func (r *StoryJobRepositoryPG) Complete(ctx context.Context, jobID, videoPath, videoURL string) error {
	_, err := r.db.Exec(ctx, sqlinline.QCompleteStoryJob, jobID, videoPath, videoURL)
	return err
}

func (r *StoryJobRepositoryPG) Fail(ctx context.Context, jobID, stage, message string) error {
	_, err := r.db.Exec(ctx, sqlinline.QFailStoryJob, jobID, stage, truncateMessage(message))
	return err
}

// GetByID returns domain.ErrNotFound for unknown or malformed ids.
func (r *StoryJobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.StoryJob, error) {
	if _, err := uuid.Parse(strings.TrimSpace(jobID)); err != nil {
		return nil, domain.ErrNotFound
	}
	job, err := scanStoryJob(r.db.QueryRow(ctx, sqlinline.QSelectStoryJob, jobID))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanStoryJob(row pgx.Row) (*domain.StoryJob, error) {
	var (
		job     domain.StoryJob
		status  string
		payload []byte
	)
	if err := row.Scan(
		&job.ID,
		&status,
		&job.Stage,
		&payload,
		&job.VideoPath,
		&job.VideoURL,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.Status = domain.JobStatus(status)
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &job.Request); err != nil {
			return nil, fmt.Errorf("decode story request: %w", err)
		}
	}
	return &job, nil
}

const maxErrorMessage = 2000

// truncateMessage keeps at most maxErrorMessage bytes of valid UTF-8, cutting on a
// rune boundary; Postgres rejects invalid sequences in text columns.
func truncateMessage(msg string) string {
	msg = strings.ToValidUTF8(msg, "\uFFFD")
	if len(msg) <= maxErrorMessage {
		return msg
	}
	n := maxErrorMessage
	for n > 0 && !utf8.RuneStart(msg[n]) {
		n--
	}
	return msg[:n]
}

var _ domain.StoryJobRepository = (*StoryJobRepositoryPG)(nil)
