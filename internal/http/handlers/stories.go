package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"storyreel/internal/domain"
)

const (
	defaultScenes = 5
	maxScenes     = 20
	maxBodyBytes  = 64 << 10
)

type createStoryRequest struct {
	Prompt        string `json:"prompt"`
	Scenes        int    `json:"scenes"`
	Subtitles     bool   `json:"subtitles"`
	NarrationMode string `json:"narration_mode"`
	Script        string `json:"script"`
}

type storyJobResponse struct {
	JobID     string     `json:"job_id"`
	Status    string     `json:"status"`
	Stage     string     `json:"stage,omitempty"`
	Error     string     `json:"error,omitempty"`
	VideoPath string     `json:"video_path,omitempty"`
	VideoURL  string     `json:"video_url,omitempty"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

func (req createStoryRequest) toDomain() (domain.StoryRequest, string) {
	out := domain.StoryRequest{
		Prompt:    strings.TrimSpace(req.Prompt),
		Scenes:    req.Scenes,
		Subtitles: req.Subtitles,
		Script:    strings.TrimSpace(req.Script),
	}
	if out.Prompt == "" && out.Script == "" {
		return out, "prompt or script is required"
	}
	if out.Scenes == 0 {
		out.Scenes = defaultScenes
	}
	if out.Scenes < 1 || out.Scenes > maxScenes {
		return out, "scenes must be between 1 and 20"
	}
	switch mode := domain.NarrationMode(strings.TrimSpace(req.NarrationMode)); mode {
	case "":
		out.NarrationMode = domain.NarrationPerScene
	case domain.NarrationPerScene, domain.NarrationSingleTrack:
		out.NarrationMode = mode
	default:
		return out, "narration_mode must be per_scene or single_track"
	}
	return out, ""
}

func (a *App) CreateStory(w http.ResponseWriter, r *http.Request) {
	var body createStoryRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req, problem := body.toDomain()
	if problem != "" {
		a.error(w, http.StatusBadRequest, "bad_request", problem)
		return
	}
	job, err := a.Jobs.Enqueue(r.Context(), req)
	if err != nil {
		a.Logger.Error().Err(err).Msg("stories: enqueue failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue story job")
		return
	}
	a.json(w, http.StatusAccepted, storyJobResponse{JobID: job.ID, Status: string(job.Status)})
}

func (a *App) GetStory(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.error(w, http.StatusNotFound, "not_found", "story job not found")
			return
		}
		a.Logger.Error().Err(err).Str("job_id", jobID).Msg("stories: lookup failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load story job")
		return
	}
	a.json(w, http.StatusOK, storyJobResponse{
		JobID:     job.ID,
		Status:    string(job.Status),
		Stage:     job.Stage,
		Error:     job.ErrorMessage,
		VideoPath: job.VideoPath,
		VideoURL:  job.VideoURL,
		CreatedAt: &job.CreatedAt,
		UpdatedAt: &job.UpdatedAt,
	})
}
