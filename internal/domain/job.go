package domain

import "time"

// JobStatus enumerates story job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "QUEUED"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
)

// NarrationMode selects how per-scene audio is produced.
type NarrationMode string

const (
	// NarrationPerScene synthesizes every scene separately.
	NarrationPerScene NarrationMode = "per_scene"
	// NarrationSingleTrack synthesizes one track and splits it by word count.
	NarrationSingleTrack NarrationMode = "single_track"
)

// ParseNarrationMode maps free text onto a known mode, defaulting to per-scene.
func ParseNarrationMode(v string) NarrationMode {
	switch NarrationMode(v) {
	case NarrationSingleTrack:
		return NarrationSingleTrack
	default:
		return NarrationPerScene
	}
}

// StoryRequest is the queued input of a story job.
type StoryRequest struct {
	Prompt        string        `json:"prompt"`
	Scenes        int           `json:"scenes"`
	Subtitles     bool          `json:"subtitles"`
	NarrationMode NarrationMode `json:"narration_mode,omitempty"`
	Script        string        `json:"script,omitempty"`
}

// StoryJob tracks one queued pipeline run.
type StoryJob struct {
	ID           string
	Status       JobStatus
	Stage        string
	Request      StoryRequest
	VideoPath    string
	VideoURL     string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
