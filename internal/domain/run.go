package domain

import (
	"fmt"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// RunDirLayout is the timestamp format used for per-run directories.
const RunDirLayout = "20060102_150405"

// Artifact keys are slash-separated and relative to the run directory.
const (
	ScriptKey        = "script/story.json"
	FullNarrationKey = "audio/full_story.mp3"
	VideoKey         = "video/final_story.mp4"
)

func AudioSegmentKey(sceneNumber int) string {
	return path.Join("audio_segments", fmt.Sprintf("scene_%d.mp3", sceneNumber))
}

func ImageKey(sceneNumber int) string {
	return path.Join("images", fmt.Sprintf("scene_%d.jpg", sceneNumber))
}

// PipelineRun owns every artifact produced by one generation attempt.
type PipelineRun struct {
	ID        uuid.UUID
	CreatedAt time.Time
	BaseDir   string
	Script    *ScriptDocument
}

// NewPipelineRun creates a run rooted at outputDir/<timestamp>_<id prefix>. The id
// prefix keeps runs started within the same second apart.
func NewPipelineRun(outputDir string, now time.Time) *PipelineRun {
	id := uuid.New()
	return &PipelineRun{
		ID:        id,
		CreatedAt: now,
		BaseDir:   filepath.Join(outputDir, RunDirName(now, id)),
	}
}

// RunDirName is the directory name of a run.
func RunDirName(now time.Time, id uuid.UUID) string {
	return now.Format(RunDirLayout) + "_" + id.String()[:8]
}

// Path resolves an artifact key inside the run directory.
func (r *PipelineRun) Path(key string) string {
	return filepath.Join(r.BaseDir, filepath.FromSlash(key))
}

func (r *PipelineRun) ScriptPath() string {
	return r.Path(ScriptKey)
}

func (r *PipelineRun) AudioSegmentPath(sceneNumber int) string {
	return r.Path(AudioSegmentKey(sceneNumber))
}

func (r *PipelineRun) FullNarrationPath() string {
	return r.Path(FullNarrationKey)
}

func (r *PipelineRun) ImagePath(sceneNumber int) string {
	return r.Path(ImageKey(sceneNumber))
}

func (r *PipelineRun) VideoPath() string {
	return r.Path(VideoKey)
}
