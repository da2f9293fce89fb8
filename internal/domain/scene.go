package domain

import (
	"fmt"
	"strings"
)

// Capability names a provider-backed generation step.
type Capability string

const (
	CapabilityScript    Capability = "script"
	CapabilityNarration Capability = "narration"
	CapabilityImage     Capability = "image"
)

// Stage enumerates the pipeline stages in execution order.
type Stage string

const (
	StageScript    Stage = "script"
	StageNarration Stage = "narration"
	StageVisuals   Stage = "visuals"
	StageCompose   Stage = "compose"
)

// Stages lists every stage in the order a run executes them.
var Stages = []Stage{StageScript, StageNarration, StageVisuals, StageCompose}

const defaultImagePrompt = "illustration"

// Scene is one unit of the story. SceneNumber, Narration and ImagePrompt are fixed once
// the script is parsed; the remaining fields are filled by later stages.
type Scene struct {
	SceneNumber     int      `json:"scene_number"`
	Narration       string   `json:"narration"`
	ImagePrompt     string   `json:"image_prompt"`
	AudioPath       string   `json:"audio_path,omitempty"`
	ImagePath       string   `json:"image_path,omitempty"`
	DurationSeconds *float64 `json:"duration_seconds,omitempty"`
}

// RenderReady reports whether both audio and image artifacts exist for the scene.
func (s Scene) RenderReady() bool {
	return s.AudioPath != "" && s.ImagePath != ""
}

// EffectivePrompt returns the text sent to the image provider.
func (s Scene) EffectivePrompt() string {
	if p := strings.TrimSpace(s.ImagePrompt); p != "" {
		return p
	}
	if n := strings.TrimSpace(s.Narration); n != "" {
		return n
	}
	return defaultImagePrompt
}

// WordCount is the weight used for proportional duration allocation.
func (s Scene) WordCount() int {
	return len(strings.Fields(s.Narration))
}

// ScriptDocument is the ordered list of scenes for one run.
type ScriptDocument struct {
	Scenes []Scene
}

// NewScriptDocument validates scenes and wraps them in a document.
func NewScriptDocument(scenes []Scene) (*ScriptDocument, error) {
	doc := &ScriptDocument{Scenes: scenes}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Validate checks that scene numbers run 1..n in order and every scene has narration.
func (d *ScriptDocument) Validate() error {
	if d == nil || len(d.Scenes) == 0 {
		return fmt.Errorf("%w: no scenes", ErrInvalidScript)
	}
	seen := make(map[int]struct{}, len(d.Scenes))
	for i, scene := range d.Scenes {
		if _, dup := seen[scene.SceneNumber]; dup {
			return fmt.Errorf("%w: duplicate scene_number %d", ErrInvalidScript, scene.SceneNumber)
		}
		seen[scene.SceneNumber] = struct{}{}
		if scene.SceneNumber != i+1 {
			return fmt.Errorf("%w: scene at position %d has scene_number %d", ErrInvalidScript, i+1, scene.SceneNumber)
		}
		if strings.TrimSpace(scene.Narration) == "" {
			return fmt.Errorf("%w: scene %d has empty narration", ErrInvalidScript, scene.SceneNumber)
		}
	}
	return nil
}

// Len returns the number of scenes.
func (d *ScriptDocument) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Scenes)
}

// SetAudio records the narration clip of the scene at index and its duration.
func (d *ScriptDocument) SetAudio(index int, path string, seconds float64) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Scenes[index].AudioPath = path
	return d.SetDuration(index, seconds)
}

// SetDuration records the clip length in seconds of the scene at index.
func (d *ScriptDocument) SetDuration(index int, seconds float64) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	v := seconds
	d.Scenes[index].DurationSeconds = &v
	return nil
}

// SetImage records the illustration of the scene at index.
func (d *ScriptDocument) SetImage(index int, path string) error {
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.Scenes[index].ImagePath = path
	return nil
}

func (d *ScriptDocument) checkIndex(index int) error {
	if index < 0 || index >= d.Len() {
		return fmt.Errorf("%w: scene index %d out of range for %d scenes", ErrInvalidScript, index, d.Len())
	}
	return nil
}

// RenderReady reports whether every scene has both artifacts.
func (d *ScriptDocument) RenderReady() bool {
	if d.Len() == 0 {
		return false
	}
	for _, s := range d.Scenes {
		if !s.RenderReady() {
			return false
		}
	}
	return true
}

// Narrations returns the narration text of each scene in order.
func (d *ScriptDocument) Narrations() []string {
	out := make([]string, 0, d.Len())
	for _, s := range d.Scenes {
		out = append(out, s.Narration)
	}
	return out
}

// FullNarration joins every scene's narration into one text for single-track synthesis.
func (d *ScriptDocument) FullNarration() string {
	parts := make([]string, 0, d.Len())
	for _, s := range d.Scenes {
		if n := strings.TrimSpace(s.Narration); n != "" {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, " ")
}
