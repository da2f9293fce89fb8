package script

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// sceneDraft documents the shape the model must return for every scene.
type sceneDraft struct {
	SceneNumber int    `json:"scene_number" jsonschema_description:"Ordinal of the scene, starting at 1"`
	Narration   string `json:"narration" jsonschema_description:"Text read aloud by the narrator for this scene"`
	ImagePrompt string `json:"image_prompt" jsonschema_description:"Visual description used to illustrate the scene"`
}

func generateSchema[T any]() string {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	raw, err := json.Marshal(reflector.Reflect(v))
	if err != nil {
		panic(fmt.Sprintf("script: reflect schema: %v", err))
	}
	return string(raw)
}

var sceneSchema = generateSchema[sceneDraft]()

func systemPrompt(scenes int) string {
	sb := &strings.Builder{}
	sb.WriteString("You are a storytelling assistant. Return ONLY a valid JSON array with no commentary. ")
	if scenes > 0 {
		fmt.Fprintf(sb, "The array must contain exactly %d scenes numbered from 1. ", scenes)
	}
	sb.WriteString("Each element must match this JSON schema: ")
	sb.WriteString(sceneSchema)
	return sb.String()
}
