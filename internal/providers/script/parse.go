package script

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"storyreel/internal/domain"
)

var requiredKeys = []string{"scene_number", "narration", "image_prompt"}

// ParseScript turns model output into a validated script. It strips markdown code
// fences, re-decodes a string-encoded JSON value once, and requires an array of
// objects carrying scene_number, narration and image_prompt.
func ParseScript(content string) (*domain.ScriptDocument, error) {
	raw, err := decodeValue(content)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(trimmed, &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrMalformedScript, err)
		}
		if raw, err = decodeValue(inner); err != nil {
			return nil, err
		}
		trimmed = bytes.TrimSpace(raw)
	}
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of scenes", domain.ErrMalformedScript)
	}

	var objects []map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &objects); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedScript, err)
	}
	scenes := make([]domain.Scene, 0, len(objects))
	for i, obj := range objects {
		scene, err := decodeScene(obj)
		if err != nil {
			return nil, fmt.Errorf("%w: scene %d: %v", domain.ErrMalformedScript, i+1, err)
		}
		scenes = append(scenes, scene)
	}
	sort.SliceStable(scenes, func(i, j int) bool { return scenes[i].SceneNumber < scenes[j].SceneNumber })
	doc, err := domain.NewScriptDocument(scenes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedScript, err)
	}
	return doc, nil
}

// decodeValue returns the JSON value in text, tolerating fences and surrounding prose.
func decodeValue(text string) (json.RawMessage, error) {
	cleaned := trimCodeFence(text)
	cleaned = strings.Trim(cleaned, "` \n\r\t")
	if cleaned == "" {
		return nil, fmt.Errorf("%w: empty content", domain.ErrMalformedScript)
	}
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err == nil {
		return raw, nil
	}
	fragment := extractJSONFragment(cleaned)
	if err := json.Unmarshal([]byte(fragment), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrMalformedScript, err)
	}
	return raw, nil
}

func decodeScene(obj map[string]json.RawMessage) (domain.Scene, error) {
	if obj == nil {
		return domain.Scene{}, fmt.Errorf("not an object")
	}
	for _, key := range requiredKeys {
		if _, ok := obj[key]; !ok {
			return domain.Scene{}, fmt.Errorf("missing key %q", key)
		}
	}
	number, err := decodeSceneNumber(obj["scene_number"])
	if err != nil {
		return domain.Scene{}, err
	}
	narration, err := decodeText(obj["narration"])
	if err != nil {
		return domain.Scene{}, fmt.Errorf("narration: %w", err)
	}
	imagePrompt, err := decodeText(obj["image_prompt"])
	if err != nil {
		return domain.Scene{}, fmt.Errorf("image_prompt: %w", err)
	}
	return domain.Scene{SceneNumber: number, Narration: narration, ImagePrompt: imagePrompt}, nil
}

func decodeSceneNumber(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, fmt.Errorf("scene_number is not a number")
		}
		n = json.Number(strings.TrimSpace(s))
	}
	v, err := strconv.ParseFloat(n.String(), 64)
	if err != nil || v < 1 || v != math.Trunc(v) {
		return 0, fmt.Errorf("scene_number %q is not a positive integer", n.String())
	}
	return int(v), nil
}

func decodeText(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("not a string")
	}
	return norm.NFC.String(strings.TrimSpace(s)), nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	for _, pair := range [][2]string{{"[", "]"}, {"\"", "\""}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}
	return text
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	// Drop a language tag such as json on the opening fence line.
	if nl := strings.IndexByte(trimmed, '\n'); nl >= 0 && !strings.ContainsAny(trimmed[:nl], "[{\"") {
		trimmed = trimmed[nl+1:]
	}
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
