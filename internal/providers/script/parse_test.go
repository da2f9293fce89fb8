package script

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"

	"storyreel/internal/domain"
)

const plainScript = `[{"scene_number":1,"narration":"A fox looks up.","image_prompt":"fox, night sky"},{"scene_number":2,"narration":"She follows a star.","image_prompt":"forest path"}]`

func TestParseScriptDoubleEncodedMatchesDirect(t *testing.T) {
	encoded, err := json.Marshal(plainScript)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	direct, err := ParseScript(plainScript)
	if err != nil {
		t.Fatalf("direct parse: %v", err)
	}
	double, err := ParseScript(string(encoded))
	if err != nil {
		t.Fatalf("double-encoded parse: %v", err)
	}
	if !reflect.DeepEqual(direct, double) {
		t.Fatalf("parse mismatch:\n%#v\n%#v", direct, double)
	}
	if direct.Len() != 2 || direct.Scenes[1].ImagePrompt != "forest path" {
		t.Fatalf("unexpected scenes: %#v", direct.Scenes)
	}
}

func TestParseScriptCodeFence(t *testing.T) {
	inputs := []string{
		"```json\n" + plainScript + "\n```",
		"```\n" + plainScript + "\n```",
		"Here is your story:\n" + plainScript + "\nEnjoy!",
	}
	for _, in := range inputs {
		doc, err := ParseScript(in)
		if err != nil {
			t.Fatalf("ParseScript(%q): %v", in, err)
		}
		if doc.Len() != 2 {
			t.Fatalf("ParseScript(%q) returned %d scenes", in, doc.Len())
		}
	}
}

func TestParseScriptSortsByNumber(t *testing.T) {
	doc, err := ParseScript(`[{"scene_number":"2","narration":"b","image_prompt":null},{"scene_number":1,"narration":"a","image_prompt":"x"}]`)
	if err != nil {
		t.Fatalf("ParseScript: %v", err)
	}
	if doc.Scenes[0].Narration != "a" || doc.Scenes[1].Narration != "b" {
		t.Fatalf("scenes not ordered: %#v", doc.Scenes)
	}
	if doc.Scenes[1].EffectivePrompt() != "b" {
		t.Fatalf("null image_prompt should fall back to narration")
	}
}

func TestParseScriptMalformed(t *testing.T) {
	inputs := []string{
		``,
		`{"scene_number":1,"narration":"a","image_prompt":"b"}`,
		`[{"scene_number":1,"narration":"a"}]`,
		`[1, 2, 3]`,
		`[{"scene_number":0,"narration":"a","image_prompt":"b"}]`,
		`[{"scene_number":1,"narration":"a","image_prompt":"b"},{"scene_number":1,"narration":"c","image_prompt":"d"}]`,
		`"\"[{\\\"scene_number\\\":1}]\""`,
		`not json at all`,
	}
	for _, in := range inputs {
		if _, err := ParseScript(in); !errors.Is(err, domain.ErrMalformedScript) {
			t.Fatalf("ParseScript(%q) expected ErrMalformedScript, got %v", in, err)
		}
	}
}

func TestSystemPromptCarriesSchema(t *testing.T) {
	prompt := systemPrompt(3)
	for _, want := range []string{"exactly 3 scenes", "scene_number", "image_prompt"} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("system prompt missing %q: %s", want, prompt)
		}
	}
}
