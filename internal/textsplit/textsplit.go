// Package textsplit packs a plain-text story into scene-sized chunks.
package textsplit

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"storyreel/internal/domain"
)

// DefaultMaxChars is the approximate scene length used when the caller passes zero.
const DefaultMaxChars = 250

// Split collapses whitespace and packs whole sentences into chunks of at most maxChars
// runes. A single sentence longer than maxChars becomes its own chunk.
func Split(script string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	text := strings.Join(strings.Fields(norm.NFC.String(script)), " ")
	if text == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences(text) {
		if current.Len() > 0 && utf8.RuneCountInString(current.String())+1+utf8.RuneCountInString(sentence) > maxChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteByte(' ')
		}
		current.WriteString(sentence)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// sentences splits after '.', '!' or '?' when whitespace follows.
func sentences(text string) []string {
	var out []string
	start := 0
	runes := []rune(text)
	for i, r := range runes {
		if (r == '.' || r == '!' || r == '?') && i+1 < len(runes) && unicode.IsSpace(runes[i+1]) {
			out = append(out, strings.TrimSpace(string(runes[start:i+1])))
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

// ScenesFromText builds a script document from user-provided prose. Each chunk is both
// the narration and the image prompt of its scene.
func ScenesFromText(script string, maxChars int) (*domain.ScriptDocument, error) {
	chunks := Split(script, maxChars)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: script text is empty", domain.ErrInvalidScript)
	}
	scenes := make([]domain.Scene, len(chunks))
	for i, c := range chunks {
		scenes[i] = domain.Scene{SceneNumber: i + 1, Narration: c, ImagePrompt: c}
	}
	return domain.NewScriptDocument(scenes)
}
