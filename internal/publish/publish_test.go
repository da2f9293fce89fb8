package publish

import (
	"strings"
	"testing"
	"unicode/utf8"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

func TestObjectKey(t *testing.T) {
	got := ObjectKey("job-1", "/tmp/run/video/final_story.mp4")
	if got != "tasks/job-1/final_story.mp4" {
		t.Fatalf("ObjectKey = %q", got)
	}
}

func TestContentType(t *testing.T) {
	cases := map[string]string{
		"a.mp4":  "video/mp4",
		"a.MP3":  "audio/mpeg",
		"a.jpg":  "image/jpeg",
		"a.json": "application/json",
		"a.bin":  "application/octet-stream",
	}
	for name, want := range cases {
		if got := ContentType(name); got != want {
			t.Fatalf("ContentType(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestMetaFromScript(t *testing.T) {
	doc := &domain.ScriptDocument{Scenes: []domain.Scene{
		{SceneNumber: 1, Narration: "A fox looks up."},
		{SceneNumber: 2, Narration: "The star answers."},
	}}
	meta := MetaFromScript(strings.Repeat("é", 150), doc, "")
	if utf8.RuneCountInString(meta.Title) != maxTitleRunes {
		t.Fatalf("title not truncated: %d runes", utf8.RuneCountInString(meta.Title))
	}
	if meta.Description != "A fox looks up.\n\nThe star answers." {
		t.Fatalf("description = %q", meta.Description)
	}
	if meta.Privacy != "private" {
		t.Fatalf("privacy = %q", meta.Privacy)
	}

	meta = MetaFromScript("", doc, "unlisted")
	if meta.Title != "A fox looks up." || meta.Privacy != "unlisted" {
		t.Fatalf("unexpected fallback meta %+v", meta)
	}
}

func TestUploadersRequireConfig(t *testing.T) {
	if _, err := NewMinioUploader(infra.MinioConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty minio config")
	}
	if _, err := NewYouTubeUploader(infra.YouTubeConfig{}, nil); err == nil {
		t.Fatalf("expected error for empty youtube config")
	}
}

func TestNewMinioUploader(t *testing.T) {
	u, err := NewMinioUploader(infra.MinioConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "storyreel"}, nil)
	if err != nil {
		t.Fatalf("NewMinioUploader: %v", err)
	}
	if u.bucket != "storyreel" {
		t.Fatalf("bucket = %q", u.bucket)
	}
}
