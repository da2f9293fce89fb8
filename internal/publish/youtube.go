package publish

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
)

const (
	maxTitleRunes       = 100
	maxDescriptionRunes = 5000
	youtubeWatchURL     = "https://www.youtube.com/watch?v="
)

// VideoMeta is the public metadata of an uploaded video.
type VideoMeta struct {
	Title       string
	Description string
	Tags        []string
	Privacy     string
}

// MetaFromScript derives a title from the prompt and a description from the narration.
func MetaFromScript(prompt string, doc *domain.ScriptDocument, privacy string) VideoMeta {
	title := strings.TrimSpace(prompt)
	if title == "" && doc.Len() > 0 {
		title = doc.Scenes[0].Narration
	}
	if title == "" {
		title = "Story"
	}
	var description string
	if doc != nil {
		description = strings.Join(doc.Narrations(), "\n\n")
	}
	if privacy == "" {
		privacy = "private"
	}
	return VideoMeta{
		Title:       truncateRunes(title, maxTitleRunes),
		Description: truncateRunes(description, maxDescriptionRunes),
		Tags:        []string{"story", "ai"},
		Privacy:     privacy,
	}
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// YouTubeUploader publishes videos with a stored refresh token.
type YouTubeUploader struct {
	cfg    infra.YouTubeConfig
	logger *infra.Logger
}

func NewYouTubeUploader(cfg infra.YouTubeConfig, logger *infra.Logger) (*YouTubeUploader, error) {
	if !cfg.Enabled() {
		return nil, errors.New("publish: youtube credentials are not configured")
	}
	return &YouTubeUploader{cfg: cfg, logger: infra.LoggerOrDiscard(logger)}, nil
}

func (u *YouTubeUploader) service(ctx context.Context) (*youtube.Service, error) {
	conf := &oauth2.Config{
		ClientID:     u.cfg.ClientID,
		ClientSecret: u.cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{RefreshToken: u.cfg.RefreshToken, Expiry: time.Now().Add(-time.Hour)}
	client := oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
	return youtube.NewService(ctx, option.WithHTTPClient(client))
}

// Upload sends videoPath and returns the video id and watch URL.
func (u *YouTubeUploader) Upload(ctx context.Context, videoPath string, meta VideoMeta) (string, string, error) {
	svc, err := u.service(ctx)
	if err != nil {
		return "", "", fmt.Errorf("publish: youtube service: %w", err)
	}
	f, err := os.Open(videoPath)
	if err != nil {
		return "", "", fmt.Errorf("publish: open video: %w", err)
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: meta.Privacy},
	}
	uploaded, err := svc.Videos.Insert([]string{"snippet", "status"}, video).Media(f).Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("publish: youtube upload: %w", err)
	}
	u.logger.Info().Str("video_id", uploaded.Id).Str("privacy", meta.Privacy).Msg("publish: youtube upload complete")
	return uploaded.Id, youtubeWatchURL + uploaded.Id, nil
}
