package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/pipeline"
	"storyreel/internal/publish"
)

func main() {
	var (
		promptFlag     string
		scenesFlag     int
		subtitlesFlag  bool
		modeFlag       string
		musicFlag      string
		scriptFileFlag string
		publishFlag    bool
	)

	flag.StringVar(&promptFlag, "prompt", "", "story idea (read from stdin when empty)")
	flag.IntVar(&scenesFlag, "scenes", 5, "number of scenes to draft")
	flag.BoolVar(&subtitlesFlag, "subtitles", false, "burn narration captions into the video")
	flag.StringVar(&modeFlag, "mode", "", "narration mode: per_scene or single_track (default from NARRATION_MODE)")
	flag.StringVar(&musicFlag, "music", "", "background music file (default from BG_MUSIC_PATH)")
	flag.StringVar(&scriptFileFlag, "script-file", "", "use this prose as the script instead of drafting one")
	flag.BoolVar(&publishFlag, "publish", false, "upload the video to MinIO and YouTube when configured")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv, cfg.LogLevel)

	req := pipeline.Request{
		Prompt:        strings.TrimSpace(promptFlag),
		Scenes:        scenesFlag,
		Subtitles:     subtitlesFlag,
		NarrationMode: cfg.NarrationMode,
		MusicPath:     strings.TrimSpace(musicFlag),
	}
	if modeFlag != "" {
		req.NarrationMode = domain.ParseNarrationMode(strings.TrimSpace(modeFlag))
	}
	if scriptFileFlag != "" {
		data, err := os.ReadFile(scriptFileFlag)
		if err != nil {
			exitWithError(fmt.Errorf("read script file: %w", err))
		}
		req.Script = string(data)
	}
	if req.Prompt == "" && req.Script == "" {
		req.Prompt, err = readPrompt()
		if err != nil {
			exitWithError(err)
		}
	}

	orchestrator, err := pipeline.FromConfig(cfg, &logger, printStage)
	if err != nil {
		exitWithError(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := orchestrator.Run(ctx, req)
	if err != nil {
		exitWithError(err)
	}
	fmt.Printf("video ready: %s (%.1fs)\n", res.VideoPath, res.DurationSeconds)

	if publishFlag {
		publishVideo(ctx, cfg, &logger, req.Prompt, res)
	}
}

func readPrompt() (string, error) {
	fmt.Print("Story idea: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read prompt: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("a story idea is required")
	}
	return line, nil
}

func printStage(ev pipeline.StageEvent) {
	switch ev.Status {
	case pipeline.StageStarted:
		fmt.Printf("[%s] started\n", ev.Stage)
	case pipeline.StageCompleted:
		fmt.Printf("[%s] done\n", ev.Stage)
	case pipeline.StageFailed:
		fmt.Printf("[%s] failed: %v\n", ev.Stage, ev.Err)
	}
}

// publishVideo uploads to every configured target. Upload failures are reported
// but keep the local file as the result.
func publishVideo(ctx context.Context, cfg *infra.Config, logger *infra.Logger, prompt string, res *pipeline.Result) {
	published := false
	if cfg.Minio.Enabled() {
		published = true
		uploader, err := publish.NewMinioUploader(cfg.Minio, logger)
		if err == nil {
			var url string
			url, err = uploader.Upload(ctx, res.Run.ID.String(), res.VideoPath)
			if err == nil {
				fmt.Printf("minio: %s\n", url)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "minio upload failed: %v\n", err)
		}
	}
	if cfg.YouTube.Enabled() {
		published = true
		uploader, err := publish.NewYouTubeUploader(cfg.YouTube, logger)
		if err == nil {
			meta := publish.MetaFromScript(prompt, res.Run.Script, cfg.YouTube.Privacy)
			var url string
			_, url, err = uploader.Upload(ctx, res.VideoPath, meta)
			if err == nil {
				fmt.Printf("youtube: %s\n", url)
			}
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "youtube upload failed: %v\n", err)
		}
	}
	if !published {
		fmt.Fprintln(os.Stderr, "publish: no upload target configured")
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "storyreel: %v\n", err)
	os.Exit(1)
}
