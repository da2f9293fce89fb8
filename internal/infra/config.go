package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"storyreel/internal/domain"
)

// ProviderConfig holds the credential and endpoints of one OpenAI-compatible backend.
type ProviderConfig struct {
	Name       string
	APIKey     string
	BaseURL    string
	ChatModel  string
	TTSModel   string
	ImageModel string
}

// HasCredentials reports whether the backend can be called.
func (p ProviderConfig) HasCredentials() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// MinioConfig configures the optional object store used for finished videos.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Enabled reports whether uploads to MinIO are configured.
func (m MinioConfig) Enabled() bool {
	return m.Endpoint != "" && m.AccessKey != "" && m.SecretKey != ""
}

// YouTubeConfig configures optional publishing.
type YouTubeConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	Privacy      string
}

// Enabled reports whether the YouTube uploader has credentials.
func (y YouTubeConfig) Enabled() bool {
	return y.ClientID != "" && y.ClientSecret != "" && y.RefreshToken != ""
}

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	LogLevel          string
	Port              string
	DatabaseURL       string
	OutputDir         string
	Primary           ProviderConfig
	Fallback          ProviderConfig
	TTSVoice          string
	ImageSize         string
	ProviderTimeout   time.Duration
	ImageConcurrency  int
	NarrationMode     domain.NarrationMode
	BackgroundMusic   string
	RenderProfilePath string
	Minio             MinioConfig
	YouTube           YouTubeConfig
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	AllowedOrigins    []string
	WorkerPoll        time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:      getEnv("APP_ENV", "development"),
		LogLevel:    os.Getenv("LOG_LEVEL"),
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
		OutputDir:   getEnv("OUTPUT_DIR", "output/generated_videos"),
		Primary: ProviderConfig{
			Name:       "euron",
			APIKey:     strings.TrimSpace(os.Getenv("EURON_API_KEY")),
			BaseURL:    getEnv("EURON_BASE_URL", "https://api.euron.one/api/v1/euri"),
			ChatModel:  getEnv("EURON_CHAT_MODEL", "gpt-4.1-nano"),
			TTSModel:   getEnv("EURON_TTS_MODEL", "playai-tts"),
			ImageModel: getEnv("EURON_IMAGE_MODEL", "black-forest-labs/FLUX.1-schnell"),
		},
		Fallback: ProviderConfig{
			Name:       "groq",
			APIKey:     strings.TrimSpace(os.Getenv("GROQ_API_KEY")),
			BaseURL:    getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
			ChatModel:  getEnv("GROQ_CHAT_MODEL", "llama-3.3-70b-versatile"),
			TTSModel:   getEnv("GROQ_TTS_MODEL", "playai-tts"),
			ImageModel: getEnv("GROQ_IMAGE_MODEL", "flux-1-schnell"),
		},
		TTSVoice:          getEnv("TTS_VOICE", "Fritz-PlayAI"),
		ImageSize:         getEnv("IMAGE_SIZE", "1024x1024"),
		ProviderTimeout:   time.Second * time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 120)),
		ImageConcurrency:  getEnvInt("IMAGE_CONCURRENCY", 1),
		NarrationMode:     domain.ParseNarrationMode(os.Getenv("NARRATION_MODE")),
		BackgroundMusic:   getEnv("BG_MUSIC_PATH", "assets/bg_music.mp3"),
		RenderProfilePath: os.Getenv("RENDER_PROFILE_PATH"),
		Minio: MinioConfig{
			Endpoint:  os.Getenv("MINIO_ENDPOINT"),
			AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
			SecretKey: os.Getenv("MINIO_SECRET_KEY"),
			Bucket:    getEnv("MINIO_BUCKET", "storyreel"),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		YouTube: YouTubeConfig{
			ClientID:     os.Getenv("YOUTUBE_CLIENT_ID"),
			ClientSecret: os.Getenv("YOUTUBE_CLIENT_SECRET"),
			RefreshToken: os.Getenv("YOUTUBE_REFRESH_TOKEN"),
			Privacy:      getEnv("YOUTUBE_PRIVACY", "private"),
		},
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
		AllowedOrigins:   splitList(os.Getenv("CORS_ALLOWED_ORIGINS")),
		WorkerPoll:       time.Second * time.Duration(getEnvInt("WORKER_POLL_SECONDS", 2)),
	}

	if cfg.ImageConcurrency < 1 {
		cfg.ImageConcurrency = 1
	}

	return cfg, nil
}

// Providers returns the backends in priority order.
func (c *Config) Providers() []ProviderConfig {
	return []ProviderConfig{c.Primary, c.Fallback}
}

// ValidateProviders fails when no backend has a credential, which leaves every
// capability without a provider.
func (c *Config) ValidateProviders() error {
	for _, p := range c.Providers() {
		if p.HasCredentials() {
			return nil
		}
	}
	return fmt.Errorf("no provider credentials: set EURON_API_KEY or GROQ_API_KEY")
}

// RequireDatabase fails when DATABASE_URL is missing.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
