// Package speech synthesizes narration audio through OpenAI-compatible
// /audio/speech endpoints.
package speech

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/providers/fallback"
	"storyreel/internal/providers/payload"
)

// Request is the text to narrate.
type Request struct {
	Text string
}

// Options configures one speech backend.
type Options struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	Voice          string
	Format         string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client calls a single speech backend.
type Client struct {
	name       string
	apiKey     string
	endpoint   string
	model      string
	voice      string
	format     string
	httpClient *http.Client
	logger     *infra.Logger
}

type speechRequest struct {
	Model          string `json:"model"`
	Input          string `json:"input"`
	Voice          string `json:"voice,omitempty"`
	ResponseFormat string `json:"response_format,omitempty"`
}

// NewClient constructs a client with defaults for the model and output format.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "playai-tts"
	}
	format := strings.TrimSpace(opts.Format)
	if format == "" {
		format = "mp3"
	}
	return &Client{
		name:       opts.Name,
		apiKey:     strings.TrimSpace(opts.APIKey),
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/audio/speech",
		model:      model,
		voice:      strings.TrimSpace(opts.Voice),
		format:     format,
		httpClient: httpClient,
		logger:     infra.LoggerOrDiscard(opts.Logger),
	}
}

// Name returns the backend name used in logs and errors.
func (c *Client) Name() string { return c.name }

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Synthesize narrates req.Text and returns the audio bytes.
func (c *Client) Synthesize(ctx context.Context, req Request) (*payload.Asset, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, fmt.Errorf("speech: %w: empty narration", domain.ErrInvalidScript)
	}
	resp, err := payload.PostJSON(ctx, c.httpClient, c.endpoint, c.apiKey, speechRequest{
		Model:          c.model,
		Input:          text,
		Voice:          c.voice,
		ResponseFormat: c.format,
	})
	if err != nil {
		return nil, payload.TransportError(c.name, domain.CapabilityNarration, err)
	}
	if resp.Status >= 300 {
		return nil, payload.StatusError(c.name, domain.CapabilityNarration, resp)
	}
	asset, err := payload.Extract(ctx, c.httpClient, resp)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) {
			return nil, err
		}
		return nil, payload.TransportError(c.name, domain.CapabilityNarration, err)
	}
	asset.Provider = c.name
	c.logger.Debug().
		Str("provider", c.name).
		Str("model", c.model).
		Int("bytes", len(asset.Data)).
		Str("source", asset.Source).
		Msg("speech: synthesized narration")
	return asset, nil
}

// Synthesizer is the narration capability consumed by the pipeline.
type Synthesizer interface {
	Synthesize(ctx context.Context, req Request) (*payload.Asset, error)
}

// Chain adapts a fallback chain to the Synthesizer interface.
type Chain struct {
	*fallback.Chain[Request, *payload.Asset]
}

func (c Chain) Synthesize(ctx context.Context, req Request) (*payload.Asset, error) {
	return c.Call(ctx, req)
}

// NewChain builds the narration chain over clients in priority order.
func NewChain(clients []*Client, opts fallback.Options) Chain {
	backends := make([]fallback.Backend[Request, *payload.Asset], 0, len(clients))
	for _, client := range clients {
		backends = append(backends, fallback.Backend[Request, *payload.Asset]{
			Name:       client.Name(),
			Configured: client.HasCredentials,
			Call:       client.Synthesize,
		})
	}
	return Chain{fallback.NewChain(domain.CapabilityNarration, backends, opts)}
}

// FromConfig creates one client per configured provider.
func FromConfig(providers []infra.ProviderConfig, voice string, timeout time.Duration, logger *infra.Logger) []*Client {
	clients := make([]*Client, 0, len(providers))
	for _, p := range providers {
		clients = append(clients, NewClient(Options{
			Name:           p.Name,
			APIKey:         p.APIKey,
			BaseURL:        p.BaseURL,
			Model:          p.TTSModel,
			Voice:          voice,
			Logger:         logger,
			RequestTimeout: timeout,
		}))
	}
	return clients
}

var _ Synthesizer = (*Client)(nil)
var _ Synthesizer = Chain{}
