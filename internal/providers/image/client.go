package image

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"strings"
	"time"

	_ "golang.org/x/image/webp"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/providers/fallback"
	"storyreel/internal/providers/payload"
)

// Options configures one image backend.
type Options struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	DefaultSize    string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs calls to an OpenAI-compatible /images/generations endpoint.
type Client struct {
	name        string
	apiKey      string
	endpoint    string
	model       string
	defaultSize string
	httpClient  *http.Client
	logger      *infra.Logger
}

type generationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Size   string `json:"size"`
	N      int    `json:"n"`
}

// NewClient constructs a client with sane defaults and injected dependencies.
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
		model = "black-forest-labs/FLUX.1-schnell"
	}
	return &Client{
		name:        opts.Name,
		apiKey:      strings.TrimSpace(opts.APIKey),
		endpoint:    strings.TrimRight(opts.BaseURL, "/") + "/images/generations",
		model:       model,
		defaultSize: NormalizeSize(opts.DefaultSize),
		httpClient:  httpClient,
		logger:      infra.LoggerOrDiscard(opts.Logger),
	}
}

// Name returns the backend name used in logs and errors.
func (c *Client) Name() string { return c.name }

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool {
	return c.apiKey != ""
}

// Generate requests one image for req.Prompt.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = "illustration"
	}
	size := c.defaultSize
	if req.Size != "" {
		size = NormalizeSize(req.Size)
	}
	resp, err := payload.PostJSON(ctx, c.httpClient, c.endpoint, c.apiKey, generationRequest{
		Model:  c.model,
		Prompt: prompt,
		Size:   size,
		N:      1,
	})
	if err != nil {
		return nil, payload.TransportError(c.name, domain.CapabilityImage, err)
	}
	if resp.Status >= 300 {
		return nil, payload.StatusError(c.name, domain.CapabilityImage, resp)
	}
	extracted, err := payload.Extract(ctx, c.httpClient, resp)
	if err != nil {
		if errors.Is(err, domain.ErrMalformedResponse) {
			return nil, err
		}
		return nil, payload.TransportError(c.name, domain.CapabilityImage, err)
	}
	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(extracted.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: image %s: %v", domain.ErrMalformedResponse, c.name, err)
	}
	c.logger.Debug().
		Str("provider", c.name).
		Str("model", c.model).
		Int("scene", req.SceneNumber).
		Int("width", cfg.Width).
		Int("height", cfg.Height).
		Msg("image: generated scene illustration")
	return &Asset{
		Data:     extracted.Data,
		Format:   format,
		Width:    cfg.Width,
		Height:   cfg.Height,
		Provider: c.name,
	}, nil
}

// Chain adapts a fallback chain to the Generator interface.
type Chain struct {
	*fallback.Chain[GenerateRequest, *Asset]
}

func (c Chain) Generate(ctx context.Context, req GenerateRequest) (*Asset, error) {
	return c.Call(ctx, req)
}

// NewChain builds the image chain over clients in priority order.
func NewChain(clients []*Client, opts fallback.Options) Chain {
	backends := make([]fallback.Backend[GenerateRequest, *Asset], 0, len(clients))
	for _, client := range clients {
		backends = append(backends, fallback.Backend[GenerateRequest, *Asset]{
			Name:       client.Name(),
			Configured: client.HasCredentials,
			Call:       client.Generate,
		})
	}
	return Chain{fallback.NewChain(domain.CapabilityImage, backends, opts)}
}

// FromConfig creates one client per configured provider.
func FromConfig(providers []infra.ProviderConfig, size string, timeout time.Duration, logger *infra.Logger) []*Client {
	clients := make([]*Client, 0, len(providers))
	for _, p := range providers {
		clients = append(clients, NewClient(Options{
			Name:           p.Name,
			APIKey:         p.APIKey,
			BaseURL:        p.BaseURL,
			Model:          p.ImageModel,
			DefaultSize:    size,
			Logger:         logger,
			RequestTimeout: timeout,
		}))
	}
	return clients
}

var _ Generator = (*Client)(nil)
var _ Generator = Chain{}
