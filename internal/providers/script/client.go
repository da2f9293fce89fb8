// Package script drafts scene-structured story scripts with OpenAI-compatible
// chat completion backends.
package script

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"storyreel/internal/domain"
	"storyreel/internal/infra"
	"storyreel/internal/providers/fallback"
	"storyreel/internal/providers/payload"
)

const defaultTemperature = 0.8

// Request describes the story to draft.
type Request struct {
	Prompt string
	Scenes int
}

// Options configures one chat backend.
type Options struct {
	Name           string
	APIKey         string
	BaseURL        string
	Model          string
	Temperature    float64
	MaxTokens      int
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client drafts scripts against one backend.
type Client struct {
	name        string
	hasKey      bool
	model       string
	temperature float64
	maxTokens   int
	client      openai.Client
	logger      *infra.Logger
}

// NewClient constructs a chat client. SDK-level retries are disabled so a backend is
// attempted at most once per call; fallback handles the rest.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 120 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	temperature := opts.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	apiKey := strings.TrimSpace(opts.APIKey)
	return &Client{
		name:        opts.Name,
		hasKey:      apiKey != "",
		model:       strings.TrimSpace(opts.Model),
		temperature: temperature,
		maxTokens:   opts.MaxTokens,
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithBaseURL(strings.TrimRight(opts.BaseURL, "/")+"/"),
			option.WithHTTPClient(httpClient),
			option.WithMaxRetries(0),
		),
		logger: infra.LoggerOrDiscard(opts.Logger),
	}
}

// Name returns the backend name used in logs and errors.
func (c *Client) Name() string { return c.name }

// HasCredentials reports whether the client can perform remote calls.
func (c *Client) HasCredentials() bool { return c.hasKey }

// Draft asks the model for a script and parses it into a validated document.
func (c *Client) Draft(ctx context.Context, req Request) (*domain.ScriptDocument, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, fmt.Errorf("script: %w: empty prompt", domain.ErrInvalidScript)
	}
	params := openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt(req.Scenes)),
			openai.UserMessage(prompt),
		},
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(c.temperature),
	}
	if c.maxTokens > 0 {
		params.MaxTokens = openai.Int(int64(c.maxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, c.classify(err)
	}
	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("%w: %s returned no choices", domain.ErrMalformedScript, c.name)
	}
	content := completion.Choices[0].Message.Content
	c.logger.Debug().Str("provider", c.name).Str("model", c.model).Str("content", content).Msg("script: raw model output")

	doc, err := ParseScript(content)
	if err != nil {
		return nil, err
	}
	if req.Scenes > 0 && doc.Len() != req.Scenes {
		c.logger.Warn().
			Str("provider", c.name).
			Int("requested", req.Scenes).
			Int("received", doc.Len()).
			Msg("script: scene count differs from request")
	}
	return doc, nil
}

func (c *Client) classify(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider:   c.name,
			Capability: domain.CapabilityScript,
			Kind:       payload.StatusKind(apiErr.StatusCode),
			Status:     apiErr.StatusCode,
			Err:        err,
		}
	}
	return payload.TransportError(c.name, domain.CapabilityScript, err)
}

// Drafter is the script capability consumed by the pipeline.
type Drafter interface {
	Draft(ctx context.Context, req Request) (*domain.ScriptDocument, error)
}

// Chain adapts a fallback chain to the Drafter interface.
type Chain struct {
	*fallback.Chain[Request, *domain.ScriptDocument]
}

func (c Chain) Draft(ctx context.Context, req Request) (*domain.ScriptDocument, error) {
	return c.Call(ctx, req)
}

// NewChain builds the script chain over clients in priority order.
func NewChain(clients []*Client, opts fallback.Options) Chain {
	backends := make([]fallback.Backend[Request, *domain.ScriptDocument], 0, len(clients))
	for _, client := range clients {
		backends = append(backends, fallback.Backend[Request, *domain.ScriptDocument]{
			Name:       client.Name(),
			Configured: client.HasCredentials,
			Call:       client.Draft,
		})
	}
	return Chain{fallback.NewChain(domain.CapabilityScript, backends, opts)}
}

// FromConfig creates one client per configured provider.
func FromConfig(providers []infra.ProviderConfig, timeout time.Duration, logger *infra.Logger) []*Client {
	clients := make([]*Client, 0, len(providers))
	for _, p := range providers {
		opts := Options{
			Name:           p.Name,
			APIKey:         p.APIKey,
			BaseURL:        p.BaseURL,
			Model:          p.ChatModel,
			Logger:         logger,
			RequestTimeout: timeout,
		}
		if p.Name == "euron" {
			opts.MaxTokens = 1500
		}
		clients = append(clients, NewClient(opts))
	}
	return clients
}

var _ Drafter = (*Client)(nil)
var _ Drafter = Chain{}
