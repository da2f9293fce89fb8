// Package payload holds the HTTP plumbing shared by the narration and image
// adapters: request dispatch, status classification and byte extraction from
// binary, URL or base64 response shapes.
package payload

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"storyreel/internal/domain"
)

const maxErrorBody = 512

// Response is a raw provider reply.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// Asset is the normalized result of a binary-producing call.
type Asset struct {
	Data     []byte
	MIME     string
	Source   string
	Provider string
}

// PostJSON sends payload as JSON with bearer authentication and returns the raw reply.
// Only transport failures are returned as errors; status handling is left to Classify.
func PostJSON(ctx context.Context, client *http.Client, endpoint, apiKey string, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &Response{Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type"), Body: raw}, nil
}

// StatusKind maps a non-success HTTP status onto a recoverable failure kind.
func StatusKind(status int) domain.ProviderErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden, http.StatusTooManyRequests:
		return domain.ProviderQuotaExceeded
	default:
		return domain.ProviderTransport
	}
}

// StatusError builds the provider error for a non-success reply.
func StatusError(provider string, capability domain.Capability, resp *Response) error {
	detail := clip(strings.ToValidUTF8(strings.TrimSpace(string(resp.Body)), "\uFFFD"), maxErrorBody)
	var cause error
	if detail != "" {
		cause = errors.New(detail)
	}
	return &domain.ProviderError{
		Provider:   provider,
		Capability: capability,
		Kind:       StatusKind(resp.Status),
		Status:     resp.Status,
		Err:        cause,
	}
}

// clip cuts s to at most n bytes without splitting a rune.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// TransportError wraps a network or timeout failure.
func TransportError(provider string, capability domain.Capability, err error) error {
	return &domain.ProviderError{Provider: provider, Capability: capability, Kind: domain.ProviderTransport, Err: err}
}

type item struct {
	URL     string `json:"url"`
	B64JSON string `json:"b64_json"`
	Image   string `json:"image"`
	Audio   string `json:"audio"`
}

type envelope struct {
	Data []item `json:"data"`
	item
}

// Extract returns the payload bytes carried by resp. A non-JSON body is returned as
// is; a JSON body must carry url, b64_json, image or audio either at the top level or
// in data[0]. URLs are fetched with client. Shape errors wrap domain.ErrMalformedResponse.
func Extract(ctx context.Context, client *http.Client, resp *Response) (*Asset, error) {
	if len(resp.Body) == 0 {
		return nil, fmt.Errorf("%w: empty body", domain.ErrMalformedResponse)
	}
	if !isJSON(resp) {
		return &Asset{Data: resp.Body, MIME: mediaType(resp.ContentType), Source: "binary"}, nil
	}
	var env envelope
	if err := json.Unmarshal(resp.Body, &env); err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", domain.ErrMalformedResponse, err)
	}
	candidates := make([]item, 0, 2)
	if len(env.Data) > 0 {
		candidates = append(candidates, env.Data[0])
	}
	candidates = append(candidates, env.item)
	for _, c := range candidates {
		if u := strings.TrimSpace(c.URL); u != "" {
			data, mimeType, err := Download(ctx, client, u)
			if err != nil {
				return nil, err
			}
			return &Asset{Data: data, MIME: mimeType, Source: "url"}, nil
		}
		for _, encoded := range []string{c.B64JSON, c.Image, c.Audio} {
			if strings.TrimSpace(encoded) == "" {
				continue
			}
			data, mimeType, err := decodeBase64(encoded)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", domain.ErrMalformedResponse, err)
			}
			return &Asset{Data: data, MIME: mimeType, Source: "base64"}, nil
		}
	}
	return nil, fmt.Errorf("%w: no url or base64 field in response", domain.ErrMalformedResponse)
}

// Download fetches a provider-hosted asset.
func Download(ctx context.Context, client *http.Client, rawURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, "", fmt.Errorf("%w: invalid asset url %q", domain.ErrMalformedResponse, rawURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download asset: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read asset: %w", err)
	}
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: downloaded asset is empty", domain.ErrMalformedResponse)
	}
	return data, mediaType(resp.Header.Get("Content-Type")), nil
}

func decodeBase64(encoded string) ([]byte, string, error) {
	encoded = strings.TrimSpace(encoded)
	var mimeType string
	if strings.HasPrefix(encoded, "data:") {
		header, rest, ok := strings.Cut(encoded, ",")
		if !ok {
			return nil, "", errors.New("invalid data uri")
		}
		mimeType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		encoded = rest
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	if err != nil {
		return nil, "", fmt.Errorf("decode base64: %w", err)
	}
	if len(data) == 0 {
		return nil, "", errors.New("decoded payload is empty")
	}
	return data, mimeType, nil
}

func isJSON(resp *Response) bool {
	if mediaType(resp.ContentType) == "application/json" {
		return true
	}
	trimmed := bytes.TrimSpace(resp.Body)
	return resp.ContentType == "" && len(trimmed) > 0 && trimmed[0] == '{'
}

func mediaType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mt
}
