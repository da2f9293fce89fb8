package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	stdimage "image"
	"image/color"
	"image/png"
	"io"
	"net/http"
	"testing"

	"storyreel/internal/domain"
	"storyreel/internal/providers/fallback"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, w, h))
	img.Set(0, 0, color.White)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func jsonReply(status int, v any) *http.Response {
	body, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func TestGenerateFromBase64(t *testing.T) {
	img := pngBytes(t, 8, 4)
	var captured generationRequest
	client := NewClient(Options{
		Name:        "euron",
		APIKey:      "key",
		BaseURL:     "https://api.euron.one/api/v1/euri",
		DefaultSize: "512*512",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.URL.Path != "/api/v1/euri/images/generations" {
				t.Fatalf("unexpected path %q", r.URL.Path)
			}
			if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonReply(http.StatusOK, map[string]any{
				"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString(img)}},
			}), nil
		})},
	})

	asset, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a fox under stars", SceneNumber: 1})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if captured.Size != "512x512" || captured.N != 1 || captured.Prompt != "a fox under stars" {
		t.Fatalf("unexpected payload: %#v", captured)
	}
	if asset.Width != 8 || asset.Height != 4 || asset.Format != "png" {
		t.Fatalf("unexpected asset: %#v", asset)
	}
}

// 1x1 lossless WebP
const webpPixel = "UklGRhoAAABXRUJQVlA4TA0AAAAvAAAAEAcQERGIiP4HAA=="

func TestGenerateAcceptsWebP(t *testing.T) {
	client := NewClient(Options{
		Name:    "groq",
		APIKey:  "key",
		BaseURL: "https://api.groq.com/openai/v1",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonReply(http.StatusOK, map[string]any{
				"data": []any{map[string]any{"b64_json": webpPixel}},
			}), nil
		})},
	})

	asset, err := client.Generate(context.Background(), GenerateRequest{Prompt: "a lighthouse", SceneNumber: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if asset.Format != "webp" || asset.Width != 1 || asset.Height != 1 {
		t.Fatalf("unexpected asset: %#v", asset)
	}
}

func TestGenerateDownloadsURL(t *testing.T) {
	img := pngBytes(t, 2, 2)
	client := NewClient(Options{
		Name:    "groq",
		APIKey:  "key",
		BaseURL: "https://api.groq.com/openai/v1",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			if r.Method == http.MethodGet {
				return &http.Response{
					StatusCode: http.StatusOK,
					Header:     http.Header{"Content-Type": []string{"image/png"}},
					Body:       io.NopCloser(bytes.NewReader(img)),
				}, nil
			}
			return jsonReply(http.StatusOK, map[string]any{
				"data": []any{map[string]any{"url": "https://cdn.example.com/scene.png"}},
			}), nil
		})},
	})
	asset, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !bytes.Equal(asset.Data, img) {
		t.Fatalf("downloaded data mismatch")
	}
}

func TestGenerateRejectsNonImagePayload(t *testing.T) {
	client := NewClient(Options{
		Name:    "euron",
		APIKey:  "key",
		BaseURL: "https://api.euron.one/api/v1/euri",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return jsonReply(http.StatusOK, map[string]any{
				"data": []any{map[string]any{"b64_json": base64.StdEncoding.EncodeToString([]byte("not an image"))}},
			}), nil
		})},
	})
	if _, err := client.Generate(context.Background(), GenerateRequest{Prompt: "p"}); !errors.Is(err, domain.ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestChainPrimaryUnconfigured(t *testing.T) {
	img := pngBytes(t, 2, 2)
	var hosts []string
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		hosts = append(hosts, r.URL.Host)
		return jsonReply(http.StatusOK, map[string]any{"data": []any{map[string]any{"image": base64.StdEncoding.EncodeToString(img)}}}), nil
	})}
	chain := NewChain([]*Client{
		NewClient(Options{Name: "euron", BaseURL: "https://api.euron.one/api/v1/euri", HTTPClient: httpClient}),
		NewClient(Options{Name: "groq", APIKey: "k", BaseURL: "https://api.groq.com/openai/v1", HTTPClient: httpClient}),
	}, fallback.Options{})
	asset, err := chain.Generate(context.Background(), GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if asset.Provider != "groq" {
		t.Fatalf("provider = %q", asset.Provider)
	}
	if len(hosts) != 1 || hosts[0] != "api.groq.com" {
		t.Fatalf("unexpected hosts: %#v", hosts)
	}
}

func TestNormalizeSize(t *testing.T) {
	cases := map[string]string{
		"":          "1024x1024",
		"1328*1328": "1328x1328",
		"768X512":   "768x512",
		"wide":      "1024x1024",
		"0x10":      "1024x1024",
	}
	for in, want := range cases {
		if got := NormalizeSize(in); got != want {
			t.Fatalf("NormalizeSize(%q) = %q, want %q", in, got, want)
		}
	}
}
