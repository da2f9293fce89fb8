package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"storyreel/internal/domain"
	"storyreel/internal/providers/fallback"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func jsonReply(status int, v any) *http.Response {
	body, _ := json.Marshal(v)
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "test-model",
		"choices": []any{map[string]any{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func TestDraftParsesCompletion(t *testing.T) {
	var path, auth string
	var body map[string]any
	client := NewClient(Options{
		Name:    "euron",
		APIKey:  "key",
		BaseURL: "https://api.euron.one/api/v1/euri",
		Model:   "gpt-4.1-nano",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			path = r.URL.Path
			auth = r.Header.Get("Authorization")
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			return jsonReply(http.StatusOK, completion("```json\n"+plainScript+"\n```")), nil
		})},
	})

	doc, err := client.Draft(context.Background(), Request{Prompt: "a fox and a star", Scenes: 2})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if path != "/api/v1/euri/chat/completions" {
		t.Fatalf("path = %q", path)
	}
	if auth != "Bearer key" {
		t.Fatalf("authorization = %q", auth)
	}
	if body["model"] != "gpt-4.1-nano" {
		t.Fatalf("model = %v", body["model"])
	}
	messages, _ := body["messages"].([]any)
	if len(messages) != 2 {
		t.Fatalf("expected system and user messages, got %v", body["messages"])
	}
	if doc.Len() != 2 || doc.Scenes[0].Narration != "A fox looks up." {
		t.Fatalf("unexpected document: %#v", doc.Scenes)
	}
}

func TestDraftFallsBackOnAuthError(t *testing.T) {
	calls := map[string]int{}
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls[r.URL.Host]++
		if r.URL.Host == "api.euron.one" {
			return jsonReply(http.StatusForbidden, map[string]any{"error": map[string]any{"message": "quota reached"}}), nil
		}
		return jsonReply(http.StatusOK, completion(plainScript)), nil
	})}
	chain := NewChain([]*Client{
		NewClient(Options{Name: "euron", APIKey: "a", BaseURL: "https://api.euron.one/api/v1/euri", Model: "m", HTTPClient: httpClient}),
		NewClient(Options{Name: "groq", APIKey: "b", BaseURL: "https://api.groq.com/openai/v1", Model: "m", HTTPClient: httpClient}),
	}, fallback.Options{})

	doc, err := chain.Draft(context.Background(), Request{Prompt: "story", Scenes: 2})
	if err != nil {
		t.Fatalf("Draft: %v", err)
	}
	if doc.Len() != 2 {
		t.Fatalf("unexpected scene count %d", doc.Len())
	}
	if calls["api.euron.one"] != 1 || calls["api.groq.com"] != 1 {
		t.Fatalf("unexpected calls: %#v", calls)
	}
}

func TestDraftMalformedDoesNotFallBack(t *testing.T) {
	calls := map[string]int{}
	httpClient := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		calls[r.URL.Host]++
		return jsonReply(http.StatusOK, completion(`{"story":"not a list"}`)), nil
	})}
	chain := NewChain([]*Client{
		NewClient(Options{Name: "euron", APIKey: "a", BaseURL: "https://api.euron.one/api/v1/euri", Model: "m", HTTPClient: httpClient}),
		NewClient(Options{Name: "groq", APIKey: "b", BaseURL: "https://api.groq.com/openai/v1", Model: "m", HTTPClient: httpClient}),
	}, fallback.Options{})

	_, err := chain.Draft(context.Background(), Request{Prompt: "story"})
	if !errors.Is(err, domain.ErrMalformedScript) {
		t.Fatalf("expected ErrMalformedScript, got %v", err)
	}
	if calls["api.groq.com"] != 0 {
		t.Fatalf("fallback should not run on malformed script")
	}
}

func TestDraftTransportError(t *testing.T) {
	client := NewClient(Options{
		Name:    "groq",
		APIKey:  "b",
		BaseURL: "https://api.groq.com/openai/v1",
		Model:   "m",
		HTTPClient: &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			return nil, errors.New("dial tcp: i/o timeout")
		})},
	})
	_, err := client.Draft(context.Background(), Request{Prompt: "story"})
	if !errors.Is(err, domain.ErrProviderTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if !strings.Contains(err.Error(), "groq") {
		t.Fatalf("error should name the provider: %v", err)
	}
}
