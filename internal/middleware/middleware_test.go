package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		want       string
	}{
		{name: "ipv4 with port", remoteAddr: "198.51.100.10:1234", want: "198.51.100.10"},
		{name: "ipv6 with port", remoteAddr: "[2001:db8::2]:443", want: "2001:db8::2"},
		{name: "bare address from RealIP", remoteAddr: "203.0.113.1", want: "203.0.113.1"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remoteAddr
			if got := clientIP(req); got != tc.want {
				t.Fatalf("clientIP() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestRateLimitRejectsOverLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/v1/stories", nil)
		req.RemoteAddr = "198.51.100.10:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if rec.Code == http.StatusTooManyRequests && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("missing Retry-After header")
		}
	}
	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

func TestRateLimitSeparatesClients(t *testing.T) {
	h := RateLimit(1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, addr := range []string{"198.51.100.10:1", "198.51.100.11:1"} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", addr, rec.Code)
		}
	}
}

func TestLimiterWindowResets(t *testing.T) {
	now := time.Unix(1000, 0)
	l := &limiter{limit: 1, per: time.Minute, now: func() time.Time { return now }, windows: map[string]*window{}}
	if ok, _ := l.allow("a"); !ok {
		t.Fatalf("first hit rejected")
	}
	ok, wait := l.allow("a")
	if ok || wait != time.Minute {
		t.Fatalf("second hit: ok=%v wait=%s", ok, wait)
	}
	now = now.Add(61 * time.Second)
	if ok, _ := l.allow("a"); !ok {
		t.Fatalf("hit after window rejected")
	}
}

func TestDisabledRateLimitPassesThrough(t *testing.T) {
	called := 0
	h := RateLimit(0, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called++ }))
	for i := 0; i < 5; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}
	if called != 5 {
		t.Fatalf("called = %d", called)
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id = %q, header = %q", seen, rec.Header().Get("X-Request-ID"))
	}
}

func TestRequestIDReplacesUnsafeValue(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", strings.Repeat("x", 100))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if len(seen) != 36 {
		t.Fatalf("expected generated uuid, got %q", seen)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("preflight reached handler")
	}))
	req := httptest.NewRequest(http.MethodOptions, "/v1/stories", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Fatalf("missing allow origin header")
	}
}

func TestCORSIgnoresUnknownOrigin(t *testing.T) {
	h := CORS([]string{"https://app.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected allow origin for unknown origin")
	}
}
