package aimusicapi

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
	"github.com/igolaizola/aimusic/pkg/retry"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := New(&Config{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Wait:    time.Millisecond,
		Retry: &retry.Policy{
			MaxAttempts:  3,
			InitialDelay: 10 * time.Millisecond,
			MaxDelay:     100 * time.Millisecond,
			Base:         2,
		},
	})
	return client, srv
}

func TestAuthenticationNoRetry(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error": "invalid api key"}`)
	}))

	var out map[string]any
	err := client.Get(context.Background(), "/api/v1/credits", nil, &out)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := apierr.KindOf(err); kind != apierr.Authentication {
		t.Fatalf("kind = %v; want %v", kind, apierr.Authentication)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server called %d times; want 1", n)
	}
	if strings.Contains(err.Error(), "test-key") {
		t.Fatal("error message leaks the API key")
	}
}

func TestInvalidParameterNoRetry(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"error": "duration out of range", "error_code": "invalid_duration"}`)
	}))

	err := client.Post(context.Background(), "/suno/v1/music/create", map[string]int{"duration": 999}, nil)
	if kind := apierr.KindOf(err); kind != apierr.InvalidParameter {
		t.Fatalf("kind = %v; want %v", kind, apierr.InvalidParameter)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("server called %d times; want 1", n)
	}
}

func TestRateLimitedRetryAfter(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error": "rate limit exceeded"}`)
			return
		}
		fmt.Fprint(w, `{"credits": 42, "extra_credits": 0}`)
	}))

	start := time.Now()
	credits, err := client.GetCredits(context.Background())
	if err != nil {
		t.Fatalf("GetCredits() err = %v", err)
	}
	if credits.Credits != 42 {
		t.Fatalf("credits = %d; want 42", credits.Credits)
	}
	if elapsed := time.Since(start); elapsed < time.Second {
		t.Fatalf("retried after %v; want >= 1s (Retry-After)", elapsed)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("server called %d times; want 2", n)
	}
}

func TestTransientServerErrorRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"credits": 7, "extra_credits": 0}`)
	}))

	credits, err := client.GetCredits(context.Background())
	if err != nil {
		t.Fatalf("GetCredits() err = %v", err)
	}
	if credits.Credits != 7 {
		t.Fatalf("credits = %d; want 7", credits.Credits)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("server called %d times; want 3", n)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.GetCredits(context.Background())
	if kind := apierr.KindOf(err); kind != apierr.Transport {
		t.Fatalf("kind = %v; want %v", kind, apierr.Transport)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Fatalf("server called %d times; want 3 (max attempts)", n)
	}
}

func TestMalformedBodyRetried(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			// Proxy error page with a 200 status.
			fmt.Fprint(w, "<html>bad gateway</html>")
			return
		}
		fmt.Fprint(w, `{"credits": 3, "extra_credits": 1}`)
	}))

	credits, err := client.GetCredits(context.Background())
	if err != nil {
		t.Fatalf("GetCredits() err = %v", err)
	}
	if credits.Credits != 3 {
		t.Fatalf("credits = %d; want 3", credits.Credits)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("server called %d times; want 2", n)
	}
}

func TestBearerHeader(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("authorization header = %q", got)
		}
		fmt.Fprint(w, `{"credits": 0, "extra_credits": 0}`)
	}))
	if _, err := client.GetCredits(context.Background()); err != nil {
		t.Fatalf("GetCredits() err = %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{in: "", want: 0},
		{in: "2", want: 2 * time.Second},
		{in: "0", want: 0},
		{in: "garbage", want: 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}
