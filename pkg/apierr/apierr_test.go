package apierr

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{status: 400, want: InvalidParameter},
		{status: 401, want: Authentication},
		{status: 402, want: InsufficientCredits},
		{status: 404, want: NotFound},
		{status: 408, want: Timeout},
		{status: 409, want: InvalidParameter},
		{status: 422, want: InvalidParameter},
		{status: 429, want: RateLimited},
		{status: 500, want: Transport},
		{status: 502, want: Transport},
		{status: 503, want: Transport},
		{status: 504, want: Transport},
		{status: 520, want: Transport},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "", "", 0)
			if err.Kind != tt.want {
				t.Fatalf("FromStatus(%d).Kind = %v; want %v", tt.status, err.Kind, tt.want)
			}
			if err.StatusCode != tt.status {
				t.Fatalf("FromStatus(%d).StatusCode = %d", tt.status, err.StatusCode)
			}
		})
	}
}

func TestFromStatusRetryAfter(t *testing.T) {
	err := FromStatus(429, "slow down", "", 2*time.Second)
	if err.Kind != RateLimited {
		t.Fatalf("Kind = %v; want %v", err.Kind, RateLimited)
	}
	if err.RetryAfter != 2*time.Second {
		t.Fatalf("RetryAfter = %v; want 2s", err.RetryAfter)
	}
}

func TestRetryable(t *testing.T) {
	retryable := map[Kind]bool{
		Authentication:      false,
		InsufficientCredits: false,
		InvalidParameter:    false,
		NotFound:            false,
		RateLimited:         true,
		TaskFailed:          false,
		Timeout:             true,
		Transport:           true,
		WebhookVerification: false,
	}
	for kind, want := range retryable {
		if got := kind.Retryable(); got != want {
			t.Errorf("%s.Retryable() = %v; want %v", kind, got, want)
		}
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(Transport, cause, "couldn't reach server")
	if !errors.Is(err, cause) {
		t.Fatal("wrapped cause not found by errors.Is")
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("errors.As failed to match *Error")
	}
	if e.Kind != Transport {
		t.Fatalf("Kind = %v; want %v", e.Kind, Transport)
	}
	if KindOf(err) != Transport {
		t.Fatalf("KindOf = %v; want %v", KindOf(err), Transport)
	}
	if KindOf(cause) != "" {
		t.Fatalf("KindOf(plain error) = %q; want empty", KindOf(cause))
	}
}
