package retry

import (
	"testing"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
)

func TestDecideNonRetryableKinds(t *testing.T) {
	p := Policy{MaxAttempts: 10, InitialDelay: time.Second, MaxDelay: time.Minute, Base: 2}
	kinds := []apierr.Kind{
		apierr.Authentication,
		apierr.InsufficientCredits,
		apierr.InvalidParameter,
		apierr.NotFound,
		apierr.TaskFailed,
		apierr.WebhookVerification,
	}
	for _, kind := range kinds {
		for _, attempt := range []int{0, 1, 5} {
			if d := p.Decide(attempt, kind, 0); d.Retry {
				t.Errorf("Decide(%d, %s) = retry; want no retry", attempt, kind)
			}
		}
	}
}

func TestDecideMaxAttempts(t *testing.T) {
	p := Policy{MaxAttempts: 3, InitialDelay: time.Second, MaxDelay: time.Minute, Base: 2}
	kinds := []apierr.Kind{apierr.RateLimited, apierr.Timeout, apierr.Transport}
	for _, kind := range kinds {
		if d := p.Decide(0, kind, 0); !d.Retry {
			t.Errorf("Decide(0, %s) = no retry; want retry", kind)
		}
		if d := p.Decide(1, kind, 0); !d.Retry {
			t.Errorf("Decide(1, %s) = no retry; want retry", kind)
		}
		// Attempt 2 is the third and last allowed attempt.
		if d := p.Decide(2, kind, 0); d.Retry {
			t.Errorf("Decide(2, %s) = retry; want no retry", kind)
		}
		if d := p.Decide(10, kind, 0); d.Retry {
			t.Errorf("Decide(10, %s) = retry; want no retry", kind)
		}
	}
}

func TestDecideBackoff(t *testing.T) {
	p := Policy{MaxAttempts: 20, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Base: 2}
	var prev time.Duration
	for attempt := 0; attempt < 18; attempt++ {
		d := p.Decide(attempt, apierr.Transport, 0)
		if !d.Retry {
			t.Fatalf("Decide(%d) = no retry", attempt)
		}
		if d.Delay < prev {
			t.Fatalf("Decide(%d).Delay = %v; decreased from %v", attempt, d.Delay, prev)
		}
		if d.Delay > p.MaxDelay {
			t.Fatalf("Decide(%d).Delay = %v; exceeds max %v", attempt, d.Delay, p.MaxDelay)
		}
		prev = d.Delay
	}
	// 1s, 2s, 4s, 8s, then capped.
	if d := p.Decide(0, apierr.Transport, 0); d.Delay != time.Second {
		t.Fatalf("Decide(0).Delay = %v; want 1s", d.Delay)
	}
	if d := p.Decide(3, apierr.Transport, 0); d.Delay != 8*time.Second {
		t.Fatalf("Decide(3).Delay = %v; want 8s", d.Delay)
	}
	if d := p.Decide(4, apierr.Transport, 0); d.Delay != 10*time.Second {
		t.Fatalf("Decide(4).Delay = %v; want capped 10s", d.Delay)
	}
}

func TestDecideRetryAfter(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, Base: 2}

	// Server wait above the computed backoff wins.
	if d := p.Decide(0, apierr.RateLimited, 5*time.Second); d.Delay != 5*time.Second {
		t.Fatalf("Delay = %v; want 5s", d.Delay)
	}
	// Server wait below the computed backoff is ignored.
	if d := p.Decide(3, apierr.RateLimited, time.Second); d.Delay != 8*time.Second {
		t.Fatalf("Delay = %v; want 8s", d.Delay)
	}
	// Server wait is honored even beyond the cap.
	if d := p.Decide(0, apierr.RateLimited, time.Minute); d.Delay != time.Minute {
		t.Fatalf("Delay = %v; want 1m", d.Delay)
	}
}

func TestDecideJitterBounded(t *testing.T) {
	p := Policy{MaxAttempts: 5, InitialDelay: 4 * time.Second, MaxDelay: time.Minute, Base: 2, Jitter: true}
	for i := 0; i < 100; i++ {
		d := p.Decide(0, apierr.Transport, 0)
		if !d.Retry {
			t.Fatal("Decide(0) = no retry")
		}
		if d.Delay < 3*time.Second || d.Delay > 5*time.Second {
			t.Fatalf("jittered delay %v outside [3s, 5s]", d.Delay)
		}
	}
}

func TestDefaults(t *testing.T) {
	// Zero policy falls back to defaults instead of never retrying.
	var p Policy
	d := p.Decide(0, apierr.Transport, 0)
	if !d.Retry {
		t.Fatal("zero policy: Decide(0) = no retry")
	}
	if d.Delay != time.Second {
		t.Fatalf("zero policy: Delay = %v; want 1s", d.Delay)
	}
	if d := p.Decide(2, apierr.Transport, 0); d.Retry {
		t.Fatal("zero policy: Decide(2) = retry; want no retry after 3 attempts")
	}
}
