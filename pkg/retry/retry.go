// Package retry decides whether a failed attempt should be repeated and
// how long to wait before repeating it. The policy is a pure function of
// the attempt number and the failure kind; it performs no I/O and holds
// no state, so a single Policy value is safe for concurrent use.
package retry

import (
	"math"
	"math/rand"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
)

const (
	defaultMaxAttempts  = 3
	defaultInitialDelay = 1 * time.Second
	defaultMaxDelay     = 60 * time.Second
	defaultBase         = 2.0

	// jitterFraction bounds the random perturbation applied to a delay
	// so that concurrent clients don't retry in lockstep.
	jitterFraction = 0.25
)

type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// InitialDelay is the wait after the first failed attempt.
	InitialDelay time.Duration
	// MaxDelay caps the exponential backoff. A server-supplied
	// Retry-After may still exceed it.
	MaxDelay time.Duration
	// Base is the exponential growth factor.
	Base float64
	// Jitter enables a bounded random perturbation of the delay.
	Jitter bool
}

type Decision struct {
	Retry bool
	Delay time.Duration
}

// Default returns the policy used when a client is constructed without
// an explicit one.
func Default() Policy {
	return Policy{
		MaxAttempts:  defaultMaxAttempts,
		InitialDelay: defaultInitialDelay,
		MaxDelay:     defaultMaxDelay,
		Base:         defaultBase,
	}
}

// Decide returns whether attempt should be retried and after how long.
// attempt is zero-based: 0 is the first attempt. retryAfter is the
// server-supplied wait, zero if the server didn't send one.
func (p Policy) Decide(attempt int, kind apierr.Kind, retryAfter time.Duration) Decision {
	if !kind.Retryable() {
		return Decision{}
	}
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	// The attempt numbered maxAttempts-1 is the last one allowed.
	if attempt >= maxAttempts-1 {
		return Decision{}
	}

	initial := p.InitialDelay
	if initial <= 0 {
		initial = defaultInitialDelay
	}
	max := p.MaxDelay
	if max <= 0 {
		max = defaultMaxDelay
	}
	base := p.Base
	if base <= 1 {
		base = defaultBase
	}

	delay := time.Duration(float64(initial) * math.Pow(base, float64(attempt)))
	if delay > max || delay <= 0 {
		delay = max
	}
	// A server-mandated wait is honored even beyond the cap.
	if retryAfter > delay {
		delay = retryAfter
	}
	if p.Jitter {
		f := 1 + jitterFraction*(2*rand.Float64()-1)
		delay = time.Duration(float64(delay) * f)
	}
	return Decision{Retry: true, Delay: delay}
}
