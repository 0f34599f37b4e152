// Package ratelimit spaces outbound calls so that a client never hits
// the remote API faster than a configured minimum wait.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Lock serializes callers and enforces a minimum wait between the
// moment one caller unlocks and the next one proceeds.
type Lock interface {
	// Lock blocks until the caller may proceed and returns the unlock
	// function. It returns early if the context is cancelled; the
	// unlock function is safe to call either way.
	Lock(ctx context.Context) func()
}

type lock struct {
	mu   sync.Mutex
	wait time.Duration
	next time.Time
}

func New(wait time.Duration) Lock {
	return &lock{wait: wait}
}

func (l *lock) Lock(ctx context.Context) func() {
	l.mu.Lock()
	d := time.Until(l.next)
	if d > 0 {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
		case <-t.C:
		}
	}
	return func() {
		l.next = time.Now().Add(l.wait)
		l.mu.Unlock()
	}
}
