package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestLockSpacing(t *testing.T) {
	l := New(50 * time.Millisecond)
	ctx := context.Background()

	unlock := l.Lock(ctx)
	unlock()
	start := time.Now()
	unlock = l.Lock(ctx)
	unlock()
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("second lock acquired after %v; want >= 50ms", elapsed)
	}
}

func TestLockCancelled(t *testing.T) {
	l := New(time.Hour)
	unlock := l.Lock(context.Background())
	unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	unlock = l.Lock(ctx)
	unlock()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("cancelled lock took %v; want prompt return", elapsed)
	}
}
