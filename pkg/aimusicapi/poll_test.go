package aimusicapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
)

// scriptedStatuses serves one status from script per call, holding the
// last one afterwards.
func scriptedStatuses(calls *int32, script []string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(calls, 1))
		if n > len(script) {
			n = len(script)
		}
		status := script[n-1]
		switch status {
		case "completed":
			fmt.Fprintf(w, `{"task_id": %q, "status": "completed", "clips": [{"clip_id": "clip_1", "audio_url": "https://cdn.example.com/clip_1.mp3"}]}`, r.URL.Query().Get("task_id"))
		case "failed":
			fmt.Fprintf(w, `{"task_id": %q, "status": "failed", "error": "generation error"}`, r.URL.Query().Get("task_id"))
		default:
			fmt.Fprintf(w, `{"task_id": %q, "status": %q}`, r.URL.Query().Get("task_id"), status)
		}
	})
}

func TestPollTaskCompleted(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, scriptedStatuses(&calls, []string{"pending", "pending", "processing", "completed"}))

	task, err := client.PollTask(context.Background(), "/suno/v1/music/get", "task_123", 10*time.Millisecond, time.Minute)
	if err != nil {
		t.Fatalf("PollTask() err = %v", err)
	}
	if task.Status != StatusCompleted {
		t.Fatalf("status = %v; want completed", task.Status)
	}
	if task.TaskID != "task_123" {
		t.Fatalf("task id = %q; want task_123", task.TaskID)
	}
	if len(task.Clips) != 1 || task.Clips[0].AudioURL == "" {
		t.Fatalf("clips = %+v; want one clip with audio url", task.Clips)
	}
	// Once a terminal status is observed no further query is issued.
	if n := atomic.LoadInt32(&calls); n != 4 {
		t.Fatalf("server called %d times; want 4", n)
	}
}

func TestPollTaskFailed(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, scriptedStatuses(&calls, []string{"pending", "failed"}))

	_, err := client.PollTask(context.Background(), "/suno/v1/music/get", "task_456", 10*time.Millisecond, time.Minute)
	if kind := apierr.KindOf(err); kind != apierr.TaskFailed {
		t.Fatalf("kind = %v; want %v", kind, apierr.TaskFailed)
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatal("error is not *apierr.Error")
	}
	if apiErr.TaskID != "task_456" {
		t.Fatalf("task id = %q; want task_456", apiErr.TaskID)
	}
	if apiErr.Message != "generation error" {
		t.Fatalf("message = %q; want server error detail", apiErr.Message)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("server called %d times; want 2", n)
	}
}

func TestPollTaskTimeout(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, scriptedStatuses(&calls, []string{"pending"}))

	start := time.Now()
	_, err := client.PollTask(context.Background(), "/suno/v1/music/get", "task_789", 20*time.Millisecond, 50*time.Millisecond)
	if kind := apierr.KindOf(err); kind != apierr.Timeout {
		t.Fatalf("kind = %v; want %v", kind, apierr.Timeout)
	}
	var apiErr *apierr.Error
	if !errors.As(err, &apiErr) {
		t.Fatal("error is not *apierr.Error")
	}
	// The error carries the elapsed poll duration, not a single-call one.
	if apiErr.Elapsed < 50*time.Millisecond {
		t.Fatalf("elapsed = %v; want >= 50ms", apiErr.Elapsed)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("returned after %v; want >= deadline", elapsed)
	}
}

func TestPollTaskCancelled(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, scriptedStatuses(&calls, []string{"pending"}))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := client.PollTask(ctx, "/suno/v1/music/get", "task_ctx", time.Minute, time.Hour)
	if err == nil {
		t.Fatal("expected error after cancellation")
	}
	if ctx.Err() == nil {
		t.Fatal("context not cancelled")
	}
}
