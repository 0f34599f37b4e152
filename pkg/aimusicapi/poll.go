package aimusicapi

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute
)

// PollTask queries the task status endpoint at getPath until the task
// reaches a terminal state or the session deadline elapses. Transient
// per-query failures are absorbed by the transport's own retry loop; the
// deadline here bounds the whole session independently.
//
// Each call owns its own session state. Concurrent calls for the same
// task issue independent queries.
func (c *Client) PollTask(ctx context.Context, getPath, taskID string, interval, timeout time.Duration) (*Task, error) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if timeout <= 0 {
		timeout = defaultPollTimeout
	}
	start := time.Now()
	deadline := start.Add(timeout)

	params := url.Values{}
	params.Set("task_id", taskID)

	for attempts := 0; ; attempts++ {
		// The deadline is checked before every query, so a terminal
		// status is never requested past it.
		if time.Now().After(deadline) {
			err := apierr.New(apierr.Timeout, "task %s did not complete within %s", taskID, timeout)
			err.TaskID = taskID
			err.Elapsed = time.Since(start)
			return nil, err
		}

		var task Task
		if err := c.Get(ctx, getPath, params, &task); err != nil {
			return nil, fmt.Errorf("aimusic: couldn't get task %s: %w", taskID, err)
		}
		if task.TaskID == "" {
			task.TaskID = taskID
		}

		switch task.Status {
		case StatusCompleted:
			return &task, nil
		case StatusFailed, StatusCancelled:
			msg := task.Error
			if msg == "" {
				msg = "task failed"
				if task.Status == StatusCancelled {
					msg = "task cancelled"
				}
			}
			err := apierr.New(apierr.TaskFailed, "%s", msg)
			err.TaskID = taskID
			return nil, err
		}

		c.log("aimusic: task %s status %s (attempt %d)", taskID, task.Status, attempts+1)
		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
