// Package nuro is the client for the Nuro 1.5 model, a lightweight
// backend with separate vocal and instrumental endpoints.
package nuro

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
	"github.com/igolaizola/aimusic/pkg/apierr"
	"github.com/igolaizola/aimusic/pkg/retry"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute

	getPath = "/nuro/v1/music/get"
)

type Client struct {
	api      *aimusicapi.Client
	interval time.Duration
	timeout  time.Duration
}

type Config struct {
	APIKey  string
	BaseURL string
	Wait    time.Duration
	Debug   bool
	Client  *http.Client
	Retry   *retry.Policy

	PollInterval time.Duration
	PollTimeout  time.Duration
}

func New(cfg *Config) *Client {
	interval := cfg.PollInterval
	if interval == 0 {
		interval = defaultPollInterval
	}
	timeout := cfg.PollTimeout
	if timeout == 0 {
		timeout = defaultPollTimeout
	}
	return &Client{
		api: aimusicapi.New(&aimusicapi.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Wait:    cfg.Wait,
			Debug:   cfg.Debug,
			Client:  cfg.Client,
			Retry:   cfg.Retry,
		}),
		interval: interval,
		timeout:  timeout,
	}
}

type VocalRequest struct {
	Prompt     string `json:"prompt"`
	Lyrics     string `json:"lyrics,omitempty"`
	Duration   int    `json:"duration,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// CreateVocal generates a song with vocals.
func (c *Client) CreateVocal(ctx context.Context, req *VocalRequest) (*aimusicapi.Task, error) {
	if req.Prompt == "" {
		return nil, apierr.New(apierr.InvalidParameter, "nuro: prompt is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/nuro/v1/music/create/vocal", req, &task); err != nil {
		return nil, fmt.Errorf("nuro: couldn't create vocal music: %w", err)
	}
	return &task, nil
}

type InstrumentalRequest struct {
	Prompt     string `json:"prompt"`
	Duration   int    `json:"duration,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// CreateInstrumental generates an instrumental track.
func (c *Client) CreateInstrumental(ctx context.Context, req *InstrumentalRequest) (*aimusicapi.Task, error) {
	if req.Prompt == "" {
		return nil, apierr.New(apierr.InvalidParameter, "nuro: prompt is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/nuro/v1/music/create/instrumental", req, &task); err != nil {
		return nil, fmt.Errorf("nuro: couldn't create instrumental music: %w", err)
	}
	return &task, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	params := url.Values{}
	params.Set("task_id", taskID)
	var task aimusicapi.Task
	if err := c.api.Get(ctx, getPath, params, &task); err != nil {
		return nil, fmt.Errorf("nuro: couldn't get task: %w", err)
	}
	return &task, nil
}

// WaitForCompletion polls the task until it is terminal or the
// configured poll timeout elapses.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return c.api.PollTask(ctx, getPath, taskID, c.interval, c.timeout)
}
