// Package producer is the client for the Producer model, which exposes
// every transformation through a single create endpoint selected by an
// operation field.
package producer

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

	getPath = "/producer/v1/music/get"
)

// Operation is the transformation applied by a create request.
type Operation string

const (
	OpCreate           Operation = "create"
	OpExtend           Operation = "extend"
	OpCover            Operation = "cover"
	OpReplace          Operation = "replace"
	OpSwapVocal        Operation = "swap_vocal"
	OpSwapInstrumental Operation = "swap_instrumental"
	OpVariation        Operation = "variation"
)

var operations = map[Operation]struct{}{
	OpCreate:           {},
	OpExtend:           {},
	OpCover:            {},
	OpReplace:          {},
	OpSwapVocal:        {},
	OpSwapInstrumental: {},
	OpVariation:        {},
}

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

type CreateRequest struct {
	Operation   Operation `json:"operation"`
	Prompt      string    `json:"prompt,omitempty"`
	Lyrics      string    `json:"lyrics,omitempty"`
	AudioID     string    `json:"audio_id,omitempty"`
	AudioURL    string    `json:"audio_url,omitempty"`
	Style       string    `json:"style,omitempty"`
	Duration    int       `json:"duration,omitempty"`
	ContinueAt  float64   `json:"continue_at,omitempty"`
	WebhookURL  string    `json:"webhook_url,omitempty"`
	Temperature float64   `json:"temperature,omitempty"`
}

// Create launches a generation task. Operations other than plain create
// need source audio, either an uploaded audio id or a remote url.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*aimusicapi.Task, error) {
	if _, ok := operations[req.Operation]; !ok {
		return nil, apierr.New(apierr.InvalidParameter, "producer: unknown operation: %s", req.Operation)
	}
	if req.Operation != OpCreate && req.AudioID == "" && req.AudioURL == "" {
		return nil, apierr.New(apierr.InvalidParameter, "producer: operation %s needs source audio", req.Operation)
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/producer/v1/music/create", req, &task); err != nil {
		return nil, fmt.Errorf("producer: couldn't create music: %w", err)
	}
	return &task, nil
}

type UploadResponse struct {
	AudioID  string `json:"audio_id"`
	AudioURL string `json:"audio_url"`
	Duration int    `json:"duration,omitempty"`
}

// Upload sends a local audio file to use as source for transformations.
func (c *Client) Upload(ctx context.Context, path string) (*UploadResponse, error) {
	var out UploadResponse
	if err := c.api.Upload(ctx, "/producer/v1/music/upload", path, nil, &out); err != nil {
		return nil, fmt.Errorf("producer: couldn't upload music: %w", err)
	}
	return &out, nil
}

type DownloadResponse struct {
	ClipID      string `json:"clip_id"`
	DownloadURL string `json:"download_url"`
	Format      string `json:"format,omitempty"`
}

// Download returns a direct download url for a generated clip.
func (c *Client) Download(ctx context.Context, clipID string) (*DownloadResponse, error) {
	var out DownloadResponse
	if err := c.api.Post(ctx, "/producer/v1/music/download", map[string]string{"clip_id": clipID}, &out); err != nil {
		return nil, fmt.Errorf("producer: couldn't get download url: %w", err)
	}
	return &out, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	params := url.Values{}
	params.Set("task_id", taskID)
	var task aimusicapi.Task
	if err := c.api.Get(ctx, getPath, params, &task); err != nil {
		return nil, fmt.Errorf("producer: couldn't get task: %w", err)
	}
	return &task, nil
}

// WaitForCompletion polls the task until it is terminal or the
// configured poll timeout elapses.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return c.api.PollTask(ctx, getPath, taskID, c.interval, c.timeout)
}
