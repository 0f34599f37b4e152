// Package suno is the client for the Suno V4 model, the most complete
// backend: vocals, instrumentals, stems separation, voice personas and
// format conversions.
package suno

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
	"github.com/igolaizola/aimusic/pkg/apierr"
	"github.com/igolaizola/aimusic/pkg/retry"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultPollTimeout  = 5 * time.Minute

	getPath = "/suno/v1/music/get"
)

// VoiceGender selects the vocal type for generated songs.
type VoiceGender string

const (
	VoiceMale   VoiceGender = "male"
	VoiceFemale VoiceGender = "female"
	VoiceRandom VoiceGender = "random"
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

	// PollInterval and PollTimeout bound WaitForCompletion.
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
	Description string      `json:"description"`
	Duration    int         `json:"duration,omitempty"`
	VoiceGender VoiceGender `json:"voice_gender,omitempty"`
	AutoLyrics  bool        `json:"auto_lyrics,omitempty"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
}

// Create generates music from a description. The returned task is not
// yet terminal, use WaitForCompletion or a webhook to obtain the result.
func (c *Client) Create(ctx context.Context, req *CreateRequest) (*aimusicapi.Task, error) {
	if req.Description == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: description is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/create", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't create music: %w", err)
	}
	return &task, nil
}

type CreateWithLyricsRequest struct {
	Lyrics      string      `json:"lyrics"`
	Style       string      `json:"style"`
	Title       string      `json:"title,omitempty"`
	VoiceGender VoiceGender `json:"voice_gender,omitempty"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
}

// CreateWithLyrics generates music from custom lyrics and a style.
func (c *Client) CreateWithLyrics(ctx context.Context, req *CreateWithLyricsRequest) (*aimusicapi.Task, error) {
	if req.Lyrics == "" || req.Style == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: lyrics and style are required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/create-with-lyrics", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't create music with lyrics: %w", err)
	}
	return &task, nil
}

type DescribeRequest struct {
	Description string      `json:"description"`
	VoiceGender VoiceGender `json:"voice_gender,omitempty"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
}

const maxDescribeLength = 200

// Describe generates music from a short free-form description.
func (c *Client) Describe(ctx context.Context, req *DescribeRequest) (*aimusicapi.Task, error) {
	if len(req.Description) > maxDescribeLength {
		return nil, apierr.New(apierr.InvalidParameter, "suno: description over %d characters", maxDescribeLength)
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/describe", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't describe music: %w", err)
	}
	return &task, nil
}

type ExtendRequest struct {
	AudioID    string `json:"audio_id"`
	Duration   int    `json:"duration,omitempty"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

// Extend continues an existing clip.
func (c *Client) Extend(ctx context.Context, req *ExtendRequest) (*aimusicapi.Task, error) {
	if req.AudioID == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: audio id is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/extend", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't extend music: %w", err)
	}
	return &task, nil
}

type ConcatRequest struct {
	ClipIDs    []string `json:"clip_ids"`
	WebhookURL string   `json:"webhook_url,omitempty"`
}

// Concat joins 2 to 10 clips into one track.
func (c *Client) Concat(ctx context.Context, req *ConcatRequest) (*aimusicapi.Task, error) {
	if len(req.ClipIDs) < 2 || len(req.ClipIDs) > 10 {
		return nil, apierr.New(apierr.InvalidParameter, "suno: concat needs 2 to 10 clips, got %d", len(req.ClipIDs))
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/concat", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't concat music: %w", err)
	}
	return &task, nil
}

type CoverRequest struct {
	AudioURL    string      `json:"audio_url"`
	Style       string      `json:"style,omitempty"`
	VoiceGender VoiceGender `json:"voice_gender,omitempty"`
	WebhookURL  string      `json:"webhook_url,omitempty"`
}

// Cover creates a cover version of an existing song.
func (c *Client) Cover(ctx context.Context, req *CoverRequest) (*aimusicapi.Task, error) {
	if req.AudioURL == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: audio url is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/music/cover", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't cover music: %w", err)
	}
	return &task, nil
}

type BasicStems struct {
	SongID          string `json:"song_id"`
	VocalsURL       string `json:"vocals_url"`
	InstrumentalURL string `json:"instrumental_url"`
}

// StemsBasic separates a song into vocals and instrumental.
func (c *Client) StemsBasic(ctx context.Context, songID string) (*BasicStems, error) {
	var out BasicStems
	if err := c.api.Post(ctx, "/suno/v1/stems/basic", map[string]string{"song_id": songID}, &out); err != nil {
		return nil, fmt.Errorf("suno: couldn't extract basic stems: %w", err)
	}
	return &out, nil
}

type FullStems struct {
	SongID           string `json:"song_id"`
	LeadVocalsURL    string `json:"lead_vocals_url"`
	BackingVocalsURL string `json:"backing_vocals_url"`
	DrumsURL         string `json:"drums_url"`
	BassURL          string `json:"bass_url"`
	PianoURL         string `json:"piano_url"`
	GuitarURL        string `json:"guitar_url"`
	StringsURL       string `json:"strings_url"`
	SynthURL         string `json:"synth_url"`
	BrassURL         string `json:"brass_url"`
	WoodwindsURL     string `json:"woodwinds_url"`
	FxURL            string `json:"fx_url"`
	OtherURL         string `json:"other_url"`
}

// StemsFull separates a song into twelve instrument tracks.
func (c *Client) StemsFull(ctx context.Context, songID string) (*FullStems, error) {
	var out FullStems
	if err := c.api.Post(ctx, "/suno/v1/stems/full", map[string]string{"song_id": songID}, &out); err != nil {
		return nil, fmt.Errorf("suno: couldn't extract full stems: %w", err)
	}
	return &out, nil
}

// Persona is a trained voice model.
type Persona struct {
	PersonaID        string `json:"persona_id"`
	PersonaName      string `json:"persona_name"`
	Status           string `json:"status"`
	TrainingProgress int    `json:"training_progress,omitempty"`
}

type PersonaRequest struct {
	AudioURL    string `json:"audio_url"`
	PersonaName string `json:"persona_name"`
	Description string `json:"description,omitempty"`
}

// CreatePersona trains a voice persona from reference audio and waits
// until training finishes.
func (c *Client) CreatePersona(ctx context.Context, req *PersonaRequest) (*Persona, error) {
	if req.AudioURL == "" || req.PersonaName == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: audio url and persona name are required")
	}
	var persona Persona
	if err := c.api.Post(ctx, "/suno/v1/persona/create", req, &persona); err != nil {
		return nil, fmt.Errorf("suno: couldn't create persona: %w", err)
	}
	if persona.Status == "ready" {
		return &persona, nil
	}
	return c.waitPersona(ctx, persona.PersonaID)
}

// GetPersona returns the current training state of a persona.
func (c *Client) GetPersona(ctx context.Context, personaID string) (*Persona, error) {
	var persona Persona
	path := fmt.Sprintf("/suno/v1/persona/%s/status", url.PathEscape(personaID))
	if err := c.api.Get(ctx, path, nil, &persona); err != nil {
		return nil, fmt.Errorf("suno: couldn't get persona status: %w", err)
	}
	return &persona, nil
}

func (c *Client) waitPersona(ctx context.Context, personaID string) (*Persona, error) {
	start := time.Now()
	deadline := start.Add(c.timeout)
	for {
		if time.Now().After(deadline) {
			err := apierr.New(apierr.Timeout, "suno: persona %s training didn't finish within %s", personaID, c.timeout)
			err.Elapsed = time.Since(start)
			return nil, err
		}
		persona, err := c.GetPersona(ctx, personaID)
		if err != nil {
			return nil, err
		}
		switch persona.Status {
		case "ready":
			return persona, nil
		case "failed":
			return nil, apierr.New(apierr.TaskFailed, "suno: persona training failed: %s", personaID)
		}
		t := time.NewTimer(c.interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

type PersonaMusicRequest struct {
	PersonaID   string `json:"persona_id"`
	Description string `json:"description,omitempty"`
	Lyrics      string `json:"lyrics,omitempty"`
	Style       string `json:"style,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	WebhookURL  string `json:"webhook_url,omitempty"`
}

// CreatePersonaMusic generates music sung by a trained persona.
func (c *Client) CreatePersonaMusic(ctx context.Context, req *PersonaMusicRequest) (*aimusicapi.Task, error) {
	if req.PersonaID == "" {
		return nil, apierr.New(apierr.InvalidParameter, "suno: persona id is required")
	}
	var task aimusicapi.Task
	if err := c.api.Post(ctx, "/suno/v1/persona/music/create", req, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't create persona music: %w", err)
	}
	return &task, nil
}

type UploadResponse struct {
	AudioID  string `json:"audio_id"`
	AudioURL string `json:"audio_url"`
}

// Upload sends a local audio file for later processing.
func (c *Client) Upload(ctx context.Context, path, title, description string) (*UploadResponse, error) {
	fields := map[string]string{}
	if title != "" {
		fields["title"] = title
	}
	if description != "" {
		fields["description"] = description
	}
	var out UploadResponse
	if err := c.api.Upload(ctx, "/suno/v1/music/upload", path, fields, &out); err != nil {
		return nil, fmt.Errorf("suno: couldn't upload music: %w", err)
	}
	return &out, nil
}

type WAVResponse struct {
	SongID string `json:"song_id"`
	WAVURL string `json:"wav_url"`
}

// WAV converts a song to high quality WAV.
func (c *Client) WAV(ctx context.Context, songID string) (*WAVResponse, error) {
	var out WAVResponse
	if err := c.api.Post(ctx, "/suno/v1/music/wav", map[string]string{"song_id": songID}, &out); err != nil {
		return nil, fmt.Errorf("suno: couldn't convert to wav: %w", err)
	}
	return &out, nil
}

type MIDIResponse struct {
	ClipID  string `json:"clip_id"`
	MIDIURL string `json:"midi_url"`
}

// MIDI extracts MIDI data from a clip.
func (c *Client) MIDI(ctx context.Context, clipID string) (*MIDIResponse, error) {
	var out MIDIResponse
	if err := c.api.Post(ctx, "/suno/v1/music/midi", map[string]string{"clip_id": clipID}, &out); err != nil {
		return nil, fmt.Errorf("suno: couldn't extract midi: %w", err)
	}
	return &out, nil
}

// GetTask returns the current state of a task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	params := url.Values{}
	params.Set("task_id", taskID)
	var task aimusicapi.Task
	if err := c.api.Get(ctx, getPath, params, &task); err != nil {
		return nil, fmt.Errorf("suno: couldn't get task: %w", err)
	}
	return &task, nil
}

// WaitForCompletion polls the task until it is terminal or the
// configured poll timeout elapses.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return c.api.PollTask(ctx, getPath, taskID, c.interval, c.timeout)
}

// ParseClipID extracts a clip ID from a share URL, or returns the input
// unchanged when it is already an ID.
func ParseClipID(identifier string) string {
	if !strings.Contains(identifier, "://") {
		return identifier
	}
	parts := strings.Split(identifier, "/")
	for i, part := range parts {
		if part == "clip" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return identifier
}
