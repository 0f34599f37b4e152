package aimusicapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
	"github.com/igolaizola/aimusic/pkg/ratelimit"
	"github.com/igolaizola/aimusic/pkg/retry"
)

const defaultBaseURL = "https://api.aimusicapi.ai"

// Client is the authenticated HTTP transport shared by all model
// clients. It applies the retry policy to transient failures and maps
// every non-success outcome to an *apierr.Error; raw transport errors
// never escape it.
type Client struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	debug     bool
	ratelimit ratelimit.Lock
	retry     retry.Policy
}

type Config struct {
	// APIKey is attached as a bearer token to every call. It is never
	// logged or included in error messages.
	APIKey string
	// BaseURL defaults to the public endpoint.
	BaseURL string
	// Wait is the minimum spacing between outbound calls.
	Wait   time.Duration
	Debug  bool
	Client *http.Client
	// Retry overrides the default retry policy.
	Retry *retry.Policy
}

func New(cfg *Config) *Client {
	wait := cfg.Wait
	if wait == 0 {
		wait = 1 * time.Second
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	policy := retry.Default()
	if cfg.Retry != nil {
		policy = *cfg.Retry
	}
	return &Client{
		client:    client,
		baseURL:   baseURL,
		apiKey:    cfg.APIKey,
		debug:     cfg.Debug,
		ratelimit: ratelimit.New(wait),
		retry:     policy,
	}
}

// Get performs a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	if len(params) > 0 {
		path = fmt.Sprintf("%s?%s", path, params.Encode())
	}
	_, err := c.do(ctx, http.MethodGet, path, nil, out)
	return err
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	_, err := c.do(ctx, http.MethodPost, path, in, out)
	return err
}

// GetCredits returns the account balance.
func (c *Client) GetCredits(ctx context.Context) (*Credits, error) {
	var credits Credits
	if err := c.Get(ctx, "/api/v1/credits", nil, &credits); err != nil {
		return nil, fmt.Errorf("aimusic: couldn't get credits: %w", err)
	}
	return &credits, nil
}

type lyricsRequest struct {
	Prompt        string `json:"prompt"`
	NumVariations int    `json:"num_variations"`
}

type lyricsResponse struct {
	Lyrics []string `json:"lyrics"`
}

// GenerateLyrics generates song lyrics from a prompt.
func (c *Client) GenerateLyrics(ctx context.Context, prompt string, variations int) ([]string, error) {
	if variations <= 0 {
		variations = 1
	}
	req := &lyricsRequest{Prompt: prompt, NumVariations: variations}
	var resp lyricsResponse
	if err := c.Post(ctx, "/api/v1/lyrics/generate", req, &resp); err != nil {
		return nil, fmt.Errorf("aimusic: couldn't generate lyrics: %w", err)
	}
	return resp.Lyrics, nil
}

func (c *Client) log(format string, args ...interface{}) {
	if c.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	attempt := 0
	for {
		b, err := c.doAttempt(ctx, method, path, in, out)
		if err == nil {
			return b, nil
		}
		var apiErr *apierr.Error
		if !errors.As(err, &apiErr) {
			return nil, err
		}
		d := c.retry.Decide(attempt, apiErr.Kind, apiErr.RetryAfter)
		if !d.Retry {
			return nil, err
		}
		attempt++
		c.log("aimusic: retrying in %s: %v", d.Delay, err)
		t := time.NewTimer(d.Delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}

func (c *Client) doAttempt(ctx context.Context, method, path string, in, out any) ([]byte, error) {
	var body []byte
	var reqBody io.Reader
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("aimusic: couldn't marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(body)
	}
	logBody := string(body)
	if len(logBody) > 100 {
		logBody = logBody[:100] + "..."
	}
	c.log("aimusic: do %s %s %s", method, path, logBody)

	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, fmt.Errorf("aimusic: couldn't create request: %w", err)
	}
	c.addHeaders(req)
	if in != nil {
		req.Header.Set("content-type", "application/json")
	}
	return c.roundTrip(req, method, path, out)
}

// Upload performs a multipart POST with a file field plus optional
// plain form fields. Used by the file-upload endpoints.
func (c *Client) Upload(ctx context.Context, path, filePath string, fields map[string]string, out any) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("aimusic: couldn't open file %q: %w", filePath, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("aimusic: couldn't create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("aimusic: couldn't read file %q: %w", filePath, err)
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return fmt.Errorf("aimusic: couldn't write field %q: %w", k, err)
		}
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("aimusic: couldn't close multipart writer: %w", err)
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimPrefix(path, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, &buf)
	if err != nil {
		return fmt.Errorf("aimusic: couldn't create request: %w", err)
	}
	c.addHeaders(req)
	req.Header.Set("content-type", w.FormDataContentType())

	// Uploads are not replayed: the body is consumed on the first
	// attempt, so any failure surfaces directly.
	_, err = c.roundTrip(req, http.MethodPost, path, out)
	return err
}

func (c *Client) roundTrip(req *http.Request, method, path string, out any) ([]byte, error) {
	unlock := c.ratelimit.Lock(req.Context())
	defer unlock()

	resp, err := c.client.Do(req)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, apierr.Wrap(apierr.Timeout, err, "request timeout: %s %s", method, path)
		}
		return nil, apierr.Wrap(apierr.Transport, err, "couldn't %s %s", method, path)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apierr.Wrap(apierr.Transport, err, "couldn't read response body: %s %s", method, path)
	}
	c.log("aimusic: response %s %s %d %s", method, path, resp.StatusCode, string(respBody))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, toStatusError(resp, respBody)
	}
	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			// A 2xx with a body that isn't the expected JSON is
			// likely a proxy error page, so it stays retryable.
			return nil, apierr.Wrap(apierr.Transport, err, "couldn't unmarshal response body (%T)", out)
		}
	}
	return respBody, nil
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	}
	req.Header.Set("user-agent", "aimusic-go/0.1.0")
}

// errorResponse is the API's error body shape.
type errorResponse struct {
	Error     string `json:"error"`
	ErrorCode string `json:"error_code"`
	RequestID string `json:"request_id"`
}

func toStatusError(resp *http.Response, body []byte) *apierr.Error {
	var message, code string
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		message = er.Error
		code = er.ErrorCode
	} else {
		message = strings.TrimSpace(string(body))
		if len(message) > 100 {
			message = message[:100] + "..."
		}
	}
	return apierr.FromStatus(resp.StatusCode, message, code, parseRetryAfter(resp.Header.Get("Retry-After")))
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	// HTTP-date form.
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}
