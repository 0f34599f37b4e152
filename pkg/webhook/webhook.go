// Package webhook validates and parses the notifications the AI Music
// API pushes when a task finishes, as an alternative to polling.
package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
	"github.com/igolaizola/aimusic/pkg/apierr"
)

// Header is the request header carrying the payload signature.
const Header = "X-Webhook-Signature"

// Event types sent by the API.
const (
	EventTaskCompleted = "task.completed"
	EventTaskFailed    = "task.failed"
)

// Event is the parsed, verified form of an inbound notification. It is
// only ever constructed after signature verification succeeds.
type Event struct {
	EventType string            `json:"event_type"`
	TaskID    string            `json:"task_id"`
	Status    aimusicapi.Status `json:"status"`
	Model     string            `json:"model,omitempty"`
	ClipID    string            `json:"clip_id,omitempty"`
	AudioURL  string            `json:"audio_url,omitempty"`
	VideoURL  string            `json:"video_url,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Task converts the event into the same terminal representation the
// poller produces, so callers can treat both completion paths
// interchangeably.
func (e *Event) Task() *aimusicapi.Task {
	task := &aimusicapi.Task{
		TaskID: e.TaskID,
		Status: e.Status,
	}
	if !e.Timestamp.IsZero() {
		ts := e.Timestamp
		task.CompletedAt = &ts
	}
	switch e.Status {
	case aimusicapi.StatusCompleted:
		task.Clips = []aimusicapi.Clip{{
			ID:       e.ClipID,
			AudioURL: e.AudioURL,
			VideoURL: e.VideoURL,
			Metadata: aimusicapi.Metadata{Model: e.Model},
			Status:   e.Status,
		}}
	case aimusicapi.StatusFailed, aimusicapi.StatusCancelled:
		task.Error = e.Error
	}
	return task
}

// Sign computes the hex HMAC-SHA256 of payload under secret. It is the
// signature the API puts in the X-Webhook-Signature header.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyAndParse checks the payload signature and, only on a match,
// parses the payload into an Event. Any mismatch or structural problem
// returns a webhook_verification error; there is no partial-success
// path.
func VerifyAndParse(payload []byte, signature, secret string) (*Event, error) {
	if secret == "" {
		return nil, apierr.New(apierr.WebhookVerification, "webhook secret not configured")
	}
	want := Sign(payload, secret)
	// hmac.Equal is constant time, so the comparison doesn't leak how
	// many leading bytes matched.
	if !hmac.Equal([]byte(want), []byte(signature)) {
		return nil, apierr.New(apierr.WebhookVerification, "invalid webhook signature")
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		// A verified payload can still be malformed; authenticity
		// doesn't imply well-formedness.
		return nil, apierr.Wrap(apierr.WebhookVerification, err, "couldn't parse webhook payload")
	}
	if event.TaskID == "" || event.EventType == "" {
		return nil, apierr.New(apierr.WebhookVerification, "webhook payload missing task_id or event_type")
	}
	return &event, nil
}

// HandlerFunc processes one verified event.
type HandlerFunc func(context.Context, *Event) error

// Handler verifies inbound notifications and dispatches them to
// callbacks registered per event type.
type Handler struct {
	secret string
	debug  bool

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

func NewHandler(secret string, debug bool) *Handler {
	return &Handler{
		secret:   secret,
		debug:    debug,
		handlers: map[string][]HandlerFunc{},
	}
}

// On registers fn for events of the given type.
func (h *Handler) On(eventType string, fn HandlerFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[eventType] = append(h.handlers[eventType], fn)
}

// Handle verifies, parses and dispatches one raw notification. The
// returned event is nil when verification fails.
func (h *Handler) Handle(ctx context.Context, payload []byte, signature string) (*Event, error) {
	event, err := VerifyAndParse(payload, signature, h.secret)
	if err != nil {
		return nil, err
	}
	h.Dispatch(ctx, event)
	return event, nil
}

// Dispatch runs the callbacks registered for the event's type. Callback
// errors are logged, not propagated: one failing consumer must not hide
// the event from the others.
func (h *Handler) Dispatch(ctx context.Context, event *Event) {
	h.mu.RLock()
	fns := h.handlers[event.EventType]
	h.mu.RUnlock()
	if len(fns) == 0 {
		h.log("webhook: no handlers for event %s", event.EventType)
		return
	}
	for _, fn := range fns {
		if err := fn(ctx, event); err != nil {
			log.Printf("webhook: handler error for %s: %v\n", event.EventType, err)
		}
	}
}

func (h *Handler) log(format string, args ...interface{}) {
	if h.debug {
		format += "\n"
		log.Printf(format, args...)
	}
}
