package producer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/igolaizola/aimusic/pkg/apierr"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(&Config{
		APIKey:       "test-key",
		BaseURL:      server.URL,
		Wait:         time.Millisecond,
		PollInterval: 10 * time.Millisecond,
		PollTimeout:  time.Second,
	})
}

func TestCreateOperations(t *testing.T) {
	var gotBody CreateRequest
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/producer/v1/music/create" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("couldn't decode request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"task_id":"task_789","status":"pending"}`))
	}))
	tests := []struct {
		name    string
		req     *CreateRequest
		wantErr bool
	}{
		{
			name: "plain create",
			req:  &CreateRequest{Operation: OpCreate, Prompt: "lofi beats"},
		},
		{
			name: "cover with audio url",
			req:  &CreateRequest{Operation: OpCover, AudioURL: "https://example.com/a.mp3"},
		},
		{
			name: "swap vocal with audio id",
			req:  &CreateRequest{Operation: OpSwapVocal, AudioID: "audio_1"},
		},
		{
			name:    "extend without source audio",
			req:     &CreateRequest{Operation: OpExtend},
			wantErr: true,
		},
		{
			name:    "unknown operation",
			req:     &CreateRequest{Operation: "remix"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task, err := client.Create(context.Background(), tt.req)
			if tt.wantErr {
				if !apierr.Is(err, apierr.InvalidParameter) {
					t.Errorf("expected invalid parameter error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("couldn't create music: %v", err)
			}
			if task.TaskID != "task_789" {
				t.Errorf("invalid task id: %s", task.TaskID)
			}
			if gotBody.Operation != tt.req.Operation {
				t.Errorf("invalid operation: %s", gotBody.Operation)
			}
		})
	}
}

func TestDownload(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/producer/v1/music/download" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("couldn't decode request body: %v", err)
		}
		if body["clip_id"] != "clip_1" {
			t.Errorf("invalid clip id: %s", body["clip_id"])
		}
		_, _ = w.Write([]byte(`{"clip_id":"clip_1","download_url":"https://cdn.example.com/clip_1.mp3","format":"mp3"}`))
	}))
	out, err := client.Download(context.Background(), "clip_1")
	if err != nil {
		t.Fatalf("couldn't get download url: %v", err)
	}
	if out.DownloadURL != "https://cdn.example.com/clip_1.mp3" {
		t.Errorf("invalid download url: %s", out.DownloadURL)
	}
}

func TestGetTask(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/producer/v1/music/get" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("task_id"); got != "task_789" {
			t.Errorf("invalid task id: %s", got)
		}
		_, _ = w.Write([]byte(`{"task_id":"task_789","status":"processing"}`))
	}))
	task, err := client.GetTask(context.Background(), "task_789")
	if err != nil {
		t.Fatalf("couldn't get task: %v", err)
	}
	if task.Status != "processing" {
		t.Errorf("invalid status: %s", task.Status)
	}
}
