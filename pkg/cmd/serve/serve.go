package serve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/igolaizola/aimusic/pkg/storage"
	"github.com/igolaizola/aimusic/pkg/webhook"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Addr          string
	WebhookSecret string
	Credentials   map[string]string
}

// Serve starts the webhook receiver. Incoming events are verified
// against the shared secret and applied to the local task records.
func Serve(ctx context.Context, cfg *Config) error {
	log.Println("serve: server started")
	defer log.Println("serve: server ended")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.WebhookSecret == "" {
		return fmt.Errorf("serve: webhook secret is empty")
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("serve: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("serve: couldn't start orm store: %w", err)
	}

	handler := webhook.NewHandler(cfg.WebhookSecret, cfg.Debug)
	handler.On(webhook.EventTaskCompleted, func(ctx context.Context, event *webhook.Event) error {
		return apply(ctx, store, event)
	})
	handler.On(webhook.EventTaskFailed, func(ctx context.Context, event *webhook.Event) error {
		return apply(ctx, store, event)
	})

	// Create router
	mux := chi.NewRouter()

	// Add middleware
	mux.Use(middleware.RealIP)
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.Timeout(60 * time.Second))
	if cfg.Debug {
		mux.Use(middleware.Logger)
	}

	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Protected endpoints other than the webhook itself
	mux.Group(func(r chi.Router) {
		if len(cfg.Credentials) > 0 {
			r.Use(middleware.BasicAuth("private", cfg.Credentials))
		}
		r.Get("/generations", func(w http.ResponseWriter, r *http.Request) {
			gens, err := store.ListGenerations(r.Context(), 1, 100, "created_at desc")
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "text/plain")
			for _, g := range gens {
				fmt.Fprintf(w, "%s %s %s %s\n", g.TaskID, g.Model, g.Status, g.Audio)
			}
		})
	})

	mux.Post("/webhooks/aimusic", func(w http.ResponseWriter, r *http.Request) {
		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			http.Error(w, "couldn't read body", http.StatusBadRequest)
			return
		}
		signature := r.Header.Get(webhook.Header)
		if _, err := handler.Handle(r.Context(), payload, signature); err != nil {
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	// Create server
	split := strings.Split(cfg.Addr, ":")
	if len(split) != 2 {
		return fmt.Errorf("serve: invalid address: %s", cfg.Addr)
	}
	host := split[0]
	port, err := strconv.Atoi(split[1])
	if err != nil {
		return fmt.Errorf("serve: invalid port: %s", split[1])
	}
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: mux,
	}
	go func() {
		note := fmt.Sprintf("http://%s:%d", host, port)
		if host == "" {
			note = fmt.Sprintf("all interfaces http://localhost:%d", port)
		}
		log.Printf("serve: starting server on %s", note)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("serve: failed to start server: %v\n", err)
			cancel()
		}
	}()

	<-ctx.Done()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("serve: couldn't shutdown server: %w", err)
	}
	return nil
}

// apply updates the local record for the task referenced by the event.
// Events for unknown tasks are ignored.
func apply(ctx context.Context, store *storage.Store, event *webhook.Event) error {
	gen, err := store.GetGenerationByTask(ctx, event.TaskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("serve: couldn't get generation for task %s: %w", event.TaskID, err)
	}

	task := event.Task()
	gen.Status = string(task.Status)
	gen.Error = task.Error
	gen.CompletedAt = task.CompletedAt
	if len(task.Clips) > 0 {
		clip := task.Clips[0]
		gen.ClipID = clip.ID
		gen.Audio = clip.AudioURL
		gen.Video = clip.VideoURL
	}
	if err := store.SetGeneration(ctx, gen); err != nil {
		return fmt.Errorf("serve: couldn't update generation for task %s: %w", event.TaskID, err)
	}
	return nil
}
