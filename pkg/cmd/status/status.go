package status

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
	"github.com/igolaizola/aimusic/pkg/nuro"
	"github.com/igolaizola/aimusic/pkg/producer"
	"github.com/igolaizola/aimusic/pkg/storage"
	"github.com/igolaizola/aimusic/pkg/suno"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	APIKey  string
	BaseURL string

	Model  string
	TaskID string
	Wait   bool

	PollInterval time.Duration
	PollTimeout  time.Duration
}

// Run queries the state of a task and updates its local record when
// one exists.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.TaskID == "" {
		return fmt.Errorf("status: task id is empty")
	}

	var get func(ctx context.Context, taskID string) (*aimusicapi.Task, error)
	var wait func(ctx context.Context, taskID string) (*aimusicapi.Task, error)
	switch cfg.Model {
	case "", "suno":
		client := suno.New(&suno.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})
		get, wait = client.GetTask, client.WaitForCompletion
	case "producer":
		client := producer.New(&producer.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})
		get, wait = client.GetTask, client.WaitForCompletion
	case "nuro":
		client := nuro.New(&nuro.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})
		get, wait = client.GetTask, client.WaitForCompletion
	default:
		return fmt.Errorf("status: unknown model: %s", cfg.Model)
	}

	var task *aimusicapi.Task
	var err error
	if cfg.Wait {
		task, err = wait(ctx, cfg.TaskID)
	} else {
		task, err = get(ctx, cfg.TaskID)
	}
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	log.Printf("status: task %s is %s\n", task.TaskID, task.Status)
	for _, clip := range task.Clips {
		log.Printf("status: clip %s audio %s\n", clip.ID, clip.AudioURL)
	}

	// Update the local record when a database is configured.
	if cfg.DBType == "" {
		return nil
	}
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("status: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("status: couldn't start orm store: %w", err)
	}
	gen, err := store.GetGenerationByTask(ctx, task.TaskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("status: couldn't get generation: %w", err)
	}
	gen.Status = string(task.Status)
	gen.Error = task.Error
	gen.CompletedAt = task.CompletedAt
	if len(task.Clips) > 0 {
		clip := task.Clips[0]
		gen.ClipID = clip.ID
		gen.Audio = clip.AudioURL
		gen.Video = clip.VideoURL
		gen.Image = clip.ImageURL
		gen.Duration = float32(clip.Metadata.Duration)
	}
	if err := store.SetGeneration(ctx, gen); err != nil {
		return fmt.Errorf("status: couldn't update generation: %w", err)
	}
	return nil
}
