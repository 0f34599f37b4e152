package generate

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
	"github.com/igolaizola/aimusic/pkg/apierr"
	"github.com/igolaizola/aimusic/pkg/nuro"
	"github.com/igolaizola/aimusic/pkg/producer"
	"github.com/igolaizola/aimusic/pkg/storage"
	"github.com/igolaizola/aimusic/pkg/suno"
	"github.com/oklog/ulid/v2"
)

type Config struct {
	Debug       bool
	DBType      string
	DBConn      string
	Timeout     time.Duration
	Concurrency int
	WaitMin     time.Duration
	WaitMax     time.Duration
	Limit       int
	Proxy       string

	APIKey  string
	BaseURL string

	Model        string
	Prompt       string
	Lyrics       string
	Style        string
	Title        string
	Duration     int
	Instrumental bool

	Input string

	PollInterval time.Duration
	PollTimeout  time.Duration
}

// generator launches a task and waits for its terminal state.
type generator interface {
	Generate(ctx context.Context, t template) (*aimusicapi.Task, error)
	Wait(ctx context.Context, taskID string) (*aimusicapi.Task, error)
}

// Run launches the song generation process.
func Run(ctx context.Context, cfg *Config) error {
	var iteration int
	log.Println("generate: process started")
	defer func() {
		log.Printf("generate: process ended (%d)\n", iteration)
	}()

	debug := func(format string, args ...interface{}) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("generate: api key is empty")
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("generate: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("generate: couldn't start orm store: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("generate: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}

	gen, err := newGenerator(cfg, httpClient)
	if err != nil {
		return err
	}

	// Load templates
	var tmpls []template
	if cfg.Input != "" {
		candidates, err := loadTemplates(cfg.Input)
		if err != nil {
			return err
		}
		tmpls = candidates
	} else {
		if cfg.Prompt == "" && cfg.Lyrics == "" {
			return fmt.Errorf("generate: prompt or lyrics are required")
		}
		tmpls = []template{{
			Model:        cfg.Model,
			Prompt:       cfg.Prompt,
			Lyrics:       cfg.Lyrics,
			Style:        cfg.Style,
			Title:        cfg.Title,
			Duration:     cfg.Duration,
			Instrumental: cfg.Instrumental,
		}}
	}

	// Print time stats
	start := time.Now()
	defer func() {
		if iteration == 0 {
			return
		}
		total := time.Since(start)
		log.Printf("generate: total time %s, average time %s\n", total, total/time.Duration(iteration))
	}()

	nErr := 0
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 24 * time.Hour
	}
	ticker := time.NewTicker(timeout)
	last := time.Now()
	defer ticker.Stop()

	// Concurrency settings
	concurrency := cfg.Concurrency
	if concurrency == 0 {
		concurrency = 1
	}
	errC := make(chan error, concurrency)
	defer close(errC)
	for i := 0; i < concurrency; i++ {
		errC <- nil
	}
	var wg sync.WaitGroup
	defer wg.Wait()

	limit := cfg.Limit
	if limit == 0 && cfg.Input != "" {
		limit = len(tmpls)
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("generate: %w", ctx.Err())
		case <-ticker.C:
			return nil
		case err := <-errC:
			if err != nil {
				nErr += 1
			} else {
				nErr = 0
			}

			// Check exit conditions
			if nErr > 10 {
				return fmt.Errorf("generate: too many consecutive errors: %w", err)
			}
			if limit > 0 && iteration >= limit {
				return nil
			}

			tmpl := tmpls[iteration%len(tmpls)]
			iteration++
			if time.Since(last) > 60*time.Minute {
				last = time.Now()
				log.Printf("generate: iteration %d\n", iteration)
			}

			// Wait for a random time.
			wait := 1 * time.Second
			if iteration > 1 && cfg.WaitMax > cfg.WaitMin {
				wait = time.Duration(rand.Int63n(int64(cfg.WaitMax-cfg.WaitMin))) + cfg.WaitMin
			}
			select {
			case <-ctx.Done():
				return fmt.Errorf("generate: %w", ctx.Err())
			case <-time.After(wait):
			}

			// Launch generate in a goroutine
			wg.Add(1)
			go func() {
				defer wg.Done()
				debug("generate: start %s", tmpl)
				err := generate(ctx, gen, store, tmpl)
				if err != nil {
					log.Println(err)
				}
				debug("generate: end %s", tmpl)
				errC <- err
			}()
		}
	}
}

func generate(ctx context.Context, gen generator, store *storage.Store, t template) error {
	task, err := gen.Generate(ctx, t)
	if err != nil {
		return fmt.Errorf("generate: couldn't launch task %s: %w", t, err)
	}

	record := &storage.Generation{
		ID:        ulid.Make().String(),
		TaskID:    task.TaskID,
		Model:     t.Model,
		Operation: "create",
		Status:    string(task.Status),
		Prompt:    t.Prompt,
		Lyrics:    t.Lyrics,
		Style:     t.Style,
		Title:     t.Title,
	}
	if err := store.SetGeneration(ctx, record); err != nil {
		return fmt.Errorf("generate: couldn't save generation to database: %w", err)
	}

	task, werr := gen.Wait(ctx, task.TaskID)
	if werr != nil {
		// Keep the terminal failure in the record before reporting it.
		if apierr.Is(werr, apierr.TaskFailed) || apierr.Is(werr, apierr.Timeout) {
			record.Status = string(aimusicapi.StatusFailed)
			record.Error = werr.Error()
			if err := store.SetGeneration(ctx, record); err != nil {
				return fmt.Errorf("generate: couldn't save generation to database: %w", err)
			}
		}
		return fmt.Errorf("generate: task %s didn't complete: %w", record.TaskID, werr)
	}

	record.Status = string(task.Status)
	record.CompletedAt = task.CompletedAt
	if len(task.Clips) > 0 {
		clip := task.Clips[0]
		record.ClipID = clip.ID
		record.Audio = clip.AudioURL
		record.Video = clip.VideoURL
		record.Image = clip.ImageURL
		record.Duration = float32(clip.Metadata.Duration)
		if record.Title == "" {
			record.Title = clip.Metadata.Title
		}
	}
	if err := store.SetGeneration(ctx, record); err != nil {
		return fmt.Errorf("generate: couldn't save generation to database: %w", err)
	}
	return nil
}

func newGenerator(cfg *Config, httpClient *http.Client) (generator, error) {
	switch cfg.Model {
	case "", "suno":
		return &sunoGenerator{client: suno.New(&suno.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			Client:       httpClient,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})}, nil
	case "producer":
		return &producerGenerator{client: producer.New(&producer.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			Client:       httpClient,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})}, nil
	case "nuro":
		return &nuroGenerator{client: nuro.New(&nuro.Config{
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			Debug:        cfg.Debug,
			Client:       httpClient,
			PollInterval: cfg.PollInterval,
			PollTimeout:  cfg.PollTimeout,
		})}, nil
	default:
		return nil, fmt.Errorf("generate: unknown model: %s", cfg.Model)
	}
}

type sunoGenerator struct {
	client *suno.Client
}

func (g *sunoGenerator) Generate(ctx context.Context, t template) (*aimusicapi.Task, error) {
	if t.Lyrics != "" {
		return g.client.CreateWithLyrics(ctx, &suno.CreateWithLyricsRequest{
			Lyrics: t.Lyrics,
			Style:  t.Style,
			Title:  t.Title,
		})
	}
	return g.client.Create(ctx, &suno.CreateRequest{
		Description: t.Prompt,
		Duration:    t.Duration,
		AutoLyrics:  !t.Instrumental,
	})
}

func (g *sunoGenerator) Wait(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return g.client.WaitForCompletion(ctx, taskID)
}

type producerGenerator struct {
	client *producer.Client
}

func (g *producerGenerator) Generate(ctx context.Context, t template) (*aimusicapi.Task, error) {
	return g.client.Create(ctx, &producer.CreateRequest{
		Operation: producer.OpCreate,
		Prompt:    t.Prompt,
		Lyrics:    t.Lyrics,
		Style:     t.Style,
		Duration:  t.Duration,
	})
}

func (g *producerGenerator) Wait(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return g.client.WaitForCompletion(ctx, taskID)
}

type nuroGenerator struct {
	client *nuro.Client
}

func (g *nuroGenerator) Generate(ctx context.Context, t template) (*aimusicapi.Task, error) {
	if t.Instrumental {
		return g.client.CreateInstrumental(ctx, &nuro.InstrumentalRequest{
			Prompt:   t.Prompt,
			Duration: t.Duration,
		})
	}
	return g.client.CreateVocal(ctx, &nuro.VocalRequest{
		Prompt:   t.Prompt,
		Lyrics:   t.Lyrics,
		Duration: t.Duration,
	})
}

func (g *nuroGenerator) Wait(ctx context.Context, taskID string) (*aimusicapi.Task, error) {
	return g.client.WaitForCompletion(ctx, taskID)
}
