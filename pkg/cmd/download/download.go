package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/igolaizola/aimusic/pkg/filestore"
	"github.com/igolaizola/aimusic/pkg/storage"
)

type Config struct {
	Debug       bool
	DBType      string
	DBConn      string
	FSType      string
	FSConn      string
	Timeout     time.Duration
	Concurrency int
	Limit       int
	Proxy       string

	Model string
}

// Run downloads the audio of completed generations that haven't been
// fetched yet and stores them in the file store.
func Run(ctx context.Context, cfg *Config) error {
	var iteration int
	log.Printf("download: started\n")
	defer func() {
		log.Printf("download: ended (%d)\n", iteration)
	}()

	debug := func(format string, args ...any) {
		if !cfg.Debug {
			return
		}
		format += "\n"
		log.Printf(format, args...)
	}

	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("download: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("download: couldn't start orm store: %w", err)
	}

	fs, err := filestore.New(cfg.FSType, cfg.FSConn, cfg.Proxy, cfg.Debug, store)
	if err != nil {
		return fmt.Errorf("download: couldn't create file storage: %w", err)
	}

	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("download: invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}

	// Print time stats
	start := time.Now()
	defer func() {
		if iteration == 0 {
			return
		}
		total := time.Since(start)
		log.Printf("download: total time %s, average time %s\n", total, total/time.Duration(iteration))
	}()

	nErr := 0
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 24 * time.Hour
	}
	ticker := time.NewTicker(timeout)
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

	// Claimed generations, so concurrent workers don't pick the same one.
	var mu sync.Mutex
	claimed := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("download: %w", ctx.Err())
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
				return fmt.Errorf("download: too many consecutive errors: %w", err)
			}
			if cfg.Limit > 0 && iteration >= cfg.Limit {
				return nil
			}

			filters := []storage.Filter{
				storage.Where("status = ?", "completed"),
				storage.Where("downloaded = ?", false),
				storage.Where("audio != ?", ""),
			}
			if cfg.Model != "" {
				filters = append(filters, storage.Where("model = ?", cfg.Model))
			}
			mu.Lock()
			for id := range claimed {
				filters = append(filters, storage.Where("id != ?", id))
			}
			gen, err := store.NextGeneration(ctx, filters...)
			if err != nil {
				mu.Unlock()
				if errors.Is(err, storage.ErrNotFound) {
					return nil
				}
				return fmt.Errorf("download: couldn't get next generation: %w", err)
			}
			claimed[gen.ID] = struct{}{}
			mu.Unlock()

			iteration++

			wg.Add(1)
			go func() {
				defer wg.Done()
				debug("download: start %s", gen.ID)
				err := download(ctx, httpClient, fs, store, gen)
				if err != nil {
					log.Println(err)
				}
				debug("download: end %s", gen.ID)
				mu.Lock()
				delete(claimed, gen.ID)
				mu.Unlock()
				errC <- err
			}()
		}
	}
}

func download(ctx context.Context, client *http.Client, fs *filestore.Store, store *storage.Store, gen *storage.Generation) error {
	tmp, err := os.MkdirTemp("", "aimusic-download-")
	if err != nil {
		return fmt.Errorf("download: couldn't create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	path := filepath.Join(tmp, filestore.MP3(gen.ID))
	if err := fetch(ctx, client, gen.Audio, path); err != nil {
		return fmt.Errorf("download: couldn't fetch audio for %s: %w", gen.ID, err)
	}
	if err := fs.SetMP3(ctx, path, gen.ID); err != nil {
		return fmt.Errorf("download: couldn't store audio for %s: %w", gen.ID, err)
	}

	gen.File = filestore.MP3(gen.ID)
	gen.Downloaded = true
	if err := store.SetGeneration(ctx, gen); err != nil {
		return fmt.Errorf("download: couldn't update generation %s: %w", gen.ID, err)
	}
	return nil
}

func fetch(ctx context.Context, client *http.Client, u, output string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("couldn't download file: status %d", resp.StatusCode)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("couldn't create file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("couldn't write file: %w", err)
	}
	return nil
}
