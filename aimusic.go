package aimusic

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/igolaizola/aimusic/pkg/suno"
)

type Config struct {
	APIKey  string
	BaseURL string
	Proxy   string
	Wait    time.Duration
	Debug   bool
}

// GenerateSong generates a song given a prompt, waits for the task to
// complete and downloads the resulting audio to the output file.
func GenerateSong(ctx context.Context, cfg *Config, prompt string, output string) error {
	httpClient := &http.Client{
		Timeout: 2 * time.Minute,
	}
	if cfg.Proxy != "" {
		u, err := url.Parse(cfg.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy URL: %w", err)
		}
		httpClient.Transport = &http.Transport{
			Proxy: http.ProxyURL(u),
		}
	}
	client := suno.New(&suno.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Wait:    cfg.Wait,
		Debug:   cfg.Debug,
		Client:  httpClient,
	})
	task, err := client.Create(ctx, &suno.CreateRequest{
		Description: prompt,
	})
	if err != nil {
		return fmt.Errorf("couldn't create song: %w", err)
	}
	task, err = client.WaitForCompletion(ctx, task.TaskID)
	if err != nil {
		return fmt.Errorf("couldn't generate song: %w", err)
	}
	for _, clip := range task.Clips {
		log.Println("id:", clip.ID)
		log.Println("title:", clip.Metadata.Title)
		log.Println("url:", clip.AudioURL)
	}
	if output == "" || len(task.Clips) == 0 {
		return nil
	}
	if err := download(ctx, httpClient, task.Clips[0].AudioURL, output); err != nil {
		return fmt.Errorf("couldn't download song: %w", err)
	}
	return nil
}

func download(ctx context.Context, client *http.Client, url, output string) error {
	// Create request
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("couldn't create request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("couldn't download audio: %w", err)
	}
	defer resp.Body.Close()

	// Write audio to output
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("couldn't create output file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("couldn't write to output file: %w", err)
	}
	return nil
}
