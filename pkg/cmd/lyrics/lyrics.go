package lyrics

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string

	Prompt     string
	Variations int
	Output     string
}

// Run generates lyrics from a prompt and writes them to the output
// file or standard output.
func Run(ctx context.Context, cfg *Config) error {
	if cfg.Prompt == "" {
		return fmt.Errorf("lyrics: prompt is empty")
	}
	client := aimusicapi.New(&aimusicapi.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Debug:   cfg.Debug,
	})
	variations := cfg.Variations
	if variations == 0 {
		variations = 1
	}
	lyrics, err := client.GenerateLyrics(ctx, cfg.Prompt, variations)
	if err != nil {
		return fmt.Errorf("lyrics: %w", err)
	}
	out := strings.Join(lyrics, "\n\n---\n\n")
	if cfg.Output == "" {
		fmt.Println(out)
		return nil
	}
	if err := os.WriteFile(cfg.Output, []byte(out), 0644); err != nil {
		return fmt.Errorf("lyrics: couldn't write output: %w", err)
	}
	return nil
}
