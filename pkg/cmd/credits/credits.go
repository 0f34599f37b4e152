package credits

import (
	"context"
	"fmt"
	"log"

	"github.com/igolaizola/aimusic/pkg/aimusicapi"
)

type Config struct {
	Debug   bool
	APIKey  string
	BaseURL string
}

// Run prints the remaining account credits.
func Run(ctx context.Context, cfg *Config) error {
	client := aimusicapi.New(&aimusicapi.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Debug:   cfg.Debug,
	})
	credits, err := client.GetCredits(ctx)
	if err != nil {
		return fmt.Errorf("credits: %w", err)
	}
	log.Printf("credits: %d (extra %d)\n", credits.Credits, credits.ExtraCredits)
	if credits.ResetDate != nil {
		log.Printf("credits: reset on %s\n", credits.ResetDate.Format("2006-01-02"))
	}
	return nil
}
