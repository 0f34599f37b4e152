package setting

import (
	"context"
	"fmt"

	"github.com/igolaizola/aimusic/pkg/storage"
)

type Config struct {
	Debug  bool
	DBType string
	DBConn string

	Key   string
	Value string
}

var keys = map[string]struct{}{
	"api-key":        {},
	"webhook-secret": {},
	"webhook-url":    {},
}

// Run stores a configuration value in the database.
func Run(ctx context.Context, cfg *Config) error {
	store, err := storage.New(cfg.DBType, cfg.DBConn, cfg.Debug)
	if err != nil {
		return fmt.Errorf("setting: couldn't create orm store: %w", err)
	}
	if err := store.Start(ctx); err != nil {
		return fmt.Errorf("setting: couldn't start orm store: %w", err)
	}

	if cfg.Key == "" {
		return fmt.Errorf("setting: key is empty")
	}
	if cfg.Value == "" {
		return fmt.Errorf("setting: value is empty")
	}
	if _, ok := keys[cfg.Key]; !ok {
		return fmt.Errorf("setting: unknown key: %s", cfg.Key)
	}

	s := storage.Setting{
		ID:    cfg.Key,
		Value: cfg.Value,
	}
	if err := store.SetSetting(ctx, &s); err != nil {
		return fmt.Errorf("setting: couldn't save setting: %w", err)
	}
	return nil
}
