// Package bot parses bot command flags and composes the Telegram adapter.
package bot

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/louisbranch/cardpath/internal/bot"
	"github.com/louisbranch/cardpath/internal/catalog"
	"github.com/louisbranch/cardpath/internal/dialog"
	entrypoint "github.com/louisbranch/cardpath/internal/platform/cmd"
	"github.com/louisbranch/cardpath/internal/storage"
	"github.com/louisbranch/cardpath/internal/storage/memory"
	"github.com/louisbranch/cardpath/internal/storage/sqlite"
	"github.com/louisbranch/cardpath/internal/telemetry"
)

// Config holds bot command configuration.
type Config struct {
	Token string `env:"CARDPATH_BOT_TOKEN"`
	// StoragePath selects SQLite persistence; empty keeps sessions in
	// process memory.
	StoragePath string `env:"CARDPATH_STORAGE_PATH"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Token, "token", cfg.Token, "telegram bot API token")
	fs.StringVar(&cfg.StoragePath, "storage-path", cfg.StoragePath, "sqlite database path (empty for in-memory sessions)")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run builds the dialog controller and starts the Telegram adapter.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceBot, func(ctx context.Context) error {
		if cfg.Token == "" {
			return fmt.Errorf("bot token is required")
		}

		cat, err := catalog.Load()
		if err != nil {
			return err
		}

		var (
			sessions   storage.SessionStore
			events     storage.TelemetryStore
			closeStore func() error
		)
		if cfg.StoragePath != "" {
			store, err := sqlite.Open(cfg.StoragePath)
			if err != nil {
				return err
			}
			sessions, events, closeStore = store, store, store.Close
			log.Printf("storage opened driver=sqlite path=%s", cfg.StoragePath)
		} else {
			store := memory.NewStore()
			sessions, events = store, store
			log.Printf("storage opened driver=memory")
		}
		if closeStore != nil {
			defer func() {
				if err := closeStore(); err != nil {
					log.Printf("close storage: %v", err)
				}
			}()
		}

		ctrl, err := dialog.New(dialog.Config{
			Catalog:   cat,
			Sessions:  sessions,
			Telemetry: telemetry.NewEmitter(events),
		})
		if err != nil {
			return err
		}

		b, err := bot.New(cfg.Token, ctrl)
		if err != nil {
			return err
		}
		if err := b.Run(ctx); err != nil && err != context.Canceled {
			return fmt.Errorf("run bot: %w", err)
		}
		return nil
	})
}
