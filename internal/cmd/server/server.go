// Package server parses app server flags and starts the tracker runtime.
package server

import (
	"context"
	"errors"
	"flag"
	"log"

	entrypoint "github.com/torchlightrpg/torchlight/internal/platform/cmd"
	"github.com/torchlightrpg/torchlight/internal/services/app"
	"github.com/torchlightrpg/torchlight/internal/services/app/storage/sqlite"
)

// Config holds app server command configuration.
type Config struct {
	Addr          string `env:"TORCHLIGHT_APP_ADDR" envDefault:":8080"`
	DBPath        string `env:"TORCHLIGHT_APP_DB" envDefault:"torchlight.db"`
	GrantSecret   string `env:"TORCHLIGHT_GRANT_SECRET"`
	SessionSecret string `env:"TORCHLIGHT_SESSION_SECRET"`
	// Maintenance carries the raw maintenance flag value; any value other
	// than "true"/"1" leaves the site up.
	Maintenance         string   `env:"TORCHLIGHT_MAINTENANCE"`
	MaintenanceExcluded []string `env:"TORCHLIGHT_MAINTENANCE_EXCLUDED" envSeparator:","`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The app server listen address")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Path to the sqlite database file")
	fs.StringVar(&cfg.Maintenance, "maintenance", cfg.Maintenance, "Maintenance flag value")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.GrantSecret == "" {
		return errors.New("TORCHLIGHT_GRANT_SECRET is required")
	}
	if c.SessionSecret == "" {
		return errors.New("TORCHLIGHT_SESSION_SECRET is required")
	}
	return nil
}

// Run starts the tracker app service.
func Run(ctx context.Context, cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceApp, func(ctx context.Context) error {
		store, err := sqlite.Open(cfg.DBPath)
		if err != nil {
			return err
		}

		srv := app.NewServer(app.Config{
			HTTPAddr:            cfg.Addr,
			GrantSecret:         []byte(cfg.GrantSecret),
			SessionSecret:       []byte(cfg.SessionSecret),
			MaintenanceFlag:     cfg.Maintenance,
			MaintenanceExcluded: cfg.MaintenanceExcluded,
		}, store, store.Close)
		defer func() {
			if err := srv.Close(); err != nil {
				log.Printf("app: close server: %v", err)
			}
		}()

		log.Printf("app: listening on %s", cfg.Addr)
		return srv.ListenAndServe(ctx)
	})
}
