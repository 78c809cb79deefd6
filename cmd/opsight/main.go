package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/config"
	"github.com/savegress/opsight/internal/observability"
	"github.com/savegress/opsight/internal/store"
)

var configPath string

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsight",
		Short:         "OpSight - manufacturing OEE, downtime and performance analytics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("CONFIG_PATH"), "path to a YAML config file")

	root.AddCommand(serveCmd(), migrateCmd(), reportCmd())
	return root
}

// loadConfig reads the YAML file when given, else the environment
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	} else {
		cfg = config.LoadFromEnv()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := observability.NewLogger(cfg.Server.Environment, cfg.Server.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// openStore connects the configured backend
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, store.PostgresConfig{
			URL:      cfg.Database.URL,
			MaxConns: int32(cfg.Database.MaxConns),
			MinConns: int32(cfg.Database.MinConns),
		})
	case "sqlite":
		return store.NewSQLite(ctx, cfg.SQLite.Path)
	}

	mem := store.NewMemory()
	if cfg.Store.Fixture != "" {
		f, err := store.LoadFixture(cfg.Store.Fixture)
		if err != nil {
			return nil, err
		}
		if err := mem.Seed(ctx, f); err != nil {
			return nil, err
		}
		logger.Info("Memory store seeded",
			zap.String("fixture", cfg.Store.Fixture),
			zap.Int("records", len(f.Records)))
	}
	return mem, nil
}

// migrationTarget is the database url or file golang-migrate connects to
func migrationTarget(cfg *config.Config) (string, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return cfg.Database.URL, nil
	case "sqlite":
		return cfg.SQLite.Path, nil
	}
	return "", fmt.Errorf("store driver %q has no schema to migrate", cfg.Store.Driver)
}
