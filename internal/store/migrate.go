package store

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
)

//go:embed migrations
var migrations embed.FS

// migrationLogger adapts zap to migrate.Logger
type migrationLogger struct {
	log *zap.SugaredLogger
}

func (l migrationLogger) Printf(format string, v ...any) {
	l.log.Infof(strings.TrimSpace(format), v...)
}

func (l migrationLogger) Verbose() bool { return false }

// migrationURL rewrites a driver target into the scheme golang-migrate expects
func migrationURL(driver, target string) (string, string, error) {
	switch driver {
	case "postgres":
		for _, prefix := range []string{"postgres://", "postgresql://"} {
			if strings.HasPrefix(target, prefix) {
				return "postgres", "pgx5://" + strings.TrimPrefix(target, prefix), nil
			}
		}
		return "", "", fmt.Errorf("unsupported postgres url %q", target)
	case "sqlite":
		return "sqlite", "sqlite3://" + target, nil
	}
	return "", "", fmt.Errorf("driver %q has no migrations", driver)
}

// Migrate applies every pending up migration for the driver. target is the
// database url for postgres or the file path for sqlite. It returns the
// resulting schema version.
func Migrate(driver, target string, logger *zap.Logger) (uint, error) {
	dir, url, err := migrationURL(driver, target)
	if err != nil {
		return 0, err
	}

	src, err := iofs.New(migrations, "migrations/"+dir)
	if err != nil {
		return 0, fmt.Errorf("open migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, url)
	if err != nil {
		return 0, fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()
	m.Log = migrationLogger{log: logger.Sugar()}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("migrate up: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, err
	}
	if dirty {
		return version, fmt.Errorf("schema version %d is dirty", version)
	}
	logger.Info("Migrations applied", zap.String("driver", driver), zap.Uint("version", version))
	return version, nil
}
