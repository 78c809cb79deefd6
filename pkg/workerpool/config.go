package workerpool

import (
	"fmt"
	"runtime"
	"time"
)

// Config sizes a pool
type Config struct {
	Workers         int           // Number of workers
	QueueSize       int           // Task queue buffer size
	ShutdownTimeout time.Duration // Max wait time for graceful shutdown
	ErrorHandler    func(error)   // Callback for task errors, may be nil
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		QueueSize:       1000,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("%w: queue size must not be negative, got %d", ErrInvalidConfig, c.QueueSize)
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
