// Package janitor runs periodic housekeeping next to the API server.
package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Pruner drops stale entries and reports how many it dropped
type Pruner interface {
	Prune() int
}

// Config holds janitor configuration
type Config struct {
	CheckInterval time.Duration
}

// DefaultConfig returns default janitor configuration
func DefaultConfig() *Config {
	return &Config{
		CheckInterval: time.Minute,
	}
}

// Janitor prunes in-memory caches so that keys nobody asks for again do
// not pile up
type Janitor struct {
	config  *Config
	pruners map[string]Pruner
}

// NewJanitor creates a new janitor instance. pruners are keyed by the name
// used in log lines.
func NewJanitor(config *Config, pruners map[string]Pruner) *Janitor {
	if config == nil {
		config = DefaultConfig()
	}
	return &Janitor{
		config:  config,
		pruners: pruners,
	}
}

// Start runs the janitor loop until ctx is done
func (j *Janitor) Start(ctx context.Context) error {
	logger := zerolog.Ctx(ctx)
	logger.Info().Dur("check_interval", j.config.CheckInterval).Msg("janitor starting")

	ticker := time.NewTicker(j.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("janitor shutting down")
			return ctx.Err()

		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce performs every cleanup task once
func (j *Janitor) RunOnce(ctx context.Context) {
	logger := zerolog.Ctx(ctx)
	for name, p := range j.pruners {
		if dropped := p.Prune(); dropped > 0 {
			logger.Debug().Str("cache", name).Int("dropped", dropped).Msg("pruned stale entries")
		}
	}
}
