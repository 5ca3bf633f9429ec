package db

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/metrics"
)

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options select and configure the conversation store.
type Options struct {
	Driver                string `mapstructure:"driver"`
	SQLitePath            string `mapstructure:"sqlite_path"`
	PostgresURL           string `mapstructure:"postgres_url"`
	ConnectTimeoutSeconds int    `mapstructure:"connect_timeout_seconds"`
}

// Open builds the configured store. The durable backend is probed once; if it
// cannot be reached the in-memory store is returned instead and the
// degradation is logged. The choice is never revisited at runtime.
func Open(ctx context.Context, opts Options, logger *zap.Logger) Store {
	store, err := openDurable(ctx, opts)
	if err != nil {
		logger.Warn("Durable store unavailable, falling back to in-memory store",
			zap.String("driver", opts.Driver),
			zap.Error(err))
		store = NewMemoryStore()
	}

	metrics.StoreBackend.WithLabelValues(store.Backend()).Set(1)
	logger.Info("Conversation store ready", zap.String("backend", store.Backend()))
	return store
}

func openDurable(ctx context.Context, opts Options) (Store, error) {
	timeout := time.Duration(opts.ConnectTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	switch opts.Driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite, "":
		return NewSQLiteStore(ctx, opts.SQLitePath)
	case DriverPostgres:
		return NewPostgresStore(ctx, opts.PostgresURL)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
