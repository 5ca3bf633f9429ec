package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/RichardoC/thinkstream/internal/api"
	"github.com/RichardoC/thinkstream/internal/chat"
	"github.com/RichardoC/thinkstream/internal/config"
	"github.com/RichardoC/thinkstream/internal/db"
	"github.com/RichardoC/thinkstream/internal/llm"
)

func main() {
	configPath := flag.String("config", "", "path to a config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.Logging.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Configuration, logger *zap.Logger) (err error) {
	store := db.Open(ctx, cfg.Store, logger.Named("store"))
	defer func() {
		err = multierr.Append(err, store.Close())
	}()

	var locker chat.Locker = chat.NewLocalLocker()
	if cfg.Redis.URL != "" {
		rl, lerr := chat.NewRedisLocker(ctx, cfg.Redis.URL, logger.Named("lock"))
		if lerr != nil {
			logger.Warn("Redis unavailable, using in-process session locks", zap.Error(lerr))
		} else {
			locker = rl
			defer func() {
				err = multierr.Append(err, rl.Close())
			}()
		}
	}

	// Streams are bounded by the request context, not a client timeout.
	client := &http.Client{}
	registry := llm.BuildRegistry(ctx, cfg.Providers, client, logger.Named("llm"))

	orchestrator := chat.NewOrchestrator(store, registry, locker, cfg.Chat, logger.Named("chat"))
	handler := api.NewHandler(store, orchestrator, logger.Named("api"))
	router := api.NewRouter(handler, logger, api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting server",
			zap.String("addr", srv.Addr),
			zap.String("store", store.Backend()),
			zap.Strings("providers", familyNames(registry)))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func familyNames(reg *llm.Registry) []string {
	families := reg.Families()
	names := make([]string, len(families))
	for i, f := range families {
		names[i] = string(f)
	}
	return names
}
