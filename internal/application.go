package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rocketscienceinc/fourrace-backend/internal/config"
	"github.com/rocketscienceinc/fourrace-backend/internal/fourrace"
	"github.com/rocketscienceinc/fourrace-backend/internal/gamesync"
	"github.com/rocketscienceinc/fourrace-backend/internal/repository"
	"github.com/rocketscienceinc/fourrace-backend/internal/repository/storage"
	"github.com/rocketscienceinc/fourrace-backend/internal/scheduler"
	"github.com/rocketscienceinc/fourrace-backend/internal/service"
	"github.com/rocketscienceinc/fourrace-backend/transport/rest"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	store, closeStore, err := newStore(ctx, logger, conf)
	if err != nil {
		return err
	}
	defer closeStore()

	sqliteStorage, err := storage.NewSQLiteStorage(conf.SQLiteStoragePath)
	if err != nil {
		return fmt.Errorf("could not open sqlite storage: %w", err)
	}

	defer func() {
		if err = sqliteStorage.Close(); err != nil {
			log.Error("could not close sqlite storage", "error", err)
		}
	}()

	if err = sqliteStorage.Init(ctx); err != nil {
		return fmt.Errorf("could not init sqlite storage: %w", err)
	}

	deferred := scheduler.New(logger)
	defer deferred.Close()

	historyRepo := repository.NewHistoryRepository(sqliteStorage.Connection)
	gameService := service.NewGameService(
		logger,
		store,
		historyRepo,
		deferred,
		fourrace.NewGameController(nil),
		service.Delays{
			Pass:             conf.Game.PassDelay,
			BotThink:         conf.Game.BotThinkDelay,
			BotThinkJitter:   conf.Game.BotThinkJitter,
			RankClaim:        conf.Game.RankClaimDelay,
			RankClaimStagger: conf.Game.RankClaimStagger,
		},
	)

	// run HTTP server
	httpErrCh := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", "port", conf.HTTPPort, "sync_backend", conf.SyncBackend)
		server := rest.New(logger, gameService, historyRepo, conf.CORSOrigins)
		if httpErr := server.Start(ctx, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			httpErrCh <- httpErr
		}
	}()

	select {
	case err = <-httpErrCh:
		return fmt.Errorf("HTTP server error: %w", err)
	case <-ctx.Done():
		log.Info("Application context canceled, shutting down")
		return nil
	}
}

// newStore builds the configured sync backend and its cleanup.
func newStore(ctx context.Context, logger *slog.Logger, conf *config.Config) (gamesync.Store, func(), error) {
	if conf.SyncBackend != config.SyncBackendRedis {
		return gamesync.NewMemory(logger), func() {}, nil
	}

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return nil, nil, ErrAddrNotFound
	}

	redisClient, err := storage.NewRedisStorage(ctx, redisAddrString)
	if err != nil {
		return nil, nil, fmt.Errorf("could not connect to redis storage: %w", err)
	}

	return gamesync.NewRedis(logger, redisClient), func() {
		if err = redisClient.Close(); err != nil {
			logger.Error("could not close redis storage", "component", "app", "error", err)
		}
	}, nil
}
