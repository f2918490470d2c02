package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/mission-control/internal/config"
	"github.com/BuzzLyutic/mission-control/internal/handler"
	"github.com/BuzzLyutic/mission-control/internal/repo"
	"github.com/BuzzLyutic/mission-control/internal/service"
	"github.com/BuzzLyutic/mission-control/internal/store"
	"github.com/BuzzLyutic/mission-control/internal/worker"
)

func main() {
	// Загрузка конфигурации
	cfg := config.Load()

	// Подключаем логгер
	logger := newLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	base, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open the store", zap.String("backend", cfg.Backend), zap.Error(err))
	}
	defer closeStore()

	// Кэш списков в Redis, если он настроен
	var st store.Store = base
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, reads go straight to the store", zap.Error(err))
		}
		st = store.NewCache(base, rdb, cfg.CacheTTL, logger)
	}

	// Запуск воркеров синхронизации
	pool := worker.NewPool(logger, cfg.WorkerCount, cfg.SyncTimeout)
	pool.Start(ctx)

	taskRepo := repo.NewTaskRepo(st, pool, logger)
	taskService := service.NewTaskService(taskRepo, st, pool)

	// Доска стартует даже без хранилища, ошибку видно в /api/board
	if err := taskService.Reload(ctx); err != nil {
		logger.Error("Initial load failed", zap.Error(err))
	} else {
		logger.Info("Board loaded", zap.Int("tasks", len(taskService.Tasks())))
	}

	taskHandler := handler.NewTaskHandler(taskService, logger)

	srv := http.Server{ // Создаем сервер
		Addr:        ":" + cfg.Port,
		Handler:     handler.NewRouter(taskHandler, logger),
		ReadTimeout: 10 * time.Second,
		// без WriteTimeout: /api/events держит соединение открытым
		IdleTimeout: 60 * time.Second,
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr), zap.String("backend", cfg.Backend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}

	// Дожидаемся отправки изменений, которые уже видны на доске
	if err := pool.Flush(shutdownCtx); err != nil {
		logger.Warn("Pending sync ops dropped", zap.Int("in_flight", pool.InFlight()))
	}
	pool.Stop()
	logger.Info("Server stopped successfully!")
}

func newLogger(level string) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if level == "debug" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// openStore returns the backend selected by STORE_BACKEND and a func releasing it.
func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		logger.Info("Successfully connected to the Database!")
		return store.NewPgStore(pool), pool.Close, nil
	case config.BackendMemory:
		mem := store.NewMemStore()
		store.SeedDemo(mem, time.Now())
		return mem, func() {}, nil
	default:
		client := &http.Client{Timeout: 30 * time.Second}
		return store.NewRESTClient(cfg.StoreURL, cfg.StoreAPIKey, cfg.StoreToken, client), func() {}, nil
	}
}
