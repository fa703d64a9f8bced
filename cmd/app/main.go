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

	"github.com/BuzzLyutic/get-it-done-api/internal/auth"
	"github.com/BuzzLyutic/get-it-done-api/internal/config"
	"github.com/BuzzLyutic/get-it-done-api/internal/handler"
	"github.com/BuzzLyutic/get-it-done-api/internal/notify"
	"github.com/BuzzLyutic/get-it-done-api/internal/repo"
	"github.com/BuzzLyutic/get-it-done-api/internal/service"
	"github.com/BuzzLyutic/get-it-done-api/internal/worker"
)

func main() {
	// Подключаем логгер
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	// Загрузка конфигурации
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	// Подключаем БД
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to Database", zap.Error(err)) // без БД работать нет смысла
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Fatal("Failed to ping the Database", zap.Error(err))
	}
	logger.Info("Successfully connected to the Database!")

	tokens, err := auth.NewTokenService(cfg.TokenSecret, cfg.TokenTTL)
	if err != nil {
		logger.Fatal("Failed to init token service", zap.Error(err))
	}

	// Realtime: hub + пул рассылки
	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()

	hub := notify.NewHub(logger, cfg.BroadcastBuffer)
	broadcast := worker.NewPool(hub, logger, cfg.BroadcastWorkers, cfg.BroadcastBuffer)
	broadcast.Start(runCtx)

	// По умолчанию события уходят прямо в локальный пул.
	// С REDIS_URL они идут через канал Redis, и каждый инстанс раздает их своим клиентам.
	var events service.Publisher = broadcast
	var outbound *worker.Pool
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rc := redis.NewClient(opts)
		defer rc.Close()

		relay, err := notify.NewRelay(runCtx, rc, cfg.RedisChannel, broadcast, logger)
		if err != nil {
			logger.Fatal("Failed to subscribe to Redis", zap.Error(err))
		}
		go relay.Run(runCtx)

		// PUBLISH в Redis тоже идет через очередь, чтобы не держать HTTP-ответ
		outbound = worker.NewPool(notify.NewRedisPublisher(rc, cfg.RedisChannel), logger, 1, cfg.BroadcastBuffer)
		outbound.Start(runCtx)
		events = outbound
		logger.Info("Redis relay enabled", zap.String("channel", cfg.RedisChannel))
	}

	router := handler.NewRouter(handler.Deps{
		Tasks:       service.NewTaskService(repo.NewTaskRepo(pool), events),
		Users:       service.NewUserService(repo.NewUserRepo(pool), tokens),
		Tokens:      tokens,
		Realtime:    hub,
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
		// WriteTimeout не ставим: он рвет долгие websocket-соединения
	}

	go func() { // Запуск сервера и обработка ошибок
		logger.Info("Server started", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
	drainAndStop(stopRun, outbound, broadcast)
	hub.Close()
	logger.Info("Server stopped successfully!")
}

// drainAndStop досылает очереди пулов по порядку и только потом отменяет
// контекст воркеров и relay. nil-пулы пропускаются.
func drainAndStop(cancel context.CancelFunc, pools ...*worker.Pool) {
	for _, p := range pools {
		if p != nil {
			p.Stop()
		}
	}
	cancel()
}
