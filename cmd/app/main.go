package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asquebay/cantine-order-service/internal/config"
	"github.com/asquebay/cantine-order-service/internal/lib/logger"
	"github.com/asquebay/cantine-order-service/internal/notifier"
	"github.com/asquebay/cantine-order-service/internal/repository/cache"
	"github.com/asquebay/cantine-order-service/internal/repository/postgres"
	"github.com/asquebay/cantine-order-service/internal/service"
	"github.com/asquebay/cantine-order-service/internal/stream"
	httptransport "github.com/asquebay/cantine-order-service/internal/transport/http"
	"github.com/asquebay/cantine-order-service/internal/transport/kafka"
)

func main() {
	// 1. Инициализация конфигурации
	cfg := config.MustLoad("config/config.yaml")

	// 2. Инициализация логгера
	log := logger.New(cfg.Logger.Level, cfg.Logger.Format)
	log.Info("starting cantine-order-service", slog.String("log_level", cfg.Logger.Level))

	// 3. Инициализация репозитория (БД)
	initCtx := context.Background()
	dbpool, err := postgres.New(initCtx, cfg.Postgres)
	if err != nil {
		log.Error("failed to connect to postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer dbpool.Close()
	log.Info("successfully connected to postgres")

	if err := postgres.EnsureSchema(initCtx, dbpool); err != nil {
		log.Error("failed to ensure schema", slog.String("error", err.Error()))
		os.Exit(1)
	}

	commandeRepo := postgres.NewCommandeRepository(dbpool)

	// 4. Инициализация кэша
	commandeCache := cache.NewCommandeCache()
	log.Info("commande cache initialized")

	// 5. Нотификатор событий мутаций — единственный на процесс,
	// сервис и композер получают один и тот же экземпляр явно
	mutations := notifier.New(log)

	// 6. Инициализация сервисного слоя
	commandeSvc := service.NewCommandeService(commandeRepo, commandeCache, mutations, log)

	// 7. Восстановление кэша из БД при старте
	if err := commandeSvc.RestoreCache(context.Background()); err != nil {
		// не фатальная ошибка, сервис может работать и с пустым кэшем
		log.Error("failed to restore cache", slog.String("error", err.Error()))
	}

	// 8. Инициализация и запуск Kafka-консьюмера
	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID, commandeSvc, log)
	ctx, cancel := context.WithCancel(context.Background())
	go consumer.Run(ctx)

	// 9. Композер живой ленты и HTTP-сервер
	composer := stream.NewComposer(commandeSvc, mutations, log)
	handler := httptransport.NewHandler(commandeSvc, composer, log)
	httpServer := httptransport.NewServer(cfg.HTTPServer.Port, handler, cfg.HTTPServer.Timeout)
	log.Info("starting http server", slog.String("port", cfg.HTTPServer.Port))

	go func() {
		if err := httpServer.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed to start", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// 10. Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down application")
	cancel() // сигнал для консьюмера на завершение

	// завершаем раздачу событий: все SSE-подписки получают закрытие каналов
	mutations.Complete()

	// создаем контекст с таймаутом для шатдауна сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", slog.String("error", err.Error()))
	}

	if err := consumer.Close(); err != nil {
		log.Error("error closing kafka consumer", slog.String("error", err.Error()))
	}

	log.Info("application stopped")
}
