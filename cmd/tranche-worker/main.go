// Tranche Worker — один экземпляр обработчика tasks.
//
// Экземпляр:
//   - Читает конфигурацию (CF_INSTANCE_INDEX, VCAP_SERVICES, TRANCHE_CONFIG)
//   - Создаёт таблицу tasks и при SEED_ON_START вставляет синтетические tasks
//   - Запускает цикл обработки своего раздела
//   - Отдаёт статус, /healthz и /metrics по HTTP
//
// Экземпляры масштабируются горизонтально и координируются только через БД.
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

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Tranche/internal/api"
	"github.com/shaiso/Tranche/internal/config"
	"github.com/shaiso/Tranche/internal/mq"
	"github.com/shaiso/Tranche/internal/repo"
	"github.com/shaiso/Tranche/internal/seed"
	"github.com/shaiso/Tranche/internal/telemetry"
	"github.com/shaiso/Tranche/internal/worker"
)

func main() {
	// Инициализируем structured logging
	logger := telemetry.SetupLogger("tranche-worker")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger = telemetry.WithInstance(logger, cfg.InstanceIndex)
	logger.Info("starting tranche-worker", "store", cfg.Store.Target(), "driver", cfg.Store.Driver)

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Хранилище
	store, err := repo.Open(ctx, repo.OpenConfig{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Path:   cfg.Store.SQLitePath,
	})
	if err != nil {
		logger.Error("failed to open task store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("failed to create schema", "error", err)
		os.Exit(1)
	}
	logger.Info("task store ready")

	// Синтетические данные: один раз за запуск процесса
	if cfg.Seed.Enabled {
		if _, err := seed.Run(ctx, store, nil, cfg.Seed.Count, logger); err != nil {
			logger.Error("failed to seed tasks", "error", err)
		}
	}

	// RabbitMQ (опционально)
	var publisher worker.EventPublisher
	var events api.EventsLink
	if cfg.RabbitMQURL != "" {
		mqConn, err := mq.NewConnection(cfg.RabbitMQURL, logger)
		if err != nil {
			logger.Warn("RabbitMQ not available, events disabled", "error", err)
		} else {
			defer mqConn.Close()

			if err := mq.SetupTopology(ctx, mqConn); err != nil {
				logger.Warn("failed to setup topology", "error", err)
			}
			publisher = mq.NewPublisher(mqConn, logger)
			events = mqConn
		}
	}

	// Цикл обработки
	w := worker.New(worker.Config{
		InstanceIndex:     cfg.InstanceIndex,
		Store:             store,
		Publisher:         publisher,
		IdleInterval:      cfg.Worker.IdleInterval,
		BatchInterval:     cfg.Worker.BatchInterval,
		ErrorBackoff:      cfg.Worker.ErrorBackoff,
		LivenessThreshold: cfg.Worker.LivenessThreshold,
		Simulator:         worker.NewSimulator(cfg.Worker.MinDelay, cfg.Worker.MaxDelay, cfg.Worker.SuccessRatio, nil),
		Logger:            logger,
	})

	if err := w.Start(ctx); err != nil {
		logger.Error("failed to start worker", "error", err)
		os.Exit(1)
	}

	// HTTP: статус + /metrics
	host, dbName := storeIdentity(cfg.Store)
	handler := api.NewHandler(api.Config{
		InstanceIndex: cfg.InstanceIndex,
		StoreTarget:   cfg.Store.Target(),
		StoreHost:     host,
		DBName:        dbName,
		Store:         store,
		Loop:          w,
		Events:        events,
		Logger:        logger,
	})

	mux := http.NewServeMux()
	handler.RegisterRoutes(mux)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()

	// Ожидаем сигнал завершения
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	// Task в обработке останется IN_PROGRESS и будет освобождён по порогу
	w.Stop()
	logger.Info("tranche-worker stopped", slog.Any("stats", w.Stats()))
}

// storeIdentity возвращает хост и имя БД для приветственной страницы.
func storeIdentity(s config.StoreConfig) (string, string) {
	if s.Driver == repo.DriverSQLite {
		return "sqlite", s.SQLitePath
	}
	return s.Credentials.Host, s.Credentials.Name
}
