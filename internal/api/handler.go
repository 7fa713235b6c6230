package api

import (
	"context"
	"log/slog"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/worker"
)

// StatusStore — операции хранилища, нужные для статуса.
type StatusStore interface {
	Ping(ctx context.Context) error
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)
}

// LoopStatus — наблюдение за циклом обработки (*worker.Worker).
type LoopStatus interface {
	State() worker.State
	Stats() worker.Stats
}

// EventsLink — соединение с брокером событий (*mq.Connection).
type EventsLink interface {
	IsConnected() bool
}

// Handler — обработчик статусного HTTP API одного экземпляра.
type Handler struct {
	instanceIndex int
	storeTarget   string
	storeHost     string
	dbName        string
	store         StatusStore
	loop          LoopStatus
	events        EventsLink
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	InstanceIndex int

	// StoreTarget — адрес хранилища без секретов (host:port/db или sqlite:path).
	StoreTarget string
	StoreHost   string
	DBName      string

	Store  StatusStore
	Loop   LoopStatus // опционально; nil — цикл не запущен
	Events EventsLink // опционально; nil — события выключены
	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		instanceIndex: cfg.InstanceIndex,
		storeTarget:   cfg.StoreTarget,
		storeHost:     cfg.StoreHost,
		dbName:        cfg.DBName,
		store:         cfg.Store,
		loop:          cfg.Loop,
		events:        cfg.Events,
		logger:        logger,
	}
}
