package worker

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/mq"
	"github.com/shaiso/Tranche/internal/telemetry"
)

// DefaultLivenessThreshold — после этого времени без обновления
// task в IN_PROGRESS считается брошенным.
const DefaultLivenessThreshold = 60 * time.Second

// Reclaimer переводит зависшие tasks в FAILED.
//
// Любой экземпляр может освободить task любого другого экземпляра:
// владелец task нигде не хранится, критерий только время.
type Reclaimer struct {
	store         StaleStore
	publisher     EventPublisher
	threshold     time.Duration
	now           func() time.Time
	instanceIndex int
	logger        *slog.Logger
}

// ReclaimerConfig — конфигурация Reclaimer.
type ReclaimerConfig struct {
	Store         StaleStore
	Publisher     EventPublisher // опционально
	Threshold     time.Duration  // default: 60s
	Now           func() time.Time
	InstanceIndex int
	Logger        *slog.Logger
}

// NewReclaimer создаёт Reclaimer.
func NewReclaimer(cfg ReclaimerConfig) *Reclaimer {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultLivenessThreshold
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reclaimer{
		store:         cfg.Store,
		publisher:     cfg.Publisher,
		threshold:     threshold,
		now:           now,
		instanceIndex: cfg.InstanceIndex,
		logger:        logger,
	}
}

// Reclaim выполняет один проход: находит IN_PROGRESS tasks старше порога
// и переводит их в FAILED. Возвращает количество освобождённых tasks.
//
// Повторный вызов без новых зависших tasks ничего не меняет.
// Task, который успели завершить между выборкой и записью, пропускается.
func (r *Reclaimer) Reclaim(ctx context.Context) (int, error) {
	now := r.now()
	cutoff := now.Add(-r.threshold)

	stale, err := r.store.ListStale(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	reclaimed := 0
	for i := range stale {
		task := &stale[i]
		logger := telemetry.WithTaskSeq(r.logger, task.Seq)

		ok, err := r.store.ForceFail(ctx, task.Seq, now)
		if err != nil {
			return reclaimed, err
		}
		if !ok {
			logger.Debug("stale task already finalized")
			continue
		}

		reclaimed++
		telemetry.TasksReclaimed.WithLabelValues(strconv.Itoa(r.instanceIndex)).Inc()
		logger.Warn("task is stale, marking as failed",
			"group_id", task.GroupID,
			"tranche_id", task.TrancheID,
			"last_updated", task.LastUpdatedAt,
		)

		r.publish(ctx, task)
	}

	return reclaimed, nil
}

func (r *Reclaimer) publish(ctx context.Context, task *domain.Task) {
	if r.publisher == nil {
		return
	}

	err := r.publisher.PublishTaskEvent(ctx, mq.MessageTypeTaskReclaimed, mq.TaskEvent{
		Seq:           task.Seq,
		InstanceIndex: r.instanceIndex,
		GroupID:       task.GroupID,
		TrancheID:     task.TrancheID,
		Filename:      task.Filename,
		Status:        string(domain.TaskStatusFailed),
		ErrorDesc:     domain.ErrorDescAbandoned,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		r.logger.Warn("failed to publish reclaim event", "fileseqno", task.Seq, "error", err)
	}
}
