package worker

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/mq"
	"github.com/shaiso/Tranche/internal/partition"
	"github.com/shaiso/Tranche/internal/repo"
	"github.com/shaiso/Tranche/internal/telemetry"
)

// Default configuration values.
const (
	defaultIdleInterval  = 10 * time.Second
	defaultBatchInterval = 5 * time.Second
	defaultErrorBackoff  = 5 * time.Second

	defaultMinDelay     = 5 * time.Second
	defaultMaxDelay     = 10 * time.Second
	defaultSuccessRatio = 0.8
)

// Worker — цикл обработки tasks одного экземпляра.
//
// Каждая итерация:
//   - освобождает зависшие tasks (Reclaimer)
//   - выбирает NOT_STARTED tasks своего раздела
//   - по очереди захватывает, обрабатывает и завершает их
//
// Экземпляры не общаются между собой: координация только через
// условные записи в хранилище.
type Worker struct {
	store     Store
	publisher EventPublisher
	reclaimer *Reclaimer
	simulator *Simulator
	now       func() time.Time

	instanceIndex int
	instanceLabel string

	// Configuration
	idleInterval  time.Duration
	batchInterval time.Duration
	errorBackoff  time.Duration

	stats counters
	state atomic.Value

	// Lifecycle
	logger     *slog.Logger
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	started    bool
	stopped    bool
	stoppedMu  sync.RWMutex
}

// Config — конфигурация Worker.
type Config struct {
	// InstanceIndex — номер экземпляра (0, 1, 2).
	InstanceIndex int

	Store     Store
	Publisher EventPublisher // опционально; nil — события не публикуются

	// Simulator — симуляция обработки. nil — задержка 5–10s,
	// успех с вероятностью 0.8, случайность из Rand.
	Simulator *Simulator
	// Rand — источник случайности симулятора по умолчанию (default: PCG от времени).
	Rand Rand
	// Now — источник времени (default: time.Now).
	Now func() time.Time

	IdleInterval      time.Duration // пауза без tasks (default: 10s)
	BatchInterval     time.Duration // пауза после пачки (default: 5s)
	ErrorBackoff      time.Duration // пауза после ошибки хранилища (default: 5s)
	LivenessThreshold time.Duration // порог зависания (default: 60s)

	Logger *slog.Logger
}

// New создаёт новый Worker.
func New(cfg Config) *Worker {
	idle := cfg.IdleInterval
	if idle <= 0 {
		idle = defaultIdleInterval
	}

	batch := cfg.BatchInterval
	if batch <= 0 {
		batch = defaultBatchInterval
	}

	backoff := cfg.ErrorBackoff
	if backoff <= 0 {
		backoff = defaultErrorBackoff
	}

	sim := cfg.Simulator
	if sim == nil {
		sim = NewSimulator(defaultMinDelay, defaultMaxDelay, defaultSuccessRatio, cfg.Rand)
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = telemetry.WithInstance(logger, cfg.InstanceIndex)

	w := &Worker{
		store:         cfg.Store,
		publisher:     cfg.Publisher,
		simulator:     sim,
		now:           now,
		instanceIndex: cfg.InstanceIndex,
		instanceLabel: strconv.Itoa(cfg.InstanceIndex),
		idleInterval:  idle,
		batchInterval: batch,
		errorBackoff:  backoff,
		logger:        logger,
	}
	w.reclaimer = NewReclaimer(ReclaimerConfig{
		Store:         cfg.Store,
		Publisher:     cfg.Publisher,
		Threshold:     cfg.LivenessThreshold,
		Now:           now,
		InstanceIndex: cfg.InstanceIndex,
		Logger:        logger,
	})
	w.setState(StateIdle)
	return w
}

// Run выполняет цикл до отмены ctx. Возвращает ctx.Err().
//
// Task, прерванный отменой, остаётся IN_PROGRESS и будет
// освобождён Reclaimer'ом после порога.
func (w *Worker) Run(ctx context.Context) error {
	if w.store == nil {
		return ErrNoStore
	}

	w.logger.Info("starting task loop",
		"idle_interval", w.idleInterval,
		"batch_interval", w.batchInterval,
		"liveness_threshold", w.reclaimer.threshold,
	)

	for {
		wait := w.iterate(ctx)
		if ctx.Err() != nil {
			break
		}
		if err := sleep(ctx, wait); err != nil {
			break
		}
	}

	w.setState(StateStopped)
	w.logger.Info("task loop stopped")
	return ctx.Err()
}

// Start запускает цикл в отдельной горутине.
func (w *Worker) Start(ctx context.Context) error {
	if w.store == nil {
		return ErrNoStore
	}

	w.stoppedMu.Lock()
	defer w.stoppedMu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}
	w.started = true

	ctx, cancel := context.WithCancel(ctx)
	w.cancelFunc = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error("task loop error", "error", err)
		}
	}()

	w.logger.Info("worker started")
	return nil
}

// Stop останавливает Worker и ждёт завершения цикла.
func (w *Worker) Stop() {
	w.stoppedMu.Lock()
	w.stopped = true
	cancel := w.cancelFunc
	w.stoppedMu.Unlock()

	w.logger.Info("stopping worker...")

	if cancel != nil {
		cancel()
	}

	w.wg.Wait()

	w.logger.Info("worker stopped")
}

// IsStopped проверяет, остановлен ли Worker.
func (w *Worker) IsStopped() bool {
	w.stoppedMu.RLock()
	defer w.stoppedMu.RUnlock()
	return w.stopped
}

// State возвращает текущее состояние цикла.
func (w *Worker) State() State {
	return w.state.Load().(State)
}

// Stats возвращает снимок счётчиков.
func (w *Worker) Stats() Stats {
	return w.stats.snapshot()
}

// InstanceIndex возвращает номер экземпляра.
func (w *Worker) InstanceIndex() int {
	return w.instanceIndex
}

func (w *Worker) setState(s State) {
	w.state.Store(s)
}

// iterate выполняет одну итерацию и возвращает паузу до следующей.
func (w *Worker) iterate(ctx context.Context) time.Duration {
	w.stats.iterations.Add(1)

	w.setState(StateReclaiming)
	n, err := w.reclaimer.Reclaim(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		// Ошибка освобождения не мешает обработке своих tasks
		w.loopError("reclaim", err)
	}
	w.stats.reclaimed.Add(int64(n))

	w.setState(StateSelecting)
	tasks, err := w.store.ListClaimable(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		w.loopError("select", err)
		w.setState(StateBackoff)
		return w.errorBackoff
	}

	mine := partition.Filter(tasks, w.instanceIndex)
	if len(mine) == 0 {
		w.logger.Info("no tasks to process", "claimable", len(tasks))
		w.setState(StateSleepingIdle)
		return w.idleInterval
	}

	w.logger.Info("selected tasks", "count", len(mine), "claimable", len(tasks))

	// Порядок захвата — по возрастанию fileseqno, независимо от хранилища
	slices.SortFunc(mine, func(a, b domain.Task) int {
		return cmp.Compare(a.Seq, b.Seq)
	})

	for i := range mine {
		if ctx.Err() != nil {
			return 0
		}
		if err := w.processTask(ctx, &mine[i]); err != nil {
			if ctx.Err() != nil {
				return 0
			}
			w.loopError("process", err)
			w.setState(StateBackoff)
			return w.errorBackoff
		}
	}

	w.setState(StateBatchSleep)
	return w.batchInterval
}

// processTask захватывает, обрабатывает и завершает один task.
//
// Проигранный захват и task, изменённый во время обработки, не считаются ошибкой.
func (w *Worker) processTask(ctx context.Context, task *domain.Task) error {
	logger := telemetry.WithTaskSeq(w.logger, task.Seq)

	w.setState(StateClaiming)
	claimedAt := w.now()
	ok, err := w.store.MarkInProgress(ctx, task.Seq, claimedAt)
	if err != nil {
		return fmt.Errorf("claim task %d: %w", task.Seq, err)
	}
	if !ok {
		w.stats.claimConflicts.Add(1)
		telemetry.ClaimConflicts.WithLabelValues(w.instanceLabel).Inc()
		logger.Info("task claimed by another instance")
		return nil
	}

	w.stats.claimed.Add(1)
	telemetry.TasksClaimed.WithLabelValues(w.instanceLabel).Inc()
	logger.Info("claimed task",
		"group_id", task.GroupID,
		"tranche_id", task.TrancheID,
		"filename", task.Filename,
	)
	w.publish(ctx, mq.MessageTypeTaskClaimed, task, domain.TaskStatusInProgress, "")

	w.setState(StateProcessing)
	outcome, err := w.simulator.Process(telemetry.WithLogger(ctx, logger))
	if err != nil {
		return err
	}
	telemetry.TaskProcessing.WithLabelValues(w.instanceLabel).Observe(outcome.Delay.Seconds())

	w.setState(StateFinalizing)
	finishedAt := w.now()
	// Хранилища держат время с точностью до микросекунды
	if !finishedAt.Truncate(time.Microsecond).After(claimedAt.Truncate(time.Microsecond)) {
		finishedAt = claimedAt.Truncate(time.Microsecond).Add(time.Microsecond)
	}

	err = w.store.MarkTerminal(ctx, task.Seq, outcome.Status, outcome.ErrorDesc, finishedAt)
	switch {
	case errors.Is(err, repo.ErrInvalidState), errors.Is(err, repo.ErrNotFound):
		logger.Warn("task changed while processing, result dropped", "error", err)
		return nil
	case err != nil:
		return fmt.Errorf("finalize task %d: %w", task.Seq, err)
	}

	if outcome.Status == domain.TaskStatusSuccess {
		w.stats.succeeded.Add(1)
	} else {
		w.stats.failed.Add(1)
	}
	telemetry.TasksCompleted.WithLabelValues(w.instanceLabel, string(outcome.Status)).Inc()
	logger.Info("task finished", "status", outcome.Status, "error_desc", outcome.ErrorDesc)

	w.publish(ctx, mq.MessageTypeTaskCompleted, task, outcome.Status, outcome.ErrorDesc)
	return nil
}

func (w *Worker) loopError(stage string, err error) {
	w.stats.errors.Add(1)
	telemetry.LoopErrors.WithLabelValues(w.instanceLabel, stage).Inc()
	w.logger.Error("task loop iteration failed", "stage", stage, "error", err)
}

// publish отправляет событие; ошибки публикации только логируются.
func (w *Worker) publish(ctx context.Context, t mq.MessageType, task *domain.Task, status domain.TaskStatus, desc string) {
	if w.publisher == nil {
		return
	}

	err := w.publisher.PublishTaskEvent(ctx, t, mq.TaskEvent{
		Seq:           task.Seq,
		InstanceIndex: w.instanceIndex,
		GroupID:       task.GroupID,
		TrancheID:     task.TrancheID,
		Filename:      task.Filename,
		Status:        string(status),
		ErrorDesc:     desc,
	})
	if err != nil {
		w.logger.Warn("failed to publish task event", "type", t, "fileseqno", task.Seq, "error", err)
	}
}
