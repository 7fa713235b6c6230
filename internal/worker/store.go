package worker

import (
	"context"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/mq"
)

// StaleStore — операции хранилища, нужные Reclaimer.
type StaleStore interface {
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Task, error)
	ForceFail(ctx context.Context, seq int64, now time.Time) (bool, error)
}

// Store — операции хранилища, нужные циклу обработки.
// Реализации: repo.PGTaskRepo, repo.SQLiteTaskRepo.
type Store interface {
	StaleStore
	ListClaimable(ctx context.Context) ([]domain.Task, error)
	MarkInProgress(ctx context.Context, seq int64, now time.Time) (bool, error)
	MarkTerminal(ctx context.Context, seq int64, status domain.TaskStatus, desc string, now time.Time) error
}

// EventPublisher публикует события жизненного цикла (mq.Publisher).
// nil — события отключены.
type EventPublisher interface {
	PublishTaskEvent(ctx context.Context, t mq.MessageType, event mq.TaskEvent) error
}
