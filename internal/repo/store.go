package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
)

// TaskStore — общий контракт бэкендов таблицы tasks.
//
// Реализации: PGTaskRepo (PostgreSQL) и SQLiteTaskRepo (SQLite).
// Каждая операция коммитится отдельно, транзакций между вызовами нет.
type TaskStore interface {
	EnsureSchema(ctx context.Context) error
	Insert(ctx context.Context, task *domain.Task) error
	Get(ctx context.Context, seq int64) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	ListClaimable(ctx context.Context) ([]domain.Task, error)
	ListStale(ctx context.Context, cutoff time.Time) ([]domain.Task, error)
	MarkInProgress(ctx context.Context, seq int64, now time.Time) (bool, error)
	MarkTerminal(ctx context.Context, seq int64, status domain.TaskStatus, desc string, now time.Time) error
	ForceFail(ctx context.Context, seq int64, now time.Time) (bool, error)
	CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error)
	Ping(ctx context.Context) error
	Close()
}

// TaskFilter — параметры выборки для List.
type TaskFilter struct {
	Status domain.TaskStatus // пусто — все статусы
	Limit  int               // <= 0 — defaultListLimit
}

const defaultListLimit = 50

func (f TaskFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Драйверы хранилища.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// OpenConfig — параметры открытия хранилища.
type OpenConfig struct {
	Driver string // postgres (по умолчанию) или sqlite
	DSN    string // для postgres
	Path   string // для sqlite
}

// Open открывает хранилище выбранного драйвера.
func Open(ctx context.Context, cfg OpenConfig) (TaskStore, error) {
	switch cfg.Driver {
	case "", DriverPostgres:
		pool, err := NewPool(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		return NewPGTaskRepo(pool), nil
	case DriverSQLite, "sqlite3":
		return OpenSQLite(ctx, cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
