package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shaiso/Tranche/internal/domain"
)

// PGTaskRepo — репозиторий tasks поверх PostgreSQL.
type PGTaskRepo struct {
	pool *pgxpool.Pool
}

// NewPGTaskRepo создаёт новый PGTaskRepo.
func NewPGTaskRepo(pool *pgxpool.Pool) *PGTaskRepo {
	return &PGTaskRepo{pool: pool}
}

// EnsureSchema создаёт таблицу tasks, если её нет.
func (r *PGTaskRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, pgSchema); err != nil {
		return unavailable("create schema", err)
	}
	return nil
}

// Insert создаёт task и заполняет task.Seq.
func (r *PGTaskRepo) Insert(ctx context.Context, task *domain.Task) error {
	query := `
		INSERT INTO tasks (groupid, trancheid, filename, status, ignoreindicator,
		                   filesize, lastupdatedtime, errordesc)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING fileseqno
	`
	err := r.pool.QueryRow(ctx, query,
		nullPartition(task.GroupID),
		nullPartition(task.TrancheID),
		task.Filename,
		task.Status,
		task.Ignore,
		task.FileSize,
		task.LastUpdatedAt.UTC(),
		nullString(task.ErrorDesc),
	).Scan(&task.Seq)
	if err != nil {
		return unavailable("insert task", err)
	}
	return nil
}

// Get возвращает task по fileseqno.
func (r *PGTaskRepo) Get(ctx context.Context, seq int64) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE fileseqno = $1`
	task, err := scanTask(r.pool.QueryRow(ctx, query, seq))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return task, nil
}

// List возвращает tasks по фильтру в порядке fileseqno.
func (r *PGTaskRepo) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY fileseqno
		LIMIT $2
	`
	rows, err := r.pool.Query(ctx, query, nullString(string(filter.Status)), filter.limit())
	if err != nil {
		return nil, unavailable("list tasks", err)
	}
	return collectTasks(rows, "list tasks")
}

// ListClaimable возвращает tasks NOT_STARTED без флага пропуска, по возрастанию fileseqno.
// Фильтр по партиции применяется вызывающим кодом.
func (r *PGTaskRepo) ListClaimable(ctx context.Context) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'NOT_STARTED'
		  AND ignoreindicator = false
		ORDER BY fileseqno
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, unavailable("list claimable tasks", err)
	}
	return collectTasks(rows, "list claimable tasks")
}

// ListStale возвращает tasks IN_PROGRESS, не обновлявшиеся с cutoff.
func (r *PGTaskRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE status = 'IN_PROGRESS'
		  AND lastupdatedtime < $1
		ORDER BY fileseqno
	`
	rows, err := r.pool.Query(ctx, query, cutoff.UTC())
	if err != nil {
		return nil, unavailable("list stale tasks", err)
	}
	return collectTasks(rows, "list stale tasks")
}

// MarkInProgress захватывает task.
//
// Запись условная: строка меняется, только если она ещё NOT_STARTED.
// false означает, что task уже захватил другой экземпляр.
func (r *PGTaskRepo) MarkInProgress(ctx context.Context, seq int64, now time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'IN_PROGRESS', lastupdatedtime = $1
		WHERE fileseqno = $2 AND status = 'NOT_STARTED'
	`
	result, err := r.pool.Exec(ctx, query, now.UTC(), seq)
	if err != nil {
		return false, unavailable("mark in progress", err)
	}
	return result.RowsAffected() == 1, nil
}

// MarkTerminal записывает финальный статус task.
//
// Обновляется только строка в IN_PROGRESS: если reclaimer уже перевёл
// task в FAILED, возвращается ErrInvalidState.
func (r *PGTaskRepo) MarkTerminal(ctx context.Context, seq int64, status domain.TaskStatus, desc string, now time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidState, status)
	}

	query := `
		UPDATE tasks
		SET status = $1, lastupdatedtime = $2, errordesc = $3
		WHERE fileseqno = $4 AND status = 'IN_PROGRESS'
	`
	result, err := r.pool.Exec(ctx, query, status, now.UTC(), nullString(desc), seq)
	if err != nil {
		return unavailable("mark terminal", err)
	}
	if result.RowsAffected() == 0 {
		return r.missOrConflict(ctx, seq)
	}
	return nil
}

// ForceFail переводит зависший task в FAILED с фиксированным описанием.
// false — task уже вышел из IN_PROGRESS.
func (r *PGTaskRepo) ForceFail(ctx context.Context, seq int64, now time.Time) (bool, error) {
	query := `
		UPDATE tasks
		SET status = 'FAILED', lastupdatedtime = $1, errordesc = $2
		WHERE fileseqno = $3 AND status = 'IN_PROGRESS'
	`
	result, err := r.pool.Exec(ctx, query, now.UTC(), domain.ErrorDescAbandoned, seq)
	if err != nil {
		return false, unavailable("force fail", err)
	}
	return result.RowsAffected() == 1, nil
}

// CountByStatus возвращает количество tasks по статусам.
func (r *PGTaskRepo) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, unavailable("count tasks", err)
	}
	defer rows.Close()

	counts := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, unavailable("scan count", err)
		}
		counts[domain.TaskStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("count tasks", err)
	}
	return counts, nil
}

// Ping проверяет соединение с БД.
func (r *PGTaskRepo) Ping(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return unavailable("ping db", err)
	}
	return nil
}

// Close закрывает пул.
func (r *PGTaskRepo) Close() {
	r.pool.Close()
}

// --- Helpers ---

func (r *PGTaskRepo) missOrConflict(ctx context.Context, seq int64) error {
	var status string
	err := r.pool.QueryRow(ctx, `SELECT status FROM tasks WHERE fileseqno = $1`, seq).Scan(&status)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("get task status", err)
	}
	return fmt.Errorf("%w: task %d is %s", ErrInvalidState, seq, status)
}

func collectTasks(rows pgx.Rows, op string) ([]domain.Task, error) {
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		tasks = append(tasks, *task)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return tasks, nil
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	var status string
	var ignore *bool
	var filename, errorDesc *string
	var groupID, trancheID, fileSize *int
	var lastUpdated *time.Time

	err := row.Scan(
		&groupID,
		&trancheID,
		&task.Seq,
		&filename,
		&status,
		&ignore,
		&fileSize,
		&lastUpdated,
		&errorDesc,
	)
	if err != nil {
		return nil, err
	}

	task.GroupID = domain.NoPartition
	if groupID != nil {
		task.GroupID = *groupID
	}
	task.TrancheID = domain.NoPartition
	if trancheID != nil {
		task.TrancheID = *trancheID
	}
	task.Status = domain.TaskStatus(status)
	if filename != nil {
		task.Filename = *filename
	}
	if ignore != nil {
		task.Ignore = *ignore
	}
	if fileSize != nil {
		task.FileSize = *fileSize
	}
	if lastUpdated != nil {
		task.LastUpdatedAt = lastUpdated.UTC()
	}
	if errorDesc != nil {
		task.ErrorDesc = *errorDesc
	}

	return &task, nil
}

// nullPartition возвращает nil для domain.NoPartition (для NULL в БД).
func nullPartition(id int) *int {
	if id == domain.NoPartition {
		return nil
	}
	return &id
}

// nullString возвращает nil для пустой строки (для NULL в БД).
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
