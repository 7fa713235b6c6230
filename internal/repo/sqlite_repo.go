package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shaiso/Tranche/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteTaskRepo — репозиторий tasks поверх SQLite.
//
// Используется для локального запуска на одной машине и в тестах.
// Несколько экземпляров в одном процессе делят один *sql.DB.
type SQLiteTaskRepo struct {
	db *sql.DB
}

// OpenSQLite открывает (или создаёт) файл БД и применяет схему.
func OpenSQLite(ctx context.Context, path string) (*SQLiteTaskRepo, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite плохо переносит конкурентных писателей.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000")
	_, _ = db.ExecContext(ctx, "PRAGMA journal_mode = WAL")

	r := &SQLiteTaskRepo{db: db}
	if err := r.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// EnsureSchema создаёт таблицу tasks, если её нет.
func (r *SQLiteTaskRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, sqliteSchema); err != nil {
		return unavailable("create schema", err)
	}
	return nil
}

// Insert создаёт task и заполняет task.Seq.
func (r *SQLiteTaskRepo) Insert(ctx context.Context, task *domain.Task) error {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (groupid, trancheid, filename, status, ignoreindicator,
		                   filesize, lastupdatedtime, errordesc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullPartition(task.GroupID),
		nullPartition(task.TrancheID),
		task.Filename,
		string(task.Status),
		task.Ignore,
		task.FileSize,
		toMicros(task.LastUpdatedAt),
		nullString(task.ErrorDesc),
	)
	if err != nil {
		return unavailable("insert task", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return unavailable("insert task", err)
	}
	task.Seq = seq
	return nil
}

// Get возвращает task по fileseqno.
func (r *SQLiteTaskRepo) Get(ctx context.Context, seq int64) (*domain.Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE fileseqno = ?`, seq)
	task, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get task", err)
	}
	return task, nil
}

// List возвращает tasks по фильтру в порядке fileseqno.
func (r *SQLiteTaskRepo) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY fileseqno LIMIT ?`
	args = append(args, filter.limit())

	return r.query(ctx, "list tasks", query, args...)
}

// ListClaimable возвращает tasks NOT_STARTED без флага пропуска, по возрастанию fileseqno.
func (r *SQLiteTaskRepo) ListClaimable(ctx context.Context) ([]domain.Task, error) {
	return r.query(ctx, "list claimable tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'NOT_STARTED'
		  AND ignoreindicator = 0
		ORDER BY fileseqno`)
}

// ListStale возвращает tasks IN_PROGRESS, не обновлявшиеся с cutoff.
func (r *SQLiteTaskRepo) ListStale(ctx context.Context, cutoff time.Time) ([]domain.Task, error) {
	return r.query(ctx, "list stale tasks", `
		SELECT `+taskColumns+`
		FROM tasks
		WHERE status = 'IN_PROGRESS'
		  AND lastupdatedtime < ?
		ORDER BY fileseqno`, toMicros(cutoff))
}

// MarkInProgress захватывает task условной записью (только из NOT_STARTED).
func (r *SQLiteTaskRepo) MarkInProgress(ctx context.Context, seq int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'IN_PROGRESS', lastupdatedtime = ?
		WHERE fileseqno = ? AND status = 'NOT_STARTED'`,
		toMicros(now), seq,
	)
	if err != nil {
		return false, unavailable("mark in progress", err)
	}
	return affectedOne(result, "mark in progress")
}

// MarkTerminal записывает финальный статус task (только из IN_PROGRESS).
func (r *SQLiteTaskRepo) MarkTerminal(ctx context.Context, seq int64, status domain.TaskStatus, desc string, now time.Time) error {
	if !status.IsTerminal() {
		return fmt.Errorf("%w: %s is not terminal", ErrInvalidState, status)
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, lastupdatedtime = ?, errordesc = ?
		WHERE fileseqno = ? AND status = 'IN_PROGRESS'`,
		string(status), toMicros(now), nullString(desc), seq,
	)
	if err != nil {
		return unavailable("mark terminal", err)
	}
	ok, err := affectedOne(result, "mark terminal")
	if err != nil {
		return err
	}
	if !ok {
		return r.missOrConflict(ctx, seq)
	}
	return nil
}

// ForceFail переводит зависший task в FAILED с фиксированным описанием.
func (r *SQLiteTaskRepo) ForceFail(ctx context.Context, seq int64, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = 'FAILED', lastupdatedtime = ?, errordesc = ?
		WHERE fileseqno = ? AND status = 'IN_PROGRESS'`,
		toMicros(now), domain.ErrorDescAbandoned, seq,
	)
	if err != nil {
		return false, unavailable("force fail", err)
	}
	return affectedOne(result, "force fail")
}

// CountByStatus возвращает количество tasks по статусам.
func (r *SQLiteTaskRepo) CountByStatus(ctx context.Context) (map[domain.TaskStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
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

// Ping проверяет доступность БД.
func (r *SQLiteTaskRepo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return unavailable("ping db", err)
	}
	return nil
}

// Close закрывает БД.
func (r *SQLiteTaskRepo) Close() {
	_ = r.db.Close()
}

// --- Helpers ---

func (r *SQLiteTaskRepo) query(ctx context.Context, op, query string, args ...any) ([]domain.Task, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	var tasks []domain.Task
	for rows.Next() {
		task, err := scanSQLiteTask(rows)
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

func (r *SQLiteTaskRepo) missOrConflict(ctx context.Context, seq int64) error {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM tasks WHERE fileseqno = ?`, seq).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return unavailable("get task status", err)
	}
	return fmt.Errorf("%w: task %d is %s", ErrInvalidState, seq, status)
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	var status string
	var filename, errorDesc sql.NullString
	var groupID, trancheID, fileSize, lastUpdated sql.NullInt64

	err := row.Scan(
		&groupID,
		&trancheID,
		&task.Seq,
		&filename,
		&status,
		&task.Ignore,
		&fileSize,
		&lastUpdated,
		&errorDesc,
	)
	if err != nil {
		return nil, err
	}

	task.GroupID = partitionOrNone(groupID.Int64, groupID.Valid)
	task.TrancheID = partitionOrNone(trancheID.Int64, trancheID.Valid)
	task.Status = domain.TaskStatus(status)
	task.Filename = filename.String
	task.FileSize = int(fileSize.Int64)
	task.ErrorDesc = errorDesc.String
	if lastUpdated.Valid {
		task.LastUpdatedAt = time.UnixMicro(lastUpdated.Int64).UTC()
	}
	return &task, nil
}

func affectedOne(result sql.Result, op string) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, unavailable(op, err)
	}
	return n == 1, nil
}

func toMicros(t time.Time) int64 {
	return t.UnixMicro()
}

func partitionOrNone(id int64, valid bool) int {
	if !valid {
		return domain.NoPartition
	}
	return int(id)
}
