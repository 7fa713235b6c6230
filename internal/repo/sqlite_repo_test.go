package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
)

func openTestRepo(t *testing.T) *SQLiteTaskRepo {
	t.Helper()

	r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(r.Close)
	return r
}

func insertTask(t *testing.T, r TaskStore, task *domain.Task) *domain.Task {
	t.Helper()

	if err := r.Insert(context.Background(), task); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return task
}

func TestSQLite_InsertAssignsSeq(t *testing.T) {
	r := openTestRepo(t)
	now := time.Now()

	a := insertTask(t, r, domain.NewTask(0, 1, "a.txt", 100, now))
	b := insertTask(t, r, domain.NewTask(1, 0, "b.txt", 200, now))

	if a.Seq == 0 || b.Seq == 0 {
		t.Fatal("seq should be assigned")
	}
	if b.Seq <= a.Seq {
		t.Errorf("seq should grow: %d then %d", a.Seq, b.Seq)
	}

	got, err := r.Get(context.Background(), b.Seq)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Filename != "b.txt" || got.GroupID != 1 || got.TrancheID != 0 || got.FileSize != 200 {
		t.Errorf("unexpected task: %+v", got)
	}
	if got.Status != domain.TaskStatusNotStarted {
		t.Errorf("expected NOT_STARTED, got %s", got.Status)
	}
	if got.LastUpdatedAt.UnixMicro() != now.UnixMicro() {
		t.Errorf("expected last updated %v, got %v", now, got.LastUpdatedAt)
	}
}

func TestSQLite_GetNotFound(t *testing.T) {
	r := openTestRepo(t)

	_, err := r.Get(context.Background(), 42)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_ListClaimable_SkipsIgnoredAndOrders(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	first := insertTask(t, r, domain.NewTask(0, 0, "first.txt", 1, now))

	ignored := domain.NewTask(0, 0, "ignored.txt", 1, now)
	ignored.Ignore = true
	insertTask(t, r, ignored)

	// Игнорируемый task не выбирается ни в каком статусе
	ignoredDone := domain.NewTask(0, 0, "ignored-done.txt", 1, now)
	ignoredDone.Ignore = true
	ignoredDone.Status = domain.TaskStatusSuccess
	insertTask(t, r, ignoredDone)

	started := insertTask(t, r, domain.NewTask(0, 0, "started.txt", 1, now))
	if ok, err := r.MarkInProgress(ctx, started.Seq, now); err != nil || !ok {
		t.Fatalf("mark in progress: ok=%v err=%v", ok, err)
	}

	last := insertTask(t, r, domain.NewTask(0, 0, "last.txt", 1, now))

	tasks, err := r.ListClaimable(ctx)
	if err != nil {
		t.Fatalf("list claimable: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 claimable tasks, got %d", len(tasks))
	}
	if tasks[0].Seq != first.Seq || tasks[1].Seq != last.Seq {
		t.Errorf("expected [%d %d], got [%d %d]", first.Seq, last.Seq, tasks[0].Seq, tasks[1].Seq)
	}
	for _, task := range tasks {
		if task.Ignore {
			t.Errorf("ignored task %d returned", task.Seq)
		}
	}
}

func TestSQLite_NullPartitionColumns(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()

	// Строки, вставленные внешним ingest, могут не иметь groupid/trancheid
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (groupid, trancheid, filename, status, ignoreindicator, filesize, lastupdatedtime)
		VALUES (NULL, 1, 'x.txt', 'NOT_STARTED', 0, 1, 0), (2, NULL, 'y.txt', 'NOT_STARTED', 0, 1, 0)`)
	if err != nil {
		t.Fatalf("raw insert: %v", err)
	}
	valid := insertTask(t, r, domain.NewTask(1, 1, "valid.txt", 1, time.Now()))

	tasks, err := r.ListClaimable(ctx)
	if err != nil {
		t.Fatalf("list claimable: %v", err)
	}
	if len(tasks) != 3 {
		t.Fatalf("expected 3 claimable tasks, got %d", len(tasks))
	}
	if tasks[0].GroupID != domain.NoPartition || tasks[0].TrancheID != 1 {
		t.Errorf("NULL groupid should read as NoPartition: %+v", tasks[0])
	}
	if tasks[1].GroupID != 2 || tasks[1].TrancheID != domain.NoPartition {
		t.Errorf("NULL trancheid should read as NoPartition: %+v", tasks[1])
	}
	if tasks[2].Seq != valid.Seq {
		t.Errorf("expected valid task last, got %+v", tasks[2])
	}

	// NoPartition пишется обратно как NULL
	none := insertTask(t, r, domain.NewTask(domain.NoPartition, domain.NoPartition, "none.txt", 1, time.Now()))
	var groupIsNull bool
	if err := r.db.QueryRowContext(ctx, `SELECT groupid IS NULL FROM tasks WHERE fileseqno = ?`, none.Seq).Scan(&groupIsNull); err != nil {
		t.Fatalf("query: %v", err)
	}
	if !groupIsNull {
		t.Error("NoPartition should be stored as NULL")
	}
}

func TestSQLite_MarkInProgress_Conditional(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	task := insertTask(t, r, domain.NewTask(0, 0, "a.txt", 1, now.Add(-time.Second)))

	ok, err := r.MarkInProgress(ctx, task.Seq, now)
	if err != nil || !ok {
		t.Fatalf("first claim should win: ok=%v err=%v", ok, err)
	}

	// Второй захват проигрывает
	ok, err = r.MarkInProgress(ctx, task.Seq, now.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("second claim should lose")
	}

	got, _ := r.Get(ctx, task.Seq)
	if got.Status != domain.TaskStatusInProgress {
		t.Errorf("expected IN_PROGRESS, got %s", got.Status)
	}
	if got.LastUpdatedAt.UnixMicro() != now.UnixMicro() {
		t.Error("losing claim must not touch lastupdatedtime")
	}
}

func TestSQLite_MarkTerminal(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	task := insertTask(t, r, domain.NewTask(0, 0, "a.txt", 1, now))

	// Из NOT_STARTED сразу в финальный статус нельзя
	err := r.MarkTerminal(ctx, task.Seq, domain.TaskStatusSuccess, domain.ErrorDescNone, now)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}

	r.MarkInProgress(ctx, task.Seq, now.Add(time.Second))

	if err := r.MarkTerminal(ctx, task.Seq, domain.TaskStatusInProgress, "", now); !errors.Is(err, ErrInvalidState) {
		t.Errorf("non-terminal status should be rejected, got %v", err)
	}

	if err := r.MarkTerminal(ctx, task.Seq, domain.TaskStatusFailed, domain.ErrorDescSimulated, now.Add(2*time.Second)); err != nil {
		t.Fatalf("mark terminal: %v", err)
	}

	got, _ := r.Get(ctx, task.Seq)
	if got.Status != domain.TaskStatusFailed || got.ErrorDesc != domain.ErrorDescSimulated {
		t.Errorf("unexpected task: %+v", got)
	}

	// Финальный статус не меняется
	err = r.MarkTerminal(ctx, task.Seq, domain.TaskStatusSuccess, domain.ErrorDescNone, now.Add(3*time.Second))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState for terminal task, got %v", err)
	}

	if err := r.MarkTerminal(ctx, 999, domain.TaskStatusSuccess, "", now); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLite_ListStaleAndForceFail(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	stale := insertTask(t, r, domain.NewTask(0, 0, "stale.txt", 1, now))
	r.MarkInProgress(ctx, stale.Seq, now.Add(-2*time.Minute))

	fresh := insertTask(t, r, domain.NewTask(0, 0, "fresh.txt", 1, now))
	r.MarkInProgress(ctx, fresh.Seq, now.Add(-10*time.Second))

	// NOT_STARTED со старым временем не считается зависшим
	insertTask(t, r, domain.NewTask(0, 0, "old.txt", 1, now.Add(-time.Hour)))

	tasks, err := r.ListStale(ctx, now.Add(-time.Minute))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Seq != stale.Seq {
		t.Fatalf("expected only stale task %d, got %+v", stale.Seq, tasks)
	}

	ok, err := r.ForceFail(ctx, stale.Seq, now)
	if err != nil || !ok {
		t.Fatalf("force fail: ok=%v err=%v", ok, err)
	}

	got, _ := r.Get(ctx, stale.Seq)
	if got.Status != domain.TaskStatusFailed {
		t.Errorf("expected FAILED, got %s", got.Status)
	}
	if got.ErrorDesc != domain.ErrorDescAbandoned {
		t.Errorf("expected abandoned description, got %q", got.ErrorDesc)
	}

	// Повторный ForceFail ничего не меняет
	ok, err = r.ForceFail(ctx, stale.Seq, now)
	if err != nil || ok {
		t.Errorf("second force fail should be a no-op: ok=%v err=%v", ok, err)
	}
}

func TestSQLite_ListAndCount(t *testing.T) {
	r := openTestRepo(t)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		insertTask(t, r, domain.NewTask(i, i, "f.txt", 1, now))
	}
	r.MarkInProgress(ctx, 1, now)

	all, err := r.List(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 tasks, got %d", len(all))
	}

	inProgress, err := r.List(ctx, TaskFilter{Status: domain.TaskStatusInProgress})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(inProgress) != 1 || inProgress[0].Seq != 1 {
		t.Errorf("expected only task 1, got %+v", inProgress)
	}

	limited, _ := r.List(ctx, TaskFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("expected 2 tasks with limit, got %d", len(limited))
	}

	counts, err := r.CountByStatus(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if counts[domain.TaskStatusNotStarted] != 2 || counts[domain.TaskStatusInProgress] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), OpenConfig{Driver: "oracle"})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Errorf("expected ErrUnknownDriver, got %v", err)
	}
}

func TestOpen_SQLite(t *testing.T) {
	store, err := Open(context.Background(), OpenConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "nested", "tasks.db"),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("ping: %v", err)
	}
}

func TestSQLite_ClosedStoreIsUnavailable(t *testing.T) {
	r, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "tasks.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	r.Close()

	_, err = r.ListClaimable(context.Background())
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("expected ErrStoreUnavailable, got %v", err)
	}
}
