package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/Tranche/internal/domain"
	"github.com/shaiso/Tranche/internal/mq"
	"github.com/shaiso/Tranche/internal/repo"
)

// --- Helpers ---

type testEnv struct {
	path   string
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	json   bool
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{
		path:   filepath.Join(t.TempDir(), "tasks.db"),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
	}
}

func (e *testEnv) storeFn(ctx context.Context) (repo.TaskStore, error) {
	return repo.Open(ctx, repo.OpenConfig{Driver: repo.DriverSQLite, Path: e.path})
}

func (e *testEnv) outputFn() *Output {
	return NewOutputTo(e.json, e.stdout, e.stderr)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func run(t *testing.T, cmd *cobra.Command, args ...string) error {
	t.Helper()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	return cmd.ExecuteContext(context.Background())
}

func (e *testEnv) insert(t *testing.T, task *domain.Task) *domain.Task {
	t.Helper()

	store, err := e.storeFn(context.Background())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	if err := store.Insert(context.Background(), task); err != nil {
		t.Fatalf("insert: %v", err)
	}
	return task
}

// --- Store commands ---

func TestSchemaCmd(t *testing.T) {
	env := newTestEnv(t)

	if err := run(t, NewSchemaCmd(env.storeFn, env.outputFn)); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if !strings.Contains(env.stderr.String(), "Schema is up to date") {
		t.Errorf("unexpected stderr %q", env.stderr.String())
	}
}

func TestSeedCmd(t *testing.T) {
	env := newTestEnv(t)
	env.json = true

	err := run(t, NewSeedCmd(env.storeFn, env.outputFn, discardLogger), "--count", "4")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal(env.stdout.Bytes(), &tasks); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if len(tasks) != 4 {
		t.Fatalf("expected 4 tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.Status != domain.TaskStatusNotStarted || task.Seq == 0 {
			t.Errorf("unexpected seeded task: %+v", task)
		}
	}
	if !strings.Contains(env.stderr.String(), "Inserted 4 tasks") {
		t.Errorf("unexpected stderr %q", env.stderr.String())
	}
}

func TestSeedCmd_NegativeCount(t *testing.T) {
	env := newTestEnv(t)

	if err := run(t, NewSeedCmd(env.storeFn, env.outputFn, discardLogger), "--count", "-1"); err == nil {
		t.Error("expected error for negative count")
	}
}

func TestTasksListCmd(t *testing.T) {
	env := newTestEnv(t)
	now := time.Now()
	env.insert(t, domain.NewTask(0, 1, "alpha.txt", 1200, now))
	env.insert(t, domain.NewTask(2, 2, "beta.txt", 3400, now))

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "list"); err != nil {
		t.Fatalf("list: %v", err)
	}

	out := env.stdout.String()
	for _, want := range []string{"SEQ", "alpha.txt", "beta.txt", "NOT_STARTED"} {
		if !strings.Contains(out, want) {
			t.Errorf("output should contain %q:\n%s", want, out)
		}
	}
}

func TestTasksListCmd_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	env.json = true
	env.insert(t, domain.NewTask(0, 0, "a.txt", 1, time.Now()))

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "list", "--status", "success"); err != nil {
		t.Fatalf("list: %v", err)
	}

	var tasks []domain.Task
	if err := json.Unmarshal(env.stdout.Bytes(), &tasks); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("expected no SUCCESS tasks, got %d", len(tasks))
	}

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "list", "--status", "DONE"); err == nil {
		t.Error("expected error for unknown status")
	}
}

func TestTasksCountCmd(t *testing.T) {
	env := newTestEnv(t)
	env.json = true
	env.insert(t, domain.NewTask(0, 0, "a.txt", 1, time.Now()))
	env.insert(t, domain.NewTask(1, 1, "b.txt", 1, time.Now()))

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "count"); err != nil {
		t.Fatalf("count: %v", err)
	}

	var counts map[string]int
	if err := json.Unmarshal(env.stdout.Bytes(), &counts); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if counts["NOT_STARTED"] != 2 || counts["SUCCESS"] != 0 {
		t.Errorf("unexpected counts: %v", counts)
	}
	if len(counts) != len(domain.AllTaskStatuses) {
		t.Errorf("every status should be listed, got %v", counts)
	}
}

func TestTasksShowCmd(t *testing.T) {
	env := newTestEnv(t)
	task := env.insert(t, domain.NewTask(1, 2, "gamma.txt", 2000, time.Now()))

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "show", "1"); err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(env.stdout.String(), task.Filename) {
		t.Errorf("output should contain filename:\n%s", env.stdout.String())
	}

	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "show", "99"); err == nil {
		t.Error("expected error for missing task")
	}
	if err := run(t, NewTasksCmd(env.storeFn, env.outputFn), "show", "abc"); err == nil {
		t.Error("expected error for invalid fileseqno")
	}
}

func TestReclaimCmd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.insert(t, domain.NewTask(0, 0, "a.txt", 1, time.Now().Add(-time.Hour)))

	store, err := env.storeFn(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	store.MarkInProgress(ctx, task.Seq, time.Now().Add(-2*time.Minute))
	store.Close()

	if err := run(t, NewReclaimCmd(env.storeFn, env.outputFn, discardLogger)); err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !strings.Contains(env.stderr.String(), "Reclaimed 1 tasks") {
		t.Errorf("unexpected stderr %q", env.stderr.String())
	}

	store, _ = env.storeFn(ctx)
	defer store.Close()
	got, err := store.Get(ctx, task.Seq)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.TaskStatusFailed || got.ErrorDesc != domain.ErrorDescAbandoned {
		t.Errorf("unexpected task: %+v", got)
	}
}

// --- Instance commands ---

func TestInstanceCmds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/status":
			w.Write([]byte(`{"data":{"instance_index":1,"store_target":"db:5432/x","store_reachable":true,"loop_state":"BATCH_SLEEP","stats":{"claimed":5,"succeeded":4,"failed":1}}}`))
		case "/api/v1/tasks/stats":
			w.Write([]byte(`{"data":{"counts":{"SUCCESS":4,"FAILED":1},"total":5}}`))
		case "/healthz":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("store unavailable"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	env := newTestEnv(t)
	clientFn := func() *Client { return NewClient(srv.URL + "/") }

	if err := run(t, NewInstanceCmd(clientFn, env.outputFn), "status"); err != nil {
		t.Fatalf("status: %v", err)
	}
	out := env.stdout.String()
	for _, want := range []string{"INSTANCE", "db:5432/x", "BATCH_SLEEP", "5"} {
		if !strings.Contains(out, want) {
			t.Errorf("status output should contain %q:\n%s", want, out)
		}
	}

	env.stdout.Reset()
	if err := run(t, NewInstanceCmd(clientFn, env.outputFn), "stats"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	// Статусы отсортированы по имени
	out = env.stdout.String()
	if strings.Index(out, "FAILED") > strings.Index(out, "SUCCESS") {
		t.Errorf("rows should be sorted:\n%s", out)
	}

	err := run(t, NewInstanceCmd(clientFn, env.outputFn), "health")
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Errorf("expected unhealthy error, got %v", err)
	}
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":{"code":"STORE_UNAVAILABLE","message":"store unavailable"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).TaskStats()
	if err == nil || err.Error() != "STORE_UNAVAILABLE: store unavailable" {
		t.Errorf("unexpected error: %v", err)
	}
}

// --- Output ---

func TestOutput_Table(t *testing.T) {
	var buf bytes.Buffer
	out := NewOutputTo(false, &buf, io.Discard)

	out.Print([]string{"A", "LONG"}, [][]string{{"1", "2"}}, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header, separator and row, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[1], "-  ----") {
		t.Errorf("unexpected separator %q", lines[1])
	}
}

func TestPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	handler := printEvent(NewOutputTo(false, &buf, io.Discard))

	msg := mq.NewMessage(mq.MessageTypeTaskCompleted, mq.TaskEvent{
		Seq:           7,
		InstanceIndex: 2,
		GroupID:       2,
		TrancheID:     0,
		Status:        "FAILED",
		ErrorDesc:     "Simulated error.",
	})
	if err := handler(context.Background(), msg); err != nil {
		t.Fatalf("handler: %v", err)
	}

	line := buf.String()
	for _, want := range []string{"task.completed", "seq=7", "instance=2", "status=FAILED", `error="Simulated error."`} {
		if !strings.Contains(line, want) {
			t.Errorf("line should contain %q: %s", want, line)
		}
	}
}
