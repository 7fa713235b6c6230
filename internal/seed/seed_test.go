package seed

import (
	"context"
	"errors"
	"math/rand/v2"
	"regexp"
	"testing"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
)

type memInserter struct {
	tasks   []*domain.Task
	failAt  int
	nextSeq int64
}

func (m *memInserter) Insert(_ context.Context, task *domain.Task) error {
	if m.failAt > 0 && len(m.tasks) == m.failAt {
		return errors.New("store down")
	}
	m.nextSeq++
	task.Seq = m.nextSeq
	m.tasks = append(m.tasks, task)
	return nil
}

func TestGenerate_Ranges(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))
	now := time.Now()
	name := regexp.MustCompile(`^[a-z]{8}\.txt$`)

	tasks := Generate(rnd, 200, now)
	if len(tasks) != 200 {
		t.Fatalf("expected 200 tasks, got %d", len(tasks))
	}

	for _, task := range tasks {
		if task.GroupID < 0 || task.GroupID > MaxGroupID {
			t.Errorf("group %d out of range", task.GroupID)
		}
		if task.TrancheID < 0 || task.TrancheID > MaxTrancheID {
			t.Errorf("tranche %d out of range", task.TrancheID)
		}
		if task.FileSize < MinFileSize || task.FileSize > MaxFileSize {
			t.Errorf("file size %d out of range", task.FileSize)
		}
		if !name.MatchString(task.Filename) {
			t.Errorf("unexpected filename %q", task.Filename)
		}
		if task.Status != domain.TaskStatusNotStarted || task.Ignore {
			t.Errorf("task should be claimable: %+v", task)
		}
		if !task.LastUpdatedAt.Equal(now) {
			t.Error("last updated should be set to now")
		}
	}
}

func TestGenerate_NonPositiveCount(t *testing.T) {
	rnd := rand.New(rand.NewPCG(1, 2))

	for _, count := range []int{0, -3} {
		if tasks := Generate(rnd, count, time.Now()); len(tasks) != 0 {
			t.Errorf("count %d: expected no tasks, got %d", count, len(tasks))
		}
	}
}

func TestRun_Inserts(t *testing.T) {
	store := &memInserter{}

	tasks, err := Run(context.Background(), store, rand.New(rand.NewPCG(3, 4)), 15, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 15 || len(store.tasks) != 15 {
		t.Fatalf("expected 15 inserted tasks, got %d/%d", len(tasks), len(store.tasks))
	}
	if tasks[14].Seq != 15 {
		t.Errorf("seq should be assigned by store, got %d", tasks[14].Seq)
	}
}

func TestRun_StopsOnError(t *testing.T) {
	store := &memInserter{failAt: 2}

	tasks, err := Run(context.Background(), store, nil, 5, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(tasks) != 2 {
		t.Errorf("expected 2 inserted tasks before failure, got %d", len(tasks))
	}
}
