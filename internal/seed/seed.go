// Package seed генерирует синтетические tasks.
//
// Seed — внешний по отношению к циклу обработки шаг: вызывается не более
// одного раза при старте процесса (SEED_ON_START) или командой CLI.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shaiso/Tranche/internal/domain"
)

// Диапазоны синтетических значений.
const (
	MaxGroupID   = 2
	MaxTrancheID = 2
	MinFileSize  = 1000
	MaxFileSize  = 5000
	nameLength   = 8
)

const letters = "abcdefghijklmnopqrstuvwxyz"

// Inserter — часть хранилища, нужная seed'у.
type Inserter interface {
	Insert(ctx context.Context, task *domain.Task) error
}

// Rand — источник случайности (*rand.Rand из math/rand/v2).
type Rand interface {
	IntN(n int) int
}

// Generate создаёт count tasks в статусе NOT_STARTED без сохранения.
//
// groupid и trancheid случайны в [0, 2], чтобы задачи разошлись по
// нескольким экземплярам. Имя файла — 8 строчных букв + ".txt".
// При count <= 0 возвращает пустой срез.
func Generate(rnd Rand, count int, now time.Time) []*domain.Task {
	if count <= 0 {
		return nil
	}
	tasks := make([]*domain.Task, 0, count)
	for i := 0; i < count; i++ {
		tasks = append(tasks, domain.NewTask(
			rnd.IntN(MaxGroupID+1),
			rnd.IntN(MaxTrancheID+1),
			randomFilename(rnd),
			MinFileSize+rnd.IntN(MaxFileSize-MinFileSize+1),
			now,
		))
	}
	return tasks
}

// Run генерирует и вставляет count tasks. Возвращает вставленные tasks.
//
// Вставка построчная: ошибка на середине оставляет уже вставленные строки.
func Run(ctx context.Context, store Inserter, rnd Rand, count int, logger *slog.Logger) ([]*domain.Task, error) {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	if logger == nil {
		logger = slog.Default()
	}

	tasks := Generate(rnd, count, time.Now())
	for i, task := range tasks {
		if err := store.Insert(ctx, task); err != nil {
			return tasks[:i], fmt.Errorf("insert synthetic task %d: %w", i, err)
		}
	}

	logger.Info("inserted synthetic tasks", "count", len(tasks))
	return tasks, nil
}

func randomFilename(rnd Rand) string {
	var b strings.Builder
	b.Grow(nameLength + 4)
	for i := 0; i < nameLength; i++ {
		b.WriteByte(letters[rnd.IntN(len(letters))])
	}
	b.WriteString(".txt")
	return b.String()
}
