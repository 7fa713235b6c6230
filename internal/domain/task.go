package domain

import (
	"time"
)

// Описания ошибок, которые записываются в errordesc.
const (
	// ErrorDescNone пишется при успешном завершении.
	ErrorDescNone = "No Error"

	// ErrorDescSimulated пишется при синтетическом отказе обработки.
	ErrorDescSimulated = "Simulated error."

	// ErrorDescAbandoned пишется reclaimer'ом для зависших tasks.
	ErrorDescAbandoned = "Instance down or did not process in time"
)

// NoPartition заменяет NULL в groupid/trancheid. Не совпадает ни с одним
// индексом экземпляра, поэтому такой task не выбирается никем.
const NoPartition = -1

// Task — строка таблицы tasks, единица работы.
//
// Task создаётся seed'ом (или внешним ingest) в статусе NOT_STARTED.
// Его захватывает один экземпляр: NOT_STARTED → IN_PROGRESS → SUCCESS/FAILED.
// Если экземпляр упал, Reclaimer переводит task в FAILED.
// Ядро task'и никогда не удаляет.
type Task struct {
	// Seq — fileseqno, назначается хранилищем. Определяет порядок захвата.
	Seq int64 `json:"seq"`

	// GroupID и TrancheID используются только для партиционирования.
	// NULL в БД читается как NoPartition.
	GroupID   int `json:"group_id"`
	TrancheID int `json:"tranche_id"`

	// Filename — описательное имя файла.
	Filename string `json:"filename"`

	// Status — текущий статус task.
	Status TaskStatus `json:"status"`

	// Ignore — флаг пропуска. Такой task никогда не выбирается.
	Ignore bool `json:"ignore"`

	// FileSize — информационное поле.
	FileSize int `json:"file_size"`

	// LastUpdatedAt обновляется на каждом переходе статуса.
	// Служит часами живости для Reclaimer.
	LastUpdatedAt time.Time `json:"last_updated_at"`

	// ErrorDesc — описание результата, заполняется на финальных переходах.
	ErrorDesc string `json:"error_desc,omitempty"`
}

// IsClaimable возвращает true, если task можно захватить (без учёта партиции).
func (t *Task) IsClaimable() bool {
	return t.Status == TaskStatusNotStarted && !t.Ignore
}

// IsStale возвращает true, если task в IN_PROGRESS и не обновлялся с cutoff.
func (t *Task) IsStale(cutoff time.Time) bool {
	return t.Status == TaskStatusInProgress && t.LastUpdatedAt.Before(cutoff)
}

// NewTask создаёт task в статусе NOT_STARTED.
func NewTask(groupID, trancheID int, filename string, fileSize int, now time.Time) *Task {
	return &Task{
		GroupID:       groupID,
		TrancheID:     trancheID,
		Filename:      filename,
		Status:        TaskStatusNotStarted,
		FileSize:      fileSize,
		LastUpdatedAt: now,
	}
}
