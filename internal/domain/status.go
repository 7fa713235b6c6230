package domain

// TaskStatus — статус обработки task.
//
// Жизненный цикл:
//
//	NOT_STARTED → IN_PROGRESS → SUCCESS
//	                          ↘ FAILED (в том числе через reclaim зависших)
//
// Возврата в NOT_STARTED нет: брошенные tasks завершаются FAILED,
// повторная обработка возможна только через повторный seed.
type TaskStatus string

const (
	// TaskStatusNotStarted — task ожидает захвата экземпляром.
	TaskStatusNotStarted TaskStatus = "NOT_STARTED"

	// TaskStatusInProgress — task захвачен и обрабатывается.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"

	// TaskStatusSuccess — task успешно обработан.
	TaskStatusSuccess TaskStatus = "SUCCESS"

	// TaskStatusFailed — обработка завершилась ошибкой или экземпляр не успел.
	TaskStatusFailed TaskStatus = "FAILED"
)

// AllTaskStatuses перечисляет статусы в порядке жизненного цикла.
var AllTaskStatuses = []TaskStatus{
	TaskStatusNotStarted,
	TaskStatusInProgress,
	TaskStatusSuccess,
	TaskStatusFailed,
}

// String возвращает строковое представление TaskStatus.
func (s TaskStatus) String() string {
	return string(s)
}

// IsValid возвращает true для известных статусов.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusNotStarted, TaskStatusInProgress, TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal возвращает true, если статус финальный.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusFailed:
		return true
	default:
		return false
	}
}

// CanTransitionTo проверяет допустимость перехода s → next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusNotStarted:
		return next == TaskStatusInProgress
	case TaskStatusInProgress:
		return next.IsTerminal()
	default:
		return false
	}
}

// ParseTaskStatus парсит строку в TaskStatus.
// Второе значение false, если статус неизвестен.
func ParseTaskStatus(s string) (TaskStatus, bool) {
	status := TaskStatus(s)
	return status, status.IsValid()
}
