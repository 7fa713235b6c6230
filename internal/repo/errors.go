package repo

import (
	"errors"
	"fmt"
)

// Общие ошибки репозиториев.
var (
	// ErrNotFound — запись не найдена в БД.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState — операция невозможна в текущем состоянии
	// (условное обновление не затронуло ни одной строки).
	ErrInvalidState = errors.New("invalid state")

	// ErrStoreUnavailable — хранилище недоступно или запрос упал.
	// Ошибка временная: повтор выполняется на уровне цикла, не внутри репозитория.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUnknownDriver — неизвестный драйвер хранилища.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// unavailable оборачивает ошибку драйвера в ErrStoreUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStoreUnavailable, op, err)
}
