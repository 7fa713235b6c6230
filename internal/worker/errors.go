package worker

import "errors"

// Ошибки воркера.
var (
	// ErrNoStore — Worker создан без хранилища.
	ErrNoStore = errors.New("worker has no task store")

	// ErrAlreadyStarted — Start вызван повторно.
	ErrAlreadyStarted = errors.New("worker already started")
)
