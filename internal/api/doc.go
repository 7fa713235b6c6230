// Package api содержит статусный HTTP сервер экземпляра.
//
// Структура:
//   - handler.go        — Handler с DI (хранилище, цикл, logger)
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — middleware (logging, recovery)
//   - response.go       — унифицированные JSON-ответы и обработка ошибок
//   - dto.go            — ответы статуса
//   - status_handler.go — обработчики /, /healthz, /api/v1/*
//
// API только читает: номер экземпляра, адрес хранилища, его доступность,
// состояние цикла и количество tasks по статусам.
package api
