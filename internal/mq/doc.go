// Package mq публикует события жизненного цикла tasks в RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchange, очереди событий, bindings
//   - publisher.go  — публикация событий task.claimed / task.completed / task.reclaimed
//   - consumer.go   — потребление событий (используется командой CLI watch)
//
// События — только для наблюдаемости. Источник истины о статусе task —
// таблица tasks; потеря события ничего не ломает.
//
// Exchanges:
//   - tranche.tasks — события tasks (direct)
package mq
