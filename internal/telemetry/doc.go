// Package telemetry обеспечивает наблюдаемость экземпляра.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики цикла обработки
//
// Экземпляры пишут логи в едином формате
// и экспортируют метрики на /metrics endpoint.
package telemetry
