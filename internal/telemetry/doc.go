// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики
//
// Worker экспортирует метрики на /metrics endpoint.
// Единый формат логирования управляется LOG_LEVEL и LOG_FORMAT.
package telemetry
