// Package cli реализует команды publika-ctl.
//
// ctl — операционный инструмент: просмотр schedules и jobs, пауза
// schedule, отмена job, ручной requeue зависших jobs. Работает с БД
// напрямую через repo-слой.
//
// Использование:
//
//	publika-ctl [--db-url DSN] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	schedule  Управление schedules (list, show, pause, resume)
//	job       Управление queue jobs (list, show, cancel, requeue-stuck)
package cli
