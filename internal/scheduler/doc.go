// Package scheduler превращает расписания публикаций в queue jobs.
//
// Scheduler периодически оценивает активные schedules с истекшим
// next_run_at и материализует due-срабатывания как jobs — ровно один
// job на пару (schedule, target) для конкретного срабатывания.
//
// Типы расписаний:
//   - single    — одна публикация в scheduled_at
//   - recurring — по cron-паттерну или интервалу от последнего запуска
//   - evergreen — по одному post из именованной очереди за срабатывание,
//     с pacing-отступом
//
// Структура:
//   - scheduler.go  — основная логика (ProcessSchedules, dispatch по типам)
//   - recurrence.go — парсинг recurrence-паттернов (cron + дескрипторы)
//
// Идемпотентность: конфликт уникальности при вставке job означает
// «уже запланировано» и не считается ошибкой. Ошибка одного schedule
// изолируется и не блокирует остальные.
package scheduler
