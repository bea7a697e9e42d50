// Package domain содержит основные типы данных Publika.
//
// Типы:
//   - Schedule — декларация «когда и как часто публиковать»
//   - Post — единица контента (минимальная проекция для движка)
//   - PostTarget — привязка post к аккаунту назначения
//   - QueueJob — одна диспетчеризуемая попытка публикации
//   - SocialAccount — подключённый аккаунт соцсети
//
// Статусы и переходы — status.go, коды ошибок — errorcode.go.
// Все переходы выполняются через методы Mark* / RecordFailure,
// чтобы инварианты жили в одном месте.
//
// Domain types не зависят от БД и других пакетов — только stdlib и uuid.
package domain
