// Package worker диспетчеризует и выполняет publish jobs.
//
// # Обзор
//
// Worker — компонент Publika, который доводит запланированные
// публикации до внешних платформ. Состоит из двух частей:
//
//   - Worker — диспетчер: polling due jobs из БД, ограничение
//     конкурентности, retry-поток, периодический проход scheduler'а
//     и reaper истёкших аренд
//   - Processor — исполнитель одного job: атомарный claim, merge
//     контента, publish-вызов, фиксация результата
//
// Workers масштабируются горизонтально — несколько экземпляров могут
// работать над одной БД, атомарный claim (FOR UPDATE SKIP LOCKED)
// гарантирует выполнение job'а ровно одним экземпляром.
//
// # Жизненный цикл job
//
//  1. Scheduler создаёт job в статусе pending
//  2. Dispatch-цикл выбирает due jobs и передаёт их Processor'у
//  3. Claim: pending/retrying → running с арендой LeaseTTL
//  4. Publish-вызов с дедлайном PublishTimeout
//  5. Успех → completed, target → published
//  6. Неудача → retrying с backoff 60s * 2^attempt, либо failed
//     после MaxAttempts с классифицированным кодом ошибки
//
// # Retry
//
// Retry выполняется через БД (next_retry_at), а не in-process:
// упавший экземпляр не теряет запланированные ретраи. Retry-поток
// ограничен половиной Concurrency, чтобы всплеск ретраев не вытеснил
// свежие публикации.
//
// По умолчанию ретраятся все ошибки, включая permanent
// (VALIDATION_ERROR и т.п.) — платформы иногда возвращают постоянные
// коды на временные сбои. FailFastPermanent включает короткий путь:
// permanent-ошибка сразу переводит job в failed.
//
// # Shutdown
//
// Двухфазный: Stop() останавливает циклы (новые jobs не принимаются),
// активные jobs дорабатывают до DrainTimeout, после чего их контекст
// отменяется. Недоработавший job вернёт reaper по истечении аренды.
package worker
