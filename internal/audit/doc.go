// Package audit эмитит события жизненного цикла публикации.
//
// События (publish.dispatched, publish.completed, publish.retrying,
// publish.failed, publish.canceled) уходят в RabbitMQ topic exchange
// и потребляются аналитикой и audit-логом.
//
// Контракт — fire-and-forget: Emit никогда не возвращает ошибку и
// никогда не блокирует переход job'а. Без настроенного RabbitMQ
// используется NopEmitter.
package audit
