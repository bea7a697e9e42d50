// Package publish определяет контракт публикации на внешние платформы.
//
// Движок не знает платформенных API: он собирает итоговый Content
// (merge полей post с overrides target'а) и отдаёт его Publisher'у.
// Registry маршрутизирует по платформе, GatewayPublisher — реализация
// поверх HTTP publish-gateway.
package publish
