package domain

import "strings"

// ErrorCode — код терминальной ошибки публикации.
//
// Классификация нужна для отчётности и метрик; на retry-решение она
// по умолчанию не влияет (ошибки любого кода ретраятся до исчерпания
// бюджета), но в fail-fast режиме permanent-коды обрывают retry сразу.
type ErrorCode string

const (
	ErrorCodeAuth       ErrorCode = "AUTH_ERROR"
	ErrorCodePermission ErrorCode = "PERMISSION_ERROR"
	ErrorCodeNotFound   ErrorCode = "NOT_FOUND"
	ErrorCodeRateLimit  ErrorCode = "RATE_LIMIT"
	ErrorCodeServer     ErrorCode = "SERVER_ERROR"
	ErrorCodeNetwork    ErrorCode = "NETWORK_ERROR"
	ErrorCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrorCodeTokenExp   ErrorCode = "TOKEN_EXPIRED"
	ErrorCodeUnknown    ErrorCode = "UNKNOWN"
)

// ErrorKind — грубая классификация: имеет ли смысл повторять попытку.
type ErrorKind string

const (
	// ErrorKindTransient — временная ошибка, retry имеет смысл.
	ErrorKindTransient ErrorKind = "transient"

	// ErrorKindPermanent — ошибка не исчезнет сама (401, 403, 404, валидация).
	ErrorKindPermanent ErrorKind = "permanent"
)

// Kind возвращает классификацию кода.
// Неизвестные ошибки считаются транзиентными — лучше лишний retry,
// чем потерянная публикация.
func (c ErrorCode) Kind() ErrorKind {
	switch c {
	case ErrorCodeAuth, ErrorCodePermission, ErrorCodeNotFound,
		ErrorCodeValidation, ErrorCodeTokenExp:
		return ErrorKindPermanent
	case ErrorCodeRateLimit, ErrorCodeServer, ErrorCodeNetwork, ErrorCodeUnknown:
		return ErrorKindTransient
	default:
		return ErrorKindTransient
	}
}

// classRule — одно правило классификации: код + подстроки-маркеры.
type classRule struct {
	code    ErrorCode
	markers []string
}

// classRules проверяются по порядку; выигрывает первое совпадение.
// TOKEN_EXPIRED стоит раньше AUTH_ERROR, иначе "token expired"
// схлопнулся бы в общую auth-ошибку.
var classRules = []classRule{
	{ErrorCodeTokenExp, []string{"token expired", "expired token", "token has expired", "invalid_grant"}},
	{ErrorCodeAuth, []string{"401", "unauthorized", "unauthenticated", "invalid token", "authentication"}},
	{ErrorCodePermission, []string{"403", "forbidden", "permission", "not allowed", "insufficient scope"}},
	{ErrorCodeNotFound, []string{"404", "not found", "does not exist"}},
	{ErrorCodeRateLimit, []string{"429", "rate limit", "too many requests", "quota exceeded"}},
	{ErrorCodeServer, []string{"500", "502", "503", "504", "internal server", "server error", "bad gateway", "unavailable"}},
	{ErrorCodeNetwork, []string{"network", "timeout", "timed out", "connection refused", "connection reset", "no such host", "deadline exceeded", "eof"}},
	{ErrorCodeValidation, []string{"400", "validation", "invalid request", "bad request", "malformed", "too long", "not supported"}},
}

// Classify сопоставляет тексту ошибки код из фиксированной таксономии.
// Сопоставление — по подстрокам (коды статусов и ключевые слова),
// без совпадений — UNKNOWN.
func Classify(errMsg string) ErrorCode {
	msg := strings.ToLower(errMsg)
	for _, rule := range classRules {
		for _, marker := range rule.markers {
			if strings.Contains(msg, marker) {
				return rule.code
			}
		}
	}
	return ErrorCodeUnknown
}
