package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// recurrenceParser — парсер recurrence-паттернов.
// Поддерживает 5-польные cron-выражения и дескрипторы
// ("@daily", "@weekly", "@every 24h").
var recurrenceParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// NextOccurrence вычисляет следующее срабатывание паттерна после from.
func NextOccurrence(pattern string, from time.Time) (time.Time, error) {
	sched, err := recurrenceParser.Parse(pattern)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse recurrence pattern %q: %w", pattern, err)
	}
	return sched.Next(from).UTC(), nil
}

// ValidatePattern проверяет валидность recurrence-паттерна.
func ValidatePattern(pattern string) error {
	if _, err := recurrenceParser.Parse(pattern); err != nil {
		return fmt.Errorf("invalid recurrence pattern %q: %w", pattern, err)
	}
	return nil
}
