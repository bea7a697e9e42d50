package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ScheduleType — тип расписания публикации.
//
// Типы закрытые: обработка всегда идёт через switch по всем трём
// значениям, неизвестный тип — ошибка, а не default-ветка.
type ScheduleType string

const (
	// ScheduleTypeSingle — одноразовая публикация в ScheduledAt.
	ScheduleTypeSingle ScheduleType = "single"

	// ScheduleTypeRecurring — повторяющаяся публикация по RecurrencePattern.
	ScheduleTypeRecurring ScheduleType = "recurring"

	// ScheduleTypeEvergreen — переиспользуемый контент из именованной
	// очереди, по одному post за срабатывание.
	ScheduleTypeEvergreen ScheduleType = "evergreen"
)

// Schedule — декларация «опубликовать этот контент тогда-то / так часто».
//
// Schedule создаётся пользователем; scheduler материализует due schedules
// в queue jobs и обновляет LastRunAt / NextRunAt. Сам schedule этим
// подсистемой никогда не удаляется.
type Schedule struct {
	// ID — уникальный идентификатор schedule.
	ID uuid.UUID `json:"id"`

	// WorkspaceID — рабочее пространство, которому принадлежит schedule.
	WorkspaceID uuid.UUID `json:"workspace_id"`

	// PostID — публикуемый post. Обязателен для single и recurring;
	// для evergreen post выбирается из очереди QueueName.
	PostID *uuid.UUID `json:"post_id,omitempty"`

	// Type — тип расписания.
	Type ScheduleType `json:"type"`

	// ScheduledAt — время публикации для single.
	ScheduledAt *time.Time `json:"scheduled_at,omitempty"`

	// RecurrencePattern — паттерн повторения для recurring.
	// Поддерживаются 5-польные cron-выражения ("0 9 * * *")
	// и дескрипторы ("@daily", "@every 24h").
	RecurrencePattern string `json:"recurrence_pattern,omitempty"`

	// QueueName — имя evergreen очереди.
	QueueName string `json:"queue_name,omitempty"`

	// Active — флаг активности. Неактивные schedules не оцениваются.
	Active bool `json:"active"`

	// Priority — приоритет: более высокий обслуживается раньше.
	Priority int `json:"priority"`

	// LastRunAt — время последней оценки schedule.
	LastRunAt *time.Time `json:"last_run_at,omitempty"`

	// NextRunAt — время следующей оценки (для recurring).
	NextRunAt *time.Time `json:"next_run_at,omitempty"`

	// CreatedAt — время создания schedule.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate проверяет инварианты schedule по его типу.
func (s *Schedule) Validate() error {
	switch s.Type {
	case ScheduleTypeSingle:
		if s.ScheduledAt == nil {
			return fmt.Errorf("single schedule %s requires scheduled_at", s.ID)
		}
	case ScheduleTypeRecurring:
		if s.RecurrencePattern == "" {
			return fmt.Errorf("recurring schedule %s requires recurrence_pattern", s.ID)
		}
	case ScheduleTypeEvergreen:
		if s.QueueName == "" {
			return fmt.Errorf("evergreen schedule %s requires queue_name", s.ID)
		}
	default:
		return fmt.Errorf("unknown schedule type %q", s.Type)
	}
	return nil
}

// IsDue проверяет, пора ли оценивать schedule.
// Schedule без NextRunAt считается due (первая оценка).
func (s *Schedule) IsDue(now time.Time) bool {
	if !s.Active {
		return false
	}
	if s.NextRunAt == nil {
		return true
	}
	return !s.NextRunAt.After(now)
}

// StampRun отмечает факт оценки schedule.
// nextRun передаётся только для recurring; для остальных — nil.
func (s *Schedule) StampRun(now time.Time, nextRun *time.Time) {
	s.LastRunAt = &now
	s.NextRunAt = nextRun
	s.UpdatedAt = now
}
