package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Метрики движка публикации. Экспортируются на /metrics endpoint
// worker-процесса. Ошибки записи метрик невозможны по построению
// (client_golang), поэтому emission здесь всегда failure-safe.
var (
	// JobsScheduled — счётчик созданных queue jobs по типу schedule.
	JobsScheduled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publika_jobs_scheduled_total",
			Help: "The total number of queue jobs created by the scheduler.",
		},
		[]string{"schedule_type"},
	)

	// ScheduleErrors — счётчик ошибок обработки отдельных schedules.
	ScheduleErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publika_schedule_errors_total",
			Help: "The total number of schedules that failed to process.",
		},
	)

	// JobsCompleted — счётчик успешно опубликованных jobs по платформе.
	JobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publika_jobs_completed_total",
			Help: "The total number of jobs that published successfully.",
		},
		[]string{"platform"},
	)

	// JobsFailed — счётчик терминально неудачных jobs по платформе и коду.
	JobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publika_jobs_failed_total",
			Help: "The total number of jobs that failed permanently.",
		},
		[]string{"platform", "error_code"},
	)

	// JobRetries — счётчик запланированных повторных попыток.
	JobRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "publika_job_retries_total",
			Help: "The total number of times a job has been scheduled for retry.",
		},
		[]string{"platform"},
	)

	// PublishDuration — гистограмма длительности publish-попыток.
	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "publika_publish_duration_seconds",
			Help:    "A histogram of publish attempt duration.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
		[]string{"platform"},
	)

	// JobsInFlight — количество выполняющихся прямо сейчас jobs.
	JobsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "publika_jobs_in_flight",
			Help: "The number of jobs currently being executed.",
		},
	)

	// JobsReaped — счётчик jobs, возвращённых reaper'ом из running в pending.
	JobsReaped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "publika_jobs_reaped_total",
			Help: "The total number of running jobs requeued after lease expiry.",
		},
	)
)
