package metrics

import (
	"time"

	"github.com/rootlab/rootlab/internal/observability"
)

// Lesson generation metrics following Prometheus conventions.
var (
	LessonsTotal         = "lessons_total"
	LessonDuration       = "lesson_duration_ms"
	LessonDeltasTotal    = "lesson_deltas_total"
	LessonMalformedTotal = "lesson_malformed_events_total"
	LessonSectionsTotal  = "lesson_sections_total"
	ActiveStreams        = "active_streams"

	// Health check metrics
	HealthCheckTotal    = "health_check_total"
	HealthCheckDuration = "health_check_duration_ms"

	// Server lifecycle metrics
	ServerStartTime = "server_start_time_seconds"
)

// RecordLesson records one generation attempt that reached a provider.
// status is "success", "upstream_error", "transport_error" or "cancelled".
func RecordLesson(provider, level, status string, duration time.Duration) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{
		"provider": provider,
		"level":    level,
		"status":   status,
	}
	_ = observability.TelemetrySystem.Counter(LessonsTotal, 1, labels)
	if duration > 0 {
		_ = observability.TelemetrySystem.Histogram(LessonDuration, duration, map[string]string{"provider": provider})
	}
}

// RecordStream records relay counters for one stream.
func RecordStream(provider string, deltas, malformed, sections int) {
	if observability.TelemetrySystem == nil {
		return
	}
	labels := map[string]string{"provider": provider}
	if deltas > 0 {
		_ = observability.TelemetrySystem.Counter(LessonDeltasTotal, float64(deltas), labels)
	}
	if malformed > 0 {
		_ = observability.TelemetrySystem.Counter(LessonMalformedTotal, float64(malformed), labels)
	}
	_ = observability.TelemetrySystem.Counter(LessonSectionsTotal, float64(sections), labels)
}

// SetActiveStreams sets the number of in-flight upstream streams.
func SetActiveStreams(count int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ActiveStreams, float64(count), nil)
	}
}

// RecordHealthCheck records a health check execution
func RecordHealthCheck(checkName string, healthy bool, duration time.Duration) {
	status := "healthy"
	if !healthy {
		status = "unhealthy"
	}

	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Counter(
			HealthCheckTotal,
			1,
			map[string]string{
				"check":  checkName,
				"status": status,
			},
		)
		_ = observability.TelemetrySystem.Histogram(
			HealthCheckDuration,
			duration,
			map[string]string{"check": checkName},
		)
	}
}

// SetServerStartTime records the server start time (Unix timestamp)
func SetServerStartTime(timestamp int64) {
	if observability.TelemetrySystem != nil {
		_ = observability.TelemetrySystem.Gauge(ServerStartTime, float64(timestamp), nil)
	}
}
