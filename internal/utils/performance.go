// Package utils holds small helpers shared by the pricing modules.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// Default thresholds above which a measured operation is reported as slow
const (
	DefaultSlowThreshold     = 10 * time.Second
	DefaultVerySlowThreshold = 30 * time.Second
)

// Timer is a simple performance timer for measuring operation duration
type Timer struct {
	start    time.Time
	name     string
	log      zerolog.Logger
	slow     time.Duration
	verySlow time.Duration
	now      func() time.Time
}

// NewTimer creates a new timer with the given name
func NewTimer(name string, log zerolog.Logger) *Timer {
	return newTimer(name, log, time.Now)
}

func newTimer(name string, log zerolog.Logger, now func() time.Time) *Timer {
	return &Timer{
		start:    now(),
		name:     name,
		log:      log,
		slow:     DefaultSlowThreshold,
		verySlow: DefaultVerySlowThreshold,
		now:      now,
	}
}

// Stop stops the timer and logs the duration with optional context fields
func (t *Timer) Stop(fields map[string]interface{}) time.Duration {
	duration := t.now().Sub(t.start)

	event := t.log.Debug().
		Str("operation", t.name).
		Dur("duration_ms", duration).
		Float64("duration_seconds", duration.Seconds())
	for key, value := range fields {
		switch v := value.(type) {
		case string:
			event = event.Str(key, v)
		case int:
			event = event.Int(key, v)
		case float64:
			event = event.Float64(key, v)
		case bool:
			event = event.Bool(key, v)
		default:
			event = event.Interface(key, v)
		}
	}
	event.Msg("Performance measurement")

	if duration > t.verySlow {
		t.log.Warn().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Slow operation detected")
	} else if duration > t.slow {
		t.log.Info().
			Str("operation", t.name).
			Dur("duration", duration).
			Msg("Operation took longer than expected")
	}

	return duration
}
