// Package utils holds small helpers shared across packages.
package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// SlowThreshold is the total duration above which Stop logs a warning.
const SlowThreshold = 30 * time.Second

// Lap is the duration of one named step.
type Lap struct {
	Step     string
	Duration time.Duration
}

// Stopwatch measures the consecutive steps of one operation.
type Stopwatch struct {
	operation string
	log       zerolog.Logger
	now       func() time.Time
	start     time.Time
	last      time.Time
	laps      []Lap
}

// NewStopwatch starts a stopwatch for operation.
func NewStopwatch(operation string, log zerolog.Logger) *Stopwatch {
	return newStopwatch(operation, log, time.Now)
}

func newStopwatch(operation string, log zerolog.Logger, now func() time.Time) *Stopwatch {
	t := now()
	return &Stopwatch{operation: operation, log: log, now: now, start: t, last: t}
}

// Lap closes the current step and starts the next one.
func (s *Stopwatch) Lap(step string) time.Duration {
	t := s.now()
	d := t.Sub(s.last)
	s.last = t
	s.laps = append(s.laps, Lap{Step: step, Duration: d})

	s.log.Debug().
		Str("operation", s.operation).
		Str("step", step).
		Dur("duration_ms", d).
		Msg("Step completed")
	return d
}

// Stop logs and returns the total elapsed time.
func (s *Stopwatch) Stop() time.Duration {
	total := s.now().Sub(s.start)

	event := s.log.Debug()
	if total > SlowThreshold {
		event = s.log.Warn()
	}
	event.
		Str("operation", s.operation).
		Int("steps", len(s.laps)).
		Dur("duration_ms", total).
		Msg("Operation completed")
	return total
}

// Laps returns the recorded steps in order.
func (s *Stopwatch) Laps() []Lap {
	return append([]Lap(nil), s.laps...)
}

// Durations returns the recorded steps keyed by name. Repeated names are summed.
func (s *Stopwatch) Durations() map[string]time.Duration {
	out := make(map[string]time.Duration, len(s.laps))
	for _, l := range s.laps {
		out[l.Step] += l.Duration
	}
	return out
}
