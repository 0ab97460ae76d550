// Package metrics wraps a pipeline run with a wall-clock timer and an energy
// meter and reports the measurement to sinks.
package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"sumd/internal/meter"
)

// WhPerKWh converts meter readings to watt-hours. Applied once, in finish.
const WhPerKWh = 1000

// Outcomes recorded for a measured run.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomePanic = "panic"
)

// Labels identify what was measured.
type Labels struct {
	Profile string
	Device  string
}

// Measurement is the finalized result of one measured run.
type Measurement struct {
	Labels
	Outcome   string
	LatencyMS float64
	EnergyWh  float64
	// EnergyOK is false when the meter had no reading; EnergyWh is then 0.
	EnergyOK bool
}

// Sink receives finalized measurements. Record must not block for long and
// must not panic.
type Sink interface {
	Record(Measurement)
}

// Recorder owns the meter and the sinks.
type Recorder struct {
	meter meter.Meter
	sinks []Sink
	now   func() time.Time
}

// NewRecorder returns a Recorder using m (None when nil) and reporting to
// sinks.
func NewRecorder(m meter.Meter, sinks ...Sink) *Recorder {
	if m == nil {
		m = meter.None{}
	}
	return &Recorder{meter: m, sinks: sinks, now: time.Now}
}

// MeterName reports which energy source is in use.
func (r *Recorder) MeterName() string { return r.meter.Name() }

// Measure runs fn between a timer start and an energy meter start, and
// finalizes both exactly once on every exit path, panics included. fn's
// error is returned unchanged after the measurement has been recorded.
func Measure[T any](ctx context.Context, r *Recorder, labels Labels, fn func(context.Context) (T, error)) (res T, m Measurement, err error) {
	start := r.now()
	sess := r.meter.Start()
	outcome := OutcomePanic
	defer func() {
		m = r.finish(labels, outcome, start, sess)
	}()
	res, err = fn(ctx)
	if err != nil {
		outcome = OutcomeError
	} else {
		outcome = OutcomeOK
	}
	return res, m, err
}

func (r *Recorder) finish(labels Labels, outcome string, start time.Time, sess meter.Session) Measurement {
	elapsed := r.now().Sub(start)
	if elapsed < 0 {
		elapsed = 0
	}
	kwh, ok := sess.Stop()
	if !ok || kwh < 0 {
		kwh, ok = 0, false
	}
	m := Measurement{
		Labels:    labels,
		Outcome:   outcome,
		LatencyMS: float64(elapsed) / float64(time.Millisecond),
		EnergyWh:  kwh * WhPerKWh,
		EnergyOK:  ok,
	}
	for _, s := range r.sinks {
		s.Record(m)
	}
	return m
}

// LogSink writes measurements at debug level.
type LogSink struct {
	Log zerolog.Logger
}

func (s LogSink) Record(m Measurement) {
	s.Log.Debug().
		Str("profile", m.Profile).
		Str("device", m.Device).
		Str("outcome", m.Outcome).
		Float64("latency_ms", m.LatencyMS).
		Float64("energy_wh", m.EnergyWh).
		Bool("energy_ok", m.EnergyOK).
		Msg("pipeline measured")
}
