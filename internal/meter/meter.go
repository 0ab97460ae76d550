// Package meter measures energy consumed over an interval.
//
// Readings are in kilowatt-hours. A session that cannot produce a reading
// reports ok=false; callers treat that as zero energy.
package meter

import (
	"fmt"
	"time"
)

// Meter starts measurement sessions.
type Meter interface {
	Name() string
	Start() Session
}

// Session is one measured interval. Stop must be called exactly once.
type Session interface {
	Stop() (kwh float64, ok bool)
}

// Kinds accepted by New.
const (
	KindAuto = "auto"
	KindRAPL = "rapl"
	KindTDP  = "tdp"
	KindNone = "none"
)

// Config selects and parameterizes a meter.
type Config struct {
	Kind     string
	TDPWatts float64
	RAPLRoot string
}

// New builds the meter named by cfg.Kind. Auto picks RAPL when the host
// exposes readable counters, then a TDP estimate when watts are configured,
// then None.
func New(cfg Config) (Meter, error) {
	switch cfg.Kind {
	case KindRAPL:
		return NewRAPL(cfg.RAPLRoot), nil
	case KindTDP:
		if cfg.TDPWatts <= 0 {
			return nil, fmt.Errorf("tdp meter requires tdp_watts > 0")
		}
		return NewTDP(cfg.TDPWatts), nil
	case KindNone:
		return None{}, nil
	case "", KindAuto:
		if r := NewRAPL(cfg.RAPLRoot); r.Available() {
			return r, nil
		}
		if cfg.TDPWatts > 0 {
			return NewTDP(cfg.TDPWatts), nil
		}
		return None{}, nil
	default:
		return nil, fmt.Errorf("unknown meter %q", cfg.Kind)
	}
}

// None never produces a reading.
type None struct{}

func (None) Name() string   { return KindNone }
func (None) Start() Session { return noneSession{} }

type noneSession struct{}

func (noneSession) Stop() (float64, bool) { return 0, false }

// TDP estimates energy as a constant power draw times elapsed time.
type TDP struct {
	Watts float64
	now   func() time.Time
}

// NewTDP returns a TDP estimator drawing watts.
func NewTDP(watts float64) *TDP { return &TDP{Watts: watts, now: time.Now} }

func (t *TDP) Name() string { return KindTDP }

func (t *TDP) Start() Session { return &tdpSession{m: t, start: t.now()} }

type tdpSession struct {
	m     *TDP
	start time.Time
}

func (s *tdpSession) Stop() (float64, bool) {
	if s.m.Watts <= 0 {
		return 0, false
	}
	hours := s.m.now().Sub(s.start).Hours()
	if hours < 0 {
		hours = 0
	}
	return s.m.Watts * hours / 1000, true
}
