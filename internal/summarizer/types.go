package summarizer

import (
	"sync/atomic"
	"time"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/profile"
)

// State represents lifecycle state of the service and of each handle.
type State string

const (
	StateUnloaded State = "unloaded"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateError    State = "error"
	StateClosed   State = "closed"
)

// handle is one profile's loaded model. Fields other than the counters are
// guarded by Service.mu.
type handle struct {
	profile  profile.Profile
	state    State
	model    engine.Model
	device   device.Kind
	err      string
	lastUsed time.Time

	requests  atomic.Uint64
	fallbacks atomic.Uint64
}

// Result is one finished summarization.
type Result struct {
	Profile   string
	Device    device.Kind
	Summary   string
	WordCount int
	LatencyMS float64
	EnergyWh  float64
	// EnergyOK is false when the meter produced no reading.
	EnergyOK bool
	Fallback bool
}

// Comparison holds independent baseline and optimized results for the same
// text.
type Comparison struct {
	RunID               string
	Baseline            Result
	Optimized           Result
	LatencyReductionPct float64
	EnergyReductionPct  float64
}
