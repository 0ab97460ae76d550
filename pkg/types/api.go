package types

// SummarizeRequest is the payload of POST /summarize.
type SummarizeRequest struct {
	// Text to summarize. 1 to 4000 characters.
	// example: The ocean covers more than two thirds of the Earth and regulates its climate.
	Text string `json:"text" example:"The ocean covers more than two thirds of the Earth and regulates its climate."`
	// Alias of text accepted for older clients.
	TextToSum string `json:"textToSum,omitempty"`
	// Selects the optimized profile when true, the baseline when false.
	// Defaults to false. Ignored when profile is set.
	// example: false
	Optimized *bool `json:"optimized,omitempty" example:"false"`
	// Explicit profile name.
	// example: optimized
	Profile string `json:"profile,omitempty" example:"optimized"`
}

// InputText returns text, or the textToSum alias when text is empty.
func (r SummarizeRequest) InputText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.TextToSum
}

// SummarizeResponse is returned by POST /summarize.
type SummarizeResponse struct {
	// Summary of 10 to 15 words.
	// example: The ocean covers most of the planet and plays a key role regulating climate
	Summary string `json:"summary" example:"The ocean covers most of the planet and plays a key role regulating climate"`
	// Whitespace-delimited word count of summary.
	// example: 14
	WordCount int `json:"word_count" example:"14"`
	// Wall-clock milliseconds of the measured pipeline.
	// example: 412.5
	LatencyMS float64 `json:"latency_ms" example:"412.5"`
	// Energy in watt-hours; 0 when no meter reading was available.
	// example: 0.0031
	EnergyWh float64 `json:"energy_wh" example:"0.0031"`
	// Profile that produced the summary.
	// example: optimized
	Profile string `json:"profile" example:"optimized"`
	// Device the model ran on.
	// example: cpu
	Device string `json:"device" example:"cpu"`
	// Whether the optimized profile was used.
	// example: true
	Optimized bool `json:"optimized" example:"true"`
	// True when the model output was replaced by an excerpt of the input.
	// example: false
	Fallback bool `json:"fallback" example:"false"`
}

// CompareRequest is the payload of POST /compare.
type CompareRequest struct {
	// Text to summarize with both profiles.
	Text string `json:"text" example:"The ocean covers more than two thirds of the Earth and regulates its climate."`
	// Alias of text accepted for older clients.
	TextToSum string `json:"textToSum,omitempty"`
}

// InputText returns text, or the textToSum alias when text is empty.
func (r CompareRequest) InputText() string {
	if r.Text != "" {
		return r.Text
	}
	return r.TextToSum
}

// CompareResponse is returned by POST /compare.
type CompareResponse struct {
	// Identifier of this comparison run.
	// example: 9b2f5c7e-3f0a-4a55-8a1b-1d2c3e4f5a6b
	RunID     string            `json:"run_id" example:"9b2f5c7e-3f0a-4a55-8a1b-1d2c3e4f5a6b"`
	Baseline  SummarizeResponse `json:"baseline"`
	Optimized SummarizeResponse `json:"optimized"`
	// (baseline - optimized) / baseline * 100; 0 when the baseline is 0.
	// example: 63.2
	LatencyReductionPct float64 `json:"latency_reduction_pct" example:"63.2"`
	// (baseline - optimized) / baseline * 100; 0 when the baseline is 0.
	// example: 58.9
	EnergyReductionPct float64 `json:"energy_reduction_pct" example:"58.9"`
}

// ProfilesResponse wraps the list returned by GET /profiles.
type ProfilesResponse struct {
	Profiles []ProfileInfo `json:"profiles"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: text must not be empty
	Error string `json:"error" example:"text must not be empty"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}

// ProfileStatus summarizes one profile's model handle for /status.
type ProfileStatus struct {
	// example: optimized
	Profile string `json:"profile" example:"optimized"`
	// Lifecycle state: unloaded, loading, ready, error.
	// example: ready
	State string `json:"state" example:"ready"`
	// example: cuda
	Device string `json:"device,omitempty" example:"cuda"`
	// Requests waiting for the device.
	// example: 0
	QueueLen int `json:"queue_len" example:"0"`
	// Generations running on the device.
	// example: 1
	Inflight int `json:"inflight" example:"1"`
	// example: 32
	MaxQueueDepth int `json:"max_queue_depth" example:"32"`
	// Last use in unix seconds; 0 if never used.
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// Summaries produced with this profile.
	// example: 12
	Requests uint64 `json:"requests" example:"12"`
	// Summaries that fell back to an excerpt.
	// example: 1
	Fallbacks uint64 `json:"fallbacks" example:"1"`
	// Last load error, if any.
	Error string `json:"error,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Overall state: loading, ready, error.
	// example: ready
	State    string          `json:"state" example:"ready"`
	Profiles []ProfileStatus `json:"profiles"`
	// Inference backend in use.
	// example: openai
	Engine string `json:"engine" example:"openai"`
	// Energy source in use: rapl, tdp or none.
	// example: rapl
	Meter string `json:"meter" example:"rapl"`
	// Resolved consolidated weight file, once known.
	WeightsPath string `json:"weights_path,omitempty"`
	// Shard concatenations performed by this process.
	// example: 1
	Reconstructions uint64 `json:"reconstructions" example:"1"`
	// Last error observed, if any.
	LastError string `json:"last_error,omitempty"`
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
