// Package profile defines the fixed inference configurations compared by the
// service. A Profile bundles numeric precision, device preference, decoding
// knobs and the prompt truncation policy.
package profile

import (
	"fmt"
	"sort"
)

// Precision is the numeric format the weights are run in.
type Precision string

const (
	FP32        Precision = "fp32"
	FP16        Precision = "fp16"
	Int8Dynamic Precision = "int8-dynamic"
)

// DevicePreference selects where a profile runs.
type DevicePreference string

const (
	// DeviceCPU runs on the CPU.
	DeviceCPU DevicePreference = "cpu"
	// DeviceCUDAIfAvailable probes for an accelerator and falls back to CPU.
	DeviceCUDAIfAvailable DevicePreference = "cuda-if-available"
	// DeviceCPUForced never probes; the baseline stays on CPU even when an
	// accelerator is present.
	DeviceCPUForced DevicePreference = "cpu-forced"
)

// TruncationMode selects how long input text is shortened before prompting.
type TruncationMode string

const (
	TruncateHard     TruncationMode = "hard"
	TruncateHeadTail TruncationMode = "head-tail"
)

// Names of the two built-in profiles.
const (
	Optimized = "optimized"
	Baseline  = "baseline"
)

// DecodeParams controls autoregressive generation.
type DecodeParams struct {
	DoSample          bool    `json:"do_sample" yaml:"do_sample" toml:"do_sample"`
	NumBeams          int     `json:"num_beams" yaml:"num_beams" toml:"num_beams"`
	Temperature       float64 `json:"temperature" yaml:"temperature" toml:"temperature"`
	TopP              float64 `json:"top_p" yaml:"top_p" toml:"top_p"`
	TopK              int     `json:"top_k,omitempty" yaml:"top_k,omitempty" toml:"top_k,omitempty"`
	RepetitionPenalty float64 `json:"repetition_penalty" yaml:"repetition_penalty" toml:"repetition_penalty"`
	NoRepeatNgramSize int     `json:"no_repeat_ngram_size" yaml:"no_repeat_ngram_size" toml:"no_repeat_ngram_size"`
	MinNewTokens      int     `json:"min_new_tokens" yaml:"min_new_tokens" toml:"min_new_tokens"`
	MaxNewTokens      int     `json:"max_new_tokens" yaml:"max_new_tokens" toml:"max_new_tokens"`
}

// Truncation is the prompt-side input shortening policy.
// Hard keeps the first MaxChars runes. HeadTail keeps the first and last Keep
// runes when the text is longer than Threshold.
type Truncation struct {
	Mode      TruncationMode `json:"mode" yaml:"mode" toml:"mode"`
	MaxChars  int            `json:"max_chars,omitempty" yaml:"max_chars,omitempty" toml:"max_chars,omitempty"`
	Threshold int            `json:"threshold,omitempty" yaml:"threshold,omitempty" toml:"threshold,omitempty"`
	Keep      int            `json:"keep,omitempty" yaml:"keep,omitempty" toml:"keep,omitempty"`
}

// Profile is an immutable, named inference configuration.
type Profile struct {
	Name           string           `json:"name" yaml:"name" toml:"name"`
	Precision      Precision        `json:"precision" yaml:"precision" toml:"precision"`
	Device         DevicePreference `json:"device" yaml:"device" toml:"device"`
	Decode         DecodeParams     `json:"decode" yaml:"decode" toml:"decode"`
	Truncation     Truncation       `json:"truncation" yaml:"truncation" toml:"truncation"`
	MaxInputTokens int              `json:"max_input_tokens" yaml:"max_input_tokens" toml:"max_input_tokens"`
	Seed           int64            `json:"seed,omitempty" yaml:"seed,omitempty" toml:"seed,omitempty"`
}

// OptimizedProfile returns the reduced-precision, accelerator-if-present,
// deterministic decoding profile.
func OptimizedProfile() Profile {
	return Profile{
		Name:      Optimized,
		Precision: Int8Dynamic,
		Device:    DeviceCUDAIfAvailable,
		Decode: DecodeParams{
			DoSample:          false,
			NumBeams:          2,
			RepetitionPenalty: 1.3,
			NoRepeatNgramSize: 3,
			MinNewTokens:      12,
			MaxNewTokens:      40,
		},
		Truncation:     Truncation{Mode: TruncateHeadTail, Threshold: 1500, Keep: 600},
		MaxInputTokens: 768,
	}
}

// BaselineProfile returns the full-precision, CPU-only, sampled profile.
func BaselineProfile() Profile {
	return Profile{
		Name:      Baseline,
		Precision: FP32,
		Device:    DeviceCPUForced,
		Decode: DecodeParams{
			DoSample:          true,
			NumBeams:          1,
			Temperature:       0.7,
			TopP:              0.9,
			RepetitionPenalty: 1.05,
			MinNewTokens:      10,
			MaxNewTokens:      60,
		},
		Truncation:     Truncation{Mode: TruncateHard, MaxChars: 3000},
		MaxInputTokens: 1024,
	}
}

// Validate checks enum values and numeric bounds.
func (p Profile) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("profile: name is required")
	}
	switch p.Precision {
	case FP32, FP16, Int8Dynamic:
	default:
		return fmt.Errorf("profile %s: unknown precision %q", p.Name, p.Precision)
	}
	switch p.Device {
	case DeviceCPU, DeviceCUDAIfAvailable, DeviceCPUForced:
	default:
		return fmt.Errorf("profile %s: unknown device preference %q", p.Name, p.Device)
	}
	d := p.Decode
	if d.NumBeams < 1 {
		return fmt.Errorf("profile %s: num_beams must be >= 1", p.Name)
	}
	if d.MaxNewTokens < 1 || d.MinNewTokens < 0 || d.MinNewTokens > d.MaxNewTokens {
		return fmt.Errorf("profile %s: token bounds [%d,%d] invalid", p.Name, d.MinNewTokens, d.MaxNewTokens)
	}
	if d.DoSample && (d.Temperature <= 0 || d.TopP <= 0 || d.TopP > 1) {
		return fmt.Errorf("profile %s: sampling needs temperature > 0 and top_p in (0,1]", p.Name)
	}
	if d.RepetitionPenalty < 0 || d.NoRepeatNgramSize < 0 {
		return fmt.Errorf("profile %s: repetition controls must be >= 0", p.Name)
	}
	switch p.Truncation.Mode {
	case TruncateHard:
		if p.Truncation.MaxChars < 1 {
			return fmt.Errorf("profile %s: hard truncation needs max_chars", p.Name)
		}
	case TruncateHeadTail:
		if p.Truncation.Keep < 1 || p.Truncation.Threshold < 2*p.Truncation.Keep {
			return fmt.Errorf("profile %s: head-tail needs keep >= 1 and threshold >= 2*keep", p.Name)
		}
	default:
		return fmt.Errorf("profile %s: unknown truncation mode %q", p.Name, p.Truncation.Mode)
	}
	if p.MaxInputTokens < 1 {
		return fmt.Errorf("profile %s: max_input_tokens must be >= 1", p.Name)
	}
	return nil
}

// Set is a read-only collection of profiles keyed by name.
type Set struct {
	byName map[string]Profile
}

// DefaultSet holds exactly the optimized and baseline profiles.
func DefaultSet() *Set {
	s, _ := NewSet(OptimizedProfile(), BaselineProfile())
	return s
}

// NewSet validates and indexes profiles. Later entries replace earlier ones
// with the same name.
func NewSet(profiles ...Profile) (*Set, error) {
	s := &Set{byName: make(map[string]Profile, len(profiles))}
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
		s.byName[p.Name] = p
	}
	return s, nil
}

// With returns a new set with the given profiles added or replaced.
func (s *Set) With(profiles ...Profile) (*Set, error) {
	all := s.List()
	all = append(all, profiles...)
	return NewSet(all...)
}

// Get returns the profile with the given name.
func (s *Set) Get(name string) (Profile, bool) {
	p, ok := s.byName[name]
	return p, ok
}

// Names returns profile names sorted.
func (s *Set) Names() []string {
	out := make([]string, 0, len(s.byName))
	for n := range s.byName {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// List returns all profiles sorted by name.
func (s *Set) List() []Profile {
	out := make([]Profile, 0, len(s.byName))
	for _, n := range s.Names() {
		out = append(out, s.byName[n])
	}
	return out
}

// ForMode maps the HTTP "optimized" flag to a profile name.
func ForMode(optimized bool) string {
	if optimized {
		return Optimized
	}
	return Baseline
}
