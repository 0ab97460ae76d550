// Package engine abstracts the inference runtime that loads weights and
// decodes text. Backends:
//
//   - openai: an already running OpenAI-compatible completions server.
//   - runtime: a runtime binary spawned per weights/precision/device, then
//     driven like the openai backend.
//   - llama: in-process go-llama.cpp, built with `-tags=llama`. Without the
//     tag a stub reports the backend unavailable.
package engine

import (
	"context"
	"errors"

	"sumd/internal/profile"
)

// Engine loads models.
type Engine interface {
	Name() string
	Load(ctx context.Context, spec LoadSpec) (Model, error)
}

// Model is a loaded, device-placed model. Generate may be called
// concurrently only if the backend says so; callers serialize per device.
type Model interface {
	// Eval switches the model to inference mode and verifies it can serve.
	Eval() error
	// Generate returns the full decoded text: prompt followed by continuation.
	Generate(ctx context.Context, req Request) (string, error)
	Close() error
}

// LoadSpec describes what to load and how.
type LoadSpec struct {
	WeightPath string
	// DType is the load precision: fp32 or fp16.
	DType string
	// Quantize applies dynamic int8 quantization to linear layers after load.
	Quantize bool
	// Device is "cpu" or "cuda".
	Device string
}

// Request is one generation call.
type Request struct {
	Prompt         string
	MaxInputTokens int
	Decode         profile.DecodeParams
	Seed           int64
}

// unavailableError reports a backend that cannot run in this build or host.
type unavailableError struct{ msg string }

func (e unavailableError) Error() string { return e.msg }

// ErrUnavailable constructs an unavailableError.
func ErrUnavailable(msg string) error { return unavailableError{msg: msg} }

// IsUnavailable reports whether err indicates a missing runtime dependency.
func IsUnavailable(err error) bool {
	var ue unavailableError
	return errors.As(err, &ue)
}

// fullText guarantees the prompt+continuation contract for backends that
// return only the continuation.
func fullText(prompt, out string) string {
	if len(out) >= len(prompt) && out[:len(prompt)] == prompt {
		return out
	}
	return prompt + out
}
