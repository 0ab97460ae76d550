// Package generate runs decoding for a prompt under a profile.
package generate

import (
	"context"
	"errors"
	"fmt"

	"sumd/internal/engine"
	"sumd/internal/profile"
)

// GenerationError wraps any decoding failure. The cause stays reachable
// through errors.Is / errors.As.
type GenerationError struct {
	Profile string
	Err     error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed (profile %s): %v", e.Profile, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsGeneration reports whether err is a GenerationError.
func IsGeneration(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}

// Request builds the engine request for prompt under p. Greedy profiles
// decode deterministically: sampling knobs are cleared so no backend
// applies its own defaults.
func Request(prompt string, p profile.Profile) engine.Request {
	d := p.Decode
	if !d.DoSample {
		d.Temperature = 0
		d.TopP = 0
		d.TopK = 0
	} else {
		d.NumBeams = 1
	}
	return engine.Request{Prompt: prompt, MaxInputTokens: p.MaxInputTokens, Decode: d, Seed: p.Seed}
}

// Generate decodes prompt with m under p and returns prompt plus
// continuation.
func Generate(ctx context.Context, m engine.Model, prompt string, p profile.Profile) (string, error) {
	if m == nil {
		return "", &GenerationError{Profile: p.Name, Err: errors.New("model not loaded")}
	}
	out, err := m.Generate(ctx, Request(prompt, p))
	if err != nil {
		return "", &GenerationError{Profile: p.Name, Err: err}
	}
	return out, nil
}
