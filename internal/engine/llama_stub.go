//go:build !llama

package engine

import "context"

// llamaBuilt indicates this binary was compiled with in-process llama support.
const llamaBuilt = false

// LlamaConfig configures the in-process backend.
type LlamaConfig struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// Llama is a stub compiled without the 'llama' build tag. It keeps default
// builds CGO-free and refuses to load.
type Llama struct {
	cfg LlamaConfig
}

func NewLlama(cfg LlamaConfig) *Llama { return &Llama{cfg: cfg} }

func (e *Llama) Name() string { return "llama" }

func (e *Llama) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	return nil, ErrUnavailable("llama support not built (missing 'llama' build tag)")
}
