package engine

import (
	"fmt"

	"github.com/rs/zerolog"
)

// Backend names accepted by New.
const (
	KindOpenAI  = "openai"
	KindRuntime = "runtime"
	KindLlama   = "llama"
)

// Config selects and configures a backend.
type Config struct {
	Kind    string
	OpenAI  OpenAIConfig
	Runtime RuntimeConfig
	Llama   LlamaConfig
}

// New builds the backend named by cfg.Kind.
func New(cfg Config, log zerolog.Logger) (Engine, error) {
	switch cfg.Kind {
	case KindOpenAI, "":
		e := NewOpenAI(cfg.OpenAI)
		e.SetLogger(log)
		return e, nil
	case KindRuntime:
		e := NewRuntime(cfg.Runtime)
		e.SetLogger(log)
		return e, nil
	case KindLlama:
		if !llamaBuilt {
			log.Warn().Msg("llama engine selected but binary built without -tags=llama; loads will fail")
		}
		return NewLlama(cfg.Llama), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Kind)
	}
}

// LlamaBuilt reports whether in-process llama support is compiled in.
func LlamaBuilt() bool { return llamaBuilt }
