//go:build llama

package engine

import (
	"context"
	"errors"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// llamaBuilt indicates this binary was compiled with in-process llama support.
const llamaBuilt = true

// LlamaConfig configures the in-process backend.
type LlamaConfig struct {
	CtxSize   int
	Threads   int
	GPULayers int
}

// Llama runs GGUF weights in-process through go-llama.cpp. It reads the
// GGUF sibling of the reconstructed weights and refuses LoadSpec.Quantize.
type Llama struct {
	cfg LlamaConfig
}

func NewLlama(cfg LlamaConfig) *Llama { return &Llama{cfg: cfg} }

func (e *Llama) Name() string { return "llama" }

func (e *Llama) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	path, err := llamaWeights(spec)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	mo := []llama.ModelOption{llama.SetContext(zn(e.cfg.CtxSize, 2048))}
	if spec.DType == "fp16" {
		mo = append(mo, llama.EnableF16Memory)
	}
	if spec.Device == "cuda" && e.cfg.GPULayers > 0 {
		mo = append(mo, llama.SetGPULayers(e.cfg.GPULayers))
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, err
	}
	return &llamaModel{model: m, threads: e.cfg.Threads}, nil
}

// llamaModel owns the loaded weights. go-llama.cpp contexts are not safe
// for concurrent prediction.
type llamaModel struct {
	mu      sync.Mutex
	model   *llama.LLama
	threads int
}

func (m *llamaModel) Eval() error {
	if m.model == nil {
		return errors.New("llama model not initialized")
	}
	return nil
}

func (m *llamaModel) Generate(ctx context.Context, req Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model == nil {
		return "", errors.New("llama model not initialized")
	}
	m.model.SetTokenCallback(func(string) bool {
		return ctx.Err() == nil
	})
	text, err := m.model.Predict(req.Prompt, predictOptions(req, m.threads)...)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return fullText(req.Prompt, text), nil
}

func (m *llamaModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.model != nil {
		m.model.Free()
		m.model = nil
	}
	return nil
}

func zn(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

// predictOptions converts decode parameters into go-llama.cpp options.
// Greedy decoding maps to temperature 0. NumBeams, NoRepeatNgramSize and
// MinNewTokens have no go-llama.cpp option and are ignored.
func predictOptions(req Request, threads int) []llama.PredictOption {
	d := req.Decode
	temp := float32(0)
	topP := llama.DefaultOptions.TopP
	topK := llama.DefaultOptions.TopK
	if d.DoSample {
		temp = float32(d.Temperature)
		topP = float32(d.TopP)
		topK = zn(d.TopK, topK)
	}
	po := []llama.PredictOption{
		llama.SetTokens(zn(d.MaxNewTokens, 1)),
		llama.SetThreads(zn(threads, 1)),
		llama.SetTopP(topP),
		llama.SetTopK(topK),
		llama.SetTemperature(temp),
		llama.SetStopWords("\n"),
	}
	if d.RepetitionPenalty > 0 {
		po = append(po, llama.SetPenalty(float32(d.RepetitionPenalty)))
	}
	if req.Seed != 0 {
		po = append(po, llama.SetSeed(int(req.Seed)))
	}
	return po
}
