package engine

import (
	"os"
	"path/filepath"
	"strings"
)

// GGUFExt is the weight format go-llama.cpp reads.
const GGUFExt = ".gguf"

// llamaWeights maps a LoadSpec to the GGUF file the llama backend reads. A
// .gguf path is used as is; any other path needs a converted sibling with
// the same stem. Dynamic quantization is refused because llama.cpp bakes
// quantization into the file.
func llamaWeights(spec LoadSpec) (string, error) {
	if spec.Quantize {
		return "", ErrUnavailable("llama engine cannot quantize at load; use a quantized GGUF with an fp32 profile")
	}
	p := strings.TrimSpace(spec.WeightPath)
	if p == "" {
		return "", ErrUnavailable("llama engine: weight path is empty")
	}
	if strings.EqualFold(filepath.Ext(p), GGUFExt) {
		return p, nil
	}
	g := strings.TrimSuffix(p, filepath.Ext(p)) + GGUFExt
	if _, err := os.Stat(g); err != nil {
		return "", ErrUnavailable("llama engine needs GGUF weights; convert " + filepath.Base(p) + " to " + filepath.Base(g))
	}
	return g, nil
}
