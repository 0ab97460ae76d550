package engine

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLlamaWeights_RejectsQuantize(t *testing.T) {
	_, err := llamaWeights(LoadSpec{WeightPath: "m.gguf", Quantize: true})
	if !IsUnavailable(err) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestLlamaWeights_PicksGGUF(t *testing.T) {
	dir := t.TempDir()
	st := filepath.Join(dir, "model.safetensors")

	if _, err := llamaWeights(LoadSpec{WeightPath: st}); !IsUnavailable(err) {
		t.Fatalf("safetensors without a GGUF sibling: %v", err)
	}
	g := filepath.Join(dir, "model.gguf")
	if err := os.WriteFile(g, []byte("GGUF"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := llamaWeights(LoadSpec{WeightPath: st, DType: "fp16"})
	if err != nil || got != g {
		t.Fatalf("got %q err=%v", got, err)
	}
	if got, err := llamaWeights(LoadSpec{WeightPath: "/w/Model.GGUF"}); err != nil || got != "/w/Model.GGUF" {
		t.Fatalf("gguf path: %q %v", got, err)
	}
	if _, err := llamaWeights(LoadSpec{WeightPath: "  "}); !IsUnavailable(err) {
		t.Fatalf("empty path: %v", err)
	}
}
