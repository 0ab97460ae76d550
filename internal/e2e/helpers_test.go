package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/httpapi"
	"sumd/internal/loader"
	"sumd/internal/meter"
	"sumd/internal/metrics"
	"sumd/internal/summarizer"
	"sumd/internal/weights"
)

const sampleText = "The ocean covers more than two thirds of the Earth. It absorbs heat from the sun and " +
	"moves it around the globe through currents. This keeps coastal climates mild and shapes weather everywhere."

const goodReply = " The ocean regulates the climate of the whole planet and stores vast heat energy."

// completions is a fake OpenAI-compatible server. It echoes the prompt and
// appends reply. When hold is set every completion waits for it to close.
type completions struct {
	reply string
	hold  chan struct{}

	mu    sync.Mutex
	calls int
}

func (c *completions) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"id":"tiny-summarizer","object":"model","created":0,"owned_by":"e2e"}]}`))
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		c.calls++
		c.mu.Unlock()
		if c.hold != nil {
			select {
			case <-c.hold:
			case <-r.Context().Done():
				return
			}
		}
		out, _ := json.Marshal(map[string]any{
			"id": "cmpl-e2e", "object": "text_completion", "created": 1, "model": body.Model,
			"choices": []map[string]any{{"index": 0, "text": body.Prompt + c.reply, "finish_reason": "stop", "logprobs": nil}},
		})
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(out)
	})
	return mux
}

func (c *completions) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// createShardedModel writes a two-shard model directory with its tokenizer
// and config files and returns its path.
func createShardedModel(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "tiny-summarizer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for i := 1; i <= 2; i++ {
		p := filepath.Join(dir, weights.ShardName(i, weights.DefaultExt))
		err := weights.WriteFile(p,
			[]weights.TensorInfo{{Name: "layer" + string(rune('0'+i)), DType: "F32", Shape: []int64{2, 2}}},
			[][]byte{make([]byte, 16)},
			nil,
		)
		if err != nil {
			t.Fatalf("write shard %s: %v", p, err)
		}
	}
	for _, n := range weights.DefaultAuxFiles {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	return dir
}

type stack struct {
	srv     *httptest.Server
	svc     *summarizer.Service
	weights *weights.Reconstructor
	llm     *completions
}

// newStack wires the whole service against a fake completions server and
// serves it over httptest.
func newStack(t *testing.T, modelDir string, llm *completions, queueDepth int, maxWait time.Duration) *stack {
	t.Helper()
	return newStackWithMeter(t, modelDir, llm, queueDepth, maxWait, nil)
}

func newStackWithMeter(t *testing.T, modelDir string, llm *completions, queueDepth int, maxWait time.Duration, m meter.Meter) *stack {
	t.Helper()
	llmSrv := httptest.NewServer(llm.handler())
	t.Cleanup(llmSrv.Close)

	rec := weights.NewReconstructor(weights.Options{CacheRoot: t.TempDir()})
	eng := engine.NewOpenAI(engine.OpenAIConfig{BaseURL: llmSrv.URL})
	ld := loader.New(eng, device.Static{}, nil)
	svc := summarizer.New(summarizer.Config{
		ModelDir:      modelDir,
		Weights:       rec,
		Loader:        ld,
		Recorder:      metrics.NewRecorder(m, metrics.NewMemorySink()),
		EngineName:    eng.Name(),
		MaxQueueDepth: queueDepth,
		MaxWait:       maxWait,
	})
	t.Cleanup(func() { _ = svc.Close() })

	srv := httptest.NewServer(httpapi.NewMux(svc))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, svc: svc, weights: rec, llm: llm}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func textPayload(t *testing.T, fields map[string]any) []byte {
	t.Helper()
	b, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}
