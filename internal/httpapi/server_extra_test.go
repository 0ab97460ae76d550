package httpapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"sumd/internal/summarizer"
	"sumd/pkg/types"
)

// blockService blocks until the context is done; used to exercise the timeout path.
type blockService struct{ mockService }

func (b *blockService) Summarize(ctx context.Context, text, name string) (summarizer.Result, error) {
	<-ctx.Done()
	return summarizer.Result{}, ctx.Err()
}

func TestSummarizeLogsWithZerologInfo(t *testing.T) {
	SetLogger(zerolog.New(io.Discard))
	defer func() { zlog = nil }()

	w := postJSON(NewMux(&mockService{}), "/summarize?log=debug", `{"text":"hi"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with debug logging, got %d", w.Code)
	}
	w = postJSON(NewMux(&mockService{err: io.EOF}), "/summarize?log=error", `{"text":"hi"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
}

func TestCORSAndSecurityHeaders(t *testing.T) {
	SetCORSOptions(true, []string{"*"}, []string{"GET", "POST", "OPTIONS"}, []string{"Content-Type"})
	defer SetCORSOptions(false, nil, nil, nil)

	h := NewMux(&mockService{ready: true, status: types.StatusResponse{State: "ready"}})
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("expected X-Content-Type-Options=nosniff, got %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got == "" {
		t.Fatalf("expected CORS header Access-Control-Allow-Origin to be set, got empty")
	}
}

func TestRequestTimeoutReturns504(t *testing.T) {
	defer SetRequestTimeoutSeconds(0)
	SetRequestTimeoutSeconds(1)

	w := postJSON(NewMux(&blockService{}), "/summarize", `{"text":"x"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504 on timeout, got %d", w.Code)
	}
}

func TestShutdownContextAbortsWithoutBody(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	defer SetBaseContext(context.Background())
	cancel()

	w := postJSON(NewMux(&blockService{}), "/summarize", `{"text":"x"}`)
	if w.Body.Len() != 0 {
		t.Fatalf("expected empty body after shutdown, got %q", w.Body.String())
	}
}

func TestWebDirServedAtRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>sumd</h1>"), 0o644); err != nil {
		t.Fatal(err)
	}
	SetWebDir(dir)
	defer SetWebDir("")

	rec := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "<h1>sumd</h1>" {
		t.Fatalf("status=%d body=%q", rec.Code, rec.Body.String())
	}
}
