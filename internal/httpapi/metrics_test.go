package httpapi

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsMiddleware_LabelsByRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(MetricsMiddleware)
	r.Get("/profiles/{name}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues("/profiles/{name}", http.MethodGet, "418")
	before := testutil.ToFloat64(counter)
	for _, name := range []string{"baseline", "optimized"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/profiles/"+name, nil))
		if rr.Code != http.StatusTeapot {
			t.Fatalf("status=%d", rr.Code)
		}
	}
	if got := testutil.ToFloat64(counter); got != before+2 {
		t.Fatalf("requests counter=%v want %v", got, before+2)
	}
	if n := testutil.ToFloat64(httpInflight); n != 0 {
		t.Fatalf("inflight=%v after requests finished", n)
	}
}

func TestMetricsMiddleware_FallsBackToPath(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	rr := httptest.NewRecorder()
	MetricsMiddleware(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/summarize", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}

	mrr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := mrr.Body.Bytes()
	if !bytes.Contains(body, []byte(`sumd_http_requests_total{method="POST",path="/summarize",status="200"}`)) {
		t.Fatalf("missing /summarize sample in scrape")
	}
}

func TestIncrementBackpressure(t *testing.T) {
	queue := testutil.ToFloat64(backpressureTotal.WithLabelValues("queue"))
	IncrementBackpressure("queue")
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("queue")); got != queue+1 {
		t.Fatalf("queue=%v want %v", got, queue+1)
	}
	unspecified := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified"))
	IncrementBackpressure("")
	if got := testutil.ToFloat64(backpressureTotal.WithLabelValues("unspecified")); got != unspecified+1 {
		t.Fatalf("unspecified=%v want %v", got, unspecified+1)
	}
}
