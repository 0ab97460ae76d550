package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sumd/internal/device"
	"sumd/internal/profile"
	"sumd/internal/summarizer"
	"sumd/pkg/types"
)

type mockService struct {
	profiles   []types.ProfileInfo
	status     types.StatusResponse
	ready      bool
	err        error
	gotText    string
	gotProfile string
}

func (m *mockService) Summarize(ctx context.Context, text, name string) (summarizer.Result, error) {
	m.gotText, m.gotProfile = text, name
	if m.err != nil {
		return summarizer.Result{}, m.err
	}
	return summarizer.Result{
		Profile:   name,
		Device:    device.CPU,
		Summary:   "The ocean regulates the climate of the whole planet and stores vast heat",
		WordCount: 13,
		LatencyMS: 12.5,
		EnergyWh:  0.002,
		EnergyOK:  true,
	}, nil
}

func (m *mockService) Compare(ctx context.Context, text string) (summarizer.Comparison, error) {
	m.gotText = text
	if m.err != nil {
		return summarizer.Comparison{}, m.err
	}
	return summarizer.Comparison{
		RunID:               "run-1",
		Baseline:            summarizer.Result{Profile: profile.Baseline, LatencyMS: 100},
		Optimized:           summarizer.Result{Profile: profile.Optimized, LatencyMS: 40},
		LatencyReductionPct: 60,
	}, nil
}

func (m *mockService) Profiles() []types.ProfileInfo  { return m.profiles }
func (m *mockService) Status() types.StatusResponse { return m.status }
func (m *mockService) Ready() bool                  { return m.ready }

type mockHTTPError struct {
	msg  string
	code int
}

func (e mockHTTPError) Error() string   { return e.msg }
func (e mockHTTPError) StatusCode() int { return e.code }

func postJSON(h http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSummarizeDefaultsToBaseline(t *testing.T) {
	svc := &mockService{}
	w := postJSON(NewMux(svc), "/summarize", `{"text":"some text"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("content-type=%s", ct)
	}
	var body types.SummarizeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if svc.gotProfile != profile.Baseline || body.Optimized || body.WordCount != 13 || body.Device != "cpu" {
		t.Fatalf("profile=%s body=%+v", svc.gotProfile, body)
	}
}

func TestSummarizeSelectsProfile(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"text":"x","optimized":false}`, profile.Baseline},
		{`{"text":"x","optimized":null}`, profile.Baseline},
		{`{"text":"x","optimized":true}`, profile.Optimized},
		{`{"text":"x","optimized":true,"profile":"baseline"}`, profile.Baseline},
	}
	for _, c := range cases {
		svc := &mockService{}
		if w := postJSON(NewMux(svc), "/summarize", c.body); w.Code != http.StatusOK {
			t.Fatalf("%s: status=%d", c.body, w.Code)
		}
		if svc.gotProfile != c.want {
			t.Fatalf("%s: profile=%s want %s", c.body, svc.gotProfile, c.want)
		}
	}
}

func TestSummarizeAcceptsTextToSumAlias(t *testing.T) {
	svc := &mockService{}
	if w := postJSON(NewMux(svc), "/summarize", `{"textToSum":"legacy field"}`); w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if svc.gotText != "legacy field" {
		t.Fatalf("text=%q", svc.gotText)
	}
}

func TestSummarizeErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&summarizer.InvalidInputError{Reason: "text must not be empty"}, http.StatusBadRequest},
		{summarizer.ErrProfileNotFound("turbo"), http.StatusNotFound},
		{summarizer.ErrClosed, http.StatusServiceUnavailable},
		{mockHTTPError{msg: "teapot", code: http.StatusTeapot}, http.StatusTeapot},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, c := range cases {
		w := postJSON(NewMux(&mockService{err: c.err}), "/summarize", `{"text":"x"}`)
		if w.Code != c.want {
			t.Fatalf("%v: status=%d want %d", c.err, w.Code, c.want)
		}
		var body types.ErrorResponse
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != c.want || body.Error == "" {
			t.Fatalf("%v: body=%s", c.err, w.Body.String())
		}
	}
}

func TestSummarizeBadJSON(t *testing.T) {
	if w := postJSON(NewMux(&mockService{}), "/summarize", "not-json"); w.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestSummarizeUnsupportedMediaType(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/summarize", bytes.NewBufferString(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "text/plain")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestContentTypeCaseInsensitive(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/summarize", bytes.NewBufferString(`{"text":"hi"}`))
	req.Header.Set("Content-Type", "Application/JSON; charset=utf-8")
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with mixed-case content-type, got %d", w.Code)
	}
}

func TestSummarizeBodyTooLarge(t *testing.T) {
	big := `{"text":"` + strings.Repeat("a", (1<<20)+10) + `"}`
	if w := postJSON(NewMux(&mockService{}), "/summarize", big); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for too-large body, got %d", w.Code)
	}
}

func TestCompare(t *testing.T) {
	svc := &mockService{}
	w := postJSON(NewMux(svc), "/compare", `{"text":"compare me"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", w.Code, w.Body.String())
	}
	var body types.CompareResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.RunID != "run-1" || body.LatencyReductionPct != 60 || !body.Optimized.Optimized || body.Baseline.Optimized {
		t.Fatalf("body=%+v", body)
	}
}

func TestCompareTooBusyMaps429(t *testing.T) {
	// tooBusyError is unexported; any HTTPError with 429 takes the same path.
	w := postJSON(NewMux(&mockService{err: mockHTTPError{msg: "busy", code: http.StatusTooManyRequests}}), "/compare", `{"text":"x"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestProfilesHandler(t *testing.T) {
	svc := &mockService{profiles: []types.ProfileInfo{{Name: "baseline"}, {Name: "optimized"}}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/profiles", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.ProfilesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if len(body.Profiles) != 2 {
		t.Fatalf("profiles=%+v", body.Profiles)
	}
}

func TestStatusHandler(t *testing.T) {
	svc := &mockService{status: types.StatusResponse{State: "ready", Reconstructions: 1}}
	w := httptest.NewRecorder()
	NewMux(svc).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	var body types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("json: %v", err)
	}
	if body.State != "ready" || body.Reconstructions != 1 {
		t.Fatalf("unexpected body: %+v", body)
	}
}

func TestReadyz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{ready: true}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}

func TestReadyz_NotReady(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status=%d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "loading") {
		t.Fatalf("body=%q", w.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
