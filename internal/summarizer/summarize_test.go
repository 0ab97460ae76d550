package summarizer

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"sumd/internal/device"
	"sumd/internal/generate"
	"sumd/internal/metrics"
	"sumd/internal/postprocess"
	"sumd/internal/profile"
)

const goodReply = " the ocean regulates the climate of the whole planet and stores vast heat energy."

func TestSummarize_CleansModelOutput(t *testing.T) {
	s, sink, _ := newTestService(t, newFakeLoader(goodReply), nil)
	res, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	want := "The ocean regulates the climate of the whole planet and stores vast heat energy"
	if res.Summary != want {
		t.Fatalf("summary=%q", res.Summary)
	}
	if res.WordCount != 14 || res.Fallback {
		t.Fatalf("res=%+v", res)
	}
	ms := sink.Measurements()
	if len(ms) != 1 || ms[0].Outcome != metrics.OutcomeOK || ms[0].Profile != profile.Optimized || ms[0].Device != "cpu" {
		t.Fatalf("measurements=%+v", ms)
	}
	if res.LatencyMS != ms[0].LatencyMS {
		t.Fatalf("latency %v != recorded %v", res.LatencyMS, ms[0].LatencyMS)
	}
}

func TestSummarize_EmptyContinuationFallsBack(t *testing.T) {
	s, _, _ := newTestService(t, newFakeLoader(""), nil)
	res, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if !res.Fallback {
		t.Fatalf("expected fallback: %+v", res)
	}
	if res.WordCount < postprocess.MinWords || res.WordCount > postprocess.MaxWords {
		t.Fatalf("word count %d out of range: %q", res.WordCount, res.Summary)
	}
	if !strings.HasPrefix(res.Summary, "The ocean covers") {
		t.Fatalf("excerpt=%q", res.Summary)
	}
	st := s.Status()
	for _, p := range st.Profiles {
		if p.Profile == profile.Optimized && (p.Fallbacks != 1 || p.Requests != 1) {
			t.Fatalf("counters=%+v", p)
		}
	}
}

func TestSummarize_GenerationFailureStillMeasured(t *testing.T) {
	l := newFakeLoader("")
	l.models[profile.Optimized].err = errBoom
	s, sink, _ := newTestService(t, l, nil)
	_, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
	if !generate.IsGeneration(err) {
		t.Fatalf("want generation error, got %v", err)
	}
	ms := sink.Measurements()
	if len(ms) != 1 || ms[0].Outcome != metrics.OutcomeError {
		t.Fatalf("measurements=%+v", ms)
	}
	if s.Status().LastError == "" {
		t.Fatalf("last error not recorded")
	}
}

func TestSummarize_InvalidInputBeforeModelWork(t *testing.T) {
	l := newFakeLoader(goodReply)
	s, sink, w := newTestService(t, l, nil)
	for _, text := range []string{"", "   \n\t", strings.Repeat("a", DefaultMaxInputChars+1), "bad \xff bytes"} {
		_, err := s.Summarize(context.Background(), text, profile.Optimized)
		if !IsInvalidInput(err) {
			t.Fatalf("text len %d: want invalid input, got %v", len(text), err)
		}
	}
	if len(l.loads()) != 0 || w.calls.Load() != 0 || len(sink.Measurements()) != 0 {
		t.Fatalf("model work happened: loads=%v resolves=%d", l.loads(), w.calls.Load())
	}
	if _, err := s.Summarize(context.Background(), strings.Repeat("é", DefaultMaxInputChars), profile.Optimized); IsInvalidInput(err) {
		t.Fatalf("limit counts characters, not bytes: %v", err)
	}
}

func TestSummarize_UnknownProfile(t *testing.T) {
	s, _, _ := newTestService(t, newFakeLoader(goodReply), nil)
	_, err := s.Summarize(context.Background(), sampleText, "turbo")
	if !IsProfileNotFound(err) {
		t.Fatalf("got %v", err)
	}
}

func TestSummarize_WeightsErrorPropagates(t *testing.T) {
	s, _, w := newTestService(t, newFakeLoader(goodReply), nil)
	w.err = errBoom
	if _, err := s.Summarize(context.Background(), sampleText, profile.Optimized); err != errBoom {
		t.Fatalf("got %v", err)
	}
}

func TestSummarize_LoadsOnceUnderConcurrency(t *testing.T) {
	l := newFakeLoader(goodReply)
	l.delay = 20 * time.Millisecond
	s, _, _ := newTestService(t, l, nil)
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Summarize(context.Background(), sampleText, profile.Optimized); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("summarize: %v", err)
	}
	if got := l.loads(); len(got) != 1 {
		t.Fatalf("loads=%v", got)
	}
	if n := l.models[profile.Optimized].calls.Load(); n != 8 {
		t.Fatalf("generate calls=%d", n)
	}
}

func TestSummarize_LoadErrorRetriedNextCall(t *testing.T) {
	l := newFakeLoader(goodReply)
	l.loadErr = errBoom
	pub := NewMemoryPublisher()
	s, sink, _ := newTestService(t, l, func(c *Config) { c.Publisher = pub })
	if _, err := s.Summarize(context.Background(), sampleText, profile.Optimized); err != errBoom {
		t.Fatalf("got %v", err)
	}
	if ms := sink.Measurements(); len(ms) != 1 || ms[0].Outcome != metrics.OutcomeError {
		t.Fatalf("measurements=%+v", ms)
	}
	st := s.Status()
	if st.State != string(StateError) {
		t.Fatalf("state=%s", st.State)
	}

	l.mu.Lock()
	l.loadErr = nil
	l.mu.Unlock()
	if _, err := s.Summarize(context.Background(), sampleText, profile.Optimized); err != nil {
		t.Fatalf("retry: %v", err)
	}
	names := strings.Join(pub.Names(), ",")
	if names != "load_start,load_error,load_start,load_ready" {
		t.Fatalf("events=%s", names)
	}
}

func TestSummarize_TooBusyWhenQueueFull(t *testing.T) {
	l := newFakeLoader(goodReply)
	block := make(chan struct{})
	l.models[profile.Optimized].block = block
	pub := NewMemoryPublisher()
	s, _, _ := newTestService(t, l, func(c *Config) {
		c.MaxQueueDepth = 1
		c.MaxWait = 50 * time.Millisecond
		c.Publisher = pub
	})

	done := make(chan error, 1)
	go func() {
		_, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
		done <- err
	}()
	deadline := time.Now().Add(2 * time.Second)
	for {
		st := s.Status()
		busy := false
		for _, p := range st.Profiles {
			if p.Inflight == 1 {
				busy = true
			}
		}
		if busy {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("first request never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	_, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
	if !IsTooBusy(err) {
		t.Fatalf("want too busy, got %v", err)
	}
	close(block)
	if err := <-done; err != nil {
		t.Fatalf("first: %v", err)
	}
	found := false
	for _, n := range pub.Names() {
		if n == "backpressure" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no backpressure event: %v", pub.Names())
	}
}

func TestSummarize_CanceledWhileQueued(t *testing.T) {
	l := newFakeLoader(goodReply)
	block := make(chan struct{})
	l.models[profile.Baseline].block = block
	s, _, _ := newTestService(t, l, nil)

	go func() { _, _ = s.Summarize(context.Background(), sampleText, profile.Baseline) }()
	for l.models[profile.Baseline].calls.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.Summarize(ctx, sampleText, profile.Baseline)
	if err != context.DeadlineExceeded {
		t.Fatalf("got %v", err)
	}
	close(block)
}

func TestSummarize_DeviceResolvedOncePerProfile(t *testing.T) {
	l := newFakeLoader(goodReply)
	l.cuda, l.drift = true, true
	s, sink, _ := newTestService(t, l, nil)

	for i := 0; i < 2; i++ {
		res, err := s.Summarize(context.Background(), sampleText, profile.Optimized)
		if err != nil {
			t.Fatalf("summarize %d: %v", i, err)
		}
		if res.Device != device.CUDA {
			t.Fatalf("run %d reported device %s", i, res.Device)
		}
	}
	if got := l.loadedOn(profile.Optimized); got != device.CUDA {
		t.Fatalf("loaded on %s", got)
	}
	if n := l.resolutions(profile.DeviceCUDAIfAvailable); n != 1 {
		t.Fatalf("device resolved %d times", n)
	}
	for _, m := range sink.Measurements() {
		if m.Device != string(device.CUDA) {
			t.Fatalf("measurement labelled %s", m.Device)
		}
	}
	for _, ps := range s.Status().Profiles {
		if ps.Profile == profile.Optimized && (ps.Device != string(device.CUDA) || ps.Inflight != 0) {
			t.Fatalf("status=%+v", ps)
		}
	}
}
