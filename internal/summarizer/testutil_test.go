package summarizer

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/metrics"
	"sumd/internal/profile"
)

const sampleText = "The ocean covers more than two thirds of the Earth. It absorbs heat from the sun and " +
	"moves it around the globe through currents. This keeps coastal climates mild and shapes weather everywhere."

// fakeModel answers with the prompt followed by reply, or fails with err.
type fakeModel struct {
	reply  string
	err    error
	block  chan struct{}
	calls  atomic.Int32
	closed atomic.Bool
}

func (m *fakeModel) Eval() error { return nil }

func (m *fakeModel) Generate(ctx context.Context, req engine.Request) (string, error) {
	m.calls.Add(1)
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if m.err != nil {
		return "", m.err
	}
	return req.Prompt + m.reply, nil
}

func (m *fakeModel) Close() error { m.closed.Store(true); return nil }

// fakeLoader hands out one model per profile name.
type fakeLoader struct {
	mu      sync.Mutex
	models  map[string]*fakeModel
	loadErr error
	delay   time.Duration
	order   []string
	cuda    bool
	// drift flips the cuda answer after every resolution, like a prober
	// whose GPU comes and goes.
	drift    bool
	resolved map[string]int
	devices  map[string]device.Kind
}

func newFakeLoader(reply string) *fakeLoader {
	return &fakeLoader{models: map[string]*fakeModel{
		profile.Optimized: {reply: reply},
		profile.Baseline:  {reply: reply},
	}}
}

func (l *fakeLoader) ResolveDevice(pref profile.DevicePreference) device.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.resolved == nil {
		l.resolved = map[string]int{}
	}
	l.resolved[string(pref)]++
	dev := device.CPU
	if l.cuda && pref == profile.DeviceCUDAIfAvailable {
		dev = device.CUDA
	}
	if l.drift {
		l.cuda = !l.cuda
	}
	return dev
}

func (l *fakeLoader) LoadOn(ctx context.Context, weightPath string, p profile.Profile, dev device.Kind) (engine.Model, error) {
	if l.delay > 0 {
		time.Sleep(l.delay)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, p.Name)
	if l.loadErr != nil {
		return nil, l.loadErr
	}
	if l.devices == nil {
		l.devices = map[string]device.Kind{}
	}
	l.devices[p.Name] = dev
	return l.models[p.Name], nil
}

func (l *fakeLoader) resolutions(pref profile.DevicePreference) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.resolved[string(pref)]
}

func (l *fakeLoader) loadedOn(name string) device.Kind {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.devices[name]
}

func (l *fakeLoader) loads() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.order...)
}

type fakeWeights struct {
	calls atomic.Int32
	err   error
}

func (w *fakeWeights) Resolve(ctx context.Context, modelDir string) (string, error) {
	w.calls.Add(1)
	if w.err != nil {
		return "", w.err
	}
	return "/models/m/model.safetensors", nil
}

func (w *fakeWeights) Reconstructions() uint64 { return 0 }

func newTestService(t *testing.T, l *fakeLoader, mutate func(*Config)) (*Service, *metrics.MemorySink, *fakeWeights) {
	t.Helper()
	sink := metrics.NewMemorySink()
	w := &fakeWeights{}
	cfg := Config{
		ModelDir: "/models/m",
		Weights:  w,
		Loader:   l,
		Recorder: metrics.NewRecorder(nil, sink),
		MaxWait:  time.Second,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	s := New(cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s, sink, w
}

var errBoom = errors.New("boom")
