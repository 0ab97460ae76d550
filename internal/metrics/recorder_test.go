package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"sumd/internal/meter"
)

type fakeMeter struct {
	kwh    float64
	ok     bool
	starts int
	stops  int
}

func (f *fakeMeter) Name() string { return "fake" }

func (f *fakeMeter) Start() meter.Session {
	f.starts++
	return fakeSession{f}
}

type fakeSession struct{ f *fakeMeter }

func (s fakeSession) Stop() (float64, bool) {
	s.f.stops++
	return s.f.kwh, s.f.ok
}

func steppingClock(step time.Duration) func() time.Time {
	t := time.Unix(1000, 0)
	return func() time.Time {
		t = t.Add(step)
		return t
	}
}

func TestMeasure_ConvertsKWhToWhOnce(t *testing.T) {
	fm := &fakeMeter{kwh: 0.25, ok: true}
	sink := NewMemorySink()
	r := NewRecorder(fm, sink)
	r.now = steppingClock(250 * time.Millisecond)

	got, m, err := Measure(context.Background(), r, Labels{Profile: "optimized", Device: "cpu"}, func(context.Context) (string, error) {
		return "done", nil
	})
	if err != nil || got != "done" {
		t.Fatalf("got %q err=%v", got, err)
	}
	if m.EnergyWh != 250 || !m.EnergyOK {
		t.Fatalf("energy=%v ok=%v", m.EnergyWh, m.EnergyOK)
	}
	if m.LatencyMS != 250 || m.Outcome != OutcomeOK {
		t.Fatalf("measurement=%+v", m)
	}
	if fm.starts != 1 || fm.stops != 1 {
		t.Fatalf("meter start/stop %d/%d", fm.starts, fm.stops)
	}
	if recs := sink.Measurements(); len(recs) != 1 || recs[0] != m {
		t.Fatalf("sink=%+v", recs)
	}
}

func TestMeasure_FailureStillRecordedAndReturned(t *testing.T) {
	fm := &fakeMeter{}
	sink := NewMemorySink()
	r := NewRecorder(fm, sink)
	boom := errors.New("decode failed")

	_, m, err := Measure(context.Background(), r, Labels{Profile: "baseline"}, func(context.Context) (int, error) {
		time.Sleep(time.Millisecond)
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error masked: %v", err)
	}
	if m.Outcome != OutcomeError || m.LatencyMS <= 0 {
		t.Fatalf("measurement=%+v", m)
	}
	if m.EnergyWh != 0 || m.EnergyOK {
		t.Fatalf("missing reading should be zero energy: %+v", m)
	}
	if len(sink.Measurements()) != 1 || fm.stops != 1 {
		t.Fatalf("expected exactly one finalize")
	}
}

func TestMeasure_PanicFinalizesThenPropagates(t *testing.T) {
	fm := &fakeMeter{ok: true, kwh: 0.001}
	sink := NewMemorySink()
	r := NewRecorder(fm, sink)
	defer func() {
		if p := recover(); p != "boom" {
			t.Fatalf("panic not propagated: %v", p)
		}
		recs := sink.Measurements()
		if len(recs) != 1 || recs[0].Outcome != OutcomePanic || fm.stops != 1 {
			t.Fatalf("panic path not finalized: %+v stops=%d", recs, fm.stops)
		}
	}()
	_, _, _ = Measure(context.Background(), r, Labels{}, func(context.Context) (int, error) {
		panic("boom")
	})
}

func TestMeasure_NegativeReadingTreatedAsMissing(t *testing.T) {
	r := NewRecorder(&fakeMeter{kwh: -1, ok: true}, PromSink{})
	_, m, _ := Measure(context.Background(), r, Labels{Profile: "x"}, func(context.Context) (struct{}, error) {
		return struct{}{}, nil
	})
	if m.EnergyWh != 0 || m.EnergyOK {
		t.Fatalf("measurement=%+v", m)
	}
}

func TestNewRecorder_NilMeter(t *testing.T) {
	r := NewRecorder(nil)
	if r.MeterName() != meter.KindNone {
		t.Fatalf("meter=%s", r.MeterName())
	}
}
