package summarizer

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/prometheus/client_golang/prometheus"

	"sumd/internal/generate"
	"sumd/internal/metrics"
	"sumd/internal/postprocess"
	"sumd/internal/prompt"
)

var fallbackTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "sumd",
		Name:      "summaries_fallback_total",
		Help:      "Summaries replaced by an excerpt of the input.",
	},
	[]string{"profile"},
)

func init() {
	prometheus.MustRegister(fallbackTotal)
}

// Validate rejects text that must not reach a model.
func (s *Service) Validate(text string) error {
	if !utf8.ValidString(text) {
		return &InvalidInputError{Reason: "text is not valid UTF-8"}
	}
	if strings.TrimSpace(text) == "" {
		return &InvalidInputError{Reason: "text must not be empty"}
	}
	if n := utf8.RuneCountInString(text); n > s.cfg.MaxInputChars {
		return &InvalidInputError{Reason: fmt.Sprintf("text has %d characters, limit is %d", n, s.cfg.MaxInputChars)}
	}
	return nil
}

type generated struct {
	raw    string
	prompt string
}

// Summarize produces a 10 to 15 word summary of text with the named profile.
// Latency and energy cover handle acquisition, prompt building and
// generation; waiting for the device and post-processing are excluded.
func (s *Service) Summarize(ctx context.Context, text, profileName string) (Result, error) {
	if err := s.Validate(text); err != nil {
		return Result{}, err
	}
	text = strings.TrimSpace(text)
	p, ok := s.cfg.Profiles.Get(profileName)
	if !ok {
		return Result{}, ErrProfileNotFound(profileName)
	}
	s.mu.Lock()
	closed := s.state == StateClosed
	s.mu.Unlock()
	if closed {
		return Result{}, ErrClosed
	}

	weightPath, err := s.resolveWeights(ctx)
	if err != nil {
		return Result{}, err
	}
	s.mu.Lock()
	h := s.handles[p.Name]
	s.mu.Unlock()
	if h == nil {
		return Result{}, ErrProfileNotFound(p.Name)
	}
	dev := s.deviceFor(h)
	release, err := s.admit(ctx, string(dev))
	if err != nil {
		if IsTooBusy(err) {
			s.publisher.Publish(Event{Name: "backpressure", Profile: p.Name, Fields: map[string]any{"device": string(dev)}})
		}
		return Result{}, err
	}
	defer release()

	labels := metrics.Labels{Profile: p.Name, Device: string(dev)}
	out, m, err := metrics.Measure(ctx, s.cfg.Recorder, labels, func(ctx context.Context) (generated, error) {
		if _, err := s.acquire(ctx, p, weightPath); err != nil {
			return generated{}, err
		}
		model := s.model(h)
		in := prompt.Build(text, p)
		raw, err := generate.Generate(ctx, model, in, p)
		return generated{raw: raw, prompt: in}, err
	})
	if err != nil {
		s.mu.Lock()
		if ctx.Err() == nil {
			s.lastErr = err.Error()
		}
		s.mu.Unlock()
		s.log.Warn().Err(err).Str("profile", p.Name).Float64("latency_ms", m.LatencyMS).Msg("summarize failed")
		return Result{}, err
	}

	pp := postprocess.Process(out.raw, out.prompt, text)
	h.requests.Add(1)
	if pp.Fallback {
		h.fallbacks.Add(1)
		fallbackTotal.WithLabelValues(p.Name).Inc()
		s.log.Debug().Str("profile", p.Name).Msg("model output replaced by excerpt")
	}
	return Result{
		Profile:   p.Name,
		Device:    dev,
		Summary:   pp.Summary,
		WordCount: pp.WordCount,
		LatencyMS: m.LatencyMS,
		EnergyWh:  m.EnergyWh,
		EnergyOK:  m.EnergyOK,
		Fallback:  pp.Fallback,
	}, nil
}
