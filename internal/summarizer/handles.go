package summarizer

import (
	"context"
	"time"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/profile"
)

// acquire returns a ready handle for p, loading the model on first use.
// Concurrent callers share a single load; the load itself is detached from
// the caller's cancellation so a dropped request does not waste it.
func (s *Service) acquire(ctx context.Context, p profile.Profile, weightPath string) (*handle, error) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	h := s.handles[p.Name]
	if h == nil {
		s.mu.Unlock()
		return nil, ErrProfileNotFound(p.Name)
	}
	if h.state == StateReady && h.model != nil {
		h.lastUsed = time.Now()
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	ch := s.group.DoChan(p.Name, func() (any, error) {
		return nil, s.load(context.WithoutCancel(ctx), h, weightPath)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	s.mu.Lock()
	h.lastUsed = time.Now()
	s.mu.Unlock()
	return h, nil
}

func (s *Service) load(ctx context.Context, h *handle, weightPath string) error {
	s.mu.Lock()
	if h.state == StateReady && h.model != nil {
		s.mu.Unlock()
		return nil
	}
	h.state = StateLoading
	h.err = ""
	s.mu.Unlock()
	s.publisher.Publish(Event{Name: "load_start", Profile: h.profile.Name})

	dev := s.deviceFor(h)
	start := time.Now()
	m, err := s.cfg.Loader.LoadOn(ctx, weightPath, h.profile, dev)

	s.mu.Lock()
	if err == nil && s.state == StateClosed {
		s.mu.Unlock()
		_ = m.Close()
		return ErrClosed
	}
	if err != nil {
		h.state = StateError
		h.err = err.Error()
		s.lastErr = err.Error()
		s.mu.Unlock()
		s.log.Error().Err(err).Str("profile", h.profile.Name).Msg("model load failed")
		s.publisher.Publish(Event{Name: "load_error", Profile: h.profile.Name, Fields: map[string]any{"error": err.Error()}})
		return err
	}
	h.model, h.state = m, StateReady
	s.mu.Unlock()
	s.publisher.Publish(Event{Name: "load_ready", Profile: h.profile.Name, Fields: map[string]any{
		"device":      string(dev),
		"duration_ms": time.Since(start).Milliseconds(),
	}})
	return nil
}

// deviceFor returns the device h runs on, resolving it the first time.
// Admission, loading, labels and results all use this one value.
func (s *Service) deviceFor(h *handle) device.Kind {
	s.mu.Lock()
	dev := h.device
	s.mu.Unlock()
	if dev != "" {
		return dev
	}
	dev = s.cfg.Loader.ResolveDevice(h.profile.Device)
	s.mu.Lock()
	defer s.mu.Unlock()
	if h.device == "" {
		h.device = dev
	}
	return h.device
}

// model returns the handle's loaded model under lock.
func (s *Service) model(h *handle) engine.Model {
	s.mu.Lock()
	defer s.mu.Unlock()
	return h.model
}
