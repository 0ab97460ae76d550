package summarizer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/profile"
)

// WeightsResolver yields a consolidated weight file for a model directory.
type WeightsResolver interface {
	Resolve(ctx context.Context, modelDir string) (string, error)
	Reconstructions() uint64
}

// ModelLoader resolves a profile's device and loads its model there.
type ModelLoader interface {
	ResolveDevice(pref profile.DevicePreference) device.Kind
	LoadOn(ctx context.Context, weightPath string, p profile.Profile, dev device.Kind) (engine.Model, error)
}

// Service owns profile handles and runs measured summarizations.
type Service struct {
	cfg Config

	mu          sync.Mutex
	state       State
	handles     map[string]*handle
	slots       map[string]*slot
	weightsPath string
	lastErr     string
	startTime   time.Time

	group     singleflight.Group
	publisher EventPublisher
	log       zerolog.Logger
}

// SetLogger installs a structured logger.
func (s *Service) SetLogger(l zerolog.Logger) { s.log = l }

// Preload resolves the weights and loads every profile's model so that the
// first request does not pay the load cost.
func (s *Service) Preload(ctx context.Context) error {
	path, err := s.resolveWeights(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range s.cfg.Profiles.List() {
		if _, err := s.acquire(ctx, p, path); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.log.Info().Strs("profiles", s.cfg.Profiles.Names()).Msg("profiles preloaded")
	return nil
}

// Ready reports whether at least one profile can serve without loading.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return false
	}
	for _, h := range s.handles {
		if h.state == StateReady {
			return true
		}
	}
	return false
}

// Close releases every loaded model. Further calls fail with ErrClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	var models []engine.Model
	for _, h := range s.handles {
		if h.model != nil {
			models = append(models, h.model)
			h.model = nil
		}
		h.state = StateUnloaded
	}
	s.mu.Unlock()
	var errs []error
	for _, m := range models {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) resolveWeights(ctx context.Context) (string, error) {
	path, err := s.cfg.Weights.Resolve(ctx, s.cfg.ModelDir)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			s.lastErr = err.Error()
		}
		return "", err
	}
	s.weightsPath = path
	return path, nil
}
