// Package loader loads a model variant: it places weights on a device at the
// precision a profile asks for and returns an inference-mode handle.
package loader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/profile"
	"sumd/internal/weights"
)

// ModelLoadError reports weights or auxiliary files that are missing,
// unreadable or rejected by the engine.
type ModelLoadError struct {
	Path string
	Err  error
}

func (e *ModelLoadError) Error() string { return "load model " + e.Path + ": " + e.Err.Error() }
func (e *ModelLoadError) Unwrap() error { return e.Err }

// IsModelLoad reports whether err is a ModelLoadError.
func IsModelLoad(err error) bool {
	var le *ModelLoadError
	return errors.As(err, &le)
}

// Loader turns a weight path and a profile into a loaded model.
type Loader struct {
	engine   engine.Engine
	prober   device.Prober
	auxFiles []string
	log      zerolog.Logger
}

// New builds a Loader. auxFiles must exist beside the weights; nil means
// weights.DefaultAuxFiles.
func New(e engine.Engine, p device.Prober, auxFiles []string) *Loader {
	if auxFiles == nil {
		auxFiles = weights.DefaultAuxFiles
	}
	return &Loader{engine: e, prober: p, auxFiles: auxFiles, log: zerolog.Nop()}
}

// SetLogger installs a structured logger.
func (l *Loader) SetLogger(lg zerolog.Logger) { l.log = lg }

// Engine returns the backend in use.
func (l *Loader) Engine() engine.Engine { return l.engine }

// ResolveDevice applies a profile's device preference. Only
// cuda-if-available probes; cpu and cpu-forced never do.
func (l *Loader) ResolveDevice(pref profile.DevicePreference) device.Kind {
	if pref == profile.DeviceCUDAIfAvailable {
		return device.Select(l.prober)
	}
	return device.CPU
}

// Spec maps a profile's precision to engine load parameters. Dynamic int8
// loads at fp32 and quantizes afterwards.
func Spec(weightPath string, p profile.Profile, dev device.Kind) engine.LoadSpec {
	s := engine.LoadSpec{WeightPath: weightPath, DType: string(profile.FP32), Device: string(dev)}
	switch p.Precision {
	case profile.FP16:
		s.DType = string(profile.FP16)
	case profile.Int8Dynamic:
		s.Quantize = true
	}
	return s
}

// Load resolves the profile's device and loads the model there.
func (l *Loader) Load(ctx context.Context, weightPath string, p profile.Profile) (engine.Model, device.Kind, error) {
	dev := l.ResolveDevice(p.Device)
	m, err := l.LoadOn(ctx, weightPath, p, dev)
	if err != nil {
		return nil, "", err
	}
	return m, dev, nil
}

// LoadOn checks the files, loads the weights on dev and puts the model into
// inference mode.
func (l *Loader) LoadOn(ctx context.Context, weightPath string, p profile.Profile, dev device.Kind) (engine.Model, error) {
	if err := checkReadable(weightPath); err != nil {
		return nil, &ModelLoadError{Path: weightPath, Err: err}
	}
	dir := filepath.Dir(weightPath)
	for _, aux := range l.auxFiles {
		if err := checkReadable(filepath.Join(dir, aux)); err != nil {
			return nil, &ModelLoadError{Path: weightPath, Err: fmt.Errorf("auxiliary file: %w", err)}
		}
	}
	spec := Spec(weightPath, p, dev)
	m, err := l.engine.Load(ctx, spec)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &ModelLoadError{Path: weightPath, Err: err}
	}
	if err := m.Eval(); err != nil {
		_ = m.Close()
		return nil, &ModelLoadError{Path: weightPath, Err: fmt.Errorf("eval: %w", err)}
	}
	l.log.Info().Str("profile", p.Name).Str("engine", l.engine.Name()).Str("device", string(dev)).
		Str("dtype", spec.DType).Bool("quantize", spec.Quantize).Msg("model loaded")
	return m, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}
