package main

import (
	"time"

	"github.com/rs/zerolog"

	"sumd/internal/common/fsutil"
	"sumd/internal/config"
	"sumd/internal/device"
	"sumd/internal/engine"
	"sumd/internal/loader"
	"sumd/internal/meter"
	"sumd/internal/metrics"
	"sumd/internal/summarizer"
	"sumd/internal/weights"
)

// app is the wired pipeline.
type app struct {
	svc     *summarizer.Service
	weights *weights.Reconstructor
	engine  engine.Engine
}

func (a *app) Close() error {
	err := a.svc.Close()
	if rt, ok := a.engine.(*engine.Runtime); ok {
		rt.StopAll()
	}
	return err
}

func newReconstructor(cfg config.Config, log zerolog.Logger) (*weights.Reconstructor, error) {
	cacheDir, err := fsutil.ExpandHome(cfg.CacheDir)
	if err != nil {
		return nil, err
	}
	r := weights.NewReconstructor(weights.Options{
		CacheRoot: cacheDir,
		Ext:       cfg.WeightsExt,
		GapPolicy: weights.GapPolicy(cfg.ShardGapPolicy),
	})
	r.SetLogger(log.With().Str("component", "weights").Logger())
	return r, nil
}

func newEngine(cfg config.Config, log zerolog.Logger) (engine.Engine, error) {
	return engine.New(engine.Config{
		Kind: cfg.Engine,
		OpenAI: engine.OpenAIConfig{
			BaseURL: cfg.EngineURL,
			APIKey:  cfg.EngineAPIKey,
			Model:   cfg.EngineModel,
		},
		Runtime: engine.RuntimeConfig{
			Bin:          cfg.RuntimeBin,
			Args:         cfg.RuntimeArgs,
			Host:         cfg.RuntimeHost,
			PortStart:    cfg.RuntimePortStart,
			PortEnd:      cfg.RuntimePortEnd,
			ReadyTimeout: time.Duration(cfg.RuntimeReady) * time.Second,
			APIKey:       cfg.EngineAPIKey,
		},
		Llama: engine.LlamaConfig{
			CtxSize:   cfg.LlamaCtx,
			Threads:   cfg.LlamaThreads,
			GPULayers: cfg.LlamaGPULayers,
		},
	}, log.With().Str("component", "engine").Logger())
}

// newApp wires meter, recorder, device probe, engine, loader, weights and
// the summarizer from cfg.
func newApp(cfg config.Config, log zerolog.Logger) (*app, error) {
	profiles, err := cfg.ProfileSet()
	if err != nil {
		return nil, err
	}
	modelDir, err := fsutil.ExpandHome(cfg.ModelDir)
	if err != nil {
		return nil, err
	}
	m, err := meter.New(meter.Config{Kind: cfg.Meter, TDPWatts: cfg.TDPWatts, RAPLRoot: cfg.RAPLRoot})
	if err != nil {
		return nil, err
	}
	rec := metrics.NewRecorder(m, metrics.PromSink{}, metrics.LogSink{Log: log})
	wr, err := newReconstructor(cfg, log)
	if err != nil {
		return nil, err
	}
	eng, err := newEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	ld := loader.New(eng, device.Once(device.NewSysfsProber()), nil)
	ld.SetLogger(log.With().Str("component", "loader").Logger())

	slog := log.With().Str("component", "summarizer").Logger()
	svc := summarizer.New(summarizer.Config{
		Profiles:      profiles,
		ModelDir:      modelDir,
		Weights:       wr,
		Loader:        ld,
		Recorder:      rec,
		EngineName:    eng.Name(),
		MaxQueueDepth: cfg.MaxQueueDepth,
		MaxWait:       time.Duration(cfg.MaxWait) * time.Second,
		MaxInputChars: cfg.MaxInputChars,
		Logger:        &slog,
	})
	log.Info().Str("engine", eng.Name()).Str("meter", rec.MeterName()).Str("model_dir", modelDir).
		Strs("profiles", profiles.Names()).Msg("pipeline wired")
	return &app{svc: svc, weights: wr, engine: eng}, nil
}
