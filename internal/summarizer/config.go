package summarizer

import (
	"time"

	"github.com/rs/zerolog"

	"sumd/internal/metrics"
	"sumd/internal/profile"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxQueueDepth = 32
	defaultMaxWait       = 30 * time.Second
	// DefaultMaxInputChars bounds accepted input text, in characters.
	DefaultMaxInputChars = 4000
)

// Config encapsulates all tunables for Service construction.
type Config struct {
	Profiles *profile.Set
	ModelDir string
	Weights  WeightsResolver
	Loader   ModelLoader
	Recorder *metrics.Recorder
	// EngineName is reported by Status.
	EngineName    string
	MaxQueueDepth int
	MaxWait       time.Duration
	MaxInputChars int
	Publisher     EventPublisher
	Logger        *zerolog.Logger
}

// New constructs a Service from Config, applying defaults.
func New(cfg Config) *Service {
	if cfg.Profiles == nil {
		cfg.Profiles = profile.DefaultSet()
	}
	if cfg.MaxQueueDepth <= 0 {
		cfg.MaxQueueDepth = defaultMaxQueueDepth
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = DefaultMaxInputChars
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewRecorder(nil)
	}
	s := &Service{
		cfg:       cfg,
		state:     StateReady,
		handles:   make(map[string]*handle),
		slots:     make(map[string]*slot),
		publisher: noopPublisher{},
		log:       zerolog.Nop(),
		startTime: time.Now(),
	}
	if cfg.Publisher != nil {
		s.publisher = cfg.Publisher
	}
	if cfg.Logger != nil {
		s.log = *cfg.Logger
	}
	for _, p := range cfg.Profiles.List() {
		s.handles[p.Name] = &handle{profile: p, state: StateUnloaded}
	}
	return s
}
