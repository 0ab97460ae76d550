// Package weights rebuilds a consolidated safetensors weight file from
// numbered shards and caches it on disk.
//
// Layout consumed: <model_dir>/model.<ext>, or <model_dir>/model_part{1..N}.<ext>
// plus auxiliary files (config.json, tokenizer.json).
// Layout produced: <cache_root>/<basename(model_dir)>/model.<ext> plus copies of
// the auxiliary files.
package weights

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"sumd/internal/common/fsutil"
)

// GapPolicy decides what a hole in the shard numbering means.
type GapPolicy string

const (
	// GapStop combines the contiguous run starting at 1 and drops the rest.
	GapStop GapPolicy = "stop"
	// GapError refuses to combine when shards exist past a gap.
	GapError GapPolicy = "error"
)

// Defaults applied when the corresponding Options fields are unset.
const (
	DefaultExt = "safetensors"
)

// DefaultAuxFiles are copied next to the consolidated weights.
var DefaultAuxFiles = []string{"config.json", "tokenizer.json"}

// Options configures a Reconstructor.
type Options struct {
	CacheRoot string
	Ext       string
	GapPolicy GapPolicy
	AuxFiles  []string
}

var (
	reconstructionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sumd",
		Subsystem: "weights",
		Name:      "reconstructions_total",
		Help:      "Shard concatenations written to the weight cache",
	})
	shardGapsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sumd",
		Subsystem: "weights",
		Name:      "shard_gaps_total",
		Help:      "Reconstructions that found shards past a missing index",
	})
)

func init() {
	prometheus.MustRegister(reconstructionsTotal, shardGapsTotal)
}

// Reconstructor resolves a model directory to a consolidated weight file,
// building and caching it from shards on first use. It owns the cache root.
type Reconstructor struct {
	opts  Options
	group singleflight.Group
	count atomic.Uint64
	log   zerolog.Logger
}

// NewReconstructor builds a Reconstructor, applying defaults.
func NewReconstructor(opts Options) *Reconstructor {
	if opts.Ext == "" {
		opts.Ext = DefaultExt
	}
	if opts.GapPolicy == "" {
		opts.GapPolicy = GapStop
	}
	if opts.AuxFiles == nil {
		opts.AuxFiles = DefaultAuxFiles
	}
	return &Reconstructor{opts: opts, log: zerolog.Nop()}
}

// SetLogger installs a structured logger.
func (r *Reconstructor) SetLogger(l zerolog.Logger) { r.log = l }

// Ext returns the weight file extension in use.
func (r *Reconstructor) Ext() string { return r.opts.Ext }

// Reconstructions returns how many concatenations this instance performed.
func (r *Reconstructor) Reconstructions() uint64 { return r.count.Load() }

// CacheDir returns the cache directory for modelDir.
func (r *Reconstructor) CacheDir(modelDir string) string {
	return filepath.Join(r.opts.CacheRoot, filepath.Base(filepath.Clean(modelDir)))
}

// Resolve returns the path of a consolidated weight file for modelDir.
// An existing model.<ext> in modelDir or in the cache is returned as is;
// otherwise shards are combined into the cache exactly once, even under
// concurrent callers.
func (r *Reconstructor) Resolve(ctx context.Context, modelDir string) (string, error) {
	dir, err := fsutil.ExpandHome(modelDir)
	if err != nil {
		return "", err
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("abs path: %w", err)
	}
	name := ConsolidatedName(r.opts.Ext)
	if p := filepath.Join(dir, name); fsutil.IsRegularFile(p) {
		return p, nil
	}
	cacheDir := r.CacheDir(dir)
	cached := filepath.Join(cacheDir, name)
	if fsutil.IsRegularFile(cached) {
		return cached, nil
	}

	ch := r.group.DoChan(cached, func() (any, error) {
		return cached, r.build(dir, cacheDir, cached)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (r *Reconstructor) build(dir, cacheDir, cached string) error {
	// Another flight may have finished between the fast-path check and now.
	if fsutil.IsRegularFile(cached) {
		return nil
	}
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return &NoShardsFoundError{Dir: dir}
		}
		return err
	}
	disc, err := DiscoverShards(dir, r.opts.Ext)
	if err != nil {
		return err
	}
	if len(disc.Shards) == 0 {
		return &NoShardsFoundError{Dir: dir}
	}
	if disc.HasGap() {
		shardGapsTotal.Inc()
		if r.opts.GapPolicy == GapError {
			return &ShardGapError{Dir: dir, Missing: disc.Missing, Dropped: disc.Dropped}
		}
		r.log.Warn().Str("dir", dir).Int("missing", disc.Missing).Ints("dropped", disc.Dropped).
			Msg("shard gap: combining contiguous shards only")
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	if n, _ := fsutil.RemoveStaleTemps(cacheDir, filepath.Base(cached)); n > 0 {
		r.log.Warn().Str("dir", cacheDir).Int("files", n).Msg("removed interrupted reconstruction output")
	}
	// Auxiliary files go first so a visible model file always has its
	// config and tokenizer beside it.
	for _, aux := range r.opts.AuxFiles {
		src := filepath.Join(dir, aux)
		if !fsutil.IsRegularFile(src) {
			continue
		}
		if _, err := fsutil.CopyFileIfMissing(src, filepath.Join(cacheDir, aux)); err != nil {
			return fmt.Errorf("copy %s: %w", aux, err)
		}
	}
	err = fsutil.WriteAtomic(cached, func(w io.Writer) error {
		return Combine(w, disc.Shards)
	})
	if err != nil {
		return fmt.Errorf("reconstruct %s: %w", dir, err)
	}
	r.count.Add(1)
	reconstructionsTotal.Inc()
	r.log.Info().Str("dir", dir).Int("shards", len(disc.Shards)).Str("path", cached).Msg("weights reconstructed")
	return nil
}
