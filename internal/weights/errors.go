package weights

import (
	"errors"
	"fmt"
)

// NoShardsFoundError reports a model directory with neither a consolidated
// weight file nor a first shard.
type NoShardsFoundError struct{ Dir string }

func (e *NoShardsFoundError) Error() string {
	return "no consolidated weights or shard 1 found in " + e.Dir
}

// IsNoShardsFound reports whether err is (or wraps) a NoShardsFoundError.
func IsNoShardsFound(err error) bool {
	var e *NoShardsFoundError
	return errors.As(err, &e)
}

// ShardGapError is returned under GapError when shards exist past a missing index.
type ShardGapError struct {
	Dir     string
	Missing int
	Dropped []int
}

func (e *ShardGapError) Error() string {
	return fmt.Sprintf("shard %d missing in %s; shards %v would be dropped", e.Missing, e.Dir, e.Dropped)
}

// IsShardGap reports whether err is (or wraps) a ShardGapError.
func IsShardGap(err error) bool {
	var e *ShardGapError
	return errors.As(err, &e)
}

// ShardMismatchError reports shards that cannot be concatenated.
type ShardMismatchError struct {
	Shard  string
	Key    string
	Reason string
}

func (e *ShardMismatchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("shard %s: %s", e.Shard, e.Reason)
	}
	return fmt.Sprintf("shard %s: tensor %q: %s", e.Shard, e.Key, e.Reason)
}

// IsShardMismatch reports whether err is (or wraps) a ShardMismatchError.
func IsShardMismatch(err error) bool {
	var e *ShardMismatchError
	return errors.As(err, &e)
}
