package weights

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
)

// ConsolidatedName is the file name of a complete weight file.
func ConsolidatedName(ext string) string { return "model." + ext }

// ShardName is the file name of the 1-based shard i.
func ShardName(i int, ext string) string { return fmt.Sprintf("model_part%d.%s", i, ext) }

// Discovery is the result of scanning a directory for shards.
type Discovery struct {
	// Shards is the contiguous run model_part1..N in index order.
	Shards []string
	// Missing is the first index not found (N+1).
	Missing int
	// Dropped lists shard indices present beyond the gap, ascending.
	Dropped []int
}

// HasGap reports whether shards exist past the first missing index.
func (d Discovery) HasGap() bool { return len(d.Dropped) > 0 }

// DiscoverShards walks model_part1, model_part2, ... and stops at the first
// missing index. Shards numbered past the gap are reported, never combined.
func DiscoverShards(dir, ext string) (Discovery, error) {
	var d Discovery
	for i := 1; ; i++ {
		p := filepath.Join(dir, ShardName(i, ext))
		fi, err := os.Stat(p)
		if err != nil || !fi.Mode().IsRegular() {
			d.Missing = i
			break
		}
		d.Shards = append(d.Shards, p)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return d, err
	}
	re := regexp.MustCompile(`^model_part(\d+)\.` + regexp.QuoteMeta(ext) + `$`)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := re.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= d.Missing {
			continue
		}
		d.Dropped = append(d.Dropped, n)
	}
	sort.Ints(d.Dropped)
	return d, nil
}
