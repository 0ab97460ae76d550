package meter

import (
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRAPLRoot is where Linux exposes powercap zones.
const DefaultRAPLRoot = "/sys/class/powercap"

// Top-level package zones only; subzones (intel-rapl:0:0) are already
// included in their package counter.
var packageZone = regexp.MustCompile(`^intel-rapl:\d+$`)

const joulesPerKWh = 3.6e6

// RAPL reads cumulative energy counters from the powercap interface.
type RAPL struct {
	root string
}

// NewRAPL returns a RAPL meter rooted at root, or DefaultRAPLRoot when empty.
func NewRAPL(root string) *RAPL {
	if root == "" {
		root = DefaultRAPLRoot
	}
	return &RAPL{root: root}
}

func (r *RAPL) Name() string { return KindRAPL }

// Available reports whether at least one package counter is readable.
func (r *RAPL) Available() bool { return len(r.read()) > 0 }

func (r *RAPL) Start() Session { return &raplSession{m: r, start: r.read()} }

type zoneReading struct {
	energy uint64
	max    uint64
}

func (r *RAPL) read() map[string]zoneReading {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		return nil
	}
	out := make(map[string]zoneReading)
	for _, e := range entries {
		if !packageZone.MatchString(e.Name()) {
			continue
		}
		dir := filepath.Join(r.root, e.Name())
		energy, err := readUint(filepath.Join(dir, "energy_uj"))
		if err != nil {
			continue
		}
		maxRange, _ := readUint(filepath.Join(dir, "max_energy_range_uj"))
		out[e.Name()] = zoneReading{energy: energy, max: maxRange}
	}
	return out
}

type raplSession struct {
	m     *RAPL
	start map[string]zoneReading
}

func (s *raplSession) Stop() (float64, bool) {
	if len(s.start) == 0 {
		return 0, false
	}
	end := s.m.read()
	var microjoules uint64
	seen := 0
	for zone, a := range s.start {
		b, ok := end[zone]
		if !ok {
			continue
		}
		seen++
		switch {
		case b.energy >= a.energy:
			microjoules += b.energy - a.energy
		case a.max > 0:
			// Counter wrapped.
			microjoules += a.max - a.energy + b.energy
		}
	}
	if seen == 0 {
		return 0, false
	}
	return float64(microjoules) / 1e6 / joulesPerKWh, true
}

func readUint(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}
