// Package device decides where a model runs by probing for accelerators.
package device

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Kind is a placement target.
type Kind string

const (
	CPU  Kind = "cpu"
	CUDA Kind = "cuda"
)

// Accelerator is a GPU found on the PCI bus.
type Accelerator struct {
	BusAddress string `json:"bus_address"`
	VendorID   string `json:"vendor_id"`
	DeviceID   string `json:"device_id"`
	Class      string `json:"class"`
}

// Prober lists usable accelerators.
type Prober interface {
	Accelerators() []Accelerator
}

// DefaultPCIRoot is the Linux sysfs PCI device directory.
const DefaultPCIRoot = "/sys/bus/pci/devices"

const (
	vendorNVIDIA = "0x10de"
	// PCI base class 0x03 is display controller (VGA 0x0300, 3D 0x0302).
	classDisplayPrefix = "0x03"
)

// SysfsProber scans PCI devices for NVIDIA display or 3D controllers and
// honours CUDA_VISIBLE_DEVICES: when set to "" or "-1" no accelerator is
// reported.
type SysfsProber struct {
	Root      string
	LookupEnv func(string) (string, bool)
}

// NewSysfsProber returns a prober over DefaultPCIRoot and the process env.
func NewSysfsProber() *SysfsProber {
	return &SysfsProber{Root: DefaultPCIRoot, LookupEnv: os.LookupEnv}
}

func (p *SysfsProber) Accelerators() []Accelerator {
	if p.LookupEnv != nil {
		if v, ok := p.LookupEnv("CUDA_VISIBLE_DEVICES"); ok {
			v = strings.TrimSpace(v)
			if v == "" || v == "-1" {
				return nil
			}
		}
	}
	root := p.Root
	if root == "" {
		root = DefaultPCIRoot
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []Accelerator
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		vendor, err := readSysfs(filepath.Join(dir, "vendor"))
		if err != nil || vendor != vendorNVIDIA {
			continue
		}
		class, _ := readSysfs(filepath.Join(dir, "class"))
		if !strings.HasPrefix(class, classDisplayPrefix) {
			continue
		}
		dev, _ := readSysfs(filepath.Join(dir, "device"))
		out = append(out, Accelerator{BusAddress: e.Name(), VendorID: vendor, DeviceID: dev, Class: class})
	}
	return out
}

func readSysfs(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(string(b))), nil
}

// Static reports a fixed accelerator list.
type Static []Accelerator

func (s Static) Accelerators() []Accelerator { return s }

// Once caches the first probe result of p.
func Once(p Prober) Prober { return &onceProber{p: p} }

type onceProber struct {
	p    Prober
	once sync.Once
	accs []Accelerator
}

func (o *onceProber) Accelerators() []Accelerator {
	o.once.Do(func() { o.accs = o.p.Accelerators() })
	return o.accs
}

// Select returns CUDA when the probe finds an accelerator, else CPU.
func Select(p Prober) Kind {
	if p != nil && len(p.Accelerators()) > 0 {
		return CUDA
	}
	return CPU
}
