package engine

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultRuntimeHost  = "127.0.0.1"
	defaultReadyTimeout = 60 * time.Second
	stopGrace           = 2 * time.Second
	stderrTail          = 4096
)

// RuntimeConfig configures the subprocess backend.
type RuntimeConfig struct {
	Bin string
	// Args may contain the placeholders {model} {dir} {host} {port} {dtype}
	// {quant} {device}.
	Args         []string
	Host         string
	PortStart    int
	PortEnd      int
	ReadyTimeout time.Duration
	APIKey       string
}

// Runtime spawns one OpenAI-compatible runtime process per distinct
// (weights, precision, device) and shares it between handles.
type Runtime struct {
	cfg   RuntimeConfig
	mu    sync.Mutex
	procs map[string]*procInfo
	log   zerolog.Logger
}

type procInfo struct {
	cmd     *exec.Cmd
	baseURL string
	pid     int
	refs    int
	exited  chan struct{}
}

// NewRuntime builds the backend.
func NewRuntime(cfg RuntimeConfig) *Runtime {
	if strings.TrimSpace(cfg.Host) == "" {
		cfg.Host = defaultRuntimeHost
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	return &Runtime{cfg: cfg, procs: make(map[string]*procInfo), log: zerolog.Nop()}
}

// SetLogger installs a structured logger.
func (e *Runtime) SetLogger(l zerolog.Logger) { e.log = l }

func (e *Runtime) Name() string { return "runtime" }

func procKey(spec LoadSpec) string {
	return spec.WeightPath + "|" + spec.DType + "|" + strconv.FormatBool(spec.Quantize) + "|" + spec.Device
}

func (e *Runtime) Load(ctx context.Context, spec LoadSpec) (Model, error) {
	if strings.TrimSpace(e.cfg.Bin) == "" {
		return nil, ErrUnavailable("runtime engine: runtime_bin is not configured")
	}
	if strings.TrimSpace(spec.WeightPath) == "" {
		return nil, fmt.Errorf("weight path is empty")
	}
	key := procKey(spec)
	e.mu.Lock()
	if p := e.procs[key]; p != nil {
		p.refs++
		e.mu.Unlock()
		return e.handle(key, p.baseURL), nil
	}
	e.mu.Unlock()

	base, err := e.spawn(ctx, key, spec)
	if err != nil {
		return nil, err
	}
	return e.handle(key, base), nil
}

func (e *Runtime) handle(key, baseURL string) *runtimeModel {
	m := newCompletionsModel(baseURL, e.cfg.APIKey, "", nil, defaultEvalTimeout)
	return &runtimeModel{completionsModel: m, rt: e, key: key}
}

// runtimeModel releases its process reference on Close.
type runtimeModel struct {
	*completionsModel
	rt   *Runtime
	key  string
	once sync.Once
}

func (m *runtimeModel) Close() error {
	var err error
	m.once.Do(func() { err = m.rt.release(m.key) })
	return err
}

func expandArgs(args []string, vars map[string]string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		for k, v := range vars {
			a = strings.ReplaceAll(a, "{"+k+"}", v)
		}
		out[i] = a
	}
	return out
}

func (e *Runtime) spawn(ctx context.Context, key string, spec LoadSpec) (string, error) {
	var port int
	var err error
	if e.cfg.PortStart > 0 && e.cfg.PortEnd >= e.cfg.PortStart {
		port, err = pickPortInRange(e.cfg.Host, e.cfg.PortStart, e.cfg.PortEnd)
	} else {
		port, err = pickFreePort(e.cfg.Host)
	}
	if err != nil {
		return "", err
	}
	baseURL := fmt.Sprintf("http://%s:%d", e.cfg.Host, port)
	quant := "none"
	if spec.Quantize {
		quant = "int8"
	}
	args := expandArgs(e.cfg.Args, map[string]string{
		"model":  spec.WeightPath,
		"dir":    filepath.Dir(spec.WeightPath),
		"host":   e.cfg.Host,
		"port":   strconv.Itoa(port),
		"dtype":  spec.DType,
		"quant":  quant,
		"device": spec.Device,
	})

	cmd := exec.Command(e.cfg.Bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("start runtime: %w", err)
	}
	pid := cmd.Process.Pid
	e.log.Info().Str("weights", spec.WeightPath).Int("pid", pid).Str("url", baseURL).Msg("runtime started")

	p := &procInfo{cmd: cmd, baseURL: baseURL, pid: pid, refs: 1, exited: make(chan struct{})}
	waitErrCh := make(chan error, 1)
	go func() {
		waitErrCh <- cmd.Wait()
		close(p.exited)
	}()

	ready := newCompletionsModel(baseURL, e.cfg.APIKey, "", nil, time.Second)
	deadline := time.NewTimer(e.cfg.ReadyTimeout)
	defer deadline.Stop()
	for {
		select {
		case werr := <-waitErrCh:
			tail := stderr.String()
			if len(tail) > stderrTail {
				tail = tail[len(tail)-stderrTail:]
			}
			e.log.Warn().Int("pid", pid).AnErr("err", werr).Msg("runtime exited before ready")
			if werr != nil {
				return "", fmt.Errorf("runtime exited early: %v; stderr tail: %s", werr, tail)
			}
			return "", fmt.Errorf("runtime exited before ready: %s", baseURL)
		case <-deadline.C:
			terminate(p)
			return "", fmt.Errorf("runtime not ready in %s: %s", e.cfg.ReadyTimeout, baseURL)
		case <-ctx.Done():
			terminate(p)
			return "", ctx.Err()
		default:
		}
		pctx, cancel := context.WithTimeout(ctx, time.Second)
		err := ready.ping(pctx)
		cancel()
		if err == nil {
			break
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.log.Info().Int("pid", pid).Str("url", baseURL).Msg("runtime ready")

	e.mu.Lock()
	defer e.mu.Unlock()
	if q := e.procs[key]; q != nil {
		// Lost a race with a concurrent Load; keep the first process.
		q.refs++
		go terminate(p)
		return q.baseURL, nil
	}
	e.procs[key] = p
	return baseURL, nil
}

func (e *Runtime) release(key string) error {
	e.mu.Lock()
	p := e.procs[key]
	if p == nil {
		e.mu.Unlock()
		return nil
	}
	p.refs--
	if p.refs > 0 {
		e.mu.Unlock()
		return nil
	}
	delete(e.procs, key)
	e.mu.Unlock()
	terminate(p)
	e.log.Info().Int("pid", p.pid).Msg("runtime stopped")
	return nil
}

// StopAll terminates every managed process regardless of references.
func (e *Runtime) StopAll() {
	e.mu.Lock()
	procs := make([]*procInfo, 0, len(e.procs))
	for k, p := range e.procs {
		procs = append(procs, p)
		delete(e.procs, k)
	}
	e.mu.Unlock()
	for _, p := range procs {
		terminate(p)
	}
}

// Running reports how many runtime processes are alive.
func (e *Runtime) Running() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.procs)
}

// terminate sends SIGTERM, then SIGKILL after a grace period.
func terminate(p *procInfo) {
	if p == nil || p.cmd == nil || p.cmd.Process == nil {
		return
	}
	_ = p.cmd.Process.Signal(syscall.SIGTERM)
	select {
	case <-p.exited:
	case <-time.After(stopGrace):
		_ = p.cmd.Process.Kill()
		<-p.exited
	}
}

func pickPortInRange(host string, start, end int) (int, error) {
	for p := start; p <= end; p++ {
		l, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(p)))
		if err != nil {
			continue
		}
		_ = l.Close()
		return p, nil
	}
	return 0, fmt.Errorf("no free port in range %d-%d", start, end)
}

func pickFreePort(host string) (int, error) {
	l, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}
