// Package doctor runs runtime readiness diagnostics for config, sockets, and OSC endpoints.
package doctor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/voxosc/voxosc/internal/command"
	"github.com/voxosc/voxosc/internal/config"
	"github.com/voxosc/voxosc/internal/ipc"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes environment/config/runtime checks for a loaded config.
func Run(cfg config.Loaded) Report {
	checks := []Check{}

	checks = append(checks, Check{
		Name:    "config",
		Pass:    true,
		Message: fmt.Sprintf("loaded %q", cfg.Path),
	})

	checks = append(checks, checkRuntimeDir())
	checks = append(checks, checkCommandsFile(cfg))
	checks = append(checks, checkTargetResolvable(cfg.Config))

	daemonRunning := daemonAlive()
	checks = append(checks, Check{
		Name:    "daemon",
		Pass:    true,
		Message: daemonStateMessage(daemonRunning),
	})

	// The daemon owns the listen port while it runs; only probe the
	// bind when nothing is listening.
	if !daemonRunning {
		checks = append(checks, checkListenBindable(cfg.Config))
	}

	return Report{Checks: checks}
}

func daemonStateMessage(running bool) string {
	if running {
		return "daemon is running"
	}
	return "daemon is not running"
}

// checkRuntimeDir validates that the control socket has somewhere to live.
func checkRuntimeDir() Check {
	if strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR")) == "" {
		return Check{Name: "XDG_RUNTIME_DIR", Pass: false, Message: "XDG_RUNTIME_DIR is not set"}
	}
	return Check{Name: "XDG_RUNTIME_DIR", Pass: true, Message: "runtime directory available"}
}

// checkCommandsFile validates that the persisted mappings parse.
func checkCommandsFile(cfg config.Loaded) Check {
	path := config.ResolveCommandsPath(cfg.Config, cfg.Path)
	registry := command.NewRegistry(path)
	if err := registry.Load(); err != nil {
		return Check{Name: "commands", Pass: false, Message: err.Error()}
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return Check{Name: "commands", Pass: true, Message: fmt.Sprintf("no commands file yet at %q", path)}
	}
	return Check{Name: "commands", Pass: true, Message: fmt.Sprintf("parsed %q", path)}
}

// checkTargetResolvable validates the outgoing OSC endpoint.
func checkTargetResolvable(cfg config.Config) Check {
	addr := net.JoinHostPort(cfg.OSC.TargetHost, fmt.Sprintf("%d", cfg.OSC.TargetPort))
	if _, err := net.ResolveUDPAddr("udp", addr); err != nil {
		return Check{Name: "osc.target", Pass: false, Message: fmt.Sprintf("cannot resolve %s: %v", addr, err)}
	}
	return Check{Name: "osc.target", Pass: true, Message: fmt.Sprintf("target %s resolves", addr)}
}

// checkListenBindable validates the incoming OSC endpoint by binding it briefly.
func checkListenBindable(cfg config.Config) Check {
	addr := net.JoinHostPort(cfg.OSC.ListenHost, fmt.Sprintf("%d", cfg.OSC.ListenPort))
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return Check{Name: "osc.listen", Pass: false, Message: fmt.Sprintf("cannot resolve %s: %v", addr, err)}
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return Check{Name: "osc.listen", Pass: false, Message: fmt.Sprintf("cannot bind %s: %v", addr, err)}
	}
	_ = conn.Close()
	return Check{Name: "osc.listen", Pass: true, Message: fmt.Sprintf("listen address %s is bindable", addr)}
}

// daemonAlive probes the control socket without treating absence as failure.
func daemonAlive() bool {
	path, err := ipc.RuntimeSocketPath()
	if err != nil {
		return false
	}
	alive, err := ipc.Probe(context.Background(), path, 500*time.Millisecond)
	return err == nil && alive
}
