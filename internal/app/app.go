// Package app wires the CLI surface to the daemon and its IPC clients.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/voxosc/voxosc/internal/bridge"
	"github.com/voxosc/voxosc/internal/cli"
	"github.com/voxosc/voxosc/internal/command"
	"github.com/voxosc/voxosc/internal/config"
	"github.com/voxosc/voxosc/internal/doctor"
	"github.com/voxosc/voxosc/internal/ipc"
	"github.com/voxosc/voxosc/internal/logging"
	"github.com/voxosc/voxosc/internal/osc"
	"github.com/voxosc/voxosc/internal/speech"
	"github.com/voxosc/voxosc/internal/version"
)

const forwardTimeout = 2 * time.Second

type Runner struct {
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger
}

func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	r := Runner{Stdout: stdout, Stderr: stderr}
	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	parsed, err := cli.Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, cli.HelpText("voxosc"))
		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, cli.HelpText("voxosc"))
		return 0
	}

	if parsed.Command == cli.CommandVersion {
		fmt.Fprintln(r.Stdout, version.String())
		return 0
	}

	logRuntime, err := logging.New()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: setup logging: %v\n", err)
		return 1
	}
	defer func() { _ = logRuntime.Close() }()

	logger := r.Logger
	if logger == nil {
		logger = logRuntime.Logger
	}

	cfgLoaded, err := config.Load(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("load config failed", "error", err.Error())
		return 1
	}
	for _, w := range cfgLoaded.Warnings {
		msg := w.Message
		if w.Line > 0 {
			msg = fmt.Sprintf("line %d: %s", w.Line, w.Message)
		}
		fmt.Fprintf(r.Stderr, "warning: %s\n", msg)
		logger.Warn("config warning", "line", w.Line, "message", w.Message)
	}

	logger.Info("command start",
		"command", parsed.Command,
		"config", cfgLoaded.Path,
		"log", logRuntime.Path,
	)

	switch parsed.Command {
	case cli.CommandDoctor:
		report := doctor.Run(cfgLoaded)
		fmt.Fprintln(r.Stdout, report.String())
		if report.OK() {
			return 0
		}
		return 1
	case cli.CommandServe:
		return r.commandServe(ctx, cfgLoaded, logger)
	case cli.CommandWatch:
		return r.commandWatch(ctx)
	case cli.CommandStatus:
		return r.commandStatus(ctx)
	default:
		return r.commandForward(ctx, parsed)
	}
}

// commandServe runs the daemon: it claims the control socket, starts the
// OSC listener, and serves IPC clients until a signal or stop request.
func (r Runner) commandServe(ctx context.Context, cfgLoaded config.Loaded, logger *slog.Logger) int {
	cfg := cfgLoaded.Config

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	socket, err := ipc.Acquire(ctx, socketPath, 180*time.Millisecond, 8, nil)
	if err != nil {
		if errors.Is(err, ipc.ErrAlreadyRunning) {
			fmt.Fprintln(r.Stderr, "error: voxosc daemon already running")
			return 1
		}
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() {
		_ = socket.Close()
		_ = os.Remove(socketPath)
	}()

	serveCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := osc.NewStore()
	listener := osc.NewListener(store, logger, cfg.Listener.PollInterval, cfg.Listener.ErrorBackoff)
	manager := osc.NewManager(osc.EndpointConfig{
		TargetHost: cfg.OSC.TargetHost,
		TargetPort: cfg.OSC.TargetPort,
		ListenHost: cfg.OSC.ListenHost,
		ListenPort: cfg.OSC.ListenPort,
	}, listener)
	sender := osc.NewSender(manager)

	registry := command.NewRegistry(config.ResolveCommandsPath(cfg, cfgLoaded.Path))
	if err := registry.Load(); err != nil {
		logger.Warn("load command mappings failed; starting with none", "error", err.Error())
	}
	matcher := speech.NewMatcher(registry, store, sender)

	service := bridge.NewService(logger, store, manager, sender, registry, matcher, cfg.Speech.DefaultLanguage, cancel)
	service.AttachNotifications()

	if cfg.Listener.Autostart {
		if err := manager.Start(); err != nil {
			logger.Error("osc listener autostart failed", "error", err.Error())
			fmt.Fprintf(r.Stderr, "warning: osc listener autostart failed: %v\n", err)
		}
	}
	defer manager.Stop()

	if cfg.WatchConfig {
		watcher := config.NewWatcher(logger, cfgLoaded.Path, func(loaded config.Loaded) {
			next := osc.EndpointConfig{
				TargetHost: loaded.Config.OSC.TargetHost,
				TargetPort: loaded.Config.OSC.TargetPort,
				ListenHost: loaded.Config.OSC.ListenHost,
				ListenPort: loaded.Config.OSC.ListenPort,
			}
			if err := manager.Update(next); err != nil {
				logger.Error("apply reloaded endpoints failed", "error", err.Error())
			}
		})
		if err := watcher.Start(); err != nil {
			logger.Warn("config watcher unavailable", "error", err.Error())
		} else {
			defer watcher.Stop()
		}
	}

	logger.Info("daemon ready", "socket", socketPath, "listener_running", manager.ListenerRunning())
	fmt.Fprintf(r.Stdout, "voxosc daemon listening on %s\n", socketPath)

	if err := ipc.Serve(serveCtx, socket, service, service.Hub()); err != nil {
		fmt.Fprintf(r.Stderr, "error: ipc server failed: %v\n", err)
		return 1
	}

	logger.Info("daemon stopped")
	return 0
}

func (r Runner) commandStatus(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintln(r.Stdout, "daemon not running")
		return 0
	}

	resp, handled, err := tryForward(ctx, socketPath, ipc.Request{Command: bridge.CommandStatus})
	if !handled {
		fmt.Fprintln(r.Stdout, "daemon not running")
		return 0
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	fmt.Fprintf(r.Stdout, "daemon running, listener %s\n", resp.State)
	return 0
}

func (r Runner) commandWatch(ctx context.Context) int {
	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	err = ipc.Watch(ctx, socketPath, func(line []byte) {
		fmt.Fprint(r.Stdout, string(line))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// commandForward maps a CLI invocation onto one daemon request and
// prints the reply.
func (r Runner) commandForward(ctx context.Context, parsed cli.Parsed) int {
	req, err := buildRequest(parsed)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 2
	}

	socketPath, err := ipc.RuntimeSocketPath()
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	resp, handled, err := tryForward(ctx, socketPath, req)
	if !handled {
		fmt.Fprintln(r.Stderr, "error: voxosc daemon is not running (start it with `voxosc serve`)")
		return 1
	}
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	r.printResponse(parsed.Command, resp)
	return 0
}

func buildRequest(parsed cli.Parsed) (ipc.Request, error) {
	req := ipc.Request{Language: parsed.Language}

	switch parsed.Command {
	case cli.CommandParams:
		req.Command = bridge.CommandParams
	case cli.CommandSet:
		value, err := parseValue(parsed.Args[2])
		if err != nil {
			return ipc.Request{}, err
		}
		req.Command = bridge.CommandSet
		req.Name = parsed.Args[0]
		req.Kind = parsed.Args[1]
		req.Value = value
	case cli.CommandConfig:
		req.Command = bridge.CommandConfig
	case cli.CommandSetConfig:
		targetPort, err := parsePort(parsed.Args[1])
		if err != nil {
			return ipc.Request{}, err
		}
		listenPort, err := parsePort(parsed.Args[3])
		if err != nil {
			return ipc.Request{}, err
		}
		req.Command = bridge.CommandSetConfig
		req.Config = &ipc.EndpointPayload{
			TargetHost: parsed.Args[0],
			TargetPort: targetPort,
			ListenHost: parsed.Args[2],
			ListenPort: listenPort,
		}
	case cli.CommandRestart:
		req.Command = bridge.CommandRestart
	case cli.CommandCommands:
		req.Command = bridge.CommandCommands
	case cli.CommandAddCommand:
		value, err := parseValue(parsed.Args[2])
		if err != nil {
			return ipc.Request{}, err
		}
		req.Command = bridge.CommandAddCommand
		req.Text = parsed.Args[0]
		req.Name = parsed.Args[1]
		req.Value = value
	case cli.CommandRemoveCommand:
		req.Command = bridge.CommandRemoveCommand
		req.Text = parsed.Args[0]
		req.Name = parsed.Args[1]
	case cli.CommandSay:
		req.Command = bridge.CommandSay
		req.Text = strings.Join(parsed.Args, " ")
	case cli.CommandStop:
		req.Command = bridge.CommandStopDaemon
	default:
		return ipc.Request{}, fmt.Errorf("unsupported command %q", parsed.Command)
	}

	return req, nil
}

func (r Runner) printResponse(cmd cli.Command, resp ipc.Response) {
	switch cmd {
	case cli.CommandParams:
		if len(resp.Parameters) == 0 {
			fmt.Fprintln(r.Stdout, "no parameters received yet")
			return
		}
		for _, p := range resp.Parameters {
			fmt.Fprintf(r.Stdout, "%s\t%s\t%v\n", p.Name, p.Kind, p.Value)
		}
	case cli.CommandConfig:
		if resp.Config != nil {
			fmt.Fprintf(r.Stdout, "target: %s:%d\n", resp.Config.TargetHost, resp.Config.TargetPort)
			fmt.Fprintf(r.Stdout, "listen: %s:%d\n", resp.Config.ListenHost, resp.Config.ListenPort)
		}
		fmt.Fprintf(r.Stdout, "listener: %s\n", resp.State)
	case cli.CommandSetConfig, cli.CommandRestart:
		fmt.Fprintf(r.Stdout, "listener: %s\n", resp.State)
	case cli.CommandCommands:
		if len(resp.Mappings) == 0 {
			fmt.Fprintln(r.Stdout, "no command mappings")
			return
		}
		for _, m := range resp.Mappings {
			fmt.Fprintf(r.Stdout, "%s\t->\t%s\t%v\n", m.CommandText, m.ParameterName, m.Value)
		}
	case cli.CommandSay:
		if len(resp.Results) == 0 {
			fmt.Fprintln(r.Stdout, "no commands matched")
			return
		}
		for _, result := range resp.Results {
			fmt.Fprintln(r.Stdout, result)
		}
	case cli.CommandRemoveCommand:
		if resp.Removed != nil && *resp.Removed {
			fmt.Fprintln(r.Stdout, "removed")
			return
		}
		fmt.Fprintln(r.Stdout, "not found")
	default:
		if resp.Message != "" {
			fmt.Fprintln(r.Stdout, resp.Message)
		}
	}
}

func parseValue(raw string) (float32, error) {
	value, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: expected a number", raw)
	}
	return float32(value), nil
}

func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: expected an integer", raw)
	}
	return port, nil
}

func tryForward(ctx context.Context, socketPath string, req ipc.Request) (ipc.Response, bool, error) {
	resp, err := ipc.Send(ctx, socketPath, req, forwardTimeout)
	if err == nil {
		if resp.OK {
			return resp, true, nil
		}
		return resp, true, errors.New(resp.Error)
	}

	if isSocketMissing(err) {
		return ipc.Response{}, false, nil
	}
	if isConnectionRefused(err) {
		return ipc.Response{}, false, nil
	}

	return ipc.Response{}, true, fmt.Errorf("forward command %q: %w", req.Command, err)
}

func isSocketMissing(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, os.ErrNotExist) ||
		strings.Contains(err.Error(), "no such file or directory")
}

func isConnectionRefused(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, syscall.ECONNREFUSED)
}
