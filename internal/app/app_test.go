package app

import (
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voxosc/voxosc/internal/cli"
	"github.com/voxosc/voxosc/internal/ipc"
)

func TestExecuteHelp(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"--help"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "Usage:")
	require.Empty(t, stderr.String())
}

func TestExecuteVersion(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"version"}, &stdout, &stderr)
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "voxosc")
	require.Empty(t, stderr.String())
}

func TestExecuteUnknownCommand(t *testing.T) {
	var stdout bytes.Buffer
	var stderr bytes.Buffer

	exitCode := Execute(context.Background(), []string{"definitely-not-a-command"}, &stdout, &stderr)
	require.Equal(t, 2, exitCode)
	require.Contains(t, stderr.String(), "unknown command")
	require.Contains(t, stderr.String(), "Usage:")
}

func TestRunnerStatusReportsDaemonNotRunning(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Equal(t, "daemon not running\n", stdout.String())
	require.Empty(t, stderr.String())
}

func TestRunnerClientCommandsRequireDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)

	for _, args := range [][]string{
		{"params"},
		{"set", "Smile", "Float", "0.5"},
		{"restart"},
		{"say", "hello"},
	} {
		var stdout bytes.Buffer
		var stderr bytes.Buffer
		runner := Runner{Stdout: &stdout, Stderr: &stderr}

		exitCode := runner.Execute(context.Background(), append([]string{"--config", paths.configPath}, args...))
		require.Equal(t, 1, exitCode, args)
		require.Contains(t, stderr.String(), "daemon is not running", args)
	}
}

func TestRunnerForwardsCommandsToDaemon(t *testing.T) {
	paths := setupRunnerEnv(t)
	commands := make(chan string, 8)

	shutdown := startIPCServerForRunnerTest(t, filepath.Join(paths.runtimeDir, "voxosc.sock"), func(_ context.Context, req ipc.Request) ipc.Response {
		commands <- req.Command
		switch req.Command {
		case "status":
			return ipc.Response{OK: true, State: "running"}
		case "restart":
			return ipc.Response{OK: true, State: "running"}
		case "say":
			return ipc.Response{OK: true, Results: []string{"flash -> toggle: 1"}}
		default:
			return ipc.Response{OK: false, Error: "unsupported"}
		}
	})
	defer shutdown()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	runner := Runner{Stdout: stdout, Stderr: stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "status"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "daemon running, listener running")

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "say", "flash", "now"})
	require.Equal(t, 0, exitCode)
	require.Contains(t, stdout.String(), "flash -> toggle: 1")

	got := []string{<-commands, <-commands}
	require.ElementsMatch(t, []string{"status", "say"}, got)
}

func TestBuildRequestSet(t *testing.T) {
	req, err := buildRequest(cli.Parsed{
		Command: cli.CommandSet,
		Args:    []string{"Smile", "Float", "0.5"},
	})
	require.NoError(t, err)
	require.Equal(t, "set", req.Command)
	require.Equal(t, "Smile", req.Name)
	require.Equal(t, "Float", req.Kind)
	require.Equal(t, float32(0.5), req.Value)
}

func TestBuildRequestSetRejectsNonNumericValue(t *testing.T) {
	_, err := buildRequest(cli.Parsed{
		Command: cli.CommandSet,
		Args:    []string{"Smile", "Float", "high"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected a number")
}

func TestBuildRequestSetConfig(t *testing.T) {
	req, err := buildRequest(cli.Parsed{
		Command: cli.CommandSetConfig,
		Args:    []string{"192.168.1.20", "9000", "0.0.0.0", "9001"},
	})
	require.NoError(t, err)
	require.Equal(t, "set-config", req.Command)
	require.NotNil(t, req.Config)
	require.Equal(t, "192.168.1.20", req.Config.TargetHost)
	require.Equal(t, 9000, req.Config.TargetPort)
	require.Equal(t, "0.0.0.0", req.Config.ListenHost)
	require.Equal(t, 9001, req.Config.ListenPort)
}

func TestBuildRequestSetConfigRejectsBadPort(t *testing.T) {
	_, err := buildRequest(cli.Parsed{
		Command: cli.CommandSetConfig,
		Args:    []string{"127.0.0.1", "nine-thousand", "127.0.0.1", "9001"},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "expected an integer")
}

func TestBuildRequestSayJoinsText(t *testing.T) {
	req, err := buildRequest(cli.Parsed{
		Command:  cli.CommandSay,
		Language: "ja",
		Args:     []string{"turn", "lights", "on"},
	})
	require.NoError(t, err)
	require.Equal(t, "say", req.Command)
	require.Equal(t, "turn lights on", req.Text)
	require.Equal(t, "ja", req.Language)
}

func TestTryForwardSuccessAndFailureResponses(t *testing.T) {
	runtimeDir := t.TempDir()
	socketPath := filepath.Join(runtimeDir, "voxosc.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	serverCtx, cancelServer := context.WithCancel(context.Background())
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- ipc.Serve(serverCtx, listener, ipc.HandlerFunc(func(_ context.Context, req ipc.Request) ipc.Response {
			switch req.Command {
			case "status":
				return ipc.Response{OK: true, State: "running"}
			default:
				return ipc.Response{OK: false, Error: "unsupported"}
			}
		}), nil)
	}()

	resp, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.NoError(t, err)
	require.Equal(t, "running", resp.State)

	_, handled, err = tryForward(context.Background(), socketPath, ipc.Request{Command: "bogus"})
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported")

	cancelServer()
	require.NoError(t, <-serverDone)
}

func TestTryForwardDoesNotRemoveSocketPathOnForwardFailure(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voxosc.sock")
	require.NoError(t, os.WriteFile(socketPath, []byte("stale"), 0o600))

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.False(t, handled)
	require.NoError(t, err)

	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
}

func TestTryForwardTreatsReadFailuresAsHandledErrors(t *testing.T) {
	socketPath := filepath.Join(t.TempDir(), "voxosc.sock")

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, acceptErr := listener.Accept()
		if acceptErr == nil {
			_ = conn.Close()
		}
	}()

	_, handled, err := tryForward(context.Background(), socketPath, ipc.Request{Command: "status"})
	require.True(t, handled)
	require.Error(t, err)
	require.Contains(t, err.Error(), "forward command \"status\":")

	<-done
	_, statErr := os.Stat(socketPath)
	require.NoError(t, statErr)
	require.NoError(t, listener.Close())
}

func TestRunnerDoctorCommandDispatchesAndPrintsReport(t *testing.T) {
	paths := setupRunnerEnv(t)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	runner := Runner{Stdout: &stdout, Stderr: &stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "doctor"})
	require.Contains(t, stdout.String(), "config: loaded")
	require.Contains(t, stdout.String(), "osc.target")
	require.Contains(t, []int{0, 1}, exitCode)
}

func TestSocketErrorHelpers(t *testing.T) {
	require.False(t, isSocketMissing(nil))
	require.False(t, isConnectionRefused(nil))

	require.True(t, isSocketMissing(os.ErrNotExist))
	require.True(t, isSocketMissing(errors.New("dial unix /tmp/voxosc.sock: no such file or directory")))
	require.False(t, isSocketMissing(errors.New("other error")))

	require.True(t, isConnectionRefused(syscall.ECONNREFUSED))
	require.False(t, isConnectionRefused(errors.New("other error")))
}

func TestServeHandlesClientsUntilStopped(t *testing.T) {
	paths := setupRunnerEnv(t)
	contents := `
{
  "listener": {"autostart": false},
  "commands_path": "` + filepath.Join(t.TempDir(), "commands.json") + `"
}
`
	require.NoError(t, os.WriteFile(paths.configPath, []byte(contents), 0o600))

	serveDone := make(chan int, 1)
	go func() {
		var stdout, stderr bytes.Buffer
		serveDone <- Runner{Stdout: &stdout, Stderr: &stderr}.Execute(
			context.Background(), []string{"--config", paths.configPath, "serve"})
	}()

	socketPath := filepath.Join(paths.runtimeDir, "voxosc.sock")
	require.Eventually(t, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	runner := Runner{Stdout: stdout, Stderr: stderr}

	exitCode := runner.Execute(context.Background(), []string{"--config", paths.configPath, "add-command", "flash", "toggle", "1"})
	require.Equal(t, 0, exitCode, stderr.String())

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "commands"})
	require.Equal(t, 0, exitCode, stderr.String())
	require.Contains(t, stdout.String(), "flash")

	stdout.Reset()
	exitCode = runner.Execute(context.Background(), []string{"--config", paths.configPath, "stop"})
	require.Equal(t, 0, exitCode, stderr.String())

	select {
	case code := <-serveDone:
		require.Equal(t, 0, code)
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
}

type runnerPaths struct {
	configPath string
	runtimeDir string
}

func setupRunnerEnv(t *testing.T) runnerPaths {
	t.Helper()

	xdgStateHome := t.TempDir()
	runtimeDir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", xdgStateHome)
	t.Setenv("XDG_RUNTIME_DIR", runtimeDir)

	configPath := filepath.Join(t.TempDir(), "config.jsonc")
	require.NoError(t, os.WriteFile(configPath, []byte("\n"), 0o600))

	return runnerPaths{configPath: configPath, runtimeDir: runtimeDir}
}

func startIPCServerForRunnerTest(t *testing.T, socketPath string, handler func(context.Context, ipc.Request) ipc.Response) func() {
	t.Helper()

	listener, err := net.Listen("unix", socketPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- ipc.Serve(ctx, listener, ipc.HandlerFunc(handler), nil)
	}()

	return func() {
		cancel()
		require.NoError(t, <-done)
	}
}
