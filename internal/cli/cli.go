// Package cli parses the voxosc command line.
package cli

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandServe         Command = "serve"
	CommandStatus        Command = "status"
	CommandParams        Command = "params"
	CommandSet           Command = "set"
	CommandConfig        Command = "config"
	CommandSetConfig     Command = "set-config"
	CommandRestart       Command = "restart"
	CommandCommands      Command = "commands"
	CommandAddCommand    Command = "add-command"
	CommandRemoveCommand Command = "remove-command"
	CommandSay           Command = "say"
	CommandWatch         Command = "watch"
	CommandStop          Command = "stop"
	CommandDoctor        Command = "doctor"
	CommandVersion       Command = "version"
	CommandHelp          Command = "help"
)

// arity bounds the positional arguments each command accepts.
// max < 0 means unbounded.
var arity = map[Command]struct{ min, max int }{
	CommandServe:         {0, 0},
	CommandStatus:        {0, 0},
	CommandParams:        {0, 0},
	CommandSet:           {3, 3},
	CommandConfig:        {0, 0},
	CommandSetConfig:     {4, 4},
	CommandRestart:       {0, 0},
	CommandCommands:      {0, 0},
	CommandAddCommand:    {3, 3},
	CommandRemoveCommand: {2, 2},
	CommandSay:           {1, -1},
	CommandWatch:         {0, 0},
	CommandStop:          {0, 0},
	CommandDoctor:        {0, 0},
	CommandVersion:       {0, 0},
	CommandHelp:          {0, 0},
}

type Parsed struct {
	Command    Command
	ConfigPath string
	Language   string
	Args       []string
	ShowHelp   bool
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandHelp, ShowHelp: true}

	var positional []string
	for i := 0; i < len(args); i++ {
		arg := args[i]

		switch arg {
		case "-h", "--help":
			return Parsed{Command: CommandHelp, ShowHelp: true}, nil
		case "--version":
			return Parsed{Command: CommandVersion}, nil
		case "--config":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--config requires a path")
			}
			parsed.ConfigPath = args[i]
		case "--lang":
			i++
			if i >= len(args) {
				return Parsed{}, errors.New("--lang requires a language code")
			}
			parsed.Language = args[i]
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}
			positional = append(positional, arg)
		}
	}

	if len(positional) == 0 {
		return parsed, nil
	}

	cmd := Command(positional[0])
	bounds, ok := arity[cmd]
	if !ok {
		return Parsed{}, fmt.Errorf("unknown command: %s", positional[0])
	}

	rest := positional[1:]
	if len(rest) == 0 {
		rest = nil
	}
	if len(rest) < bounds.min {
		return Parsed{}, fmt.Errorf("command %q requires at least %d argument(s)", cmd, bounds.min)
	}
	if bounds.max >= 0 && len(rest) > bounds.max {
		return Parsed{}, fmt.Errorf("unexpected arguments after command %q", cmd)
	}

	parsed.Command = cmd
	parsed.Args = rest
	parsed.ShowHelp = cmd == CommandHelp
	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [--config PATH] [--lang CODE] <command> [args]

Commands:
  serve                              Run the OSC bridge daemon
  status                             Print daemon and listener state
  params                             List known avatar parameters
  set NAME KIND VALUE                Send a parameter (KIND: Float, Int, Bool)
  config                             Print OSC endpoint configuration
  set-config THOST TPORT LHOST LPORT Update OSC endpoints (restarts listener)
  restart                            Restart the OSC listener
  commands                           List speech command mappings
  add-command TEXT NAME VALUE        Add or update a speech command mapping
  remove-command TEXT NAME           Remove a speech command mapping
  say TEXT...                        Match speech text against command mappings
  watch                              Stream parameter snapshots as they change
  stop                               Stop the running daemon
  doctor                             Run configuration and environment checks
  version                            Print version information
  help                               Show this help

Flags:
  --config PATH   Config file path (default: $XDG_CONFIG_HOME/voxosc/config.jsonc)
  --lang CODE     Language for command mappings (default: from config)
  -h, --help      Show help
  --version       Show version
`, binaryName)
}
