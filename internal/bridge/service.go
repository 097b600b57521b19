// Package bridge implements the daemon's control surface: it maps IPC
// requests onto the parameter store, the OSC listener manager, the
// command registry, and the speech matcher.
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/voxosc/voxosc/internal/command"
	"github.com/voxosc/voxosc/internal/ipc"
	"github.com/voxosc/voxosc/internal/osc"
	"github.com/voxosc/voxosc/internal/speech"
)

// IPC command names understood by the daemon.
const (
	CommandStatus        = "status"
	CommandParams        = "params"
	CommandSet           = "set"
	CommandConfig        = "config"
	CommandSetConfig     = "set-config"
	CommandRestart       = "restart"
	CommandAddCommand    = "add-command"
	CommandRemoveCommand = "remove-command"
	CommandCommands      = "commands"
	CommandSay           = "say"
	CommandStopDaemon    = "stop-daemon"
)

// Service handles daemon control requests.
type Service struct {
	logger   *slog.Logger
	store    *osc.Store
	manager  *osc.Manager
	sender   speech.Sender
	registry *command.Registry
	matcher  *speech.Matcher

	defaultLanguage string
	hub             *Hub
	shutdown        func()
}

// NewService wires the daemon control surface. shutdown is invoked on a
// stop-daemon request and may be nil.
func NewService(
	logger *slog.Logger,
	store *osc.Store,
	manager *osc.Manager,
	sender speech.Sender,
	registry *command.Registry,
	matcher *speech.Matcher,
	defaultLanguage string,
	shutdown func(),
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		logger:          logger,
		store:           store,
		manager:         manager,
		sender:          sender,
		registry:        registry,
		matcher:         matcher,
		defaultLanguage: defaultLanguage,
		hub:             NewHub(),
		shutdown:        shutdown,
	}
}

// Hub exposes the snapshot feed for watch subscribers.
func (s *Service) Hub() *Hub {
	return s.hub
}

// AttachNotifications forwards full store snapshots to watch subscribers.
// Call once, before the listener starts.
func (s *Service) AttachNotifications() {
	s.store.Attach(func(params []osc.Parameter) {
		payload, err := json.Marshal(parameterPayloads(params))
		if err != nil {
			s.logger.Warn("encode parameter snapshot failed", "error", err)
			return
		}
		s.hub.Publish(payload)
	})
}

// Handle dispatches one IPC request.
func (s *Service) Handle(ctx context.Context, req ipc.Request) ipc.Response {
	switch req.Command {
	case CommandStatus:
		return s.handleStatus()
	case CommandParams:
		return s.handleParams()
	case CommandSet:
		return s.handleSet(req)
	case CommandConfig:
		return s.handleConfig()
	case CommandSetConfig:
		return s.handleSetConfig(req)
	case CommandRestart:
		return s.handleRestart()
	case CommandAddCommand:
		return s.handleAddCommand(req)
	case CommandRemoveCommand:
		return s.handleRemoveCommand(req)
	case CommandCommands:
		return s.handleCommands(req)
	case CommandSay:
		return s.handleSay(req)
	case CommandStopDaemon:
		return s.handleStopDaemon()
	default:
		return ipc.Response{OK: false, Error: fmt.Sprintf("unknown command %q", req.Command)}
	}
}

func (s *Service) listenerState() string {
	if s.manager.ListenerRunning() {
		return "running"
	}
	return "stopped"
}

func (s *Service) handleStatus() ipc.Response {
	return ipc.Response{OK: true, State: s.listenerState()}
}

func (s *Service) handleParams() ipc.Response {
	return ipc.Response{OK: true, Parameters: parameterPayloads(s.store.List())}
}

func (s *Service) handleSet(req ipc.Request) ipc.Response {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return ipc.Response{OK: false, Error: "parameter name is required"}
	}
	kind, err := osc.ParseKind(req.Kind)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	if err := s.sender.Send(name, kind, req.Value); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	// The store only tracks parameters the peer has reported; the wire
	// update above is not rolled back when the name is unknown.
	if err := s.store.Set(name, req.Value); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	s.logger.Info("parameter set", "name", name, "kind", string(kind), "value", req.Value)
	return ipc.Response{OK: true, Message: fmt.Sprintf("%s = %v", name, req.Value)}
}

func (s *Service) handleConfig() ipc.Response {
	cfg := s.manager.Config()
	return ipc.Response{OK: true, State: s.listenerState(), Config: endpointPayload(cfg)}
}

func (s *Service) handleSetConfig(req ipc.Request) ipc.Response {
	if req.Config == nil {
		return ipc.Response{OK: false, Error: "endpoint configuration is required"}
	}
	next := osc.EndpointConfig{
		TargetHost: req.Config.TargetHost,
		TargetPort: req.Config.TargetPort,
		ListenHost: req.Config.ListenHost,
		ListenPort: req.Config.ListenPort,
	}
	if err := validateEndpoint(next); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}

	if err := s.manager.Update(next); err != nil {
		return ipc.Response{OK: false, Error: err.Error(), State: s.listenerState()}
	}
	s.logger.Info("osc endpoints updated",
		"target", fmt.Sprintf("%s:%d", next.TargetHost, next.TargetPort),
		"listen", fmt.Sprintf("%s:%d", next.ListenHost, next.ListenPort))
	return ipc.Response{OK: true, State: s.listenerState(), Config: endpointPayload(s.manager.Config())}
}

func (s *Service) handleRestart() ipc.Response {
	if err := s.manager.Restart(); err != nil {
		return ipc.Response{OK: false, Error: err.Error(), State: s.listenerState()}
	}
	s.logger.Info("osc listener restarted")
	return ipc.Response{OK: true, State: s.listenerState()}
}

func (s *Service) handleAddCommand(req ipc.Request) ipc.Response {
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.defaultLanguage
	}
	text := strings.TrimSpace(req.Text)
	name := strings.TrimSpace(req.Name)
	if text == "" || name == "" {
		return ipc.Response{OK: false, Error: "command text and parameter name are required"}
	}

	if err := s.registry.Upsert(language, command.Mapping{
		CommandText:   text,
		ParameterName: name,
		Value:         req.Value,
	}); err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	s.logger.Info("command mapping saved", "language", language, "text", text, "parameter", name)
	return ipc.Response{OK: true, Message: fmt.Sprintf("%s -> %s", text, name)}
}

func (s *Service) handleRemoveCommand(req ipc.Request) ipc.Response {
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.defaultLanguage
	}
	text := strings.TrimSpace(req.Text)
	name := strings.TrimSpace(req.Name)
	if text == "" || name == "" {
		return ipc.Response{OK: false, Error: "command text and parameter name are required"}
	}

	removed, err := s.registry.Remove(language, text, name)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	if removed {
		s.logger.Info("command mapping removed", "language", language, "text", text, "parameter", name)
	}
	return ipc.Response{OK: true, Removed: &removed}
}

func (s *Service) handleCommands(req ipc.Request) ipc.Response {
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.defaultLanguage
	}

	mappings := s.registry.List(language)
	payloads := make([]ipc.MappingPayload, 0, len(mappings))
	for _, m := range mappings {
		payloads = append(payloads, ipc.MappingPayload{
			CommandText:   m.CommandText,
			ParameterName: m.ParameterName,
			Value:         m.Value,
		})
	}
	return ipc.Response{OK: true, Mappings: payloads}
}

func (s *Service) handleSay(req ipc.Request) ipc.Response {
	language := strings.TrimSpace(req.Language)
	if language == "" {
		language = s.defaultLanguage
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return ipc.Response{OK: false, Error: "speech text is required"}
	}

	results, err := s.matcher.Process(text, language)
	if err != nil {
		return ipc.Response{OK: false, Error: err.Error()}
	}
	s.logger.Info("speech processed", "language", language, "matches", len(results))
	return ipc.Response{OK: true, Results: results}
}

func (s *Service) handleStopDaemon() ipc.Response {
	if s.shutdown != nil {
		s.shutdown()
	}
	return ipc.Response{OK: true, Message: "stopping"}
}

func validateEndpoint(cfg osc.EndpointConfig) error {
	if strings.TrimSpace(cfg.TargetHost) == "" {
		return fmt.Errorf("target host is required")
	}
	if strings.TrimSpace(cfg.ListenHost) == "" {
		return fmt.Errorf("listen host is required")
	}
	if cfg.TargetPort < 1 || cfg.TargetPort > 65535 {
		return fmt.Errorf("target port %d out of range", cfg.TargetPort)
	}
	if cfg.ListenPort < 1 || cfg.ListenPort > 65535 {
		return fmt.Errorf("listen port %d out of range", cfg.ListenPort)
	}
	return nil
}

func parameterPayloads(params []osc.Parameter) []ipc.ParameterPayload {
	payloads := make([]ipc.ParameterPayload, 0, len(params))
	for _, p := range params {
		payloads = append(payloads, ipc.ParameterPayload{
			Name:  p.Name,
			Kind:  string(p.Kind),
			Value: p.Value,
		})
	}
	return payloads
}

func endpointPayload(cfg osc.EndpointConfig) *ipc.EndpointPayload {
	return &ipc.EndpointPayload{
		TargetHost: cfg.TargetHost,
		TargetPort: cfg.TargetPort,
		ListenHost: cfg.ListenHost,
		ListenPort: cfg.ListenPort,
	}
}
