package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.OSC.TargetHost) == "" {
		return nil, fmt.Errorf("osc.target_host must not be empty")
	}
	if strings.TrimSpace(cfg.OSC.ListenHost) == "" {
		return nil, fmt.Errorf("osc.listen_host must not be empty")
	}
	if cfg.OSC.TargetPort < 1 || cfg.OSC.TargetPort > 65535 {
		return nil, fmt.Errorf("osc.target_port must be in 1..65535")
	}
	if cfg.OSC.ListenPort < 1 || cfg.OSC.ListenPort > 65535 {
		return nil, fmt.Errorf("osc.listen_port must be in 1..65535")
	}
	if cfg.Listener.PollInterval <= 0 {
		return nil, fmt.Errorf("listener.poll_interval_ms must be > 0")
	}
	if cfg.Listener.ErrorBackoff < 0 {
		return nil, fmt.Errorf("listener.error_backoff_ms must be >= 0")
	}
	if strings.TrimSpace(cfg.Speech.DefaultLanguage) == "" {
		return nil, fmt.Errorf("speech.default_language must not be empty")
	}

	if cfg.Listener.PollInterval > time.Second {
		warnings = append(warnings, Warning{
			Message: fmt.Sprintf("listener.poll_interval_ms=%d is unusually high; incoming parameters will lag", cfg.Listener.PollInterval/time.Millisecond),
		})
	}
	if cfg.OSC.TargetHost == cfg.OSC.ListenHost && cfg.OSC.TargetPort == cfg.OSC.ListenPort {
		warnings = append(warnings, Warning{
			Message: "osc target and listen endpoints are identical; outgoing messages will loop back",
		})
	}

	return warnings, nil
}
