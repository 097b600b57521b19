// Package config resolves, parses, validates, and defaults voxosc configuration.
package config

import "time"

// Config is the fully materialized runtime configuration used by voxosc.
type Config struct {
	OSC      OSCConfig
	Listener ListenerConfig
	Speech   SpeechConfig

	// CommandsPath is where the speech command mappings are persisted.
	CommandsPath string

	// WatchConfig enables live reload of the config file while the
	// daemon is running.
	WatchConfig bool
}

// OSCConfig holds the UDP endpoints: where outgoing parameter messages
// go and where incoming ones are received.
type OSCConfig struct {
	TargetHost string
	TargetPort int
	ListenHost string
	ListenPort int
}

// ListenerConfig controls the receive loop.
type ListenerConfig struct {
	Autostart    bool
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

// SpeechConfig controls command matching.
type SpeechConfig struct {
	DefaultLanguage string
}

// Warning is a non-fatal parse/validation message.
type Warning struct {
	Line    int
	Message string
}
