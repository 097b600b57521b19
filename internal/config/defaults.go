package config

import "time"

// Default returns the canonical runtime configuration used when no file is present.
func Default() Config {
	return Config{
		OSC: OSCConfig{
			TargetHost: "127.0.0.1",
			TargetPort: 9000,
			ListenHost: "127.0.0.1",
			ListenPort: 9001,
		},
		Listener: ListenerConfig{
			Autostart:    true,
			PollInterval: 10 * time.Millisecond,
			ErrorBackoff: 100 * time.Millisecond,
		},
		Speech: SpeechConfig{
			DefaultLanguage: "en",
		},
		CommandsPath: "",
		WatchConfig:  false,
	}
}
