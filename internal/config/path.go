package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath applies CLI/XDG/home fallback rules for config.jsonc location.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "voxosc", "config.jsonc"), nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	return filepath.Join(home, ".config", "voxosc", "config.jsonc"), nil
}

// ResolveCommandsPath returns the commands file location: the configured
// path when set, otherwise commands.json next to the config file.
func ResolveCommandsPath(cfg Config, configPath string) string {
	if strings.TrimSpace(cfg.CommandsPath) != "" {
		return cfg.CommandsPath
	}
	return filepath.Join(filepath.Dir(configPath), "commands.json")
}
