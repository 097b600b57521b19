package config

import (
	"fmt"
	"strings"
)

// Parse reads configuration content as JSONC layered over base.
//
// Empty content yields the base unchanged. Anything that does not open
// with `{` is rejected outright.
func Parse(content string, base Config) (Config, []Warning, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		validatedWarnings, err := Validate(base)
		if err != nil {
			return Config{}, nil, err
		}
		return base, validatedWarnings, nil
	}

	if !strings.HasPrefix(trimmed, "{") {
		return Config{}, nil, fmt.Errorf("config must be a JSONC object (expected '{')")
	}

	return parseJSONC(content, base)
}
