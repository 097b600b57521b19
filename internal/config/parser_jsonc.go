package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

type jsoncConfig struct {
	OSC      *jsoncOSC      `json:"osc"`
	Listener *jsoncListener `json:"listener"`
	Speech   *jsoncSpeech   `json:"speech"`

	CommandsPath *string `json:"commands_path"`
	WatchConfig  *bool   `json:"watch_config"`
}

type jsoncOSC struct {
	TargetHost *string `json:"target_host"`
	TargetPort *int    `json:"target_port"`
	ListenHost *string `json:"listen_host"`
	ListenPort *int    `json:"listen_port"`
}

type jsoncListener struct {
	Autostart      *bool `json:"autostart"`
	PollIntervalMS *int  `json:"poll_interval_ms"`
	ErrorBackoffMS *int  `json:"error_backoff_ms"`
}

type jsoncSpeech struct {
	DefaultLanguage *string `json:"default_language"`
}

func parseJSONC(content string, base Config) (Config, []Warning, error) {
	normalized, err := normalizeJSONC(content)
	if err != nil {
		return Config{}, nil, err
	}

	decoder := json.NewDecoder(strings.NewReader(normalized))
	decoder.DisallowUnknownFields()

	var payload jsoncConfig
	if err := decoder.Decode(&payload); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}
	if err := ensureSingleJSONValue(decoder); err != nil {
		return Config{}, nil, wrapJSONDecodeError(normalized, err)
	}

	cfg := base
	payload.applyTo(&cfg)

	warnings, err := Validate(cfg)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, warnings, nil
}

func (payload jsoncConfig) applyTo(cfg *Config) {
	if payload.OSC != nil {
		if payload.OSC.TargetHost != nil {
			cfg.OSC.TargetHost = strings.TrimSpace(*payload.OSC.TargetHost)
		}
		if payload.OSC.TargetPort != nil {
			cfg.OSC.TargetPort = *payload.OSC.TargetPort
		}
		if payload.OSC.ListenHost != nil {
			cfg.OSC.ListenHost = strings.TrimSpace(*payload.OSC.ListenHost)
		}
		if payload.OSC.ListenPort != nil {
			cfg.OSC.ListenPort = *payload.OSC.ListenPort
		}
	}

	if payload.Listener != nil {
		if payload.Listener.Autostart != nil {
			cfg.Listener.Autostart = *payload.Listener.Autostart
		}
		if payload.Listener.PollIntervalMS != nil {
			cfg.Listener.PollInterval = time.Duration(*payload.Listener.PollIntervalMS) * time.Millisecond
		}
		if payload.Listener.ErrorBackoffMS != nil {
			cfg.Listener.ErrorBackoff = time.Duration(*payload.Listener.ErrorBackoffMS) * time.Millisecond
		}
	}

	if payload.Speech != nil && payload.Speech.DefaultLanguage != nil {
		cfg.Speech.DefaultLanguage = strings.TrimSpace(*payload.Speech.DefaultLanguage)
	}

	if payload.CommandsPath != nil {
		cfg.CommandsPath = strings.TrimSpace(*payload.CommandsPath)
	}
	if payload.WatchConfig != nil {
		cfg.WatchConfig = *payload.WatchConfig
	}
}

func normalizeJSONC(content string) (string, error) {
	withoutComments, err := stripJSONCComments(content)
	if err != nil {
		return "", err
	}
	return stripJSONCTrailingCommas(withoutComments), nil
}

func stripJSONCComments(content string) (string, error) {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false
	lineComment := false
	blockComment := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if lineComment {
			if ch == '\n' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			if ch == '\r' {
				lineComment = false
				out.WriteByte(ch)
				continue
			}
			out.WriteByte(' ')
			continue
		}

		if blockComment {
			if ch == '*' && i+1 < len(content) && content[i+1] == '/' {
				blockComment = false
				out.WriteString("  ")
				i++
				continue
			}
			if ch == '\n' || ch == '\r' || ch == '\t' {
				out.WriteByte(ch)
			} else {
				out.WriteByte(' ')
			}
			continue
		}

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == '/' && i+1 < len(content) {
			next := content[i+1]
			if next == '/' {
				lineComment = true
				out.WriteString("  ")
				i++
				continue
			}
			if next == '*' {
				blockComment = true
				out.WriteString("  ")
				i++
				continue
			}
		}

		out.WriteByte(ch)
	}

	if blockComment {
		return "", fmt.Errorf("unterminated block comment in JSONC")
	}

	return out.String(), nil
}

func stripJSONCTrailingCommas(content string) string {
	var out strings.Builder
	out.Grow(len(content))

	inString := false
	escape := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if inString {
			out.WriteByte(ch)
			if escape {
				escape = false
				continue
			}
			if ch == '\\' {
				escape = true
				continue
			}
			if ch == '"' {
				inString = false
			}
			continue
		}

		if ch == '"' {
			inString = true
			out.WriteByte(ch)
			continue
		}

		if ch == ',' {
			j := i + 1
			for j < len(content) && isJSONWhitespace(content[j]) {
				j++
			}
			if j < len(content) && (content[j] == '}' || content[j] == ']') {
				continue
			}
		}

		out.WriteByte(ch)
	}

	return out.String()
}

func isJSONWhitespace(ch byte) bool {
	switch ch {
	case ' ', '\n', '\r', '\t':
		return true
	default:
		return false
	}
}

func ensureSingleJSONValue(decoder *json.Decoder) error {
	var extra struct{}
	err := decoder.Decode(&extra)
	if errors.Is(err, io.EOF) {
		return nil
	}
	if err == nil {
		return fmt.Errorf("multiple JSON values are not allowed")
	}
	return err
}

func wrapJSONDecodeError(content string, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		line, col := offsetToLineCol(content, syntaxErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		line, col := offsetToLineCol(content, typeErr.Offset)
		return fmt.Errorf("line %d column %d: %w", line, col, err)
	}

	return err
}

func offsetToLineCol(content string, offset int64) (int, int) {
	if offset <= 0 {
		return 1, 1
	}

	limit := int(offset)
	if limit > len(content) {
		limit = len(content)
	}

	line := 1
	col := 1
	for i := 0; i < limit-1; i++ {
		if content[i] == '\n' {
			line++
			col = 1
			continue
		}
		col++
	}
	return line, col
}
