package config

import (
	"testing"
)

func TestParseEmptyContentYieldsDefaults(t *testing.T) {
	cfg, _, err := Parse("   \n\t", Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestParseRejectsNonObjectContent(t *testing.T) {
	_, _, err := Parse("target_host = 127.0.0.1", Default())
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseValidConfig(t *testing.T) {
	input := `
{
  // local VRChat client
  "osc": {
    "target_port": 9010,
  },
  "speech": {"default_language": "en"},
}
`

	cfg, warnings, err := Parse(input, Default())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.OSC.TargetPort != 9010 {
		t.Fatalf("unexpected target port: %d", cfg.OSC.TargetPort)
	}
	if cfg.OSC.ListenPort != 9001 {
		t.Fatalf("expected default listen port, got %d", cfg.OSC.ListenPort)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
}
