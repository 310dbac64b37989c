package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "skirmish.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("config = %+v, want defaults", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Session.HitDelay().Milliseconds() != 200 || cfg.Session.ProbeInterval().Seconds() != 1 {
		t.Fatalf("unexpected default timings: %+v", cfg.Session)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := writeConfig(t, `
addr = ":9000"

[log]
level = "debug"

[session]
hit_delay_ms = 350
probe_window = 4
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9000" || cfg.Log.Level != "debug" {
		t.Fatalf("top-level values not applied: %+v", cfg)
	}
	if cfg.Session.HitDelayMs != 350 || cfg.Session.ProbeWindow != 4 {
		t.Fatalf("session values not applied: %+v", cfg.Session)
	}
	if cfg.Session.ProbeIntervalMs != 1000 || cfg.Admission.Burst != 10 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"bad toml", "addr = ", "parse config"},
		{"zero hit delay", "[session]\nhit_delay_ms = 0", "hit_delay_ms"},
		{"ping interval above pong timeout", "[session]\nprobe_interval_ms = 60000", "probe_interval_ms"},
		{"negative window", "[session]\nprobe_window = -1", "probe_window"},
		{"burst without rate", "[admission]\nconnects_per_second = 2\nburst = 0", "burst"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
