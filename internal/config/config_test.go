package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/firefly-engineering/netblocker/internal/errors"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "netblocker.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	return path
}

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	s, err := Load(filepath.Join(dir, "netblocker.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.RulesFile != DefaultRulesFile {
		t.Errorf("RulesFile = %q, want %q", s.RulesFile, DefaultRulesFile)
	}
	if s.CacheSize != 1024 {
		t.Errorf("CacheSize = %d, want 1024", s.CacheSize)
	}
	if s.Resolver.Mode != "system" {
		t.Errorf("Resolver.Mode = %q, want system", s.Resolver.Mode)
	}
	if s.Proxy.Listen != DefaultProxyListen {
		t.Errorf("Proxy.Listen = %q, want %q", s.Proxy.Listen, DefaultProxyListen)
	}
	if s.Dir != dir {
		t.Errorf("Dir = %q, want %q", s.Dir, dir)
	}
}

func TestLoad_Full(t *testing.T) {
	path := writeSettings(t, `
rules_file = "egress.conf"
cache_size = 64
audit_log = "/var/log/netblocker/audit.jsonl"

[resolver]
mode = "dns"
servers = ["127.0.0.53", "10.0.0.2:5353"]
timeout = "2s"

[proxy]
listen = "127.0.0.1:8080"

[reload]
poll_interval = "30s"
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.RulesFile != "egress.conf" || s.CacheSize != 64 {
		t.Errorf("top-level keys = %q/%d", s.RulesFile, s.CacheSize)
	}
	if s.AuditLog != "/var/log/netblocker/audit.jsonl" {
		t.Errorf("AuditLog = %q", s.AuditLog)
	}
	if s.Resolver.Mode != "dns" || len(s.Resolver.Servers) != 2 {
		t.Errorf("Resolver = %+v", s.Resolver)
	}
	if s.Resolver.Timeout != 2*time.Second {
		t.Errorf("Resolver.Timeout = %v, want 2s", s.Resolver.Timeout)
	}
	if s.Proxy.Listen != "127.0.0.1:8080" {
		t.Errorf("Proxy.Listen = %q", s.Proxy.Listen)
	}
	if s.Reload.PollInterval != 30*time.Second {
		t.Errorf("Reload.PollInterval = %v, want 30s", s.Reload.PollInterval)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"syntax", "rules_file = ", "failed to parse"},
		{"unknown key", "rule_file = \"x\"", "unknown settings key"},
		{"zero cache", "cache_size = 0", "cache_size"},
		{"bad mode", "[resolver]\nmode = \"doh\"", "unknown resolver mode"},
		{"dns without servers", "[resolver]\nmode = \"dns\"", "requires at least one server"},
		{"bad listen", "[proxy]\nlisten = \"localhost\"", "invalid proxy listen address"},
		{"negative poll", "[reload]\npoll_interval = \"-1s\"", "poll_interval"},
		{"empty rules file", "rules_file = \"\"", "rules_file is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.content))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
			if code := errors.GetExitCode(err); code != errors.ExitConfigError {
				t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
			}
		})
	}
}

func TestRulesPath(t *testing.T) {
	t.Setenv(EnvRules, "")

	s := Defaults()
	s.Dir = "/etc/netblocker"

	got, err := s.RulesPath()
	if err != nil {
		t.Fatalf("RulesPath() error = %v", err)
	}
	if got != "/etc/netblocker/rules.conf" {
		t.Errorf("RulesPath() = %q", got)
	}

	s.RulesFile = "/srv/policy/rules.conf"
	if got, _ := s.RulesPath(); got != "/srv/policy/rules.conf" {
		t.Errorf("absolute RulesPath() = %q", got)
	}
}

func TestRulesPath_StaysInDir(t *testing.T) {
	t.Setenv(EnvRules, "")

	s := Defaults()
	s.Dir = "/etc/netblocker"
	s.RulesFile = "../../etc/shadow"

	got, err := s.RulesPath()
	if err != nil {
		t.Fatalf("RulesPath() error = %v", err)
	}
	if !strings.HasPrefix(got, "/etc/netblocker/") {
		t.Errorf("RulesPath() = %q escaped the settings dir", got)
	}
}

func TestRulesPath_Env(t *testing.T) {
	t.Setenv(EnvRules, "/tmp/override.conf")

	s := Defaults()
	if got, _ := s.RulesPath(); got != "/tmp/override.conf" {
		t.Errorf("RulesPath() = %q, want env override", got)
	}
}

func TestSettingsPath(t *testing.T) {
	t.Setenv(EnvSettings, "")
	if got := SettingsPath(); got != "/etc/netblocker/netblocker.toml" {
		t.Errorf("SettingsPath() = %q", got)
	}

	t.Setenv(EnvSettings, "/tmp/nb.toml")
	if got := SettingsPath(); got != "/tmp/nb.toml" {
		t.Errorf("SettingsPath() = %q", got)
	}
}
