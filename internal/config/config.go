package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/firefly-engineering/netblocker/internal/cache"
	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/network"
)

const (
	DefaultSettingsDir  = "/etc/netblocker"
	DefaultSettingsFile = "netblocker.toml"
	DefaultRulesFile    = "rules.conf"
	DefaultProxyListen  = "127.0.0.1:3128"

	// EnvRules names the environment variable carrying the rules file path.
	EnvRules = "NETBLOCKER_CONF"
	// EnvSettings names the environment variable carrying the settings file path.
	EnvSettings = "NETBLOCKER_SETTINGS"
)

// Settings is the decoded settings file.
type Settings struct {
	RulesFile string   `toml:"rules_file"`
	CacheSize int      `toml:"cache_size"`
	AuditLog  string   `toml:"audit_log"`
	Resolver  Resolver `toml:"resolver"`
	Proxy     Proxy    `toml:"proxy"`
	Reload    Reload   `toml:"reload"`

	// Dir is the directory relative rules_file values resolve against.
	Dir string `toml:"-"`
}

// Resolver selects the resolution primitive.
type Resolver struct {
	Mode    string        `toml:"mode"`
	Servers []string      `toml:"servers"`
	Timeout time.Duration `toml:"timeout"`
}

// Proxy configures the forward proxy listener.
type Proxy struct {
	Listen string `toml:"listen"`
}

// Reload configures automatic rule reloads.
type Reload struct {
	PollInterval time.Duration `toml:"poll_interval"`
}

// Defaults returns settings with every key at its default.
func Defaults() *Settings {
	return &Settings{
		RulesFile: DefaultRulesFile,
		CacheSize: cache.DefaultBound,
		Resolver: Resolver{
			Mode:    string(network.ModeSystem),
			Timeout: network.DefaultDNSTimeout,
		},
		Proxy: Proxy{Listen: DefaultProxyListen},
		Dir:   DefaultSettingsDir,
	}
}

// SettingsPath returns the settings file to load: NETBLOCKER_SETTINGS when
// set, otherwise the default location.
func SettingsPath() string {
	if p := os.Getenv(EnvSettings); p != "" {
		return p
	}
	return filepath.Join(DefaultSettingsDir, DefaultSettingsFile)
}

// Load reads settings from path. A missing file yields Defaults with Dir
// set to the file's directory.
func Load(path string) (*Settings, error) {
	s := Defaults()
	s.Dir = filepath.Dir(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.ConfigError(fmt.Sprintf("failed to read settings %s", path), err)
	}

	md, err := toml.Decode(string(data), s)
	if err != nil {
		return nil, errors.ConfigError(fmt.Sprintf("failed to parse settings %s", path), err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.ConfigError(fmt.Sprintf("unknown settings key %q in %s", undecoded[0].String(), path), nil)
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the settings are usable.
func (s *Settings) Validate() error {
	if s.RulesFile == "" {
		return errors.ConfigError("rules_file is required", nil)
	}
	if s.CacheSize < 1 {
		return errors.ConfigError(fmt.Sprintf("cache_size must be positive, got %d", s.CacheSize), nil)
	}
	switch network.Mode(s.Resolver.Mode) {
	case network.ModeSystem:
	case network.ModeDNS:
		if len(s.Resolver.Servers) == 0 {
			return errors.ConfigError("resolver mode dns requires at least one server", nil)
		}
	default:
		return errors.ConfigError(fmt.Sprintf("unknown resolver mode %q", s.Resolver.Mode), nil)
	}
	if s.Resolver.Timeout < 0 {
		return errors.ConfigError("resolver timeout cannot be negative", nil)
	}
	if _, _, err := net.SplitHostPort(s.Proxy.Listen); err != nil {
		return errors.ConfigError(fmt.Sprintf("invalid proxy listen address %q", s.Proxy.Listen), err)
	}
	if s.Reload.PollInterval < 0 {
		return errors.ConfigError("reload poll_interval cannot be negative", nil)
	}
	return nil
}

// RulesPath returns the rules file location. NETBLOCKER_CONF wins; an
// absolute rules_file is used as is; a relative one is joined onto Dir.
func (s *Settings) RulesPath() (string, error) {
	if p := os.Getenv(EnvRules); p != "" {
		return p, nil
	}
	if filepath.IsAbs(s.RulesFile) {
		return s.RulesFile, nil
	}
	p, err := securejoin.SecureJoin(s.Dir, s.RulesFile)
	if err != nil {
		return "", errors.ConfigError(fmt.Sprintf("invalid rules_file %q", s.RulesFile), err)
	}
	return p, nil
}
