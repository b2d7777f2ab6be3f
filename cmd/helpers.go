package cmd

import (
	"github.com/firefly-engineering/netblocker/internal/app"
	"github.com/firefly-engineering/netblocker/internal/config"
	"github.com/firefly-engineering/netblocker/internal/logging"
)

// appOptions are appended to every App the commands build. Tests use it
// to swap in fake primitives.
var appOptions []app.Option

// loadSettings reads the --settings file, or the default location.
func loadSettings() (*config.Settings, error) {
	p := settingsPath
	if p == "" {
		p = config.SettingsPath()
	}
	return config.Load(p)
}

// resolveRulesPath returns --rules when given, otherwise the settings' path.
func resolveRulesPath(s *config.Settings) (string, error) {
	if rulesPath != "" {
		return rulesPath, nil
	}
	return s.RulesPath()
}

// loadApp builds the App for a command from the persistent flags.
func loadApp() (*app.App, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	path, err := resolveRulesPath(s)
	if err != nil {
		return nil, err
	}

	opts := []app.Option{
		app.WithSettings(s),
		app.WithRulesPath(path),
		app.WithLogger(logging.Logger),
	}
	return app.New(append(opts, appOptions...)...)
}
