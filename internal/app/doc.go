// Package app provides the application context for netblocker.
//
// This package wires settings, the firewall engine, the audit log and the
// reload controller together using the functional options pattern, enabling
// easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Settings  *config.Settings        // Loaded settings
//	    RulesPath string                  // Resolved rules file
//	    Engine    *firewall.Engine        // Both gates and the rule table
//	    Executor  system.CommandExecutor  // Child process runner
//	}
//
// # Creating an App
//
//	// Production usage
//	a, err := app.New(app.WithSettings(settings))
//
//	// Testing with custom dependencies
//	a, err := app.New(
//	    app.WithRulesPath(path),
//	    app.WithNetwork(fakeResolver, fakeDialer),
//	    app.WithExecutor(system.NewMockExecutor()),
//	)
//
// # Process Singleton
//
// Init runs once per process: it loads settings, performs the initial rule
// load, binds the real primitives and registers SIGHUP as the reload
// trigger. Default returns that instance, initializing it on first use.
// DialContext and LookupHost route through it.
package app
