package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/firefly-engineering/netblocker/internal/audit"
	"github.com/firefly-engineering/netblocker/internal/config"
	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/firewall"
	"github.com/firefly-engineering/netblocker/internal/logging"
	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/reload"
	"github.com/firefly-engineering/netblocker/internal/system"
)

// App holds the application dependencies
type App struct {
	// Settings holds the loaded settings
	Settings *config.Settings

	// RulesPath is the rules file the engine reloads from
	RulesPath string

	// Engine holds the rule table, the cache and both gates
	Engine *firewall.Engine

	// Executor runs wrapped commands
	Executor system.CommandExecutor

	// LoadErr is the result of the initial rule load
	LoadErr error

	logger   *slog.Logger
	prims    *network.Primitives
	auditLog *audit.Logger

	mu   sync.Mutex
	stop func()
}

// Option is a function that configures the App
type Option func(*App)

// WithSettings sets the settings
func WithSettings(s *config.Settings) Option {
	return func(a *App) {
		a.Settings = s
	}
}

// WithRulesPath overrides the rules file location
func WithRulesPath(path string) Option {
	return func(a *App) {
		a.RulesPath = path
	}
}

// WithNetwork binds a fixed resolver and dialer instead of the configured ones
func WithNetwork(r network.Resolver, d network.Dialer) Option {
	return func(a *App) {
		a.prims = network.Bind(func() (network.Resolver, network.Dialer) { return r, d })
	}
}

// WithExecutor sets a custom command executor
func WithExecutor(e system.CommandExecutor) Option {
	return func(a *App) {
		a.Executor = e
	}
}

// WithLogger sets the logger handed to every component
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// New creates a new App and performs the initial rule load. A missing or
// unreadable rules file is not fatal: the engine denies everything and
// LoadErr records why.
func New(opts ...Option) (*App, error) {
	a := &App{}
	for _, opt := range opts {
		opt(a)
	}

	if a.Settings == nil {
		a.Settings = config.Defaults()
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	if a.Executor == nil {
		a.Executor = system.DefaultExecutor()
	}
	if a.RulesPath == "" {
		p, err := a.Settings.RulesPath()
		if err != nil {
			return nil, err
		}
		a.RulesPath = p
	}
	if a.prims == nil {
		a.prims = primitivesFor(a.Settings)
	}

	engineOpts := []firewall.Option{
		firewall.WithRulesPath(a.RulesPath),
		firewall.WithCacheSize(a.Settings.CacheSize),
		firewall.WithPrimitives(a.prims),
		firewall.WithLogger(a.logger),
	}

	if a.Settings.AuditLog != "" {
		al, err := audit.Open(a.Settings.AuditLog, audit.WithLogger(a.logger))
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("failed to open audit log %s", a.Settings.AuditLog), err)
		}
		a.auditLog = al
		engineOpts = append(engineOpts, firewall.WithRecorder(al))
	}

	a.Engine = firewall.New(engineOpts...)
	if err := a.Engine.Reload(); err != nil {
		a.LoadErr = err
		a.logger.Warn("initial rule load failed, denying all egress", "path", a.RulesPath, "error", err)
	}

	return a, nil
}

// primitivesFor binds the resolver the settings select. The dialer is
// always the platform one.
func primitivesFor(s *config.Settings) *network.Primitives {
	if network.Mode(s.Resolver.Mode) != network.ModeDNS {
		return network.System()
	}
	servers, timeout := s.Resolver.Servers, s.Resolver.Timeout
	return network.Bind(func() (network.Resolver, network.Dialer) {
		return network.NewDNSResolver(servers, timeout), &net.Dialer{}
	})
}

// Controller returns a reload controller for the engine, polling the rules
// file when the settings ask for it.
func (a *App) Controller(opts ...reload.Option) *reload.Controller {
	base := []reload.Option{
		reload.WithLogger(a.logger),
		reload.WithPoll(a.RulesPath, a.Settings.Reload.PollInterval),
	}
	return reload.New(a.Engine, append(base, opts...)...)
}

// Start runs the reload controller with SIGHUP as its trigger until ctx is
// cancelled or Close is called.
func (a *App) Start(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	ctrl := a.Controller()
	stopSignals := ctrl.Notify()
	go ctrl.Run(ctx)

	a.stop = func() {
		stopSignals()
		cancel()
	}
}

// Transport returns an HTTP transport whose connections pass both gates.
func (a *App) Transport() *http.Transport {
	return &http.Transport{
		DialContext:         a.Engine.DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		IdleConnTimeout:     90 * time.Second,
	}
}

// Close stops the reload controller and flushes the audit log.
func (a *App) Close() error {
	a.mu.Lock()
	if a.stop != nil {
		a.stop()
		a.stop = nil
	}
	a.mu.Unlock()

	if a.auditLog != nil {
		return a.auditLog.Close()
	}
	return nil
}

var (
	defaultApp  *App
	defaultErr  error
	defaultOnce sync.Once
	defaultMu   sync.RWMutex
)

// Init builds the process-wide App and starts its reload controller. Only
// the first call has any effect; later calls return the same result.
func Init(opts ...Option) (*App, error) {
	defaultOnce.Do(func() {
		a, err := initDefault(opts...)
		defaultMu.Lock()
		defaultApp, defaultErr = a, err
		defaultMu.Unlock()
	})
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultApp, defaultErr
}

func initDefault(opts ...Option) (*App, error) {
	settings, err := config.Load(config.SettingsPath())
	if err != nil {
		return nil, err
	}
	a, err := New(append([]Option{WithSettings(settings), WithLogger(logging.Logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	a.Start(context.Background())
	return a, nil
}

// Default returns the process-wide App, initializing it on first use.
func Default() (*App, error) {
	return Init()
}

// SetDefault sets the default application instance (used for testing)
func SetDefault(a *App) {
	defaultOnce.Do(func() {})
	defaultMu.Lock()
	defaultApp, defaultErr = a, nil
	defaultMu.Unlock()
}

// ResetDefault forgets the default instance so the next Init builds a new one
func ResetDefault() {
	defaultMu.Lock()
	defaultApp, defaultErr = nil, nil
	defaultOnce = sync.Once{}
	defaultMu.Unlock()
}

// DialContext dials through the process-wide App's gates.
func DialContext(ctx context.Context, netw, address string) (net.Conn, error) {
	a, err := Default()
	if err != nil {
		return nil, err
	}
	return a.Engine.DialContext(ctx, netw, address)
}

// LookupHost resolves through the process-wide App's resolution gate.
func LookupHost(ctx context.Context, host string) ([]string, error) {
	a, err := Default()
	if err != nil {
		return nil, err
	}
	return a.Engine.LookupHost(ctx, host)
}
