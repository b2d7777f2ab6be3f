package firewall

import (
	"fmt"
	"log/slog"

	"github.com/firefly-engineering/netblocker/internal/audit"
	"github.com/firefly-engineering/netblocker/internal/cache"
	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/rules"
)

// Decision is the outcome of one gate evaluation.
type Decision struct {
	Allowed bool
	Reason  string

	// Rule is the rule that granted access, if any.
	Rule *rules.Rule
}

func allowedBy(r rules.Rule, how string) Decision {
	return Decision{Allowed: true, Reason: fmt.Sprintf("%s %s (line %d)", how, r.String(), r.Line), Rule: &r}
}

func denied(reason string) Decision {
	return Decision{Reason: reason}
}

// Engine enforces one rule table.
type Engine struct {
	rulesPath string
	store     *rules.Store
	cache     *cache.Cache
	prims     *network.Primitives
	recorder  audit.Recorder
	logger    *slog.Logger
	stats     Stats
}

// Option configures an Engine
type Option func(*Engine)

// WithRulesPath sets the file Reload reads.
func WithRulesPath(path string) Option {
	return func(e *Engine) {
		e.rulesPath = path
	}
}

// WithCacheSize sets the cache bound (0 = cache.DefaultBound).
func WithCacheSize(n int) Option {
	return func(e *Engine) {
		e.cache = cache.New(n)
	}
}

// WithPrimitives sets the real resolver and dialer.
func WithPrimitives(p *network.Primitives) Option {
	return func(e *Engine) {
		e.prims = p
	}
}

// WithNetwork binds a fixed resolver and dialer.
func WithNetwork(r network.Resolver, d network.Dialer) Option {
	return func(e *Engine) {
		e.prims = network.Bind(func() (network.Resolver, network.Dialer) { return r, d })
	}
}

// WithRecorder sets where decisions are recorded.
func WithRecorder(r audit.Recorder) Option {
	return func(e *Engine) {
		e.recorder = r
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// New returns an engine with an empty table, which denies everything until
// the first Reload or Install.
func New(opts ...Option) *Engine {
	e := &Engine{
		store: rules.NewStore(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = cache.New(cache.DefaultBound)
	}
	if e.prims == nil {
		e.prims = network.System()
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "firewall")
	return e
}

// Reload re-reads the rules file and installs the result, clearing the cache.
// An unreadable file installs an empty table and returns ConfigUnavailable.
func (e *Engine) Reload() error {
	var loadErr error
	var skipped int

	table := e.store.Reload(func() *rules.Table {
		t, problems, err := rules.LoadFile(e.rulesPath, e.logger)
		loadErr, skipped = err, len(problems)
		return t
	}, e.resetCache)

	e.stats.Reloads.Add(1)
	e.logger.Info("rules reloaded", "path", e.rulesPath, "rules", table.Len(), "skipped", skipped, "generation", table.Generation)
	e.record(audit.Event{
		Gate:    audit.GateReload,
		Target:  e.rulesPath,
		Allowed: loadErr == nil,
		Reason:  fmt.Sprintf("%d rules, %d skipped", table.Len(), skipped),
	})
	return loadErr
}

// Install replaces the active table with t, clearing the cache.
func (e *Engine) Install(t *rules.Table) {
	e.store.Reload(func() *rules.Table {
		if t == nil {
			return nil
		}
		return &rules.Table{Rules: append([]rules.Rule(nil), t.Rules...)}
	}, e.resetCache)
	e.stats.Reloads.Add(1)
}

// resetCache runs under the rule write lock, so the cache lock is always
// taken second.
func (e *Engine) resetCache(t *rules.Table) {
	e.cache.Reset(t.Generation)
}

// RulesPath returns the file Reload reads.
func (e *Engine) RulesPath() string {
	return e.rulesPath
}

// Table returns the active rule table.
func (e *Engine) Table() *rules.Table {
	return e.store.Current()
}

// Cache returns the authorized-address cache.
func (e *Engine) Cache() *cache.Cache {
	return e.cache
}

// Resolver returns the real resolver the gates delegate to.
func (e *Engine) Resolver() network.Resolver {
	return e.prims.Resolver()
}

// Stats returns a snapshot of the engine counters.
func (e *Engine) Stats() StatsSnapshot {
	return e.stats.Snapshot()
}

func (e *Engine) decide(gate audit.Gate, target string, port uint16, d Decision) {
	if d.Allowed {
		e.logger.Debug("allowed", "gate", gate, "target", target, "port", port, "reason", d.Reason)
	} else {
		e.logger.Debug("blocked", "gate", gate, "target", target, "port", port, "reason", d.Reason)
	}
	e.record(audit.Event{Gate: gate, Target: target, Port: port, Allowed: d.Allowed, Reason: d.Reason})
}

func (e *Engine) record(event audit.Event) {
	if e.recorder != nil {
		e.recorder.Record(event)
	}
}
