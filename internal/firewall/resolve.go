package firewall

import (
	"context"
	"net"
	"net/netip"

	"github.com/firefly-engineering/netblocker/internal/addr"
	"github.com/firefly-engineering/netblocker/internal/audit"
	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/rules"
)

// CheckHost evaluates the resolution gate for host without resolving it.
// port 0 means the request names no port.
func (e *Engine) CheckHost(host string, port uint16) Decision {
	d, _ := e.checkHost(host, port)
	e.decide(audit.GateResolve, host, port, d)
	return d
}

func (e *Engine) checkHost(host string, port uint16) (Decision, uint64) {
	var d Decision
	var gen uint64

	literal, literalErr := addr.Parse(host)
	e.store.View(func(t *rules.Table) {
		gen = t.Generation
		if literalErr == nil {
			if r, ok := t.MatchLiteral(literal, port); ok {
				d = allowedBy(r, "rule")
				return
			}
			d = denied("no matching address rule")
			return
		}
		if r, ok := t.MatchHost(host, port); ok {
			d = allowedBy(r, "rule")
			return
		}
		d = denied("no matching host rule")
	})
	return d, gen
}

// Lookup is the resolution gate. service is a port number or name; a
// numeric service also restricts which rules apply. Every address returned
// is cached at the numeric service port, or at the port the resolver
// reports when the service was a name.
func (e *Engine) Lookup(ctx context.Context, host, service string) ([]netip.AddrPort, error) {
	resolver := e.prims.Resolver()
	if host == "" {
		return resolver.Resolve(ctx, host, service)
	}

	e.stats.Lookups.Add(1)
	svcPort, _ := network.NumericPort(service)

	d, gen := e.checkHost(host, svcPort)
	e.decide(audit.GateResolve, host, svcPort, d)
	if !d.Allowed {
		e.stats.LookupsBlocked.Add(1)
		return nil, resolutionBlocked(host, svcPort)
	}

	results, err := resolver.Resolve(ctx, host, service)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		port := svcPort
		if port == 0 {
			port = res.Port()
		}
		e.cache.InsertGen(gen, addr.FromNetip(res.Addr()).String(), port)
	}
	return results, nil
}

// LookupHost has the shape of net.Resolver.LookupHost and runs the
// resolution gate without a port.
func (e *Engine) LookupHost(ctx context.Context, host string) ([]string, error) {
	results, err := e.Lookup(ctx, host, "")
	if err != nil {
		return nil, err
	}
	seen := make(map[netip.Addr]bool, len(results))
	out := make([]string, 0, len(results))
	for _, res := range results {
		if seen[res.Addr()] {
			continue
		}
		seen[res.Addr()] = true
		out = append(out, res.Addr().String())
	}
	return out, nil
}

func resolutionBlocked(host string, port uint16) error {
	return &net.DNSError{
		Err:       "blocked by policy",
		Name:      host,
		UnwrapErr: errors.ResolutionBlocked(host, port),
	}
}
