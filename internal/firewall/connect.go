package firewall

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"

	"github.com/firefly-engineering/netblocker/internal/addr"
	"github.com/firefly-engineering/netblocker/internal/audit"
	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/rules"
)

// CheckAddr evaluates the connection gate for ip:port, including the
// domain-suffix backfill pass.
func (e *Engine) CheckAddr(ctx context.Context, ip string, port uint16) Decision {
	e.stats.Connects.Add(1)
	d := e.checkAddr(ctx, ip, port)
	if !d.Allowed {
		e.stats.ConnectsBlocked.Add(1)
	}
	e.decide(audit.GateConnect, ip, port, d)
	return d
}

func (e *Engine) checkAddr(ctx context.Context, ip string, port uint16) Decision {
	if e.cache.Contains(ip, port) {
		e.stats.CacheHits.Add(1)
		return Decision{Allowed: true, Reason: "cache"}
	}

	target, err := addr.Parse(ip)
	if err != nil {
		return denied("malformed address")
	}
	if key := target.String(); key != ip && e.cache.Contains(key, port) {
		e.stats.CacheHits.Add(1)
		return Decision{Allowed: true, Reason: "cache"}
	}

	var d Decision
	var gen uint64
	var suffixes []rules.Rule
	e.store.View(func(t *rules.Table) {
		gen = t.Generation
		if r, ok := t.MatchAddr(target, port); ok {
			d = allowedBy(r, "rule")
			return
		}
		suffixes = t.SuffixRules(port)
	})
	if d.Allowed {
		return d
	}

	// The table lock is released; resolving may block.
	resolver := e.prims.Resolver()
	for _, r := range suffixes {
		results, err := resolver.Resolve(ctx, r.BaseDomain(), "")
		if err != nil {
			e.logger.Debug("backfill lookup failed", "domain", r.BaseDomain(), "error", err)
			continue
		}
		e.stats.Backfills.Add(1)

		matched := false
		for _, res := range results {
			a := addr.FromNetip(res.Addr())
			e.cache.InsertGen(gen, a.String(), r.Port)
			if a.Equal(target) {
				matched = true
			}
		}
		if matched {
			return allowedBy(r, "backfill")
		}
	}
	return denied("no matching rule")
}

// DialContext has the shape of net.Dialer.DialContext. IP targets go
// straight to the connection gate. Hostnames pass the resolution gate
// first, then each address is checked in turn and the first allowed one
// is dialed. Only tcp and udp networks are supported. Each call counts as
// one connect in Stats however many addresses it tries.
func (e *Engine) DialContext(ctx context.Context, netw, address string) (net.Conn, error) {
	e.stats.Connects.Add(1)
	if !supportedNetwork(netw) {
		e.stats.ConnectsBlocked.Add(1)
		e.decide(audit.GateConnect, address, 0, denied("unsupported network "+netw))
		return nil, connectionBlocked(netw, address, 0)
	}

	host, service, err := net.SplitHostPort(address)
	if err != nil {
		e.stats.ConnectsBlocked.Add(1)
		e.decide(audit.GateConnect, address, 0, denied("malformed address"))
		return nil, connectionBlocked(netw, address, 0)
	}
	port, err := network.ServicePort(ctx, netw, service)
	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: netw, Err: err}
	}

	var targets []netip.Addr
	if literal, err := addr.Parse(host); err == nil {
		targets = []netip.Addr{literal.Netip()}
	} else {
		results, err := e.Lookup(ctx, host, strconv.Itoa(int(port)))
		if err != nil {
			return nil, &net.OpError{Op: "dial", Net: netw, Err: err}
		}
		for _, res := range results {
			targets = append(targets, res.Addr())
		}
	}

	dialer := e.prims.Dialer()
	var firstErr error
	blocked := false
	for _, ip := range targets {
		if !familyMatches(netw, ip) {
			continue
		}
		text := addr.FromNetip(ip).String()
		d := e.checkAddr(ctx, text, port)
		e.decide(audit.GateConnect, text, port, d)
		if !d.Allowed {
			blocked = true
			continue
		}
		dialHost := text
		if strings.HasSuffix(netw, "6") {
			// tcp6 and udp6 need the address in IPv6 form, mapped or not.
			dialHost = ip.String()
		}
		conn, err := dialer.DialContext(ctx, netw, net.JoinHostPort(dialHost, strconv.Itoa(int(port))))
		if err == nil {
			return conn, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	if !blocked {
		return nil, &net.OpError{Op: "dial", Net: netw, Err: &net.AddrError{Err: "no suitable address found", Addr: host}}
	}
	e.stats.ConnectsBlocked.Add(1)
	return nil, connectionBlocked(netw, host, port)
}

func supportedNetwork(netw string) bool {
	switch netw {
	case "tcp", "tcp4", "tcp6", "udp", "udp4", "udp6":
		return true
	}
	return false
}

func familyMatches(netw string, ip netip.Addr) bool {
	switch netw {
	case "tcp4", "udp4":
		return ip.Unmap().Is4()
	case "tcp6", "udp6":
		return ip.Is6()
	}
	return true
}

func connectionBlocked(netw, target string, port uint16) error {
	return &net.OpError{
		Op:  "dial",
		Net: netw,
		Err: errors.ConnectionBlocked(target, port),
	}
}
