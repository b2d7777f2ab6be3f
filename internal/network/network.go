package network

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"sync"
)

// Mode selects the resolver implementation
type Mode string

const (
	ModeSystem Mode = "system"
	ModeDNS    Mode = "dns"
)

// Resolver performs real name resolution. Results carry the service port,
// or 0 when no service was given.
type Resolver interface {
	Resolve(ctx context.Context, host, service string) ([]netip.AddrPort, error)
}

// Dialer establishes real connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Primitives binds the real resolver and dialer once, on first use.
type Primitives struct {
	once     sync.Once
	bind     func() (Resolver, Dialer)
	resolver Resolver
	dialer   Dialer
}

// Bind returns primitives that call bind the first time either handle is needed.
func Bind(bind func() (Resolver, Dialer)) *Primitives {
	return &Primitives{bind: bind}
}

// System returns primitives backed by the platform resolver and a plain net.Dialer.
func System() *Primitives {
	return Bind(func() (Resolver, Dialer) {
		return &SystemResolver{}, &net.Dialer{}
	})
}

func (p *Primitives) init() {
	p.once.Do(func() {
		if p.bind != nil {
			p.resolver, p.dialer = p.bind()
		}
		if p.resolver == nil {
			p.resolver = &SystemResolver{}
		}
		if p.dialer == nil {
			p.dialer = &net.Dialer{}
		}
	})
}

// Resolver returns the bound resolver.
func (p *Primitives) Resolver() Resolver {
	p.init()
	return p.resolver
}

// Dialer returns the bound dialer.
func (p *Primitives) Dialer() Dialer {
	p.init()
	return p.dialer
}

// NumericPort parses a decimal service. ok is false for names and empty input.
func NumericPort(service string) (uint16, bool) {
	if service == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(service, 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(n), true
}

// ServicePort maps a service to a port. Empty means 0; names are looked up
// in the services database for the given network.
func ServicePort(ctx context.Context, network, service string) (uint16, error) {
	if service == "" {
		return 0, nil
	}
	if p, ok := NumericPort(service); ok {
		return p, nil
	}
	if network == "" {
		network = "tcp"
	}
	p, err := net.DefaultResolver.LookupPort(ctx, network, service)
	if err != nil {
		return 0, err
	}
	return uint16(p), nil
}

// literal returns the result for a host that is already an IP address.
func literal(host string, port uint16) ([]netip.AddrPort, bool) {
	ip, err := netip.ParseAddr(host)
	if err != nil {
		return nil, false
	}
	return []netip.AddrPort{netip.AddrPortFrom(ip.WithZone(""), port)}, true
}

// ResolvedHost contains a hostname and its resolved IPs
type ResolvedHost struct {
	Hostname string
	IPs      []string
	Err      error
}

// ResolveHosts resolves each host with r. Failed hosts are kept with no IPs.
func ResolveHosts(ctx context.Context, r Resolver, hosts []string) []ResolvedHost {
	resolved := make([]ResolvedHost, 0, len(hosts))

	for _, host := range hosts {
		results, err := r.Resolve(ctx, host, "")
		if err != nil {
			resolved = append(resolved, ResolvedHost{Hostname: host, IPs: []string{}, Err: err})
			continue
		}

		ips := make([]string, 0, len(results))
		for _, res := range results {
			ips = append(ips, res.Addr().String())
		}
		resolved = append(resolved, ResolvedHost{Hostname: host, IPs: ips})
	}

	return resolved
}
