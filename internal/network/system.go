package network

import (
	"context"
	"net"
	"net/netip"
)

// SystemResolver resolves through net.Resolver.
type SystemResolver struct {
	// Resolver defaults to net.DefaultResolver.
	Resolver *net.Resolver
}

// Resolve looks up host and pairs every address with the service port.
func (s *SystemResolver) Resolve(ctx context.Context, host, service string) ([]netip.AddrPort, error) {
	port, err := ServicePort(ctx, "tcp", service)
	if err != nil {
		return nil, err
	}
	if res, ok := literal(host, port); ok {
		return res, nil
	}

	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}
	ips, err := r.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return nil, err
	}

	out := make([]netip.AddrPort, 0, len(ips))
	for _, ip := range ips {
		out = append(out, netip.AddrPortFrom(ip.Unmap(), port))
	}
	return out, nil
}
