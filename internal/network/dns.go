package network

import (
	"context"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultDNSTimeout bounds a single upstream exchange.
const DefaultDNSTimeout = 5 * time.Second

// DNSResolver queries upstream servers directly for A and AAAA records.
type DNSResolver struct {
	servers []string
	client  *dns.Client
}

// NewDNSResolver returns a resolver for host:port upstreams, tried in order.
// Servers without a port get 53.
func NewDNSResolver(servers []string, timeout time.Duration) *DNSResolver {
	if timeout <= 0 {
		timeout = DefaultDNSTimeout
	}
	normalized := make([]string, 0, len(servers))
	for _, s := range servers {
		normalized = append(normalized, WithDefaultPort(s, "53"))
	}
	return &DNSResolver{
		servers: normalized,
		client: &dns.Client{
			Net:     "udp",
			Timeout: timeout,
		},
	}
}

// Servers returns the upstreams in query order.
func (r *DNSResolver) Servers() []string {
	return append([]string(nil), r.servers...)
}

// Resolve queries A then AAAA and pairs every address with the service port.
func (r *DNSResolver) Resolve(ctx context.Context, host, service string) ([]netip.AddrPort, error) {
	port, err := ServicePort(ctx, "tcp", service)
	if err != nil {
		return nil, err
	}
	if res, ok := literal(host, port); ok {
		return res, nil
	}
	if len(r.servers) == 0 {
		return nil, &net.DNSError{Err: "no upstream servers configured", Name: host}
	}

	name := dns.Fqdn(host)
	var out []netip.AddrPort
	var lastErr error
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		ips, err := r.query(ctx, name, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		for _, ip := range ips {
			out = append(out, netip.AddrPortFrom(ip, port))
		}
	}

	if len(out) == 0 {
		if lastErr != nil {
			return nil, &net.DNSError{Err: lastErr.Error(), Name: host, Server: r.servers[0]}
		}
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	return out, nil
}

func (r *DNSResolver) query(ctx context.Context, name string, qtype uint16) ([]netip.Addr, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess:
		case dns.RcodeNameError:
			return nil, nil
		default:
			lastErr = fmt.Errorf("%s from %s", dns.RcodeToString[resp.Rcode], server)
			continue
		}

		var ips []netip.Addr
		for _, rr := range resp.Answer {
			switch v := rr.(type) {
			case *dns.A:
				if ip, ok := netip.AddrFromSlice(v.A.To4()); ok {
					ips = append(ips, ip)
				}
			case *dns.AAAA:
				if ip, ok := netip.AddrFromSlice(v.AAAA.To16()); ok {
					ips = append(ips, ip.Unmap())
				}
			}
		}
		return ips, nil
	}
	return nil, lastErr
}

// WithDefaultPort appends port to addr when it has none.
func WithDefaultPort(addr, port string) string {
	if _, _, err := net.SplitHostPort(addr); err == nil {
		return addr
	}
	return net.JoinHostPort(strings.Trim(addr, "[]"), port)
}
