package testutil

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"strings"
	"sync"
)

// FakeResolver resolves from a fixed table.
type FakeResolver struct {
	mu      sync.Mutex
	records map[string][]string
	calls   map[string]int

	// Err, when set, is returned for every lookup.
	Err error
}

// NewFakeResolver returns a resolver answering host -> IPs from records.
func NewFakeResolver(records map[string][]string) *FakeResolver {
	r := &FakeResolver{
		records: make(map[string][]string),
		calls:   make(map[string]int),
	}
	for host, ips := range records {
		r.records[strings.ToLower(host)] = ips
	}
	return r
}

// Set replaces the answer for host.
func (r *FakeResolver) Set(host string, ips ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[strings.ToLower(host)] = ips
}

// Resolve implements network.Resolver.
func (r *FakeResolver) Resolve(_ context.Context, host, service string) ([]netip.AddrPort, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	host = strings.ToLower(host)
	r.calls[host]++
	if r.Err != nil {
		return nil, r.Err
	}

	var port uint16
	if service != "" {
		n, err := strconv.ParseUint(service, 10, 16)
		if err != nil {
			return nil, &net.DNSError{Err: "unknown port", Name: service}
		}
		port = uint16(n)
	}

	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.AddrPort{netip.AddrPortFrom(ip, port)}, nil
	}

	ips, ok := r.records[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	out := make([]netip.AddrPort, 0, len(ips))
	for _, s := range ips {
		out = append(out, netip.AddrPortFrom(netip.MustParseAddr(s), port))
	}
	return out, nil
}

// Calls returns how many times host was resolved.
func (r *FakeResolver) Calls(host string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[strings.ToLower(host)]
}

// TotalCalls returns the number of lookups across all hosts.
func (r *FakeResolver) TotalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, n := range r.calls {
		total += n
	}
	return total
}

// FakeDialer records dial targets and hands back one end of a pipe.
type FakeDialer struct {
	mu    sync.Mutex
	dials []string

	// Err, when set, is returned for every dial.
	Err error
}

// DialContext implements network.Dialer.
func (d *FakeDialer) DialContext(_ context.Context, network, address string) (net.Conn, error) {
	d.mu.Lock()
	d.dials = append(d.dials, address)
	err := d.Err
	d.mu.Unlock()

	if err != nil {
		return nil, &net.OpError{Op: "dial", Net: network, Err: err}
	}
	client, server := net.Pipe()
	go server.Close()
	return client, nil
}

// Dials returns the dialed addresses in order.
func (d *FakeDialer) Dials() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.dials...)
}
