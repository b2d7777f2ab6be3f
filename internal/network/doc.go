// Package network provides the real resolver and dialer the gates delegate to.
//
// The firewall never talks to the network directly. Authorized lookups go
// to a Resolver and authorized connections to a Dialer, bound once per
// process through Primitives.
//
// # Resolver Modes
//
//   - ModeSystem: the platform resolver via net.Resolver (default)
//   - ModeDNS: direct queries to configured upstream servers via miekg/dns
//
// Usage:
//
//	prims := network.Bind(func() (network.Resolver, network.Dialer) {
//	    return network.NewDNSResolver([]string{"1.1.1.1:53"}, 5*time.Second), &net.Dialer{}
//	})
//	results, err := prims.Resolver().Resolve(ctx, "api.github.com", "443")
//
// # Host Resolution
//
// ResolveHosts resolves a list of hostnames for display, keeping hosts
// that fail with an empty address list:
//
//	resolved := network.ResolveHosts(ctx, resolver, []string{"api.github.com"})
package network
