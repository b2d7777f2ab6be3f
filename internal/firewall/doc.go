// Package firewall is the policy engine: it owns the rule table and the
// authorized-address cache and exposes the two gates.
//
// # Resolution Gate
//
// Lookup, LookupHost and CheckHost authorize a hostname against host rules
// (an unrestricted wildcard, domain suffixes, host literals). Allowed lookups
// go to the real resolver and every returned address is cached at its
// effective port. Denied lookups fail with a *net.DNSError wrapping
// errors.ResolutionBlocked, and the resolver is never called.
//
// # Connection Gate
//
// DialContext and CheckAddr authorize a destination address and port:
//
//  1. a cache hit allows
//  2. an address that does not parse denies
//  3. wildcard, IP and CIDR rules are scanned in file order
//  4. each domain-suffix rule resolves its base domain, caches the results
//     at the rule's port, and allows when one of them is the target
//  5. anything else denies with a *net.OpError wrapping
//     errors.ConnectionBlocked (which unwraps to EACCES)
//
// # Reload
//
// Reload re-reads the rules file and swaps the table under the store's
// write lock, then clears the cache while still holding it. Cache inserts are
// tagged with the generation of the table that authorized them, so a lookup
// that raced a reload cannot repopulate the cache with stale grants.
//
// No lock is held while the real resolver or dialer runs.
package firewall
