package rules

import "github.com/firefly-engineering/netblocker/internal/addr"

// Table is an ordered, immutable rule set.
type Table struct {
	Rules []Rule

	// Generation is assigned by Store when the table becomes active.
	Generation uint64
}

// Len returns the number of rules.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rules)
}

// MatchHost returns the first host rule allowing host at port.
// port 0 means the request named no port.
func (t *Table) MatchHost(host string, port uint16) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	for _, r := range t.Rules {
		if !r.IsHostRule() || !r.AllowsLookupPort(port) {
			continue
		}
		if r.MatchesHost(host) {
			return r, true
		}
	}
	return Rule{}, false
}

// MatchAddr returns the first wildcard, IP or CIDR rule allowing a at port.
func (t *Table) MatchAddr(a addr.Address, port uint16) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	for _, r := range t.Rules {
		if r.Kind == KindDomainSuffix || r.Kind == KindHost || !r.AllowsPort(port) {
			continue
		}
		if r.MatchesAddr(a) {
			return r, true
		}
	}
	return Rule{}, false
}

// SuffixRules returns the DomainSuffix rules that pass the port filter, in file order.
func (t *Table) SuffixRules(port uint16) []Rule {
	if t == nil {
		return nil
	}
	var out []Rule
	for _, r := range t.Rules {
		if r.Kind == KindDomainSuffix && r.AllowsPort(port) {
			out = append(out, r)
		}
	}
	return out
}

// Counts tallies rules per kind.
func (t *Table) Counts() map[Kind]int {
	counts := make(map[Kind]int)
	if t == nil {
		return counts
	}
	for _, r := range t.Rules {
		counts[r.Kind]++
	}
	return counts
}

// MatchLiteral applies host-rule semantics to a lookup whose host is
// already an address: an IP rule matches by canonical equality and a
// wildcard only when it has no port. CIDR rules never match.
func (t *Table) MatchLiteral(a addr.Address, port uint16) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	for _, r := range t.Rules {
		if !r.AllowsLookupPort(port) {
			continue
		}
		switch {
		case r.Kind == KindWildcard && r.Port == 0:
			return r, true
		case r.Kind == KindIP && r.Addr.Equal(a):
			return r, true
		}
	}
	return Rule{}, false
}
