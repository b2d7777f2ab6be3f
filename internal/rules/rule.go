package rules

import (
	"strconv"
	"strings"

	"github.com/firefly-engineering/netblocker/internal/addr"
)

// Kind identifies a rule's selector.
type Kind int

const (
	// KindWildcard matches every destination.
	KindWildcard Kind = iota
	// KindDomainSuffix matches hostnames under a domain.
	KindDomainSuffix
	// KindHost matches one hostname.
	KindHost
	// KindIP matches one address.
	KindIP
	// KindCIDR matches a network.
	KindCIDR
)

func (k Kind) String() string {
	switch k {
	case KindWildcard:
		return "wildcard"
	case KindDomainSuffix:
		return "domain-suffix"
	case KindHost:
		return "host"
	case KindIP:
		return "ip"
	case KindCIDR:
		return "cidr"
	default:
		return "unknown"
	}
}

// Rule is one allow-list entry.
type Rule struct {
	Kind Kind

	// Pattern is the selector token as written in the file.
	Pattern string

	// Suffix holds ".example.com" for a DomainSuffix rule, lower-cased.
	Suffix string

	// Host holds the lower-cased hostname for a Host rule.
	Host string

	// Addr is the canonical address of an IP rule or the network of a CIDR rule.
	Addr addr.Address

	// Bits is the CIDR prefix length over the 128-bit form.
	Bits int

	// Port restricts the rule to one destination port. 0 means any.
	Port uint16

	// Line is the 1-based source line.
	Line int
}

// AnyPort reports whether the rule has no port restriction.
func (r Rule) AnyPort() bool {
	return r.Port == 0
}

// IsHostRule reports whether the selector can match a hostname.
func (r Rule) IsHostRule() bool {
	return r.Kind == KindWildcard || r.Kind == KindDomainSuffix || r.Kind == KindHost
}

// BaseDomain returns the suffix without its leading dot.
func (r Rule) BaseDomain() string {
	return strings.TrimPrefix(r.Suffix, ".")
}

// AllowsPort applies the connection-time port filter: the rule has no port,
// or it equals the destination port.
func (r Rule) AllowsPort(port uint16) bool {
	return r.Port == 0 || r.Port == port
}

// AllowsLookupPort applies the resolution-time port filter, where a
// request without a port (0) matches any declared port.
func (r Rule) AllowsLookupPort(port uint16) bool {
	return r.Port == 0 || port == 0 || r.Port == port
}

// MatchesHost reports whether the selector matches a hostname. A wildcard only
// matches hostnames when it carries no port restriction.
func (r Rule) MatchesHost(host string) bool {
	host = normalizeHost(host)
	switch r.Kind {
	case KindWildcard:
		return r.Port == 0
	case KindDomainSuffix:
		return len(host) > len(r.Suffix) && strings.HasSuffix(host, r.Suffix)
	case KindHost:
		return host == r.Host
	default:
		return false
	}
}

// MatchesAddr reports whether an IP, CIDR or wildcard selector covers a.
func (r Rule) MatchesAddr(a addr.Address) bool {
	switch r.Kind {
	case KindWildcard:
		return true
	case KindIP:
		return r.Addr.Equal(a)
	case KindCIDR:
		return addr.Match(a, r.Addr, r.Bits)
	default:
		return false
	}
}

// PortString renders the port token, "*" for any.
func (r Rule) PortString() string {
	if r.Port == 0 {
		return "*"
	}
	return strconv.Itoa(int(r.Port))
}

// String renders the rule in file syntax.
func (r Rule) String() string {
	if r.Port == 0 {
		return r.Pattern
	}
	return r.Pattern + " " + r.PortString()
}

func normalizeHost(host string) string {
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
