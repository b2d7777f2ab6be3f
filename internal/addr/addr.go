// Package addr canonicalizes IP address text and matches CIDR prefixes.
//
// Every address is held in two forms: a 128-bit binary value with IPv4
// embedded as v4-mapped IPv6, used for prefix arithmetic and equality, and
// the natural text form (dotted quad for IPv4, RFC 5952 for IPv6) used for
// cache keys and display.
package addr

import (
	"net/netip"
	"strings"

	"github.com/firefly-engineering/netblocker/internal/errors"
)

// Address is a canonicalized IP address.
type Address struct {
	ip netip.Addr
}

// Parse canonicalizes an IPv4, IPv6 or v4-mapped IPv6 literal.
// Zones are dropped. Anything else, including hostnames, is a ParseError.
func Parse(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}
	ip, err := netip.ParseAddr(s)
	if err != nil {
		return Address{}, errors.ParseError(s)
	}
	return Address{ip: ip.WithZone("")}, nil
}

// MustParse is like Parse but panics on error. For tests and constants.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromNetip wraps a resolver result.
func FromNetip(ip netip.Addr) Address {
	return Address{ip: ip.WithZone("")}
}

// IsValid reports whether a is a parsed address and not the zero value.
func (a Address) IsValid() bool {
	return a.ip.IsValid()
}

// Bytes returns the 128-bit form, IPv4 embedded as ::ffff:a.b.c.d.
func (a Address) Bytes() [16]byte {
	return a.ip.As16()
}

// Is4 reports whether the address was given in IPv4 form. A v4-mapped
// literal is not, which keeps its prefix lengths on the 128-bit scale.
func (a Address) Is4() bool {
	return a.ip.Is4()
}

// Netip returns the underlying netip value.
func (a Address) Netip() netip.Addr {
	return a.ip
}

// Equal compares binary forms, so 1.2.3.4 equals ::ffff:1.2.3.4.
func (a Address) Equal(b Address) bool {
	if !a.IsValid() || !b.IsValid() {
		return false
	}
	return a.Bytes() == b.Bytes()
}

// String returns the canonical text. Any IPv4 address, including one
// written in v4-mapped form, renders as a dotted quad.
func (a Address) String() string {
	if !a.ip.IsValid() {
		return ""
	}
	if s, ok := extract4(a.Bytes()); ok {
		return s
	}
	return a.ip.String()
}

// extract4 returns the dotted quad embedded in a v4-mapped binary form.
func extract4(b [16]byte) (string, bool) {
	ip := netip.AddrFrom16(b)
	if !ip.Is4In6() {
		return "", false
	}
	return ip.Unmap().String(), true
}
