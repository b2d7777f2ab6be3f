// Package rules parses the allow-list file and holds the active rule table.
//
// # File Format
//
// One rule per line, "#" starts a comment, tokens are whitespace separated:
//
//	<selector> [port]
//
// Selectors:
//
//	*                 every destination
//	*.example.com     any host ending in ".example.com" (not example.com itself)
//	api.github.com    that host, case-insensitively
//	192.0.2.10        that address (IPv4 or IPv6)
//	10.0.0.0/8        that network (IPv4 /1-32, IPv6 /1-128)
//
// The port is "*", absent, or 0-65535; both "*" and 0 mean any port.
//
// # Loading
//
// Parse never fails as a whole: each bad line is reported as a
// ConfigLineInvalid error and skipped. LoadFile returns an empty table with
// a ConfigUnavailable error when the file cannot be read, so a missing file
// denies everything.
//
// # Concurrency
//
// A Table is immutable. Store holds the active table behind a
// sync.RWMutex; View runs a scan under the read lock and Reload rebuilds and
// swaps under the write lock.
package rules
