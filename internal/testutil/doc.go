// Package testutil provides fakes and fixtures shared by package tests.
//
// # Fixtures
//
// Rule files are embedded using go:embed:
//
//	fixtures/egress.conf   a valid policy covering every selector kind
//	fixtures/invalid.conf  lines the parser must reject
//
// WriteRules writes rule lines (or a fixture) into a temp dir and returns
// the path, ready for an engine's rules path:
//
//	path := testutil.WriteRules(t, "*.example.com", "10.0.0.0/8")
//	path := testutil.WriteFixture(t, "egress.conf")
//
// # Fakes
//
// FakeResolver answers from a map and counts calls; FakeDialer records the
// addresses it was asked to dial and returns in-memory pipes:
//
//	res := testutil.NewFakeResolver(map[string][]string{
//	    "example.com": {"93.184.216.34"},
//	})
//	dialer := &testutil.FakeDialer{}
package testutil
