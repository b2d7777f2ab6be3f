package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
)

func TestLoadFixture(t *testing.T) {
	for _, name := range []string{"egress.conf", "invalid.conf"} {
		data, err := LoadFixture(name)
		if err != nil {
			t.Fatalf("LoadFixture(%s) error: %v", name, err)
		}
		if !strings.HasPrefix(string(data), "#") {
			t.Errorf("%s should start with a comment", name)
		}
	}

	if _, err := LoadFixture("nonexistent.conf"); err == nil {
		t.Error("expected error for missing fixture")
	}
}

func TestWriteRules(t *testing.T) {
	path := WriteRules(t, "*", "10.0.0.0/8 22")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "*\n10.0.0.0/8 22\n" {
		t.Errorf("rules file = %q", data)
	}

	Rewrite(t, path)
	data, _ = os.ReadFile(path)
	if len(data) != 0 {
		t.Errorf("Rewrite with no lines should empty the file, got %q", data)
	}
}

func TestFakeResolver(t *testing.T) {
	r := NewFakeResolver(map[string][]string{"Example.com": {"192.0.2.1"}})

	got, err := r.Resolve(context.Background(), "example.COM", "443")
	if err != nil || len(got) != 1 || got[0].String() != "192.0.2.1:443" {
		t.Fatalf("Resolve = %v, %v", got, err)
	}
	if _, err := r.Resolve(context.Background(), "missing.test", ""); err == nil {
		t.Error("unknown host should fail")
	}
	if r.Calls("example.com") != 1 || r.TotalCalls() != 2 {
		t.Errorf("calls = %d / %d", r.Calls("example.com"), r.TotalCalls())
	}
}

func TestFakeDialer(t *testing.T) {
	d := &FakeDialer{}
	conn, err := d.DialContext(context.Background(), "tcp", "192.0.2.1:443")
	if err != nil {
		t.Fatal(err)
	}
	conn.Close()

	if dials := d.Dials(); len(dials) != 1 || dials[0] != "192.0.2.1:443" {
		t.Errorf("Dials() = %v", dials)
	}
}
