package testutil

import (
	"embed"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

//go:embed fixtures/*.conf
var fixturesFS embed.FS

// LoadFixture loads a fixture file by name.
func LoadFixture(name string) ([]byte, error) {
	return fixturesFS.ReadFile("fixtures/" + name)
}

// WriteRules writes lines to a fresh rules file and returns its path.
func WriteRules(t *testing.T, lines ...string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rules.conf")
	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to write rules: %v", err)
	}
	return path
}

// WriteFixture copies a fixture into a temp dir and returns its path.
func WriteFixture(t *testing.T, name string) string {
	t.Helper()

	data, err := LoadFixture(name)
	if err != nil {
		t.Fatalf("Failed to load fixture %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

// Rewrite replaces the contents of an existing rules file.
func Rewrite(t *testing.T, path string, lines ...string) {
	t.Helper()

	data := strings.Join(lines, "\n")
	if len(lines) > 0 {
		data += "\n"
	}
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("Failed to rewrite rules: %v", err)
	}
}
