package rules

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/firefly-engineering/netblocker/internal/addr"
	"github.com/firefly-engineering/netblocker/internal/errors"
)

const sampleRules = `# egress policy
*.example.com             # any subdomain
api.GitHub.com 443
192.0.2.10
2001:db8::/32 *
10.0.0.0/8    22

10.0.0.0/200
bogus.host 70000
`

func TestParse_Sample(t *testing.T) {
	table, problems := Parse(strings.NewReader(sampleRules))

	if len(problems) != 2 {
		t.Fatalf("got %d problems, want 2: %v", len(problems), problems)
	}
	for _, p := range problems {
		if errors.GetExitCode(p) != errors.ExitConfigError {
			t.Errorf("problem %v is not a ConfigLineInvalid error", p)
		}
	}
	if !strings.Contains(problems[0].Error(), "line 8") || !strings.Contains(problems[1].Error(), "line 9") {
		t.Errorf("problems carry wrong line numbers: %v", problems)
	}

	want := []struct {
		kind Kind
		port uint16
		line int
	}{
		{KindDomainSuffix, 0, 2},
		{KindHost, 443, 3},
		{KindIP, 0, 4},
		{KindCIDR, 0, 5},
		{KindCIDR, 22, 6},
	}
	if table.Len() != len(want) {
		t.Fatalf("got %d rules, want %d", table.Len(), len(want))
	}
	for i, w := range want {
		r := table.Rules[i]
		if r.Kind != w.kind || r.Port != w.port || r.Line != w.line {
			t.Errorf("rule %d = {%v %d line %d}, want {%v %d line %d}", i, r.Kind, r.Port, r.Line, w.kind, w.port, w.line)
		}
	}

	if table.Rules[0].Suffix != ".example.com" {
		t.Errorf("suffix = %q, want .example.com", table.Rules[0].Suffix)
	}
	if table.Rules[1].Host != "api.github.com" {
		t.Errorf("host = %q, want lower-cased", table.Rules[1].Host)
	}
	if table.Rules[4].Bits != 104 {
		t.Errorf("10.0.0.0/8 stored with %d bits, want 104", table.Rules[4].Bits)
	}
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		kind    Kind
		port    uint16
		skip    bool
		wantErr bool
	}{
		{name: "wildcard", line: "*", kind: KindWildcard},
		{name: "wildcard with port", line: "* 443", kind: KindWildcard, port: 443},
		{name: "star port", line: "example.com *", kind: KindHost},
		{name: "zero port is any", line: "example.com 0", kind: KindHost},
		{name: "max port", line: "example.com 65535", kind: KindHost, port: 65535},
		{name: "suffix", line: "*.Example.COM.", kind: KindDomainSuffix},
		{name: "ipv6 literal", line: "::1 8080", kind: KindIP, port: 8080},
		{name: "mapped literal", line: "::ffff:1.2.3.4", kind: KindIP},
		{name: "ipv6 cidr", line: "fd00::/8", kind: KindCIDR},
		{name: "extra tokens ignored", line: "example.com 80 trailing junk", kind: KindHost, port: 80},
		{name: "tabs", line: "\texample.com\t\t443\r\n", kind: KindHost, port: 443},
		{name: "blank", line: "   \n", skip: true},
		{name: "comment", line: "  # just a note", skip: true},
		{name: "port out of range", line: "example.com 65536", wantErr: true},
		{name: "negative port", line: "example.com -1", wantErr: true},
		{name: "port not numeric", line: "example.com https", wantErr: true},
		{name: "empty suffix", line: "*.", wantErr: true},
		{name: "cidr zero", line: "10.0.0.0/0", wantErr: true},
		{name: "cidr v4 too long", line: "10.0.0.0/33", wantErr: true},
		{name: "cidr v6 too long", line: "::/129", wantErr: true},
		{name: "cidr bad address", line: "example.com/8", wantErr: true},
		{name: "cidr bad bits", line: "10.0.0.0/x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok, err := ParseLine(7, tt.line)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseLine(%q) = %+v, want error", tt.line, rule)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLine(%q) error: %v", tt.line, err)
			}
			if ok == tt.skip {
				t.Fatalf("ParseLine(%q) ok = %v, want %v", tt.line, ok, !tt.skip)
			}
			if tt.skip {
				return
			}
			if rule.Kind != tt.kind || rule.Port != tt.port || rule.Line != 7 {
				t.Errorf("ParseLine(%q) = {%v %d line %d}, want {%v %d line 7}", tt.line, rule.Kind, rule.Port, rule.Line, tt.kind, tt.port)
			}
		})
	}
}

func TestMatchHost(t *testing.T) {
	table, _ := Parse(strings.NewReader("*.example.com\nAPI.github.com 443\n* 8080\n10.0.0.0/8\n192.0.2.1\n"))

	tests := []struct {
		host string
		port uint16
		want bool
	}{
		{"api.example.com", 0, true},
		{"deep.api.EXAMPLE.com", 80, true},
		{"api.example.com.", 0, true},
		{"example.com", 0, false},
		{"notexample.com", 0, false},
		{"api.github.com", 443, true},
		{"api.github.com", 0, true},
		{"api.github.com", 80, false},
		{"other.org", 8080, false},
		{"10.1.2.3", 0, false},
		{"192.0.2.1", 0, false},
	}

	for _, tt := range tests {
		_, got := table.MatchHost(tt.host, tt.port)
		if got != tt.want {
			t.Errorf("MatchHost(%q, %d) = %v, want %v", tt.host, tt.port, got, tt.want)
		}
	}
}

func TestMatchAddr(t *testing.T) {
	table, _ := Parse(strings.NewReader("api.github.com\n*.example.com\n10.0.0.0/8\n192.0.2.10 443\n2001:db8::/32\n"))

	tests := []struct {
		ip   string
		port uint16
		want bool
		line int
	}{
		{"10.1.2.3", 80, true, 3},
		{"11.1.2.3", 80, false, 0},
		{"::ffff:10.9.9.9", 80, true, 3},
		{"192.0.2.10", 443, true, 4},
		{"192.0.2.10", 80, false, 0},
		{"2001:db8:1::5", 22, true, 5},
		{"2001:db9::5", 22, false, 0},
	}

	for _, tt := range tests {
		r, got := table.MatchAddr(addr.MustParse(tt.ip), tt.port)
		if got != tt.want {
			t.Errorf("MatchAddr(%s, %d) = %v, want %v", tt.ip, tt.port, got, tt.want)
			continue
		}
		if got && r.Line != tt.line {
			t.Errorf("MatchAddr(%s, %d) matched line %d, want %d", tt.ip, tt.port, r.Line, tt.line)
		}
	}
}

func TestMatchAddr_WildcardPort(t *testing.T) {
	table, _ := Parse(strings.NewReader("* 443\n"))

	if _, ok := table.MatchAddr(addr.MustParse("203.0.113.9"), 443); !ok {
		t.Error("port-restricted wildcard should allow its port")
	}
	if _, ok := table.MatchAddr(addr.MustParse("203.0.113.9"), 80); ok {
		t.Error("port-restricted wildcard should deny other ports")
	}
	if _, ok := table.MatchHost("anything.test", 443); ok {
		t.Error("port-restricted wildcard never matches hostnames")
	}
}

func TestPortSemantics(t *testing.T) {
	r, _, err := ParseLine(1, "example.com 443")
	if err != nil {
		t.Fatal(err)
	}

	if !r.AllowsLookupPort(443) || !r.AllowsLookupPort(0) || r.AllowsLookupPort(80) {
		t.Error("port 443 rule should allow 443 and any-port requests only")
	}
	if !r.AllowsPort(443) || r.AllowsPort(80) {
		t.Error("port 443 rule should allow only port 443 connections")
	}
}

func TestSuffixRules(t *testing.T) {
	table, _ := Parse(strings.NewReader("*.a.test 443\n*.b.test\n*\n*.c.test 80\n"))

	got := table.SuffixRules(443)
	if len(got) != 2 || got[0].BaseDomain() != "a.test" || got[1].BaseDomain() != "b.test" {
		t.Errorf("SuffixRules(443) = %+v", got)
	}
}

func TestRuleString(t *testing.T) {
	for _, line := range []string{"*", "*.example.com 443", "10.0.0.0/8", "api.github.com 22"} {
		r, _, err := ParseLine(1, line)
		if err != nil {
			t.Fatal(err)
		}
		if r.String() != line {
			t.Errorf("String() = %q, want %q", r.String(), line)
		}
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.conf")
	if err := os.WriteFile(path, []byte(sampleRules), 0644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	table, problems, err := LoadFile(path, logger)
	if err != nil {
		t.Fatalf("LoadFile error: %v", err)
	}
	if table.Len() != 5 || len(problems) != 2 {
		t.Errorf("got %d rules and %d problems, want 5 and 2", table.Len(), len(problems))
	}
	if strings.Count(buf.String(), "skipping rule line") != 2 {
		t.Errorf("expected two skip warnings, got: %s", buf.String())
	}
}

func TestLoadFile_Missing(t *testing.T) {
	table, _, err := LoadFile(filepath.Join(t.TempDir(), "missing.conf"), slog.New(slog.DiscardHandler))

	if errors.GetExitCode(err) != errors.ExitConfigUnavailable {
		t.Fatalf("err = %v, want ConfigUnavailable", err)
	}
	if table == nil || table.Len() != 0 {
		t.Fatalf("missing file should yield an empty table, got %+v", table)
	}
	if _, ok := table.MatchHost("example.com", 0); ok {
		t.Error("empty table must deny")
	}
}

func TestStore_Reload(t *testing.T) {
	store := NewStore()
	if store.Current().Len() != 0 {
		t.Fatal("new store should start empty")
	}

	var swapped uint64
	installed := store.Reload(func() *Table {
		table, _ := Parse(strings.NewReader("*\n"))
		return table
	}, func(t *Table) { swapped = t.Generation })

	if installed.Generation != 1 || swapped != 1 {
		t.Errorf("generation = %d, onSwap saw %d, want 1", installed.Generation, swapped)
	}
	if store.Current() != installed {
		t.Error("Current should return the installed table")
	}

	second := store.Reload(func() *Table { return nil }, nil)
	if second.Len() != 0 || second.Generation != 2 {
		t.Errorf("nil load should install an empty table at generation 2, got %+v", second)
	}
}

func TestStore_ConcurrentViews(t *testing.T) {
	store := NewStore()
	full, _ := Parse(strings.NewReader("*\n*.example.com\n10.0.0.0/8\n"))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				store.View(func(tbl *Table) {
					if n := tbl.Len(); n != 0 && n != 3 {
						t.Errorf("observed a partial table with %d rules", n)
					}
				})
			}
		}()
	}
	for i := 0; i < 50; i++ {
		store.Reload(func() *Table {
			if i%2 == 0 {
				return &Table{Rules: append([]Rule(nil), full.Rules...)}
			}
			return &Table{}
		}, nil)
	}
	wg.Wait()
}

func TestMatchLiteral(t *testing.T) {
	table, _ := Parse(strings.NewReader("192.0.2.10 443\n10.0.0.0/8\n* 443\n"))

	tests := []struct {
		name string
		ip   string
		port uint16
		want bool
	}{
		{"ip rule without a request port", "192.0.2.10", 0, true},
		{"ip rule on its port", "192.0.2.10", 443, true},
		{"ip rule on another port", "192.0.2.10", 80, false},
		{"ip rule by mapped form", "::ffff:192.0.2.10", 443, true},
		{"cidr never matches", "10.3.3.3", 80, false},
		{"cidr never matches without a port", "10.3.3.3", 0, false},
		{"port-restricted wildcard", "1.2.3.4", 0, false},
		{"port-restricted wildcard on its port", "1.2.3.4", 443, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, ok := table.MatchLiteral(addr.MustParse(tt.ip), tt.port); ok != tt.want {
				t.Errorf("MatchLiteral(%s, %d) = %v, want %v", tt.ip, tt.port, ok, tt.want)
			}
		})
	}

	anyDest, _ := Parse(strings.NewReader("*\n"))
	if _, ok := anyDest.MatchLiteral(addr.MustParse("1.2.3.4"), 80); !ok {
		t.Error("a wildcard without a port should match any literal")
	}
}
