package rules

import (
	"bufio"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/firefly-engineering/netblocker/internal/addr"
	"github.com/firefly-engineering/netblocker/internal/errors"
)

// Parse reads rules from r. Invalid lines are skipped and returned as
// ConfigLineInvalid errors; a read error stops parsing and is returned last.
func Parse(r io.Reader) (*Table, []error) {
	table := &Table{}
	var problems []error

	br := bufio.NewReader(r)
	lineNo := 0
	for {
		line, readErr := br.ReadString('\n')
		if line != "" {
			lineNo++
			rule, ok, err := ParseLine(lineNo, line)
			if err != nil {
				problems = append(problems, err)
			} else if ok {
				table.Rules = append(table.Rules, rule)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			problems = append(problems, readErr)
			break
		}
	}
	return table, problems
}

// ParseLine parses one line. ok is false for blank and comment-only lines.
func ParseLine(lineNo int, line string) (rule Rule, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Rule{}, false, nil
	}
	text := strings.Join(fields, " ")

	rule, err = parseSelector(fields[0])
	if err != nil {
		return Rule{}, false, errors.ConfigLineInvalid(lineNo, text, err.Error())
	}
	rule.Line = lineNo

	if len(fields) > 1 {
		port, err := parsePort(fields[1])
		if err != nil {
			return Rule{}, false, errors.ConfigLineInvalid(lineNo, text, err.Error())
		}
		rule.Port = port
	}
	return rule, true, nil
}

func parseSelector(tok string) (Rule, error) {
	switch {
	case tok == "*":
		return Rule{Kind: KindWildcard, Pattern: tok}, nil

	case strings.HasPrefix(tok, "*."):
		suffix := strings.ToLower(strings.TrimSuffix(tok[1:], "."))
		if len(suffix) < 2 {
			return Rule{}, errors.ValidationError("empty domain suffix")
		}
		return Rule{Kind: KindDomainSuffix, Pattern: tok, Suffix: suffix}, nil

	case strings.Contains(tok, "/"):
		ipText, bitsText, _ := strings.Cut(tok, "/")
		network, err := addr.Parse(ipText)
		if err != nil {
			return Rule{}, errors.ValidationError("invalid network address")
		}
		n, err := strconv.ParseUint(bitsText, 10, 8)
		if err != nil {
			return Rule{}, errors.ValidationError("invalid prefix length")
		}
		bits, ok := addr.PrefixBits(network, int(n))
		if !ok {
			return Rule{}, errors.ValidationError("invalid prefix length")
		}
		return Rule{Kind: KindCIDR, Pattern: tok, Addr: network, Bits: bits}, nil
	}

	if a, err := addr.Parse(tok); err == nil {
		return Rule{Kind: KindIP, Pattern: tok, Addr: a}, nil
	}
	return Rule{Kind: KindHost, Pattern: tok, Host: normalizeHost(tok)}, nil
}

func parsePort(tok string) (uint16, error) {
	if tok == "*" {
		return 0, nil
	}
	n, err := strconv.ParseUint(tok, 10, 16)
	if err != nil {
		return 0, errors.ValidationError("invalid port")
	}
	return uint16(n), nil
}

// LoadFile parses the rules file at path. Skipped lines are logged and
// returned. When the file cannot be opened the table is empty and err is a
// ConfigUnavailable error.
func LoadFile(path string, logger *slog.Logger) (*Table, []error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := os.Open(path)
	if err != nil {
		logger.Warn("rules unavailable, denying all traffic", "path", path, "error", err)
		return &Table{}, nil, errors.ConfigUnavailable(path, err)
	}
	defer f.Close()

	table, problems := Parse(f)
	for _, p := range problems {
		logger.Warn("skipping rule line", "path", path, "error", p)
	}
	logger.Debug("rules loaded", "path", path, "rules", len(table.Rules), "skipped", len(problems))
	return table, problems, nil
}
