package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gobwas/glob"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/logging"
	"github.com/firefly-engineering/netblocker/internal/network"
	"github.com/firefly-engineering/netblocker/internal/rules"
	"github.com/firefly-engineering/netblocker/internal/tui"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the loaded rule table",
	Long: `List the rules the loader accepts from the configured rules file.

--match filters by selector with a glob pattern, where '*' spans dots:
  netblocker rules --match '*.example.com'
  netblocker rules --match '10.*'

--resolve looks up the base domain of every domain-suffix rule and shows
the addresses the connection gate would backfill for it.`,
	Args: cobra.NoArgs,
	RunE: runRules,
}

var (
	rulesMatch       string
	rulesInteractive bool
	rulesResolve     bool
)

func init() {
	rulesCmd.Flags().StringVar(&rulesMatch, "match", "", "Only show rules whose selector matches this glob")
	rulesCmd.Flags().BoolVarP(&rulesInteractive, "interactive", "i", false, "Browse the rules interactively")
	rulesCmd.Flags().BoolVar(&rulesResolve, "resolve", false, "Resolve domain-suffix base domains to show backfilled addresses")
	rootCmd.AddCommand(rulesCmd)
}

// filterRules keeps the rules whose selector matches pattern. An empty
// pattern keeps everything.
func filterRules(rs []rules.Rule, pattern string) ([]rules.Rule, error) {
	if pattern == "" {
		return rs, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.ValidationError(fmt.Sprintf("invalid --match pattern %q: %v", pattern, err))
	}
	var out []rules.Rule
	for _, r := range rs {
		if g.Match(r.Pattern) {
			out = append(out, r)
		}
	}
	return out, nil
}

// baseDomains returns the distinct base domains of the suffix rules in rs.
func baseDomains(rs []rules.Rule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range rs {
		if r.Kind != rules.KindDomainSuffix || seen[r.BaseDomain()] {
			continue
		}
		seen[r.BaseDomain()] = true
		out = append(out, r.BaseDomain())
	}
	return out
}

// resolveBackfill resolves the base domains with the resolver the engine
// would use for backfill, keyed by domain.
func resolveBackfill(ctx context.Context, rs []rules.Rule) (map[string]network.ResolvedHost, error) {
	a, err := loadApp()
	if err != nil {
		return nil, err
	}
	defer a.Close()

	out := make(map[string]network.ResolvedHost)
	for _, h := range network.ResolveHosts(ctx, a.Engine.Resolver(), baseDomains(rs)) {
		if h.Err != nil {
			logging.Debug("backfill lookup failed", "domain", h.Hostname, "error", h.Err)
		}
		out[h.Hostname] = h
	}
	return out, nil
}

func runRules(cmd *cobra.Command, args []string) error {
	s, err := loadSettings()
	if err != nil {
		return err
	}
	path, err := resolveRulesPath(s)
	if err != nil {
		return err
	}

	table, _, err := rules.LoadFile(path, logging.Logger)
	if err != nil {
		return err
	}

	matched, err := filterRules(table.Rules, rulesMatch)
	if err != nil {
		return err
	}

	var backfill map[string]network.ResolvedHost
	if rulesResolve {
		if backfill, err = resolveBackfill(cmd.Context(), matched); err != nil {
			return err
		}
	}

	if rulesInteractive {
		result, err := tui.RunBrowser(&rules.Table{Rules: matched, Generation: table.Generation})
		if err != nil {
			return fmt.Errorf("rule browser: %w", err)
		}
		if result.Action == tui.ActionSelect && result.Rule != nil {
			fmt.Fprint(cmd.OutOrStdout(), tui.RenderDetail(*result.Rule))
		}
		return nil
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, r := range matched {
			rec := ruleRecord{
				Line:     r.Line,
				Kind:     r.Kind.String(),
				Selector: r.Pattern,
				Port:     r.PortString(),
			}
			if h, ok := backfill[r.BaseDomain()]; ok && r.Kind == rules.KindDomainSuffix {
				rec.Backfill = h.IPs
			}
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
		return nil
	}

	fmt.Fprint(cmd.OutOrStdout(), tui.RenderRules(matched))
	if rulesResolve {
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderBackfill(baseDomains(matched), backfill))
	}
	return nil
}

type ruleRecord struct {
	Line     int      `json:"line"`
	Kind     string   `json:"kind"`
	Selector string   `json:"selector"`
	Port     string   `json:"port"`
	Backfill []string `json:"backfill,omitempty"`
}
