package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a rules file and report every invalid line",
	Long: `Parse a rules file and report every line the loader would skip.

Without an argument the configured rules file is checked. Exits 2 when
any line is invalid and 3 when the file cannot be read.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	var path string
	if len(args) == 1 {
		path = args[0]
	} else {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		if path, err = resolveRulesPath(s); err != nil {
			return err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return errors.ConfigUnavailable(path, err)
	}
	defer f.Close()

	table, problems := rules.Parse(f)
	for _, p := range problems {
		logWarning("%s: %v", path, p)
	}

	counts := table.Counts()
	logInfo("%s: %d rules (%d wildcard, %d domain-suffix, %d host, %d ip, %d cidr)",
		path, table.Len(),
		counts[rules.KindWildcard], counts[rules.KindDomainSuffix], counts[rules.KindHost],
		counts[rules.KindIP], counts[rules.KindCIDR])

	if len(problems) > 0 {
		return errors.ConfigError(fmt.Sprintf("%d invalid lines in %s", len(problems), path), nil)
	}
	logSuccess("%s is valid", path)
	return nil
}
