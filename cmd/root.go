package cmd

import (
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/logging"
)

var (
	verbose      bool
	jsonOutput   bool
	settingsPath string
	rulesPath    string
)

var rootCmd = &cobra.Command{
	Use:   "netblocker",
	Short: "Process-local network egress firewall",
	Long: `netblocker enforces an allow-list of egress destinations.

Every name resolution and outbound connection is checked against a
rule table. Anything the table does not allow is denied:
  - Hostname rules gate name resolution
  - Address and CIDR rules gate connections
  - Domain suffix rules also authorize their base domain's addresses
  - SIGHUP reloads the table`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, cmd.ErrOrStderr())
		logging.SetUserOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs and records in JSON format")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default $NETBLOCKER_SETTINGS or /etc/netblocker/netblocker.toml)")
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Rules file (default $NETBLOCKER_CONF or rules_file from settings)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
