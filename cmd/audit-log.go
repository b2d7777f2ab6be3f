package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/audit"
	"github.com/firefly-engineering/netblocker/internal/errors"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log",
	Short: "Display recorded gate decisions",
	Long: `Display the decisions recorded in the audit log configured by
audit_log in the settings file, oldest first.`,
	Args: cobra.NoArgs,
	RunE: runAuditLog,
}

var (
	auditLogLimit int
	auditLogFile  string
)

func init() {
	auditLogCmd.Flags().IntVarP(&auditLogLimit, "limit", "n", 0, "Show only the last n events (0 = all)")
	auditLogCmd.Flags().StringVar(&auditLogFile, "file", "", "Audit log to read (default audit_log from settings)")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	path := auditLogFile
	if path == "" {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		path = s.AuditLog
	}
	if path == "" {
		return errors.ConfigError("no audit log configured (set audit_log or pass --file)", nil)
	}

	events, err := audit.ReadEvents(path)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events recorded in %s", path)
		return nil
	}
	if auditLogLimit > 0 && len(events) > auditLogLimit {
		events = events[len(events)-auditLogLimit:]
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if jsonOutput {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		verdict := "deny"
		if e.Allowed {
			verdict = "allow"
		}
		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		target := e.Target
		if e.Port != 0 {
			target = fmt.Sprintf("%s:%d", e.Target, e.Port)
		}
		if e.Reason != "" {
			fmt.Fprintf(out, "[%s] %-7s %-5s %s (%s)\n", ts, e.Gate, verdict, target, e.Reason)
		} else {
			fmt.Fprintf(out, "[%s] %-7s %-5s %s\n", ts, e.Gate, verdict, target)
		}
	}

	return nil
}
