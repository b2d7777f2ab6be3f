package cmd

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/firewall"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Ask a gate for a decision",
}

var checkHostCmd = &cobra.Command{
	Use:   "host <name> [port]",
	Short: "Evaluate the resolution gate for a hostname",
	Long: `Evaluate the resolution gate for a hostname without resolving it.

Omitting the port asks whether the name may be resolved at all; only
rules without a port restriction, or with the given port, apply.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCheckHost,
}

var checkAddrCmd = &cobra.Command{
	Use:   "addr <ip> <port>",
	Short: "Evaluate the connection gate for an address",
	Long: `Evaluate the connection gate for an address and port.

Address and CIDR rules are consulted first. Domain suffix rules are then
tried by resolving their base domain, so this may issue DNS queries.`,
	Args: cobra.ExactArgs(2),
	RunE: runCheckAddr,
}

func init() {
	checkCmd.AddCommand(checkHostCmd, checkAddrCmd)
	rootCmd.AddCommand(checkCmd)
}

func parsePortArg(s string) (uint16, error) {
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, errors.ValidationError("invalid port: " + s)
	}
	return uint16(n), nil
}

func runCheckHost(cmd *cobra.Command, args []string) error {
	host := args[0]
	var port uint16
	if len(args) == 2 {
		p, err := parsePortArg(args[1])
		if err != nil {
			return err
		}
		port = p
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.Engine.CheckHost(host, port)
	report(d, host, port)
	if !d.Allowed {
		return errors.ResolutionBlocked(host, port)
	}
	return nil
}

func runCheckAddr(cmd *cobra.Command, args []string) error {
	port, err := parsePortArg(args[1])
	if err != nil {
		return err
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	d := a.Engine.CheckAddr(context.Background(), args[0], port)
	report(d, args[0], port)
	if !d.Allowed {
		return errors.ConnectionBlocked(args[0], port)
	}
	return nil
}

func report(d firewall.Decision, target string, port uint16) {
	where := target
	if port != 0 {
		where = target + " port " + strconv.Itoa(int(port))
	}
	if d.Allowed {
		logSuccess("allowed: %s: %s", where, d.Reason)
		return
	}
	logError("denied: %s: %s", where, d.Reason)
}
