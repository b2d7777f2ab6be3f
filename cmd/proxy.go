package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/firewall"
	"github.com/firefly-engineering/netblocker/internal/logging"
	"github.com/firefly-engineering/netblocker/internal/proxy"
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run a forward proxy that enforces the rule table",
	Long: `Run an HTTP forward proxy whose upstream connections pass both gates.

Point HTTP_PROXY and HTTPS_PROXY at the listener to hold programs that
cannot be linked against netblocker to the same rules:
  - CONNECT tunnels are opened only to allowed destinations
  - Plain http:// requests are forwarded the same way
  - Denied requests are answered with 403 Forbidden

SIGHUP reloads the rules file. SIGINT or SIGTERM stops the proxy and
prints gate statistics.`,
	Args: cobra.NoArgs,
	RunE: runProxy,
}

var proxyListen string

func init() {
	proxyCmd.Flags().StringVar(&proxyListen, "listen", "", "Address to listen on (default from settings, 127.0.0.1:3128)")
	rootCmd.AddCommand(proxyCmd)
}

func runProxy(cmd *cobra.Command, args []string) error {
	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	listen := proxyListen
	if listen == "" {
		listen = a.Settings.Proxy.Listen
	}

	server, err := proxy.NewServer(&proxy.Config{
		ListenAddr: listen,
		Dialer:     a.Engine,
		Logger:     logging.Component("proxy"),
	})
	if err != nil {
		return err
	}
	if err := server.Listen(); err != nil {
		return err
	}

	// Handle SIGHUP for rule reload
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	a.Start(ctx)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		logging.Info("shutting down proxy server")
		shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		_ = server.Stop(shutdownCtx) // Best-effort shutdown
	}()

	logInfo("Starting egress proxy on %s", server.Addr())
	logInfo("Rules: %s (%d loaded)", a.RulesPath, a.Engine.Table().Len())
	if a.Settings.AuditLog != "" {
		logInfo("Audit log: %s", a.Settings.AuditLog)
	}

	err = server.Start()
	reportStats(a.Engine.Stats())
	return err
}

func reportStats(s firewall.StatsSnapshot) {
	logInfo("Lookups: %d (%d blocked)", s.Lookups, s.LookupsBlocked)
	logInfo("Connects: %d (%d blocked)", s.Connects, s.ConnectsBlocked)
	logInfo("Cache hits: %d, backfills: %d, reloads: %d", s.CacheHits, s.Backfills, s.Reloads)
}
