package cmd

import (
	"context"
	stderrors "errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	shellquote "github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/netblocker/internal/errors"
	"github.com/firefly-engineering/netblocker/internal/logging"
	"github.com/firefly-engineering/netblocker/internal/proxy"
	"github.com/firefly-engineering/netblocker/internal/system"
)

var execCmd = &cobra.Command{
	Use:   "exec [--] <command> [args...]",
	Short: "Run a command with its HTTP traffic held to the rule table",
	Long: `Run a command with HTTP_PROXY and HTTPS_PROXY pointing at an
in-process forward proxy on an ephemeral loopback port.

The proxy dials through both gates, so the child can reach only what the
rules allow. The child's exit status becomes netblocker's.

  netblocker exec -- curl -s https://api.example.com/
  netblocker exec --command 'git fetch origin'`,
	RunE: runExec,
}

var execCommandString string

func init() {
	execCmd.Flags().StringVarP(&execCommandString, "command", "c", "", "Command line to run, split with shell quoting rules")
	execCmd.Flags().SetInterspersed(false)
	rootCmd.AddCommand(execCmd)
}

func runExec(cmd *cobra.Command, args []string) error {
	argv := args
	if execCommandString != "" {
		if len(args) > 0 {
			return errors.ValidationError("use either --command or positional arguments, not both")
		}
		split, err := shellquote.Split(execCommandString)
		if err != nil {
			return errors.ValidationError("invalid --command: " + err.Error())
		}
		argv = split
	}
	if len(argv) == 0 {
		return errors.ValidationError("usage: netblocker exec [--] <command> [args...]")
	}

	a, err := loadApp()
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := proxy.NewServer(&proxy.Config{
		ListenAddr: "127.0.0.1:0",
		Dialer:     a.Engine,
		Logger:     logging.Component("proxy"),
	})
	if err != nil {
		return err
	}
	if err := server.Listen(); err != nil {
		return err
	}
	go server.Start()
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Stop(ctx)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer cancel()
	a.Start(ctx)

	proxyURL := "http://" + server.Addr().String()
	logging.Info("running gated command", "command", shellquote.Join(argv...), "proxy", proxyURL)

	err = a.Executor.Run(ctx, &system.Command{
		Name:   argv[0],
		Args:   argv[1:],
		Env:    system.ProxyEnv(proxyURL),
		Stdin:  os.Stdin,
		Stdout: cmd.OutOrStdout(),
		Stderr: cmd.ErrOrStderr(),
	})
	if err == nil {
		return nil
	}

	var coder system.ExitCoder
	if stderrors.As(err, &coder) {
		return errors.ChildFailed(coder.ExitCode(), err)
	}
	return errors.ChildFailed(0, err)
}
