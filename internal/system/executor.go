package system

import (
	"context"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// osExecutor implements CommandExecutor using real OS operations.
type osExecutor struct{}

func (e *osExecutor) Run(ctx context.Context, c *Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	cmd.Env = MergeEnv(os.Environ(), c.Env...)
	cmd.Stdin = c.Stdin
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr
	// Let the child handle SIGINT itself; cancellation sends SIGTERM.
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	return cmd.Run()
}

// proxyVars are the variables HTTP clients consult for a forward proxy.
var proxyVars = []string{
	"HTTP_PROXY", "HTTPS_PROXY", "http_proxy", "https_proxy",
	"ALL_PROXY", "all_proxy", "NO_PROXY", "no_proxy",
}

// ProxyEnv returns assignments pointing every common proxy variable at
// proxyURL. NO_PROXY is cleared so loopback traffic is proxied too.
func ProxyEnv(proxyURL string) []string {
	env := make([]string, 0, len(proxyVars))
	for _, name := range proxyVars {
		value := proxyURL
		if strings.EqualFold(name, "NO_PROXY") {
			value = ""
		}
		env = append(env, name+"="+value)
	}
	return env
}

// MergeEnv overlays extra KEY=VALUE assignments onto base. A key set in
// extra replaces every occurrence in base.
func MergeEnv(base []string, extra ...string) []string {
	if len(extra) == 0 {
		return base
	}
	override := make(map[string]bool, len(extra))
	for _, kv := range extra {
		key, _, _ := strings.Cut(kv, "=")
		override[key] = true
	}
	merged := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		key, _, _ := strings.Cut(kv, "=")
		if !override[key] {
			merged = append(merged, kv)
		}
	}
	return append(merged, extra...)
}
