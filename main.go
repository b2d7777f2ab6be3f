package main

import (
	"os"

	"github.com/firefly-engineering/netblocker/cmd"
	"github.com/firefly-engineering/netblocker/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(errors.GetExitCode(err))
	}
}
