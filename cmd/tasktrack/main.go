package main

import (
	"fmt"
	"os"

	"tasktrack/internal/config"
)

// version is overridden with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		return 1
	}
	if path := cfg.TrustedProjectConfigPath; path != "" {
		fmt.Fprintf(os.Stderr, "warning: using trusted project config from %s\n", path)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		for _, line := range formatCLIError(err) {
			fmt.Fprintln(os.Stderr, line)
		}
		return 1
	}
	return 0
}
