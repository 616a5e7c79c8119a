// Command tfydeploy renders placeholder templates and applies them, in order,
// with the deployment CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(realMain())
}

func realMain() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, os.Args[1:], defaultDeps())
}
