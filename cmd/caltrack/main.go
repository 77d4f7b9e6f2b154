package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"caltrack/internal/cli"
	appLog "caltrack/internal/log"
)

func main() {
	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
		// A second signal aborts without cleanup.
		<-sigCh
		os.Exit(130)
	}()

	err := cli.NewRootCommand().ExecuteContext(ctx)
	appLog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
