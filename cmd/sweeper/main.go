// Command sweeper finds at-risk listings in the goods console and optionally
// removes them.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"ListingSweeper/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		logger.New("sweeper").LogFatal("Command failed", err)
	}
}
