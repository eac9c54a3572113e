// Command revsplit drives a local revenue-sharing factory whose state lives
// in a bbolt database under the data directory.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "revsplit:", err)
		stop()
		os.Exit(1)
	}
}
