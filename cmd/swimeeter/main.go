// Command swimeeter loads, audits and archives swim meets.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"swimeeter/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "swimeeter:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
