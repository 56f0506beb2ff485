// Command indexer runs the Sui checkpoint pipelines as a Temporal worker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Project-Magma-Monorepo/sui-sender-indexer/app/indexer"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer.Initialize(ctx).Start(ctx)
}
