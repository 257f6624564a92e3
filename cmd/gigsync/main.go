// Package main is the gigsync command: it scrapes a venue's concert listing,
// extracts dates and venues with a language model and keeps a spreadsheet in sync.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"gigsync/cmd/gigsync/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.ExecuteContext(ctx)
}
