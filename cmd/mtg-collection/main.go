// Command mtg-collection tracks a physical Magic: The Gathering collection:
// where every copy is stored, and which storage locations to open to pull a
// deck together.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ramonehamilton/mtg-collection/internal/mutation"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(newApp(os.Stdin, os.Stdout, os.Stderr)).ExecuteContext(ctx)
	switch {
	case err == nil:
	case errors.Is(err, mutation.ErrDeclined):
		fmt.Fprintln(os.Stderr, "Cancelled.")
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
