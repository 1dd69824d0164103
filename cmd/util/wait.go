package util

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/seahorsehq/seahorse/pkg/operation"
	"github.com/spf13/cobra"
)

// Wait blocks until op finishes, printing progress to stderr. An
// interrupt cancels op and waits for it to wind down.
func Wait(cmd *cobra.Command, op operation.Operation) error {
	progress := func(o operation.Operation) {
		p := o.Progress()
		if p.Message == "" || o.IsDone() {
			return
		}
		if p.Total > 0 {
			cmd.PrintErrf("%s (%d/%d)\n", p.Message, p.Current, p.Total)
		} else {
			cmd.PrintErrln(p.Message)
		}
	}
	op.OnProgress(progress)
	progress(op)

	ctx, stop := signal.NotifyContext(Context(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := op.Wait(ctx); err != nil {
		if ctx.Err() == nil {
			return err
		}

		op.Cancel()
		<-op.Done()
	}

	if op.IsCancelled() {
		return fmt.Errorf("%s cancelled", op.Kind())
	}
	return op.CopyError()
}

// Context returns the command context, or a background context when
// the command runs outside Execute, as in tests.
func Context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
