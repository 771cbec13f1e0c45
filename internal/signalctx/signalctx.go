// Package signalctx provides a context that cancels on SIGINT/SIGTERM, so a
// running build can be interrupted without leaving partial atomic writes
// behind (internal/atomicfs already guarantees the latter; this just gives
// the driver a context to observe).
package signalctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// Interruptible returns a context canceled on the process's first SIGINT or
// SIGTERM. A second signal bypasses it entirely, so a hung build can still
// be killed outright.
func Interruptible() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		signal.Stop(sig)
		cancel()
	}()
	return ctx, cancel
}
