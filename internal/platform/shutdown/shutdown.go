// Package shutdown translates process signals into context cancellation.
package shutdown

import (
	"context"
	"os/signal"
	"syscall"
)

// NotifyContext cancels the returned context on SIGINT or SIGTERM so both
// binaries drain in-flight work before exiting. Once the context ends the
// signal handler is removed, so a second signal kills the process outright.
func NotifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
