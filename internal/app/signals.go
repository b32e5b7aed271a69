package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"chatdev/internal/logging"
)

// ShutdownTimeout bounds how long Close may take after a signal before the
// process exits anyway.
const ShutdownTimeout = 5 * time.Second

// HandleSignals closes the app and cancels the returned context on SIGINT
// or SIGTERM. The returned stop func releases the handler.
func (a *App) HandleSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			logging.Debug("received signal", "signal", sig)

			forceExit := time.AfterFunc(ShutdownTimeout, func() {
				logging.Warn("forced shutdown due to timeout")
				os.Exit(1)
			})
			defer forceExit.Stop()

			cancel()
			a.Close()
		case <-done:
		case <-ctx.Done():
		}
	}()

	var once sync.Once
	return ctx, func() {
		once.Do(func() {
			signal.Stop(sigChan)
			close(done)
			cancel()
		})
	}
}
