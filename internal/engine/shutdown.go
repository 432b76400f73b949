package engine

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Shutdown cancels every loop, closes components in dependency order, and
// waits for all goroutines to exit.
func (e *Engine) Shutdown() error {
	e.logger.Info("engine-shutting-down")

	e.healthChecker.SetReady(false)
	e.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := e.httpServer.Shutdown(ctx); err != nil {
		e.logger.Error("http-server-shutdown-error", zap.Error(err))
	}

	if e.storage != nil {
		if err := e.storage.Close(); err != nil {
			e.logger.Error("storage-close-error", zap.Error(err))
		}
	}

	e.wg.Wait()

	e.logger.Info("engine-shutdown-complete")
	return nil
}
