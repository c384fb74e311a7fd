// Package bridge runs lifecycle work (create, migrate, drop) to completion
// on a dedicated goroutine and blocks the caller until it is done.
//
// Once started, work runs to success or failure regardless of the caller's
// cancellation. Context values are still propagated.
package bridge

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Func is a unit of lifecycle work.
type Func func(ctx context.Context) error

// Run executes fn on its own goroutine and waits for it. The context handed
// to fn carries ctx's values but is never cancelled. A panic inside fn is
// recovered and returned as an error naming op.
func Run(ctx context.Context, op string, logger *zap.Logger, fn Func) error {
	if ctx == nil {
		ctx = context.Background()
	}
	workCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("%s panicked: %v", op, r)
			}
		}()
		return fn(workCtx)
	})

	start := time.Now()
	logger.Debug("Waiting for lifecycle operation", zap.String("op", op))
	err := g.Wait()
	if err != nil {
		logger.Debug("Lifecycle operation failed", zap.String("op", op), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return err
	}
	logger.Debug("Lifecycle operation finished", zap.String("op", op), zap.Duration("elapsed", time.Since(start)))
	return nil
}
