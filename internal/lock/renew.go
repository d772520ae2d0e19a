package lock

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// keepAlive calls extend every interval until stop is called or extend reports
// the lock as lost. Transient errors are logged and retried on the next tick.
func keepAlive(log *zap.Logger, key string, interval time.Duration, extend func(ctx context.Context) (bool, error)) (stop func()) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			callCtx, callCancel := context.WithTimeout(ctx, interval)
			held, err := extend(callCtx)
			callCancel()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.Warn("lock renewal failed", zap.String("key", key), zap.Error(err))
				continue
			}
			if !held {
				log.Warn("lock lost before release", zap.String("key", key))
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}
