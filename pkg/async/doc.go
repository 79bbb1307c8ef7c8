// Package async runs background tasks on a bounded worker pool.
//
// # Overview
//
// Work that must not hold up a request, such as delivering a waitlist
// promotion notification, is submitted to a WorkerPool. Each task runs with
// its own timeout and panic recovery; failures are logged and counted.
//
//	pool := async.NewWorkerPool(ctx, async.PoolConfig{
//		Name:    "promotion notifications",
//		Workers: 4,
//		Queue:   256,
//		Timeout: 10 * time.Second,
//	}, logger)
//	defer pool.Shutdown(shutdownCtx)
//
//	err := pool.Submit(func(ctx context.Context) error {
//		return notifier.NotifyPromotion(ctx, promotion)
//	})
//
// Submit never blocks: a full queue returns ErrQueueFull and the caller
// decides whether to drop or deliver inline.
//
// # Shutdown
//
// Shutdown stops accepting work, drains the queue and waits for running tasks
// until its context expires, then cancels whatever is still running.
package async
