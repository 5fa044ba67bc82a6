package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// RunPool runs every worker on its own goroutine until ctx is cancelled and
// all of them have finished their in-flight message.
func RunPool(ctx context.Context, workers ...*Worker) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		g.Go(func() error { return w.Run(ctx) })
	}
	return g.Wait()
}
