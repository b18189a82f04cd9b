package services

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one task in SettleAll
type Result[T any] struct {
	Value T
	Err   error
}

// SettleAll runs every task concurrently and waits for all of them.
// Results are returned in task order; one task failing or panicking never
// cancels or hides the others. limit <= 0 means unbounded.
func SettleAll[T any](ctx context.Context, limit int, tasks []func(context.Context) (T, error)) []Result[T] {
	results := make([]Result[T], len(tasks))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if p := recover(); p != nil {
					results[i] = Result[T]{Err: fmt.Errorf("panic: %v", p)}
				}
			}()

			if err := ctx.Err(); err != nil {
				results[i] = Result[T]{Err: err}
				return nil
			}
			v, err := task(ctx)
			results[i] = Result[T]{Value: v, Err: err}
			return nil // never fail the group; errors are reported per task
		})
	}

	_ = g.Wait()
	return results
}
