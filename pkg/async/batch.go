package async

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ozxin/nx-admin/pkg/observability"
)

// DefaultLimit is the number of calls Batch runs at once when limit is not positive
const DefaultLimit = 4

// Batch runs fn for every item with at most limit calls in flight and a per call timeout.
// A failing item does not stop the others. The result holds one error slot per item, nil on
// success; a panic in fn is reported as that item's error.
func Batch[T any](ctx context.Context, items []T, limit int, timeout time.Duration,
	fn func(context.Context, T) error) []error {

	if limit <= 0 {
		limit = DefaultLimit
	}
	logger := observability.FromContext(ctx)

	errs := make([]error, len(items))
	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			errs[i] = run(ctx, timeout, logger, func(ctx context.Context) error {
				return fn(ctx, item)
			})
			return nil
		})
	}
	_ = g.Wait()
	return errs
}

// Join combines the non-nil errors of a Batch result
func Join(errs []error) error {
	return errors.Join(errs...)
}

// Failed counts the non-nil errors of a Batch result
func Failed(errs []error) int {
	n := 0
	for _, err := range errs {
		if err != nil {
			n++
		}
	}
	return n
}

func run(parent context.Context, timeout time.Duration, logger *observability.Logger, fn func(context.Context) error) (err error) {
	ctx := parent
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			logger.WithField("stack", string(debug.Stack())).Error(fmt.Sprintf("panic in batch task: %v", r))
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}
