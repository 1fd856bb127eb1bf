// Package async runs bulk console operations concurrently.
//
// # Overview
//
// Batch runs one call per item through an errgroup with a concurrency limit. Every item gets
// its own timeout and error slot, and a panic is recovered into that slot:
//
//	errs := async.Batch(ctx, ids, 4, 10*time.Second, func(ctx context.Context, id api.ObjectID) error {
//		return client.Users.Delete(ctx, id)
//	})
//	if n := async.Failed(errs); n > 0 {
//		return fmt.Errorf("%d of %d deletes failed: %w", n, len(ids), async.Join(errs))
//	}
//
// Items are not retried. Once ctx is done the remaining items fail with its error.
//
// # Related Packages
//
//   - pkg/cli: Multi-id delete commands
package async
