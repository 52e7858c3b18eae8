// Package resource governs the shared budgets of the load pipeline.
//
// A Controller bounds three things:
//
//   - Memory: bytes held by fetched buffers that have not been handed to a
//     decoder yet (non-blocking, fail-fast).
//   - Fetch slots: the number of backend reads running at once.
//   - IO: a token bucket over bytes read from a backend.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:     256 << 20,
//	    MaxConcurrentFetches: 4,
//	    IOLimitBytesPerSec:   32 << 20,
//	})
//
//	if err := rc.AcquireFetch(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseFetch()
//
//	r := resource.NewRateLimitedReader(ctx, body, rc)
//
// All methods are safe for concurrent use, and all of them are no-ops on a
// nil *Controller so callers never need to branch on "limits configured".
package resource
