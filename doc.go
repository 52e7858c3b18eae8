// Package assetload loads asset bundles asynchronously through a fetch and
// decode pipeline.
//
// A load resolves a logical path and a Mode to a storage location, fetches
// the raw bytes from the blob store serving that location and decodes them
// into an artifact (a *bundle.Bundle by default). Loads of the same
// physical path share one reference-counted LoadTask.
//
// # Quick Start
//
//	store, _ := blobstore.NewFSStore(assets, "bundles")
//	l, _ := assetload.New(
//	    assetload.WithDefaultLocation(assetload.LocationBundled),
//	    assetload.WithBackend(assetload.LocationBundled, store),
//	)
//	defer l.Close()
//
//	go l.Run(ctx)
//
//	h := l.Load(ctx, "ui/fonts.bundle", assetload.ModeDefault, func(ok bool, artifact any) {
//	    // runs once, on the driving goroutine
//	})
//	defer h.Release()
//
//	if err := h.Wait(ctx); err != nil { ... }
//	b, _ := h.Bundle()
//	data, _ := b.Open("arial.ttf")
//
// # Driving
//
// Tasks advance only when driven. Loader.Run ticks on an interval; callers
// with their own frame loop call Loader.Tick instead. Each tick moves every
// pending task by at most one state:
//
//	Pending -> Fetching -> Decoding -> Finished -> Disposed
//	                   \-> Finished (fetch failed)
//
// Backend reads and decoding run on a worker pool and complete
// independently of the tick rate. Synchronous modes read inline in Load.
//
// # Progress
//
// The fetch accounts for the first FetchProgressShare of progress and the
// decoder for the rest. Progress never decreases and is 1.0 once the task
// is Finished.
//
// # Release
//
// Every handle must be released. When the last holder of a task releases
// it, a finished task is disposed at once (closing its artifact) and a
// running one is cancelled at its next tick without running any completion
// callbacks.
package assetload
