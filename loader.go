package assetload

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/assetload/bundle"
	"github.com/hupe1980/assetload/internal/worker"
	"github.com/hupe1980/assetload/resource"
)

// Loader loads bundles by logical path. Loads of the same physical path
// share one task. Tasks only make progress while the loader is driven,
// either by Run or by calling Tick.
type Loader struct {
	opts     options
	registry *LoadRegistry
	driver   *Driver
	pool     *worker.Pool
	rc       *resource.Controller
	fetch    FetcherFactory
	deps     taskDeps

	nextID atomic.Uint32
	closed atomic.Bool
}

// New creates a Loader.
func New(optFns ...Option) (*Loader, error) {
	o := applyOptions(optFns)

	if _, ok := o.backends[LocationUnknown]; ok {
		return nil, &ConfigError{Setting: "backend location", Value: LocationUnknown.String()}
	}
	for loc, store := range o.backends {
		if store == nil {
			return nil, &ConfigError{Setting: "backend", Value: loc.String()}
		}
	}

	l := &Loader{
		opts:     o,
		registry: NewLoadRegistry(),
		driver:   NewDriver(),
		pool:     worker.NewPool(o.workers),
		rc:       o.resources,
	}
	if l.rc == nil {
		l.rc = resource.NewController(o.resourceConfig)
	}

	l.fetch = o.fetcherFactory
	if l.fetch == nil {
		l.fetch = newFetcherFactory(fetchEnv{
			stores:  o.backends,
			rc:      l.rc,
			pool:    l.pool,
			metrics: o.metricsCollector,
		})
	}

	newDecoder := o.decoderFactory
	if newDecoder == nil {
		newDecoder = BundleDecoderFactory(bundle.WithExecutor(l.pool), bundle.WithMemoryBudget(l.rc))
	}

	l.deps = taskDeps{
		logger:     o.logger,
		metrics:    o.metricsCollector,
		events:     o.events,
		newDecoder: newDecoder,
	}
	l.registry.onChange = o.metricsCollector.RecordActiveTasks

	return l, nil
}

// Load starts loading logicalPath, or joins the load already running for
// the same physical path. onComplete, if not nil, runs once with the
// outcome unless the handle is released first. The returned handle must be
// released.
//
// A configuration error does not fail the call: the handle is already
// finished as a failure and onComplete receives (false, nil).
func (l *Loader) Load(ctx context.Context, logicalPath string, mode Mode, onComplete CompletionFunc) *Handle {
	if l.closed.Load() {
		return l.failedHandle(ctx, logicalPath, ErrLoaderClosed, onComplete)
	}

	res, err := Resolve(mode, l.opts.defaultLocation)
	if err != nil {
		l.opts.logger.LogConfigError(ctx, logicalPath, mode, err)
		return l.failedHandle(ctx, logicalPath, err, onComplete)
	}

	key := PhysicalPath(res, logicalPath)
	name := cleanLogicalPath(logicalPath)

	task, created := l.registry.Acquire(key, func() *LoadTask {
		return newLoadTask(l.allocID(), logicalPath, key, res, l.deps)
	})
	if created {
		task.start(l.fetch(ctx, res, name))
		l.driver.Add(task)
	}

	h := &Handle{
		loader:      l,
		task:        task,
		logicalPath: logicalPath,
		registered:  true,
	}
	h.completion = task.onComplete(onComplete)
	return h
}

// allocID returns the next task id. Zero is never used, and after the
// counter wraps ids still pending in the driver are skipped.
func (l *Loader) allocID() uint32 {
	for {
		id := l.nextID.Add(1)
		if id != 0 && !l.driver.contains(id) {
			return id
		}
	}
}

func (l *Loader) failedHandle(ctx context.Context, logicalPath string, err error, onComplete CompletionFunc) *Handle {
	task := newFailedTask(logicalPath, err, l.deps)
	l.deps.events.publishFailed(LoadFailedEvent{Path: logicalPath, Err: err})

	h := &Handle{
		loader:      l,
		task:        task,
		logicalPath: logicalPath,
	}
	h.completion = task.onComplete(onComplete)
	return h
}

// Preload loads every path with mode and waits until all of them are
// terminal. The loader must be driven meanwhile. On failure the returned
// handles are still valid and must be released.
func (l *Loader) Preload(ctx context.Context, paths []string, mode Mode) ([]*Handle, error) {
	handles := make([]*Handle, len(paths))
	for i, p := range paths {
		handles[i] = l.Load(ctx, p, mode, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		g.Go(func() error {
			if err := h.Wait(gctx); err != nil {
				return fmt.Errorf("preload %s: %w", h.logicalPath, err)
			}
			return nil
		})
	}

	return handles, g.Wait()
}

// Tick advances every pending task once. See Driver.Tick.
func (l *Loader) Tick() int {
	return l.driver.Tick()
}

// Run drives the loader every tick interval until ctx is done.
func (l *Loader) Run(ctx context.Context) error {
	return l.driver.Run(ctx, l.opts.tickInterval)
}

// Driver returns the loader's driver.
func (l *Loader) Driver() *Driver {
	return l.driver
}

// Registry returns the loader's registry.
func (l *Loader) Registry() *LoadRegistry {
	return l.registry
}

// Resources returns the loader's resource controller.
func (l *Loader) Resources() *resource.Controller {
	return l.rc
}

// Close stops the worker pool. Loads started afterwards fail with
// ErrLoaderClosed; reads already queued still complete.
func (l *Loader) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	l.pool.Close()
	return nil
}

// Handle is one holder's view of a shared load.
type Handle struct {
	loader      *Loader
	task        *LoadTask
	logicalPath string
	completion  *completion
	registered  bool
	released    atomic.Bool
}

// LogicalPath returns the path passed to Load.
func (h *Handle) LogicalPath() string { return h.logicalPath }

// Task returns the underlying shared task.
func (h *Handle) Task() *LoadTask { return h.task }

// Progress returns overall progress in [0,1].
func (h *Handle) Progress() float64 { return h.task.Progress() }

// State returns the task state.
func (h *Handle) State() State { return h.task.State() }

// IsCompleted reports whether the load has ended.
func (h *Handle) IsCompleted() bool { return h.task.State().Terminal() }

// IsSuccess reports whether the load produced an artifact.
func (h *Handle) IsSuccess() bool { return h.task.Success() }

// Result returns the artifact, or nil.
func (h *Handle) Result() any { return h.task.Artifact() }

// Err returns why the load has no artifact, or nil.
func (h *Handle) Err() error { return h.task.Err() }

// Done is closed when the load has ended.
func (h *Handle) Done() <-chan struct{} { return h.task.Done() }

// Wait blocks until the load has ended or ctx is done and returns the
// load error, if any.
func (h *Handle) Wait(ctx context.Context) error { return h.task.Wait(ctx) }

// Bundle returns the artifact as a *bundle.Bundle, if it is one.
func (h *Handle) Bundle() (*bundle.Bundle, bool) {
	b, ok := h.Result().(*bundle.Bundle)
	return b, ok
}

// Release gives up this holder's reference. The task is disposed when the
// last holder releases it. Release is idempotent.
func (h *Handle) Release() {
	if !h.released.CompareAndSwap(false, true) {
		return
	}

	h.task.cancelCompletion(h.completion)

	if fn := h.loader.opts.releaseDiagnostic; fn != nil {
		fn(h.logicalPath)
	}

	if !h.registered {
		h.task.requestDispose()
		h.task.Advance()
		return
	}
	h.loader.registry.Release(h.task)
}

// IsCancelled reports whether err means the load was disposed before it finished.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
