package assetload

import (
	"context"
	"fmt"
	"io"
	"math"
	"sync"
	"time"
)

// FetchProgressShare is the fraction of overall progress attributed to the
// byte fetch. The decoder reports the remainder. It is a fixed split, not a
// measured cost.
const FetchProgressShare = 0.5

// Progress reaches 1.0 only when a task finishes.
var maxUnfinishedProgress = math.Nextafter(1, 0)

// State is the lifecycle state of a LoadTask.
type State int32

const (
	StatePending State = iota
	StateFetching
	StateDecoding
	StateFinished
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateFetching:
		return "fetching"
	case StateDecoding:
		return "decoding"
	case StateFinished:
		return "finished"
	case StateDisposed:
		return "disposed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Terminal reports whether no further work happens in s apart from disposal.
func (s State) Terminal() bool {
	return s == StateFinished || s == StateDisposed
}

// CompletionFunc receives the outcome of a load. It runs at most once per
// registration and never while the task is locked.
type CompletionFunc func(ok bool, artifact any)

type completion struct {
	fn     CompletionFunc
	active bool
}

type taskDeps struct {
	logger     *Logger
	metrics    MetricsCollector
	events     *EventBus
	newDecoder DecoderFactory
}

// LoadTask fetches and decodes one bundle. A task is shared by every
// handle that loaded the same physical path.
//
// Advance performs at most one state transition per call. Completion
// callbacks, events, metrics and disposal hooks all run after the task's
// lock is released.
type LoadTask struct {
	id           uint32
	logicalPath  string
	physicalPath string
	res          Resolution
	created      time.Time
	deps         taskDeps
	logger       *Logger

	mu               sync.Mutex
	state            State
	fetcher          ByteFetcher
	decoder          ArtifactDecoder
	decodeStart      time.Time
	progress         float64
	success          bool
	artifact         any
	err              error
	disposeRequested bool
	callbacks        []*completion
	hooks            []func(*LoadTask)
	done             chan struct{}
}

func newLoadTask(id uint32, logicalPath, physicalPath string, res Resolution, deps taskDeps) *LoadTask {
	return &LoadTask{
		id:           id,
		logicalPath:  logicalPath,
		physicalPath: physicalPath,
		res:          res,
		created:      time.Now(),
		deps:         deps,
		logger:       deps.logger.WithTask(id).WithPath(physicalPath),
		state:        StatePending,
		done:         make(chan struct{}),
	}
}

// start spawns the fetcher and enters StateFetching. It runs before the
// task is shared.
func (t *LoadTask) start(fetcher ByteFetcher) {
	t.mu.Lock()
	t.fetcher = fetcher
	t.state = StateFetching
	t.mu.Unlock()

	t.deps.events.publishStarted(LoadStartedEvent{Path: t.physicalPath, Mode: t.res.Mode})
}

// newFailedTask returns a task that is already Finished as a failure. It is
// used for loads that never resolve to a backend.
func newFailedTask(logicalPath string, err error, deps taskDeps) *LoadTask {
	t := newLoadTask(0, logicalPath, "", Resolution{}, deps)
	t.state = StateFinished
	t.progress = 1
	t.err = err
	close(t.done)
	return t
}

// ID returns the task id assigned by the loader.
func (t *LoadTask) ID() uint32 { return t.id }

// LogicalPath returns the path passed to the first load of this task.
func (t *LoadTask) LogicalPath() string { return t.logicalPath }

// PhysicalPath returns the registry key of the task.
func (t *LoadTask) PhysicalPath() string { return t.physicalPath }

// Resolution returns the resolved mode, location and backend.
func (t *LoadTask) Resolution() Resolution { return t.res }

// State returns the current state.
func (t *LoadTask) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Progress returns overall progress in [0,1]. It never decreases.
func (t *LoadTask) Progress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// Success reports whether the task finished with an artifact.
func (t *LoadTask) Success() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.success
}

// Artifact returns the decoded artifact, or nil.
func (t *LoadTask) Artifact() any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.artifact
}

// Err returns why the task has no artifact, or nil.
func (t *LoadTask) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Done is closed when the task reaches StateFinished or StateDisposed.
func (t *LoadTask) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task is terminal or ctx is done. Someone must be
// driving the task meanwhile.
func (t *LoadTask) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// onComplete registers fn. If the task already finished fn runs now; if it
// was disposed fn never runs.
func (t *LoadTask) onComplete(fn CompletionFunc) *completion {
	if fn == nil {
		return nil
	}

	c := &completion{fn: fn, active: true}

	t.mu.Lock()
	switch t.state {
	case StateFinished:
		c.active = false
		ok, artifact := t.success, t.artifact
		t.mu.Unlock()
		fn(ok, artifact)
		return c
	case StateDisposed:
		c.active = false
	default:
		t.callbacks = append(t.callbacks, c)
	}
	t.mu.Unlock()

	return c
}

// cancelCompletion withdraws a registration that has not fired yet.
func (t *LoadTask) cancelCompletion(c *completion) {
	if c == nil {
		return
	}
	t.mu.Lock()
	c.active = false
	t.mu.Unlock()
}

// onDisposed registers a hook that runs once the task reaches StateDisposed.
func (t *LoadTask) onDisposed(fn func(*LoadTask)) {
	t.mu.Lock()
	if t.state != StateDisposed {
		t.hooks = append(t.hooks, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	fn(t)
}

// requestDispose asks the task to dispose at its next Advance.
func (t *LoadTask) requestDispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StateDisposed {
		t.disposeRequested = true
	}
}

// revive withdraws a dispose request that has not been observed yet.
// It reports false if the task is already disposed.
func (t *LoadTask) revive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == StateDisposed {
		return false
	}
	t.disposeRequested = false
	return true
}

// Advance moves the task forward by at most one state transition.
func (t *LoadTask) Advance() {
	var after func()

	t.mu.Lock()
	switch t.state {
	case StateFetching:
		if t.disposeRequested {
			after = t.cancelLocked()
		} else {
			after = t.advanceFetchLocked()
		}
	case StateDecoding:
		if t.disposeRequested {
			after = t.cancelLocked()
		} else {
			after = t.advanceDecodeLocked()
		}
	case StateFinished:
		if t.disposeRequested {
			after = t.disposeFinishedLocked()
		}
	}
	t.mu.Unlock()

	if after != nil {
		after()
	}
}

func (t *LoadTask) advanceFetchLocked() func() {
	f := t.fetcher
	if !f.IsCompleted() {
		return nil
	}

	if !f.IsSuccess() {
		err := f.Err()
		if err == nil {
			err = &FetchError{Path: t.physicalPath, Location: t.res.Location, cause: ErrNotFound}
		}
		f.Release()
		t.fetcher = nil

		fire := t.finishLocked(false, nil, err)
		return func() {
			t.logger.LogFetch(context.Background(), t.physicalPath, 0, err)
			t.deps.events.publishFailed(LoadFailedEvent{Path: t.physicalPath, Err: err})
			fire()
		}
	}

	data := f.Bytes()
	f.Release()
	t.fetcher = nil
	t.progress = max(t.progress, FetchProgressShare)

	t.state = StateDecoding

	return func() {
		t.logger.LogFetch(context.Background(), t.physicalPath, len(data), nil)
		t.attachDecoder(t.deps.newDecoder(t.logicalPath, data))
	}
}

// attachDecoder installs d for a task that entered StateDecoding. The
// decoder is built without the task lock held; if the task was disposed
// meanwhile, d is disposed instead.
func (t *LoadTask) attachDecoder(d ArtifactDecoder) {
	t.mu.Lock()
	if t.state != StateDecoding || t.decoder != nil {
		t.mu.Unlock()
		d.Dispose(true)
		return
	}
	t.decoder = d
	t.decodeStart = time.Now()
	t.mu.Unlock()
}

func (t *LoadTask) advanceDecodeLocked() func() {
	d := t.decoder
	if d == nil {
		return nil
	}

	if !d.IsFinished() {
		dp := min(max(d.Progress(), 0), 1)
		p := FetchProgressShare + dp*(1-FetchProgressShare)
		t.progress = max(t.progress, min(p, maxUnfinishedProgress))
		return nil
	}

	artifact := d.Artifact()
	elapsed := time.Since(t.decodeStart)

	if artifact == nil {
		err := ErrNoArtifact
		if r, ok := d.(errorReporter); ok && r.Err() != nil {
			err = fmt.Errorf("%w: %w", ErrNoArtifact, r.Err())
		}

		fire := t.finishLocked(false, nil, err)
		return func() {
			t.deps.metrics.RecordDecode(elapsed, false)
			t.logger.LogDecode(context.Background(), t.physicalPath, false, err)
			fire()
		}
	}

	fire := t.finishLocked(true, artifact, nil)
	return func() {
		t.deps.metrics.RecordDecode(elapsed, true)
		t.logger.LogDecode(context.Background(), t.physicalPath, true, nil)
		fire()
	}
}

// finishLocked enters StateFinished and returns the deferred notifications.
func (t *LoadTask) finishLocked(ok bool, artifact any, err error) func() {
	t.state = StateFinished
	t.progress = 1
	t.success = ok
	t.artifact = artifact
	t.err = err
	close(t.done)

	callbacks := t.takeCallbacksLocked()
	elapsed := time.Since(t.created)

	return func() {
		t.deps.metrics.RecordLoad(t.res.Mode, elapsed, ok)
		for _, fn := range callbacks {
			fn(ok, artifact)
		}
	}
}

func (t *LoadTask) takeCallbacksLocked() []CompletionFunc {
	var fns []CompletionFunc
	for _, c := range t.callbacks {
		if c.active {
			c.active = false
			fns = append(fns, c.fn)
		}
	}
	t.callbacks = nil
	return fns
}

// cancelLocked disposes a task that has not finished. Pending completion
// callbacks are dropped.
func (t *LoadTask) cancelLocked() func() {
	from := t.state

	if t.fetcher != nil {
		t.fetcher.Release()
		t.fetcher = nil
	}
	decoder := t.decoder
	t.decoder = nil

	t.state = StateDisposed
	t.artifact = nil
	t.success = false
	t.err = ErrCancelled
	for _, c := range t.callbacks {
		c.active = false
	}
	t.callbacks = nil
	close(t.done)

	hooks := t.takeHooksLocked()

	return func() {
		if decoder != nil {
			decoder.Dispose(true)
		}
		t.deps.metrics.RecordCancel(from)
		t.logger.LogCancel(context.Background(), t.physicalPath, from)
		for _, fn := range hooks {
			fn(t)
		}
	}
}

func (t *LoadTask) disposeFinishedLocked() func() {
	decoder := t.decoder
	t.decoder = nil
	artifact := t.artifact
	t.artifact = nil
	t.state = StateDisposed

	hooks := t.takeHooksLocked()

	return func() {
		if decoder != nil {
			decoder.Dispose(false)
		}
		if c, ok := artifact.(io.Closer); ok {
			if err := c.Close(); err != nil {
				t.logger.WarnContext(context.Background(), "closing artifact failed", "error", err)
			}
		}
		for _, fn := range hooks {
			fn(t)
		}
	}
}

func (t *LoadTask) takeHooksLocked() []func(*LoadTask) {
	hooks := t.hooks
	t.hooks = nil
	return hooks
}
