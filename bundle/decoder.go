package bundle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

// ErrDecodeCancelled is reported by Err when Dispose(true) stopped decoding.
var ErrDecodeCancelled = errors.New("bundle: decode cancelled")

// Executor runs decode work. *worker.Pool satisfies it.
type Executor interface {
	Submit(ctx context.Context, task func()) error
}

// MemoryBudget is charged with the raw size of a bundle before its entries
// are decoded. *resource.Controller satisfies it.
type MemoryBudget interface {
	AcquireMemory(bytes int64) error
	ReleaseMemory(bytes int64)
}

type decoderOptions struct {
	executor Executor
	budget   MemoryBudget
	verify   bool
}

// DecoderOption configures a Decoder.
type DecoderOption func(*decoderOptions)

// WithExecutor runs decoding on e instead of a dedicated goroutine.
func WithExecutor(e Executor) DecoderOption {
	return func(o *decoderOptions) {
		o.executor = e
	}
}

// WithMemoryBudget charges decoded bytes to b. The charge is returned when
// the bundle is closed or decoding fails.
func WithMemoryBudget(b MemoryBudget) DecoderOption {
	return func(o *decoderOptions) {
		o.budget = b
	}
}

// WithVerify toggles BLAKE3 verification of decoded entries. Enabled by default.
func WithVerify(verify bool) DecoderOption {
	return func(o *decoderOptions) {
		o.verify = verify
	}
}

// Decoder incrementally decodes one bundle in the background.
//
// IsFinished, Progress, Artifact and Err may be polled from any goroutine.
type Decoder struct {
	name   string
	verify bool
	budget MemoryBudget

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	progress atomic.Uint64 // float64 bits
	finished atomic.Bool

	mu       sync.Mutex
	data     []byte
	bundle   *Bundle
	err      error
	disposed bool
}

// NewDecoder starts decoding data. The decoder drops its reference to data
// as soon as decoding ends or it is disposed.
func NewDecoder(name string, data []byte, opts ...DecoderOption) *Decoder {
	o := decoderOptions{verify: true}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Decoder{
		name:   name,
		verify: o.verify,
		budget: o.budget,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
		data:   data,
	}

	if o.executor == nil {
		go d.run(data)
		return d
	}

	if err := o.executor.Submit(ctx, func() { d.run(data) }); err != nil {
		d.finish(nil, fmt.Errorf("bundle: schedule decode: %w", err))
		close(d.done)
	}
	return d
}

func (d *Decoder) run(data []byte) {
	defer close(d.done)

	var dec decompressor
	defer dec.release()

	b, err := d.decode(data, &dec)
	d.finish(b, err)
}

func (d *Decoder) decode(data []byte, dec *decompressor) (*Bundle, error) {
	if err := d.ctx.Err(); err != nil {
		return nil, ErrDecodeCancelled
	}

	m, err := ReadManifest(data)
	if err != nil {
		return nil, err
	}

	reserved := m.RawSize()
	if d.budget != nil {
		if err := d.budget.AcquireMemory(reserved); err != nil {
			return nil, fmt.Errorf("bundle: reserve %d decoded bytes: %w", reserved, err)
		}
	}

	b, err := d.decodeEntries(data, m, dec)
	if err != nil {
		if d.budget != nil {
			d.budget.ReleaseMemory(reserved)
		}
		return nil, err
	}
	if d.budget != nil {
		b.onClose = func() { d.budget.ReleaseMemory(reserved) }
	}
	return b, nil
}

func (d *Decoder) decodeEntries(data []byte, m Manifest, dec *decompressor) (*Bundle, error) {
	total := m.StoredSize()
	var decoded int64

	b := newBundle(d.name, len(m.Entries))
	for _, e := range m.Entries {
		if err := d.ctx.Err(); err != nil {
			return nil, ErrDecodeCancelled
		}

		raw, err := dec.decompress(e.stored(data), e.Compression, int(e.RawSize))
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", e.Name, err)
		}

		if d.verify && blake3.Sum256(raw) != e.Digest {
			return nil, fmt.Errorf("%w: entry %q", ErrChecksum, e.Name)
		}

		b.put(e.Name, raw)

		decoded += int64(e.StoredSize)
		if total > 0 {
			d.setProgress(float64(decoded) / float64(total))
		}
	}

	return b, nil
}

func (d *Decoder) finish(b *Bundle, err error) {
	d.mu.Lock()
	d.bundle = b
	d.err = err
	d.data = nil
	d.mu.Unlock()

	d.setProgress(1)
	d.finished.Store(true)
}

func (d *Decoder) setProgress(p float64) {
	d.progress.Store(math.Float64bits(p))
}

// Name returns the logical path being decoded.
func (d *Decoder) Name() string {
	return d.name
}

// IsFinished reports whether decoding has ended, successfully or not.
func (d *Decoder) IsFinished() bool {
	return d.finished.Load()
}

// Progress returns the fraction of stored bytes decoded so far.
func (d *Decoder) Progress() float64 {
	return math.Float64frombits(d.progress.Load())
}

// Done is closed when the decode goroutine has exited.
func (d *Decoder) Done() <-chan struct{} {
	return d.done
}

// Artifact returns the decoded *Bundle, or nil if decoding failed, is still
// running or the decoder was force-disposed.
func (d *Decoder) Artifact() any {
	if b := d.Bundle(); b != nil {
		return b
	}
	return nil
}

// Bundle is the typed form of Artifact.
func (d *Decoder) Bundle() *Bundle {
	if !d.IsFinished() {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bundle
}

// Err returns the reason decoding failed, or nil.
func (d *Decoder) Err() error {
	if !d.IsFinished() {
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Dispose releases the decoder. Dispose(true) cancels a running decode,
// waits for it to stop and unloads any bundle produced. Dispose(false)
// only drops the input buffer; the bundle stays valid for its holder.
// Dispose is idempotent.
func (d *Decoder) Dispose(force bool) {
	d.mu.Lock()
	if d.disposed {
		d.mu.Unlock()
		return
	}
	d.disposed = true
	d.data = nil
	d.mu.Unlock()

	d.cancel()
	if !force {
		return
	}

	<-d.done

	d.mu.Lock()
	b := d.bundle
	d.bundle = nil
	d.mu.Unlock()

	if b != nil {
		_ = b.Close()
	}
}

// Factory returns a constructor matching the loader's decoder factory
// signature. Every decoder created by it shares opts.
func Factory(opts ...DecoderOption) func(logicalPath string, data []byte) *Decoder {
	return func(logicalPath string, data []byte) *Decoder {
		return NewDecoder(logicalPath, data, opts...)
	}
}
