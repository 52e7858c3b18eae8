package assetload

import (
	"log/slog"
	"time"

	"github.com/hupe1980/assetload/blobstore"
	"github.com/hupe1980/assetload/resource"
)

// DefaultTickInterval is the Run interval used when none is configured.
const DefaultTickInterval = 16 * time.Millisecond

type options struct {
	logger            *Logger
	metricsCollector  MetricsCollector
	events            *EventBus
	defaultLocation   StorageLocation
	backends          map[StorageLocation]blobstore.BlobStore
	decoderFactory    DecoderFactory
	fetcherFactory    FetcherFactory
	resourceConfig    resource.Config
	resources         *resource.Controller
	workers           int
	tickInterval      time.Duration
	releaseDiagnostic ReleaseDiagnostic
}

// Option configures a Loader.
type Option func(*options)

// WithLogger configures structured logging.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := assetload.NewJSONLogger(slog.LevelInfo)
//	l, _ := assetload.New(assetload.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

// WithMetricsCollector configures a metrics collector.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &assetload.BasicMetricsCollector{}
//	l, _ := assetload.New(assetload.WithMetricsCollector(metrics))
//	// ... load bundles ...
//	stats := metrics.GetStats()
//	fmt.Printf("Fetches: %d, Avg latency: %dns\n", stats.FetchCount, stats.FetchAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithEventBus publishes LoadStarted and LoadFailed events on bus.
func WithEventBus(bus *EventBus) Option {
	return func(o *options) {
		o.events = bus
	}
}

// WithDefaultLocation sets the storage location ModeDefault resolves to.
// The default is LocationStreaming.
func WithDefaultLocation(loc StorageLocation) Option {
	return func(o *options) {
		o.defaultLocation = loc
	}
}

// WithBackend serves loc from store. Ignored when a custom FetcherFactory is set.
func WithBackend(loc StorageLocation, store blobstore.BlobStore) Option {
	return func(o *options) {
		if o.backends == nil {
			o.backends = make(map[StorageLocation]blobstore.BlobStore)
		}
		o.backends[loc] = store
	}
}

// WithDecoderFactory replaces the bundle decoder.
func WithDecoderFactory(f DecoderFactory) Option {
	return func(o *options) {
		o.decoderFactory = f
	}
}

// WithFetcherFactory replaces the blob store fetchers entirely.
func WithFetcherFactory(f FetcherFactory) Option {
	return func(o *options) {
		o.fetcherFactory = f
	}
}

// WithResourceLimits configures the fetch budgets of the loader's own
// resource controller.
func WithResourceLimits(cfg resource.Config) Option {
	return func(o *options) {
		o.resourceConfig = cfg
	}
}

// WithResourceController shares rc between loaders. It takes precedence
// over WithResourceLimits.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resources = rc
	}
}

// WithWorkers sets the size of the fetch and decode worker pool.
// n <= 0 uses the pool default.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTickInterval sets the interval used by Loader.Run.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		o.tickInterval = d
	}
}

// WithReleaseDiagnostic runs fn with the logical path of every released handle.
func WithReleaseDiagnostic(fn ReleaseDiagnostic) Option {
	return func(o *options) {
		o.releaseDiagnostic = fn
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
		defaultLocation:  LocationStreaming,
		tickInterval:     DefaultTickInterval,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.tickInterval <= 0 {
		o.tickInterval = DefaultTickInterval
	}
	return o
}
