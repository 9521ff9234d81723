package secretstore

import (
	"time"
)

// DefaultCacheTTL is how long latest-version resolutions and their payloads
// stay cached when no TTL is configured.
const DefaultCacheTTL = 300 * time.Second

// Logger receives debug traces of cache and remote activity. Secret values
// are never passed to it. *logging.Logger satisfies it.
type Logger interface {
	Debug(format string, args ...interface{})
}

// Observer is notified of cache lookups and remote calls, e.g. to export
// metrics.
type Observer interface {
	// CacheLookup records a lookup in the "address" or "payload" cache.
	CacheLookup(cache string, hit bool)

	// RemoteCall records a completed "list" or "access" call.
	RemoteCall(op string, elapsed time.Duration, err error)
}

// Option configures a Store.
type Option func(*options)

type options struct {
	project    string
	projectSet bool
	cache      bool
	ttl        time.Duration
	sealed     bool
	now        func() time.Time
	observer   Observer
	logger     Logger
}

func defaultOptions() options {
	return options{
		cache:    true,
		ttl:      DefaultCacheTTL,
		now:      time.Now,
		observer: nopObserver{},
		logger:   nopLogger{},
	}
}

// WithProject sets the project to read secrets from. Without it the store
// asks the client for its default project.
func WithProject(project string) Option {
	return func(o *options) {
		o.project = project
		o.projectSet = true
	}
}

// WithCache enables or disables caching. When disabled no cache is consulted
// or populated and every lookup goes to the remote service. Enabled by default.
func WithCache(enabled bool) Option {
	return func(o *options) {
		o.cache = enabled
	}
}

// WithCacheTTL sets how long latest-version entries stay valid. Zero keeps
// every entry for the lifetime of the store; negative values are rejected.
// Entries for explicit versions never expire.
func WithCacheTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.ttl = ttl
	}
}

// WithSealedCache keeps cached payloads encrypted in memory.
func WithSealedCache(sealed bool) Option {
	return func(o *options) {
		o.sealed = sealed
	}
}

// WithClock replaces time.Now for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithObserver registers an observer for cache and remote activity.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithLogger sets the debug logger.
func WithLogger(l Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

type nopObserver struct{}

func (nopObserver) CacheLookup(string, bool)                 {}
func (nopObserver) RemoteCall(string, time.Duration, error) {}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
