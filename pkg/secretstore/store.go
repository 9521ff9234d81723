package secretstore

import (
	"context"
	"strings"
	"time"
)

// Store is a read-only, cached view of the secrets in one project.
//
// A Store owns two caches: resolved version addresses keyed by Key, and
// decoded payloads keyed by VersionAddress. Entries reached through a Latest
// key expire after the configured TTL; entries for explicit versions never
// expire, since versions are immutable. Failed lookups are never cached.
//
// A Store is safe for concurrent use. Concurrent lookups of the same latest
// key share one remote listing.
type Store struct {
	client   RemoteSecretClient
	project  string
	opts     options
	resolver *versionResolver
	payloads *payloadCache
}

// New creates a Store reading through client.
//
// The project comes from WithProject or, when absent, from
// client.DefaultProject. New returns ConfigurationError when the project is
// blank, cannot be determined, or the cache TTL is negative.
func New(ctx context.Context, client RemoteSecretClient, opts ...Option) (*Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if client == nil {
		return nil, ConfigurationError{Field: "client", Message: "a remote secret client is required"}
	}
	if o.ttl < 0 {
		return nil, ConfigurationError{
			Field:      "cache_ttl",
			Message:    "cache TTL must not be negative",
			Suggestion: "Use 0 to cache for the lifetime of the store",
		}
	}

	project, err := resolveProject(ctx, client, o)
	if err != nil {
		return nil, err
	}

	s := &Store{
		client:  client,
		project: project,
		opts:    o,
		resolver: &versionResolver{
			client:  client,
			project: project,
			obs:     o.observer,
			log:     o.logger,
		},
		payloads: &payloadCache{
			client: client,
			sealed: o.sealed,
			obs:    o.observer,
			log:    o.logger,
		},
	}
	if o.cache {
		s.resolver.cache = newTTLCache[Key, VersionAddress](o.ttl, o.now)
		s.payloads.cache = newTTLCache[VersionAddress, cachedPayload](o.ttl, o.now)
		s.payloads.cache.onEvict = cachedPayload.destroy
	}

	o.logger.Debug("Secret store ready: project=%s cache=%t ttl=%s sealed=%t", project, o.cache, o.ttl, o.sealed)
	return s, nil
}

func resolveProject(ctx context.Context, client RemoteSecretClient, o options) (string, error) {
	if o.projectSet {
		if strings.TrimSpace(o.project) == "" {
			return "", ConfigurationError{
				Field:   "project",
				Message: "project must be a non-empty string",
			}
		}
		return o.project, nil
	}

	project, err := client.DefaultProject(ctx)
	if err != nil || project == "" {
		return "", ConfigurationError{
			Field:      "project",
			Message:    "no project specified and none found in Application Default Credentials",
			Suggestion: "Provide a project explicitly or configure ADC with: gcloud auth application-default login",
			Err:        err,
		}
	}
	return project, nil
}

// Project returns the project the store reads from.
func (s *Store) Project() string {
	return s.project
}

// CacheEnabled reports whether lookups are cached.
func (s *Store) CacheEnabled() bool {
	return s.opts.cache
}

// CacheTTL returns the expiry applied to latest-version entries.
func (s *Store) CacheTTL() time.Duration {
	return s.opts.ttl
}

// Get returns the decoded payload for key.
//
// It returns NotFoundError when the secret or version does not exist, or when
// a Latest key finds no active version, and RemoteServiceError for any other
// remote failure.
func (s *Store) Get(ctx context.Context, key Key) (string, error) {
	if err := key.Validate(); err != nil {
		return "", err
	}
	addr, err := s.resolver.resolve(ctx, key)
	if err != nil {
		return "", err
	}
	return s.payloads.get(ctx, addr, !key.IsLatest())
}

// GetOr is Get with def returned in place of NotFoundError. Every other error
// is returned unchanged.
func (s *Store) GetOr(ctx context.Context, key Key, def string) (string, error) {
	value, err := s.Get(ctx, key)
	if err != nil {
		if IsNotFound(err) {
			return def, nil
		}
		return "", err
	}
	return value, nil
}

// Contains reports whether key resolves to a readable payload. It performs a
// full lookup, so a successful check warms the caches. Not-found is reported
// as false; other failures are returned as errors.
func (s *Store) Contains(ctx context.Context, key Key) (bool, error) {
	_, err := s.Get(ctx, key)
	switch {
	case err == nil:
		return true, nil
	case IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// Set always fails with UnsupportedOperationError. The store never writes to
// the remote service or its caches.
func (s *Store) Set(ctx context.Context, key Key, value string) error {
	return UnsupportedOperationError{Op: "set"}
}

// Versions lists every version of name, newest first, regardless of state.
// Listings are not cached.
func (s *Store) Versions(ctx context.Context, name string) ([]VersionMetadata, error) {
	if err := Latest(name).Validate(); err != nil {
		return nil, err
	}
	versions, err := s.resolver.list(ctx, name)
	if err != nil {
		return nil, err
	}
	out := append([]VersionMetadata(nil), versions...)
	sortNewestFirst(out)
	return out, nil
}

// Purge empties both caches and destroys any sealed payloads.
func (s *Store) Purge() {
	if s.resolver.cache != nil {
		s.resolver.cache.clear()
	}
	if s.payloads.cache != nil {
		s.payloads.cache.clear()
	}
}
