// Package secretstore provides a read-only, cached view of secrets held in a
// remote secret-storage service.
//
// A Store exposes secrets by name and optional version through a small
// associative interface:
//
//	store, err := secretstore.New(ctx, client, secretstore.WithProject("my-project"))
//	if err != nil {
//	    return err
//	}
//
//	password, err := store.Get(ctx, secretstore.Latest("db-password"))
//	pinned, err := store.Get(ctx, secretstore.Version("db-password", "3"))
//	token, err := store.GetOr(ctx, secretstore.Latest("optional-token"), "")
//	ok, err := store.Contains(ctx, secretstore.Latest("db-password"))
//
// # Keys
//
// A Key is either Latest(name) or Version(name, version). The label "latest"
// is normalized to Latest, so both spellings share cache entries. ParseKey
// accepts the textual forms "name", "name:version" and "name@version".
//
// # Version resolution
//
// Explicit versions are addressed directly, without a remote call; a missing
// version surfaces when its payload is fetched. Latest keys list every version
// of the secret and select the active (enabled) version with the greatest
// creation time. Ties are broken by the larger version number. Disabled and
// destroyed versions are never selected, even when they are newer.
//
// # Caching
//
// Each Store owns two caches. The address cache maps keys to resolved
// VersionAddress values; the payload cache maps addresses to decoded payloads.
// Entries reached through a Latest key expire after the TTL (300 seconds by
// default) so newly added versions are picked up; entries for explicit
// versions are permanent because versions are immutable. A TTL of zero keeps
// every entry for the lifetime of the Store. Expiry is checked lazily on
// access. Failed lookups are never cached.
//
// WithCache(false) disables both caches: every lookup lists and fetches again.
// WithSealedCache(true) keeps cached payloads encrypted in memory.
//
// # Errors
//
//   - ConfigurationError: New could not determine a usable project or TTL.
//   - NotFoundError: the secret or version does not exist, or a Latest key
//     found no active version. GetOr and Contains absorb it.
//   - UnsupportedOperationError: returned by Set; the store never writes.
//   - RemoteServiceError: any other remote failure, wrapping the original
//     error unmodified. Nothing is retried.
//   - InvalidKeyError: a key with an empty name or version.
//
// # Remote clients
//
// The store reads through RemoteSecretClient. Implementations for Google
// Cloud Secret Manager, AWS Secrets Manager, AWS SSM Parameter Store and
// Azure Key Vault live in internal/providers; tests/fakes provides an
// in-memory client.
package secretstore
