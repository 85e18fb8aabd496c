package cache

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zenetia/zap/pkg/types"
)

// KeyStore holds the provider's current signing-key set and a per-kid
// cache of materialized RSA keys. The set is fetched lazily on first use
// and replaced atomically on refresh; it is never mutated in place.
//
// The store refetches the set at most once per lookup when a kid is
// missing, so it tolerates provider key rotation without a background
// refresh task. Concurrent lookups for an uncached kid collapse into a
// single network fetch: callers queue on fetchMu and re-check the cache
// before fetching, so a fetch completed while waiting is reused.
type KeyStore struct {
	fetcher Fetcher

	mu   sync.RWMutex
	set  *types.JWKS
	keys map[string]*rsa.PublicKey

	// fetchMu serializes network fetches so at most one is in flight.
	fetchMu sync.Mutex
}

// NewKeyStore creates a key store backed by the given fetcher.
func NewKeyStore(fetcher Fetcher) *KeyStore {
	return &KeyStore{
		fetcher: fetcher,
		keys:    make(map[string]*rsa.PublicKey),
	}
}

// KeySet returns the current signing-key set, fetching it on first call.
// Once populated the set is served for the process lifetime unless a kid
// miss in VerificationKey forces a refresh.
func (s *KeyStore) KeySet(ctx context.Context) (*types.JWKS, error) {
	s.mu.RLock()
	set := s.set
	s.mu.RUnlock()
	if set != nil {
		return set, nil
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// Another caller may have fetched while we waited.
	s.mu.RLock()
	set = s.set
	s.mu.RUnlock()
	if set != nil {
		return set, nil
	}

	return s.refresh(ctx)
}

// VerificationKey resolves the RSA public key for the given key ID.
// Lookup order: materialized-key cache, then the current set (materialize
// and cache on hit), then a single refetch of the set. A kid absent even
// after a fresh fetch is an unverifiable-key failure.
func (s *KeyStore) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	if key, err := s.lookup(kid); key != nil || err != nil {
		return key, err
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// A fetch completed while we waited may already cover this kid.
	if key, err := s.lookup(kid); key != nil || err != nil {
		return key, err
	}

	if _, err := s.refresh(ctx); err != nil {
		return nil, err
	}

	if key, err := s.lookup(kid); key != nil || err != nil {
		return key, err
	}

	slog.Warn("Signing key not found after key set refresh", slog.String("kid", kid))
	return nil, types.NewAuthError(types.AuthUnverifiableKey, fmt.Sprintf("signing key %q not found", kid))
}

// lookup checks the materialized cache, then the current set. It returns
// (nil, nil) when the kid is simply unknown; a non-nil error means the
// descriptor exists but its key material is unusable.
func (s *KeyStore) lookup(kid string) (*rsa.PublicKey, error) {
	s.mu.RLock()
	key := s.keys[kid]
	set := s.set
	s.mu.RUnlock()

	if key != nil {
		return key, nil
	}
	if set == nil {
		return nil, nil
	}

	desc, ok := set.Key(kid)
	if !ok {
		return nil, nil
	}

	pub, err := MaterializeRSA(desc)
	if err != nil {
		slog.Error("Failed to materialize signing key",
			slog.String("kid", kid),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.mu.Lock()
	s.keys[kid] = pub
	s.mu.Unlock()

	return pub, nil
}

// refresh fetches the key set and swaps it in. Callers must hold fetchMu.
// On failure no state changes: in-flight callers all see the fetch error
// and the previous set, if any, stays usable.
func (s *KeyStore) refresh(ctx context.Context) (*types.JWKS, error) {
	set, err := s.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()

	slog.Debug("Signing key set refreshed", slog.Int("keys", len(set.Keys)))
	return set, nil
}
