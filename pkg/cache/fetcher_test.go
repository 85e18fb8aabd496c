package cache_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zenetia/zap/pkg/cache"
	"github.com/zenetia/zap/pkg/types"
)

func TestHTTPFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"keys":[{"kid":"key-1","kty":"RSA","alg":"RS256","use":"sig","n":"xjlc","e":"AQAB"}]}`))
	}))
	defer server.Close()

	fetcher := cache.NewHTTPFetcher(server.URL, time.Second)
	set, err := fetcher.Fetch(context.Background())

	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
	assert.Equal(t, "key-1", set.Keys[0].KeyID)
	assert.False(t, set.FetchedAt.IsZero())
}

func TestHTTPFetcher_Non2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	fetcher := cache.NewHTTPFetcher(server.URL, time.Second)
	set, err := fetcher.Fetch(context.Background())

	assert.Nil(t, set)
	assert.Equal(t, types.AuthServiceUnavailable, authKind(t, err))
}

func TestHTTPFetcher_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer server.Close()

	fetcher := cache.NewHTTPFetcher(server.URL, time.Second)
	set, err := fetcher.Fetch(context.Background())

	assert.Nil(t, set)
	assert.Equal(t, types.AuthServiceUnavailable, authKind(t, err))
}

func TestHTTPFetcher_ProviderUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // nothing listening anymore

	fetcher := cache.NewHTTPFetcher(server.URL, time.Second)
	set, err := fetcher.Fetch(context.Background())

	assert.Nil(t, set)
	assert.Equal(t, types.AuthServiceUnavailable, authKind(t, err))
}
