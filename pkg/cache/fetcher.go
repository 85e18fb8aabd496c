package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/zenetia/zap/pkg/types"
)

// DefaultFetchTimeout bounds a single JWKS fetch. It is the only
// operation in the verification path that may block on the network.
const DefaultFetchTimeout = 10 * time.Second

// Fetcher retrieves the provider's signing-key set. Implementations must
// be safe for concurrent use; the key store serializes calls itself but
// tests do not.
type Fetcher interface {
	Fetch(ctx context.Context) (*types.JWKS, error)
}

// HTTPFetcher fetches the key set from the provider's JWKS endpoint over
// HTTPS. Any transport error, non-2xx status or malformed body yields a
// service-unavailable failure; the fetcher never retries on its own.
type HTTPFetcher struct {
	url    string
	client *http.Client
}

// NewHTTPFetcher creates a fetcher for the given JWKS URL. A non-positive
// timeout falls back to DefaultFetchTimeout.
func NewHTTPFetcher(url string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &HTTPFetcher{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context) (*types.JWKS, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, types.WrapAuthError(types.AuthServiceUnavailable, "failed to build JWKS request", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		slog.Error("Failed to fetch JWKS", slog.String("url", f.url), slog.String("error", err.Error()))
		return nil, types.WrapAuthError(types.AuthServiceUnavailable, "failed to fetch JWKS", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("Failed to close JWKS response body", slog.String("error", err.Error()))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("Received non-2xx status code when fetching JWKS",
			slog.String("url", f.url),
			slog.Int("status", resp.StatusCode))
		return nil, types.NewAuthError(types.AuthServiceUnavailable,
			fmt.Sprintf("JWKS endpoint returned status %d", resp.StatusCode))
	}

	var jwks types.JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		slog.Error("Failed to parse JWKS", slog.String("url", f.url), slog.String("error", err.Error()))
		return nil, types.WrapAuthError(types.AuthServiceUnavailable, "failed to parse JWKS", err)
	}

	jwks.FetchedAt = time.Now()
	return &jwks, nil
}
