package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// httpProvider is the default fetch.Provider: a plain GET with no retry
// policy. Retry/backoff and auth are capabilities the daemon's caller is
// expected to inject instead, so this stays deliberately minimal.
type httpProvider struct{}

var httpClient = &http.Client{Timeout: 5 * time.Minute}

func (httpProvider) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}
