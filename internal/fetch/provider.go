// Package fetch implements a bounded-concurrency, integrity-checked
// download pipeline.
package fetch

import (
	"context"

	"github.com/Atlas-Launcher/runner/internal/pack"
)

// Provider is the injected capability that performs the actual network
// fetch for one dependency. HTTP, retry policy, and auth live entirely on
// the other side of this interface so the core never imports net/http
// directly.
type Provider interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, url string) ([]byte, error)

func (f ProviderFunc) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f(ctx, url)
}

// Item is one thing to fetch: a URL and the hash it must produce.
type Item struct {
	URL          string
	ExpectedHash pack.Hash
}
