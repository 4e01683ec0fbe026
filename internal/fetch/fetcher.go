package fetch

import (
	"context"
	"crypto/subtle"
	"encoding/hex"
	"sync"

	"github.com/Atlas-Launcher/runner/internal/atlaserr"
	"github.com/Atlas-Launcher/runner/internal/cache"
)

// DefaultConcurrency bounds how many downloads run at once when the
// caller doesn't override it.
const DefaultConcurrency = 6

// Fetcher resolves a batch of Items into cache-resident, verified
// artifacts.
type Fetcher struct {
	Cache       *cache.Cache
	Provider    Provider
	Concurrency int
}

// New builds a Fetcher with DefaultConcurrency.
func New(c *cache.Cache, p Provider) *Fetcher {
	return &Fetcher{Cache: c, Provider: p, Concurrency: DefaultConcurrency}
}

// Result is where one fetched item ended up.
type Result struct {
	Item Item
	Path string
}

// FetchAll resolves every item, skipping ones already cached, running the
// rest with bounded concurrency. The first failure cancels the remaining
// in-flight and queued fetches and is returned; on any failure no partial
// results are returned.
func (f *Fetcher) FetchAll(ctx context.Context, items []Item) ([]Result, error) {
	if len(items) == 0 {
		return nil, nil
	}

	concurrency := f.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan struct{}, concurrency)
	results := make([]Result, len(items))
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item Item) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			res, err := f.fetchOne(ctx, item)
			if err != nil {
				errs[i] = err
				cancel() // short-circuit: abort the whole batch on first error
				return
			}
			results[i] = res
		}(i, item)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, firstRealError(errs)
		}
	}
	return results, nil
}

// firstRealError returns the first non-context-cancellation error, since
// every sibling task also observes ctx.Err() once one fails.
func firstRealError(errs []error) error {
	for _, err := range errs {
		if err != nil && err != context.Canceled {
			return err
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func (f *Fetcher) fetchOne(ctx context.Context, item Item) (Result, error) {
	if f.Cache.Exists(item.ExpectedHash) {
		return Result{Item: item, Path: f.Cache.GetPath(item.ExpectedHash)}, nil
	}

	data, err := f.Provider.Fetch(ctx, item.URL)
	if err != nil {
		return Result{}, atlaserr.Wrap(atlaserr.Transport, "download "+item.URL, err)
	}

	hasher, err := cache.NewHasher(item.ExpectedHash.Alg)
	if err != nil {
		return Result{}, err
	}
	hasher.Write(data)
	actual := hex.EncodeToString(hasher.Sum(nil))

	if subtle.ConstantTimeCompare([]byte(actual), []byte(item.ExpectedHash.Hex)) != 1 {
		return Result{}, atlaserr.IntegrityMismatch(item.URL, item.ExpectedHash.Hex, actual)
	}

	path, err := f.Cache.Store(item.ExpectedHash, data)
	if err != nil {
		return Result{}, err
	}
	return Result{Item: item, Path: path}, nil
}
