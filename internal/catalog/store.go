package catalog

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/example/storefront-engine/internal/domain/product"
	"github.com/example/storefront-engine/internal/infrastructure/broadcast"
)

// LoadingState is the shared fetch-progress signal exposed to the UI layer.
type LoadingState string

const (
	LoadingIdle    LoadingState = "idle"
	LoadingActive  LoadingState = "loading"
	LoadingSuccess LoadingState = "success"
	LoadingFailed  LoadingState = "error"
)

// Fetcher is the remote catalog dependency. *Client satisfies it; tests
// substitute a recording fake.
type Fetcher interface {
	ListProducts(ctx context.Context, limit int) ([]product.Product, error)
	GetProduct(ctx context.Context, id int) (product.Product, error)
	ListCategories(ctx context.Context) ([]string, error)
	ListByCategory(ctx context.Context, category string) ([]product.Product, error)
}

const (
	keyAllProducts = "all-products"
	keyCategories  = "categories"
)

// Store memoizes the unlimited product list and the category list, sharing a
// single in-flight request among concurrent callers. Limited, by-id and
// by-category fetches always hit the network. Every fetch drives the shared
// loading/error broadcasts; failures are returned to the caller and never
// memoized, so the next call re-attempts the request.
type Store struct {
	fetcher Fetcher
	flight  singleflight.Group

	mu            sync.RWMutex
	gen           uint64 // bumped by InvalidateCache; stale fetches must not repopulate
	products      []product.Product
	hasProducts   bool
	categories    []string
	hasCategories bool

	loading *broadcast.Value[LoadingState]
	lastErr *broadcast.Value[*Error]
}

// NewStore creates a Store over fetcher.
func NewStore(fetcher Fetcher) *Store {
	return &Store{
		fetcher: fetcher,
		loading: broadcast.NewValue(LoadingIdle),
		lastErr: broadcast.NewValue[*Error](nil),
	}
}

// Loading exposes the shared fetch-progress broadcast.
func (s *Store) Loading() *broadcast.Value[LoadingState] {
	return s.loading
}

// Err exposes the shared classified-error broadcast. It holds nil after a
// successful fetch.
func (s *Store) Err() *broadcast.Value[*Error] {
	return s.lastErr
}

// FetchAll returns the catalog. limit <= 0 means unlimited and takes the
// memoized path: concurrent callers share one request, later callers get the
// cached result until InvalidateCache. A positive limit always issues a
// fresh request and never touches the cache.
func (s *Store) FetchAll(ctx context.Context, limit int) ([]product.Product, error) {
	if limit > 0 {
		s.begin()
		products, err := s.fetcher.ListProducts(ctx, limit)
		if err != nil {
			return nil, s.fail(err)
		}
		s.succeed()
		return products, nil
	}

	s.mu.RLock()
	if s.hasProducts {
		cached := s.products
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	// The flight is detached from the first caller's context so one
	// caller cancelling cannot fail every waiter attached to the same
	// request.
	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(keyAllProducts, func() (any, error) {
		s.mu.RLock()
		if s.hasProducts {
			cached := s.products
			s.mu.RUnlock()
			return cached, nil
		}
		gen := s.gen
		s.mu.RUnlock()

		s.begin()
		products, err := s.fetcher.ListProducts(flightCtx, 0)
		if err != nil {
			return nil, s.fail(err)
		}

		// An invalidation while this request was in flight means the
		// result no longer owns the cache key; waiters still get it,
		// but the next call re-fetches.
		s.mu.Lock()
		if s.gen == gen {
			s.products = products
			s.hasProducts = true
		}
		s.mu.Unlock()

		s.succeed()
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]product.Product), nil
}

// FetchByID fetches one product. Never cached.
func (s *Store) FetchByID(ctx context.Context, id int) (product.Product, error) {
	s.begin()
	p, err := s.fetcher.GetProduct(ctx, id)
	if err != nil {
		return product.Product{}, s.fail(err)
	}
	s.succeed()
	return p, nil
}

// FetchCategories returns the category names, with the same memoized
// multicast discipline as unlimited FetchAll.
func (s *Store) FetchCategories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	if s.hasCategories {
		cached := s.categories
		s.mu.RUnlock()
		return cached, nil
	}
	s.mu.RUnlock()

	flightCtx := context.WithoutCancel(ctx)
	v, err, _ := s.flight.Do(keyCategories, func() (any, error) {
		s.mu.RLock()
		if s.hasCategories {
			cached := s.categories
			s.mu.RUnlock()
			return cached, nil
		}
		gen := s.gen
		s.mu.RUnlock()

		s.begin()
		categories, err := s.fetcher.ListCategories(flightCtx)
		if err != nil {
			return nil, s.fail(err)
		}

		s.mu.Lock()
		if s.gen == gen {
			s.categories = categories
			s.hasCategories = true
		}
		s.mu.Unlock()

		s.succeed()
		return categories, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// FetchByCategory fetches the products of one category. Category views are
// transient, so the result is never cached.
func (s *Store) FetchByCategory(ctx context.Context, category string) ([]product.Product, error) {
	s.begin()
	products, err := s.fetcher.ListByCategory(ctx, category)
	if err != nil {
		return nil, s.fail(err)
	}
	s.succeed()
	return products, nil
}

// InvalidateCache drops the memoized product and category lists. The next
// FetchAll / FetchCategories re-issues a network request.
func (s *Store) InvalidateCache() {
	s.mu.Lock()
	s.gen++
	s.products = nil
	s.hasProducts = false
	s.categories = nil
	s.hasCategories = false
	s.mu.Unlock()

	s.flight.Forget(keyAllProducts)
	s.flight.Forget(keyCategories)
}

func (s *Store) begin() {
	s.loading.Set(LoadingActive)
}

func (s *Store) succeed() {
	s.loading.Set(LoadingSuccess)
	s.lastErr.Set(nil)
}

// fail publishes the classified error and returns it so callers can react
// locally as well.
func (s *Store) fail(err error) *Error {
	apiErr := AsError(err)
	s.loading.Set(LoadingFailed)
	s.lastErr.Set(apiErr)
	return apiErr
}
