package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/storefront-engine/internal/domain/product"
)

// fakeFetcher is a recording Fetcher test double. Release and
// CategoriesRelease, when set, gate the corresponding fetch so tests can
// hold requests in flight.
type fakeFetcher struct {
	mu                sync.Mutex
	products          []product.Product
	categories        []string
	err               error
	listCalls         int32
	listLimits        []int
	categoriesCalls   int32
	byCategoryCalls   int32
	getProductCalls   int32
	Release           chan struct{}
	CategoriesRelease chan struct{}
}

func newFakeFetcher(products ...product.Product) *fakeFetcher {
	return &fakeFetcher{products: products}
}

func (f *fakeFetcher) ListProducts(ctx context.Context, limit int) ([]product.Product, error) {
	atomic.AddInt32(&f.listCalls, 1)
	f.mu.Lock()
	f.listLimits = append(f.listLimits, limit)
	err := f.err
	products := f.products
	f.mu.Unlock()

	if f.Release != nil {
		select {
		case <-f.Release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if limit > 0 && limit < len(products) {
		return products[:limit], nil
	}
	return products, nil
}

func (f *fakeFetcher) GetProduct(ctx context.Context, id int) (product.Product, error) {
	atomic.AddInt32(&f.getProductCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return product.Product{}, f.err
	}
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return product.Product{}, &Error{Message: "Product not found.", Status: 404, Code: CodeNotFound}
}

func (f *fakeFetcher) ListCategories(ctx context.Context) ([]string, error) {
	atomic.AddInt32(&f.categoriesCalls, 1)
	f.mu.Lock()
	err := f.err
	categories := f.categories
	f.mu.Unlock()

	if f.CategoriesRelease != nil {
		select {
		case <-f.CategoriesRelease:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return categories, nil
}

func (f *fakeFetcher) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	atomic.AddInt32(&f.byCategoryCalls, 1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []product.Product
	for _, p := range f.products {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeFetcher) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func testProduct(id int, price string, category string) product.Product {
	return product.Product{
		ID:       id,
		Title:    "Product",
		Price:    decimal.RequireFromString(price),
		Category: category,
	}
}

// ============================================
// Cache sharing / bypass
// ============================================

func TestStore_FetchAll_ConcurrentCallersShareOneRequest(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	fetcher.Release = make(chan struct{})
	store := NewStore(fetcher)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([][]product.Product, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			products, err := store.FetchAll(ctx, 0)
			require.NoError(t, err)
			results[i] = products
		}(i)
	}

	// Wait until the single request is in flight, then release it.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetcher.listCalls) == 1
	}, time.Second, time.Millisecond)
	close(fetcher.Release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.listCalls))
	assert.Equal(t, results[0], results[1])
}

func TestStore_FetchAll_SecondCallServedFromCache(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	store := NewStore(fetcher)
	ctx := context.Background()

	_, err := store.FetchAll(ctx, 0)
	require.NoError(t, err)
	_, err = store.FetchAll(ctx, 0)
	require.NoError(t, err)

	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.listCalls))
}

func TestStore_FetchAll_LimitBypassesCache(t *testing.T) {
	fetcher := newFakeFetcher(
		testProduct(1, "5", "a"),
		testProduct(2, "15", "b"),
	)
	store := NewStore(fetcher)
	ctx := context.Background()

	limited, err := store.FetchAll(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	// The limited call must not have populated the unlimited cache.
	_, err = store.FetchAll(ctx, 0)
	require.NoError(t, err)
	_, err = store.FetchAll(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&fetcher.listCalls))
	assert.Equal(t, []int{1, 0, 1}, fetcher.listLimits)
}

func TestStore_FetchCategories_Cached(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.categories = []string{"a", "b"}
	store := NewStore(fetcher)
	ctx := context.Background()

	first, err := store.FetchCategories(ctx)
	require.NoError(t, err)
	second, err := store.FetchCategories(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetcher.categoriesCalls))
}

func TestStore_FetchByCategory_NeverCached(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	store := NewStore(fetcher)
	ctx := context.Background()

	_, err := store.FetchByCategory(ctx, "a")
	require.NoError(t, err)
	_, err = store.FetchByCategory(ctx, "a")
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.byCategoryCalls))
}

func TestStore_FetchByID_NeverCached(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(7, "9.99", "a"))
	store := NewStore(fetcher)
	ctx := context.Background()

	p, err := store.FetchByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, p.ID)

	_, err = store.FetchByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.getProductCalls))
}

// ============================================
// Invalidation / failure caching
// ============================================

func TestStore_InvalidateCache_ReissuesRequests(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	fetcher.categories = []string{"a"}
	store := NewStore(fetcher)
	ctx := context.Background()

	_, err := store.FetchAll(ctx, 0)
	require.NoError(t, err)
	_, err = store.FetchCategories(ctx)
	require.NoError(t, err)

	store.InvalidateCache()

	_, err = store.FetchAll(ctx, 0)
	require.NoError(t, err)
	_, err = store.FetchCategories(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.listCalls))
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.categoriesCalls))
}

func TestStore_InvalidateDuringInFlightFetchIsNotUndone(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	fetcher.Release = make(chan struct{})
	store := NewStore(fetcher)
	ctx := context.Background()

	done := make(chan []product.Product)
	go func() {
		products, err := store.FetchAll(ctx, 0)
		require.NoError(t, err)
		done <- products
	}()

	// Invalidate while the request is held in flight, then let it finish.
	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetcher.listCalls) == 1
	}, time.Second, time.Millisecond)
	store.InvalidateCache()
	close(fetcher.Release)

	// The in-flight caller still gets its result.
	assert.Len(t, <-done, 1)

	// But the stale result must not have repopulated the cache: the next
	// call re-issues a network request.
	fetcher.Release = nil
	_, err := store.FetchAll(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.listCalls))
}

func TestStore_InvalidateDuringInFlightCategoriesFetchIsNotUndone(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.categories = []string{"a", "b"}
	fetcher.CategoriesRelease = make(chan struct{})
	store := NewStore(fetcher)
	ctx := context.Background()

	done := make(chan []string)
	go func() {
		categories, err := store.FetchCategories(ctx)
		require.NoError(t, err)
		done <- categories
	}()

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&fetcher.categoriesCalls) == 1
	}, time.Second, time.Millisecond)
	store.InvalidateCache()
	close(fetcher.CategoriesRelease)

	assert.Equal(t, []string{"a", "b"}, <-done)

	fetcher.CategoriesRelease = nil
	_, err := store.FetchCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.categoriesCalls))
}

func TestStore_FailureIsNotCached(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	fetcher.setErr(&Error{Message: "Internal server error. Please try again later.", Status: 500, Code: CodeServerError})
	store := NewStore(fetcher)
	ctx := context.Background()

	_, err := store.FetchAll(ctx, 0)
	require.Error(t, err)

	// Recovery: next call re-attempts and succeeds.
	fetcher.setErr(nil)
	products, err := store.FetchAll(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, products, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetcher.listCalls))
}

// ============================================
// Loading / error broadcasts
// ============================================

func TestStore_BroadcastsOnSuccess(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	store := NewStore(fetcher)

	assert.Equal(t, LoadingIdle, store.Loading().Get())

	_, err := store.FetchAll(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, LoadingSuccess, store.Loading().Get())
	assert.Nil(t, store.Err().Get())
}

func TestStore_BroadcastsClassifiedError(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.setErr(&Error{Message: "Product not found.", Status: 404, Code: CodeNotFound})
	store := NewStore(fetcher)

	_, err := store.FetchByID(context.Background(), 999)

	require.Error(t, err)
	assert.Equal(t, LoadingFailed, store.Loading().Get())
	published := store.Err().Get()
	require.NotNil(t, published)
	assert.Equal(t, CodeNotFound, published.Code)
	assert.Equal(t, "Product not found.", published.Message)
}

func TestStore_ErrorClearedAfterSuccessfulFetch(t *testing.T) {
	fetcher := newFakeFetcher(testProduct(1, "5", "a"))
	fetcher.setErr(&Error{Message: "down", Status: 500, Code: CodeServerError})
	store := NewStore(fetcher)
	ctx := context.Background()

	_, err := store.FetchAll(ctx, 0)
	require.Error(t, err)
	require.NotNil(t, store.Err().Get())

	fetcher.setErr(nil)
	_, err = store.FetchAll(ctx, 0)
	require.NoError(t, err)
	assert.Nil(t, store.Err().Get())
}

func TestStore_WrapsUnclassifiedErrors(t *testing.T) {
	fetcher := newFakeFetcher()
	fetcher.setErr(assert.AnError)
	store := NewStore(fetcher)

	_, err := store.FetchByCategory(context.Background(), "a")

	require.Error(t, err)
	apiErr := AsError(err)
	assert.Equal(t, CodeUnknownError, apiErr.Code)
}
