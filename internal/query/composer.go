package query

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/example/storefront-engine/internal/catalog"
	"github.com/example/storefront-engine/internal/domain/product"
	"github.com/example/storefront-engine/internal/infrastructure/broadcast"
)

// DefaultDebounce is the trailing-edge window for coalescing criteria edits.
const DefaultDebounce = 300 * time.Millisecond

// Source is the catalog dependency the composer fetches through.
// *catalog.Store satisfies it.
type Source interface {
	FetchAll(ctx context.Context, limit int) ([]product.Product, error)
	FetchByCategory(ctx context.Context, category string) ([]product.Product, error)
}

// Fetch selects the server-side source for a criteria: category view when a
// category is set, a limited list when a limit is set, the full (cached)
// list otherwise. Shared by the composer and the one-shot HTTP query path.
func Fetch(ctx context.Context, source Source, c Criteria) ([]product.Product, error) {
	switch {
	case c.Category != "":
		return source.FetchByCategory(ctx, c.Category)
	case c.Limit > 0:
		return source.FetchAll(ctx, c.Limit)
	default:
		return source.FetchAll(ctx, 0)
	}
}

// Composer turns a live sequence of criteria edits into a live sequence of
// refined product lists. Edits are debounced, values equal to the last
// accepted one are suppressed, and a superseded fetch can never overwrite a
// newer one: each fetch is tagged with a sequence number and its result is
// discarded unless the tag is still the newest issued.
//
// Loading and error state is not duplicated here; consumers observe the
// catalog store's broadcasts. On a failed fetch the previous results stay
// published so the view is not blanked.
type Composer struct {
	source   Source
	debounce time.Duration
	updateMu sync.Mutex
	updates  chan Criteria
	results  *broadcast.Value[[]product.Product]
}

// NewComposer creates a Composer over source. debounce <= 0 selects
// DefaultDebounce. Call Run to start it.
func NewComposer(source Source, debounce time.Duration) *Composer {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Composer{
		source:   source,
		debounce: debounce,
		updates:  make(chan Criteria, 1),
		results:  broadcast.NewValue[[]product.Product](nil),
	}
}

// Results exposes the live refined product list.
func (c *Composer) Results() *broadcast.Value[[]product.Product] {
	return c.results
}

// Update feeds one criteria edit. Never blocks: when the run loop has not
// yet consumed the previous edit, the newer one replaces it. Concurrent
// callers are serialized so the drain-and-replace below can only ever
// discard an older edit, never a newer one.
func (c *Composer) Update(criteria Criteria) {
	c.updateMu.Lock()
	defer c.updateMu.Unlock()

	for {
		select {
		case c.updates <- criteria:
			return
		default:
			select {
			case <-c.updates:
			default:
			}
		}
	}
}

type fetchResult struct {
	seq      uint64
	criteria Criteria
	products []product.Product
	err      error
}

// Run drives the composer until ctx is cancelled. All refinement happens on
// this goroutine; fetches run concurrently but their results re-enter here,
// so output state never changes mid-computation.
func (c *Composer) Run(ctx context.Context) {
	var (
		timer        *time.Timer
		timerC       <-chan time.Time
		pending      Criteria
		havePending  bool
		accepted     Criteria
		haveAccepted bool
		seq          uint64
		cancelFetch  context.CancelFunc
	)
	resultC := make(chan fetchResult, 1)

	defer func() {
		if timer != nil {
			timer.Stop()
		}
		if cancelFetch != nil {
			cancelFetch()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case criteria := <-c.updates:
			pending = criteria
			havePending = true
			if timer == nil {
				timer = time.NewTimer(c.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(c.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			if !havePending {
				continue
			}
			havePending = false
			if haveAccepted && pending.Equal(accepted) {
				continue
			}
			accepted = pending
			haveAccepted = true

			// Supersede any in-flight fetch. The catalog store keeps
			// its shared cached fetches alive independently.
			if cancelFetch != nil {
				cancelFetch()
			}
			var fetchCtx context.Context
			fetchCtx, cancelFetch = context.WithCancel(ctx)

			seq++
			go c.fetch(fetchCtx, seq, accepted, resultC)

		case result := <-resultC:
			if result.seq != seq {
				continue // superseded, discard
			}
			if result.err != nil {
				log.Printf("[Query] fetch failed, keeping previous results: %v", result.err)
				continue
			}
			c.results.Set(Refine(result.products, result.criteria))
		}
	}
}

func (c *Composer) fetch(ctx context.Context, seq uint64, criteria Criteria, out chan<- fetchResult) {
	products, err := Fetch(ctx, c.source, criteria)
	select {
	case out <- fetchResult{seq: seq, criteria: criteria, products: products, err: err}:
	case <-ctx.Done():
	}
}

// compile-time check that the catalog store satisfies Source
var _ Source = (*catalog.Store)(nil)
