package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-engine/internal/domain/product"
	"github.com/example/storefront-engine/internal/infrastructure/broadcast"
	"github.com/example/storefront-engine/internal/infrastructure/storage"
)

// StorageKey is the fixed namespace the cart is persisted under.
const StorageKey = "storefront:cart"

// persistVersion guards the persisted payload format. A mismatch discards
// the stored cart instead of half-parsing it.
const persistVersion = 1

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrInvalidProduct  = errors.New("product id is required")
)

// shippingFlatRate is the current shipping policy.
var shippingFlatRate = decimal.Zero

// Item is one cart line. LineTotal is derived from the product price and
// quantity; it is recomputed on every change and never trusted from storage.
type Item struct {
	ID        int             `json:"id"`
	Product   product.Product `json:"product"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Summary is the derived cart state, always a pure function of the current
// items.
type Summary struct {
	Subtotal  decimal.Decimal `json:"subtotal"`
	Shipping  decimal.Decimal `json:"shipping"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"item_count"`
}

type persistedCart struct {
	Version int    `json:"version"`
	Items   []Item `json:"items"`
}

// Store owns the cart items and is the sole writer of cart persistence.
// Every mutation serializes the full collection to durable storage; storage
// failures are logged and otherwise ignored, so a disabled or broken store
// degrades to a session-only cart.
type Store struct {
	mu      sync.Mutex
	items   map[int]*Item // product id -> item
	order   []int         // insertion order for listings
	storage storage.Store
	summary *broadcast.Value[Summary]
}

// NewStore creates a Store backed by st, restoring any persisted cart.
// Restored line totals are recomputed from price × quantity, so a catalog
// price change between sessions self-heals on load.
func NewStore(st storage.Store) *Store {
	s := &Store{
		items:   make(map[int]*Item),
		storage: st,
	}
	s.load()
	s.summary = broadcast.NewValue(s.computeSummaryLocked())
	return s
}

// Watch exposes the summary broadcast, updated after every mutation.
func (s *Store) Watch() *broadcast.Value[Summary] {
	return s.summary
}

// Add puts quantity units of p in the cart, merging with an existing line
// for the same product id.
func (s *Store) Add(p product.Product, quantity int) error {
	if p.ID <= 0 {
		return ErrInvalidProduct
	}
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.items[p.ID]; ok {
		existing.Quantity += quantity
		existing.LineTotal = lineTotal(existing.Product, existing.Quantity)
	} else {
		s.items[p.ID] = &Item{
			ID:        p.ID,
			Product:   p,
			Quantity:  quantity,
			LineTotal: lineTotal(p, quantity),
		}
		s.order = append(s.order, p.ID)
	}

	s.afterMutationLocked()
	return nil
}

// SetQuantity sets the quantity of an existing line. quantity <= 0 removes
// the line. Setting an absent product id is a no-op.
func (s *Store) SetQuantity(productID, quantity int) {
	if quantity <= 0 {
		s.Remove(productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[productID]
	if !ok {
		return
	}
	item.Quantity = quantity
	item.LineTotal = lineTotal(item.Product, quantity)

	s.afterMutationLocked()
}

// Remove deletes the line for productID if present.
func (s *Store) Remove(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[productID]; !ok {
		return
	}
	delete(s.items, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.afterMutationLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make(map[int]*Item)
	s.order = nil

	s.afterMutationLocked()
}

// Items returns the lines in insertion order.
func (s *Store) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.items[id])
	}
	return out
}

// Summary recomputes the derived totals from the current items.
func (s *Store) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.computeSummaryLocked()
}

// Contains reports whether the cart holds a line for productID.
func (s *Store) Contains(productID int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[productID]
	return ok
}

// QuantityOf returns the quantity for productID, 0 when absent.
func (s *Store) QuantityOf(productID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if item, ok := s.items[productID]; ok {
		return item.Quantity
	}
	return 0
}

func (s *Store) computeSummaryLocked() Summary {
	subtotal := decimal.Zero
	count := 0
	for _, item := range s.items {
		subtotal = subtotal.Add(item.LineTotal)
		count += item.Quantity
	}
	return Summary{
		Subtotal:  subtotal,
		Shipping:  shippingFlatRate,
		Total:     subtotal.Add(shippingFlatRate),
		ItemCount: count,
	}
}

// afterMutationLocked persists the collection and republishes the summary.
func (s *Store) afterMutationLocked() {
	s.persistLocked()
	s.summary.Set(s.computeSummaryLocked())
}

func (s *Store) persistLocked() {
	stored := persistedCart{Version: persistVersion}
	for _, id := range s.order {
		stored.Items = append(stored.Items, *s.items[id])
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		log.Printf("[Cart] failed to serialize cart: %v", err)
		return
	}
	if err := s.storage.Set(StorageKey, string(raw)); err != nil {
		log.Printf("[Cart] failed to persist cart: %v", err)
	}
}

// load restores the persisted cart. Any failure falls back to an empty cart.
func (s *Store) load() {
	raw, ok, err := s.storage.Get(StorageKey)
	if err != nil {
		log.Printf("[Cart] failed to load persisted cart, starting empty: %v", err)
		return
	}
	if !ok {
		return
	}

	var stored persistedCart
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		log.Printf("[Cart] persisted cart is corrupt, starting empty: %v", err)
		return
	}
	if stored.Version != persistVersion {
		log.Printf("[Cart] persisted cart has unknown version %d, starting empty", stored.Version)
		return
	}

	for _, item := range stored.Items {
		if err := s.restore(item); err != nil {
			log.Printf("[Cart] skipping persisted line: %v", err)
		}
	}
}

// restore revalidates one persisted line and recomputes its total.
func (s *Store) restore(item Item) error {
	if item.Product.ID <= 0 {
		return ErrInvalidProduct
	}
	if item.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, exists := s.items[item.Product.ID]; exists {
		return fmt.Errorf("duplicate line for product %d", item.Product.ID)
	}

	item.ID = item.Product.ID
	item.LineTotal = lineTotal(item.Product, item.Quantity)
	s.items[item.ID] = &item
	s.order = append(s.order, item.ID)
	return nil
}

func lineTotal(p product.Product, quantity int) decimal.Decimal {
	return p.Price.Mul(decimal.NewFromInt(int64(quantity)))
}
