package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/example/storefront-engine/internal/catalog"
	"github.com/example/storefront-engine/internal/domain/cart"
	"github.com/example/storefront-engine/internal/domain/product"
	"github.com/example/storefront-engine/internal/query"
)

// Handlers exposes the engine to the UI layer over HTTP.
type Handlers struct {
	catalog  *catalog.Store
	composer *query.Composer
	cart     *cart.Store
}

func NewHandlers(catalogStore *catalog.Store, composer *query.Composer, cartStore *cart.Store) *Handlers {
	return &Handlers{
		catalog:  catalogStore,
		composer: composer,
		cart:     cartStore,
	}
}

// Catalog Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	criteria, err := parseCriteria(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	products, fetchErr := query.Fetch(r.Context(), h.catalog, criteria)
	if fetchErr != nil {
		respondAPIError(w, fetchErr)
		return
	}

	respondJSON(w, http.StatusOK, query.Refine(products, criteria))
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(extractPathParam(r.URL.Path, "/products/"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	p, fetchErr := h.catalog.FetchByID(r.Context(), id)
	if fetchErr != nil {
		respondAPIError(w, fetchErr)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (h *Handlers) GetCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.FetchCategories(r.Context())
	if err != nil {
		respondAPIError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, categories)
}

func (h *Handlers) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.catalog.InvalidateCache()
	respondJSON(w, http.StatusOK, map[string]string{"message": "Cache invalidated"})
}

// GetCatalogStatus reports the shared loading/error broadcast state.
func (h *Handlers) GetCatalogStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"loading": h.catalog.Loading().Get(),
		"error":   h.catalog.Err().Get(),
	})
}

// Live View Handlers

// UpdateCriteria feeds one criteria edit into the composer. The composed
// result arrives on the view stream once the debounce window settles.
func (h *Handlers) UpdateCriteria(w http.ResponseWriter, r *http.Request) {
	var criteria query.Criteria
	if err := json.NewDecoder(r.Body).Decode(&criteria); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.composer.Update(criteria)
	respondJSON(w, http.StatusAccepted, map[string]string{"message": "Criteria accepted"})
}

// StreamView serves the composed product view as server-sent events: the
// current view immediately, then every recomposition.
func (h *Handlers) StreamView(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	results, cancel := h.composer.Results().Subscribe()
	defer cancel()

	for {
		select {
		case <-r.Context().Done():
			return
		case products := <-results:
			if products == nil {
				products = []product.Product{}
			}
			data, err := json.Marshal(products)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Cart Handlers

type cartResponse struct {
	Items   []cart.Item  `json:"items"`
	Summary cart.Summary `json:"summary"`
}

func (h *Handlers) cartState() cartResponse {
	items := h.cart.Items()
	if items == nil {
		items = []cart.Item{}
	}
	return cartResponse{Items: items, Summary: h.cart.Summary()}
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Product  product.Product `json:"product"`
		Quantity int             `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	if err := h.cart.Add(req.Product, req.Quantity); err != nil {
		if errors.Is(err, cart.ErrInvalidProduct) || errors.Is(err, cart.ErrInvalidQuantity) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(extractPathParam(r.URL.Path, "/cart/items/"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.cart.SetQuantity(id, req.Quantity)
	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handlers) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(extractPathParam(r.URL.Path, "/cart/items/"))
	if err != nil {
		http.Error(w, "invalid product id", http.StatusBadRequest)
		return
	}

	h.cart.Remove(id)
	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.cart.Clear()
	respondJSON(w, http.StatusOK, h.cartState())
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Helpers

func parseCriteria(r *http.Request) (query.Criteria, error) {
	q := r.URL.Query()
	criteria := query.Criteria{
		SearchTerm: q.Get("search"),
		Category:   q.Get("category"),
		SortBy:     query.SortField(q.Get("sort_by")),
		SortOrder:  query.SortOrder(q.Get("sort_order")),
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return query.Criteria{}, fmt.Errorf("invalid limit %q", raw)
		}
		criteria.Limit = limit
	}
	if raw := q.Get("min_price"); raw != "" {
		bound, err := decimal.NewFromString(raw)
		if err != nil {
			return query.Criteria{}, fmt.Errorf("invalid min_price %q", raw)
		}
		criteria.MinPrice = &bound
	}
	if raw := q.Get("max_price"); raw != "" {
		bound, err := decimal.NewFromString(raw)
		if err != nil {
			return query.Criteria{}, fmt.Errorf("invalid max_price %q", raw)
		}
		criteria.MaxPrice = &bound
	}
	return criteria, nil
}

// respondAPIError maps a classified catalog error onto an HTTP response,
// keeping the taxonomy visible to the UI.
func respondAPIError(w http.ResponseWriter, err error) {
	apiErr := catalog.AsError(err)
	status := apiErr.Status
	if status == 0 {
		switch apiErr.Code {
		case catalog.CodeNetworkError:
			status = http.StatusBadGateway
		default:
			status = http.StatusInternalServerError
		}
	}
	respondJSON(w, status, apiErr)
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractPathParam(path, prefix string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, prefix), "/")
}
