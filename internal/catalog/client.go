package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/example/storefront-engine/internal/domain/product"
)

// Client talks to the remote catalog API. The injected http.Client is the
// transport boundary: timeouts and any request-decorating interceptors
// (auth headers and the like) belong to it, not to this package.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Client for the API rooted at baseURL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// ListProducts fetches the full catalog, capped at limit when limit > 0.
func (c *Client) ListProducts(ctx context.Context, limit int) ([]product.Product, error) {
	path := "/products"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var products []product.Product
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct fetches a single product by id.
func (c *Client) GetProduct(ctx context.Context, id int) (product.Product, error) {
	var p product.Product
	if err := c.getJSON(ctx, "/products/"+strconv.Itoa(id), &p); err != nil {
		return product.Product{}, err
	}
	return p, nil
}

// ListCategories fetches the category names.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := c.getJSON(ctx, "/products/categories", &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

// ListByCategory fetches the products within one category.
func (c *Client) ListByCategory(ctx context.Context, category string) ([]product.Product, error) {
	var products []product.Product
	path := "/products/category/" + url.PathEscape(category)
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return &Error{
			Message: "Network error. Please check your connection.",
			Code:    CodeNetworkError,
			Details: err.Error(),
		}
	}
	req.Header.Set("Accept", "application/json")

	// Correlation id, sent with the request and echoed in failure logs.
	reqID := uuid.NewString()[:8]
	req.Header.Set("X-Request-Id", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		log.Printf("[Catalog] request %s GET %s failed: %v", reqID, path, err)
		return &Error{
			Message: "Network error. Please check your connection.",
			Code:    CodeNetworkError,
			Details: err.Error(),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := classifyStatus(resp.StatusCode, resp.Body)
		log.Printf("[Catalog] request %s GET %s: %s", reqID, path, apiErr.Code)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Message: "An unexpected error occurred.",
			Code:    CodeUnknownError,
			Details: fmt.Sprintf("decoding response: %v", err),
		}
	}
	return nil
}

// classifyStatus maps non-200 responses onto the error taxonomy, preferring
// the server-supplied message for unclassified statuses.
func classifyStatus(status int, body io.Reader) *Error {
	switch status {
	case http.StatusNotFound:
		return &Error{
			Message: "Product not found.",
			Status:  status,
			Code:    CodeNotFound,
		}
	case http.StatusInternalServerError:
		return &Error{
			Message: "Internal server error. Please try again later.",
			Status:  status,
			Code:    CodeServerError,
		}
	default:
		message := serverMessage(body)
		if message == "" {
			message = "An unexpected error occurred."
		}
		return &Error{
			Message: message,
			Status:  status,
			Code:    CodeUnknownError,
		}
	}
}

// serverMessage extracts a message from an error response body, accepting
// either {"message": "..."} or plain text.
func serverMessage(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	text := strings.TrimSpace(string(raw))
	if strings.HasPrefix(text, "{") || strings.HasPrefix(text, "[") {
		return ""
	}
	return text
}
