// Package nuvemshop implements adapter.Platform against the Nuvemshop
// (Tiendanube) REST API.
package nuvemshop

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"storepilot/internal/adapter"
	"storepilot/internal/model"
	"storepilot/internal/transport"
)

// =============================================================================
// NUVEMSHOP API CLIENT
// =============================================================================
//
// Every call is scoped to one store: https://api.tiendanube.com/v1/{store_id}.
// Authentication uses the store's OAuth access token in a non-standard
// header, "Authentication: bearer <token>", and the API rejects requests
// without an identifying User-Agent.
//
// Rate limiting:
//  1. A per-store token bucket throttles writes before they leave (see
//     transport.Throttle).
//  2. Each response reports the remaining quota; when it hits zero the client
//     holds further calls until the reported reset.
// =============================================================================

const (
	// DefaultBaseURL is the production API root (without store id).
	DefaultBaseURL = "https://api.tiendanube.com/v1"

	defaultUserAgent = "StorePilot (suporte@storepilot.app)"
	defaultLanguage  = "pt"
	requestTimeout   = 30 * time.Second
)

// Config holds per-store client configuration.
type Config struct {
	BaseURL     string
	StoreID     string
	AccessToken string
	UserAgent   string
	Language    string // language key used for localized fields

	// HTTPClient overrides the default Chrome-fingerprint client.
	HTTPClient *http.Client
	// Limiter throttles writes; nil disables client-side throttling.
	Limiter *rate.Limiter
	Logger  *slog.Logger
}

// Client is the Nuvemshop API HTTP client for one store.
type Client struct {
	httpClient *http.Client
	baseURL    string
	storeID    string
	token      string
	userAgent  string
	lang       string
	logger     *slog.Logger

	mu       sync.Mutex
	resumeAt time.Time
}

// New creates a Nuvemshop client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.StoreID == "" {
		return nil, fmt.Errorf("store ID is required")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}

	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	lang := cfg.Language
	if lang == "" {
		lang = defaultLanguage
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   requestTimeout,
			Transport: transport.NewChromeTransport(requestTimeout),
		}
	}
	if cfg.Limiter != nil {
		throttled := *httpClient
		throttled.Transport = transport.Throttle(httpClient.Transport, cfg.Limiter)
		httpClient = &throttled
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimSuffix(base, "/") + "/" + url.PathEscape(cfg.StoreID),
		storeID:    cfg.StoreID,
		token:      cfg.AccessToken,
		userAgent:  ua,
		lang:       lang,
		logger:     logger,
	}, nil
}

// === Products ===

// GetProduct fetches a product with its variants.
func (c *Client) GetProduct(ctx context.Context, productID int64) (*model.CatalogProduct, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/products/"+model.FormatID(productID), nil)
	if err != nil {
		return nil, fmt.Errorf("creating get product request: %w", err)
	}

	var resp Product
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return productFromWire(&resp, c.lang), nil
}

// UpdateProduct writes the non-nil fields of patch.
func (c *Client) UpdateProduct(ctx context.Context, productID int64, patch model.ProductPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	req, err := c.newRequest(ctx, http.MethodPut, "/products/"+model.FormatID(productID), patchToWire(patch, c.lang))
	if err != nil {
		return fmt.Errorf("creating update product request: %w", err)
	}
	return c.do(req, nil)
}

// === Variants ===

// UpdateVariants pushes variants through the bulk endpoint, one request per
// chunk. The first failing chunk aborts the rest.
func (c *Client) UpdateVariants(ctx context.Context, productID int64, variants []model.Variant) error {
	batch := NewVariantBatch(productID, c.lang).UpdateAll(variants)
	if n := batch.OperationCount(); n < len(variants) {
		c.logger.Debug("skipping unsaved variants in bulk update",
			"store_id", c.storeID,
			"product_id", productID,
			"skipped", len(variants)-n,
		)
	}
	if !batch.HasOperations() {
		return nil
	}

	path := "/products/" + model.FormatID(productID) + "/variants"
	for _, chunk := range batch.Chunks(maxVariantBatch) {
		req, err := c.newRequest(ctx, http.MethodPut, path, chunk)
		if err != nil {
			return fmt.Errorf("creating bulk variant request: %w", err)
		}
		if err := c.do(req, nil); err != nil {
			return err
		}
	}
	return nil
}

// CreateVariant posts a new combination.
func (c *Client) CreateVariant(ctx context.Context, productID int64, v model.Variant) (*model.Variant, error) {
	body := variantToWire(v, c.lang)
	body.ID = 0

	req, err := c.newRequest(ctx, http.MethodPost, "/products/"+model.FormatID(productID)+"/variants", body)
	if err != nil {
		return nil, fmt.Errorf("creating create variant request: %w", err)
	}

	var resp Variant
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	created := variantFromWire(resp, c.lang)
	return &created, nil
}

// DeleteVariant removes a variant.
func (c *Client) DeleteVariant(ctx context.Context, productID, variantID int64) error {
	path := "/products/" + model.FormatID(productID) + "/variants/" + model.FormatID(variantID)
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("creating delete variant request: %w", err)
	}
	return c.do(req, nil)
}

// === Categories ===

// ListCategories returns one page of categories.
func (c *Client) ListCategories(ctx context.Context, page, perPage int) ([]model.Category, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(perPage))

	req, err := c.newRequest(ctx, http.MethodGet, "/categories?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating list categories request: %w", err)
	}

	var resp []Category
	if err := c.do(req, &resp); err != nil {
		// Past the last page the API answers 404 instead of an empty list.
		if page > 1 && errors.Is(err, model.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]model.Category, 0, len(resp))
	for _, cat := range resp {
		out = append(out, categoryFromWire(cat, c.lang))
	}
	return out, nil
}

// CreateCategory creates a category under parent (0 for root).
func (c *Client) CreateCategory(ctx context.Context, name, handle string, parent int64) (*model.Category, error) {
	body := categoryToWire(model.Category{Name: name, Handle: handle, Parent: parent}, c.lang)

	req, err := c.newRequest(ctx, http.MethodPost, "/categories", body)
	if err != nil {
		return nil, fmt.Errorf("creating create category request: %w", err)
	}

	var resp Category
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	created := categoryFromWire(resp, c.lang)
	return &created, nil
}

// UpdateCategory writes name and parent of an existing category.
func (c *Client) UpdateCategory(ctx context.Context, cat model.Category) error {
	body := categoryToWire(cat, c.lang)
	body.ID = 0

	req, err := c.newRequest(ctx, http.MethodPut, "/categories/"+model.FormatID(cat.ID), body)
	if err != nil {
		return fmt.Errorf("creating update category request: %w", err)
	}
	return c.do(req, nil)
}

// DeleteCategory removes a category.
func (c *Client) DeleteCategory(ctx context.Context, categoryID int64) error {
	req, err := c.newRequest(ctx, http.MethodDelete, "/categories/"+model.FormatID(categoryID), nil)
	if err != nil {
		return fmt.Errorf("creating delete category request: %w", err)
	}
	return c.do(req, nil)
}

// === HTTP Helpers ===

// newRequest creates a request with the store's access token.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Authentication", "bearer "+c.token)

	return req, nil
}

// do waits out any exhausted quota, executes the request and decodes the
// response.
func (c *Client) do(req *http.Request, result any) error {
	if err := c.waitQuota(req.Context()); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.NewUpstreamError("Nuvemshop", err)
	}
	defer resp.Body.Close()

	c.observeQuota(resp.Header)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return c.parseError(resp.StatusCode, body)
	}

	if result != nil && len(body) > 0 {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("parsing response: %w", err)
		}
	}
	return nil
}

// waitQuota blocks until the reset reported by an earlier response.
func (c *Client) waitQuota(ctx context.Context) error {
	c.mu.Lock()
	wait := time.Until(c.resumeAt)
	c.mu.Unlock()
	if wait <= 0 {
		return nil
	}

	c.logger.Debug("nuvemshop quota exhausted, waiting", "store_id", c.storeID, "wait", wait)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) observeQuota(h http.Header) {
	rl, ok := parseRateLimit(h)
	if !ok || rl.Remaining > 0 || rl.Reset <= 0 {
		return
	}
	c.mu.Lock()
	c.resumeAt = time.Now().Add(rl.Reset)
	c.mu.Unlock()
}

// parseError converts Nuvemshop API errors to model.APIError.
func (c *Client) parseError(statusCode int, body []byte) error {
	var nsErr ErrorResponse
	json.Unmarshal(body, &nsErr) // Best effort parse

	msg := nsErr.Message
	if d, ok := nsErr.Description.(string); ok && d != "" {
		msg = d
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}

	switch statusCode {
	case 401:
		return model.NewUnauthorizedError("Nuvemshop authentication failed")
	case 403:
		return model.NewUnauthorizedError("Nuvemshop access denied")
	case 404:
		return model.NewNotFoundError("resource")
	case 422:
		return model.NewUnprocessableError(msg)
	case 429:
		return model.NewRateLimitError("Nuvemshop")
	case 400:
		return model.NewValidationError("request", msg)
	default:
		return model.NewUpstreamError("Nuvemshop", fmt.Errorf("status %d: %s", statusCode, msg))
	}
}

// Verify Client implements Platform interface at compile time.
var _ adapter.Platform = (*Client)(nil)
