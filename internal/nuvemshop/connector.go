package nuvemshop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"storepilot/internal/adapter"
	"storepilot/internal/model"
	"storepilot/internal/transport"
)

// StoreLookup returns the credentials of an installed store.
type StoreLookup interface {
	GetStore(ctx context.Context, storeID string) (*model.Store, error)
}

// Connector builds per-store clients from stored credentials. Clients are
// cached per store and rebuilt when the access token changes. All clients
// of a store share one write limiter.
type Connector struct {
	stores   StoreLookup
	base     Config
	limiters *transport.Limiters
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[string]*cachedClient
}

type cachedClient struct {
	token  string
	client *Client
}

// NewConnector creates a connector. base supplies BaseURL, UserAgent,
// HTTPClient and the fallback Language; store fields are filled per call.
// limiters may be nil to disable throttling.
func NewConnector(stores StoreLookup, base Config, limiters *transport.Limiters, logger *slog.Logger) *Connector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Connector{
		stores:   stores,
		base:     base,
		limiters: limiters,
		logger:   logger,
		clients:  make(map[string]*cachedClient),
	}
}

// ForStore returns the client for storeID.
func (c *Connector) ForStore(ctx context.Context, storeID string) (adapter.Platform, error) {
	store, err := c.stores.GetStore(ctx, storeID)
	if err != nil {
		return nil, fmt.Errorf("loading store %s: %w", storeID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.clients[storeID]; ok && cached.token == store.AccessToken {
		return cached.client, nil
	}

	cfg := c.base
	cfg.StoreID = storeID
	cfg.AccessToken = store.AccessToken
	if store.Language != "" {
		cfg.Language = store.Language
	}
	cfg.Logger = c.logger.With("store_id", storeID)
	if c.limiters != nil {
		cfg.Limiter = c.limiters.For(storeID)
	}

	client, err := New(cfg)
	if err != nil {
		return nil, err
	}
	c.clients[storeID] = &cachedClient{token: store.AccessToken, client: client}
	return client, nil
}

// Verify Connector implements adapter.Connector at compile time.
var _ adapter.Connector = (*Connector)(nil)
