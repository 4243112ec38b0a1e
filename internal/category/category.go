// Package category resolves category names against a store's category tree
// and performs the structural edits (rename, move, delete).
package category

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"storepilot/internal/adapter"
	"storepilot/internal/model"
	"storepilot/internal/mutate"
)

// pageSize is the page size requested when listing the tree; a shorter page
// ends the listing.
const pageSize = 200

// Cache holds one store's category tree for the lifetime of a run. It is
// filled on first lookup and only grows through nodes created by the same
// run. A Cache must not be shared between stores.
type Cache struct {
	mu     sync.Mutex
	loaded bool
	nodes  []model.Category
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

func (c *Cache) snapshot() ([]model.Category, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.loaded {
		return nil, false
	}
	return append([]model.Category(nil), c.nodes...), true
}

func (c *Cache) fill(nodes []model.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nodes = nodes
	c.loaded = true
}

func (c *Cache) put(cat model.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.nodes {
		if c.nodes[i].ID == cat.ID {
			c.nodes[i] = cat
			return
		}
	}
	c.nodes = append(c.nodes, cat)
}

func (c *Cache) remove(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.nodes {
		if c.nodes[i].ID == id {
			c.nodes = append(c.nodes[:i], c.nodes[i+1:]...)
			return
		}
	}
}

// Manager operates on one store's category tree.
type Manager struct {
	platform adapter.Platform
	cache    *Cache
	logger   *slog.Logger
}

// NewManager creates a manager. A nil cache gets a fresh one.
func NewManager(platform adapter.Platform, cache *Cache, logger *slog.Logger) *Manager {
	if cache == nil {
		cache = NewCache()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{platform: platform, cache: cache, logger: logger}
}

// ListAll returns the whole tree, fetching it page by page on first use.
func (m *Manager) ListAll(ctx context.Context) ([]model.Category, error) {
	if nodes, ok := m.cache.snapshot(); ok {
		return nodes, nil
	}

	var all []model.Category
	for page := 1; ; page++ {
		batch, err := m.platform.ListCategories(ctx, page, pageSize)
		if err != nil {
			return nil, fmt.Errorf("listing categories page %d: %w", page, err)
		}
		all = append(all, batch...)
		if len(batch) < pageSize {
			break
		}
	}

	m.cache.fill(all)
	m.logger.Debug("category tree loaded", "nodes", len(all))
	return append([]model.Category(nil), all...), nil
}

// ExactMatch returns the node whose name equals name, ignoring case and
// surrounding space, or nil when there is none.
func (m *Manager) ExactMatch(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	nodes, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if strings.EqualFold(strings.TrimSpace(n.Name), name) {
			found := n
			return &found, nil
		}
	}
	return nil, nil
}

// ResolveOrCreate returns the id of the category called name, creating it
// when absent. A named parent is resolved the same way and used for a newly
// created node; an existing node is returned wherever it sits.
func (m *Manager) ResolveOrCreate(ctx context.Context, name, parentName string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, model.NewValidationError("category_name", "is required")
	}

	existing, err := m.ExactMatch(ctx, name)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	var parent int64
	if strings.TrimSpace(parentName) != "" && !strings.EqualFold(strings.TrimSpace(parentName), name) {
		if parent, err = m.ResolveOrCreate(ctx, parentName, ""); err != nil {
			return 0, fmt.Errorf("resolving parent %q: %w", parentName, err)
		}
	}

	created, err := m.platform.CreateCategory(ctx, name, mutate.Slug(name), parent)
	if err != nil {
		return 0, fmt.Errorf("creating category %q: %w", name, err)
	}
	m.cache.put(*created)
	m.logger.Info("category created", "category_id", created.ID, "name", name, "parent", parent)
	return created.ID, nil
}

// Rename changes the name of an existing node.
func (m *Manager) Rename(ctx context.Context, name, newName string) (*model.Category, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, model.NewValidationError("new_name", "is required")
	}
	node, err := m.require(ctx, name)
	if err != nil {
		return nil, err
	}

	node.Name = newName
	if err := m.platform.UpdateCategory(ctx, *node); err != nil {
		return nil, fmt.Errorf("renaming category %d: %w", node.ID, err)
	}
	m.cache.put(*node)
	return node, nil
}

// Move reparents an existing node. An empty newParentName moves it to the
// root. A node cannot be moved under itself or one of its descendants.
func (m *Manager) Move(ctx context.Context, name, newParentName string) (*model.Category, error) {
	node, err := m.require(ctx, name)
	if err != nil {
		return nil, err
	}

	var parent int64
	if strings.TrimSpace(newParentName) != "" {
		p, err := m.require(ctx, newParentName)
		if err != nil {
			return nil, err
		}
		parent = p.ID
	}

	nodes, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if parent != 0 && isDescendant(nodes, parent, node.ID) {
		return nil, model.NewValidationError("new_parent_name", "cannot move a category under itself")
	}

	node.Parent = parent
	if err := m.platform.UpdateCategory(ctx, *node); err != nil {
		return nil, fmt.Errorf("moving category %d: %w", node.ID, err)
	}
	m.cache.put(*node)
	return node, nil
}

// Delete removes an existing node.
func (m *Manager) Delete(ctx context.Context, name string) (*model.Category, error) {
	node, err := m.require(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := m.platform.DeleteCategory(ctx, node.ID); err != nil {
		return nil, fmt.Errorf("deleting category %d: %w", node.ID, err)
	}
	m.cache.remove(node.ID)
	return node, nil
}

// require resolves name to an existing node or fails with NotFound.
func (m *Manager) require(ctx context.Context, name string) (*model.Category, error) {
	node, err := m.ExactMatch(ctx, name)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, model.NewNotFoundError(fmt.Sprintf("category %q", strings.TrimSpace(name)))
	}
	return node, nil
}

// isDescendant reports whether id is ancestor itself or sits below it.
func isDescendant(nodes []model.Category, id, ancestor int64) bool {
	parents := make(map[int64]int64, len(nodes))
	for _, n := range nodes {
		parents[n.ID] = n.Parent
	}
	for steps := 0; id != 0 && steps <= len(nodes); steps++ {
		if id == ancestor {
			return true
		}
		id = parents[id]
	}
	return false
}
