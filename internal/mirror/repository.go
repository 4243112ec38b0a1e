package mirror

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"storepilot/internal/model"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

const productColumns = `id, external_id, store_id, name, price, stock, sku, cost, brand, tags,
	published, categories, variants`

// Repository reads and writes the mirror database.
type Repository struct {
	db *sqlx.DB
	q  *queries
}

// NewRepository wraps an open, migrated database.
func NewRepository(db *sqlx.DB) (*Repository, error) {
	q, err := loadQueries()
	if err != nil {
		return nil, err
	}
	return &Repository{db: db, q: q}, nil
}

// Ping checks the connection.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close releases the pool.
func (r *Repository) Close() error {
	return r.db.Close()
}

// === Stores ===

// GetStore returns the credentials of an installed store.
func (r *Repository) GetStore(ctx context.Context, storeID string) (*model.Store, error) {
	var s model.Store
	if err := r.q.get(ctx, r.db, "get-store", &s, storeID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("store")
		}
		return nil, fmt.Errorf("loading store: %w", err)
	}
	return &s, nil
}

// PutStore inserts or replaces a store's credentials.
func (r *Repository) PutStore(ctx context.Context, s model.Store) error {
	if s.Language == "" {
		s.Language = "pt"
	}
	if _, err := r.q.exec(ctx, r.db, "upsert-store", s.StoreID, s.AccessToken, s.Language); err != nil {
		return fmt.Errorf("saving store: %w", err)
	}
	return nil
}

// === Products ===

// ProductQuery selects mirror rows of one store. Term matching is a
// case-insensitive substring match; every listed term must match.
type ProductQuery struct {
	StoreID string
	// AnyTerms must each appear in the name, categories or variants blob.
	AnyTerms []string
	// NameTerms must each appear in the name.
	NameTerms []string
	Category  string
	Exclude   []string
	StockMin  *int
	Limit     int
}

// FindProducts returns the rows matching q ordered by platform id.
func (r *Repository) FindProducts(ctx context.Context, q ProductQuery) ([]model.Product, error) {
	var (
		where = []string{"store_id = ?"}
		args  = []any{q.StoreID}
	)
	for _, t := range nonEmpty(q.AnyTerms) {
		where = append(where, `(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(categories) LIKE ? ESCAPE '\' OR LOWER(variants) LIKE ? ESCAPE '\')`)
		p := likePattern(t)
		args = append(args, p, p, p)
	}
	for _, t := range nonEmpty(q.NameTerms) {
		where = append(where, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(t))
	}
	if c := strings.TrimSpace(q.Category); c != "" {
		where = append(where, `LOWER(categories) LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(c))
	}
	for _, t := range nonEmpty(q.Exclude) {
		where = append(where, `LOWER(name) NOT LIKE ? ESCAPE '\'`)
		args = append(args, likePattern(t))
	}
	if q.StockMin != nil {
		where = append(where, "stock >= ?")
		args = append(args, *q.StockMin)
	}

	query := "SELECT " + productColumns + " FROM products WHERE " +
		strings.Join(where, " AND ") + " ORDER BY external_id"
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	var out []model.Product
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("querying products: %w", err)
	}
	return out, nil
}

// GetProduct returns one mirror row by platform id.
func (r *Repository) GetProduct(ctx context.Context, storeID string, externalID int64) (*model.Product, error) {
	var p model.Product
	if err := r.q.get(ctx, r.db, "get-product", &p, storeID, externalID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("product")
		}
		return nil, fmt.Errorf("loading product: %w", err)
	}
	return &p, nil
}

// PutProducts upserts mirror rows, keyed by store and platform id.
func (r *Repository) PutProducts(ctx context.Context, products []model.Product) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		if _, err := r.q.exec(ctx, tx, "upsert-product",
			p.ExternalID, p.StoreID, p.Name, p.Price, p.Stock, p.SKU, p.Cost,
			p.Brand, p.Tags, p.Published, p.Categories, p.Variants,
		); err != nil {
			return fmt.Errorf("saving product %d: %w", p.ExternalID, err)
		}
	}
	return tx.Commit()
}

// === History ===

// Commit writes the mirror rows touched by a run together with its history
// entry. An empty log ID is filled with a UUIDv7 and a zero CreatedAt with
// the current time.
func (r *Repository) Commit(ctx context.Context, products []model.Product, log *model.HistoryLog) error {
	if log.ID == "" {
		log.ID = uuid.Must(uuid.NewV7()).String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, p := range products {
		if _, err := r.q.exec(ctx, tx, "update-product",
			p.Name, p.Price, p.Stock, p.SKU, p.Cost, p.Brand, p.Tags,
			p.Published, p.Categories, p.Variants,
			p.StoreID, p.ExternalID,
		); err != nil {
			return fmt.Errorf("updating product %d: %w", p.ExternalID, err)
		}
	}

	if _, err := r.q.exec(ctx, tx, "insert-history",
		log.ID, log.StoreID, log.Summary, log.PlanJSON, log.AffectedCount, log.Status, log.CreatedAt,
	); err != nil {
		return fmt.Errorf("inserting history: %w", err)
	}
	return tx.Commit()
}

// GetHistory returns one history entry of a store.
func (r *Repository) GetHistory(ctx context.Context, storeID, id string) (*model.HistoryLog, error) {
	var h model.HistoryLog
	if err := r.q.get(ctx, r.db, "get-history", &h, storeID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.NewNotFoundError("history entry")
		}
		return nil, fmt.Errorf("loading history: %w", err)
	}
	return &h, nil
}

// ListHistory returns the newest entries first. limit defaults to
// DefaultHistoryLimit and is capped at MaxHistoryLimit.
func (r *Repository) ListHistory(ctx context.Context, storeID string, limit int) ([]model.HistoryLog, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	limit = min(limit, MaxHistoryLimit)

	out := []model.HistoryLog{}
	if err := r.q.selectAll(ctx, r.db, "list-history", &out, storeID, limit); err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	return out, nil
}

// MarkReverted flips a SUCCESS entry to REVERTED. Entries in any other
// state are left alone and reported as a conflict.
func (r *Repository) MarkReverted(ctx context.Context, storeID, id string) error {
	res, err := r.q.exec(ctx, r.db, "mark-history-reverted", storeID, id)
	if err != nil {
		return fmt.Errorf("updating history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating history: %w", err)
	}
	if n == 0 {
		return model.NewConflictError("history entry is not in SUCCESS state", nil)
	}
	return nil
}

// likePattern lowercases t and escapes LIKE wildcards.
func likePattern(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	t = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(t)
	return "%" + t + "%"
}

func nonEmpty(terms []string) []string {
	out := terms[:0:0]
	for _, t := range terms {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
