// Package filter resolves a plan's find_product clause against the local
// mirror.
//
// Matching is two-phase. The SQL phase is a broad case-insensitive
// substring match; in loose mode the candidates are then refined in process
// so that every title token matches a whole word of the name ("3" does not
// match inside "36").
package filter

import (
	"context"
	"log/slog"
	"strings"

	"storepilot/internal/mirror"
	"storepilot/internal/model"
	"storepilot/internal/mutate"
)

// Mode selects the matching discipline.
type Mode int

const (
	// Loose matches each title token as a whole word, in any order.
	Loose Mode = iota
	// Strict matches the title as one substring, preserving word order.
	Strict
	// SEO matches title tokens as substrings only.
	SEO
)

func (m Mode) String() string {
	switch m {
	case Strict:
		return "strict"
	case SEO:
		return "seo"
	}
	return "loose"
}

// ModeFor picks the mode a plan should be resolved with.
func ModeFor(p *model.Plan) Mode {
	if p.Modifications != nil {
		return SEO
	}
	if p.FindProduct.Sequential {
		return Strict
	}
	return Loose
}

// Source is the query side of the mirror.
type Source interface {
	FindProducts(ctx context.Context, q mirror.ProductQuery) ([]model.Product, error)
}

// Resolver resolves filter clauses for one mirror.
type Resolver struct {
	source Source
	logger *slog.Logger
}

// NewResolver creates a resolver.
func NewResolver(source Source, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{source: source, logger: logger}
}

// Resolve returns the products of storeID matching clause. An empty result
// is not an error.
func (r *Resolver) Resolve(ctx context.Context, storeID string, clause model.FindProduct, mode Mode) ([]model.Product, error) {
	q := Query(storeID, clause, mode)
	candidates, err := r.source.FindProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	out := candidates
	if mode == Loose {
		out = Refine(candidates, clause.TitleContains)
	}

	r.logger.Debug("filter resolved",
		"store_id", storeID,
		"mode", mode.String(),
		"title_contains", clause.TitleContains,
		"candidates", len(candidates),
		"matched", len(out),
	)
	return out, nil
}

// Query builds the SQL phase of a filter. Blank or malformed parts of the
// clause impose no constraint.
func Query(storeID string, clause model.FindProduct, mode Mode) mirror.ProductQuery {
	q := mirror.ProductQuery{
		StoreID:  storeID,
		Category: strings.TrimSpace(clause.CategoryContains),
		Exclude:  clause.ExcludeTerms,
	}
	if clause.StockMin != nil && *clause.StockMin > 0 {
		n := *clause.StockMin
		q.StockMin = &n
	}

	title := strings.TrimSpace(clause.TitleContains)
	if title == "" {
		return q
	}
	if mode == Strict {
		q.NameTerms = []string{title}
	} else {
		q.AnyTerms = strings.Fields(title)
	}
	return q
}

// Refine keeps the products whose name contains every token of title as a
// whole word.
func Refine(products []model.Product, title string) []model.Product {
	tokens := strings.Fields(title)
	if len(tokens) == 0 {
		return products
	}

	out := make([]model.Product, 0, len(products))
	for _, p := range products {
		if matchesAll(p.Name, tokens) {
			out = append(out, p)
		}
	}
	return out
}

func matchesAll(name string, tokens []string) bool {
	for _, t := range tokens {
		if !mutate.ContainsWord(name, t) {
			return false
		}
	}
	return true
}
