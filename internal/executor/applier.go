package executor

import (
	"context"
	"log/slog"

	"golang.org/x/text/language"

	"storepilot/internal/adapter"
	"storepilot/internal/category"
	"storepilot/internal/model"
	"storepilot/internal/variant"
)

// Env is the per-run state shared by every product of a plan.
type Env struct {
	StoreID    string
	Plan       *model.Plan
	Platform   adapter.Platform
	Categories *category.Manager
	Variants   *variant.Manager
	Lang       language.Tag
	Logger     *slog.Logger

	// Parents holds the platform ids of every matched product, which are
	// never linked to one another.
	Parents map[int64]bool
	// Names resolves a free-text phrase to product ids of the store.
	Names func(ctx context.Context, phrase string) ([]int64, error)
}

// Target is one matched product: its mirror row and the remote state
// fetched just before applying.
type Target struct {
	Mirror model.Product
	Remote *model.CatalogProduct
}

// Applied is the outcome of a plan on one product. Mirror is the updated
// mirror row when any mirrored column changed.
type Applied struct {
	Changed bool
	Mirror  *model.Product
}

// Applier applies a plan mode to one product. Implementations compute from
// the remote state and write back only what differs, unless the action
// forces a write.
type Applier interface {
	Apply(ctx context.Context, env *Env, t *Target) (Applied, error)
}

// Skipper is implemented by appliers that can tell from the mirror alone
// that a product needs no write, saving the remote fetch.
type Skipper interface {
	Skip(env *Env, row model.Product) bool
}
