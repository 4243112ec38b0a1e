package mutate

import (
	"strings"

	"storepilot/internal/model"
)

const (
	// MaxRelated is the platform's limit on linked products.
	MaxRelated = 8
	// MaxNameCandidates caps how many ids one free-text phrase may resolve to.
	MaxNameCandidates = 20
)

// NamedProduct is a lookup candidate for name-based linking.
type NamedProduct struct {
	ID   int64
	Name string
}

// MatchNames resolves a phrase to candidate ids: every whitespace-separated
// word must appear somewhere in the name, in any order, ignoring case and
// accents.
func MatchNames(phrase string, candidates []NamedProduct) []int64 {
	words := strings.Fields(Fold(phrase))
	if len(words) == 0 {
		return nil
	}

	var out []int64
	for _, c := range candidates {
		name := Fold(c.Name)
		ok := true
		for _, w := range words {
			if !strings.Contains(name, w) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, c.ID)
			if len(out) == MaxNameCandidates {
				break
			}
		}
	}
	return out
}

// Related computes the new linked-product list. resolved holds the ids the
// plan targets, already looked up from names. Ids in parents (the products
// being edited) are never linked, and the result is capped at MaxRelated.
func Related(current, resolved []int64, c model.Change, parents map[int64]bool) ([]int64, error) {
	var merged []int64
	switch c.Action {
	case model.ActionSetRelated, model.ActionSet:
		merged = resolved
	case model.ActionAddRelated, model.ActionAdd:
		merged = append(append([]int64{}, resolved...), current...)
	case model.ActionClearRelated, model.ActionClear:
		return []int64{}, nil
	default:
		return current, unsupported(c)
	}

	out := make([]int64, 0, MaxRelated)
	seen := make(map[int64]bool)
	for _, id := range merged {
		if parents[id] || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
		if len(out) == MaxRelated {
			break
		}
	}
	return out, nil
}

// CategoryIDs applies a per-product category assignment of one resolved id.
func CategoryIDs(current []int64, action model.Action, id int64) ([]int64, error) {
	switch action {
	case model.ActionAdd:
		for _, c := range current {
			if c == id {
				return current, nil
			}
		}
		return append(append([]int64{}, current...), id), nil
	case model.ActionRemove:
		out := make([]int64, 0, len(current))
		for _, c := range current {
			if c != id {
				out = append(out, c)
			}
		}
		return out, nil
	case model.ActionSet:
		return []int64{id}, nil
	}
	return current, model.NewValidationError("category_rules.action", string(action)+" is not a per-product action")
}
