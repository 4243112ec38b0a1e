package variant

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"storepilot/internal/adapter"
	"storepilot/internal/model"
)

func v(id int64, values ...string) model.Variant {
	stock := 5
	return model.Variant{ID: id, Price: decimal.NewFromInt(100), Stock: &stock, SKU: fmt.Sprintf("SKU-%d", id), Values: values}
}

func TestCombinations(t *testing.T) {
	variants := []model.Variant{
		v(1, "Azul", "P"),
		v(2, "Azul", "M"),
		v(3, "Vermelho", "P"),
	}

	got := Combinations(variants, 1, "GG")
	if len(got) != 2 {
		t.Fatalf("Combinations() = %d variants, want one per color", len(got))
	}
	for i, want := range [][]string{{"Azul", "GG"}, {"Vermelho", "GG"}} {
		if fmt.Sprint(got[i].Values) != fmt.Sprint(want) {
			t.Errorf("variant %d values = %v, want %v", i, got[i].Values, want)
		}
		if got[i].ID != 0 || got[i].SKU != "" {
			t.Errorf("clone must not carry id or sku: %+v", got[i])
		}
		if !got[i].Price.Equal(decimal.NewFromInt(100)) {
			t.Errorf("clone price = %v", got[i].Price)
		}
		if got[i].Stock == nil || *got[i].Stock != 0 {
			t.Errorf("clone stock = %v, want 0", got[i].Stock)
		}
	}

	if variants[0].Values[1] != "P" {
		t.Error("template values were mutated")
	}

	if got := Combinations(variants, 1, "p"); len(got) != 1 || got[0].Values[0] != "Azul" {
		t.Errorf("existing value should only fill missing combinations, got %+v", got)
	}
}

func TestCarrying(t *testing.T) {
	variants := []model.Variant{v(1, "Azul", "P"), v(2, "P", "M"), v(3, "Vermelho", "G")}
	if got := Carrying(variants, 1, "p"); len(got) != 1 || got[0].ID != 1 {
		t.Errorf("positional = %+v", got)
	}
	if got := Carrying(variants, -1, "p"); len(got) != 2 {
		t.Errorf("any position = %d, want 2", len(got))
	}
}

func TestSelect(t *testing.T) {
	p := &model.CatalogProduct{
		Attributes: []string{"Cor", "Tamanho"},
		Variants:   []model.Variant{v(1, "Azul", "P"), v(2, "Azul", "M"), v(3, "Vermelho", "P")},
	}
	tests := []struct {
		name string
		cons []model.VariantConstraint
		want []int64
	}{
		{"none", nil, []int64{1, 2, 3}},
		{"by attribute", []model.VariantConstraint{{Name: "cor", Value: "azul"}}, []int64{1, 2}},
		{"conjunctive", []model.VariantConstraint{{Name: "Cor", Value: "Azul"}, {Name: "Tamanho", Value: "P"}}, []int64{1}},
		{"unnamed", []model.VariantConstraint{{Value: "P"}}, []int64{1, 3}},
		{"unknown attribute", []model.VariantConstraint{{Name: "Material", Value: "Algodão"}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Select(p, tt.cons)
			var ids []int64
			for _, g := range got {
				ids = append(ids, g.ID)
			}
			if fmt.Sprint(ids) != fmt.Sprint(tt.want) {
				t.Errorf("Select() = %v, want %v", ids, tt.want)
			}
		})
	}
}

func TestAddValue_RefusesMissingAttribute(t *testing.T) {
	created := 0
	mock := &adapter.Mock{
		CreateVariantFunc: func(_ context.Context, _ int64, v model.Variant) (*model.Variant, error) {
			created++
			return &v, nil
		},
	}
	p := &model.CatalogProduct{
		ID:         9,
		Attributes: []string{"Cor"},
		Variants:   []model.Variant{v(1, "Azul"), v(2, "Vermelho")},
	}

	res, err := NewManager(mock, nil).AddValue(context.Background(), p, "Tamanho", "GG")
	if !errors.Is(err, model.ErrAttributeMissing) {
		t.Fatalf("error = %v, want ErrAttributeMissing", err)
	}
	if created != 0 || res.Created != 0 {
		t.Errorf("created = %d, want 0", created)
	}
}

func TestAddValue(t *testing.T) {
	var posted [][]string
	mock := &adapter.Mock{
		CreateVariantFunc: func(_ context.Context, _ int64, v model.Variant) (*model.Variant, error) {
			if v.Values[0] == "Vermelho" {
				return nil, model.NewUnprocessableError("Variant values already exist")
			}
			posted = append(posted, v.Values)
			return &v, nil
		},
	}
	p := &model.CatalogProduct{
		ID:         9,
		Attributes: []string{"Cor", "Tamanho"},
		Variants:   []model.Variant{v(1, "Azul", "P"), v(2, "Vermelho", "P")},
	}

	res, err := NewManager(mock, nil).AddValue(context.Background(), p, "tamanho", "GG")
	if err != nil {
		t.Fatal(err)
	}
	if res.Created != 1 || res.Skipped != 1 || !res.Changed() {
		t.Errorf("result = %+v", res)
	}
	if len(posted) != 1 || fmt.Sprint(posted[0]) != "[Azul GG]" {
		t.Errorf("posted = %v", posted)
	}
}

func TestAddValue_NoVariants(t *testing.T) {
	var got model.Variant
	mock := &adapter.Mock{
		CreateVariantFunc: func(_ context.Context, _ int64, v model.Variant) (*model.Variant, error) {
			got = v
			return &v, nil
		},
	}
	res, err := NewManager(mock, nil).AddValue(context.Background(), &model.CatalogProduct{ID: 1}, "Cor", " Verde ")
	if err != nil || res.Created != 1 {
		t.Fatalf("AddValue() = %+v, %v", res, err)
	}
	if fmt.Sprint(got.Values) != "[Verde]" {
		t.Errorf("values = %v", got.Values)
	}
}

func TestAddValue_UpstreamFailureStops(t *testing.T) {
	mock := &adapter.Mock{
		CreateVariantFunc: func(context.Context, int64, model.Variant) (*model.Variant, error) {
			return nil, model.NewUpstreamError("Nuvemshop", errors.New("boom"))
		},
	}
	p := &model.CatalogProduct{Attributes: []string{"Cor"}, Variants: []model.Variant{v(1, "Azul")}}
	if _, err := NewManager(mock, nil).AddValue(context.Background(), p, "Cor", "Verde"); !errors.Is(err, model.ErrUpstreamError) {
		t.Errorf("error = %v", err)
	}
}

func TestRemoveValue(t *testing.T) {
	var deleted []int64
	mock := &adapter.Mock{
		DeleteVariantFunc: func(_ context.Context, _ int64, id int64) error {
			if id == 3 {
				return model.NewNotFoundError("variant")
			}
			deleted = append(deleted, id)
			return nil
		},
	}
	p := &model.CatalogProduct{
		Attributes: []string{"Cor", "Tamanho"},
		Variants:   []model.Variant{v(1, "Azul", "P"), v(2, "Vermelho", "G"), v(3, "azul", "G")},
	}

	res, err := NewManager(mock, nil).RemoveValue(context.Background(), p, "Cor", "AZUL")
	if err != nil {
		t.Fatal(err)
	}
	if res.Deleted != 1 || res.Skipped != 1 || fmt.Sprint(deleted) != "[1]" {
		t.Errorf("result = %+v, deleted = %v", res, deleted)
	}

	if _, err := NewManager(mock, nil).RemoveValue(context.Background(), p, "Cor", ""); !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("blank value error = %v", err)
	}
}

func TestMatrixEdits_NoOpWritesNothing(t *testing.T) {
	calls := 0
	mock := &adapter.Mock{
		CreateVariantFunc: func(_ context.Context, _ int64, v model.Variant) (*model.Variant, error) {
			calls++
			return &v, nil
		},
		DeleteVariantFunc: func(context.Context, int64, int64) error {
			calls++
			return nil
		},
	}
	p := &model.CatalogProduct{
		ID:         4,
		Attributes: []string{"Cor", "Tamanho"},
		Variants:   []model.Variant{v(1, "Azul", "P"), v(2, "Azul", "G")},
	}
	m := NewManager(mock, nil)

	res, err := m.AddValue(context.Background(), p, "Cor", "azul")
	if err != nil || res.Changed() || res.Skipped != 0 {
		t.Errorf("AddValue() = %+v, %v", res, err)
	}
	res, err = m.RemoveValue(context.Background(), p, "Cor", "Verde")
	if err != nil || res.Changed() || res.Skipped != 0 {
		t.Errorf("RemoveValue() = %+v, %v", res, err)
	}
	if calls != 0 {
		t.Errorf("platform called %d times, want 0", calls)
	}
}

func TestCombinations_CoverEveryOtherCombination(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	colors := []string{"Azul", "Verde", "Preto"}
	sizes := []string{"P", "M", "G", "GG"}

	properties.Property("after adding, every color has the new size exactly once", prop.ForAll(
		func(picks []int, target int) bool {
			var variants []model.Variant
			for i, p := range picks {
				variants = append(variants, v(int64(i+1), colors[p%len(colors)], sizes[(p/len(colors))%len(sizes)]))
			}
			newSize := sizes[target]
			all := append(variants, Combinations(variants, 1, newSize)...)

			counts := map[string]int{}
			colorsSeen := map[string]bool{}
			for _, x := range all {
				colorsSeen[x.Values[0]] = true
				if x.Values[1] == newSize {
					counts[x.Values[0]]++
				}
			}
			for c := range colorsSeen {
				if counts[c] < 1 {
					return false
				}
			}
			for _, x := range Combinations(variants, 1, newSize) {
				if counts[x.Values[0]] != 1 {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 11)),
		gen.IntRange(0, 3),
	))

	properties.TestingRun(t)
}
