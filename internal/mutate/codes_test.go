package mutate

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

func TestCode(t *testing.T) {
	siblings := []model.Variant{
		{ID: 11, SKU: ""},
		{ID: 12, SKU: "TEN-AZ-38"},
		{ID: 13, SKU: "x"},
	}

	tests := []struct {
		name   string
		cur    string
		v      model.Variant
		change model.Change
		want   string
	}{
		{"set sku", "old", model.Variant{ID: 13}, model.Change{Action: model.ActionSetSKU, Value: model.P(" ABC-1 ")}, "ABC-1"},
		{"set barcode", "", model.Variant{ID: 13}, model.Change{Action: model.ActionSetBarcode, Value: model.P("7891234567890")}, "7891234567890"},
		{"generate", "", model.Variant{ID: 13}, model.Change{Action: model.ActionGenerateSKU}, "500-13"},
		{"inherit from sibling", "", model.Variant{ID: 13}, model.Change{Action: model.ActionInheritSKU}, "TEN-13"},
		{"sanitize", "ab-12 /c", model.Variant{ID: 13}, model.Change{Action: model.ActionSanitizeCodes}, "AB12C"},
		{"clear", "ABC", model.Variant{ID: 13}, model.Change{Action: model.ActionClearCode}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.change.Field = model.FieldSKU
			got, err := Code(tt.cur, 500, tt.v, siblings, tt.change)
			if err != nil {
				t.Fatalf("Code() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Code() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCode_InheritWithoutSiblingKeepsCurrent(t *testing.T) {
	got, err := Code("KEEP", 1, model.Variant{ID: 2}, []model.Variant{{ID: 2, SKU: "SELF-2"}}, model.Change{Field: model.FieldSKU, Action: model.ActionInheritSKU})
	if err != nil {
		t.Fatal(err)
	}
	if got != "KEEP" {
		t.Errorf("Code() = %q, want KEEP", got)
	}
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestDimensions(t *testing.T) {
	base := model.Variant{
		Weight: decimal.RequireFromString("0.5"),
		Height: decimal.RequireFromString("10"),
		Width:  decimal.RequireFromString("20"),
		Depth:  decimal.RequireFromString("30"),
	}

	tests := []struct {
		name   string
		change model.Change
		want   [4]string // weight, height, width, depth
	}{
		{
			"set only named",
			model.Change{Field: model.FieldLogistics, Action: model.ActionSetDimensions, Dimensions: &model.Dimensions{Weight: dec("1.2")}},
			[4]string{"1.2", "10", "20", "30"},
		},
		{
			"add precise",
			model.Change{Field: model.FieldLogistics, Action: model.ActionAddToDimensions, Dimensions: &model.Dimensions{Weight: dec("0.1"), Height: dec("0.2")}},
			[4]string{"0.6", "10.2", "20", "30"},
		},
		{
			"add clamps at zero",
			model.Change{Field: model.FieldLogistics, Action: model.ActionAddToDimensions, Dimensions: &model.Dimensions{Depth: dec("-50")}},
			[4]string{"0.5", "10", "20", "0"},
		},
		{
			"single field add",
			model.Change{Field: model.FieldWidth, Action: model.ActionAdd, Value: model.P("2.5")},
			[4]string{"0.5", "10", "22.5", "30"},
		},
		{
			"single field set",
			model.Change{Field: model.FieldWeight, Action: model.ActionSet, Value: model.P(2)},
			[4]string{"2", "10", "20", "30"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Dimensions(base, tt.change)
			if err != nil {
				t.Fatalf("Dimensions() error = %v", err)
			}
			gotDims := [4]decimal.Decimal{got.Weight, got.Height, got.Width, got.Depth}
			for i, w := range tt.want {
				if !gotDims[i].Equal(decimal.RequireFromString(w)) {
					t.Errorf("dimension %d = %s, want %s", i, gotDims[i], w)
				}
			}
		})
	}
}

func TestDimensions_RequiresValues(t *testing.T) {
	_, err := Dimensions(model.Variant{}, model.Change{Field: model.FieldLogistics, Action: model.ActionSetDimensions})
	if !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
}

func TestFreeShipping(t *testing.T) {
	on, err := FreeShipping(model.Change{Action: model.ActionSetFreeShipping})
	if err != nil || !on {
		t.Errorf("FreeShipping(no value) = %v, %v; want true", on, err)
	}
	off, err := FreeShipping(model.Change{Action: model.ActionSetFreeShipping, Value: model.P(false)})
	if err != nil || off {
		t.Errorf("FreeShipping(false) = %v, %v; want false", off, err)
	}
}

func TestDemographics(t *testing.T) {
	str := func(s string) *string { return &s }
	base := model.Variant{MPN: "M1", NCM: "6403", Gender: "male", AgeGroup: "adult"}

	got, err := Demographics(base, model.Change{Action: model.ActionSet, Demographics: &model.Demographics{Gender: str("female")}})
	if err != nil {
		t.Fatal(err)
	}
	if got.Gender != "female" || got.MPN != "M1" || got.NCM != "6403" || got.AgeGroup != "adult" {
		t.Errorf("SET touched absent fields: %+v", got)
	}

	got, err = Demographics(base, model.Change{Action: model.ActionClear, Demographics: &model.Demographics{NCM: str("")}})
	if err != nil {
		t.Fatal(err)
	}
	if got.NCM != "" || got.MPN != "M1" || got.Gender != "male" {
		t.Errorf("CLEAR touched unnamed fields: %+v", got)
	}
}
