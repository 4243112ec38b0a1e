package model

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestPlan_Mode(t *testing.T) {
	tests := []struct {
		name     string
		plan     Plan
		wantKind ModeKind
		wantErr  bool
	}{
		{"changes", Plan{Changes: []Change{{Field: FieldTitle, Action: ActionAppend}}}, ModeField, false},
		{"category", Plan{CategoryRules: &CategoryRules{Action: ActionRename, CategoryName: "Tênis"}}, ModeCategory, false},
		{"seo", Plan{Modifications: &SEOModifications{TitleSuffix: "| Loja"}}, ModeSEO, false},
		{"variants", Plan{VariantRules: &VariantRules{Action: ActionAddValue}}, ModeVariantMatrix, false},
		{"empty", Plan{}, "", true},
		{"two modes", Plan{
			Changes:      []Change{{Field: FieldTitle, Action: ActionSet}},
			VariantRules: &VariantRules{Action: ActionRemoveValue},
		}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, err := tt.plan.Mode()
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRequest) {
					t.Fatalf("Mode() error = %v, want ErrInvalidRequest", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Mode() error = %v", err)
			}
			if mode.Kind() != tt.wantKind {
				t.Errorf("Kind() = %q, want %q", mode.Kind(), tt.wantKind)
			}
		})
	}
}

func TestPlan_ModeUsesFirstChange(t *testing.T) {
	p := Plan{Changes: []Change{
		{Field: FieldStock, Action: ActionSet},
		{Field: FieldPrice, Action: ActionSet},
	}}
	mode, err := p.Mode()
	if err != nil {
		t.Fatal(err)
	}
	fm, ok := mode.(FieldMode)
	if !ok {
		t.Fatalf("mode = %T, want FieldMode", mode)
	}
	if fm.Change.Field != FieldStock {
		t.Errorf("Field = %q, want stock", fm.Change.Field)
	}
}

func TestCategoryRules_Structural(t *testing.T) {
	for _, a := range []Action{ActionRename, ActionMoveTree, ActionDelete} {
		if !(CategoryRules{Action: a}).Structural() {
			t.Errorf("%s should be structural", a)
		}
	}
	for _, a := range []Action{ActionAdd, ActionRemove, ActionSet} {
		if (CategoryRules{Action: a}).Structural() {
			t.Errorf("%s should not be structural", a)
		}
	}
}

func TestPlan_Validate(t *testing.T) {
	tests := []struct {
		name    string
		plan    Plan
		wantErr bool
	}{
		{"valid field", Plan{Changes: []Change{{Field: FieldPrice, Action: ActionIncreasePercent, Value: P(10)}}}, false},
		{"schema v1", Plan{SchemaVersion: "1.2.0", Changes: []Change{{Field: FieldStock, Action: ActionSet}}}, false},
		{"schema v-prefixed", Plan{SchemaVersion: "v1.0.0", Changes: []Change{{Field: FieldStock, Action: ActionSet}}}, false},
		{"schema v2", Plan{SchemaVersion: "2.0.0", Changes: []Change{{Field: FieldStock, Action: ActionSet}}}, true},
		{"schema garbage", Plan{SchemaVersion: "latest", Changes: []Change{{Field: FieldStock, Action: ActionSet}}}, true},
		{"bad scope", Plan{Scope: "ORDER", Changes: []Change{{Field: FieldStock, Action: ActionSet}}}, true},
		{"unknown field", Plan{Changes: []Change{{Field: "color", Action: ActionSet}}}, true},
		{"action not allowed", Plan{Changes: []Change{{Field: FieldStock, Action: ActionAppend}}}, true},
		{"category missing name", Plan{CategoryRules: &CategoryRules{Action: ActionAdd}}, true},
		{"rename missing new name", Plan{CategoryRules: &CategoryRules{Action: ActionRename, CategoryName: "Tênis"}}, true},
		{"move", Plan{CategoryRules: &CategoryRules{Action: ActionMoveTree, CategoryName: "Tênis", NewParentName: "Calçados"}}, false},
		{"variant add without attribute", Plan{VariantRules: &VariantRules{Action: ActionAddValue, Value: "GG"}}, true},
		{"variant remove", Plan{VariantRules: &VariantRules{Action: ActionRemoveValue, Value: "GG"}}, false},
		{"seo", Plan{Modifications: &SEOModifications{TitlePrefix: "Oferta"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParam(t *testing.T) {
	var c Change
	raw := `{"field":"price","action":"SET","value":"12,50"}`
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatal(err)
	}
	d, err := c.Value.Decimal()
	if err != nil {
		t.Fatalf("Decimal() error = %v", err)
	}
	if d.String() != "12.5" {
		t.Errorf("Decimal() = %s, want 12.5", d)
	}

	tests := []struct {
		name    string
		raw     string
		wantStr string
		wantInt int
		wantSet bool
	}{
		{"number", `5`, "5", 5, true},
		{"string number", `"7"`, "7", 7, true},
		{"fraction truncates", `3.9`, "3.9", 3, true},
		{"null", `null`, "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Param
			if err := json.Unmarshal([]byte(tt.raw), &p); err != nil {
				t.Fatal(err)
			}
			if p.IsSet() != tt.wantSet {
				t.Errorf("IsSet() = %v, want %v", p.IsSet(), tt.wantSet)
			}
			if p.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", p.String(), tt.wantStr)
			}
			if !tt.wantSet {
				return
			}
			n, err := p.Int()
			if err != nil || n != tt.wantInt {
				t.Errorf("Int() = %d, %v; want %d", n, err, tt.wantInt)
			}
		})
	}
}

func TestParam_Bool(t *testing.T) {
	for raw, want := range map[string]bool{`true`: true, `"sim"`: true, `false`: false, `"0"`: false} {
		var p Param
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			t.Fatal(err)
		}
		got, err := p.Bool()
		if err != nil || got != want {
			t.Errorf("Bool(%s) = %v, %v; want %v", raw, got, err, want)
		}
	}
}

func TestPlan_RoundTripsThroughJSON(t *testing.T) {
	p := Plan{
		Scope:       ScopeProduct,
		FindProduct: FindProduct{TitleContains: "Jordan"},
		Changes:     []Change{{Field: FieldTitle, Action: ActionReplace, ReplaceThis: "Promoção", Value: P("")}},
	}
	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	var got Plan
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatal(err)
	}
	if got.Changes[0].ReplaceThis != "Promoção" || !got.Changes[0].Value.IsSet() || got.Changes[0].Value.String() != "" {
		t.Errorf("round trip lost change parameters: %+v", got.Changes[0])
	}
}

func TestPlan_Summary(t *testing.T) {
	p := Plan{
		FindProduct: FindProduct{TitleContains: "Jordan"},
		Changes:     []Change{{Field: FieldStock, Action: ActionSet, Value: P(0)}},
	}
	want := `stock SET "0" where title~"Jordan"`
	if got := p.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
