package mutate

import (
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

func money(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestPrice(t *testing.T) {
	none := decimal.NullDecimal{}

	tests := []struct {
		name    string
		cur     decimal.NullDecimal
		cost    decimal.NullDecimal
		change  model.Change
		want    string // "" means null
		wantErr error
	}{
		{"set", money("10"), none, model.Change{Field: model.FieldPrice, Action: model.ActionSet, Value: model.P("49.9")}, "49.9", nil},
		{"increase percent", money("100"), none, model.Change{Field: model.FieldPrice, Action: model.ActionIncreasePercent, Value: model.P(10)}, "110", nil},
		{"decrease percent", money("100"), none, model.Change{Field: model.FieldPrice, Action: model.ActionDecreasePercent, Value: model.P(15)}, "85", nil},
		{"increase fixed", money("19.90"), none, model.Change{Field: model.FieldPrice, Action: model.ActionIncreaseFixed, Value: model.P("5.10")}, "25", nil},
		{"decrease fixed clamps at zero", money("10"), none, model.Change{Field: model.FieldPrice, Action: model.ActionDecreaseFixed, Value: model.P(30)}, "0", nil},
		{"markup", money("10"), money("40"), model.Change{Field: model.FieldPrice, Action: model.ActionApplyMarkup, Value: model.P(50)}, "60", nil},
		{"markup without cost", money("10"), none, model.Change{Field: model.FieldPrice, Action: model.ActionApplyMarkup, Value: model.P(50)}, "10", model.ErrMissingCost},
		{"markup zero cost", money("10"), money("0"), model.Change{Field: model.FieldPrice, Action: model.ActionApplyMarkup, Value: model.P(50)}, "10", model.ErrMissingCost},
		{"rounding .90", money("100"), none, model.Change{Field: model.FieldPrice, Action: model.ActionIncreasePercent, Value: model.P(7), Rounding: ".90"}, "107.9", nil},
		{"rounding 99", money("52.30"), none, model.Change{Field: model.FieldPrice, Action: model.ActionSet, Value: model.P("52.30"), Rounding: "99"}, "52.99", nil},
		{"rounding .00", money("52.75"), none, model.Change{Field: model.FieldPrice, Action: model.ActionIncreaseFixed, Value: model.P(0), Rounding: "0.00"}, "52", nil},
		{"safety lock clamps to cost", money("100"), money("80"), model.Change{Field: model.FieldPrice, Action: model.ActionDecreasePercent, Value: model.P(40), SafetyLock: true}, "80", nil},
		{"no safety lock goes below cost", money("100"), money("80"), model.Change{Field: model.FieldPrice, Action: model.ActionDecreasePercent, Value: model.P(40)}, "60", nil},
		{"result rounded to cents", money("9.99"), none, model.Change{Field: model.FieldPrice, Action: model.ActionIncreasePercent, Value: model.P(3)}, "10.29", nil},
		{"remove promotional", money("79.90"), none, model.Change{Field: model.FieldPromotionalPrice, Action: model.ActionRemove}, "", nil},
		{"percent on unset promotional keeps null", none, none, model.Change{Field: model.FieldPromotionalPrice, Action: model.ActionDecreasePercent, Value: model.P(10)}, "", nil},
		{"set promotional", none, none, model.Change{Field: model.FieldPromotionalPrice, Action: model.ActionSet, Value: model.P("39.90")}, "39.9", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Price(tt.cur, tt.cost, tt.change)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Price() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Price() error = %v", err)
			}
			if tt.want == "" {
				if got.Valid {
					t.Errorf("Price() = %s, want null", got.Decimal)
				}
				return
			}
			if !got.Valid || !got.Decimal.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Price() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestPrice_InvalidInput(t *testing.T) {
	_, err := Price(money("10"), decimal.NullDecimal{}, model.Change{Field: model.FieldPrice, Action: model.ActionSet, Value: model.P("barato")})
	if !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
	_, err = Price(money("10"), decimal.NullDecimal{}, model.Change{Field: model.FieldPrice, Action: model.ActionSet, Value: model.P(1), Rounding: "abc"})
	if !errors.Is(err, model.ErrInvalidRequest) {
		t.Errorf("error = %v, want ErrInvalidRequest", err)
	}
	_, err = Price(money("10"), decimal.NullDecimal{}, model.Change{Field: model.FieldPrice, Action: model.ActionRemove})
	if err == nil {
		t.Error("REMOVE on price should be rejected")
	}
}

// A 40% discount with the safety lock never lands below cost, whatever the
// starting price, cost or rounding.
func TestPrice_SafetyLockProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("discounted price is never below cost", prop.ForAll(
		func(priceCents, costCents int64, rounding string) bool {
			price := decimal.New(priceCents, -2)
			cost := decimal.New(costCents, -2)
			got, err := Price(decimal.NewNullDecimal(price), decimal.NewNullDecimal(cost), model.Change{
				Field:      model.FieldPrice,
				Action:     model.ActionDecreasePercent,
				Value:      model.P(40),
				SafetyLock: true,
				Rounding:   rounding,
			})
			return err == nil && got.Valid && got.Decimal.GreaterThanOrEqual(cost)
		},
		gen.Int64Range(0, 1_000_000),
		gen.Int64Range(0, 1_000_000),
		gen.OneConstOf("", ".90", ".99", ".00"),
	))

	properties.TestingRun(t)
}

func TestStock(t *testing.T) {
	intp := func(n int) *int { return &n }

	tests := []struct {
		name   string
		cur    *int
		change model.Change
		want   *int
	}{
		{"set", intp(12), model.Change{Field: model.FieldStock, Action: model.ActionSet, Value: model.P(0)}, intp(0)},
		{"set on unlimited", nil, model.Change{Field: model.FieldStock, Action: model.ActionSet, Value: model.P(5)}, intp(5)},
		{"add", intp(3), model.Change{Field: model.FieldStock, Action: model.ActionAdd, Value: model.P(4)}, intp(7)},
		{"subtract clamps", intp(3), model.Change{Field: model.FieldStock, Action: model.ActionAdd, Value: model.P(-10)}, intp(0)},
		{"add to unlimited stays unlimited", nil, model.Change{Field: model.FieldStock, Action: model.ActionAdd, Value: model.P(4)}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Stock(tt.cur, tt.change)
			if err != nil {
				t.Fatalf("Stock() error = %v", err)
			}
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("Stock() = %d, want nil", *got)
			case tt.want != nil && (got == nil || *got != *tt.want):
				t.Errorf("Stock() = %v, want %d", got, *tt.want)
			}
		})
	}
}
