package mutate

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"storepilot/internal/model"
)

var hundred = decimal.NewFromInt(100)

// Price applies a pricing change to an amount. cur is null for an unset
// promotional price; cost is only consulted for APPLY_MARKUP and the safety
// lock.
//
// Steps run in a fixed order: compute, clamp at zero, snap to the rounding
// suffix, raise to cost when safety_lock is set, round to cents.
func Price(cur, cost decimal.NullDecimal, c model.Change) (decimal.NullDecimal, error) {
	var next decimal.Decimal

	switch c.Action {
	case model.ActionRemove:
		if c.Field != model.FieldPromotionalPrice {
			return cur, unsupported(c)
		}
		return decimal.NullDecimal{}, nil

	case model.ActionSet:
		v, err := c.Value.Decimal()
		if err != nil {
			return cur, model.NewValidationError("value", err.Error())
		}
		next = v

	case model.ActionIncreasePercent, model.ActionDecreasePercent:
		if !cur.Valid {
			return cur, nil
		}
		pct, err := c.Value.Decimal()
		if err != nil {
			return cur, model.NewValidationError("value", err.Error())
		}
		delta := cur.Decimal.Mul(pct).Div(hundred)
		if c.Action == model.ActionIncreasePercent {
			next = cur.Decimal.Add(delta)
		} else {
			next = cur.Decimal.Sub(delta)
		}

	case model.ActionIncreaseFixed, model.ActionDecreaseFixed:
		if !cur.Valid {
			return cur, nil
		}
		amount, err := c.Value.Decimal()
		if err != nil {
			return cur, model.NewValidationError("value", err.Error())
		}
		if c.Action == model.ActionIncreaseFixed {
			next = cur.Decimal.Add(amount)
		} else {
			next = cur.Decimal.Sub(amount)
		}

	case model.ActionApplyMarkup:
		if !cost.Valid || !cost.Decimal.IsPositive() {
			return cur, model.ErrMissingCost
		}
		pct, err := c.Value.Decimal()
		if err != nil {
			return cur, model.NewValidationError("value", err.Error())
		}
		next = cost.Decimal.Mul(decimal.NewFromInt(1).Add(pct.Div(hundred)))

	default:
		return cur, unsupported(c)
	}

	if next.IsNegative() {
		next = decimal.Zero
	}

	if c.Rounding != "" {
		frac, err := roundingFraction(c.Rounding)
		if err != nil {
			return cur, err
		}
		next = next.Floor().Add(frac)
	}

	if c.SafetyLock && cost.Valid && next.LessThan(cost.Decimal) {
		next = cost.Decimal
	}

	return decimal.NewNullDecimal(next.Round(2)), nil
}

// roundingFraction parses ".90", "0.99", "99" or "00" into the cents suffix.
func roundingFraction(s string) (decimal.Decimal, error) {
	digits := strings.TrimSpace(s)
	digits = strings.TrimPrefix(digits, "0.")
	digits = strings.TrimPrefix(digits, ".")
	digits = strings.TrimPrefix(digits, ",")
	if len(digits) == 1 {
		digits += "0"
	}
	if len(digits) != 2 {
		return decimal.Zero, model.NewValidationError("rounding", fmt.Sprintf("%q is not a cents suffix", s))
	}
	d, err := decimal.NewFromString("0." + digits)
	if err != nil {
		return decimal.Zero, model.NewValidationError("rounding", fmt.Sprintf("%q is not a cents suffix", s))
	}
	return d, nil
}

// Stock applies an inventory change. nil stock means unlimited and is left
// alone by ADD; the result never drops below zero.
func Stock(cur *int, c model.Change) (*int, error) {
	n, err := c.Value.Int()
	if err != nil {
		return cur, model.NewValidationError("value", err.Error())
	}

	var next int
	switch c.Action {
	case model.ActionSet:
		next = n
	case model.ActionAdd:
		if cur == nil {
			return nil, nil
		}
		next = *cur + n
	default:
		return cur, unsupported(c)
	}
	if next < 0 {
		next = 0
	}
	return &next, nil
}
