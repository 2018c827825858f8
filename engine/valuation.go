/*
valuation.go - Entry valuation

PURPOSE:
  Converts one transaction entry draft into its derived pure weight and
  signed subtotal, using the rounding rules in rounding.go. Validation
  happens here, before anything reaches persistence: an entry missing a
  required numeric field is rejected with a ValidationError, never a
  mid-save failure.

SIGN CONVENTION:
  sell     -> merchant gives metal, receives money  -> +
  purchase -> merchant receives metal, gives money  -> -
  money    -> receive +, give -
  The stored subtotal carries this sign; display layers may show an
  unsigned magnitude with a separate flag.
*/
package engine

import (
	"github.com/shopspring/decimal"
)

var (
	dHundred    = decimal.NewFromInt(100)
	dThousand   = decimal.NewFromInt(1000)
	dGoldUnit   = decimal.NewFromInt(10)   // gold priced per 10 g
	dSilverUnit = decimal.NewFromInt(1000) // silver priced per kg
)

// Valuate fills the derived PureWeight and Subtotal of an entry draft.
// It returns a ValidationError if a required field for the item type is
// missing or non-positive.
func Valuate(e Entry) (Entry, error) {
	if err := validateEntry(e); err != nil {
		return Entry{}, err
	}

	switch e.Item {
	case ItemMoney:
		sub := FormatMoney(e.Amount)
		if e.Direction == DirGive {
			sub = sub.Neg()
		}
		e.Subtotal = sub
		return e, nil

	case ItemGold999, ItemGold995, ItemSilver:
		e.PureWeight = e.Weight
		if e.MetalOnly {
			e.Subtotal = decimal.Zero
			return e, nil
		}
		unit := dGoldUnit
		if e.Item == ItemSilver {
			unit = dSilverUnit
		}
		e.Subtotal = signForKind(e.Kind, FormatMoney(e.Weight.Mul(e.Price).Div(unit)))
		return e, nil

	case ItemRani:
		e.PureWeight = FormatPureGold(e.Weight.Mul(e.Touch).Div(dHundred))
		if e.MetalOnly {
			e.Subtotal = decimal.Zero
			return e, nil
		}
		e.Subtotal = signForKind(e.Kind, FormatMoney(e.PureWeight.Mul(e.Price).Div(dGoldUnit)))
		return e, nil

	case ItemRupu:
		e.PureWeight = FormatPureSilver(e.Weight.Mul(e.Touch).Div(dHundred))
		if e.MetalOnly {
			e.Subtotal = decimal.Zero
			return e, nil
		}
		totalWithBonus := e.PureWeight.Add(e.PureWeight.Mul(e.ExtraBonusPerKg).Div(dThousand))
		switch e.ReturnMode {
		case RupuSilverReturn:
			net := FormatPureSilver(totalWithBonus.Sub(e.SilverReturnedA).Sub(e.SilverReturnedB))
			sub := FormatMoney(net.Abs().Mul(e.Price).Div(dSilverUnit))
			if net.IsNegative() {
				sub = sub.Neg()
			}
			e.Subtotal = signForKind(e.Kind, sub)
		default: // money return
			e.Subtotal = signForKind(e.Kind, FormatMoney(totalWithBonus.Mul(e.Price).Div(dSilverUnit)))
		}
		return e, nil
	}

	return Entry{}, &ValidationError{Field: "item", Reason: "unknown item type"}
}

func signForKind(kind EntryKind, magnitude decimal.Decimal) decimal.Decimal {
	if kind == KindPurchase {
		return magnitude.Neg()
	}
	return magnitude
}

func validateEntry(e Entry) error {
	if e.Item == ItemMoney {
		if e.Kind != KindMoney {
			return &ValidationError{Field: "kind", Reason: "must be money for money items"}
		}
		if e.Direction != DirReceive && e.Direction != DirGive {
			return &ValidationError{Field: "direction", Reason: "is required"}
		}
		if !e.Amount.IsPositive() {
			return &ValidationError{Field: "amount", Reason: "must be positive"}
		}
		return nil
	}

	if e.Kind != KindSell && e.Kind != KindPurchase {
		return &ValidationError{Field: "kind", Reason: "must be sell or purchase"}
	}
	if !e.Weight.IsPositive() {
		return &ValidationError{Field: "weight", Reason: "must be positive"}
	}
	if !e.MetalOnly && !e.Price.IsPositive() {
		return &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if e.Item.IsImpure() && !e.Touch.IsPositive() {
		return &ValidationError{Field: "touch", Reason: "must be positive for impure metals"}
	}
	if e.Item == ItemRupu && !e.MetalOnly {
		if e.ReturnMode != RupuMoneyReturn && e.ReturnMode != RupuSilverReturn {
			return &ValidationError{Field: "return_mode", Reason: "is required for rupu"}
		}
		if e.ReturnMode == RupuSilverReturn &&
			(e.SilverReturnedA.IsNegative() || e.SilverReturnedB.IsNegative()) {
			return &ValidationError{Field: "silver_returned", Reason: "must not be negative"}
		}
	}
	if e.ExtraBonusPerKg.IsNegative() {
		return &ValidationError{Field: "extra_bonus_per_kg", Reason: "must not be negative"}
	}
	return nil
}
