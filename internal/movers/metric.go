package movers

import (
	"github.com/shopspring/decimal"
)

// percentPlaces is the precision of every rendered value.
// Change percent is rounded half-to-even (banker's rounding).
const percentPlaces = 2

var hundred = decimal.NewFromInt(100)

// ComputeChange returns a copy of row with ChangePercent (and PrevClose for
// formula B) filled in.
//
//	A: change / (close - change) * 100
//	B: prev = close - change; change / prev * 100
//	C: (close - open) / open * 100
//
// A zero or absent denominator yields *UndefinedMetricError.
func ComputeChange(row SecurityRow, f ChangeFormula) (SecurityRow, error) {
	undefined := &UndefinedMetricError{Code: row.Code, Formula: f}

	var num, denom decimal.Decimal
	switch f {
	case FormulaAmountOverBaseline, FormulaAmountOverPrevClose:
		if !row.Close.Valid || !row.ChangeAmount.Valid {
			return row, undefined
		}
		num = row.ChangeAmount.Decimal
		denom = row.Close.Decimal.Sub(num)
		if f == FormulaAmountOverPrevClose {
			row.PrevClose = decimal.NewNullDecimal(denom)
		}
	case FormulaCloseOverOpen:
		if !row.Close.Valid || !row.Open.Valid {
			return row, undefined
		}
		num = row.Close.Decimal.Sub(row.Open.Decimal)
		denom = row.Open.Decimal
	default:
		return row, undefined
	}

	if denom.IsZero() {
		row.PrevClose = decimal.NullDecimal{}
		return row, undefined
	}

	pct := num.Mul(hundred).Div(denom).RoundBank(percentPlaces)
	row.ChangePercent = decimal.NewNullDecimal(pct)
	return row, nil
}
