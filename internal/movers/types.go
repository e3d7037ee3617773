package movers

import (
	"github.com/shopspring/decimal"
)

// RawFeed is one decoded upstream table: header names plus row values in feed order.
// Field order may differ between responses, so columns are always located by name.
type RawFeed struct {
	Source string
	Fields []string
	Rows   [][]any
}

// SecurityRow is one security after normalization. Absent decimals have Valid=false.
// ChangePercent is present only when every input of the formula is present
// and its denominator is non-zero.
type SecurityRow struct {
	Seq           int // position in the feed, used for tie-breaks
	Code          string
	Name          string
	Open          decimal.NullDecimal
	Close         decimal.NullDecimal
	ChangeAmount  decimal.NullDecimal
	PrevClose     decimal.NullDecimal
	ChangePercent decimal.NullDecimal
}

// MoverRecord is a ranked security as written to the artifact.
// Values carry two fraction digits; absent values are rendered as AbsentValue.
type MoverRecord struct {
	Code          string `json:"code"`
	Name          string `json:"name"`
	Open          string `json:"open"`
	Close         string `json:"close"`
	ChangePercent string `json:"change_percent"`
	PrevClose     string `json:"prev_close,omitempty"`
	ChangeAmount  string `json:"change_amount,omitempty"`
}

// AbsentValue renders a missing decimal in the artifact.
const AbsentValue = "--"

// MarketSnapshot is the persisted artifact.
type MarketSnapshot struct {
	UpdateTime   string        `json:"update_time"`
	IsClosed     bool          `json:"is_closed"`
	Gainers      []MoverRecord `json:"gainers"`
	Losers       []MoverRecord `json:"losers"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// Clone returns a deep copy so a prior artifact is never mutated in place.
func (s *MarketSnapshot) Clone() *MarketSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	out.Gainers = append([]MoverRecord(nil), s.Gainers...)
	out.Losers = append([]MoverRecord(nil), s.Losers...)
	return &out
}

func formatDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return AbsentValue
	}
	return d.Decimal.StringFixed(percentPlaces)
}
