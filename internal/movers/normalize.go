package movers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Canonical field keys.
const (
	FieldCode         = "code"
	FieldName         = "name"
	FieldOpen         = "open"
	FieldClose        = "close"
	FieldChangeAmount = "change_amount"
	FieldChangeSign   = "change_sign"
)

// FieldMap maps a canonical field key to the header names that may carry it.
type FieldMap map[string][]string

// DefaultFieldMap covers the TWSE MI_INDEX headers and plain English aliases.
var DefaultFieldMap = FieldMap{
	FieldCode:         {"證券代號", "code", "Security Code"},
	FieldName:         {"證券名稱", "name", "Security Name"},
	FieldOpen:         {"開盤價", "open", "Opening Price"},
	FieldClose:        {"收盤價", "close", "Closing Price"},
	FieldChangeAmount: {"漲跌價差", "change_amount", "Change"},
	FieldChangeSign:   {"漲跌(+/-)", "change_sign", "Dir(+/-)"},
}

// sentinels mark "no trade" in the feed. They normalize to absent, never zero.
var sentinels = map[string]bool{
	"":    true,
	"X":   true,
	"x":   true,
	"-":   true,
	"--":  true,
	"---": true,
	"N/A": true,
	"n/a": true,
	"－":   true,
}

// IsSentinel reports whether s (after trimming) is a no-trade marker.
func IsSentinel(s string) bool {
	return sentinels[strings.TrimSpace(s)]
}

// ParseDecimal normalizes one raw field value.
// Thousands separators and a leading '+' are stripped; sentinels give an absent
// value; anything else unparseable gives *MalformedFieldError.
func ParseDecimal(field string, raw any) (decimal.NullDecimal, error) {
	switch v := raw.(type) {
	case nil:
		return decimal.NullDecimal{}, nil
	case decimal.Decimal:
		return decimal.NewNullDecimal(v), nil
	case float64:
		return decimal.NewNullDecimal(decimal.NewFromFloat(v)), nil
	case int:
		return decimal.NewNullDecimal(decimal.NewFromInt(int64(v))), nil
	case int64:
		return decimal.NewNullDecimal(decimal.NewFromInt(v)), nil
	case json.Number:
		return parseDecimalString(field, string(v))
	case string:
		return parseDecimalString(field, v)
	default:
		return decimal.NullDecimal{}, &MalformedFieldError{Field: field, Raw: fmt.Sprint(raw)}
	}
}

func parseDecimalString(field, raw string) (decimal.NullDecimal, error) {
	s := strings.TrimSpace(raw)
	if sentinels[s] {
		return decimal.NullDecimal{}, nil
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "+")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, &MalformedFieldError{Field: field, Raw: raw}
	}
	return decimal.NewNullDecimal(d), nil
}

// columns resolves canonical keys to column positions for one feed.
type columns map[string]int

func (m FieldMap) resolve(fields []string) columns {
	byName := make(map[string]int, len(fields))
	for i, f := range fields {
		byName[strings.TrimSpace(f)] = i
	}

	cols := make(columns, len(m))
	for key, names := range m {
		for _, name := range names {
			if i, ok := byName[name]; ok {
				cols[key] = i
				break
			}
		}
	}
	return cols
}

func (c columns) cell(row []any, key string) (any, bool) {
	i, ok := c[key]
	if !ok || i >= len(row) {
		return nil, false
	}
	return row[i], true
}

func requiredFields(f ChangeFormula) []string {
	switch f {
	case FormulaCloseOverOpen:
		return []string{FieldCode, FieldClose, FieldOpen}
	default:
		return []string{FieldCode, FieldClose, FieldChangeAmount}
	}
}

// NormalizeFeed turns a raw feed into rows with change percent computed.
// Rows are returned in feed order. Row-scoped failures are collected in
// rejected and never abort the run; a feed missing required columns
// returns *MalformedFeedError.
func NormalizeFeed(feed *RawFeed, cfg Config, fm FieldMap) (rows []SecurityRow, rejected []error, err error) {
	if feed == nil || len(feed.Rows) == 0 {
		source := ""
		if feed != nil {
			source = feed.Source
		}
		return nil, nil, &EmptyFeedError{Source: source, Reason: "no rows"}
	}
	if fm == nil {
		fm = DefaultFieldMap
	}

	cols := fm.resolve(feed.Fields)
	for _, key := range requiredFields(cfg.ChangeFormula) {
		if _, ok := cols[key]; !ok {
			return nil, nil, &MalformedFeedError{Reason: fmt.Sprintf("missing column %q", key)}
		}
	}

	rows = make([]SecurityRow, 0, len(feed.Rows))
	for i, raw := range feed.Rows {
		row, err := normalizeRow(i, raw, cols, cfg)
		if err != nil {
			rejected = append(rejected, err)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rejected, nil
}

func normalizeRow(seq int, raw []any, cols columns, cfg Config) (SecurityRow, error) {
	codeRaw, _ := cols.cell(raw, FieldCode)
	nameRaw, _ := cols.cell(raw, FieldName)
	row := SecurityRow{
		Seq:  seq,
		Code: strings.TrimSpace(cellString(codeRaw)),
		Name: strings.TrimSpace(cellString(nameRaw)),
	}
	if row.Code == "" {
		return SecurityRow{}, &MalformedFieldError{Field: FieldCode, Raw: cellString(codeRaw)}
	}

	var err error
	if row.Close, err = parseCell(raw, cols, FieldClose, row.Code); err != nil {
		return SecurityRow{}, err
	}
	if !row.Close.Valid {
		return SecurityRow{}, &AbsentFieldError{Code: row.Code, Field: FieldClose}
	}
	if row.Open, err = parseCell(raw, cols, FieldOpen, row.Code); err != nil {
		return SecurityRow{}, err
	}
	if row.ChangeAmount, err = parseCell(raw, cols, FieldChangeAmount, row.Code); err != nil {
		return SecurityRow{}, err
	}

	if signRaw, ok := cols.cell(raw, FieldChangeSign); ok {
		row.ChangeAmount = applySign(row.ChangeAmount, cellString(signRaw))
	}

	if cfg.ChangeFormula != FormulaCloseOverOpen && !row.ChangeAmount.Valid {
		if cfg.OnAbsentChangeAmount == AbsentDrop {
			return SecurityRow{}, &AbsentFieldError{Code: row.Code, Field: FieldChangeAmount}
		}
		row.ChangeAmount = decimal.NewNullDecimal(decimal.Zero)
	}

	return ComputeChange(row, cfg.ChangeFormula)
}

func parseCell(raw []any, cols columns, key, code string) (decimal.NullDecimal, error) {
	v, ok := cols.cell(raw, key)
	if !ok {
		return decimal.NullDecimal{}, nil
	}
	d, err := ParseDecimal(key, v)
	if err != nil {
		if mf, ok := err.(*MalformedFieldError); ok {
			mf.Code = code
		}
		return decimal.NullDecimal{}, err
	}
	return d, nil
}

// applySign applies the separate direction column. The feed publishes the change
// amount unsigned; "X" marks a non-comparable price and makes the amount absent.
func applySign(amount decimal.NullDecimal, sign string) decimal.NullDecimal {
	switch strings.TrimSpace(sign) {
	case "-", "－":
		if amount.Valid {
			return decimal.NewNullDecimal(amount.Decimal.Abs().Neg())
		}
	case "+":
		if amount.Valid {
			return decimal.NewNullDecimal(amount.Decimal.Abs())
		}
	case "X", "x":
		return decimal.NullDecimal{}
	}
	return amount
}

func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
