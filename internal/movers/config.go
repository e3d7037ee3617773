package movers

import (
	"fmt"
	"time"
)

// ChangeFormula selects how change percent is derived.
// The variants are not interchangeable; see metric.go.
type ChangeFormula string

const (
	FormulaAmountOverBaseline  ChangeFormula = "A" // change / (close - change)
	FormulaAmountOverPrevClose ChangeFormula = "B" // same value, prev close kept
	FormulaCloseOverOpen       ChangeFormula = "C" // (close - open) / open
)

// AbsentPolicy decides what happens to a row whose field is absent.
type AbsentPolicy string

const (
	AbsentZeroFill AbsentPolicy = "zero_fill"
	AbsentDrop     AbsentPolicy = "drop"
)

// DefaultTimeLayout is the update_time layout consumed by the display layer.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// Config is the invocation configuration of one snapshot run.
// Absent close always drops the row; only the change amount policy is configurable.
type Config struct {
	TopN                 int
	MarketCloseHour      int
	MarketCloseMinute    int
	ChangeFormula        ChangeFormula
	IncludeZeroInGainers bool
	OnAbsentChangeAmount AbsentPolicy

	Location   *time.Location
	TimeLayout string
}

// DefaultConfig returns the production defaults (TWSE, Asia/Taipei, close 14:30).
func DefaultConfig() Config {
	return Config{
		TopN:                 10,
		MarketCloseHour:      14,
		MarketCloseMinute:    30,
		ChangeFormula:        FormulaAmountOverBaseline,
		IncludeZeroInGainers: false,
		OnAbsentChangeAmount: AbsentZeroFill,
		Location:             taipei(),
		TimeLayout:           DefaultTimeLayout,
	}
}

// Validate checks the configuration before a run.
func (c Config) Validate() error {
	if c.TopN <= 0 {
		return fmt.Errorf("top_n must be positive, got %d", c.TopN)
	}
	if c.MarketCloseHour < 0 || c.MarketCloseHour > 23 {
		return fmt.Errorf("market_close_hour out of range: %d", c.MarketCloseHour)
	}
	if c.MarketCloseMinute < 0 || c.MarketCloseMinute > 59 {
		return fmt.Errorf("market_close_minute out of range: %d", c.MarketCloseMinute)
	}
	switch c.ChangeFormula {
	case FormulaAmountOverBaseline, FormulaAmountOverPrevClose, FormulaCloseOverOpen:
	default:
		return fmt.Errorf("unknown change_formula %q (want A, B or C)", c.ChangeFormula)
	}
	switch c.OnAbsentChangeAmount {
	case AbsentZeroFill, AbsentDrop:
	default:
		return fmt.Errorf("unknown on_absent_change_amount %q", c.OnAbsentChangeAmount)
	}
	return nil
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Config) layout() string {
	if c.TimeLayout == "" {
		return DefaultTimeLayout
	}
	return c.TimeLayout
}

// taipei falls back to a fixed +08:00 zone when tzdata is unavailable.
func taipei() *time.Location {
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		return time.FixedZone("CST", 8*60*60)
	}
	return loc
}
