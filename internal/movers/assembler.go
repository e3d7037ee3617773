package movers

import (
	"time"
)

// Clock supplies the current time to the assembler.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock time.Time

func (c FixedClock) Now() time.Time { return time.Time(c) }

// Assembler builds MarketSnapshots in the artifact shape.
type Assembler struct {
	cfg   Config
	clock Clock
}

// NewAssembler creates an assembler. A nil clock uses the system clock.
func NewAssembler(cfg Config, clock Clock) *Assembler {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Assembler{cfg: cfg, clock: clock}
}

// UpdateTime formats the current time in the configured location.
func (a *Assembler) UpdateTime() string {
	return a.clock.Now().In(a.cfg.location()).Format(a.cfg.layout())
}

// IsClosed reports whether t is at or after the configured close boundary
// in the trading location.
func (a *Assembler) IsClosed(t time.Time) bool {
	local := t.In(a.cfg.location())
	minutes := local.Hour()*60 + local.Minute()
	boundary := a.cfg.MarketCloseHour*60 + a.cfg.MarketCloseMinute
	return minutes >= boundary
}

// Assemble builds a live snapshot from ranked rows.
func (a *Assembler) Assemble(gainers, losers []SecurityRow) MarketSnapshot {
	return MarketSnapshot{
		UpdateTime: a.UpdateTime(),
		IsClosed:   a.IsClosed(a.clock.Now()),
		Gainers:    a.project(gainers),
		Losers:     a.project(losers),
	}
}

// project keeps only the output fields. The optional fields depend on the
// formula alone so every record of one snapshot has the same shape.
func (a *Assembler) project(rows []SecurityRow) []MoverRecord {
	out := make([]MoverRecord, 0, len(rows))
	for _, row := range rows {
		rec := MoverRecord{
			Code:          row.Code,
			Name:          row.Name,
			Open:          formatDecimal(row.Open),
			Close:         formatDecimal(row.Close),
			ChangePercent: formatDecimal(row.ChangePercent),
		}
		switch a.cfg.ChangeFormula {
		case FormulaAmountOverBaseline:
			rec.ChangeAmount = formatDecimal(row.ChangeAmount)
		case FormulaAmountOverPrevClose:
			rec.ChangeAmount = formatDecimal(row.ChangeAmount)
			rec.PrevClose = formatDecimal(row.PrevClose)
		}
		out = append(out, rec)
	}
	return out
}
