package movers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taipeiTime(t *testing.T, hour, minute int) time.Time {
	t.Helper()
	return time.Date(2024, 1, 15, hour, minute, 0, 0, taipei())
}

func TestAssembler_IsClosed(t *testing.T) {
	a := NewAssembler(DefaultConfig(), nil)

	tests := []struct {
		name string
		at   time.Time
		want bool
	}{
		{"morning", taipeiTime(t, 9, 0), false},
		{"one minute before", taipeiTime(t, 14, 29), false},
		{"boundary", taipeiTime(t, 14, 30), true},
		{"evening", taipeiTime(t, 20, 0), true},
		{"utc input converted", time.Date(2024, 1, 15, 6, 30, 0, 0, time.UTC), true},
		{"utc input before close", time.Date(2024, 1, 15, 6, 29, 59, 0, time.UTC), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.IsClosed(tt.at))
		})
	}
}

func TestAssembler_UpdateTime(t *testing.T) {
	clock := FixedClock(time.Date(2024, 1, 15, 6, 35, 7, 0, time.UTC))
	a := NewAssembler(DefaultConfig(), clock)
	assert.Equal(t, "2024-01-15 14:35:07", a.UpdateTime())
}

func TestAssembler_Assemble(t *testing.T) {
	row := SecurityRow{
		Code:          "2330",
		Name:          "台積電",
		Open:          dec("580"),
		Close:         dec("1025"),
		ChangeAmount:  dec("25"),
		PrevClose:     dec("1000"),
		ChangePercent: dec("2.5"),
	}

	tests := []struct {
		formula    ChangeFormula
		wantAmount string
		wantPrev   string
	}{
		{FormulaAmountOverBaseline, "25.00", ""},
		{FormulaAmountOverPrevClose, "25.00", "1000.00"},
		{FormulaCloseOverOpen, "", ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.formula), func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.ChangeFormula = tt.formula
			a := NewAssembler(cfg, FixedClock(taipeiTime(t, 10, 0)))

			snap := a.Assemble([]SecurityRow{row}, nil)
			assert.Equal(t, "2024-01-15 10:00:00", snap.UpdateTime)
			assert.False(t, snap.IsClosed)
			assert.Empty(t, snap.ErrorMessage)
			assert.NotNil(t, snap.Losers)
			assert.Empty(t, snap.Losers)

			require.Len(t, snap.Gainers, 1)
			rec := snap.Gainers[0]
			assert.Equal(t, "2330", rec.Code)
			assert.Equal(t, "台積電", rec.Name)
			assert.Equal(t, "580.00", rec.Open)
			assert.Equal(t, "1025.00", rec.Close)
			assert.Equal(t, "2.50", rec.ChangePercent)
			assert.Equal(t, tt.wantAmount, rec.ChangeAmount)
			assert.Equal(t, tt.wantPrev, rec.PrevClose)
		})
	}
}

func TestAssembler_AbsentOpenRendered(t *testing.T) {
	a := NewAssembler(DefaultConfig(), FixedClock(taipeiTime(t, 15, 0)))
	snap := a.Assemble(nil, []SecurityRow{{Code: "1101", Close: dec("40"), ChangeAmount: dec("-1"), ChangePercent: dec("-2.44")}})

	assert.True(t, snap.IsClosed)
	require.Len(t, snap.Losers, 1)
	assert.Equal(t, AbsentValue, snap.Losers[0].Open)
	assert.Equal(t, "-2.44", snap.Losers[0].ChangePercent)
}

func TestMoverRecord_JSONValuesAreStrings(t *testing.T) {
	a := NewAssembler(DefaultConfig(), FixedClock(taipeiTime(t, 10, 0)))
	snap := a.Assemble([]SecurityRow{{Code: "2330", Close: dec("1025"), ChangeAmount: dec("25"), ChangePercent: dec("2.5")}}, nil)

	raw, err := json.Marshal(snap.Gainers[0])
	require.NoError(t, err)
	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))

	tests := []struct {
		key  string
		want string
	}{
		{"open", AbsentValue},
		{"close", "1025.00"},
		{"change_percent", "2.50"},
		{"change_amount", "25.00"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.IsType(t, "", fields[tt.key])
			assert.Equal(t, tt.want, fields[tt.key])
		})
	}
	assert.NotContains(t, fields, "prev_close")
}
