package movers

import (
	"sort"
)

// Rank partitions rows into gainers and losers and keeps the top N of each.
// Gainers are sorted by change percent descending, losers ascending (most
// negative first). Equal values keep feed order. Rows without a change
// percent are ignored; zero is a gainer only with IncludeZeroInGainers.
func Rank(rows []SecurityRow, cfg Config) (gainers, losers []SecurityRow) {
	for _, row := range rows {
		if !row.ChangePercent.Valid {
			continue
		}
		switch sign := row.ChangePercent.Decimal.Sign(); {
		case sign > 0, sign == 0 && cfg.IncludeZeroInGainers:
			gainers = append(gainers, row)
		case sign < 0:
			losers = append(losers, row)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool {
		if c := gainers[i].ChangePercent.Decimal.Cmp(gainers[j].ChangePercent.Decimal); c != 0 {
			return c > 0
		}
		return gainers[i].Seq < gainers[j].Seq
	})
	sort.SliceStable(losers, func(i, j int) bool {
		if c := losers[i].ChangePercent.Decimal.Cmp(losers[j].ChangePercent.Decimal); c != 0 {
			return c < 0
		}
		return losers[i].Seq < losers[j].Seq
	})

	return truncate(gainers, cfg.TopN), truncate(losers, cfg.TopN)
}

func truncate(rows []SecurityRow, n int) []SecurityRow {
	if n >= 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}
