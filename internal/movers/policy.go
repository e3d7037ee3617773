package movers

import (
	"errors"
	"strings"
)

// State is the outcome of one run as seen by the degradation policy.
type State int

const (
	StateLive   State = iota // ranked at least one gainer or loser
	StateEmpty               // feed reachable but nothing usable (non-trading day)
	StateFailed              // fetch, parse or normalization failed
)

func (s State) String() string {
	switch s {
	case StateLive:
		return "live"
	case StateEmpty:
		return "empty"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Markers appended to update_time so consumers can tell degraded output apart.
const (
	StaleMarker       = " (數據更新失敗，顯示舊資料)"
	PlaceholderMarker = " (初始化/錯誤)"
)

// Placeholder record fields.
const (
	PlaceholderCode = "N/A"
	PlaceholderName = "資料讀取失敗"
)

// Classify maps a run-scoped error to the policy state.
func Classify(err error) State {
	if err == nil {
		return StateLive
	}
	var empty *EmptyFeedError
	if errors.As(err, &empty) || errors.Is(err, ErrNoUsableRows) {
		return StateEmpty
	}
	return StateFailed
}

// Degrade builds the snapshot emitted for an Empty or Failed run. With a prior
// artifact its lists are re-emitted unchanged under a fresh, stale-marked
// timestamp; without one a placeholder is emitted. cause is always attached.
func (a *Assembler) Degrade(prev *MarketSnapshot, cause error) MarketSnapshot {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	if prev != nil {
		out := prev.Clone()
		out.UpdateTime = a.UpdateTime() + StaleMarker
		out.ErrorMessage = msg
		return *out
	}

	return MarketSnapshot{
		UpdateTime:   a.UpdateTime() + PlaceholderMarker,
		IsClosed:     a.IsClosed(a.clock.Now()),
		Gainers:      []MoverRecord{placeholderRecord()},
		Losers:       []MoverRecord{placeholderRecord()},
		ErrorMessage: msg,
	}
}

func placeholderRecord() MoverRecord {
	return MoverRecord{
		Code:          PlaceholderCode,
		Name:          PlaceholderName,
		Open:          AbsentValue,
		Close:         AbsentValue,
		ChangePercent: AbsentValue,
	}
}

// IsPlaceholder reports whether s is a synthetic placeholder artifact.
func IsPlaceholder(s *MarketSnapshot) bool {
	return s != nil && strings.HasSuffix(s.UpdateTime, PlaceholderMarker)
}

// IsDegraded reports whether s carries stale or placeholder data.
func IsDegraded(s *MarketSnapshot) bool {
	if s == nil {
		return false
	}
	return s.ErrorMessage != "" ||
		strings.HasSuffix(s.UpdateTime, StaleMarker) ||
		strings.HasSuffix(s.UpdateTime, PlaceholderMarker)
}
