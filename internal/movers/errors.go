package movers

import (
	"errors"
	"fmt"
)

// ErrNoUsableRows is returned when the feed had rows but none survived
// normalization and ranking.
var ErrNoUsableRows = errors.New("no usable rows after exclusion")

// FetchError wraps a failure reported by the upstream fetcher (unreachable,
// timeout, bad status).
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// EmptyFeedError means the fetch succeeded but carried no rows,
// typically a non-trading day.
type EmptyFeedError struct {
	Source string
	Reason string
}

func (e *EmptyFeedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("empty feed from %s", e.Source)
	}
	return fmt.Sprintf("empty feed from %s: %s", e.Source, e.Reason)
}

// MalformedFeedError means the payload as a whole could not be interpreted
// (undecodable body, missing required columns).
type MalformedFeedError struct {
	Reason string
	Err    error
}

func (e *MalformedFeedError) Error() string {
	if e.Err == nil {
		return "malformed feed: " + e.Reason
	}
	return fmt.Sprintf("malformed feed: %s: %v", e.Reason, e.Err)
}

func (e *MalformedFeedError) Unwrap() error {
	return e.Err
}

// MalformedFieldError is row-scoped: one numeric field could not be parsed.
type MalformedFieldError struct {
	Code  string
	Field string
	Raw   string
}

func (e *MalformedFieldError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("malformed field %s: %q", e.Field, e.Raw)
	}
	return fmt.Sprintf("security %s: malformed field %s: %q", e.Code, e.Field, e.Raw)
}

// AbsentFieldError is row-scoped: a field whose absence drops the row.
type AbsentFieldError struct {
	Code  string
	Field string
}

func (e *AbsentFieldError) Error() string {
	return fmt.Sprintf("security %s: %s absent", e.Code, e.Field)
}

// UndefinedMetricError is row-scoped: the change percent denominator is
// zero or absent (halted or untraded security).
type UndefinedMetricError struct {
	Code    string
	Formula ChangeFormula
}

func (e *UndefinedMetricError) Error() string {
	return fmt.Sprintf("security %s: change percent undefined under formula %s", e.Code, e.Formula)
}

// IsRowScoped reports whether err only excludes a single row.
func IsRowScoped(err error) bool {
	var (
		mf *MalformedFieldError
		af *AbsentFieldError
		um *UndefinedMetricError
	)
	return errors.As(err, &mf) || errors.As(err, &af) || errors.As(err, &um)
}
