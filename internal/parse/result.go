// Package parse turns loosely-typed upstream records into model values one
// record at a time, collecting per-record failures instead of aborting.
package parse

import (
	"fmt"

	"SolarBudget/internal/apperror"
)

// Issue describes why a single record was dropped.
type Issue struct {
	Index  int
	Detail string
	Err    error
}

func (i Issue) String() string {
	if i.Err != nil {
		return fmt.Sprintf("record %d: %s: %v", i.Index, i.Detail, i.Err)
	}
	return fmt.Sprintf("record %d: %s", i.Index, i.Detail)
}

// Result is either a parsed value or the issue that prevented parsing.
type Result[T any] struct {
	Value T
	Issue *Issue
}

// Ok wraps a successfully parsed value.
func Ok[T any](v T) Result[T] { return Result[T]{Value: v} }

// Fail records a failed record at index.
func Fail[T any](index int, detail string, err error) Result[T] {
	return Result[T]{Issue: &Issue{Index: index, Detail: detail, Err: err}}
}

// OK reports whether the record parsed.
func (r Result[T]) OK() bool { return r.Issue == nil }

// Report accumulates the outcome of parsing a whole payload.
type Report[T any] struct {
	Values []T
	Issues []Issue
}

// Collect folds per-record results into a report, preserving input order.
func Collect[T any](results []Result[T]) Report[T] {
	var rep Report[T]
	for _, r := range results {
		if r.OK() {
			rep.Values = append(rep.Values, r.Value)
		} else {
			rep.Issues = append(rep.Issues, *r.Issue)
		}
	}
	return rep
}

// Dropped returns the number of records that failed to parse.
func (r Report[T]) Dropped() int { return len(r.Issues) }

// Err escalates to a malformed-response error when records were present but
// none survived. A payload with at least one good record is not an error.
func (r Report[T]) Err() error {
	if len(r.Values) > 0 || len(r.Issues) == 0 {
		return nil
	}
	return apperror.Malformed(
		fmt.Sprintf("all %d records failed to parse", len(r.Issues)),
		apperror.New(apperror.KindMalformedPoint, r.Issues[0].String(), nil),
	)
}
