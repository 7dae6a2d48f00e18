package search

import "fmt"

// ErrorKind classifies the root's failure modes, per the taxonomy in
// the query planner's error handling design.
type ErrorKind int

const (
	// KindInvalidArgument marks a bounds violation on offset/hits.
	KindInvalidArgument ErrorKind = iota
	// KindInvalidQuery marks a query or field that fails the schema check.
	KindInvalidQuery
	// KindInvalidAggregationRequest marks an unparseable aggregation spec.
	KindInvalidAggregationRequest
	// KindPlacementFailure marks a split no worker in the non-excluded set can host.
	KindPlacementFailure
	// KindInternal is the catch-all: missing split offsets, merge failure,
	// exhausted retries, serialization failure.
	KindInternal
)

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "InvalidArgument"
	case KindInvalidQuery:
		return "InvalidQuery"
	case KindInvalidAggregationRequest:
		return "InvalidAggregationRequest"
	case KindPlacementFailure:
		return "PlacementFailure"
	case KindInternal:
		return "Internal"
	default:
		return "Unknown"
	}
}

// Error is the root's error type. Callers that need to distinguish
// kinds should use errors.As and inspect Kind, rather than string
// matching on Error().
type Error struct {
	Kind ErrorKind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.msg, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

func newError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func wrapError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, msg: msg, err: err}
}

// InvalidArgument builds a bounds-violation error matching the exact
// phrasing the test suite asserts on.
func InvalidArgument(format string, args ...interface{}) *Error {
	return newError(KindInvalidArgument, fmt.Sprintf(format, args...))
}

// InvalidQuery builds a query/schema validation error.
func InvalidQuery(detail string) *Error {
	return newError(KindInvalidQuery, detail)
}

// InvalidAggregationRequest builds an unparseable-aggregation error.
func InvalidAggregationRequest(detail string) *Error {
	return newError(KindInvalidAggregationRequest, fmt.Sprintf("Invalid aggregation request: %s", detail))
}

// PlacementFailure builds a "no capable node" error for a split.
func PlacementFailure(splitID string) *Error {
	return newError(KindPlacementFailure, fmt.Sprintf("no capable node found for split %q", splitID))
}

// InternalError builds a catch-all internal error.
func InternalError(format string, args ...interface{}) *Error {
	return newError(KindInternal, fmt.Sprintf(format, args...))
}

// InternalErrorWrap wraps an underlying error as internal.
func InternalErrorWrap(msg string, err error) *Error {
	return wrapError(KindInternal, msg, err)
}
