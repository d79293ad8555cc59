package zonelog

import (
	"errors"
	"fmt"
)

// Sentinel kinds for parse failures. A *ParseError unwraps to one of these.
var (
	ErrMissingSeparator = errors.New("missing separator")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrEmptyTeam        = errors.New("empty team")
	ErrOutOfOrder       = errors.New("timestamp out of order")
	ErrInvalidSize      = errors.New("zone size must be positive")
)

// ParseError reports a malformed log line. Line is 1-based.
type ParseError struct {
	Line   int
	Text   string
	Reason error
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d %q: %v: %v", e.Line, e.Text, e.Reason, e.Err)
	}
	return fmt.Sprintf("line %d %q: %v", e.Line, e.Text, e.Reason)
}

// Unwrap exposes both the reason sentinel and the underlying cause.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Reason, e.Err}
	}
	return []error{e.Reason}
}

// Code returns a stable machine-readable reason.
func (e *ParseError) Code() string {
	switch e.Reason {
	case ErrMissingSeparator:
		return "missing_separator"
	case ErrInvalidTimestamp:
		return "invalid_timestamp"
	case ErrEmptyTeam:
		return "empty_team"
	case ErrOutOfOrder:
		return "out_of_order"
	default:
		return "invalid_line"
	}
}
