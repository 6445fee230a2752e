package decision

import (
	"errors"
	"fmt"
)

// ParseError reports a reply that carries no usable action number.
type ParseError struct {
	Reply string
	Err   error // optional cause, e.g. an integer overflow
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no action number in reply %q: %v", e.Reply, e.Err)
	}
	return fmt.Sprintf("no action number in reply %q", e.Reply)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IndexError reports a chosen index outside the action menu.
type IndexError struct {
	Index int
	Size  int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("action index %d out of range [0, %d)", e.Index, e.Size)
}

// TransportError reports a failed, timed out or malformed completion call.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s completion failed: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsRecoverable reports whether err is one of the tick-level errors that
// fall back to the default action instead of stopping the match.
func IsRecoverable(err error) bool {
	var pe *ParseError
	var ie *IndexError
	var te *TransportError
	return errors.As(err, &pe) || errors.As(err, &ie) || errors.As(err, &te)
}

// Kind names the error category for logs and journal records.
func Kind(err error) string {
	var pe *ParseError
	var ie *IndexError
	var te *TransportError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &ie):
		return "index"
	case errors.As(err, &te):
		return "transport"
	default:
		return "unknown"
	}
}
