package protocol

import (
	"errors"
	"fmt"

	"github.com/zsiec/moqc/internal/wire"
)

// Sentinel errors for session-level conditions that callers may need to
// distinguish with errors.Is.
var (
	ErrVersionMismatch   = errors.New("protocol: no compatible version")
	ErrUnknownTrack      = errors.New("protocol: unknown track")
	ErrUnsupportedFilter = errors.New("protocol: unsupported filter type")
	ErrUnknownNamespace  = errors.New("protocol: unknown namespace")
)

// ParseError reports a failure to decode a message field. A message
// payload delivered through a control message is already a complete,
// length-bounded buffer (the framer established that before handing it to
// a decoder), so a wire.ErrIncomplete encountered here is promoted to a
// parse failure rather than "keep waiting" — there is nothing more coming
// for this payload.
type ParseError struct {
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("protocol: parse %s: %v", e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errTruncated = errors.New("truncated")

func fieldErr(field string, err error) error {
	if errors.Is(err, wire.ErrIncomplete) {
		err = errors.New("truncated")
	}
	return &ParseError{Field: field, Err: err}
}
