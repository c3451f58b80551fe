package session

import (
	"errors"
	"fmt"

	"github.com/zsiec/moqc/internal/protocol"
)

// Sentinel errors for session-level conditions callers distinguish with
// errors.Is.
var (
	// ErrSetupTimeout is returned from Connect when no SERVER_SETUP
	// arrives within Options.SetupTimeout.
	ErrSetupTimeout = errors.New("session: setup timeout")

	// ErrVersionMismatch is returned from Connect when the server selects
	// a version not in the client's offered list.
	ErrVersionMismatch = errors.New("session: no compatible version")

	// ErrClosed is returned by any in-flight request method once the
	// session has disconnected, and completes all outstanding per-request
	// futures.
	ErrClosed = errors.New("session: closed")

	// ErrRequestsBlocked is returned when issuing a request would exceed
	// the peer's advertised MAX_REQUEST_ID.
	ErrRequestsBlocked = errors.New("session: requests blocked by peer quota")

	// ErrDuplicateTrackAlias is returned when the peer reuses a track
	// alias for a different (namespace, name) pair.
	ErrDuplicateTrackAlias = errors.New("session: duplicate track alias")

	// ErrUnknownRequest is returned when a control message correlates to
	// a request-id with no matching local record (already completed,
	// canceled, or never issued).
	ErrUnknownRequest = errors.New("session: unknown request id")
)

// RequestError reports a per-request rejection carried by a *_ERROR
// control message: SUBSCRIBE_ERROR, FETCH_ERROR, PUBLISH_ERROR,
// PUBLISH_NAMESPACE_ERROR, SUBSCRIBE_NAMESPACE_ERROR. The request's table entry is removed before this is
// returned to the caller.
type RequestError struct {
	Code   protocol.ErrorCode
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("session: request rejected (code=%#x): %s", uint64(e.Code), e.Reason)
}

// ProtocolError is a session-fatal violation carrying the draft-14 error
// code reported to the peer when the carrier is closed.
type ProtocolError struct {
	Code   protocol.ErrorCode
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("session: protocol violation (code=%#x): %s", uint64(e.Code), e.Reason)
}
