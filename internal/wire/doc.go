// Package wire implements the low-level encoding primitives shared by every
// MoQ Transport message: QUIC-style variable-length integers, namespace
// tuples, (group, object) locations, the even/odd key-value parameter
// convention, and length-prefixed UTF-8 reason phrases.
//
// Every decoder in this package returns one of two distinct failure modes:
// ErrIncomplete when the buffer simply doesn't contain enough bytes yet
// (the caller should buffer more and retry), and a *MalformedError when the
// bytes present violate the wire format (the caller should fail the
// message or the session). Callers MUST NOT conflate the two: a framer
// waiting on a short read and a codec rejecting corrupt input require
// different responses.
package wire
