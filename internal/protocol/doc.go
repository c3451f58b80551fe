// Package protocol implements the MoQ Transport message catalog: every
// control message (setup, subscribe/publish/fetch/namespace lifecycle,
// goaway), the SUBGROUP_HEADER-framed data-stream object sequence, and the
// OBJECT_DATAGRAM format, per draft-ietf-moq-transport-14.
//
// Each message type is a plain struct with an Encode method and a
// top-level Decode<Type> function. Decoders build on internal/wire and
// propagate its ErrIncomplete / *MalformedError distinction. Control
// message framing (type + u16 length + payload) and the incremental
// control-stream framer live in control.go and framer.go respectively.
package protocol
