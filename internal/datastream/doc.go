// Package datastream implements the per-stream parser for MoQ data
// streams: the unidirectional QUIC streams that carry
// SUBGROUP_HEADER and FETCH_HEADER framed objects, as opposed to the
// bidirectional control stream handled by internal/protocol's Framer.
//
// Each QUIC stream gets its own Parser. Bytes arrive incrementally as
// QUIC delivers them; Parser.Feed buffers them and Parser.Next drains
// whatever complete objects are now available, mirroring the
// Feed/Next shape of protocol.Framer.
package datastream
