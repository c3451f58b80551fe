// Package session implements the MoQ Transport session engine:
// setup, request-ID accounting, the four correlation tables, subscribe/
// fetch/namespace lifecycles, object routing, and GOAWAY handling. It is
// the orchestrator that sits on top of internal/protocol's wire types,
// internal/datastream's per-stream parser, and internal/carrier's
// transport-agnostic Connection, the same way prism's MoQSession sits on
// top of its own control codec and internal/webtransport — except this
// Session is written for the client/subscriber role draft-14 describes,
// with the minimal publisher-side receive path (accept/reject incoming
// SUBSCRIBE, PUBLISH_DONE) required of a client that also publishes.
package session
