// Package carrier abstracts the QUIC-based transport a MoQ session runs
// over: the control stream, unidirectional data streams, and
// datagrams. The session engine in internal/session is written against
// this interface so it never imports quic-go or webtransport-go
// directly — only internal/webtransport does.
package carrier

import (
	"context"
	"io"
)

// ControlStream is the single bidirectional stream exchanging framed
// control messages for the life of a session.
type ControlStream interface {
	io.Reader
	io.Writer
	io.Closer
}

// SendStream is a unidirectional stream this endpoint opened to push
// SUBGROUP_HEADER or FETCH_HEADER framed data to the peer.
type SendStream interface {
	io.Writer
	io.Closer
}

// ReceiveStream is a unidirectional stream the peer opened.
type ReceiveStream interface {
	io.Reader
}

// Connection is everything the session engine needs from a transport: one
// control stream, any number of unidirectional data streams, and
// datagrams. The WebTransport carrier in internal/webtransport
// implements it.
type Connection interface {
	// OpenControlStream opens the bidirectional control stream. Called by
	// whichever side initiates the MoQ session (normally the client).
	OpenControlStream(ctx context.Context) (ControlStream, error)
	// AcceptControlStream accepts the peer-initiated control stream.
	// Called by whichever side did not call OpenControlStream.
	AcceptControlStream(ctx context.Context) (ControlStream, error)

	OpenUniStream(ctx context.Context) (SendStream, error)
	AcceptUniStream(ctx context.Context) (ReceiveStream, error)

	SendDatagram(data []byte) error
	ReceiveDatagram(ctx context.Context) ([]byte, error)

	// CloseWithError tears down the whole connection with a MoQ session
	// termination code and human-readable reason.
	CloseWithError(code uint64, reason string) error

	// Context is canceled once the connection is closed, by either side.
	Context() context.Context
}

// Dialer establishes an outbound Connection to a MoQ server.
type Dialer interface {
	Dial(ctx context.Context, urlStr string) (Connection, error)
}
