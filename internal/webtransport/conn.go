package webtransport

import (
	"context"

	"github.com/quic-go/webtransport-go"

	"github.com/zsiec/moqc/internal/carrier"
)

// conn adapts a *webtransport.Session to carrier.Connection. The session
// itself already multiplexes streams and datagrams over one QUIC
// connection.
type conn struct {
	session *webtransport.Session
}

var _ carrier.Connection = (*conn)(nil)

func (c *conn) OpenControlStream(ctx context.Context) (carrier.ControlStream, error) {
	return c.session.OpenStreamSync(ctx)
}

func (c *conn) AcceptControlStream(ctx context.Context) (carrier.ControlStream, error) {
	return c.session.AcceptStream(ctx)
}

func (c *conn) OpenUniStream(ctx context.Context) (carrier.SendStream, error) {
	return c.session.OpenUniStreamSync(ctx)
}

func (c *conn) AcceptUniStream(ctx context.Context) (carrier.ReceiveStream, error) {
	return c.session.AcceptUniStream(ctx)
}

func (c *conn) SendDatagram(data []byte) error {
	return c.session.SendDatagram(data)
}

func (c *conn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	return c.session.ReceiveDatagram(ctx)
}

func (c *conn) CloseWithError(code uint64, reason string) error {
	return c.session.CloseWithError(webtransport.SessionErrorCode(code), reason)
}

func (c *conn) Context() context.Context {
	return c.session.Context()
}
