package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
)

// pipeRWC turns a pair of io.Pipe halves into a carrier.ControlStream.
type pipeRWC struct {
	r *io.PipeReader
	w *io.PipeWriter
}

func (p *pipeRWC) Read(b []byte) (int, error)  { return p.r.Read(b) }
func (p *pipeRWC) Write(b []byte) (int, error) { return p.w.Write(b) }
func (p *pipeRWC) Close() error {
	_ = p.w.Close()
	return p.r.Close()
}

// newControlPipePair returns the client and server ends of one
// bidirectional control stream, each backed by a pair of io.Pipes.
func newControlPipePair() (client, server *pipeRWC) {
	c2s_r, c2s_w := io.Pipe()
	s2c_r, s2c_w := io.Pipe()
	client = &pipeRWC{r: s2c_r, w: c2s_w}
	server = &pipeRWC{r: c2s_r, w: s2c_w}
	return client, server
}

// nopControlStream discards every write and reads as an immediately
// closed stream; it stands in for a control stream in handler-level unit
// tests that never drive a real peer.
type nopControlStream struct{}

func (nopControlStream) Read(p []byte) (int, error)  { return 0, io.EOF }
func (nopControlStream) Write(p []byte) (int, error) { return len(p), nil }
func (nopControlStream) Close() error                 { return nil }

// recordingControlStream discards reads but keeps every frame written to
// it, for handler-level tests that check an outgoing message's contents
// without driving a full peer loop.
type recordingControlStream struct {
	mu     sync.Mutex
	frames [][]byte
}

func (r *recordingControlStream) Read(p []byte) (int, error) { return 0, io.EOF }

func (r *recordingControlStream) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	r.mu.Lock()
	r.frames = append(r.frames, cp)
	r.mu.Unlock()
	return len(p), nil
}

func (r *recordingControlStream) Close() error { return nil }

func (r *recordingControlStream) last() (protocol.Frame, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.frames) == 0 {
		return protocol.Frame{}, false
	}
	var framer protocol.Framer
	framer.Feed(r.frames[len(r.frames)-1])
	frame, ok, err := framer.Next()
	if err != nil || !ok {
		return protocol.Frame{}, false
	}
	return frame, true
}

// discardSendStream is an OpenUniStream result nothing reads back from.
type discardSendStream struct{}

func (discardSendStream) Write(p []byte) (int, error) { return len(p), nil }
func (discardSendStream) Close() error                 { return nil }

// fakeConn is a minimal carrier.Connection driven entirely in-process,
// standing in for a WebTransport session in session-engine tests.
type fakeConn struct {
	control carrier.ControlStream
	ctx     context.Context
	cancel  context.CancelFunc

	uniCh chan carrier.ReceiveStream
	dgCh  chan []byte

	mu      sync.Mutex
	sentDgs [][]byte
}

var _ carrier.Connection = (*fakeConn)(nil)

func newFakeConn(control carrier.ControlStream) *fakeConn {
	ctx, cancel := context.WithCancel(context.Background())
	return &fakeConn{
		control: control,
		ctx:     ctx,
		cancel:  cancel,
		uniCh:   make(chan carrier.ReceiveStream, 8),
		dgCh:    make(chan []byte, 8),
	}
}

func (c *fakeConn) OpenControlStream(ctx context.Context) (carrier.ControlStream, error) {
	return c.control, nil
}

func (c *fakeConn) AcceptControlStream(ctx context.Context) (carrier.ControlStream, error) {
	return nil, errors.New("fakeConn: AcceptControlStream unsupported (client role only)")
}

func (c *fakeConn) OpenUniStream(ctx context.Context) (carrier.SendStream, error) {
	return discardSendStream{}, nil
}

func (c *fakeConn) AcceptUniStream(ctx context.Context) (carrier.ReceiveStream, error) {
	select {
	case rs := <-c.uniCh:
		return rs, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) SendDatagram(data []byte) error {
	c.mu.Lock()
	c.sentDgs = append(c.sentDgs, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) ReceiveDatagram(ctx context.Context) ([]byte, error) {
	select {
	case d := <-c.dgCh:
		return d, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *fakeConn) CloseWithError(code uint64, reason string) error {
	c.cancel()
	return nil
}

func (c *fakeConn) Context() context.Context { return c.ctx }

// recvFrame blocks until one complete control frame has arrived on r.
func recvFrame(r io.Reader) (protocol.Frame, error) {
	var framer protocol.Framer
	buf := make([]byte, 4096)
	for {
		frame, ok, err := framer.Next()
		if err != nil {
			return protocol.Frame{}, err
		}
		if ok {
			return frame, nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			framer.Feed(buf[:n])
			continue
		}
		if err != nil {
			return protocol.Frame{}, err
		}
	}
}

// fakeServer plays the peer side of a MoQ session over a *pipeRWC: it
// answers CLIENT_SETUP, then answers SUBSCRIBE with SUBSCRIBE_OK (unless
// dropSubscribe is set) and UNSUBSCRIBE with PUBLISH_DONE; other control
// messages are ignored.
type fakeServer struct {
	conn *pipeRWC

	maxRequestID uint64
	// subscribeAlias, when non-zero, is the track alias SUBSCRIBE_OK
	// replies with for every incoming SUBSCRIBE.
	subscribeAlias uint64

	// dropSubscribe, when true, reads SUBSCRIBE but never answers it,
	// for tests exercising a request left pending at teardown.
	dropSubscribe bool
}

// run performs the CLIENT_SETUP/SERVER_SETUP handshake, then answers
// control messages until the pipe closes or ctx is canceled.
func (fs *fakeServer) run(ctx context.Context) error {
	f, err := recvFrame(fs.conn)
	if err != nil {
		return fmt.Errorf("fakeServer: read CLIENT_SETUP: %w", err)
	}
	if f.Type != protocol.MsgClientSetup {
		return fmt.Errorf("fakeServer: expected CLIENT_SETUP, got %#x", uint64(f.Type))
	}

	maxReqID := fs.maxRequestID
	if maxReqID == 0 {
		maxReqID = 1000
	}
	ss := protocol.ServerSetup{SelectedVersion: DefaultVersion, MaxRequestID: maxReqID}
	if _, err := fs.conn.Write(protocol.EncodeMessage(protocol.MsgServerSetup, ss)); err != nil {
		return fmt.Errorf("fakeServer: write SERVER_SETUP: %w", err)
	}

	for {
		f, err := recvFrame(fs.conn)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return err
		}

		switch f.Type {
		case protocol.MsgSubscribe:
			sub, err := protocol.DecodeSubscribe(f.Payload)
			if err != nil {
				return err
			}
			if fs.dropSubscribe {
				continue
			}
			alias := fs.subscribeAlias
			if alias == 0 {
				alias = sub.RequestID + 1
			}
			ok := protocol.SubscribeOK{RequestID: sub.RequestID, TrackAlias: alias, GroupOrder: sub.GroupOrder}
			if _, err := fs.conn.Write(protocol.EncodeMessage(protocol.MsgSubscribeOK, ok)); err != nil {
				return err
			}
		case protocol.MsgUnsubscribe:
			us, err := protocol.DecodeUnsubscribe(f.Payload)
			if err != nil {
				return err
			}
			done := protocol.PublishDone{RequestID: us.RequestID, StatusCode: 0}
			if _, err := fs.conn.Write(protocol.EncodeMessage(protocol.MsgPublishDone, done)); err != nil {
				return err
			}
		default:
			// Ignore anything this simple driver doesn't model.
		}
	}
}
