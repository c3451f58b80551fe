package session

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
)

// pipeReceiveStream adapts an io.PipeReader to carrier.ReceiveStream.
type pipeReceiveStream struct{ r *io.PipeReader }

func (p pipeReceiveStream) Read(b []byte) (int, error) { return p.r.Read(b) }

func TestDataStreamLoopRoutesSubgroupObjects(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	sub := &Subscription{
		sess:          s,
		requestID:     1,
		state:         subActive,
		assignedAlias: 3,
		log:           s.log,
		objects:       make(chan Object, 1),
		resultCh:      make(chan subscribeOutcome, 1),
	}
	s.subscriptions[sub.requestID] = sub

	pr, pw := io.Pipe()
	go s.readDataStream(pipeReceiveStream{r: pr})

	hdr := protocol.SubgroupHeader{TrackAlias: 3, GroupID: 1, SubgroupID: 0, Priority: 9}
	buf := hdr.Encode()
	buf = protocol.EncodeStreamObject(buf, protocol.Object{ID: 0, Payload: []byte("first")}, 0, true)

	go func() {
		_, _ = pw.Write(buf)
		_ = pw.Close()
	}()

	select {
	case obj := <-sub.objects:
		if string(obj.Payload) != "first" {
			t.Fatalf("payload = %q, want %q", obj.Payload, "first")
		}
		if obj.Group != 1 || obj.Priority != 9 {
			t.Fatalf("unexpected header fields: %+v", obj)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for routed subgroup object")
	}
}

func TestDataStreamLoopRoutesFetchObjects(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	f := s.newFetch(5, protocol.FetchStandalone)
	f.mu.Lock()
	f.state = fetchActive
	f.mu.Unlock()
	s.fetches[5] = f

	pr, pw := io.Pipe()
	go s.readDataStream(pipeReceiveStream{r: pr})

	fh := protocol.FetchHeader{RequestID: 5}
	buf := fh.Encode()
	buf = protocol.EncodeFetchObject(buf, protocol.FetchObject{
		GroupID: 1, ObjectID: 0, Priority: 1, Payload: []byte("fo"),
	})

	go func() {
		_, _ = pw.Write(buf)
		_ = pw.Close()
	}()

	select {
	case ev := <-f.objects:
		if string(ev.Payload) != "fo" {
			t.Fatalf("payload = %q, want %q", ev.Payload, "fo")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for routed fetch object")
	}

	// The peer FIN'd the stream without ever sending an explicit
	// end-of-track status object; the fetch must still be completed.
	select {
	case _, open := <-f.objects:
		if open {
			t.Fatalf("expected fetch objects channel to be closed after stream FIN")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for fetch completion on stream FIN")
	}
}

// openStreamOnlyConn is a carrier.Connection stub that only implements
// OpenUniStream, for tests isolating OpenDataStream from the rest of the
// transport surface.
type openStreamOnlyConn struct {
	carrier.Connection
	stream carrier.SendStream
}

func (c *openStreamOnlyConn) OpenUniStream(ctx context.Context) (carrier.SendStream, error) {
	return c.stream, nil
}

// capturingSendStream records every Write call and whether Close ran.
type capturingSendStream struct {
	writes [][]byte
	closed bool
}

func (c *capturingSendStream) Write(p []byte) (int, error) {
	cp := make([]byte, len(p))
	copy(cp, p)
	c.writes = append(c.writes, cp)
	return len(p), nil
}

func (c *capturingSendStream) Close() error {
	c.closed = true
	return nil
}

func TestOpenDataStreamWriteAndFinish(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	stream := &capturingSendStream{}
	s.conn = &openStreamOnlyConn{stream: stream}
	s.publisherSubs[1] = &publisherSubscription{
		requestID:   1,
		trackAlias:  42,
		openStreams: make(map[uint64]carrier.SendStream),
	}

	handle, err := s.OpenDataStream(context.Background(), 1, 7, protocol.SubgroupHeader{Priority: 2})
	if err != nil {
		t.Fatalf("OpenDataStream: %v", err)
	}

	s.mu.Lock()
	if _, ok := s.publisherSubs[1].openStreams[handle.streamKey]; !ok {
		s.mu.Unlock()
		t.Fatalf("stream not registered in openStreams")
	}
	s.mu.Unlock()

	if err := handle.WriteObject(protocol.Object{ID: 0, Payload: []byte("a")}); err != nil {
		t.Fatalf("WriteObject: %v", err)
	}
	if err := handle.FinishDataStream(); err != nil {
		t.Fatalf("FinishDataStream: %v", err)
	}

	s.mu.Lock()
	_, stillOpen := s.publisherSubs[1].openStreams[handle.streamKey]
	s.mu.Unlock()
	if stillOpen {
		t.Fatalf("stream should be removed from openStreams after FinishDataStream")
	}
	if !stream.closed {
		t.Fatalf("underlying stream was not closed")
	}
	if len(stream.writes) != 2 {
		t.Fatalf("wrote %d chunks, want 2 (header + one object)", len(stream.writes))
	}
}
