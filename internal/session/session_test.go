package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zsiec/moqc/internal/protocol"
)

func connectedSession(t *testing.T, fs *fakeServer) (*Session, *fakeConn) {
	t.Helper()

	client, server := newControlPipePair()
	fs.conn = server
	conn := newFakeConn(client)

	serverErrCh := make(chan error, 1)
	go func() { serverErrCh <- fs.run(conn.Context()) }()

	sess := New(conn, Options{SetupTimeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Disconnect()
		_ = client.Close()
		select {
		case <-serverErrCh:
		case <-time.After(time.Second):
		}
	})

	return sess, conn
}

func TestSessionConnectSubscribeObjectAndTeardown(t *testing.T) {
	t.Parallel()

	sess, conn := connectedSession(t, &fakeServer{subscribeAlias: 7})
	if !sess.Connected() {
		t.Fatalf("session not connected after Connect")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := sess.Subscribe(ctx, []string{"live"}, "cam0", FilterLargestObject(), SubscribeOptions{Priority: 1})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if sub.TrackAlias() != 7 {
		t.Fatalf("track alias = %d, want 7", sub.TrackAlias())
	}

	dg := protocol.ObjectDatagram{
		TrackAlias: 7,
		GroupID:    1,
		ObjectID:   2,
		Priority:   5,
		Payload:    []byte("hello"),
	}
	conn.dgCh <- dg.Encode()

	select {
	case obj := <-sub.Objects():
		if string(obj.Payload) != "hello" {
			t.Fatalf("payload = %q, want %q", obj.Payload, "hello")
		}
		if !obj.FromDatagram {
			t.Fatalf("expected FromDatagram=true")
		}
		if obj.Group != 1 || obj.ObjectID != 2 {
			t.Fatalf("unexpected location: group=%d object=%d", obj.Group, obj.ObjectID)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for delivered object")
	}

	if err := sess.Unsubscribe(sub); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}

	select {
	case _, ok := <-sub.Objects():
		if ok {
			t.Fatalf("expected Objects channel to be closed after PUBLISH_DONE")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Objects channel close")
	}
}

func TestSessionSubscribeDuplicateTrackAliasClosesSession(t *testing.T) {
	t.Parallel()

	// Both subscriptions will be told the alias is 42 but for two
	// different tracks, which the alias table must reject.
	sess, _ := connectedSession(t, &fakeServer{subscribeAlias: 42})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub1, err := sess.Subscribe(ctx, []string{"live"}, "cam0", FilterLargestObject(), SubscribeOptions{})
	if err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if sub1.TrackAlias() != 42 {
		t.Fatalf("alias = %d, want 42", sub1.TrackAlias())
	}

	_, err = sess.Subscribe(ctx, []string{"live"}, "cam1", FilterLargestObject(), SubscribeOptions{})
	if !errors.Is(err, ErrDuplicateTrackAlias) {
		t.Fatalf("second Subscribe err = %v, want ErrDuplicateTrackAlias", err)
	}

	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not tear down after duplicate track alias")
	}
}

func TestAllocateRequestIDBlockedByPeerQuota(t *testing.T) {
	t.Parallel()

	sess, _ := connectedSession(t, &fakeServer{maxRequestID: 2})

	// nextRequestID starts at 0 and steps by 2; the peer only allows
	// ids below 2, so the first call (id 0) succeeds and the second
	// (id 2) is blocked.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	sub, err := sess.Subscribe(ctx, []string{"live"}, "cam0", FilterLargestObject(), SubscribeOptions{})
	if err != nil {
		t.Fatalf("first Subscribe: %v", err)
	}
	if sub.RequestID() != 0 {
		t.Fatalf("first request id = %d, want 0", sub.RequestID())
	}

	_, err = sess.Subscribe(ctx, []string{"live"}, "cam1", FilterLargestObject(), SubscribeOptions{})
	if !errors.Is(err, ErrRequestsBlocked) {
		t.Fatalf("second Subscribe err = %v, want ErrRequestsBlocked", err)
	}
}

func TestSessionDisconnectFailsPendingSubscribe(t *testing.T) {
	t.Parallel()

	// A server that never answers SUBSCRIBE: Subscribe must observe
	// ErrClosed once Disconnect tears the session down.
	client, server := newControlPipePair()
	conn := newFakeConn(client)
	fs := &fakeServer{conn: server, dropSubscribe: true}
	go func() { _ = fs.run(conn.Context()) }()

	sess := New(conn, Options{SetupTimeout: 2 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := sess.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// With dropSubscribe set the fake server reads SUBSCRIBE but never
	// answers it, so Subscribe blocks; Disconnect runs concurrently.
	resultCh := make(chan error, 1)
	go func() {
		subCtx, subCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer subCancel()
		_, err := sess.Subscribe(subCtx, []string{"never"}, "answered", FilterLargestObject(), SubscribeOptions{})
		resultCh <- err
	}()

	// Give the goroutine a moment to register the pending subscribe
	// before tearing the session down.
	time.Sleep(50 * time.Millisecond)
	if err := sess.Disconnect(); err != nil {
		t.Fatalf("Disconnect: %v", err)
	}

	select {
	case err := <-resultCh:
		if !errors.Is(err, ErrClosed) {
			t.Fatalf("Subscribe err = %v, want ErrClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for Subscribe to fail")
	}

	_ = client.Close()
}
