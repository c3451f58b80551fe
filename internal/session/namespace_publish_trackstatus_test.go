package session

import (
	"context"
	"testing"
	"time"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

func contextBackground() context.Context { return context.Background() }

func zeroLocation() wire.Location { return wire.Location{} }

// waitForPublisherSub polls until reqID appears in s.publisherSubs, for
// synchronizing with a goroutine-driven OfferPublish call before a test
// delivers the reply it's blocked waiting for.
func waitForPublisherSub(t *testing.T, s *Session, reqID uint64) {
	t.Helper()
	waitUntil(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, ok := s.publisherSubs[reqID]
		return ok
	})
}

func waitForTrackStatusQuery(t *testing.T, s *Session, reqID uint64) {
	t.Helper()
	waitUntil(t, func() bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		_, ok := s.trackStatusQueries[reqID]
		return ok
	})
}

// waitUntil polls cond until it reports true or the deadline passes.
func waitUntil(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for condition")
}

func TestHandlePublishNamespaceOKResolvesAnnouncement(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	na := &namespaceAnnouncement{namespace: []string{"live"}, resultCh: make(chan error, 1)}
	s.nsAnnouncements[7] = na

	s.handlePublishNamespaceOK(protocol.PublishNamespaceOK{RequestID: 7})

	select {
	case err := <-na.resultCh:
		if err != nil {
			t.Fatalf("resultCh err = %v, want nil", err)
		}
	default:
		t.Fatalf("handlePublishNamespaceOK did not resolve the announcement")
	}
	if _, ok := s.nsAnnouncements[7]; ok {
		t.Fatalf("announcement still tracked after resolution")
	}
}

func TestHandlePublishNamespaceErrorResolvesAnnouncement(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	na := &namespaceAnnouncement{namespace: []string{"live"}, resultCh: make(chan error, 1)}
	s.nsAnnouncements[3] = na

	s.handlePublishNamespaceError(protocol.PublishNamespaceError{RequestID: 3, ErrorCode: protocol.ErrorCode(0x01), Reason: "nope"})

	select {
	case err := <-na.resultCh:
		var reqErr *RequestError
		if err == nil {
			t.Fatalf("resultCh err = nil, want a RequestError")
		}
		var ok bool
		reqErr, ok = err.(*RequestError)
		if !ok {
			t.Fatalf("resultCh err type = %T, want *RequestError", err)
		}
		if reqErr.Reason != "nope" {
			t.Fatalf("reason = %q, want %q", reqErr.Reason, "nope")
		}
	default:
		t.Fatalf("handlePublishNamespaceError did not resolve the announcement")
	}
}

func TestHandleIncomingPublishNamespaceAutoAcks(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	rec := &recordingControlStream{}
	s.control = rec

	s.handleIncomingPublishNamespace(protocol.PublishNamespace{RequestID: 5, Namespace: []string{"live"}})

	select {
	case ev := <-s.events.namespaceAnnounced:
		if ev.RequestID != 5 {
			t.Fatalf("event request id = %d, want 5", ev.RequestID)
		}
	default:
		t.Fatalf("expected a NamespaceAnnouncedEvent")
	}

	frame, ok := rec.last()
	if !ok {
		t.Fatalf("expected a control frame to be written")
	}
	if frame.Type != protocol.MsgPublishNamespaceOK {
		t.Fatalf("frame type = %#x, want PUBLISH_NAMESPACE_OK", uint64(frame.Type))
	}
	ackOK, err := protocol.DecodePublishNamespaceOK(frame.Payload)
	if err != nil {
		t.Fatalf("DecodePublishNamespaceOK: %v", err)
	}
	if ackOK.RequestID != 5 {
		t.Fatalf("acked request id = %d, want 5", ackOK.RequestID)
	}
}

func TestHandleSubscribeNamespaceOKAndError(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	ns := &namespaceSubscription{prefix: []string{"live"}, resultCh: make(chan error, 1)}
	s.nsSubscriptions[11] = ns

	s.handleSubscribeNamespaceOK(protocol.SubscribeNamespaceOK{RequestID: 11})
	select {
	case err := <-ns.resultCh:
		if err != nil {
			t.Fatalf("resultCh err = %v, want nil", err)
		}
	default:
		t.Fatalf("handleSubscribeNamespaceOK did not resolve the registration")
	}

	ns2 := &namespaceSubscription{prefix: []string{"other"}, resultCh: make(chan error, 1)}
	s.nsSubscriptions[12] = ns2
	s.handleSubscribeNamespaceError(protocol.SubscribeNamespaceError{RequestID: 12, ErrorCode: protocol.ErrorCode(0x02), Reason: "denied"})
	select {
	case err := <-ns2.resultCh:
		if err == nil {
			t.Fatalf("expected an error")
		}
	default:
		t.Fatalf("handleSubscribeNamespaceError did not resolve the registration")
	}
}

func TestOfferPublishAndPublishOK(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.control = &recordingControlStream{}

	resultCh := make(chan error, 1)
	var info *PublishOKInfo
	go func() {
		var err error
		info, err = s.OfferPublish(contextBackground(), []string{"live"}, "cam0", 99, protocol.GroupOrderAscending, protocol.ForwardOn, false, zeroLocation(), nil)
		resultCh <- err
	}()

	waitForPublisherSub(t, s, 0)

	s.handlePublishOK(protocol.PublishOK{RequestID: 0, Forward: protocol.ForwardOn, Priority: 128})

	if err := <-resultCh; err != nil {
		t.Fatalf("OfferPublish: %v", err)
	}
	if info == nil || info.Forward != protocol.ForwardOn {
		t.Fatalf("info = %+v, want Forward=ForwardOn", info)
	}
}

func TestOfferPublishRejected(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.control = &recordingControlStream{}

	resultCh := make(chan error, 1)
	go func() {
		_, err := s.OfferPublish(contextBackground(), []string{"live"}, "cam1", 100, 0, 0, false, zeroLocation(), nil)
		resultCh <- err
	}()

	waitForPublisherSub(t, s, 0)

	s.handlePublishError(protocol.PublishError{RequestID: 0, ErrorCode: protocol.ErrorCode(0x01), Reason: "denied"})

	err := <-resultCh
	if err == nil {
		t.Fatalf("expected an error")
	}
	s.mu.Lock()
	_, stillTracked := s.publisherSubs[0]
	s.mu.Unlock()
	if stillTracked {
		t.Fatalf("publisherSubs entry should be removed after PUBLISH_ERROR")
	}
}

func TestAcceptPublishCreatesActiveSubscription(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.control = &recordingControlStream{}

	req := &IncomingPublishRequest{RequestID: 4, Namespace: []string{"live"}, TrackName: "cam0", TrackAlias: 55, sess: s}
	sub, err := req.AcceptPublish(FilterLargestObject(), SubscribeOptions{Priority: 10})
	if err != nil {
		t.Fatalf("AcceptPublish: %v", err)
	}
	if sub.TrackAlias() != 55 {
		t.Fatalf("alias = %d, want 55", sub.TrackAlias())
	}

	obj := Object{Group: 1, ObjectID: 1, Payload: []byte("z")}
	s.routeByAlias(55, obj)

	select {
	case got := <-sub.Objects():
		if string(got.Payload) != "z" {
			t.Fatalf("payload = %q", got.Payload)
		}
	default:
		t.Fatalf("object not delivered to accepted publish's subscription")
	}
}

func TestHandleIncomingTrackStatusFoundAndNotFound(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	rec := &recordingControlStream{}
	s.control = rec

	s.handleIncomingTrackStatus(protocol.TrackStatus{RequestID: 1, Namespace: []string{"live"}, TrackName: "cam0"})
	frame, ok := rec.last()
	if !ok {
		t.Fatalf("expected a TRACK_STATUS_OK frame")
	}
	tsOK, err := protocol.DecodeTrackStatusOK(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeTrackStatusOK: %v", err)
	}
	if tsOK.StatusCode != protocol.TrackStatusDoesNotExist {
		t.Fatalf("status = %#x, want TrackStatusDoesNotExist", tsOK.StatusCode)
	}

	s.mu.Lock()
	s.aliasTable[77] = TrackInfo{Namespace: []string{"live"}, TrackName: "cam0"}
	s.publisherSubs[9] = &publisherSubscription{
		requestID:   9,
		trackAlias:  77,
		openStreams: make(map[uint64]carrier.SendStream),
		largest:     zeroLocation(),
	}
	s.mu.Unlock()

	s.handleIncomingTrackStatus(protocol.TrackStatus{RequestID: 2, Namespace: []string{"live"}, TrackName: "cam0"})
	frame, ok = rec.last()
	if !ok {
		t.Fatalf("expected a second TRACK_STATUS_OK frame")
	}
	tsOK, err = protocol.DecodeTrackStatusOK(frame.Payload)
	if err != nil {
		t.Fatalf("DecodeTrackStatusOK: %v", err)
	}
	if tsOK.StatusCode != protocol.TrackStatusInProgress || !tsOK.ContentExists {
		t.Fatalf("tsOK = %+v, want in-progress with content", tsOK)
	}
}

func TestQueryTrackStatusOKAndError(t *testing.T) {
	t.Parallel()

	s := newTestSession()
	s.control = &recordingControlStream{}

	resultCh := make(chan error, 1)
	var info *TrackStatusInfo
	go func() {
		var err error
		info, err = s.QueryTrackStatus(contextBackground(), []string{"live"}, "cam0", nil)
		resultCh <- err
	}()

	waitForTrackStatusQuery(t, s, 0)
	s.handleTrackStatusOK(protocol.TrackStatusOK{RequestID: 0, StatusCode: protocol.TrackStatusInProgress, ContentExists: true})

	if err := <-resultCh; err != nil {
		t.Fatalf("QueryTrackStatus: %v", err)
	}
	if info == nil || !info.ContentExists {
		t.Fatalf("info = %+v, want ContentExists=true", info)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := s.QueryTrackStatus(contextBackground(), []string{"live"}, "cam1", nil)
		errCh <- err
	}()

	waitForTrackStatusQuery(t, s, 2)
	s.handleTrackStatusError(protocol.TrackStatusError{RequestID: 2, ErrorCode: protocol.ErrTrackDoesNotExist, Reason: "no such track"})

	if err := <-errCh; err == nil {
		t.Fatalf("QueryTrackStatus: expected an error after TRACK_STATUS_ERROR")
	}
}
