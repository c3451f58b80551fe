package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

type fetchState int32

const (
	fetchPending fetchState = iota
	fetchActive
	fetchClosed
)

// FetchOKInfo is the resolved result of a successful fetch call.
type FetchOKInfo struct {
	GroupOrder    byte
	ContentExists bool
	EndLocation   wire.Location
}

// Fetch represents one in-flight or active FETCH.
// Objects for this fetch arrive on the Objects channel, tagged by
// whichever unidirectional stream(s) carry the FETCH_HEADER for this
// request-id; the channel closes when the stream(s) finish, FETCH_ERROR
// arrives, or CancelFetch is called.
type Fetch struct {
	sess      *Session
	requestID uint64
	kind      protocol.FetchKind
	log       *slog.Logger

	mu         sync.Mutex
	state      fetchState
	closedObjs bool

	resultCh chan fetchOutcome
	objects  chan FetchObjectEvent
}

type fetchOutcome struct {
	info FetchOKInfo
	err  error
}

// FetchObjectEvent is one object delivered on a fetch response stream
//.
type FetchObjectEvent struct {
	Group    uint64
	Subgroup uint64
	ObjectID uint64
	Priority byte
	Payload  []byte
	Status   ObjectStatusWire
}

// RequestID returns the FETCH's request-id.
func (f *Fetch) RequestID() uint64 { return f.requestID }

// Objects is the channel fetched objects are delivered on.
func (f *Fetch) Objects() <-chan FetchObjectEvent { return f.objects }

func (f *Fetch) fail(err error) {
	f.mu.Lock()
	wasPending := f.state == fetchPending
	f.state = fetchClosed
	f.mu.Unlock()
	if wasPending {
		f.resultCh <- fetchOutcome{err: err}
	}
	f.closeObjects()
}

// closeObjects closes the Objects channel at most once, guarding against
// the race between an arriving FETCH_ERROR/stream-end and a concurrent
// CancelFetch call from the application.
func (f *Fetch) closeObjects() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closedObjs {
		return
	}
	f.closedObjs = true
	f.state = fetchClosed
	close(f.objects)
}

func (f *Fetch) deliver(ev FetchObjectEvent) {
	f.mu.Lock()
	active := f.state == fetchActive
	f.mu.Unlock()
	if !active {
		return
	}
	select {
	case f.objects <- ev:
	default:
		f.log.Warn("fetch object sink full, dropping object", "request_id", f.requestID)
	}
}

func (s *Session) newFetch(reqID uint64, kind protocol.FetchKind) *Fetch {
	return &Fetch{
		sess:      s,
		requestID: reqID,
		kind:      kind,
		log:       s.log.With("request_id", reqID, "component", "fetch"),
		resultCh:  make(chan fetchOutcome, 1),
		objects:   make(chan FetchObjectEvent, s.opts.eventBuffer()),
	}
}

func (s *Session) awaitFetch(ctx context.Context, f *Fetch, msg protocol.Fetch) (*Fetch, error) {
	s.mu.Lock()
	s.fetches[f.requestID] = f
	s.mu.Unlock()

	if err := s.writeControl(protocol.MsgFetch, msg); err != nil {
		s.mu.Lock()
		delete(s.fetches, f.requestID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session: write FETCH: %w", err)
	}

	select {
	case outcome := <-f.resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return f, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.doneCh:
		return nil, ErrClosed
	}
}

// Fetch requests a standalone, bounded range of past objects.
func (s *Session) Fetch(ctx context.Context, namespace []string, trackName string, start, end wire.Location, priority byte, params []wire.Param) (*Fetch, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}
	f := s.newFetch(reqID, protocol.FetchStandalone)
	msg := protocol.Fetch{
		RequestID: reqID,
		Kind:      protocol.FetchStandalone,
		Namespace: namespace,
		TrackName: trackName,
		Start:     start,
		End:       end,
		Priority:  priority,
		Params:    params,
	}
	return s.awaitFetch(ctx, f, msg)
}

// JoiningFetchRelative requests groupCount groups back from an existing
// live subscription's current position.
func (s *Session) JoiningFetchRelative(ctx context.Context, joining *Subscription, groupCount uint64, priority byte, params []wire.Param) (*Fetch, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}
	f := s.newFetch(reqID, protocol.FetchJoiningRelative)
	msg := protocol.Fetch{
		RequestID:        reqID,
		Kind:              protocol.FetchJoiningRelative,
		JoiningRequestID: joining.requestID,
		JoiningStart:     groupCount,
		Priority:         priority,
		Params:           params,
	}
	return s.awaitFetch(ctx, f, msg)
}

// JoiningFetchAbsolute requests from an absolute start group to an
// existing live subscription's current position.
func (s *Session) JoiningFetchAbsolute(ctx context.Context, joining *Subscription, startGroup uint64, priority byte, params []wire.Param) (*Fetch, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}
	f := s.newFetch(reqID, protocol.FetchJoiningAbsolute)
	msg := protocol.Fetch{
		RequestID:        reqID,
		Kind:              protocol.FetchJoiningAbsolute,
		JoiningRequestID: joining.requestID,
		JoiningStart:     startGroup,
		Priority:         priority,
		Params:           params,
	}
	return s.awaitFetch(ctx, f, msg)
}

func (s *Session) handleFetchOK(m protocol.FetchOK) {
	s.mu.Lock()
	f, ok := s.fetches[m.RequestID]
	s.mu.Unlock()
	if !ok {
		s.log.Warn("FETCH_OK for unknown request", "request_id", m.RequestID)
		return
	}
	f.mu.Lock()
	f.state = fetchActive
	f.mu.Unlock()
	f.resultCh <- fetchOutcome{info: FetchOKInfo{
		GroupOrder:    m.GroupOrder,
		ContentExists: m.ContentExists,
		EndLocation:   m.EndLocation,
	}}
}

func (s *Session) handleFetchError(m protocol.FetchError) {
	s.mu.Lock()
	f, ok := s.fetches[m.RequestID]
	if ok {
		delete(s.fetches, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("FETCH_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	f.resultCh <- fetchOutcome{err: &RequestError{Code: m.ErrorCode, Reason: m.Reason}}
	f.closeObjects()
}

// CancelFetch removes the local record immediately, queues FETCH_CANCEL,
// and causes any still-arriving objects for this request to be dropped
//.
func (s *Session) CancelFetch(f *Fetch) error {
	s.mu.Lock()
	delete(s.fetches, f.requestID)
	s.mu.Unlock()

	f.closeObjects()

	return s.writeControl(protocol.MsgFetchCancel, protocol.FetchCancel{RequestID: f.requestID})
}
