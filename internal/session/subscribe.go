package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

type subState int32

const (
	subPending subState = iota
	subActive
	subClosed
)

// Filter selects where a subscription begins and optionally ends.
type Filter struct {
	Type     uint64
	Start    wire.Location
	EndGroup uint64
	HasEnd   bool
}

// FilterNextGroupStart begins delivery at the next group boundary.
func FilterNextGroupStart() Filter { return Filter{Type: protocol.FilterNextGroupStart} }

// FilterLargestObject begins delivery at the current largest object.
func FilterLargestObject() Filter { return Filter{Type: protocol.FilterLargestObject} }

// FilterAbsoluteStart begins delivery at an explicit (group, object).
func FilterAbsoluteStart(start wire.Location) Filter {
	return Filter{Type: protocol.FilterAbsoluteStart, Start: start}
}

// FilterAbsoluteRange begins at start and ends at endGroup, inclusive.
func FilterAbsoluteRange(start wire.Location, endGroup uint64) Filter {
	return Filter{Type: protocol.FilterAbsoluteRange, Start: start, EndGroup: endGroup, HasEnd: true}
}

// SubscribeOptions carries the SUBSCRIBE fields beyond namespace/track
// name/filter.
type SubscribeOptions struct {
	Priority   byte
	GroupOrder byte
	Forward    byte
	Params     []wire.Param
}

// SubscribeOKInfo is the resolved result of a successful Subscribe call
//.
type SubscribeOKInfo struct {
	TrackAlias    uint64
	Expires       uint64
	GroupOrder    byte
	ContentExists bool
	Largest       wire.Location
}

// Subscription represents one active or pending SUBSCRIBE. Objects arrive on the Objects channel once the
// subscription transitions to Active; the channel is closed when the
// subscription terminates.
type Subscription struct {
	sess      *Session
	requestID uint64
	namespace []string
	trackName string
	filter    Filter
	opts      SubscribeOptions
	log       *slog.Logger

	mu            sync.Mutex
	state         subState
	assignedAlias uint64
	closedObjs    bool

	resultCh chan subscribeOutcome
	objects  chan Object
}

type subscribeOutcome struct {
	info SubscribeOKInfo
	err  error
}

// RequestID returns the SUBSCRIBE's request-id.
func (sub *Subscription) RequestID() uint64 { return sub.requestID }

// Objects is the channel objects are delivered on.
func (sub *Subscription) Objects() <-chan Object { return sub.objects }

// TrackAlias returns the server-assigned alias once Active.
func (sub *Subscription) TrackAlias() uint64 {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.assignedAlias
}

func (sub *Subscription) fail(err error) {
	sub.mu.Lock()
	wasPending := sub.state == subPending
	sub.state = subClosed
	sub.mu.Unlock()
	if wasPending {
		sub.resultCh <- subscribeOutcome{err: err}
	}
	sub.closeObjects()
}

// closeObjects closes the Objects channel at most once, guarding against
// the race between a server-sent terminal message (SUBSCRIBE_ERROR,
// PUBLISH_DONE) and session teardown observing the same subscription.
func (sub *Subscription) closeObjects() {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	if sub.closedObjs {
		return
	}
	sub.closedObjs = true
	sub.state = subClosed
	close(sub.objects)
}

func (sub *Subscription) deliver(obj Object) {
	sub.mu.Lock()
	active := sub.state == subActive
	sub.mu.Unlock()
	if !active {
		return
	}
	select {
	case sub.objects <- obj:
	default:
		sub.log.Warn("object sink full, dropping object", "request_id", sub.requestID)
	}
}

// Subscribe requests delivery of a track.
// It blocks until SUBSCRIBE_OK/_ERROR arrives, ctx is canceled, or the
// session closes.
func (s *Session) Subscribe(ctx context.Context, namespace []string, trackName string, filter Filter, opts SubscribeOptions) (*Subscription, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		sess:      s,
		requestID: reqID,
		namespace: namespace,
		trackName: trackName,
		filter:    filter,
		opts:      opts,
		log:       s.log.With("request_id", reqID, "track", trackName),
		resultCh:  make(chan subscribeOutcome, 1),
		objects:   make(chan Object, s.opts.eventBuffer()),
	}

	s.mu.Lock()
	s.subscriptions[reqID] = sub
	s.mu.Unlock()

	msg := protocol.Subscribe{
		RequestID:  reqID,
		Namespace:  namespace,
		TrackName:  trackName,
		Priority:   opts.Priority,
		GroupOrder: opts.GroupOrder,
		Forward:    opts.Forward,
		FilterType: filter.Type,
		Start:      filter.Start,
		EndGroup:   filter.EndGroup,
		HasEnd:     filter.HasEnd,
		Params:     opts.Params,
	}
	if err := s.writeControl(protocol.MsgSubscribe, msg); err != nil {
		s.mu.Lock()
		delete(s.subscriptions, reqID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session: write SUBSCRIBE: %w", err)
	}

	select {
	case outcome := <-sub.resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return sub, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.doneCh:
		return nil, ErrClosed
	}
}

func (s *Session) handleSubscribeOK(m protocol.SubscribeOK) {
	s.mu.Lock()
	sub, ok := s.subscriptions[m.RequestID]
	s.mu.Unlock()
	if !ok {
		s.log.Warn("SUBSCRIBE_OK for unknown request", "request_id", m.RequestID)
		return
	}

	if err := s.registerAlias(m.TrackAlias, TrackInfo{Namespace: sub.namespace, TrackName: sub.trackName}); err != nil {
		s.log.Error("duplicate track alias", "alias", m.TrackAlias)
		sub.resultCh <- subscribeOutcome{err: err}
		s.mu.Lock()
		delete(s.subscriptions, m.RequestID)
		s.mu.Unlock()
		sub.closeObjects()
		s.closeProtocolViolation("duplicate track alias")
		return
	}

	sub.mu.Lock()
	sub.state = subActive
	sub.assignedAlias = m.TrackAlias
	sub.mu.Unlock()

	sub.resultCh <- subscribeOutcome{info: SubscribeOKInfo{
		TrackAlias:    m.TrackAlias,
		Expires:       m.Expires,
		GroupOrder:    m.GroupOrder,
		ContentExists: m.ContentExists,
		Largest:       m.Largest,
	}}
}

func (s *Session) handleSubscribeError(m protocol.SubscribeError) {
	s.mu.Lock()
	sub, ok := s.subscriptions[m.RequestID]
	if ok {
		delete(s.subscriptions, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("SUBSCRIBE_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	sub.resultCh <- subscribeOutcome{err: &RequestError{Code: m.ErrorCode, Reason: m.Reason}}
	sub.closeObjects()
}

// Update narrows or adjusts an active subscription.
// The server does not respond; this returns once SUBSCRIBE_UPDATE has
// been written.
func (s *Session) Update(sub *Subscription, start wire.Location, endGroup uint64, priority, forward byte) error {
	msg := protocol.SubscribeUpdate{
		RequestID:           sub.requestID,
		SubscriptionRequest: sub.requestID,
		Start:               start,
		EndGroup:            endGroup,
		Priority:            priority,
		Forward:             forward,
	}
	return s.writeControl(protocol.MsgSubscribeUpdate, msg)
}

// Unsubscribe emits UNSUBSCRIBE. The
// subscription is closed once a matching PUBLISH_DONE arrives, or
// immediately if one already has.
func (s *Session) Unsubscribe(sub *Subscription) error {
	return s.writeControl(protocol.MsgUnsubscribe, protocol.Unsubscribe{RequestID: sub.requestID})
}

func (s *Session) handlePublishDone(m protocol.PublishDone) {
	s.mu.Lock()
	sub, ok := s.subscriptions[m.RequestID]
	if ok {
		delete(s.subscriptions, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Debug("PUBLISH_DONE for unknown/already-closed subscription", "request_id", m.RequestID)
		return
	}
	sub.closeObjects()
}

// --- Publisher-side receive path ---

// handleIncomingSubscribe surfaces a peer's SUBSCRIBE as an event; the
// application must call AcceptSubscribe or RejectSubscribe on it.
func (s *Session) handleIncomingSubscribe(m protocol.Subscribe) {
	req := &IncomingSubscribeRequest{
		RequestID:  m.RequestID,
		Namespace:  m.Namespace,
		TrackName:  m.TrackName,
		Priority:   m.Priority,
		GroupOrder: m.GroupOrder,
		Forward:    m.Forward,
		FilterType: m.FilterType,
		Start:      m.Start,
		EndGroup:   m.EndGroup,
		HasEnd:     m.HasEnd,
		Params:     m.Params,
		sess:       s,
	}
	s.mu.Lock()
	s.pendingSubscribes[m.RequestID] = req
	s.mu.Unlock()
	sendDropOldest(s.events.incomingSubscribe, req)
}

func (s *Session) handleIncomingSubscribeUpdate(m protocol.SubscribeUpdate) {
	s.mu.Lock()
	pub, ok := s.publisherSubs[m.RequestID]
	s.mu.Unlock()
	if !ok {
		s.log.Debug("SUBSCRIBE_UPDATE for unknown publisher subscription", "request_id", m.RequestID)
		return
	}
	s.mu.Lock()
	pub.forward = m.Forward
	s.mu.Unlock()
}

func (s *Session) handleIncomingUnsubscribe(m protocol.Unsubscribe) {
	s.mu.Lock()
	_, ok := s.publisherSubs[m.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}
	s.log.Debug("peer unsubscribed", "request_id", m.RequestID)
}

// AcceptSubscribe emits SUBSCRIBE_OK for a peer-initiated SUBSCRIBE,
// registers the track alias, and moves the record to the active
// publisher-side table.
func (r *IncomingSubscribeRequest) AcceptSubscribe(trackAlias uint64, groupOrder byte, contentExists bool, largest wire.Location) error {
	s := r.sess
	s.mu.Lock()
	delete(s.pendingSubscribes, r.RequestID)
	s.publisherSubs[r.RequestID] = &publisherSubscription{
		requestID:   r.RequestID,
		trackAlias:  trackAlias,
		openStreams: make(map[uint64]carrier.SendStream),
		forward:     r.Forward,
	}
	s.mu.Unlock()

	if err := s.registerAlias(trackAlias, TrackInfo{Namespace: r.Namespace, TrackName: r.TrackName}); err != nil {
		return err
	}

	msg := protocol.SubscribeOK{
		RequestID:     r.RequestID,
		TrackAlias:    trackAlias,
		GroupOrder:    groupOrder,
		ContentExists: contentExists,
		Largest:       largest,
	}
	return s.writeControl(protocol.MsgSubscribeOK, msg)
}

// RejectSubscribe emits SUBSCRIBE_ERROR.
func (r *IncomingSubscribeRequest) RejectSubscribe(code protocol.ErrorCode, reason string) error {
	s := r.sess
	s.mu.Lock()
	delete(s.pendingSubscribes, r.RequestID)
	s.mu.Unlock()
	return s.writeControl(protocol.MsgSubscribeError, protocol.SubscribeError{
		RequestID: r.RequestID,
		ErrorCode: code,
		Reason:    reason,
	})
}

// SendPublishDone terminates an active publisher-side subscription. The
// engine refuses to send it while any data stream opened for requestID is
// still open: a publisher must not send PUBLISH_DONE with open streams
// outstanding.
func (s *Session) SendPublishDone(requestID uint64, statusCode uint64, reason string) error {
	s.mu.Lock()
	pub, ok := s.publisherSubs[requestID]
	if ok && len(pub.openStreams) > 0 {
		s.mu.Unlock()
		return fmt.Errorf("session: cannot send PUBLISH_DONE for request %d: %d data streams still open", requestID, len(pub.openStreams))
	}
	delete(s.publisherSubs, requestID)
	s.mu.Unlock()

	msg := protocol.PublishDone{
		RequestID:   requestID,
		StatusCode:  statusCode,
		StreamCount: 0,
		Reason:      reason,
		HasReason:   reason != "",
	}
	return s.writeControl(protocol.MsgPublishDone, msg)
}
