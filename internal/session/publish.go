package session

import (
	"context"
	"fmt"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

// PublishOKInfo is the resolved result of a successful OfferPublish call:
// the subscriber's chosen delivery window for the offered track.
type PublishOKInfo struct {
	Forward    byte
	Priority   byte
	GroupOrder byte
	FilterType uint64
	Start      wire.Location
	EndGroup   uint64
	HasEnd     bool
}

type publishOffer struct {
	resultCh chan publishOutcome
}

type publishOutcome struct {
	info PublishOKInfo
	err  error
}

// OfferPublish sends PUBLISH to offer a track to the peer without waiting
// for a SUBSCRIBE. It
// blocks until PUBLISH_OK/_ERROR arrives.
func (s *Session) OfferPublish(ctx context.Context, namespace []string, trackName string, trackAlias uint64, groupOrder, forward byte, contentExists bool, largest wire.Location, params []wire.Param) (*PublishOKInfo, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}

	if err := s.registerAlias(trackAlias, TrackInfo{Namespace: namespace, TrackName: trackName}); err != nil {
		return nil, err
	}

	offer := &publishOffer{resultCh: make(chan publishOutcome, 1)}
	s.mu.Lock()
	s.publishOffers[reqID] = offer
	s.publisherSubs[reqID] = &publisherSubscription{
		requestID:   reqID,
		trackAlias:  trackAlias,
		openStreams: make(map[uint64]carrier.SendStream),
		forward:     forward,
	}
	s.mu.Unlock()

	msg := protocol.Publish{
		RequestID:     reqID,
		Namespace:     namespace,
		TrackName:     trackName,
		TrackAlias:    trackAlias,
		GroupOrder:    groupOrder,
		Forward:       forward,
		ContentExists: contentExists,
		Largest:       largest,
		Params:        params,
	}
	if err := s.writeControl(protocol.MsgPublish, msg); err != nil {
		s.mu.Lock()
		delete(s.publishOffers, reqID)
		delete(s.publisherSubs, reqID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session: write PUBLISH: %w", err)
	}

	select {
	case outcome := <-offer.resultCh:
		if outcome.err != nil {
			return nil, outcome.err
		}
		return &outcome.info, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.doneCh:
		return nil, ErrClosed
	}
}

func (s *Session) handlePublishOK(m protocol.PublishOK) {
	s.mu.Lock()
	offer, ok := s.publishOffers[m.RequestID]
	if ok {
		delete(s.publishOffers, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("PUBLISH_OK for unknown request", "request_id", m.RequestID)
		return
	}
	offer.resultCh <- publishOutcome{info: PublishOKInfo{
		Forward:    m.Forward,
		Priority:   m.Priority,
		GroupOrder: m.GroupOrder,
		FilterType: m.FilterType,
		Start:      m.Start,
		EndGroup:   m.EndGroup,
		HasEnd:     m.HasEnd,
	}}
}

func (s *Session) handlePublishError(m protocol.PublishError) {
	s.mu.Lock()
	offer, ok := s.publishOffers[m.RequestID]
	if ok {
		delete(s.publishOffers, m.RequestID)
	}
	delete(s.publisherSubs, m.RequestID)
	s.mu.Unlock()
	if !ok {
		s.log.Warn("PUBLISH_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	offer.resultCh <- publishOutcome{err: &RequestError{Code: m.ErrorCode, Reason: m.Reason}}
}

// handleIncomingPublish surfaces a peer's PUBLISH as an event; the
// application must call AcceptPublish or RejectPublish on it.
func (s *Session) handleIncomingPublish(m protocol.Publish) {
	req := &IncomingPublishRequest{
		RequestID:     m.RequestID,
		Namespace:     m.Namespace,
		TrackName:     m.TrackName,
		TrackAlias:    m.TrackAlias,
		GroupOrder:    m.GroupOrder,
		Forward:       m.Forward,
		ContentExists: m.ContentExists,
		Largest:       m.Largest,
		Params:        m.Params,
		sess:          s,
	}
	s.mu.Lock()
	s.pendingPublishes[m.RequestID] = req
	s.mu.Unlock()
	sendDropOldest(s.events.incomingPublish, req)
}

// AcceptPublish emits PUBLISH_OK, registers the track alias, and opens a
// Subscription record so delivered objects surface on its Objects channel
// like any other subscription.
func (r *IncomingPublishRequest) AcceptPublish(filter Filter, opts SubscribeOptions) (*Subscription, error) {
	s := r.sess
	s.mu.Lock()
	delete(s.pendingPublishes, r.RequestID)
	s.mu.Unlock()

	if err := s.registerAlias(r.TrackAlias, TrackInfo{Namespace: r.Namespace, TrackName: r.TrackName}); err != nil {
		return nil, err
	}

	sub := &Subscription{
		sess:          s,
		requestID:     r.RequestID,
		namespace:     r.Namespace,
		trackName:     r.TrackName,
		filter:        filter,
		opts:          opts,
		log:           s.log.With("request_id", r.RequestID, "track", r.TrackName),
		state:         subActive,
		assignedAlias: r.TrackAlias,
		resultCh:      make(chan subscribeOutcome, 1),
		objects:       make(chan Object, s.opts.eventBuffer()),
	}
	s.mu.Lock()
	s.subscriptions[r.RequestID] = sub
	s.mu.Unlock()

	msg := protocol.PublishOK{
		RequestID:  r.RequestID,
		Forward:    r.Forward,
		Priority:   opts.Priority,
		GroupOrder: opts.GroupOrder,
		FilterType: filter.Type,
		Start:      filter.Start,
		EndGroup:   filter.EndGroup,
		HasEnd:     filter.HasEnd,
		Params:     opts.Params,
	}
	if err := s.writeControl(protocol.MsgPublishOK, msg); err != nil {
		s.mu.Lock()
		delete(s.subscriptions, r.RequestID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session: write PUBLISH_OK: %w", err)
	}
	return sub, nil
}

// RejectPublish emits PUBLISH_ERROR.
func (r *IncomingPublishRequest) RejectPublish(code protocol.ErrorCode, reason string) error {
	s := r.sess
	s.mu.Lock()
	delete(s.pendingPublishes, r.RequestID)
	s.mu.Unlock()
	return s.writeControl(protocol.MsgPublishError, protocol.PublishError{
		RequestID: r.RequestID,
		ErrorCode: code,
		Reason:    reason,
	})
}
