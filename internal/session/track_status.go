package session

import (
	"context"
	"fmt"

	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

// TrackStatusInfo is the resolved result of a successful QueryTrackStatus
// call.
type TrackStatusInfo struct {
	StatusCode    uint64
	Largest       wire.Location
	ContentExists bool
}

type trackStatusQuery struct {
	resultCh chan trackStatusOutcome
}

type trackStatusOutcome struct {
	info TrackStatusInfo
	err  error
}

// QueryTrackStatus emits TRACK_STATUS without subscribing, and blocks
// until the peer answers.
func (s *Session) QueryTrackStatus(ctx context.Context, namespace []string, trackName string, params []wire.Param) (*TrackStatusInfo, error) {
	reqID, err := s.allocateRequestID()
	if err != nil {
		return nil, err
	}

	q := &trackStatusQuery{resultCh: make(chan trackStatusOutcome, 1)}
	s.mu.Lock()
	s.trackStatusQueries[reqID] = q
	s.mu.Unlock()

	msg := protocol.TrackStatus{RequestID: reqID, Namespace: namespace, TrackName: trackName, Params: params}
	if err := s.writeControl(protocol.MsgTrackStatus, msg); err != nil {
		s.mu.Lock()
		delete(s.trackStatusQueries, reqID)
		s.mu.Unlock()
		return nil, fmt.Errorf("session: write TRACK_STATUS: %w", err)
	}

	select {
	case outcome := <-q.resultCh:
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

func (s *Session) handleTrackStatusOK(m protocol.TrackStatusOK) {
	s.mu.Lock()
	q, ok := s.trackStatusQueries[m.RequestID]
	if ok {
		delete(s.trackStatusQueries, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("TRACK_STATUS_OK for unknown request", "request_id", m.RequestID)
		return
	}
	q.resultCh <- trackStatusOutcome{info: TrackStatusInfo{
		StatusCode:    m.StatusCode,
		Largest:       m.Largest,
		ContentExists: m.ContentExists,
	}}
}

func (s *Session) handleTrackStatusError(m protocol.TrackStatusError) {
	s.mu.Lock()
	q, ok := s.trackStatusQueries[m.RequestID]
	if ok {
		delete(s.trackStatusQueries, m.RequestID)
	}
	s.mu.Unlock()
	if !ok {
		s.log.Warn("TRACK_STATUS_ERROR for unknown request", "request_id", m.RequestID)
		return
	}
	q.resultCh <- trackStatusOutcome{err: &RequestError{Code: m.ErrorCode, Reason: m.Reason}}
}

// handleIncomingTrackStatus answers a peer's TRACK_STATUS query using the
// alias table: if the peer's (namespace, track_name) matches a track we
// are actively serving as publisher, report its largest known location.
// Otherwise report TrackDoesNotExist.
func (s *Session) handleIncomingTrackStatus(m protocol.TrackStatus) {
	s.mu.Lock()
	var alias uint64
	found := false
	for a, info := range s.aliasTable {
		if sameTrack(info, TrackInfo{Namespace: m.Namespace, TrackName: m.TrackName}) {
			alias = a
			found = true
			break
		}
	}
	var pub *publisherSubscription
	if found {
		for _, p := range s.publisherSubs {
			if p.trackAlias == alias {
				pub = p
				break
			}
		}
	}
	s.mu.Unlock()

	if pub == nil {
		_ = s.writeControl(protocol.MsgTrackStatusOK, protocol.TrackStatusOK{
			RequestID:  m.RequestID,
			StatusCode: protocol.TrackStatusDoesNotExist,
		})
		return
	}

	_ = s.writeControl(protocol.MsgTrackStatusOK, protocol.TrackStatusOK{
		RequestID:     m.RequestID,
		StatusCode:    protocol.TrackStatusInProgress,
		ContentExists: true,
		Largest:       pub.largest,
	})
}
