package session

import (
	"context"
	"errors"

	"github.com/zsiec/moqc/internal/protocol"
)

// datagramLoop reads OBJECT_DATAGRAMs off the connection and routes each
// one by track alias, same as a subgroup-stream object.
func (s *Session) datagramLoop(ctx context.Context) error {
	for {
		data, err := s.conn.ReceiveDatagram(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			s.log.Debug("receive datagram error", "error", err)
			return nil
		}

		dg, err := protocol.DecodeObjectDatagram(data)
		if err != nil {
			s.log.Debug("malformed object datagram, dropping", "error", err)
			continue
		}

		s.routeByAlias(dg.TrackAlias, Object{
			Group:        dg.GroupID,
			Subgroup:     dg.SubgroupID,
			ObjectID:     dg.ObjectID,
			Priority:     dg.Priority,
			Payload:      dg.Payload,
			Status:       uint64(dg.Status),
			Kind:         classifyExtensions(dg.Extensions),
			FromDatagram: true,
		})
	}
}

// SendObjectDatagram emits one object out-of-band from any stream for an
// accepted publisher-side subscription.
func (s *Session) SendObjectDatagram(requestID uint64, dg protocol.ObjectDatagram) error {
	s.mu.Lock()
	pub, ok := s.publisherSubs[requestID]
	s.mu.Unlock()
	if !ok {
		return ErrUnknownRequest
	}
	dg.TrackAlias = pub.trackAlias
	return s.conn.SendDatagram(dg.Encode())
}
