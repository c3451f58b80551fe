package session

import (
	"context"
	"errors"
	"io"

	"github.com/zsiec/moqc/internal/carrier"
	"github.com/zsiec/moqc/internal/datastream"
	"github.com/zsiec/moqc/internal/protocol"
)

// dataStreamLoop accepts every unidirectional stream the peer opens and
// spawns one goroutine per stream to parse and route it. It returns when the connection closes.
func (s *Session) dataStreamLoop(ctx context.Context) error {
	for {
		rs, err := s.conn.AcceptUniStream(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			s.log.Debug("accept uni stream error", "error", err)
			return nil
		}
		go s.readDataStream(rs)
	}
}

func (s *Session) readDataStream(rs carrier.ReceiveStream) {
	var parser datastream.Parser
	buf := make([]byte, 16*1024)

	for {
		n, err := rs.Read(buf)
		if n > 0 {
			parser.Feed(buf[:n])
			for {
				parsed, ok, perr := parser.Next()
				if perr != nil {
					s.log.Debug("malformed data stream, dropping", "error", perr)
					return
				}
				if !ok {
					break
				}
				s.deliverParsed(parser, parsed)
			}
		}
		if err != nil {
			s.finishDataStream(parser)
			return
		}
	}
}

// finishDataStream runs once a unidirectional stream's Read loop ends
// (FIN or error). For a fetch stream this is the only signal a fetch
// without an explicit end-of-track status object ever gets that it is
// complete, per spec.md's "ended by FETCH_OK+data-stream-end".
func (s *Session) finishDataStream(parser datastream.Parser) {
	if !parser.HeaderParsed() || parser.Kind() != datastream.KindFetch {
		return
	}
	fh := parser.FetchHeader()
	s.mu.Lock()
	f, ok := s.fetches[fh.RequestID]
	s.mu.Unlock()
	if !ok {
		return
	}
	f.closeObjects()
}

func (s *Session) deliverParsed(parser datastream.Parser, parsed datastream.Parsed) {
	switch parsed.Kind {
	case datastream.KindSubgroup:
		hdr := parser.SubgroupHeader()
		obj := Object{
			Group:    hdr.GroupID,
			Subgroup: hdr.SubgroupID,
			ObjectID: parsed.Object.ID,
			Priority: hdr.Priority,
			Payload:  parsed.Object.Payload,
			Status:   uint64(parsed.Object.Status),
			Kind:     classifyExtensions(parsed.Object.Extensions),
		}
		s.routeByAlias(hdr.TrackAlias, obj)

	case datastream.KindFetch:
		fh := parser.FetchHeader()
		s.mu.Lock()
		f, ok := s.fetches[fh.RequestID]
		s.mu.Unlock()
		if !ok {
			s.log.Debug("fetch object for unknown request, dropping", "request_id", fh.RequestID)
			return
		}
		f.deliver(FetchObjectEvent{
			Group:    parsed.FetchObject.GroupID,
			Subgroup: parsed.FetchObject.SubgroupID,
			ObjectID: parsed.FetchObject.ObjectID,
			Priority: parsed.FetchObject.Priority,
			Payload:  parsed.FetchObject.Payload,
			Status:   uint64(parsed.FetchObject.Status),
		})
		if parsed.FetchObject.Status == protocol.StatusEndOfTrack {
			f.closeObjects()
		}
	}
}

// --- Publisher-side egress ---

// DataStreamHandle is an open unidirectional stream carrying one
// subgroup's objects, returned by OpenDataStream. Objects written through
// it are delta-encoded against whatever was previously written on the
// same handle.
type DataStreamHandle struct {
	sess      *Session
	requestID uint64
	streamKey uint64
	stream    carrier.SendStream

	prevID  uint64
	started bool
}

// OpenDataStream opens a unidirectional stream and writes its
// SUBGROUP_HEADER for an accepted publisher-side subscription. requestID must name an active publisherSubscription (i.e. one
// AcceptSubscribe or AcceptPublish has already confirmed).
func (s *Session) OpenDataStream(ctx context.Context, requestID uint64, groupID uint64, hdr protocol.SubgroupHeader) (*DataStreamHandle, error) {
	s.mu.Lock()
	pub, ok := s.publisherSubs[requestID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrUnknownRequest
	}

	stream, err := s.conn.OpenUniStream(ctx)
	if err != nil {
		return nil, err
	}

	hdr.TrackAlias = pub.trackAlias
	hdr.GroupID = groupID
	if _, err := stream.Write(hdr.Encode()); err != nil {
		_ = stream.Close()
		return nil, err
	}

	s.mu.Lock()
	key := pub.nextStream
	pub.nextStream++
	pub.openStreams[key] = stream
	s.mu.Unlock()

	return &DataStreamHandle{sess: s, requestID: requestID, streamKey: key, stream: stream}, nil
}

// WriteObject appends one object, delta-encoding its id against whatever
// was last written on this handle.
func (h *DataStreamHandle) WriteObject(obj protocol.Object) error {
	buf := protocol.EncodeStreamObject(nil, obj, h.prevID, !h.started)
	h.prevID = obj.ID
	h.started = true
	_, err := h.stream.Write(buf)
	return err
}

// FinishDataStream closes the underlying stream and removes it from the
// publisher subscription's open-stream bookkeeping, which gates
// SendPublishDone.
func (h *DataStreamHandle) FinishDataStream() error {
	s := h.sess
	s.mu.Lock()
	if pub, ok := s.publisherSubs[h.requestID]; ok {
		delete(pub.openStreams, h.streamKey)
	}
	s.mu.Unlock()
	return h.stream.Close()
}
