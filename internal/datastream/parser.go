package datastream

import (
	"errors"

	"github.com/zsiec/moqc/internal/protocol"
	"github.com/zsiec/moqc/internal/wire"
)

// Kind distinguishes the two data-stream shapes a Parser can see.
type Kind int

const (
	KindUnknown Kind = iota
	KindSubgroup
	KindFetch
)

// ErrUnknownStreamType is returned from Next when the stream's opening
// type byte does not fall into either the SUBGROUP_HEADER or
// FETCH_HEADER range.
var ErrUnknownStreamType = errors.New("datastream: unknown stream type")

type streamState int

const (
	stateWaitingHeader streamState = iota
	stateWaitingObjects
	stateDone
)

// Parsed is one decoded object, tagged with which stream shape produced
// it. Exactly one of Object/FetchObject is populated, per Kind.
type Parsed struct {
	Kind        Kind
	Object      protocol.Object
	FetchObject protocol.FetchObject
}

// Parser is a stateful, single-QUIC-stream parser for MoQ data streams.
// It mirrors protocol.Framer's Feed/Next shape: Feed appends newly-read
// bytes, Next drains whatever is now fully available. Next returns
// ok=false, err=nil when more bytes are needed — never a partial value.
type Parser struct {
	buf   []byte
	state streamState
	kind  Kind

	header      protocol.SubgroupHeader
	fetchHeader protocol.FetchHeader

	haveFirstObject  bool
	prevObjectID     uint64
	subgroupResolved bool

	// headerErr stashes a malformed/unknown-type error discovered in
	// parseHeader, since that helper only returns a bool.
	headerErr error
}

// Feed appends newly-read bytes from the underlying QUIC receive stream.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Kind reports the stream's shape. Valid only after the header has been
// parsed (i.e. after the first successful Next, or check HeaderParsed).
func (p *Parser) Kind() Kind { return p.kind }

// HeaderParsed reports whether the stream-opening header has been
// consumed yet.
func (p *Parser) HeaderParsed() bool { return p.state != stateWaitingHeader }

// SubgroupHeader returns the parsed header for a KindSubgroup stream.
// Only meaningful once HeaderParsed is true and Kind is KindSubgroup.
func (p *Parser) SubgroupHeader() protocol.SubgroupHeader { return p.header }

// FetchHeader returns the parsed header for a KindFetch stream.
func (p *Parser) FetchHeader() protocol.FetchHeader { return p.fetchHeader }

// Next drains one decoded unit from the buffered bytes. It only ever
// returns decoded objects (or incomplete/error): the stream-opening
// header carries nothing a caller needs as a "value", so Next parses it
// internally on first use and loops straight into object parsing. Header
// fields are exposed via SubgroupHeader/FetchHeader once HeaderParsed.
func (p *Parser) Next() (Parsed, bool, error) {
	for {
		switch p.state {
		case stateWaitingHeader:
			if !p.parseHeader() {
				return Parsed{}, false, p.headerErr
			}
		case stateWaitingObjects:
			return p.parseObject()
		case stateDone:
			return Parsed{}, false, nil
		}
	}
}

func (p *Parser) parseHeader() bool {
	typ, n, err := wire.DecodeVarint(p.buf)
	if err != nil {
		if wire.IsIncomplete(err) {
			p.headerErr = nil
			return false
		}
		p.headerErr = err
		p.state = stateDone
		return false
	}
	msgType := protocol.MessageType(typ)

	switch {
	case protocol.IsSubgroupHeaderType(msgType):
		hdr := protocol.DecodeSubgroupHeaderFlags(msgType)
		rest := p.buf[n:]
		m := 0

		alias, an, err := wire.DecodeVarint(rest[m:])
		if err != nil {
			p.headerErr = requireComplete(err)
			return false
		}
		m += an

		group, gn, err := wire.DecodeVarint(rest[m:])
		if err != nil {
			p.headerErr = requireComplete(err)
			return false
		}
		m += gn

		if hdr.HasExplicitSubgroupID {
			sub, sn, err := wire.DecodeVarint(rest[m:])
			if err != nil {
				p.headerErr = requireComplete(err)
				return false
			}
			hdr.SubgroupID = sub
			m += sn
			p.subgroupResolved = true
		}

		if len(rest) < m+1 {
			p.headerErr = nil
			return false
		}
		hdr.Priority = rest[m]
		m++

		hdr.TrackAlias = alias
		hdr.GroupID = group
		p.header = hdr
		p.kind = KindSubgroup
		p.buf = rest[m:]
		p.state = stateWaitingObjects
		p.headerErr = nil
		return true

	case msgType == protocol.FetchHeaderType:
		fh, m, err := protocol.DecodeFetchHeader(p.buf[n:])
		if err != nil {
			p.headerErr = requireComplete(err)
			return false
		}
		p.fetchHeader = fh
		p.kind = KindFetch
		p.buf = p.buf[n+m:]
		p.state = stateWaitingObjects
		p.headerErr = nil
		return true

	default:
		p.headerErr = ErrUnknownStreamType
		p.state = stateDone
		return false
	}
}

func (p *Parser) parseObject() (Parsed, bool, error) {
	switch p.kind {
	case KindSubgroup:
		obj, n, err := protocol.DecodeStreamObject(p.buf, p.prevObjectID, !p.haveFirstObject, p.header.HasExtensions)
		if err != nil {
			if wire.IsIncomplete(err) {
				return Parsed{}, false, nil
			}
			p.state = stateDone
			return Parsed{}, false, err
		}
		p.buf = p.buf[n:]
		if !p.subgroupResolved {
			if p.header.IDEqualsFirstObject {
				p.header.SubgroupID = obj.ID
			} else {
				p.header.SubgroupID = 0
			}
			p.subgroupResolved = true
		}
		p.prevObjectID = obj.ID
		p.haveFirstObject = true
		if obj.Status == protocol.StatusEndOfGroup || obj.Status == protocol.StatusEndOfTrack {
			p.state = stateDone
		}
		return Parsed{Kind: KindSubgroup, Object: obj}, true, nil

	case KindFetch:
		obj, n, err := protocol.DecodeFetchObject(p.buf)
		if err != nil {
			if wire.IsIncomplete(err) {
				return Parsed{}, false, nil
			}
			p.state = stateDone
			return Parsed{}, false, err
		}
		p.buf = p.buf[n:]
		if obj.Status == protocol.StatusEndOfTrack {
			p.state = stateDone
		}
		return Parsed{Kind: KindFetch, FetchObject: obj}, true, nil

	default:
		return Parsed{}, false, ErrUnknownStreamType
	}
}

func requireComplete(err error) error {
	if wire.IsIncomplete(err) {
		return nil
	}
	return err
}
