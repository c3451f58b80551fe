package protocol

import "github.com/zsiec/moqc/internal/wire"

// Publish offers a track to the peer. This is the
// draft-14-normative layout: track alias, content-exists/largest-location,
// and forward flag all live on the message itself, unlike an older
// subgroup/object/forwarding-preference layout some implementations carry
// (DESIGN.md records this as a resolved Open Question).
type Publish struct {
	Namespace  []string
	TrackName  string
	Params     []wire.Param
	RequestID  uint64
	TrackAlias uint64
	GroupOrder byte
	Forward    byte

	ContentExists bool
	Largest       wire.Location
}

func (p Publish) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, p.RequestID)
	buf = wire.AppendTuple(buf, wire.TupleBytes(p.Namespace))
	buf = wire.AppendBytes(buf, []byte(p.TrackName))
	buf = wire.AppendVarint(buf, p.TrackAlias)
	buf = append(buf, p.GroupOrder)
	if p.ContentExists {
		buf = append(buf, 1)
		buf = wire.AppendLocation(buf, p.Largest)
	} else {
		buf = append(buf, 0)
	}
	buf = append(buf, p.Forward)
	buf = wire.AppendParams(buf, p.Params)
	return buf
}

func DecodePublish(data []byte) (Publish, error) {
	var p Publish
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return p, fieldErr("request_id", err)
	}
	p.RequestID = reqID
	n += rn

	ns, nn, err := wire.DecodeTuple(data[n:])
	if err != nil {
		return p, fieldErr("namespace", err)
	}
	p.Namespace = wire.TupleStrings(wire.CloneTuple(ns))
	n += nn

	name, tn, err := wire.DecodeBytes(data[n:])
	if err != nil {
		return p, fieldErr("track_name", err)
	}
	p.TrackName = string(name)
	n += tn

	alias, an, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return p, fieldErr("track_alias", err)
	}
	p.TrackAlias = alias
	n += an

	if len(data) < n+1 {
		return p, fieldErr("group_order", errTruncated)
	}
	p.GroupOrder = data[n]
	n++

	if len(data) < n+1 {
		return p, fieldErr("content_exists", errTruncated)
	}
	contentExists := data[n]
	n++
	if contentExists != 0 {
		p.ContentExists = true
		loc, ln, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return p, fieldErr("largest_location", err)
		}
		p.Largest = loc
		n += ln
	}

	if len(data) < n+1 {
		return p, fieldErr("forward", errTruncated)
	}
	p.Forward = data[n]
	n++

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return p, fieldErr("params", err)
	}
	p.Params = params
	return p, nil
}

// PublishOK accepts an incoming Publish.
type PublishOK struct {
	Params     []wire.Param
	RequestID  uint64
	Forward    byte
	Priority   byte
	GroupOrder byte
	FilterType uint64
	Start      wire.Location
	EndGroup   uint64
	HasEnd     bool
}

func (ok PublishOK) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, ok.RequestID)
	buf = append(buf, ok.Forward, ok.Priority, ok.GroupOrder)
	buf = wire.AppendVarint(buf, ok.FilterType)
	buf = wire.AppendLocation(buf, ok.Start)
	if ok.HasEnd {
		buf = append(buf, 1)
		buf = wire.AppendVarint(buf, ok.EndGroup)
	} else {
		buf = append(buf, 0)
	}
	buf = wire.AppendParams(buf, ok.Params)
	return buf
}

func DecodePublishOK(data []byte) (PublishOK, error) {
	var ok PublishOK
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return ok, fieldErr("request_id", err)
	}
	ok.RequestID = reqID
	n += rn

	if len(data) < n+3 {
		return ok, fieldErr("forward/priority/group_order", errTruncated)
	}
	ok.Forward, ok.Priority, ok.GroupOrder = data[n], data[n+1], data[n+2]
	n += 3

	filterType, fn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return ok, fieldErr("filter_type", err)
	}
	ok.FilterType = filterType
	n += fn

	loc, ln, err := wire.DecodeLocation(data[n:])
	if err != nil {
		return ok, fieldErr("start_location", err)
	}
	ok.Start = loc
	n += ln

	if len(data) < n+1 {
		return ok, fieldErr("has_end", errTruncated)
	}
	hasEnd := data[n]
	n++
	if hasEnd != 0 {
		end, en, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return ok, fieldErr("end_group", err)
		}
		ok.EndGroup = end
		ok.HasEnd = true
		n += en
	}

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return ok, fieldErr("params", err)
	}
	ok.Params = params
	return ok, nil
}

// PublishError rejects an incoming Publish.
type PublishError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

func (e PublishError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, e.RequestID)
	buf = wire.AppendVarint(buf, uint64(e.ErrorCode))
	buf = wire.AppendReason(buf, e.Reason)
	return buf
}

func DecodePublishError(data []byte) (PublishError, error) {
	var e PublishError
	reqID, n, err := wire.DecodeVarint(data)
	if err != nil {
		return e, fieldErr("request_id", err)
	}
	e.RequestID = reqID

	code, cn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return e, fieldErr("error_code", err)
	}
	e.ErrorCode = ErrorCode(code)
	n += cn

	reason, _, err := wire.DecodeReason(data[n:])
	if err != nil {
		return e, fieldErr("reason", err)
	}
	e.Reason = reason
	return e, nil
}
