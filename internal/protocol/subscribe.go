package protocol

import "github.com/zsiec/moqc/internal/wire"

// Subscribe requests delivery of a track.
type Subscribe struct {
	Namespace  []string
	TrackName  string
	Params     []wire.Param
	RequestID  uint64
	Priority   byte
	GroupOrder byte
	Forward    byte
	FilterType uint64
	Start      wire.Location // AbsoluteStart / AbsoluteRange
	EndGroup   uint64        // AbsoluteRange only
	HasEnd     bool
}

// Encode serializes a SUBSCRIBE payload.
func (s Subscribe) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, s.RequestID)
	buf = wire.AppendTuple(buf, wire.TupleBytes(s.Namespace))
	buf = wire.AppendBytes(buf, []byte(s.TrackName))
	buf = append(buf, s.Priority, s.GroupOrder, s.Forward)
	buf = wire.AppendVarint(buf, s.FilterType)

	switch s.FilterType {
	case FilterAbsoluteStart:
		buf = wire.AppendLocation(buf, s.Start)
	case FilterAbsoluteRange:
		buf = wire.AppendLocation(buf, s.Start)
		buf = wire.AppendVarint(buf, s.EndGroup)
	}
	buf = wire.AppendParams(buf, s.Params)
	return buf
}

// DecodeSubscribe parses a SUBSCRIBE payload.
func DecodeSubscribe(data []byte) (Subscribe, error) {
	var s Subscribe
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return s, fieldErr("request_id", err)
	}
	s.RequestID = reqID
	n += rn

	ns, nn, err := wire.DecodeTuple(data[n:])
	if err != nil {
		return s, fieldErr("namespace", err)
	}
	s.Namespace = wire.TupleStrings(wire.CloneTuple(ns))
	n += nn

	name, tn, err := wire.DecodeBytes(data[n:])
	if err != nil {
		return s, fieldErr("track_name", err)
	}
	s.TrackName = string(name)
	n += tn

	if len(data) < n+3 {
		return s, fieldErr("priority/group_order/forward", errTruncated)
	}
	s.Priority, s.GroupOrder, s.Forward = data[n], data[n+1], data[n+2]
	n += 3

	filterType, fn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return s, fieldErr("filter_type", err)
	}
	s.FilterType = filterType
	n += fn

	switch s.FilterType {
	case FilterAbsoluteStart:
		loc, ln, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return s, fieldErr("start_location", err)
		}
		s.Start = loc
		n += ln
	case FilterAbsoluteRange:
		loc, ln, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return s, fieldErr("start_location", err)
		}
		s.Start = loc
		n += ln
		end, en, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return s, fieldErr("end_group", err)
		}
		s.EndGroup = end
		s.HasEnd = true
		n += en
	}

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return s, fieldErr("params", err)
	}
	s.Params = params
	return s, nil
}

// SubscribeOK confirms a subscription.
type SubscribeOK struct {
	Params        []wire.Param
	RequestID     uint64
	TrackAlias    uint64
	Expires       uint64
	GroupOrder    byte
	ContentExists bool
	Largest       wire.Location
}

// Encode serializes a SUBSCRIBE_OK payload.
func (sok SubscribeOK) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, sok.RequestID)
	buf = wire.AppendVarint(buf, sok.TrackAlias)
	buf = wire.AppendVarint(buf, sok.Expires)
	buf = append(buf, sok.GroupOrder)
	if sok.ContentExists {
		buf = append(buf, 1)
		buf = wire.AppendLocation(buf, sok.Largest)
	} else {
		buf = append(buf, 0)
	}
	buf = wire.AppendParams(buf, sok.Params)
	return buf
}

// DecodeSubscribeOK parses a SUBSCRIBE_OK payload.
func DecodeSubscribeOK(data []byte) (SubscribeOK, error) {
	var sok SubscribeOK
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return sok, fieldErr("request_id", err)
	}
	sok.RequestID = reqID
	n += rn

	alias, an, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return sok, fieldErr("track_alias", err)
	}
	sok.TrackAlias = alias
	n += an

	expires, en, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return sok, fieldErr("expires", err)
	}
	sok.Expires = expires
	n += en

	if len(data) < n+1 {
		return sok, fieldErr("group_order", errTruncated)
	}
	sok.GroupOrder = data[n]
	n++

	if len(data) < n+1 {
		return sok, fieldErr("content_exists", errTruncated)
	}
	contentExists := data[n]
	n++

	if contentExists != 0 {
		sok.ContentExists = true
		loc, ln, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return sok, fieldErr("largest_location", err)
		}
		sok.Largest = loc
		n += ln
	}

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return sok, fieldErr("params", err)
	}
	sok.Params = params
	return sok, nil
}

// SubscribeError rejects a subscription.
type SubscribeError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

// Encode serializes a SUBSCRIBE_ERROR payload.
func (se SubscribeError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, se.RequestID)
	buf = wire.AppendVarint(buf, uint64(se.ErrorCode))
	buf = wire.AppendReason(buf, se.Reason)
	return buf
}

// DecodeSubscribeError parses a SUBSCRIBE_ERROR payload.
func DecodeSubscribeError(data []byte) (SubscribeError, error) {
	var se SubscribeError
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return se, fieldErr("request_id", err)
	}
	se.RequestID = reqID
	n += rn

	code, cn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return se, fieldErr("error_code", err)
	}
	se.ErrorCode = ErrorCode(code)
	n += cn

	reason, _, err := wire.DecodeReason(data[n:])
	if err != nil {
		return se, fieldErr("reason", err)
	}
	se.Reason = reason
	return se, nil
}

// SubscribeUpdate narrows or adjusts an active subscription. Start-location
// may only monotonically advance and end-group may only monotonically
// retreat; the server does not respond.
type SubscribeUpdate struct {
	Params              []wire.Param
	RequestID           uint64
	SubscriptionRequest uint64
	Start               wire.Location
	EndGroup            uint64
	Priority            byte
	Forward             byte
}

// Encode serializes a SUBSCRIBE_UPDATE payload.
func (su SubscribeUpdate) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, su.RequestID)
	buf = wire.AppendVarint(buf, su.SubscriptionRequest)
	buf = wire.AppendLocation(buf, su.Start)
	buf = wire.AppendVarint(buf, su.EndGroup)
	buf = append(buf, su.Priority, su.Forward)
	buf = wire.AppendParams(buf, su.Params)
	return buf
}

// DecodeSubscribeUpdate parses a SUBSCRIBE_UPDATE payload.
func DecodeSubscribeUpdate(data []byte) (SubscribeUpdate, error) {
	var su SubscribeUpdate
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return su, fieldErr("request_id", err)
	}
	su.RequestID = reqID
	n += rn

	subReq, sn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return su, fieldErr("subscription_request_id", err)
	}
	su.SubscriptionRequest = subReq
	n += sn

	loc, ln, err := wire.DecodeLocation(data[n:])
	if err != nil {
		return su, fieldErr("start_location", err)
	}
	su.Start = loc
	n += ln

	end, en, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return su, fieldErr("end_group", err)
	}
	su.EndGroup = end
	n += en

	if len(data) < n+2 {
		return su, fieldErr("priority/forward", errTruncated)
	}
	su.Priority, su.Forward = data[n], data[n+1]
	n += 2

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return su, fieldErr("params", err)
	}
	su.Params = params
	return su, nil
}

// Unsubscribe cancels a subscription.
type Unsubscribe struct {
	RequestID uint64
}

// Encode serializes an UNSUBSCRIBE payload.
func (u Unsubscribe) Encode() []byte {
	return wire.AppendVarint(nil, u.RequestID)
}

// DecodeUnsubscribe parses an UNSUBSCRIBE payload.
func DecodeUnsubscribe(data []byte) (Unsubscribe, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return Unsubscribe{}, fieldErr("request_id", err)
	}
	return Unsubscribe{RequestID: reqID}, nil
}

// PublishDone terminates a publisher-side subscription.
type PublishDone struct {
	Reason      string
	RequestID   uint64
	StatusCode  uint64
	StreamCount uint64
	HasReason   bool
}

// Encode serializes a PUBLISH_DONE payload.
func (pd PublishDone) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, pd.RequestID)
	buf = wire.AppendVarint(buf, pd.StatusCode)
	buf = wire.AppendVarint(buf, pd.StreamCount)
	if pd.HasReason {
		buf = wire.AppendReason(buf, pd.Reason)
	} else {
		buf = wire.AppendReason(buf, "")
	}
	return buf
}

// DecodePublishDone parses a PUBLISH_DONE payload.
func DecodePublishDone(data []byte) (PublishDone, error) {
	var pd PublishDone
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return pd, fieldErr("request_id", err)
	}
	pd.RequestID = reqID
	n += rn

	status, sn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return pd, fieldErr("status_code", err)
	}
	pd.StatusCode = status
	n += sn

	count, cn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return pd, fieldErr("stream_count", err)
	}
	pd.StreamCount = count
	n += cn

	reason, _, err := wire.DecodeReason(data[n:])
	if err != nil {
		return pd, fieldErr("reason", err)
	}
	pd.Reason = reason
	pd.HasReason = reason != ""
	return pd, nil
}
