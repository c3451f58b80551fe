package protocol

import "github.com/zsiec/moqc/internal/wire"

// MaxRequestID updates the peer's request-id quota.
type MaxRequestID struct {
	RequestID uint64
}

func (m MaxRequestID) Encode() []byte {
	return wire.AppendVarint(nil, m.RequestID)
}

func DecodeMaxRequestID(data []byte) (MaxRequestID, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return MaxRequestID{}, fieldErr("request_id", err)
	}
	return MaxRequestID{RequestID: reqID}, nil
}

// RequestsBlocked signals the sender was unable to issue a request because
// it would exceed the peer's advertised MaxRequestID.
type RequestsBlocked struct {
	Reason  string
	Limit   uint64
	HasReason bool
}

func (r RequestsBlocked) Encode() []byte {
	buf := wire.AppendVarint(nil, r.Limit)
	if r.HasReason {
		buf = wire.AppendReason(buf, r.Reason)
	}
	return buf
}

func DecodeRequestsBlocked(data []byte) (RequestsBlocked, error) {
	var r RequestsBlocked
	limit, n, err := wire.DecodeVarint(data)
	if err != nil {
		return r, fieldErr("limit", err)
	}
	r.Limit = limit
	if n < len(data) {
		reason, _, err := wire.DecodeReason(data[n:])
		if err != nil {
			return r, fieldErr("reason", err)
		}
		r.Reason = reason
		r.HasReason = true
	}
	return r, nil
}

// GoAway signals a graceful session shutdown, optionally redirecting the
// client to a new URI.
type GoAway struct {
	NewSessionURI string
	HasURI        bool
}

func (g GoAway) Encode() []byte {
	if !g.HasURI {
		return wire.AppendReason(nil, "")
	}
	return wire.AppendReason(nil, g.NewSessionURI)
}

func DecodeGoAway(data []byte) (GoAway, error) {
	uri, _, err := wire.DecodeReason(data)
	if err != nil {
		return GoAway{}, fieldErr("new_session_uri", err)
	}
	return GoAway{NewSessionURI: uri, HasURI: uri != ""}, nil
}

// TrackStatus requests the current status of a track without subscribing
// to it.
type TrackStatus struct {
	Namespace []string
	TrackName string
	Params    []wire.Param
	RequestID uint64
}

func (t TrackStatus) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, t.RequestID)
	buf = wire.AppendTuple(buf, wire.TupleBytes(t.Namespace))
	buf = wire.AppendBytes(buf, []byte(t.TrackName))
	buf = wire.AppendParams(buf, t.Params)
	return buf
}

func DecodeTrackStatus(data []byte) (TrackStatus, error) {
	var t TrackStatus
	reqID, n, err := wire.DecodeVarint(data)
	if err != nil {
		return t, fieldErr("request_id", err)
	}
	t.RequestID = reqID

	ns, nn, err := wire.DecodeTuple(data[n:])
	if err != nil {
		return t, fieldErr("namespace", err)
	}
	t.Namespace = wire.TupleStrings(wire.CloneTuple(ns))
	n += nn

	name, tn, err := wire.DecodeBytes(data[n:])
	if err != nil {
		return t, fieldErr("track_name", err)
	}
	t.TrackName = string(name)
	n += tn

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return t, fieldErr("params", err)
	}
	t.Params = params
	return t, nil
}

// TrackStatusOK answers a TrackStatus request.
type TrackStatusOK struct {
	Params        []wire.Param
	RequestID     uint64
	StatusCode    uint64
	Largest       wire.Location
	ContentExists bool
}

func (ok TrackStatusOK) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, ok.RequestID)
	buf = wire.AppendVarint(buf, ok.StatusCode)
	if ok.ContentExists {
		buf = append(buf, 1)
		buf = wire.AppendLocation(buf, ok.Largest)
	} else {
		buf = append(buf, 0)
	}
	buf = wire.AppendParams(buf, ok.Params)
	return buf
}

func DecodeTrackStatusOK(data []byte) (TrackStatusOK, error) {
	var ok TrackStatusOK
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return ok, fieldErr("request_id", err)
	}
	ok.RequestID = reqID
	n += rn

	status, sn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return ok, fieldErr("status_code", err)
	}
	ok.StatusCode = status
	n += sn

	if len(data) < n+1 {
		return ok, fieldErr("content_exists", errTruncated)
	}
	exists := data[n]
	n++
	if exists != 0 {
		ok.ContentExists = true
		loc, ln, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return ok, fieldErr("largest_location", err)
		}
		ok.Largest = loc
		n += ln
	}

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return ok, fieldErr("params", err)
	}
	ok.Params = params
	return ok, nil
}

// TrackStatusError rejects a TrackStatus request.
type TrackStatusError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

func (e TrackStatusError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, e.RequestID)
	buf = wire.AppendVarint(buf, uint64(e.ErrorCode))
	buf = wire.AppendReason(buf, e.Reason)
	return buf
}

func DecodeTrackStatusError(data []byte) (TrackStatusError, error) {
	var e TrackStatusError
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
