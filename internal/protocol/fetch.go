package protocol

import "github.com/zsiec/moqc/internal/wire"

// FetchKind distinguishes the three FETCH variants.
type FetchKind uint8

const (
	FetchStandalone FetchKind = iota
	FetchJoiningRelative
	FetchJoiningAbsolute
)

// Fetch requests past objects in a bounded range,
// distinct from SUBSCRIBE which is for ongoing/future objects. Standalone
// fetches carry an explicit namespace/track/range; joining fetches instead
// reference an existing live subscription by request-id and a start point
// relative (group count back) or absolute to that subscription's current
// position.
type Fetch struct {
	Namespace []string
	TrackName string
	Params    []wire.Param
	Kind      FetchKind
	RequestID uint64

	// Standalone fields.
	Start wire.Location
	End   wire.Location

	// Joining fields.
	JoiningRequestID uint64
	JoiningStart     uint64 // relative: group count back; absolute: group id

	Priority byte
}

func (f Fetch) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, f.RequestID)
	switch f.Kind {
	case FetchJoiningRelative, FetchJoiningAbsolute:
		buf = wire.AppendVarint(buf, uint64(f.Kind))
		buf = wire.AppendVarint(buf, f.JoiningRequestID)
		buf = wire.AppendVarint(buf, f.JoiningStart)
		buf = append(buf, f.Priority)
	default:
		buf = wire.AppendVarint(buf, uint64(FetchStandalone))
		buf = wire.AppendTuple(buf, wire.TupleBytes(f.Namespace))
		buf = wire.AppendBytes(buf, []byte(f.TrackName))
		buf = wire.AppendLocation(buf, f.Start)
		buf = wire.AppendLocation(buf, f.End)
		buf = append(buf, f.Priority)
	}
	buf = wire.AppendParams(buf, f.Params)
	return buf
}

func DecodeFetch(data []byte) (Fetch, error) {
	var f Fetch
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return f, fieldErr("request_id", err)
	}
	f.RequestID = reqID
	n += rn

	kind, kn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return f, fieldErr("fetch_kind", err)
	}
	f.Kind = FetchKind(kind)
	n += kn

	switch f.Kind {
	case FetchJoiningRelative, FetchJoiningAbsolute:
		joiningID, jn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return f, fieldErr("joining_request_id", err)
		}
		f.JoiningRequestID = joiningID
		n += jn

		start, sn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return f, fieldErr("joining_start", err)
		}
		f.JoiningStart = start
		n += sn

		if len(data) < n+1 {
			return f, fieldErr("priority", errTruncated)
		}
		f.Priority = data[n]
		n++

	default:
		f.Kind = FetchStandalone
		ns, nn, err := wire.DecodeTuple(data[n:])
		if err != nil {
			return f, fieldErr("namespace", err)
		}
		f.Namespace = wire.TupleStrings(wire.CloneTuple(ns))
		n += nn

		name, tn, err := wire.DecodeBytes(data[n:])
		if err != nil {
			return f, fieldErr("track_name", err)
		}
		f.TrackName = string(name)
		n += tn

		start, sn, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return f, fieldErr("start_location", err)
		}
		f.Start = start
		n += sn

		end, en, err := wire.DecodeLocation(data[n:])
		if err != nil {
			return f, fieldErr("end_location", err)
		}
		f.End = end
		n += en

		if len(data) < n+1 {
			return f, fieldErr("priority", errTruncated)
		}
		f.Priority = data[n]
		n++
	}

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return f, fieldErr("params", err)
	}
	f.Params = params
	return f, nil
}

// FetchOK confirms a FETCH.
type FetchOK struct {
	Params        []wire.Param
	RequestID     uint64
	GroupOrder    byte
	ContentExists bool
	EndLocation   wire.Location
}

func (ok FetchOK) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, ok.RequestID)
	buf = append(buf, ok.GroupOrder)
	if ok.ContentExists {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = wire.AppendLocation(buf, ok.EndLocation)
	buf = wire.AppendParams(buf, ok.Params)
	return buf
}

func DecodeFetchOK(data []byte) (FetchOK, error) {
	var ok FetchOK
	n := 0

	reqID, rn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return ok, fieldErr("request_id", err)
	}
	ok.RequestID = reqID
	n += rn

	if len(data) < n+2 {
		return ok, fieldErr("group_order/content_exists", errTruncated)
	}
	ok.GroupOrder = data[n]
	ok.ContentExists = data[n+1] != 0
	n += 2

	end, en, err := wire.DecodeLocation(data[n:])
	if err != nil {
		return ok, fieldErr("end_location", err)
	}
	ok.EndLocation = end
	n += en

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return ok, fieldErr("params", err)
	}
	ok.Params = params
	return ok, nil
}

// FetchError rejects a FETCH.
type FetchError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

func (e FetchError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, e.RequestID)
	buf = wire.AppendVarint(buf, uint64(e.ErrorCode))
	buf = wire.AppendReason(buf, e.Reason)
	return buf
}

func DecodeFetchError(data []byte) (FetchError, error) {
	var e FetchError
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

// FetchCancel aborts an in-flight FETCH.
type FetchCancel struct {
	RequestID uint64
}

func (c FetchCancel) Encode() []byte {
	return wire.AppendVarint(nil, c.RequestID)
}

func DecodeFetchCancel(data []byte) (FetchCancel, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return FetchCancel{}, fieldErr("request_id", err)
	}
	return FetchCancel{RequestID: reqID}, nil
}
