package protocol

import "github.com/zsiec/moqc/internal/wire"

// PublishNamespace registers a namespace with the peer.
type PublishNamespace struct {
	Namespace []string
	Params    []wire.Param
	RequestID uint64
}

func (pn PublishNamespace) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, pn.RequestID)
	buf = wire.AppendTuple(buf, wire.TupleBytes(pn.Namespace))
	buf = wire.AppendParams(buf, pn.Params)
	return buf
}

func DecodePublishNamespace(data []byte) (PublishNamespace, error) {
	var pn PublishNamespace
	reqID, n, err := wire.DecodeVarint(data)
	if err != nil {
		return pn, fieldErr("request_id", err)
	}
	pn.RequestID = reqID

	ns, nn, err := wire.DecodeTuple(data[n:])
	if err != nil {
		return pn, fieldErr("namespace", err)
	}
	pn.Namespace = wire.TupleStrings(wire.CloneTuple(ns))
	n += nn

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return pn, fieldErr("params", err)
	}
	pn.Params = params
	return pn, nil
}

// PublishNamespaceOK acknowledges a PublishNamespace.
type PublishNamespaceOK struct {
	RequestID uint64
}

func (ok PublishNamespaceOK) Encode() []byte {
	return wire.AppendVarint(nil, ok.RequestID)
}

func DecodePublishNamespaceOK(data []byte) (PublishNamespaceOK, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return PublishNamespaceOK{}, fieldErr("request_id", err)
	}
	return PublishNamespaceOK{RequestID: reqID}, nil
}

// PublishNamespaceError rejects a PublishNamespace.
type PublishNamespaceError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

func (e PublishNamespaceError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, e.RequestID)
	buf = wire.AppendVarint(buf, uint64(e.ErrorCode))
	buf = wire.AppendReason(buf, e.Reason)
	return buf
}

func DecodePublishNamespaceError(data []byte) (PublishNamespaceError, error) {
	var e PublishNamespaceError
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

// PublishNamespaceDone signals the end of a namespace announcement. Unlike the request-correlated messages above, it is keyed
// by namespace rather than request-id: the announcer may have forgotten
// the request-id by the time it tears the announcement down.
type PublishNamespaceDone struct {
	Namespace []string
	Reason    string
	Status    uint64
}

func (d PublishNamespaceDone) Encode() []byte {
	var buf []byte
	buf = wire.AppendTuple(buf, wire.TupleBytes(d.Namespace))
	buf = wire.AppendVarint(buf, d.Status)
	buf = wire.AppendReason(buf, d.Reason)
	return buf
}

func DecodePublishNamespaceDone(data []byte) (PublishNamespaceDone, error) {
	var d PublishNamespaceDone
	ns, n, err := wire.DecodeTuple(data)
	if err != nil {
		return d, fieldErr("namespace", err)
	}
	d.Namespace = wire.TupleStrings(wire.CloneTuple(ns))

	status, sn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("status", err)
	}
	d.Status = status
	n += sn

	reason, _, err := wire.DecodeReason(data[n:])
	if err != nil {
		return d, fieldErr("reason", err)
	}
	d.Reason = reason
	return d, nil
}

// PublishNamespaceCancel aborts a namespace announcement mid-flight.
type PublishNamespaceCancel struct {
	Namespace []string
}

func (c PublishNamespaceCancel) Encode() []byte {
	return wire.AppendTuple(nil, wire.TupleBytes(c.Namespace))
}

func DecodePublishNamespaceCancel(data []byte) (PublishNamespaceCancel, error) {
	ns, _, err := wire.DecodeTuple(data)
	if err != nil {
		return PublishNamespaceCancel{}, fieldErr("namespace", err)
	}
	return PublishNamespaceCancel{Namespace: wire.TupleStrings(wire.CloneTuple(ns))}, nil
}

// SubscribeNamespace registers interest in namespaces matching a prefix
//.
type SubscribeNamespace struct {
	Prefix    []string
	Params    []wire.Param
	RequestID uint64
}

func (sn SubscribeNamespace) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, sn.RequestID)
	buf = wire.AppendTuple(buf, wire.TupleBytes(sn.Prefix))
	buf = wire.AppendParams(buf, sn.Params)
	return buf
}

func DecodeSubscribeNamespace(data []byte) (SubscribeNamespace, error) {
	var sn SubscribeNamespace
	reqID, n, err := wire.DecodeVarint(data)
	if err != nil {
		return sn, fieldErr("request_id", err)
	}
	sn.RequestID = reqID

	prefix, pn, err := wire.DecodeTuple(data[n:])
	if err != nil {
		return sn, fieldErr("prefix", err)
	}
	sn.Prefix = wire.TupleStrings(wire.CloneTuple(prefix))
	n += pn

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return sn, fieldErr("params", err)
	}
	sn.Params = params
	return sn, nil
}

// SubscribeNamespaceOK acknowledges a SubscribeNamespace.
type SubscribeNamespaceOK struct {
	RequestID uint64
}

func (ok SubscribeNamespaceOK) Encode() []byte {
	return wire.AppendVarint(nil, ok.RequestID)
}

func DecodeSubscribeNamespaceOK(data []byte) (SubscribeNamespaceOK, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return SubscribeNamespaceOK{}, fieldErr("request_id", err)
	}
	return SubscribeNamespaceOK{RequestID: reqID}, nil
}

// SubscribeNamespaceError rejects a SubscribeNamespace.
type SubscribeNamespaceError struct {
	Reason    string
	RequestID uint64
	ErrorCode ErrorCode
}

func (e SubscribeNamespaceError) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, e.RequestID)
	buf = wire.AppendVarint(buf, uint64(e.ErrorCode))
	buf = wire.AppendReason(buf, e.Reason)
	return buf
}

func DecodeSubscribeNamespaceError(data []byte) (SubscribeNamespaceError, error) {
	var e SubscribeNamespaceError
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

// UnsubscribeNamespace cancels a SubscribeNamespace.
type UnsubscribeNamespace struct {
	RequestID uint64
}

func (u UnsubscribeNamespace) Encode() []byte {
	return wire.AppendVarint(nil, u.RequestID)
}

func DecodeUnsubscribeNamespace(data []byte) (UnsubscribeNamespace, error) {
	reqID, _, err := wire.DecodeVarint(data)
	if err != nil {
		return UnsubscribeNamespace{}, fieldErr("request_id", err)
	}
	return UnsubscribeNamespace{RequestID: reqID}, nil
}
