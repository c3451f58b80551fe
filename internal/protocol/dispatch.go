package protocol

import "fmt"

// ErrUnknownMessage indicates a well-formed but unrecognized control
// message type. This is not a protocol violation: the frame has already
// been correctly bounded by its length prefix, so the caller can simply
// skip it and keep reading.
type ErrUnknownMessage struct {
	Type MessageType
}

func (e *ErrUnknownMessage) Error() string {
	return fmt.Sprintf("protocol: unknown message type %#x", uint64(e.Type))
}

// Decode parses a control message payload given its type, returning the
// typed message value as `any`. Switch on the concrete type (or on
// msgType) to recover it. Returns *ErrUnknownMessage for a type outside
// the catalog — not a parse failure.
func Decode(msgType MessageType, payload []byte) (any, error) {
	switch msgType {
	case MsgClientSetup:
		return DecodeClientSetup(payload)
	case MsgServerSetup:
		return DecodeServerSetup(payload)
	case MsgSubscribe:
		return DecodeSubscribe(payload)
	case MsgSubscribeOK:
		return DecodeSubscribeOK(payload)
	case MsgSubscribeError:
		return DecodeSubscribeError(payload)
	case MsgSubscribeUpdate:
		return DecodeSubscribeUpdate(payload)
	case MsgUnsubscribe:
		return DecodeUnsubscribe(payload)
	case MsgPublishDone:
		return DecodePublishDone(payload)
	case MsgPublishNamespace:
		return DecodePublishNamespace(payload)
	case MsgPublishNamespaceOK:
		return DecodePublishNamespaceOK(payload)
	case MsgPublishNamespaceError:
		return DecodePublishNamespaceError(payload)
	case MsgPublishNamespaceDone:
		return DecodePublishNamespaceDone(payload)
	case MsgPublishNamespaceCancel:
		return DecodePublishNamespaceCancel(payload)
	case MsgSubscribeNamespace:
		return DecodeSubscribeNamespace(payload)
	case MsgSubscribeNamespaceOK:
		return DecodeSubscribeNamespaceOK(payload)
	case MsgSubscribeNamespaceError:
		return DecodeSubscribeNamespaceError(payload)
	case MsgUnsubscribeNamespace:
		return DecodeUnsubscribeNamespace(payload)
	case MsgPublish:
		return DecodePublish(payload)
	case MsgPublishOK:
		return DecodePublishOK(payload)
	case MsgPublishError:
		return DecodePublishError(payload)
	case MsgFetch:
		return DecodeFetch(payload)
	case MsgFetchOK:
		return DecodeFetchOK(payload)
	case MsgFetchError:
		return DecodeFetchError(payload)
	case MsgFetchCancel:
		return DecodeFetchCancel(payload)
	case MsgMaxRequestID:
		return DecodeMaxRequestID(payload)
	case MsgRequestsBlocked:
		return DecodeRequestsBlocked(payload)
	case MsgGoAway:
		return DecodeGoAway(payload)
	case MsgTrackStatus:
		return DecodeTrackStatus(payload)
	case MsgTrackStatusOK:
		return DecodeTrackStatusOK(payload)
	case MsgTrackStatusError:
		return DecodeTrackStatusError(payload)
	default:
		return nil, &ErrUnknownMessage{Type: msgType}
	}
}

// messageEncoder is implemented by every control message type in this
// package.
type messageEncoder interface {
	Encode() []byte
}

// EncodeMessage frames msg (one of the types in this package) for the
// control stream under msgType, which the caller supplies; it is not
// derived from msg's Go type.
func EncodeMessage(msgType MessageType, msg messageEncoder) []byte {
	return EncodeFrame(msgType, msg.Encode())
}
