package protocol

import (
	"encoding/binary"

	"github.com/zsiec/moqc/internal/wire"
)

// MessageType identifies a control message. Values match
// draft-ietf-moq-transport-14's message catalog.
type MessageType uint64

const (
	MsgSubscribeUpdate          MessageType = 0x02
	MsgSubscribe                MessageType = 0x03
	MsgSubscribeOK              MessageType = 0x04
	MsgSubscribeError           MessageType = 0x05
	MsgPublishNamespace         MessageType = 0x06
	MsgPublishNamespaceOK       MessageType = 0x07
	MsgPublishNamespaceError    MessageType = 0x08
	MsgPublishNamespaceDone     MessageType = 0x09
	MsgUnsubscribe              MessageType = 0x0A
	MsgPublishDone              MessageType = 0x0B
	MsgPublishNamespaceCancel   MessageType = 0x0C
	MsgTrackStatus              MessageType = 0x0D
	MsgTrackStatusOK            MessageType = 0x0E
	MsgTrackStatusError         MessageType = 0x0F
	MsgGoAway                   MessageType = 0x10
	MsgSubscribeNamespace       MessageType = 0x11
	MsgSubscribeNamespaceOK     MessageType = 0x12
	MsgSubscribeNamespaceError  MessageType = 0x13
	MsgUnsubscribeNamespace     MessageType = 0x14
	MsgMaxRequestID             MessageType = 0x15
	MsgFetch                    MessageType = 0x16
	MsgFetchCancel              MessageType = 0x17
	MsgFetchOK                  MessageType = 0x18
	MsgFetchError               MessageType = 0x19
	MsgRequestsBlocked          MessageType = 0x1A
	MsgPublish                  MessageType = 0x1D
	MsgPublishOK                MessageType = 0x1E
	MsgPublishError             MessageType = 0x1F
	MsgClientSetup              MessageType = 0x20
	MsgServerSetup              MessageType = 0x21
)

// Version is the MoQ Transport version implemented here: draft-14 uses
// 0xff000000 + draft number.
const Version uint64 = 0xff00000e

// Setup parameter keys.
const (
	ParamPath         uint64 = 0x01 // odd → length-prefixed byte string
	ParamMaxRequestID uint64 = 0x02 // even → varint value
)

// Filter types.
const (
	FilterNextGroupStart uint64 = 0x01
	FilterLargestObject  uint64 = 0x02
	FilterAbsoluteStart  uint64 = 0x03
	FilterAbsoluteRange  uint64 = 0x04
)

// Group order values.
const (
	GroupOrderDefault    byte = 0x00
	GroupOrderAscending  byte = 0x01
	GroupOrderDescending byte = 0x02
)

// Forward flag values.
const (
	ForwardOff byte = 0x00
	ForwardOn  byte = 0x01
)

// EncodeFrame wraps a control message payload in the control-stream framing:
// varint type + u16 big-endian length + payload.
func EncodeFrame(msgType MessageType, payload []byte) []byte {
	buf := wire.AppendVarint(nil, uint64(msgType))
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)
	return buf
}
