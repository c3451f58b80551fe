package protocol

import (
	"encoding/binary"

	"github.com/zsiec/moqc/internal/wire"
)

// Frame is one fully-received control message: its type and the raw,
// still-undecoded payload bytes bounded by the frame's length prefix.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// Framer accumulates bytes read off a control stream and splits them into
// complete Frames. It holds no network I/O of its own: the
// caller reads from the stream and calls Feed, then drains frames with
// Next until it reports incomplete.
//
// Next never blocks and never returns a partial frame: it reports either
// a complete Frame, "incomplete" (more bytes needed before anything can be
// said), or a malformed-framing error. A malformed error means the type
// varint or length prefix itself could not be parsed — not that the
// message payload is invalid, which is a later, per-message concern.
// Callers with CloseOnMalformed disabled can call Resync to drop one byte
// and try to recover frame boundaries instead of tearing down the session.
type Framer struct {
	buf []byte
}

// Feed appends newly-read bytes to the framer's internal buffer.
func (f *Framer) Feed(data []byte) {
	f.buf = append(f.buf, data...)
}

// Buffered reports how many undrained bytes the framer is holding.
func (f *Framer) Buffered() int {
	return len(f.buf)
}

// Next attempts to parse one frame from the buffered bytes. ok is false
// with a nil error when the buffer does not yet hold a complete frame;
// the caller should Feed more data and retry. err is non-nil only for
// malformed framing.
func (f *Framer) Next() (frame Frame, ok bool, err error) {
	msgType, n, err := wire.DecodeVarint(f.buf)
	if err != nil {
		if wire.IsIncomplete(err) {
			return Frame{}, false, nil
		}
		return Frame{}, false, malformedFrame("message_type", err)
	}

	if len(f.buf) < n+2 {
		return Frame{}, false, nil
	}
	length := int(binary.BigEndian.Uint16(f.buf[n : n+2]))

	total := n + 2 + length
	if len(f.buf) < total {
		return Frame{}, false, nil
	}

	payload := make([]byte, length)
	copy(payload, f.buf[n+2:total])
	f.buf = f.buf[total:]

	return Frame{Type: MessageType(msgType), Payload: payload}, true, nil
}

// Resync discards one byte from the head of the buffer. Used by callers
// that choose to recover from a malformed frame rather than close the
// session.
func (f *Framer) Resync() {
	if len(f.buf) > 0 {
		f.buf = f.buf[1:]
	}
}

// FramerError reports malformed control-stream framing: a type varint or
// length prefix that could not be parsed at all, as opposed to a
// well-framed payload whose contents later fail to decode.
type FramerError struct {
	Field string
	Err   error
}

func (e *FramerError) Error() string {
	return "protocol: malformed frame " + e.Field + ": " + e.Err.Error()
}

func (e *FramerError) Unwrap() error { return e.Err }

func malformedFrame(field string, err error) error {
	return &FramerError{Field: field, Err: err}
}
