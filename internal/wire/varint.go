package wire

import (
	"errors"
	"io"

	"github.com/quic-go/quic-go/quicvarint"
)

// MaxVarint is the largest value representable in the 62-bit varint space
// (2^62 - 1), matching the QUIC variable-length integer encoding that MoQ
// Transport reuses verbatim.
const MaxVarint = quicvarint.Max

// AppendVarint appends the canonical (shortest-form) encoding of v to buf.
func AppendVarint(buf []byte, v uint64) []byte {
	return quicvarint.Append(buf, v)
}

// VarintLen returns the number of bytes needed to encode v.
func VarintLen(v uint64) int {
	return quicvarint.Len(v)
}

// DecodeVarint reads one varint from the front of b, returning the value
// and the number of bytes consumed. It returns ErrIncomplete if b does not
// contain a full encoding yet, or a *MalformedError if the prefix declares
// a length that cannot be satisfied by a 62-bit value.
func DecodeVarint(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, ErrIncomplete
	}
	v, n, err := quicvarint.Parse(b)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, 0, ErrIncomplete
		}
		return 0, 0, malformed("varint", err)
	}
	return v, n, nil
}

// AppendBytes appends a varint length prefix followed by data to buf.
func AppendBytes(buf []byte, data []byte) []byte {
	buf = AppendVarint(buf, uint64(len(data)))
	return append(buf, data...)
}

// DecodeBytes reads a varint length followed by that many bytes from the
// front of b. The returned slice aliases b; callers that need to retain it
// past the lifetime of the underlying buffer must copy.
func DecodeBytes(b []byte) ([]byte, int, error) {
	length, n, err := DecodeVarint(b)
	if err != nil {
		return nil, 0, err
	}
	if length > MaxVarint {
		return nil, 0, malformed("byte-string length", errors.New("length exceeds varint range"))
	}
	if uint64(len(b)-n) < length {
		return nil, 0, ErrIncomplete
	}
	end := n + int(length)
	return b[n:end], end, nil
}
