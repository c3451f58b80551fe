package wire

import (
	"errors"
	"unicode/utf8"
)

var errInvalidUTF8 = errors.New("invalid UTF-8")

// AppendReason appends a length-prefixed UTF-8 reason phrase.
func AppendReason(buf []byte, reason string) []byte {
	return AppendBytes(buf, []byte(reason))
}

// DecodeReason reads a length-prefixed reason phrase from the front of b
// and validates it as well-formed UTF-8. A byte sequence that is not valid
// UTF-8 fails with a *MalformedError (INVALID_ENCODING at the protocol
// layer).
func DecodeReason(b []byte) (string, int, error) {
	raw, n, err := DecodeBytes(b)
	if err != nil {
		return "", 0, err
	}
	if !utf8.Valid(raw) {
		return "", 0, malformed("reason phrase", errInvalidUTF8)
	}
	return string(raw), n, nil
}
