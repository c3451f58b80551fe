package wire

// AppendTuple appends a varint count followed by each part as a
// varint-length-prefixed byte string — the wire representation of a track
// namespace.
func AppendTuple(buf []byte, parts [][]byte) []byte {
	buf = AppendVarint(buf, uint64(len(parts)))
	for _, p := range parts {
		buf = AppendBytes(buf, p)
	}
	return buf
}

// DecodeTuple reads a namespace tuple from the front of b, returning slices
// that alias b. Callers that retain the result past the buffer's lifetime
// must copy.
func DecodeTuple(b []byte) ([][]byte, int, error) {
	count, n, err := DecodeVarint(b)
	if err != nil {
		return nil, 0, err
	}
	if count > MaxVarint {
		return nil, 0, malformed("tuple count", errCountOverflow)
	}

	parts := make([][]byte, 0, count)
	for i := uint64(0); i < count; i++ {
		part, pn, err := DecodeBytes(b[n:])
		if err != nil {
			return nil, 0, err
		}
		parts = append(parts, part)
		n += pn
	}
	return parts, n, nil
}

// CloneTuple returns a deep copy of a tuple decoded from a shared buffer.
func CloneTuple(parts [][]byte) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		c := make([]byte, len(p))
		copy(c, p)
		out[i] = c
	}
	return out
}

// TupleStrings converts a byte-slice tuple to strings, for namespaces that
// are known to be UTF-8 (the common case in practice, though the wire
// format itself is byte-string agnostic).
func TupleStrings(parts [][]byte) []string {
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out
}

// TupleBytes is the inverse of TupleStrings.
func TupleBytes(parts []string) [][]byte {
	out := make([][]byte, len(parts))
	for i, p := range parts {
		out[i] = []byte(p)
	}
	return out
}
