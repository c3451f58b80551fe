package wire

// Param is one key-value parameter. Per the draft convention, even Type
// values carry a single varint in VarintValue; odd Type values carry a
// length-prefixed byte buffer in BytesValue.
type Param struct {
	Type        uint64
	VarintValue uint64
	BytesValue  []byte
}

// IsBytes reports whether this parameter's Type is odd (length-prefixed
// byte value) rather than even (varint value).
func (p Param) IsBytes() bool { return p.Type%2 == 1 }

// AppendParam appends one key-value parameter using the even/odd
// convention: even types encode VarintValue, odd types encode BytesValue
// with a varint length prefix.
func AppendParam(buf []byte, p Param) []byte {
	buf = AppendVarint(buf, p.Type)
	if p.IsBytes() {
		buf = AppendBytes(buf, p.BytesValue)
	} else {
		buf = AppendVarint(buf, p.VarintValue)
	}
	return buf
}

// AppendParams appends a varint count followed by each parameter.
func AppendParams(buf []byte, params []Param) []byte {
	buf = AppendVarint(buf, uint64(len(params)))
	for _, p := range params {
		buf = AppendParam(buf, p)
	}
	return buf
}

// DecodeParam reads one key-value parameter from the front of b.
func DecodeParam(b []byte) (Param, int, error) {
	typ, n, err := DecodeVarint(b)
	if err != nil {
		return Param{}, 0, err
	}
	p := Param{Type: typ}
	if p.IsBytes() {
		val, n2, err := DecodeBytes(b[n:])
		if err != nil {
			return Param{}, 0, err
		}
		p.BytesValue = val
		n += n2
	} else {
		val, n2, err := DecodeVarint(b[n:])
		if err != nil {
			return Param{}, 0, err
		}
		p.VarintValue = val
		n += n2
	}
	return p, n, nil
}

// DecodeParams reads a varint count followed by that many parameters.
func DecodeParams(b []byte) ([]Param, int, error) {
	count, n, err := DecodeVarint(b)
	if err != nil {
		return nil, 0, err
	}
	if count > MaxVarint {
		return nil, 0, malformed("param count", errCountOverflow)
	}
	var params []Param
	if count > 0 {
		params = make([]Param, 0, count)
	}
	for i := uint64(0); i < count; i++ {
		p, pn, err := DecodeParam(b[n:])
		if err != nil {
			return nil, 0, err
		}
		params = append(params, p)
		n += pn
	}
	return params, n, nil
}

// FindParam returns the first parameter with the given type, if any.
func FindParam(params []Param, typ uint64) (Param, bool) {
	for _, p := range params {
		if p.Type == typ {
			return p, true
		}
	}
	return Param{}, false
}
