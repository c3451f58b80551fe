package protocol

import "github.com/zsiec/moqc/internal/wire"

// ClientSetup is the first message a client sends.
type ClientSetup struct {
	Versions     []uint64
	Params       []wire.Param
	Path         string
	MaxRequestID uint64
	HasPath      bool
}

// Encode serializes a CLIENT_SETUP payload.
func (cs ClientSetup) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, uint64(len(cs.Versions)))
	for _, v := range cs.Versions {
		buf = wire.AppendVarint(buf, v)
	}

	params := make([]wire.Param, 0, len(cs.Params)+2)
	if cs.HasPath {
		params = append(params, wire.Param{Type: ParamPath, BytesValue: []byte(cs.Path)})
	}
	if cs.MaxRequestID != 0 {
		params = append(params, wire.Param{Type: ParamMaxRequestID, VarintValue: cs.MaxRequestID})
	}
	params = append(params, cs.Params...)
	buf = wire.AppendParams(buf, params)
	return buf
}

// DecodeClientSetup parses a CLIENT_SETUP payload.
func DecodeClientSetup(data []byte) (ClientSetup, error) {
	var cs ClientSetup
	n := 0

	numVersions, vn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return cs, fieldErr("num_versions", err)
	}
	n += vn

	cs.Versions = make([]uint64, 0, numVersions)
	for i := uint64(0); i < numVersions; i++ {
		v, vn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return cs, fieldErr("version", err)
		}
		cs.Versions = append(cs.Versions, v)
		n += vn
	}

	params, pn, err := wire.DecodeParams(data[n:])
	if err != nil {
		return cs, fieldErr("params", err)
	}
	n += pn

	for _, p := range params {
		switch p.Type {
		case ParamPath:
			cs.Path = string(p.BytesValue)
			cs.HasPath = true
		case ParamMaxRequestID:
			cs.MaxRequestID = p.VarintValue
		default:
			cs.Params = append(cs.Params, p)
		}
	}
	return cs, nil
}

// SupportsVersion reports whether v is in the client's offered version list.
func (cs ClientSetup) SupportsVersion(v uint64) bool {
	for _, cv := range cs.Versions {
		if cv == v {
			return true
		}
	}
	return false
}

// ServerSetup is the response to CLIENT_SETUP.
type ServerSetup struct {
	SelectedVersion uint64
	Params          []wire.Param
	MaxRequestID    uint64
}

// Encode serializes a SERVER_SETUP payload.
func (ss ServerSetup) Encode() []byte {
	buf := wire.AppendVarint(nil, ss.SelectedVersion)
	params := append([]wire.Param{{Type: ParamMaxRequestID, VarintValue: ss.MaxRequestID}}, ss.Params...)
	buf = wire.AppendParams(buf, params)
	return buf
}

// DecodeServerSetup parses a SERVER_SETUP payload.
func DecodeServerSetup(data []byte) (ServerSetup, error) {
	var ss ServerSetup
	ver, n, err := wire.DecodeVarint(data)
	if err != nil {
		return ss, fieldErr("selected_version", err)
	}
	ss.SelectedVersion = ver

	params, _, err := wire.DecodeParams(data[n:])
	if err != nil {
		return ss, fieldErr("params", err)
	}
	for _, p := range params {
		if p.Type == ParamMaxRequestID {
			ss.MaxRequestID = p.VarintValue
		} else {
			ss.Params = append(ss.Params, p)
		}
	}
	return ss, nil
}
