package protocol

import "github.com/zsiec/moqc/internal/wire"

// ObjectStatus classifies a zero-length object payload. A
// non-zero payload length always means StatusNormal and the byte is
// omitted from the wire entirely — the status byte only appears when
// there is no payload to carry it implicitly.
type ObjectStatus uint64

const (
	StatusNormal            ObjectStatus = 0x00
	StatusDoesNotExist      ObjectStatus = 0x01
	StatusGroupDoesNotExist ObjectStatus = 0x02
	StatusEndOfGroup        ObjectStatus = 0x03
	StatusEndOfTrack        ObjectStatus = 0x04
)

// subgroupFlag bits packed into the low nibble of a SUBGROUP_HEADER
// stream's type byte.
const (
	subgroupFlagExtensions       = 0x01 // objects in this subgroup may carry extension headers
	subgroupFlagExplicitID       = 0x04 // subgroup id is carried explicitly, not derived
	subgroupFlagIDEqualsFirstObj = 0x02 // (when !explicit) subgroup id == first object's id, else 0
	subgroupFlagEndOfGroup       = 0x08 // stream ends with an explicit end-of-group marker object

	// SubgroupHeaderBase is the lowest SUBGROUP_HEADER stream type; the
	// flag bits above are OR'd onto it to select a variant, spanning
	// SubgroupHeaderBase..SubgroupHeaderBase+0x0F.
	SubgroupHeaderBase MessageType = 0x10

	// FetchHeaderType opens a stream carrying the response to a FETCH
	//. Unlike SUBGROUP_HEADER it has no
	// flag variants: every object on a fetch stream is self-describing
	// (explicit group/subgroup/object id) since a fetch can span groups.
	FetchHeaderType MessageType = 0x05
)

// SubgroupHeader opens a unidirectional data stream carrying objects from
// one subgroup of one group of one track.
type SubgroupHeader struct {
	TrackAlias uint64
	GroupID    uint64
	SubgroupID uint64

	// HasExplicitSubgroupID records whether SubgroupID was read off the
	// wire or derived from the IDEqualsFirstObject convention; needed by
	// the parser to resolve SubgroupID once the first object arrives.
	HasExplicitSubgroupID bool
	IDEqualsFirstObject   bool

	HasExtensions bool
	EndOfGroup    bool

	Priority byte
}

func (h SubgroupHeader) streamType() MessageType {
	var flags MessageType
	if h.HasExtensions {
		flags |= subgroupFlagExtensions
	}
	if h.HasExplicitSubgroupID {
		flags |= subgroupFlagExplicitID
	} else if h.IDEqualsFirstObject {
		flags |= subgroupFlagIDEqualsFirstObj
	}
	if h.EndOfGroup {
		flags |= subgroupFlagEndOfGroup
	}
	return SubgroupHeaderBase | flags
}

// Encode writes the stream-opening bytes: type byte, track alias, group
// id, subgroup id (if explicit), priority.
func (h SubgroupHeader) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, uint64(h.streamType()))
	buf = wire.AppendVarint(buf, h.TrackAlias)
	buf = wire.AppendVarint(buf, h.GroupID)
	if h.HasExplicitSubgroupID {
		buf = wire.AppendVarint(buf, h.SubgroupID)
	}
	buf = append(buf, h.Priority)
	return buf
}

// DecodeSubgroupHeaderFlags unpacks the variant flags from a stream type
// byte already identified as SUBGROUP_HEADER range (type &^ 0x0F ==
// SubgroupHeaderBase).
func DecodeSubgroupHeaderFlags(streamType MessageType) SubgroupHeader {
	flags := streamType &^ SubgroupHeaderBase
	return SubgroupHeader{
		HasExtensions:         flags&subgroupFlagExtensions != 0,
		HasExplicitSubgroupID: flags&subgroupFlagExplicitID != 0,
		IDEqualsFirstObject:   flags&subgroupFlagIDEqualsFirstObj != 0,
		EndOfGroup:            flags&subgroupFlagEndOfGroup != 0,
	}
}

// IsSubgroupHeaderType reports whether t falls in the SUBGROUP_HEADER
// variant range.
func IsSubgroupHeaderType(t MessageType) bool {
	return t >= SubgroupHeaderBase && t < SubgroupHeaderBase+0x10
}

// Object is one object carried on a SUBGROUP_HEADER stream, after the
// stream's header has already fixed track alias, group and (possibly)
// subgroup id. ID on the wire is delta-encoded: the first object's delta IS its absolute id; every later object's
// delta is id - prevID - 1. DecodeStreamObject takes the previous
// decoded id (or 0 with first=true) and returns the absolute id.
type Object struct {
	ID            uint64
	Status        ObjectStatus
	Extensions    []wire.Param
	Payload       []byte
	HasExtensions bool
}

// EncodeStreamObject appends one object to a subgroup stream (fetch
// streams use EncodeFetchObject).
// prevID/first drive delta encoding identically to DecodeStreamObject.
func EncodeStreamObject(buf []byte, obj Object, prevID uint64, first bool) []byte {
	var delta uint64
	if first {
		delta = obj.ID
	} else {
		delta = obj.ID - prevID - 1
	}
	buf = wire.AppendVarint(buf, delta)
	if obj.HasExtensions {
		extBuf := wire.AppendParams(nil, obj.Extensions)
		buf = wire.AppendVarint(buf, uint64(len(extBuf)))
		buf = append(buf, extBuf...)
	}
	if len(obj.Payload) == 0 {
		buf = wire.AppendVarint(buf, 0)
		buf = wire.AppendVarint(buf, uint64(obj.Status))
	} else {
		buf = wire.AppendVarint(buf, uint64(len(obj.Payload)))
		buf = append(buf, obj.Payload...)
	}
	return buf
}

// DecodeStreamObject reads one object starting at data[0], returning the
// object (with ID already resolved to an absolute value via prevID/first)
// and the number of bytes consumed. Returns wire.ErrIncomplete (via
// wire.IsIncomplete) when data does not yet hold a full object.
func DecodeStreamObject(data []byte, prevID uint64, first bool, hasExtensions bool) (Object, int, error) {
	var obj Object
	n := 0

	delta, dn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	n += dn
	if first {
		obj.ID = delta
	} else {
		obj.ID = prevID + delta + 1
	}

	if hasExtensions {
		extLen, en, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return obj, 0, err
		}
		n += en
		if uint64(len(data)-n) < extLen {
			return obj, 0, wire.ErrIncomplete
		}
		params, _, err := wire.DecodeParams(data[n : n+int(extLen)])
		if err != nil {
			return obj, 0, err
		}
		obj.Extensions = params
		obj.HasExtensions = true
		n += int(extLen)
	}

	length, ln, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	n += ln

	if length == 0 {
		status, sn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return obj, 0, err
		}
		obj.Status = ObjectStatus(status)
		n += sn
		return obj, n, nil
	}

	if uint64(len(data)-n) < length {
		return obj, 0, wire.ErrIncomplete
	}
	obj.Payload = append([]byte(nil), data[n:n+int(length)]...)
	obj.Status = StatusNormal
	n += int(length)
	return obj, n, nil
}

// FetchHeader opens the response stream for a FETCH.
type FetchHeader struct {
	RequestID uint64
}

func (h FetchHeader) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, uint64(FetchHeaderType))
	buf = wire.AppendVarint(buf, h.RequestID)
	return buf
}

func DecodeFetchHeader(data []byte) (FetchHeader, int, error) {
	reqID, n, err := wire.DecodeVarint(data)
	if err != nil {
		return FetchHeader{}, 0, err
	}
	return FetchHeader{RequestID: reqID}, n, nil
}

// FetchObject is one object on a fetch response stream. Unlike Object on
// a subgroup stream, every field is explicit: a fetch response can
// interleave objects from different groups and subgroups, so there is no
// shared header to derive them from and no delta encoding across objects.
type FetchObject struct {
	GroupID    uint64
	SubgroupID uint64
	ObjectID   uint64
	Priority   byte
	Status     ObjectStatus
	Extensions []wire.Param
	Payload    []byte
}

func EncodeFetchObject(buf []byte, obj FetchObject) []byte {
	buf = wire.AppendVarint(buf, obj.GroupID)
	buf = wire.AppendVarint(buf, obj.SubgroupID)
	buf = wire.AppendVarint(buf, obj.ObjectID)
	buf = append(buf, obj.Priority)
	extBuf := wire.AppendParams(nil, obj.Extensions)
	buf = wire.AppendVarint(buf, uint64(len(extBuf)))
	buf = append(buf, extBuf...)
	if len(obj.Payload) == 0 {
		buf = wire.AppendVarint(buf, 0)
		buf = wire.AppendVarint(buf, uint64(obj.Status))
	} else {
		buf = wire.AppendVarint(buf, uint64(len(obj.Payload)))
		buf = append(buf, obj.Payload...)
	}
	return buf
}

func DecodeFetchObject(data []byte) (FetchObject, int, error) {
	var obj FetchObject
	n := 0

	group, gn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	obj.GroupID = group
	n += gn

	subgroup, sn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	obj.SubgroupID = subgroup
	n += sn

	objID, on, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	obj.ObjectID = objID
	n += on

	if len(data) < n+1 {
		return obj, 0, wire.ErrIncomplete
	}
	obj.Priority = data[n]
	n++

	extLen, en, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	n += en
	if uint64(len(data)-n) < extLen {
		return obj, 0, wire.ErrIncomplete
	}
	if extLen > 0 {
		params, _, err := wire.DecodeParams(data[n : n+int(extLen)])
		if err != nil {
			return obj, 0, err
		}
		obj.Extensions = params
	}
	n += int(extLen)

	length, ln, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return obj, 0, err
	}
	n += ln

	if length == 0 {
		status, stn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return obj, 0, err
		}
		obj.Status = ObjectStatus(status)
		n += stn
		return obj, n, nil
	}

	if uint64(len(data)-n) < length {
		return obj, 0, wire.ErrIncomplete
	}
	obj.Payload = append([]byte(nil), data[n:n+int(length)]...)
	obj.Status = StatusNormal
	n += int(length)
	return obj, n, nil
}
