package protocol

import "github.com/zsiec/moqc/internal/wire"

// datagramFlag bits packed into an OBJECT_DATAGRAM's type byte. A datagram carries exactly one object:
// there is no stream to amortize a shared header over, so every field
// the object needs rides in the datagram itself.
const (
	datagramFlagExtensions = 0x01 // extension headers present
	datagramFlagStatus     = 0x02 // no payload; a status byte follows instead
	datagramFlagSubgroupID = 0x04 // subgroup id carried explicitly (else 0)

	// DatagramBase is the lowest OBJECT_DATAGRAM type; flag bits select
	// a variant, spanning DatagramBase..DatagramBase+0x07.
	DatagramBase MessageType = 0x00
)

// IsObjectDatagramType reports whether t falls in the OBJECT_DATAGRAM
// variant range.
func IsObjectDatagramType(t MessageType) bool {
	return t <= DatagramBase+0x07
}

// ObjectDatagram is a single self-contained object delivered out-of-band
// from any stream.
type ObjectDatagram struct {
	TrackAlias uint64
	GroupID    uint64
	SubgroupID uint64
	ObjectID   uint64
	Priority   byte

	HasSubgroupID bool
	HasExtensions bool
	Extensions    []wire.Param

	Status  ObjectStatus
	Payload []byte
}

func (d ObjectDatagram) datagramType() MessageType {
	var flags MessageType
	if d.HasExtensions {
		flags |= datagramFlagExtensions
	}
	if len(d.Payload) == 0 {
		flags |= datagramFlagStatus
	}
	if d.HasSubgroupID {
		flags |= datagramFlagSubgroupID
	}
	return DatagramBase | flags
}

// Encode serializes the datagram, including its leading type byte, ready
// to hand to a QUIC connection's SendDatagram.
func (d ObjectDatagram) Encode() []byte {
	var buf []byte
	buf = wire.AppendVarint(buf, uint64(d.datagramType()))
	buf = wire.AppendVarint(buf, d.TrackAlias)
	buf = wire.AppendVarint(buf, d.GroupID)
	if d.HasSubgroupID {
		buf = wire.AppendVarint(buf, d.SubgroupID)
	}
	buf = wire.AppendVarint(buf, d.ObjectID)
	buf = append(buf, d.Priority)
	if d.HasExtensions {
		extBuf := wire.AppendParams(nil, d.Extensions)
		buf = wire.AppendVarint(buf, uint64(len(extBuf)))
		buf = append(buf, extBuf...)
	}
	if len(d.Payload) == 0 {
		buf = wire.AppendVarint(buf, uint64(d.Status))
	} else {
		buf = wire.AppendVarint(buf, uint64(len(d.Payload)))
		buf = append(buf, d.Payload...)
	}
	return buf
}

// DecodeObjectDatagram parses a full datagram, type byte included.
func DecodeObjectDatagram(data []byte) (ObjectDatagram, error) {
	var d ObjectDatagram
	n := 0

	typ, tn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("type", err)
	}
	msgType := MessageType(typ)
	if !IsObjectDatagramType(msgType) {
		return d, &ErrUnknownMessage{Type: msgType}
	}
	flags := msgType &^ DatagramBase
	d.HasExtensions = flags&datagramFlagExtensions != 0
	d.HasSubgroupID = flags&datagramFlagSubgroupID != 0
	hasStatus := flags&datagramFlagStatus != 0
	n += tn

	alias, an, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("track_alias", err)
	}
	d.TrackAlias = alias
	n += an

	group, gn, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("group_id", err)
	}
	d.GroupID = group
	n += gn

	if d.HasSubgroupID {
		subgroup, sn, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return d, fieldErr("subgroup_id", err)
		}
		d.SubgroupID = subgroup
		n += sn
	}

	objID, on, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("object_id", err)
	}
	d.ObjectID = objID
	n += on

	if len(data) < n+1 {
		return d, fieldErr("priority", errTruncated)
	}
	d.Priority = data[n]
	n++

	if d.HasExtensions {
		extLen, en, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return d, fieldErr("extension_length", err)
		}
		n += en
		if uint64(len(data)-n) < extLen {
			return d, fieldErr("extensions", errTruncated)
		}
		params, _, err := wire.DecodeParams(data[n : n+int(extLen)])
		if err != nil {
			return d, fieldErr("extensions", err)
		}
		d.Extensions = params
		n += int(extLen)
	}

	if hasStatus {
		status, _, err := wire.DecodeVarint(data[n:])
		if err != nil {
			return d, fieldErr("status", err)
		}
		d.Status = ObjectStatus(status)
		return d, nil
	}

	length, ln, err := wire.DecodeVarint(data[n:])
	if err != nil {
		return d, fieldErr("payload_length", err)
	}
	n += ln
	if uint64(len(data)-n) < length {
		return d, fieldErr("payload", errTruncated)
	}
	d.Payload = append([]byte(nil), data[n:n+int(length)]...)
	d.Status = StatusNormal
	return d, nil
}
