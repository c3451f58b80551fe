package protocol

import (
	"bytes"
	"testing"

	"github.com/zsiec/moqc/internal/wire"
)

func TestObjectDatagramRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []ObjectDatagram{
		{TrackAlias: 1, GroupID: 2, ObjectID: 3, Priority: 10, Payload: []byte("hello")},
		{TrackAlias: 1, GroupID: 2, ObjectID: 3, Priority: 10, Status: StatusDoesNotExist},
		{
			TrackAlias: 9, GroupID: 1, SubgroupID: 4, HasSubgroupID: true,
			ObjectID: 0, Priority: 1, HasExtensions: true,
			Extensions: []wire.Param{{Type: 0x02, VarintValue: 7}},
			Payload:    []byte("ext"),
		},
	}

	for i, want := range cases {
		encoded := want.Encode()
		got, err := DecodeObjectDatagram(encoded)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if got.TrackAlias != want.TrackAlias || got.GroupID != want.GroupID || got.ObjectID != want.ObjectID {
			t.Fatalf("case %d: got %+v, want %+v", i, got, want)
		}
		if got.HasSubgroupID != want.HasSubgroupID || got.SubgroupID != want.SubgroupID {
			t.Fatalf("case %d: subgroup mismatch got %+v, want %+v", i, got, want)
		}
		if !bytes.Equal(got.Payload, want.Payload) {
			t.Fatalf("case %d: payload got %q, want %q", i, got.Payload, want.Payload)
		}
		if got.Status != want.Status {
			t.Fatalf("case %d: status got %v, want %v", i, got.Status, want.Status)
		}
		if len(got.Extensions) != len(want.Extensions) {
			t.Fatalf("case %d: extensions got %+v, want %+v", i, got.Extensions, want.Extensions)
		}
	}
}

func TestObjectDatagramUnknownType(t *testing.T) {
	t.Parallel()
	// 0x3F is a complete one-byte varint (63), above the OBJECT_DATAGRAM range.
	_, err := DecodeObjectDatagram([]byte{0x3F, 0x01})
	if _, ok := err.(*ErrUnknownMessage); !ok {
		t.Fatalf("err = %v (%T), want *ErrUnknownMessage for an out-of-range datagram type", err, err)
	}
}
