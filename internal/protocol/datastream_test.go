package protocol

import (
	"bytes"
	"testing"

	"github.com/zsiec/moqc/internal/wire"
)

func TestSubgroupHeaderFlagsRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := SubgroupHeader{
		TrackAlias:            3,
		GroupID:               7,
		SubgroupID:            2,
		HasExplicitSubgroupID: true,
		HasExtensions:         true,
		EndOfGroup:            true,
		Priority:              9,
	}
	encoded := hdr.Encode()

	typ, n, err := wire.DecodeVarint(encoded)
	if err != nil {
		t.Fatal(err)
	}
	if !IsSubgroupHeaderType(MessageType(typ)) {
		t.Fatalf("type %#x not recognized as subgroup header", typ)
	}
	flags := DecodeSubgroupHeaderFlags(MessageType(typ))
	if !flags.HasExtensions || !flags.HasExplicitSubgroupID || !flags.EndOfGroup {
		t.Fatalf("flags lost in round trip: %+v", flags)
	}
	_ = n
}

// TestObjectDeltaLaw checks the delta-encoding invariant: the first
// object's delta is its absolute id, every later delta is id - prevID - 1.
func TestObjectDeltaLaw(t *testing.T) {
	t.Parallel()

	ids := []uint64{5, 6, 10, 11, 11 + 100}
	var buf []byte
	prev := uint64(0)
	for i, id := range ids {
		buf = EncodeStreamObject(buf, Object{ID: id, Payload: []byte("x")}, prev, i == 0)
		prev = id
	}

	var got []uint64
	prev = 0
	rest := buf
	for i := range ids {
		obj, n, err := DecodeStreamObject(rest, prev, i == 0, false)
		if err != nil {
			t.Fatalf("object %d: %v", i, err)
		}
		got = append(got, obj.ID)
		prev = obj.ID
		rest = rest[n:]
	}

	for i, id := range ids {
		if got[i] != id {
			t.Fatalf("object %d id = %d, want %d", i, got[i], id)
		}
	}
}

func TestObjectZeroPayloadStatus(t *testing.T) {
	t.Parallel()

	obj := Object{ID: 0, Status: StatusEndOfGroup}
	buf := EncodeStreamObject(nil, obj, 0, true)
	got, n, err := DecodeStreamObject(buf, 0, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if got.Status != StatusEndOfGroup {
		t.Fatalf("status = %v, want StatusEndOfGroup", got.Status)
	}
	if len(got.Payload) != 0 {
		t.Fatalf("expected empty payload, got %d bytes", len(got.Payload))
	}
}

func TestObjectWithExtensions(t *testing.T) {
	t.Parallel()

	obj := Object{
		ID:            4,
		HasExtensions: true,
		Extensions:    []wire.Param{{Type: 0x02, VarintValue: 99}, {Type: 0x03, BytesValue: []byte("hi")}},
		Payload:       []byte("payload"),
	}
	buf := EncodeStreamObject(nil, obj, 0, true)
	got, n, err := DecodeStreamObject(buf, 0, true, true)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d of %d bytes", n, len(buf))
	}
	if len(got.Extensions) != 2 {
		t.Fatalf("extensions = %+v", got.Extensions)
	}
	if !bytes.Equal(got.Payload, []byte("payload")) {
		t.Fatalf("payload = %q", got.Payload)
	}
}

func TestObjectIncompleteBuffer(t *testing.T) {
	t.Parallel()

	obj := Object{ID: 1, Payload: []byte("hello world")}
	buf := EncodeStreamObject(nil, obj, 0, true)

	_, _, err := DecodeStreamObject(buf[:len(buf)-3], 0, true, false)
	if !wire.IsIncomplete(err) {
		t.Fatalf("expected incomplete, got %v", err)
	}
}

func TestFetchHeaderAndObjectRoundTrip(t *testing.T) {
	t.Parallel()

	fh := FetchHeader{RequestID: 12}
	got, n, err := DecodeFetchHeader(fh.Encode()[1:]) // strip the leading type varint
	if err != nil {
		t.Fatal(err)
	}
	if got != fh {
		t.Fatalf("got %+v, want %+v", got, fh)
	}
	_ = n

	obj := FetchObject{GroupID: 2, SubgroupID: 0, ObjectID: 5, Priority: 1, Payload: []byte("data")}
	buf := EncodeFetchObject(nil, obj)
	gotObj, on, err := DecodeFetchObject(buf)
	if err != nil {
		t.Fatal(err)
	}
	if on != len(buf) {
		t.Fatalf("consumed %d of %d", on, len(buf))
	}
	if !bytes.Equal(gotObj.Payload, obj.Payload) || gotObj.ObjectID != obj.ObjectID {
		t.Fatalf("got %+v, want %+v", gotObj, obj)
	}
}
