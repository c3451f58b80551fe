package wire

import (
	"reflect"
	"testing"
)

func TestTupleRoundTrip(t *testing.T) {
	t.Parallel()
	parts := TupleBytes([]string{"example.com", "stream", "live"})
	buf := AppendTuple(nil, parts)

	got, n, err := DecodeTuple(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
	if !reflect.DeepEqual(TupleStrings(got), []string{"example.com", "stream", "live"}) {
		t.Fatalf("got %v", TupleStrings(got))
	}
}

func TestTupleEmpty(t *testing.T) {
	t.Parallel()
	buf := AppendTuple(nil, nil)
	got, _, err := DecodeTuple(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}

func TestTupleTruncated(t *testing.T) {
	t.Parallel()
	buf := AppendTuple(nil, TupleBytes([]string{"a", "b"}))
	_, _, err := DecodeTuple(buf[:len(buf)-1])
	if !IsIncomplete(err) {
		t.Fatalf("err = %v, want ErrIncomplete", err)
	}
}
