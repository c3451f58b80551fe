package wire

import (
	"bytes"
	"testing"
)

func TestParamEvenRoundTrip(t *testing.T) {
	t.Parallel()
	p := Param{Type: 0x02, VarintValue: 128}
	buf := AppendParam(nil, p)
	got, n, err := DecodeParam(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != p.Type || got.VarintValue != p.VarintValue {
		t.Fatalf("got %+v, want %+v", got, p)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
}

func TestParamOddRoundTrip(t *testing.T) {
	t.Parallel()
	p := Param{Type: 0x01, BytesValue: []byte("/moq")}
	buf := AppendParam(nil, p)
	got, _, err := DecodeParam(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got.Type != p.Type || !bytes.Equal(got.BytesValue, p.BytesValue) {
		t.Fatalf("got %+v, want %+v", got, p)
	}
}

func TestParamsRoundTrip(t *testing.T) {
	t.Parallel()
	params := []Param{
		{Type: 0x01, BytesValue: []byte("/moq")},
		{Type: 0x02, VarintValue: 128},
	}
	buf := AppendParams(nil, params)
	got, n, err := DecodeParams(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d params, want 2", len(got))
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}

	pathParam, ok := FindParam(got, 0x01)
	if !ok || string(pathParam.BytesValue) != "/moq" {
		t.Fatalf("path param = %+v, ok=%v", pathParam, ok)
	}
}

func TestParamsEmpty(t *testing.T) {
	t.Parallel()
	buf := AppendParams(nil, nil)
	got, _, err := DecodeParams(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %v, want empty", got)
	}
}
