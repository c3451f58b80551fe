package wire

import "testing"

func TestLocationRoundTrip(t *testing.T) {
	t.Parallel()
	loc := Location{Group: 42, Object: 7}
	buf := AppendLocation(nil, loc)
	got, n, err := DecodeLocation(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != loc {
		t.Fatalf("got %+v, want %+v", got, loc)
	}
	if n != len(buf) {
		t.Fatalf("consumed %d, want %d", n, len(buf))
	}
}

func TestLocationZero(t *testing.T) {
	t.Parallel()
	if ZeroLocation != (Location{0, 0}) {
		t.Fatalf("ZeroLocation = %+v", ZeroLocation)
	}
}

func TestLocationLess(t *testing.T) {
	t.Parallel()
	cases := []struct {
		a, b Location
		want bool
	}{
		{Location{1, 0}, Location{2, 0}, true},
		{Location{2, 0}, Location{1, 0}, false},
		{Location{1, 5}, Location{1, 6}, true},
		{Location{1, 6}, Location{1, 5}, false},
		{Location{1, 5}, Location{1, 5}, false},
	}
	for _, tc := range cases {
		if got := tc.a.Less(tc.b); got != tc.want {
			t.Fatalf("%+v.Less(%+v) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
