package wire

// Location is a (group, object) cursor, totally ordered lexicographically
// by group then object.
type Location struct {
	Group  uint64
	Object uint64
}

// ZeroLocation is Location{0, 0}.
var ZeroLocation = Location{}

// Less reports whether l sorts strictly before other.
func (l Location) Less(other Location) bool {
	if l.Group != other.Group {
		return l.Group < other.Group
	}
	return l.Object < other.Object
}

// AppendLocation appends group then object as two varints.
func AppendLocation(buf []byte, loc Location) []byte {
	buf = AppendVarint(buf, loc.Group)
	buf = AppendVarint(buf, loc.Object)
	return buf
}

// DecodeLocation reads a (group, object) pair from the front of b.
func DecodeLocation(b []byte) (Location, int, error) {
	group, n, err := DecodeVarint(b)
	if err != nil {
		return Location{}, 0, err
	}
	obj, n2, err := DecodeVarint(b[n:])
	if err != nil {
		return Location{}, 0, err
	}
	return Location{Group: group, Object: obj}, n + n2, nil
}
