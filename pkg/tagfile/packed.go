package tagfile

// Packed integers use the top bits of the first byte as a length prefix:
//
//	0xxxxxxx                              7 bits
//	10xxxxxx xxxxxxxx                     14 bits
//	110xxxxx xxxxxxxx xxxxxxxx            21 bits
//	111xxxxx xxxxxxxx xxxxxxxx xxxxxxxx   29 bits
const (
	packedMax1 = 0x7F
	packedMax2 = 0x3FFF
	packedMax3 = 0x1FFFFF
	packedMax4 = 0x1FFFFFFF
)

// ReadPacked decodes a packed integer at off and returns the value and the
// offset just past it.
func ReadPacked(b []byte, off int) (uint32, int, error) {
	if off < 0 || off >= len(b) {
		return 0, off, ErrTruncated
	}

	first := b[off]
	var n int
	var mask uint32
	switch {
	case first&0x80 == 0:
		return uint32(first), off + 1, nil
	case first&0x40 == 0:
		n, mask = 2, packedMax2
	case first&0x20 == 0:
		n, mask = 3, packedMax3
	default:
		n, mask = 4, packedMax4
	}

	if off+n > len(b) {
		return 0, off, ErrTruncated
	}

	var v uint32
	for i := 0; i < n; i++ {
		v = v<<8 | uint32(b[off+i])
	}
	return v & mask, off + n, nil
}

// AppendPacked appends the smallest encoding of v to dst. Values above
// 0x1FFFFFFF are truncated to their low 29 bits.
func AppendPacked(dst []byte, v uint32) []byte {
	v &= packedMax4

	switch {
	case v <= packedMax1:
		return append(dst, byte(v))
	case v <= packedMax2:
		return append(dst, 0x80|byte(v>>8), byte(v))
	case v <= packedMax3:
		return append(dst, 0xC0|byte(v>>16), byte(v>>8), byte(v))
	default:
		return append(dst, 0xE0|byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

// WritePacked returns the packed encoding of v.
func WritePacked(v uint32) []byte {
	return AppendPacked(nil, v)
}
