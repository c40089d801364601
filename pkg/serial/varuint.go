package serial

import "github.com/freyja-labs/eventkv/pkg/storeerr"

// Unsigned is the set of unsigned integer types VarUint can be parameterized
// over. It is defined locally instead of importing golang.org/x/exp/constraints
// since it is the only constraint this package needs.
type Unsigned interface {
	~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

// VarUint encodes values of U as little-endian base-128 varints: each byte
// carries 7 payload bits, with the high bit set on every byte but the last.
// Zero encodes as the single byte 0x00.
type VarUint[U Unsigned] struct{}

// maxBytes returns ceil((bits(U)+6)/7), the maximum number of bytes a
// correctly terminated stream for U may occupy.
func (VarUint[U]) maxBytes() int {
	bits := bitWidth(U(0))
	return (bits + 6) / 7
}

func bitWidth[U Unsigned](U) int {
	var u U
	switch any(u).(type) {
	case uint8:
		return 8
	case uint16:
		return 16
	case uint32:
		return 32
	case uint64, uint:
		return 64
	default:
		return 64
	}
}

func (vu VarUint[U]) SizeOf(v U) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

func (VarUint[U]) IsEmpty(v U) bool { return v == 0 }

func (vu VarUint[U]) Write(dst []byte, v U) int {
	needed := vu.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	i := 0
	for v >= 0x80 {
		dst[i] = byte(v) | 0x80
		v >>= 7
		i++
	}
	dst[i] = byte(v)
	return needed
}

// Read decodes a VarUint from src. It must scan byte-by-byte to find the
// terminator before it can report how many bytes it needs, so unlike the
// fixed-width serializers it may return a "needed" value larger than
// len(src) on the first pass — the caller's buffer-growth loop is expected
// to retry once more bytes are available, exactly as with the dynamic
// length-prefixed containers below.
func (vu VarUint[U]) Read(src []byte, v *U) (int, error) {
	maxBytes := vu.maxBytes()

	var result U
	var shift uint
	for i := 0; i < len(src); i++ {
		if i >= maxBytes {
			return 0, storeerr.ErrDecode
		}
		b := src[i]
		payload := U(b & 0x7f)

		// Overflow check: shifting payload left by `shift` must not lose
		// bits off the top of U.
		if shift > 0 && payload != 0 {
			maxPayload := ^U(0) >> shift
			if payload > maxPayload {
				return 0, storeerr.ErrDecode
			}
		}

		result |= payload << shift
		if b&0x80 == 0 {
			*v = result
			return i + 1, nil
		}
		shift += 7
	}
	// Ran out of src without finding a terminator: report how many more
	// bytes we might need (one more than we've seen), capped so the caller
	// can detect a stream that is already at the type's byte limit.
	if len(src) >= maxBytes {
		return 0, storeerr.ErrDecode
	}
	return len(src) + 1, nil
}
