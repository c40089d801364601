package serial

import "github.com/freyja-labs/eventkv/pkg/storeerr"

const (
	// maxBytesLength caps a variable-length byte sequence at 2^30 bytes.
	maxBytesLength = 1 << 30

	// maxSeqCount caps a variable-length sequence, map, or set at 2^28
	// elements.
	maxSeqCount = 1 << 28
)

// Bytes serializes a variable-length byte slice as VarUint(length) followed
// by the raw bytes, length capped at 2^30.
type Bytes struct{}

func (Bytes) SizeOf(v []byte) int {
	return VarUint[uint32]{}.SizeOf(uint32(len(v))) + len(v)
}

func (Bytes) IsEmpty(v []byte) bool { return len(v) == 0 }

func (Bytes) Write(dst []byte, v []byte) int {
	lenSer := VarUint[uint32]{}
	needed := lenSer.SizeOf(uint32(len(v))) + len(v)
	if len(dst) < needed {
		return needed
	}
	n := lenSer.Write(dst, uint32(len(v)))
	copy(dst[n:], v)
	return needed
}

func (Bytes) Read(src []byte, v *[]byte) (int, error) {
	lenSer := VarUint[uint32]{}
	var length uint32
	n, err := lenSer.Read(src, &length)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	if length > maxBytesLength {
		return 0, storeerr.ErrDecode
	}
	needed := n + int(length)
	if len(src) < needed {
		return needed, nil
	}
	buf := make([]byte, length)
	copy(buf, src[n:needed])
	*v = buf
	return needed, nil
}

// String serializes a string the same way Bytes serializes a []byte:
// VarUint(length) followed by the raw UTF-8 bytes. Unlike []byte, string is
// comparable and usable as a Go map key, so this is the natural choice for
// a Store's key serializer when K is string.
type String struct{}

func (String) SizeOf(v string) int {
	return Bytes{}.SizeOf([]byte(v))
}

func (String) IsEmpty(v string) bool { return v == "" }

func (String) Write(dst []byte, v string) int {
	return Bytes{}.Write(dst, []byte(v))
}

func (String) Read(src []byte, v *string) (int, error) {
	var b []byte
	n, err := Bytes{}.Read(src, &b)
	if err != nil {
		return 0, err
	}
	if n <= len(src) {
		*v = string(b)
	}
	return n, nil
}

// Slice serializes a variable-length sequence of T as VarUint(count)
// followed by each element's encoding, count capped at 2^28.
type Slice[T any, S Serializer[T]] struct {
	Elem S
}

func (s Slice[T, S]) SizeOf(v []T) int {
	total := VarUint[uint32]{}.SizeOf(uint32(len(v)))
	for _, elem := range v {
		total += s.Elem.SizeOf(elem)
	}
	return total
}

func (s Slice[T, S]) IsEmpty(v []T) bool { return len(v) == 0 }

func (s Slice[T, S]) Write(dst []byte, v []T) int {
	needed := s.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	lenSer := VarUint[uint32]{}
	off := lenSer.Write(dst, uint32(len(v)))
	for _, elem := range v {
		off += s.Elem.Write(dst[off:], elem)
	}
	return needed
}

func (s Slice[T, S]) Read(src []byte, v *[]T) (int, error) {
	lenSer := VarUint[uint32]{}
	var count uint32
	n, err := lenSer.Read(src, &count)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	if count > maxSeqCount {
		return 0, storeerr.ErrDecode
	}

	off := n
	elems := make([]T, 0, count)
	for i := uint32(0); i < count; i++ {
		var elem T
		m, err := s.Elem.Read(src[off:], &elem)
		if err != nil {
			return 0, err
		}
		if off+m > len(src) {
			return off + m, nil
		}
		elems = append(elems, elem)
		off += m
	}
	*v = elems
	return off, nil
}

// Map serializes a Go map[K]V as an associative container: VarUint(count)
// followed by each (key, value) pair, count capped at 2^28. Iteration order
// is Go's randomized map order; the wire format does not require a
// canonical order, only a self-describing length prefix.
type Map[K comparable, V any, SK Serializer[K], SV Serializer[V]] struct {
	KeySer SK
	ValSer SV
}

func (m Map[K, V, SK, SV]) SizeOf(v map[K]V) int {
	total := VarUint[uint32]{}.SizeOf(uint32(len(v)))
	for k, val := range v {
		total += m.KeySer.SizeOf(k) + m.ValSer.SizeOf(val)
	}
	return total
}

func (m Map[K, V, SK, SV]) IsEmpty(v map[K]V) bool { return len(v) == 0 }

func (m Map[K, V, SK, SV]) Write(dst []byte, v map[K]V) int {
	needed := m.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := VarUint[uint32]{}.Write(dst, uint32(len(v)))
	for k, val := range v {
		off += m.KeySer.Write(dst[off:], k)
		off += m.ValSer.Write(dst[off:], val)
	}
	return needed
}

func (m Map[K, V, SK, SV]) Read(src []byte, v *map[K]V) (int, error) {
	var count uint32
	n, err := VarUint[uint32]{}.Read(src, &count)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	if count > maxSeqCount {
		return 0, storeerr.ErrDecode
	}

	off := n
	result := make(map[K]V, count)
	for i := uint32(0); i < count; i++ {
		var k K
		var val V
		kn, err := m.KeySer.Read(src[off:], &k)
		if err != nil {
			return 0, err
		}
		if off+kn > len(src) {
			return off + kn, nil
		}
		off += kn
		vn, err := m.ValSer.Read(src[off:], &val)
		if err != nil {
			return 0, err
		}
		if off+vn > len(src) {
			return off + vn, nil
		}
		off += vn
		result[k] = val
	}
	*v = result
	return off, nil
}

// Set serializes a Go map[K]struct{} as VarUint(count) followed by each
// element's encoding, count capped at 2^28.
type Set[K comparable, SK Serializer[K]] struct {
	Elem SK
}

func (s Set[K, SK]) SizeOf(v map[K]struct{}) int {
	total := VarUint[uint32]{}.SizeOf(uint32(len(v)))
	for k := range v {
		total += s.Elem.SizeOf(k)
	}
	return total
}

func (s Set[K, SK]) IsEmpty(v map[K]struct{}) bool { return len(v) == 0 }

func (s Set[K, SK]) Write(dst []byte, v map[K]struct{}) int {
	needed := s.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := VarUint[uint32]{}.Write(dst, uint32(len(v)))
	for k := range v {
		off += s.Elem.Write(dst[off:], k)
	}
	return needed
}

func (s Set[K, SK]) Read(src []byte, v *map[K]struct{}) (int, error) {
	var count uint32
	n, err := VarUint[uint32]{}.Read(src, &count)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	if count > maxSeqCount {
		return 0, storeerr.ErrDecode
	}

	off := n
	result := make(map[K]struct{}, count)
	for i := uint32(0); i < count; i++ {
		var k K
		kn, err := s.Elem.Read(src[off:], &k)
		if err != nil {
			return 0, err
		}
		if off+kn > len(src) {
			return off + kn, nil
		}
		off += kn
		result[k] = struct{}{}
	}
	*v = result
	return off, nil
}
