package serial

// FixedBytes serializes a byte slice of exactly N bytes with no length
// prefix. Callers are responsible for ensuring v always has length N; a
// mismatched length panics.
type FixedBytes struct {
	N int
}

func (f FixedBytes) SizeOf([]byte) int { return f.N }

func (f FixedBytes) IsEmpty(v []byte) bool {
	for _, b := range v {
		if b != 0 {
			return false
		}
	}
	return true
}

func (f FixedBytes) Write(dst []byte, v []byte) int {
	if len(v) != f.N {
		panic("serial: FixedBytes value has wrong length")
	}
	if len(dst) >= f.N {
		copy(dst, v)
	}
	return f.N
}

func (f FixedBytes) Read(src []byte, v *[]byte) (int, error) {
	if len(src) >= f.N {
		buf := make([]byte, f.N)
		copy(buf, src[:f.N])
		*v = buf
	}
	return f.N, nil
}

// FixedArray serializes a Go slice that is always exactly N elements long —
// the slice-backed stand-in for a fixed-length array, since a type
// parameter cannot carry its own array length in Go. Elem encodes/decodes
// each element; a value whose length isn't N panics, the same contract
// FixedBytes enforces for raw byte arrays.
type FixedArray[T any, S Serializer[T]] struct {
	N    int
	Elem S
}

func (f FixedArray[T, S]) SizeOf(v []T) int {
	total := 0
	for i := 0; i < f.N; i++ {
		var elem T
		if i < len(v) {
			elem = v[i]
		}
		total += f.Elem.SizeOf(elem)
	}
	return total
}

func (f FixedArray[T, S]) IsEmpty(v []T) bool {
	for i := 0; i < f.N; i++ {
		var elem T
		if i < len(v) {
			elem = v[i]
		}
		if !f.Elem.IsEmpty(elem) {
			return false
		}
	}
	return true
}

func (f FixedArray[T, S]) Write(dst []byte, v []T) int {
	if len(v) != f.N {
		panic("serial: FixedArray value has wrong length")
	}
	needed := f.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := 0
	for _, elem := range v {
		off += f.Elem.Write(dst[off:], elem)
	}
	return needed
}

func (f FixedArray[T, S]) Read(src []byte, v *[]T) (int, error) {
	elems := make([]T, f.N)
	off := 0
	for i := 0; i < f.N; i++ {
		var elem T
		n, err := f.Elem.Read(src[off:], &elem)
		if err != nil {
			return 0, err
		}
		if off+n > len(src) {
			// Not enough data yet for this element; report a lower bound
			// so the caller grows its buffer and retries from scratch.
			return off + n, nil
		}
		elems[i] = elem
		off += n
	}
	*v = elems
	return off, nil
}
