package serial

// Pair, Triple, and Quad are the named tuple shapes Tuple2/Tuple3/Tuple4
// operate on. Go has no anonymous tuple type, so each arity gets its own
// concrete struct; composites with more members than four compose Tuple4
// values or, more commonly, implement Fields directly (see composite.go).
type Pair[A, B any] struct {
	First  A
	Second B
}

type Triple[A, B, C any] struct {
	First  A
	Second B
	Third  C
}

type Quad[A, B, C, D any] struct {
	First  A
	Second B
	Third  C
	Fourth D
}

// Tuple2 serializes a Pair[A, B] as the concatenation of its two members'
// encodings. IsEmpty holds iff every member is empty.
type Tuple2[A, B any, SA Serializer[A], SB Serializer[B]] struct {
	A SA
	B SB
}

func (t Tuple2[A, B, SA, SB]) SizeOf(v Pair[A, B]) int {
	return t.A.SizeOf(v.First) + t.B.SizeOf(v.Second)
}

func (t Tuple2[A, B, SA, SB]) IsEmpty(v Pair[A, B]) bool {
	return t.A.IsEmpty(v.First) && t.B.IsEmpty(v.Second)
}

func (t Tuple2[A, B, SA, SB]) Write(dst []byte, v Pair[A, B]) int {
	needed := t.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := t.A.Write(dst, v.First)
	off += t.B.Write(dst[off:], v.Second)
	return off
}

func (t Tuple2[A, B, SA, SB]) Read(src []byte, v *Pair[A, B]) (int, error) {
	var a A
	var b B
	n, err := t.A.Read(src, &a)
	if err != nil {
		return 0, err
	}
	if n > len(src) {
		return n, nil
	}
	m, err := t.B.Read(src[n:], &b)
	if err != nil {
		return 0, err
	}
	if n+m > len(src) {
		return n + m, nil
	}
	v.First, v.Second = a, b
	return n + m, nil
}

// Tuple3 serializes a Triple[A, B, C].
type Tuple3[A, B, C any, SA Serializer[A], SB Serializer[B], SC Serializer[C]] struct {
	A SA
	B SB
	C SC
}

func (t Tuple3[A, B, C, SA, SB, SC]) SizeOf(v Triple[A, B, C]) int {
	return t.A.SizeOf(v.First) + t.B.SizeOf(v.Second) + t.C.SizeOf(v.Third)
}

func (t Tuple3[A, B, C, SA, SB, SC]) IsEmpty(v Triple[A, B, C]) bool {
	return t.A.IsEmpty(v.First) && t.B.IsEmpty(v.Second) && t.C.IsEmpty(v.Third)
}

func (t Tuple3[A, B, C, SA, SB, SC]) Write(dst []byte, v Triple[A, B, C]) int {
	needed := t.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := t.A.Write(dst, v.First)
	off += t.B.Write(dst[off:], v.Second)
	off += t.C.Write(dst[off:], v.Third)
	return off
}

func (t Tuple3[A, B, C, SA, SB, SC]) Read(src []byte, v *Triple[A, B, C]) (int, error) {
	var a A
	var b B
	var c C
	off := 0
	n, err := t.A.Read(src[off:], &a)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	n, err = t.B.Read(src[off:], &b)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	n, err = t.C.Read(src[off:], &c)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	v.First, v.Second, v.Third = a, b, c
	return off, nil
}

// Tuple4 serializes a Quad[A, B, C, D].
type Tuple4[A, B, C, D any, SA Serializer[A], SB Serializer[B], SC Serializer[C], SD Serializer[D]] struct {
	A SA
	B SB
	C SC
	D SD
}

func (t Tuple4[A, B, C, D, SA, SB, SC, SD]) SizeOf(v Quad[A, B, C, D]) int {
	return t.A.SizeOf(v.First) + t.B.SizeOf(v.Second) + t.C.SizeOf(v.Third) + t.D.SizeOf(v.Fourth)
}

func (t Tuple4[A, B, C, D, SA, SB, SC, SD]) IsEmpty(v Quad[A, B, C, D]) bool {
	return t.A.IsEmpty(v.First) && t.B.IsEmpty(v.Second) && t.C.IsEmpty(v.Third) && t.D.IsEmpty(v.Fourth)
}

func (t Tuple4[A, B, C, D, SA, SB, SC, SD]) Write(dst []byte, v Quad[A, B, C, D]) int {
	needed := t.SizeOf(v)
	if len(dst) < needed {
		return needed
	}
	off := t.A.Write(dst, v.First)
	off += t.B.Write(dst[off:], v.Second)
	off += t.C.Write(dst[off:], v.Third)
	off += t.D.Write(dst[off:], v.Fourth)
	return off
}

func (t Tuple4[A, B, C, D, SA, SB, SC, SD]) Read(src []byte, v *Quad[A, B, C, D]) (int, error) {
	var a A
	var b B
	var c C
	var d D
	off := 0
	n, err := t.A.Read(src[off:], &a)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	n, err = t.B.Read(src[off:], &b)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	n, err = t.C.Read(src[off:], &c)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	n, err = t.D.Read(src[off:], &d)
	if err != nil {
		return 0, err
	}
	if off+n > len(src) {
		return off + n, nil
	}
	off += n
	v.First, v.Second, v.Third, v.Fourth = a, b, c, d
	return off, nil
}
