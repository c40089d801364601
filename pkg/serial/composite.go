package serial

import "github.com/freyja-labs/eventkv/pkg/storeerr"

// Field boxes one member of a composite type: a pointer to the member plus
// the serializer that knows how to size/test/encode/decode it. Composite
// types build a []Field from their own members' addresses; this is the
// entire accessor protocol a composite needs to participate in encoding.
type Field struct {
	sizeOf  func() int
	isEmpty func() bool
	write   func([]byte) int
	read    func([]byte) (int, error)
}

// NewField adapts a Serializer[F] and a pointer to a member of type F into a
// Field usable in a composite's member list.
func NewField[F any](ser Serializer[F], ptr *F) Field {
	return Field{
		sizeOf:  func() int { return ser.SizeOf(*ptr) },
		isEmpty: func() bool { return ser.IsEmpty(*ptr) },
		write:   func(dst []byte) int { return ser.Write(dst, *ptr) },
		read:    func(src []byte) (int, error) { return ser.Read(src, ptr) },
	}
}

func sizeOfFields(fields []Field) int {
	total := 0
	for _, f := range fields {
		total += f.sizeOf()
	}
	return total
}

func isEmptyFields(fields []Field) bool {
	for _, f := range fields {
		if !f.isEmpty() {
			return false
		}
	}
	return true
}

func writeFields(dst []byte, fields []Field) int {
	off := 0
	for _, f := range fields {
		off += f.write(dst[off:])
	}
	return off
}

func readFields(src []byte, fields []Field) (int, error) {
	off := 0
	for _, f := range fields {
		n, err := f.read(src[off:])
		if err != nil {
			return 0, err
		}
		if off+n > len(src) {
			return off + n, nil
		}
		off += n
	}
	return off, nil
}

// Fielder is implemented by *T for a user composite with a single, always-
// full member list: a tuple encoding of its declared members, in
// declared order.
type Fielder[T any] interface {
	*T
	Fields() []Field
}

// Struct serializes T by delegating to (*T).Fields(), encoding exactly the
// declared member list with no partial-mode header. This is the composite
// serializer for plain aggregate types, including keys and any value type
// that never opts into partial serialization.
type Struct[T any, PT Fielder[T]] struct{}

func (Struct[T, PT]) SizeOf(v T) int {
	return sizeOfFields(PT(&v).Fields())
}

func (Struct[T, PT]) IsEmpty(v T) bool {
	return isEmptyFields(PT(&v).Fields())
}

func (Struct[T, PT]) Write(dst []byte, v T) int {
	fields := PT(&v).Fields()
	needed := sizeOfFields(fields)
	if len(dst) < needed {
		return needed
	}
	return writeFields(dst, fields)
}

func (Struct[T, PT]) Read(src []byte, v *T) (int, error) {
	tmp := *v
	n, err := readFields(src, PT(&tmp).Fields())
	if err == nil && n <= len(src) {
		*v = tmp
	}
	return n, err
}

// Partial mode headers prefixing each non-snapshot event-log write.
const (
	modeHeaderFull    = 0x00
	modeHeaderPartial = 0x01
	modeHeaderNone    = 0x02
)

// PartialFielder is implemented by *T for a composite declaring both a full
// and a partial member list.
type PartialFielder[T any] interface {
	*T
	FullFields() []Field
	PartialFields() []Field
}

// PartialAwareSerializer is the extra surface a Serializer[T] may implement
// to opt into context-dependent (snapshot vs. event-log) encoding. pkg/store
// type-asserts for this interface when writing a value and falls back to
// the plain Serializer[T] methods (treated as always-full, header-less)
// when a V type doesn't implement it.
type PartialAwareSerializer[T any] interface {
	Serializer[T]
	SizeOfCtx(v T, ctx EncodeContext) int
	WriteCtx(dst []byte, v T, ctx EncodeContext) (needed int)
	ReadCtx(src []byte, v *T, ctx EncodeContext) (needed int, err error)
}

// Partial serializes T using FullFields() during snapshots (no header) and,
// on event-log writes, a one-byte mode header (full/partial/none) followed
// by whichever member list the EncodeContext selects. ForceFull and
// Snapshot are passed in explicitly via EncodeContext rather than read from
// thread-local or package-level state.
//
// Partial also implements the plain Serializer[T] interface, treating a
// context-free call as EncodeContext{} (non-snapshot, not forced full) —
// this lets a partial-aware type nest inside a Slice/Map/Tuple built from
// plain Serializer[T] values without every combinator needing to know
// about EncodeContext.
type Partial[T any, PT PartialFielder[T]] struct{}

func (Partial[T, PT]) fullFields(v *T) []Field    { return PT(v).FullFields() }
func (Partial[T, PT]) partialFields(v *T) []Field { return PT(v).PartialFields() }

// SizeOf reports the size Write (i.e. WriteCtx under Background()) would
// produce: a non-snapshot, non-forced encoding. It is deliberately NOT the
// full-member-list size, since SizeOf must stay consistent with what Write
// actually emits.
func (p Partial[T, PT]) SizeOf(v T) int {
	return p.SizeOfCtx(v, Background())
}

func (p Partial[T, PT]) IsEmpty(v T) bool {
	return isEmptyFields(p.fullFields(&v))
}

func (p Partial[T, PT]) Write(dst []byte, v T) int {
	return p.WriteCtx(dst, v, Background())
}

func (p Partial[T, PT]) Read(src []byte, v *T) (int, error) {
	return p.ReadCtx(src, v, Background())
}

// SizeOfCtx implements PartialAwareSerializer.
func (p Partial[T, PT]) SizeOfCtx(v T, ctx EncodeContext) int {
	if ctx.Snapshot {
		return sizeOfFields(p.fullFields(&v))
	}
	if p.IsEmpty(v) {
		return 1
	}
	if ctx.ForceFull {
		return 1 + sizeOfFields(p.fullFields(&v))
	}
	return 1 + sizeOfFields(p.partialFields(&v))
}

// WriteCtx implements PartialAwareSerializer.
func (p Partial[T, PT]) WriteCtx(dst []byte, v T, ctx EncodeContext) int {
	if ctx.Snapshot {
		fields := p.fullFields(&v)
		needed := sizeOfFields(fields)
		if len(dst) < needed {
			return needed
		}
		return writeFields(dst, fields)
	}

	empty := p.IsEmpty(v)
	var fields []Field
	var header byte
	switch {
	case empty:
		header = modeHeaderNone
		fields = nil
	case ctx.ForceFull:
		header = modeHeaderFull
		fields = p.fullFields(&v)
	default:
		header = modeHeaderPartial
		fields = p.partialFields(&v)
	}

	needed := 1 + sizeOfFields(fields)
	if len(dst) < needed {
		return needed
	}
	dst[0] = header
	writeFields(dst[1:], fields)
	return needed
}

// ReadCtx implements PartialAwareSerializer.
func (p Partial[T, PT]) ReadCtx(src []byte, v *T, ctx EncodeContext) (int, error) {
	tmp := *v
	if ctx.Snapshot {
		n, err := readFields(src, p.fullFields(&tmp))
		if err == nil && n <= len(src) {
			*v = tmp
		}
		return n, err
	}

	if len(src) < 1 {
		return 1, nil
	}
	switch src[0] {
	case modeHeaderFull:
		n, err := readFields(src[1:], p.fullFields(&tmp))
		if err != nil {
			return 0, err
		}
		if 1+n > len(src) {
			return 1 + n, nil
		}
		*v = tmp
		return 1 + n, nil
	case modeHeaderPartial:
		n, err := readFields(src[1:], p.partialFields(&tmp))
		if err != nil {
			return 0, err
		}
		if 1+n > len(src) {
			return 1 + n, nil
		}
		*v = tmp
		return 1 + n, nil
	case modeHeaderNone:
		var zero T
		*v = zero
		return 1, nil
	default:
		return 0, storeerr.ErrDecode
	}
}
