package serial

import "github.com/freyja-labs/eventkv/pkg/storeerr"

// maxAlternatives is the limit a one-byte discriminant imposes: a sum type
// can distinguish at most 256 alternatives.
const maxAlternatives = 256

// AltCodec adapts a concrete Serializer[T] to operate on boxed values, since
// Go generics cannot express "one of these N different types" as a single
// type parameter. NewAltCodec constructs one from any Serializer[T].
type AltCodec struct {
	sizeOf  func(any) int
	isEmpty func(any) bool
	write   func([]byte, any) int
	read    func([]byte) (any, int, error)
}

// NewAltCodec boxes a concrete Serializer[T] as an AltCodec usable as one
// alternative of a Sum.
func NewAltCodec[T any](ser Serializer[T]) AltCodec {
	return AltCodec{
		sizeOf: func(v any) int { return ser.SizeOf(v.(T)) },
		isEmpty: func(v any) bool {
			t, ok := v.(T)
			if !ok {
				return true
			}
			return ser.IsEmpty(t)
		},
		write: func(dst []byte, v any) int { return ser.Write(dst, v.(T)) },
		read: func(src []byte) (any, int, error) {
			var t T
			n, err := ser.Read(src, &t)
			return t, n, err
		},
	}
}

// Variant is a sum-type value: Tag selects which of Alts describes Value.
type Variant struct {
	Tag   uint8
	Value any
}

// Sum serializes a Variant as a one-byte discriminant followed by the
// encoding of the selected alternative. len(Alts) must not exceed
// maxAlternatives; NewSum panics otherwise, since that is a programmer error
// caught at construction, not a runtime decode failure.
type Sum struct {
	Alts []AltCodec
}

// NewSum constructs a Sum over the given alternatives, indexed by position
// (alternative i has discriminant byte i).
func NewSum(alts ...AltCodec) Sum {
	if len(alts) > maxAlternatives {
		panic("serial: sum type has more than 256 alternatives")
	}
	return Sum{Alts: alts}
}

func (s Sum) SizeOf(v Variant) int {
	return 1 + s.Alts[v.Tag].sizeOf(v.Value)
}

// IsEmpty holds iff the currently held alternative's value is empty.
func (s Sum) IsEmpty(v Variant) bool {
	if int(v.Tag) >= len(s.Alts) {
		return true
	}
	return s.Alts[v.Tag].isEmpty(v.Value)
}

func (s Sum) Write(dst []byte, v Variant) int {
	alt := s.Alts[v.Tag]
	needed := 1 + alt.sizeOf(v.Value)
	if len(dst) < needed {
		return needed
	}
	dst[0] = v.Tag
	alt.write(dst[1:], v.Value)
	return needed
}

func (s Sum) Read(src []byte, v *Variant) (int, error) {
	if len(src) < 1 {
		return 1, nil
	}
	tag := src[0]
	if int(tag) >= len(s.Alts) {
		return 0, storeerr.ErrDecode
	}
	value, n, err := s.Alts[tag].read(src[1:])
	if err != nil {
		return 0, err
	}
	if 1+n > len(src) {
		return 1 + n, nil
	}
	v.Tag = tag
	v.Value = value
	return 1 + n, nil
}
