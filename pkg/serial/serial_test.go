package serial

import (
	"net/netip"
	"testing"

	"github.com/freyja-labs/eventkv/pkg/storeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// roundTrip writes v with ser into a buffer sized exactly to SizeOf, then
// reads it back, asserting that Write and Read agree on the exact byte
// count and that decoding reproduces the original value.
func roundTrip[T any](t *testing.T, ser Serializer[T], v T) T {
	t.Helper()
	size := ser.SizeOf(v)

	buf := make([]byte, size)
	n := ser.Write(buf, v)
	require.Equal(t, size, n)

	var got T
	rn, err := ser.Read(buf, &got)
	require.NoError(t, err)
	require.Equal(t, size, rn)
	return got
}

func TestUint32Endianness(t *testing.T) {
	dst := make([]byte, 4)
	Uint32{}.Write(dst, 0x01020304)
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04}, dst)
}

func TestIntegerRoundTrip(t *testing.T) {
	assert.Equal(t, uint8(42), roundTrip[uint8](t, Uint8{}, 42))
	assert.Equal(t, int8(-42), roundTrip[int8](t, Int8{}, -42))
	assert.Equal(t, uint16(0xBEEF), roundTrip[uint16](t, Uint16{}, 0xBEEF))
	assert.Equal(t, int16(-1234), roundTrip[int16](t, Int16{}, -1234))
	assert.Equal(t, uint32(0xDEADBEEF), roundTrip[uint32](t, Uint32{}, 0xDEADBEEF))
	assert.Equal(t, int32(-99999), roundTrip[int32](t, Int32{}, -99999))
	assert.Equal(t, uint64(0x0102030405060708), roundTrip[uint64](t, Uint64{}, 0x0102030405060708))
	assert.Equal(t, int64(-123456789012), roundTrip[int64](t, Int64{}, -123456789012))
}

func TestIntegerWriteTooSmallBufferIsNoop(t *testing.T) {
	dst := []byte{0xFF, 0xFF, 0xFF, 0xFF}
	n := Uint32{}.Write(dst[:2], 0x01020304)
	assert.Equal(t, 4, n)
	// dst untouched since the slice we passed was too small.
	assert.Equal(t, []byte{0xFF, 0xFF}, dst[:2])
}

func TestIsEmptyOfZeroValue(t *testing.T) {
	assert.True(t, Uint8{}.IsEmpty(0))
	assert.True(t, Uint64{}.IsEmpty(0))
	assert.True(t, VarUint[uint32]{}.IsEmpty(0))
	assert.True(t, Bytes{}.IsEmpty(nil))
	assert.True(t, Slice[uint8, Uint8]{}.IsEmpty(nil))
	assert.False(t, Uint8{}.IsEmpty(1))
}

func TestVarUintRoundTrip(t *testing.T) {
	vu := VarUint[uint64]{}
	for _, v := range []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<63 - 1, ^uint64(0)} {
		got := roundTrip[uint64](t, vu, v)
		assert.Equal(t, v, got)
	}
}

func TestVarUintZeroIsOneByte(t *testing.T) {
	vu := VarUint[uint32]{}
	buf := make([]byte, vu.SizeOf(0))
	vu.Write(buf, 0)
	assert.Equal(t, []byte{0x00}, buf)
}

func TestVarUintOverflowByteCount(t *testing.T) {
	// A uint8 VarUint may span at most ceil((8+6)/7) = 2 bytes. A three-byte
	// stream (two continuation bytes, then a terminator) must be rejected.
	vu := VarUint[uint8]{}
	stream := []byte{0xFF, 0xFF, 0x01}
	var v uint8
	_, err := vu.Read(stream, &v)
	assert.ErrorIs(t, err, storeerr.ErrDecode)
}

func TestVarUintOverflowMagnitude(t *testing.T) {
	// uint8 max is 255; encode a value requiring more bits than fit.
	vu := VarUint[uint8]{}
	// 0x80, 0x02 decodes to (0x00 | 0x02<<7) = 256, which overflows uint8.
	stream := []byte{0x80, 0x02}
	var v uint8
	_, err := vu.Read(stream, &v)
	assert.Error(t, err)
}

func TestFixedBytesRoundTrip(t *testing.T) {
	fb := FixedBytes{N: 4}
	got := roundTrip[[]byte](t, fb, []byte{1, 2, 3, 4})
	assert.Equal(t, []byte{1, 2, 3, 4}, got)
	assert.True(t, fb.IsEmpty([]byte{0, 0, 0, 0}))
	assert.False(t, fb.IsEmpty([]byte{0, 0, 0, 1}))
}

func TestBytesRoundTrip(t *testing.T) {
	got := roundTrip[[]byte](t, Bytes{}, []byte("hello world"))
	assert.Equal(t, []byte("hello world"), got)

	empty := roundTrip[[]byte](t, Bytes{}, nil)
	assert.Empty(t, empty)
}

func TestStringRoundTrip(t *testing.T) {
	got := roundTrip[string](t, String{}, "hello world")
	assert.Equal(t, "hello world", got)

	empty := roundTrip[string](t, String{}, "")
	assert.Equal(t, "", empty)
	assert.True(t, String{}.IsEmpty(""))
}

func TestSliceRoundTrip(t *testing.T) {
	ser := Slice[uint32, Uint32]{}
	in := []uint32{1, 2, 3, 4, 5}
	got := roundTrip[[]uint32](t, ser, in)
	assert.Equal(t, in, got)
}

func TestMapRoundTrip(t *testing.T) {
	ser := Map[uint32, []byte, Uint32, Bytes]{}
	in := map[uint32][]byte{1: []byte("a"), 2: []byte("bb"), 3: []byte("ccc")}
	got := roundTrip[map[uint32][]byte](t, ser, in)
	assert.Equal(t, in, got)
}

func TestSetRoundTrip(t *testing.T) {
	ser := Set[uint32, Uint32]{}
	in := map[uint32]struct{}{1: {}, 2: {}, 3: {}}
	got := roundTrip[map[uint32]struct{}](t, ser, in)
	assert.Equal(t, in, got)
}

func TestTuple2RoundTrip(t *testing.T) {
	ser := Tuple2[uint32, []byte, Uint32, Bytes]{}
	in := Pair[uint32, []byte]{First: 7, Second: []byte("value")}
	got := roundTrip[Pair[uint32, []byte]](t, ser, in)
	assert.Equal(t, in, got)
}

func TestTupleIsEmptyRequiresAllMembersEmpty(t *testing.T) {
	ser := Tuple2[uint32, []byte, Uint32, Bytes]{}
	assert.True(t, ser.IsEmpty(Pair[uint32, []byte]{}))
	assert.False(t, ser.IsEmpty(Pair[uint32, []byte]{First: 1}))
	assert.False(t, ser.IsEmpty(Pair[uint32, []byte]{Second: []byte("x")}))
}

func TestSumRoundTrip(t *testing.T) {
	sum := NewSum(NewAltCodec[uint32](Uint32{}), NewAltCodec[[]byte](Bytes{}))

	v1 := Variant{Tag: 0, Value: uint32(99)}
	got1 := roundTrip[Variant](t, sum, v1)
	assert.Equal(t, uint32(99), got1.Value)

	v2 := Variant{Tag: 1, Value: []byte("payload")}
	got2 := roundTrip[Variant](t, sum, v2)
	assert.Equal(t, []byte("payload"), got2.Value)
}

func TestSumInvalidDiscriminant(t *testing.T) {
	sum := NewSum(NewAltCodec[uint32](Uint32{}))
	var v Variant
	_, err := sum.Read([]byte{0x05}, &v)
	assert.Error(t, err)
}

func TestIPAddrRoundTrip(t *testing.T) {
	v4 := netip.MustParseAddr("192.0.2.1")
	got := roundTrip[netip.Addr](t, IPAddr{}, v4)
	assert.Equal(t, v4, got)

	v6 := netip.MustParseAddr("2001:db8::1")
	got6 := roundTrip[netip.Addr](t, IPAddr{}, v6)
	assert.Equal(t, v6, got6)

	assert.True(t, IPAddr{}.IsEmpty(netip.Addr{}))
}

func TestIPEndpointRoundTrip(t *testing.T) {
	ep := netip.MustParseAddrPort("192.0.2.1:8080")
	got := roundTrip[netip.AddrPort](t, IPEndpoint{}, ep)
	assert.Equal(t, ep, got)
}

// exampleRecord exercises the composite protocol: a full member list of
// {ID, Heavy, Counter} and a cheaper partial member list of {ID, Counter}
// for frequent, low-churn updates that don't need to rewrite Heavy.
type exampleRecord struct {
	ID      uint32
	Heavy   []byte
	Counter uint32
}

func (r *exampleRecord) FullFields() []Field {
	return []Field{
		NewField[uint32](Uint32{}, &r.ID),
		NewField[[]byte](Bytes{}, &r.Heavy),
		NewField[uint32](Uint32{}, &r.Counter),
	}
}

func (r *exampleRecord) PartialFields() []Field {
	return []Field{
		NewField[uint32](Uint32{}, &r.ID),
		NewField[uint32](Uint32{}, &r.Counter),
	}
}

func TestPartialCompositeSnapshotUsesFullNoHeader(t *testing.T) {
	ser := Partial[exampleRecord, *exampleRecord]{}
	rec := exampleRecord{ID: 1, Heavy: []byte("X"), Counter: 5}

	ctx := Background().WithSnapshot(true)
	buf := make([]byte, 64)
	n := ser.WriteCtx(buf, rec, ctx)

	var got exampleRecord
	rn, err := ser.ReadCtx(buf[:n], &got, ctx)
	require.NoError(t, err)
	assert.Equal(t, n, rn)
	assert.Equal(t, rec, got)
}

func TestPartialCompositeEventWriteDefaultsToPartial(t *testing.T) {
	ser := Partial[exampleRecord, *exampleRecord]{}
	rec := exampleRecord{ID: 1, Heavy: []byte("X"), Counter: 5}

	ctx := Background() // not snapshotting, not forcing full
	buf := make([]byte, 64)
	n := ser.WriteCtx(buf, rec, ctx)
	require.Equal(t, byte(0x01), buf[0], "partial mode header expected")

	var got exampleRecord
	_, err := ser.ReadCtx(buf[:n], &got, ctx)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Counter, got.Counter)
	assert.Empty(t, got.Heavy, "partial write must not carry Heavy")
}

func TestPartialCompositeForceFull(t *testing.T) {
	ser := Partial[exampleRecord, *exampleRecord]{}
	rec := exampleRecord{ID: 1, Heavy: []byte("X"), Counter: 5}

	ctx := Background().WithForceFull(true)
	buf := make([]byte, 64)
	n := ser.WriteCtx(buf, rec, ctx)
	require.Equal(t, byte(0x00), buf[0])

	var got exampleRecord
	_, err := ser.ReadCtx(buf[:n], &got, ctx)
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestPartialCompositeEmptyValueUsesNoneHeader(t *testing.T) {
	ser := Partial[exampleRecord, *exampleRecord]{}
	var rec exampleRecord // zero value must be IsEmpty

	ctx := Background()
	buf := make([]byte, 8)
	n := ser.WriteCtx(buf, rec, ctx)
	require.Equal(t, 1, n)
	assert.Equal(t, byte(0x02), buf[0])
}

// plainRecord exercises Struct: a composite with a single, always-full
// member list and no partial-mode header.
type plainRecord struct {
	A uint32
	B []byte
}

func (r *plainRecord) Fields() []Field {
	return []Field{
		NewField[uint32](Uint32{}, &r.A),
		NewField[[]byte](Bytes{}, &r.B),
	}
}

func TestStructComposite(t *testing.T) {
	ser := Struct[plainRecord, *plainRecord]{}
	in := plainRecord{A: 7, B: []byte("members")}
	got := roundTrip[plainRecord](t, ser, in)
	assert.Equal(t, in, got)
	assert.True(t, ser.IsEmpty(plainRecord{}))
	assert.False(t, ser.IsEmpty(in))
}
