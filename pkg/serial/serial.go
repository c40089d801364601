// Package serial is the serialization framework: a trait-style dispatch
// mechanism that maps Go values to a canonical big-endian byte layout and
// back. Each concrete wire type gets its own Serializer implementation
// selected entirely by its type parameter — no vtables, no runtime
// polymorphism, dispatch resolved at compile time.
//
// Every Serializer implementation follows the same sentinel-return
// contract: Write and Read always report the number of bytes the
// operation needs. If the destination/source slice is shorter than that,
// nothing is written/read and the caller is expected to grow its buffer
// (or, on the write side, flush a frame) and retry. Raising an error from
// Write/Read is reserved for decode-time corruption (Read only), never for
// "buffer too small".
package serial

// Serializer is implemented once per concrete type T. All four methods must
// be pure with respect to their inputs: SizeOf and IsEmpty never mutate v,
// Write never mutates dst beyond the prefix it reports needing, Read never
// mutates v unless the full needed length was available.
type Serializer[T any] interface {
	// SizeOf returns the exact number of bytes v would occupy on the wire.
	SizeOf(v T) int

	// IsEmpty reports whether v is the canonical "empty" value for T: the
	// tombstone sentinel event logs use to denote deletion, and the
	// predicate snapshots use to elide a key entirely.
	IsEmpty(v T) bool

	// Write reports the number of bytes required to encode v. If
	// len(dst) >= needed, v is encoded into dst[:needed]; otherwise dst is
	// left untouched.
	Write(dst []byte, v T) (needed int)

	// Read reports the number of bytes required to decode a T. If
	// len(src) >= needed, *v is populated from src[:needed]; otherwise *v
	// is left untouched. A malformed encoding (bad VarUint, invalid sum
	// discriminant, length field over its cap) returns a storeerr.ErrDecode
	// via the err return instead of a needed count.
	Read(src []byte, v *T) (needed int, err error)
}

// EncodeContext carries the two flags that select a composite type's
// member list during encoding: whether a snapshot is in progress and
// whether the full member list is being forced on an event-log write. It is
// threaded explicitly through Write/Read calls rather than held as package-
// or goroutine-local state, so concurrent unrelated Stores never perturb
// each other's partial selection.
type EncodeContext struct {
	// Snapshot is true while a snapshot is being written or replayed. Types
	// implementing PartialAwareSerializer always use their full member list
	// under Snapshot, and omit the per-record mode header byte.
	Snapshot bool

	// ForceFull overrides partial-mode selection on event-log writes when
	// Snapshot is false: the type's full member list is used but the
	// mode header is still emitted (header value 0x00).
	ForceFull bool
}

// Background returns the zero-value EncodeContext: not snapshotting, not
// forcing the full member list. This is the context ordinary event-log
// writes and reads use.
func Background() EncodeContext {
	return EncodeContext{}
}

// WithSnapshot returns a copy of ctx with Snapshot set, for use around
// snapshot writes and snapshot replay.
func (ctx EncodeContext) WithSnapshot(snapshot bool) EncodeContext {
	ctx.Snapshot = snapshot
	return ctx
}

// WithForceFull returns a copy of ctx with ForceFull set.
func (ctx EncodeContext) WithForceFull(forceFull bool) EncodeContext {
	ctx.ForceFull = forceFull
	return ctx
}
