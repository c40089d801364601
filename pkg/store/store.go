// Package store implements the Store state machine: an in-memory map
// mirrored to an append-only event log plus periodic snapshots, so the map
// can be deterministically reconstructed after a crash or clean restart.
//
// A Store is single-owner and holds no internal lock: every exported
// method except the background cleanup goroutine spawned by AsyncClear
// must be called from one logical owner. Concurrent calls from multiple
// goroutines are not safe.
package store

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/freyja-labs/eventkv/pkg/frame"
	"github.com/freyja-labs/eventkv/pkg/serial"
	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

const (
	defaultBufferSize = 512 * 1024
	maxBufferSize     = 512 * 1024 * 1024
)

// Config configures a new Store. KeySer and ValSer must be non-nil; if
// ValSer also implements serial.PartialAwareSerializer, the Store uses the
// context-aware WriteCtx/ReadCtx/SizeOfCtx methods so V can opt into
// partial serialization on event-log writes.
type Config[K comparable, V any] struct {
	Dir        string
	Flags      Flags
	BufferSize int
	ForceCRC32 bool
	KeySer     serial.Serializer[K]
	ValSer     serial.Serializer[V]
	Logger     *slog.Logger
}

// Store is the generic key-value store state machine, parameterized over a
// comparable key type K and a value type V. The in-memory map is Go's
// built-in map[K]V, which stands in directly for the associative-container
// type parameter: Go has no need for a separate abstraction here.
type Store[K comparable, V any] struct {
	dir        string
	flags      Flags
	forceCRC32 bool
	initBufLen int

	keySer serial.Serializer[K]
	valSer serial.Serializer[V]
	valCtx serial.PartialAwareSerializer[V] // non-nil iff ValSer opts into partial mode

	objects    map[K]V
	generation uint64
	loaded     bool

	buf []byte
	pos int

	file   *os.File
	writer *frame.Writer

	logger *slog.Logger
}

// New constructs a Store over dir according to cfg, resolving the
// directory and loading existing state unless Flags has DeferLoad set.
func New[K comparable, V any](cfg Config[K, V]) (*Store[K, V], error) {
	if cfg.KeySer == nil || cfg.ValSer == nil {
		return nil, storeerr.Wrap(storeerr.ErrConfig, "KeySer and ValSer are required")
	}

	bufSize := cfg.BufferSize
	if bufSize == 0 {
		bufSize = defaultBufferSize
	}
	if bufSize < 1 || bufSize > maxBufferSize {
		return nil, storeerr.Wrapf(storeerr.ErrConfig, "buffer size %d out of range [1, %d]", bufSize, maxBufferSize)
	}

	var zero V
	if !cfg.ValSer.IsEmpty(zero) {
		return nil, storeerr.Wrap(storeerr.ErrConfig, "default-constructed value must satisfy IsEmpty")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Store[K, V]{
		dir:        cfg.Dir,
		flags:      cfg.Flags,
		forceCRC32: cfg.ForceCRC32,
		initBufLen: bufSize,
		keySer:     cfg.KeySer,
		valSer:     cfg.ValSer,
		objects:    make(map[K]V),
		buf:        make([]byte, bufSize),
		logger:     logger.With("dir", cfg.Dir),
	}
	if pa, ok := cfg.ValSer.(serial.PartialAwareSerializer[V]); ok {
		s.valCtx = pa
	}

	if err := s.resolveDir(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store[K, V]) resolveDir() error {
	info, err := os.Stat(s.dir)
	switch {
	case err == nil && !info.IsDir():
		return storeerr.Wrap(storeerr.ErrPathNotDirectory, s.dir)

	case err == nil: // directory exists
		if s.flags.Has(DeleteData) {
			if err := removeDataFiles(s.dir); err != nil {
				return err
			}
			return s.Load()
		}
		if !s.flags.Has(DeferLoad) {
			return s.Load()
		}
		return nil

	case os.IsNotExist(err):
		if !s.flags.Has(CreateDir) {
			return storeerr.Wrap(storeerr.ErrDirectoryMissing, s.dir)
		}
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return storeerr.Wrapf(storeerr.ErrDirectoryCreateFailed, "mkdir %q", s.dir)
		}
		return s.Load()

	default:
		return storeerr.Wrapf(storeerr.ErrIoOpen, "stat %q", s.dir)
	}
}

// valueIsEmpty reports whether v is V's canonical empty (tombstone) value.
func (s *Store[K, V]) valueIsEmpty(v V) bool {
	return s.valSer.IsEmpty(v)
}

func (s *Store[K, V]) valueSizeOf(v V, ctx serial.EncodeContext) int {
	if s.valCtx != nil {
		return s.valCtx.SizeOfCtx(v, ctx)
	}
	return s.valSer.SizeOf(v)
}

func (s *Store[K, V]) valueWrite(dst []byte, v V, ctx serial.EncodeContext) int {
	if s.valCtx != nil {
		return s.valCtx.WriteCtx(dst, v, ctx)
	}
	return s.valSer.Write(dst, v)
}

func (s *Store[K, V]) valueRead(src []byte, v *V, ctx serial.EncodeContext) (int, error) {
	if s.valCtx != nil {
		return s.valCtx.ReadCtx(src, v, ctx)
	}
	return s.valSer.Read(src, v)
}

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Load runs the load() algorithm: restore from the latest snapshot (if
// any) and replay event files with generation at or above it in order. The
// current generation's event log is not opened here; the first write opens
// it for append (see ensureEventFile). If a construction
// flag already triggered an automatic load, calling Load again is a no-op
// error (ErrConfig) to avoid silently discarding in-memory state — callers
// using DeferLoad are expected to call it exactly once.
func (s *Store[K, V]) Load() error {
	defer observeDuration(s.dir, "load", time.Now())

	if s.loaded {
		return storeerr.Wrap(storeerr.ErrConfig, "store already loaded")
	}

	gs := uint64(0)
	snap, ok, err := latestSnapshot(s.dir)
	if err != nil {
		recordOp(s.dir, "load", false)
		return err
	}
	if ok {
		if err := s.replaySnapshot(snap.path); err != nil {
			recordOp(s.dir, "load", false)
			return err
		}
		gs = snap.gen
	}

	eventFiles, err := scanGenFiles(s.dir, eventsExt)
	if err != nil {
		recordOp(s.dir, "load", false)
		return err
	}

	corrupted := false
	expected := gs
	lastGen := gs
	for _, ef := range eventFiles {
		if ef.gen < gs {
			continue
		}
		if ef.gen != expected {
			corrupted = true
			s.logger.Warn("event file generation gap during load", "expected", expected, "found", ef.gen)
		}
		ok, err := s.replayEventFile(ef.path)
		if err != nil {
			recordOp(s.dir, "load", false)
			return err
		}
		if !ok {
			corrupted = true
			corruptionEvents.WithLabelValues(s.dir).Inc()
			continue
		}
		lastGen = ef.gen
		expected = ef.gen + 1
	}

	s.generation = lastGen
	s.loaded = true

	if corrupted {
		s.logger.Warn("corruption detected during load, writing a clean snapshot", "generation", s.generation)
		if err := s.Save(SyncSave); err != nil {
			recordOp(s.dir, "load", false)
			return storeerr.Wrap(err, "snapshot after corrupted load")
		}
	}

	recordOp(s.dir, "load", true)
	return nil
}

// replaySnapshot restores objects from snap, under Snapshot=true. Any
// failure is fatal: there is no earlier generation to fall back to.
func (s *Store[K, V]) replaySnapshot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return storeerr.Wrapf(storeerr.ErrCorruptSnapshot, "open snapshot %q", path)
	}
	defer f.Close()

	r := frame.NewReader(f)
	ctx := serial.Background().WithSnapshot(true)
	objects := make(map[K]V)
	for {
		payload, err := r.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			return storeerr.Wrapf(storeerr.ErrCorruptSnapshot, "replay snapshot %q", path)
		}
		seed := func(K) V { var zero V; return zero }
		if err := decodePayload(payload, func(k K, v V) {
			if !s.valueIsEmpty(v) {
				objects[k] = v
			}
		}, s.keySer, seed, s.valRead(ctx)); err != nil {
			return storeerr.Wrapf(storeerr.ErrCorruptSnapshot, "decode snapshot %q", path)
		}
	}
	s.objects = objects
	return nil
}

// replayEventFile replays ef's frames into s.objects under Background()
// (non-snapshot). It returns ok=false if the file was corrupt, in which
// case the file has already been unlinked.
func (s *Store[K, V]) replayEventFile(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, storeerr.Wrapf(storeerr.ErrIoOpen, "open event file %q", path)
	}

	r := frame.NewReader(f)
	ctx := serial.Background()
	corrupt := false
	for {
		payload, err := r.ReadFrame()
		if err == io.EOF {
			break
		}
		if err != nil {
			corrupt = true
			break
		}
		// seed merges a partial-mode record into whatever value is already
		// in the map (from an earlier snapshot or event), so fields outside
		// the partial member list keep their last known value.
		seed := func(k K) V { return s.objects[k] }
		if err := decodePayload(payload, func(k K, v V) {
			if s.valueIsEmpty(v) {
				delete(s.objects, k)
			} else {
				s.objects[k] = v
			}
		}, s.keySer, seed, s.valRead(ctx)); err != nil {
			corrupt = true
			break
		}
	}
	f.Close()

	if corrupt {
		_ = os.Remove(path)
		s.logger.Warn("removed corrupt event file", "path", path)
		return false, nil
	}
	return true, nil
}

// valRead adapts the Store's value-reading behavior into the closure shape
// decodePayload expects, fixing the EncodeContext for one replay pass.
func (s *Store[K, V]) valRead(ctx serial.EncodeContext) func([]byte, *V) (int, error) {
	return func(src []byte, v *V) (int, error) {
		return s.valueRead(src, v, ctx)
	}
}

// decodePayload decodes a frame payload as a sequence of (K,V) records,
// invoking apply for each. seed supplies the starting value a record's V is
// decoded into — the zero value for snapshot replay, or the key's current
// in-memory value for event replay, so a partial-mode record only
// overwrites the fields its member list names and leaves the rest alone. A
// truncated record inside an already checksum-validated payload is itself
// a corruption signal.
func decodePayload[K comparable, V any](payload []byte, apply func(K, V), keySer serial.Serializer[K], seed func(K) V, valRead func([]byte, *V) (int, error)) error {
	off := 0
	for off < len(payload) {
		var k K
		n, err := keySer.Read(payload[off:], &k)
		if err != nil {
			return err
		}
		if off+n > len(payload) {
			return storeerr.ErrDecode
		}
		off += n

		v := seed(k)
		m, err := valRead(payload[off:], &v)
		if err != nil {
			return err
		}
		if off+m > len(payload) {
			return storeerr.ErrDecode
		}
		off += m

		apply(k, v)
	}
	return nil
}

// ensureEventFile lazily opens the .events file for the current generation
// in append mode, the first time a write needs it. A generation with no
// mutations since its snapshot was written never gets an on-disk .events
// file at all.
func (s *Store[K, V]) ensureEventFile() error {
	if s.writer != nil {
		return nil
	}
	path := eventsPath(s.dir, s.generation)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return storeerr.Wrapf(storeerr.ErrIoOpen, "open event file %q", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return storeerr.Wrapf(storeerr.ErrIoOpen, "stat event file %q", path)
	}
	s.file = f
	s.writer = frame.NewWriter(f, info.Size(), s.forceCRC32)
	return nil
}

// closeEventFile flushes any pending frame and closes the current event
// file handle.
func (s *Store[K, V]) closeEventFile() error {
	if s.file == nil {
		return nil
	}
	if s.pos > 0 {
		if err := s.flushFrame(); err != nil {
			return err
		}
	}
	err := s.file.Close()
	s.file = nil
	s.writer = nil
	if err != nil {
		return storeerr.Wrap(storeerr.ErrIoClose, "close event file")
	}
	return nil
}

// flushFrame emits the accumulated payload buffer as a single frame and
// resets the write offset.
func (s *Store[K, V]) flushFrame() error {
	if _, err := s.writer.WriteFrame(s.buf[:s.pos]); err != nil {
		return err
	}
	framesWritten.WithLabelValues(s.dir, "event").Inc()
	s.pos = 0
	return nil
}

// appendRecord writes (k,v) into the payload buffer, finalizing and
// growing across frame boundaries as needed, matching the framed writer's
// sentinel-driven growth contract.
func (s *Store[K, V]) appendRecord(ctx serial.EncodeContext, k K, v V) error {
	if err := s.ensureEventFile(); err != nil {
		return err
	}
	for {
		need := s.keySer.SizeOf(k) + s.valueSizeOf(v, ctx)
		if s.pos+need <= len(s.buf) {
			n := s.keySer.Write(s.buf[s.pos:], k)
			s.pos += n
			n = s.valueWrite(s.buf[s.pos:], v, ctx)
			s.pos += n
			return nil
		}

		if s.pos > 0 {
			if err := s.flushFrame(); err != nil {
				return err
			}
		}

		grown := nextPow2(need)
		if grown > maxBufferSize {
			return storeerr.Wrapf(storeerr.ErrIoWrite, "record of %d bytes exceeds max buffer size %d", need, maxBufferSize)
		}
		if grown > len(s.buf) {
			s.buf = make([]byte, grown)
		}
	}
}

// Update writes (k,v) to the event log, then applies it to the in-memory
// map. An empty v is accepted and recorded as a deletion.
func (s *Store[K, V]) Update(k K, v V) error {
	if !s.loaded {
		return storeerr.ErrNotLoaded
	}
	if err := s.appendRecord(serial.Background(), k, v); err != nil {
		recordOp(s.dir, "update", false)
		return err
	}
	if s.valueIsEmpty(v) {
		delete(s.objects, k)
	} else {
		s.objects[k] = v
	}
	keysTotal.WithLabelValues(s.dir).Set(float64(len(s.objects)))
	recordOp(s.dir, "update", true)
	return nil
}

// Erase removes k, writing a tombstone to the event log. Absent keys are a
// no-op.
func (s *Store[K, V]) Erase(k K) error {
	if !s.loaded {
		return storeerr.ErrNotLoaded
	}
	if _, ok := s.objects[k]; !ok {
		return nil
	}
	var empty V
	if err := s.appendRecord(serial.Background(), k, empty); err != nil {
		recordOp(s.dir, "erase", false)
		return err
	}
	delete(s.objects, k)
	keysTotal.WithLabelValues(s.dir).Set(float64(len(s.objects)))
	recordOp(s.dir, "erase", true)
	return nil
}

// Get returns the value for k and whether it is present.
func (s *Store[K, V]) Get(k K) (V, bool) {
	v, ok := s.objects[k]
	return v, ok
}

// Find is an alias for Get.
func (s *Store[K, V]) Find(k K) (V, bool) {
	return s.Get(k)
}

// Range calls fn for every entry in the in-memory map, in Go's randomized
// map order. Mutating objects[k] directly during Range is not logged; call
// Persist(k) afterward to record the current value.
func (s *Store[K, V]) Range(fn func(k K, v V) bool) {
	for k, v := range s.objects {
		if !fn(k, v) {
			return
		}
	}
}

// Persist writes the current in-memory value for k to the event log,
// re-establishing durability for a direct (unlogged) mutation made via
// Range. A missing key is a no-op.
func (s *Store[K, V]) Persist(k K) error {
	v, ok := s.objects[k]
	if !ok {
		return nil
	}
	return s.appendRecord(serial.Background(), k, v)
}

// Flush emits any buffered payload as a frame. If sync is true, the
// underlying file is durably committed (fsync); otherwise the write is
// only pushed out of the in-process buffer.
func (s *Store[K, V]) Flush(sync bool) error {
	if !s.loaded {
		return storeerr.ErrNotLoaded
	}
	if s.pos > 0 {
		if err := s.flushFrame(); err != nil {
			return err
		}
	}
	if s.writer == nil {
		return nil
	}
	if sync {
		return s.writer.Sync()
	}
	return s.writer.Flush()
}

// Clear empties the in-memory map and immediately writes a synchronous
// snapshot at generation+1, collapsing all prior history.
func (s *Store[K, V]) Clear() error {
	if !s.loaded {
		return storeerr.ErrNotLoaded
	}
	s.objects = make(map[K]V)
	keysTotal.WithLabelValues(s.dir).Set(0)
	return s.Save(SyncSave)
}

// SetBufferSize flushes any pending frame, then resizes the payload
// buffer.
func (s *Store[K, V]) SetBufferSize(n int) error {
	if n < 1 || n > maxBufferSize {
		return storeerr.Wrapf(storeerr.ErrConfig, "buffer size %d out of range [1, %d]", n, maxBufferSize)
	}
	if s.pos > 0 {
		if err := s.flushFrame(); err != nil {
			return err
		}
	}
	s.initBufLen = n
	s.buf = make([]byte, n)
	return nil
}

// Generation returns the Store's current generation number.
func (s *Store[K, V]) Generation() uint64 {
	return s.generation
}

// Loaded reports whether Load has completed successfully.
func (s *Store[K, V]) Loaded() bool {
	return s.loaded
}

// Stats summarizes the current in-memory state of a Store.
type Stats struct {
	Keys       int
	Generation uint64
}

// Stats returns a point-in-time summary of the Store.
func (s *Store[K, V]) Stats() Stats {
	return Stats{Keys: len(s.objects), Generation: s.generation}
}

// Close closes the open event file handle. It does not flush buffered
// writes — callers must call Flush explicitly to guarantee durability
// before closing.
func (s *Store[K, V]) Close() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.writer = nil
	return storeerr.Wrap(err, "close event file")
}

// Save runs the save() algorithm: write a snapshot of the current
// in-memory state at generation+1, rename it into place atomically, advance
// to the new generation, and retire files made obsolete by the new
// snapshot. The new generation's event log is opened by the first write
// after Save returns.
func (s *Store[K, V]) Save(mode SaveMode) error {
	defer observeDuration(s.dir, "save", time.Now())

	if !s.loaded {
		return storeerr.ErrNotLoaded
	}

	gNew := s.generation + 1

	if err := s.closeEventFile(); err != nil {
		recordOp(s.dir, "save", false)
		return err
	}

	tmpPath := filepath.Join(s.dir, tmpSnapshotName(os.Getpid(), time.Now().UnixNano(), gNew))
	if err := s.writeSnapshot(tmpPath); err != nil {
		_ = os.Remove(tmpPath)
		recordOp(s.dir, "save", false)
		return err
	}

	finalPath := snapshotPath(s.dir, gNew)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		recordOp(s.dir, "save", false)
		return storeerr.Wrapf(storeerr.ErrIoRename, "rename %q to %q", tmpPath, finalPath)
	}

	s.generation = gNew
	generationGauge.WithLabelValues(s.dir).Set(float64(gNew))

	switch mode {
	case SyncSave:
		removeObsoleteFiles(s.dir, gNew)
	case AsyncClear, ForkSave:
		dir := s.dir
		gen := gNew
		go removeObsoleteFiles(dir, gen)
	}

	recordOp(s.dir, "save", true)
	return nil
}

// writeSnapshot writes every non-empty (k,v) in s.objects to tmpPath as a
// framed snapshot, fsyncing and closing it before returning.
func (s *Store[K, V]) writeSnapshot(tmpPath string) error {
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return storeerr.Wrapf(storeerr.ErrIoOpen, "create snapshot temp file %q", tmpPath)
	}

	fw := frame.NewWriter(f, 0, s.forceCRC32)
	ctx := serial.Background().WithSnapshot(true)

	buf := make([]byte, s.initBufLen)
	pos := 0

	flush := func() error {
		if pos == 0 {
			return nil
		}
		if _, err := fw.WriteFrame(buf[:pos]); err != nil {
			return err
		}
		framesWritten.WithLabelValues(s.dir, "snapshot").Inc()
		pos = 0
		return nil
	}

	for k, v := range s.objects {
		if s.valueIsEmpty(v) {
			continue
		}
		for {
			need := s.keySer.SizeOf(k) + s.valueSizeOf(v, ctx)
			if pos+need <= len(buf) {
				n := s.keySer.Write(buf[pos:], k)
				pos += n
				n = s.valueWrite(buf[pos:], v, ctx)
				pos += n
				break
			}
			if err := flush(); err != nil {
				f.Close()
				return err
			}
			grown := nextPow2(need)
			if grown > maxBufferSize {
				f.Close()
				return storeerr.Wrapf(storeerr.ErrIoWrite, "snapshot record of %d bytes exceeds max buffer size %d", need, maxBufferSize)
			}
			if grown > len(buf) {
				buf = make([]byte, grown)
			}
		}
	}
	if err := flush(); err != nil {
		f.Close()
		return err
	}

	if err := fw.Sync(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return storeerr.Wrap(storeerr.ErrIoClose, "close snapshot temp file")
	}
	return nil
}
