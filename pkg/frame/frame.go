// Package frame implements the length-prefixed, checksum-framed on-disk
// unit the event log and snapshot files are built from. A frame is the
// sole unit of atomic replay: it is either accepted whole or rejected whole
// — there is no partial-frame acceptance.
//
// Frame layout:
//
//	control byte:
//	  bits 0..4 : low 5 bits of payload length P
//	  bit 5     : 0 = CRC16, 1 = CRC32
//	  bits 6..7 : number of extra length bytes E in {0,1,2,3}
//	extra length:  E bytes little-endian, high bits of P (shifted left 5)
//	checksum:      2 bytes CRC16-XMODEM, or 4 bytes CRC32C, little-endian
//	payload:       P bytes
package frame

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/freyja-labs/eventkv/internal/checksum"
	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

// MaxPayload is the largest payload a single frame may carry: 2^29 bytes.
const MaxPayload = 1 << 29

// crc32Threshold: payloads at or above this size always use CRC32C,
// regardless of ForceCRC32.
const crc32Threshold = 512

const (
	controlLenMask   = 0x1F // bits 0..4
	controlCRCBit    = 0x20 // bit 5
	controlExtraMask = 0xC0 // bits 6..7
	controlExtraShift = 6
)

// header describes a decoded (or about-to-be-encoded) frame header.
type header struct {
	payloadLen int
	useCRC32   bool
	extraBytes int
}

// extraBytesFor returns the minimal number of little-endian bytes needed to
// represent high (the payload length's bits above the low 5), in {0,1,2,3}.
func extraBytesFor(high uint32) int {
	switch {
	case high == 0:
		return 0
	case high < 1<<8:
		return 1
	case high < 1<<16:
		return 2
	default:
		return 3
	}
}

func newHeader(payloadLen int, useCRC32 bool) header {
	high := uint32(payloadLen) >> 5
	return header{
		payloadLen: payloadLen,
		useCRC32:   useCRC32,
		extraBytes: extraBytesFor(high),
	}
}

// checksumSize returns 2 for CRC16 or 4 for CRC32.
func (h header) checksumSize() int {
	if h.useCRC32 {
		return 4
	}
	return 2
}

// encodedSize is the total on-disk size of the header (control byte +
// extra length bytes) plus the checksum plus the payload.
func (h header) encodedSize() int {
	return 1 + h.extraBytes + h.checksumSize() + h.payloadLen
}

// writeHeader writes the control byte and extra length bytes to dst, which
// must be at least 1+h.extraBytes long.
func (h header) writeHeader(dst []byte) {
	low := byte(h.payloadLen) & controlLenMask
	control := low
	if h.useCRC32 {
		control |= controlCRCBit
	}
	control |= byte(h.extraBytes) << controlExtraShift
	dst[0] = control

	high := uint32(h.payloadLen) >> 5
	for i := 0; i < h.extraBytes; i++ {
		dst[1+i] = byte(high)
		high >>= 8
	}
}

// Writer appends frames to an io.Writer: a buffered writer wrapping an
// *os.File, one fsync-capable Sync method, and a running byte offset.
// WriteFrame emits the variable bit-packed frame header described above
// rather than a fixed-size record header.
type Writer struct {
	bw         *bufio.Writer
	syncer     syncer
	forceCRC32 bool
	offset     int64
}

// syncer is satisfied by *os.File; it is a narrow interface so tests can
// supply an in-memory fake without touching the filesystem.
type syncer interface {
	io.Writer
	Sync() error
}

// NewWriter wraps w (and its durable-commit handle sync) in a frame Writer.
// startOffset is the current size of the underlying file, used to report
// Offset() correctly after re-opening an existing log for append.
func NewWriter(w syncer, startOffset int64, forceCRC32 bool) *Writer {
	return &Writer{
		bw:         bufio.NewWriterSize(w, 64*1024),
		syncer:     w,
		forceCRC32: forceCRC32,
		offset:     startOffset,
	}
}

// WriteFrame emits payload as a single frame. CRC32C is used when
// len(payload) >= 512 or ForceCRC32 was requested at construction;
// otherwise CRC16-XMODEM.
func (w *Writer) WriteFrame(payload []byte) (int64, error) {
	if len(payload) > MaxPayload {
		return 0, storeerr.Wrapf(storeerr.ErrIoWrite, "payload of %d bytes exceeds frame max %d", len(payload), MaxPayload)
	}

	useCRC32 := w.forceCRC32 || len(payload) >= crc32Threshold
	h := newHeader(len(payload), useCRC32)

	buf := make([]byte, 1+h.extraBytes+h.checksumSize())
	h.writeHeader(buf)

	if useCRC32 {
		sum := checksum.CRC32C(payload)
		binary.LittleEndian.PutUint32(buf[1+h.extraBytes:], sum)
	} else {
		sum := checksum.CRC16XModem(payload)
		binary.LittleEndian.PutUint16(buf[1+h.extraBytes:], sum)
	}

	frameOffset := w.offset

	if _, err := w.bw.Write(buf); err != nil {
		return 0, storeerr.Wrap(err, "write frame header")
	}
	if _, err := w.bw.Write(payload); err != nil {
		return 0, storeerr.Wrap(err, "write frame payload")
	}
	w.offset += int64(len(buf) + len(payload))

	return frameOffset, nil
}

// Flush pushes any buffered bytes to the underlying writer without fsyncing.
func (w *Writer) Flush() error {
	return storeerr.Wrap(w.bw.Flush(), "flush frame writer")
}

// Sync flushes buffered bytes and fsyncs the underlying file.
func (w *Writer) Sync() error {
	if err := w.Flush(); err != nil {
		return err
	}
	return storeerr.Wrap(w.syncer.Sync(), "fsync frame writer")
}

// Offset returns the writer's current logical end-of-file offset.
func (w *Writer) Offset() int64 {
	return w.offset
}

// Reader reads frames sequentially from an io.Reader, validating each
// frame's checksum before returning its payload.
type Reader struct {
	br     *bufio.Reader
	offset int64
}

// NewReader wraps r in a frame Reader.
func NewReader(r io.Reader) *Reader {
	return &Reader{br: bufio.NewReader(r)}
}

// ReadFrame reads and validates the next frame, returning its payload. It
// returns io.EOF (unwrapped, checkable with errors.Is) when the stream ends
// cleanly between frames. Any other error — a truncated header, a
// truncated payload, or a checksum mismatch — indicates corruption and is
// storeerr.ErrFrameCorrupt (or a wrap of it).
func (r *Reader) ReadFrame() ([]byte, error) {
	controlBuf := make([]byte, 1)
	n, err := io.ReadFull(r.br, controlBuf)
	if err != nil {
		if n == 0 && err == io.EOF {
			return nil, io.EOF
		}
		return nil, storeerr.ErrFrameCorrupt
	}
	control := controlBuf[0]
	useCRC32 := control&controlCRCBit != 0
	extraBytes := int(control&controlExtraMask) >> controlExtraShift

	extraBuf := make([]byte, extraBytes)
	if extraBytes > 0 {
		if _, err := io.ReadFull(r.br, extraBuf); err != nil {
			return nil, storeerr.ErrFrameCorrupt
		}
	}

	payloadLen := int(control & controlLenMask)
	for i := 0; i < extraBytes; i++ {
		payloadLen |= int(extraBuf[i]) << (5 + 8*i)
	}
	if payloadLen > MaxPayload {
		return nil, storeerr.ErrFrameCorrupt
	}

	checksumSize := 2
	if useCRC32 {
		checksumSize = 4
	}
	checksumBuf := make([]byte, checksumSize)
	if _, err := io.ReadFull(r.br, checksumBuf); err != nil {
		return nil, storeerr.ErrFrameCorrupt
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := io.ReadFull(r.br, payload); err != nil {
			return nil, storeerr.ErrFrameCorrupt
		}
	}

	var ok bool
	if useCRC32 {
		ok = binary.LittleEndian.Uint32(checksumBuf) == checksum.CRC32C(payload)
	} else {
		ok = binary.LittleEndian.Uint16(checksumBuf) == checksum.CRC16XModem(payload)
	}
	if !ok {
		return nil, storeerr.ErrFrameCorrupt
	}

	r.offset += int64(1 + extraBytes + checksumSize + payloadLen)
	return payload, nil
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 {
	return r.offset
}
