package frame

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

// fakeSyncer adapts a bytes.Buffer to the syncer interface so tests can
// exercise Writer without touching the filesystem.
type fakeSyncer struct {
	bytes.Buffer
}

func (f *fakeSyncer) Sync() error { return nil }

func TestWriteFrameReadFrameRoundTrip(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)

	payloads := [][]byte{
		[]byte("short"),
		bytes.Repeat([]byte("x"), 40),   // needs an extra length byte
		bytes.Repeat([]byte("y"), 1000), // crosses the CRC32 threshold
	}

	var offsets []int64
	for _, p := range payloads {
		off, err := w.WriteFrame(p)
		require.NoError(t, err)
		offsets = append(offsets, off)
	}
	require.NoError(t, w.Flush())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	for _, want := range payloads {
		got, err := r.ReadFrame()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Greater(t, offsets[1], offsets[0])
	assert.Greater(t, offsets[2], offsets[1])

	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestWriteFrameForceCRC32(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, true)

	_, err := w.WriteFrame([]byte("tiny"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	// A CRC32-forced small payload encodes 4 checksum bytes instead of 2,
	// so the frame is 2 bytes larger than the CRC16 encoding of the same
	// payload would be: 1 control + 4 checksum + 4 payload = 9.
	assert.Equal(t, int64(9), w.Offset())

	r := NewReader(bytes.NewReader(buf.Bytes()))
	got, err := r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("tiny"), got)
}

func TestReadFrameCleanEOF(t *testing.T) {
	r := NewReader(bytes.NewReader(nil))
	_, err := r.ReadFrame()
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadFrameDetectsPayloadCorruption(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)
	_, err := w.WriteFrame([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	raw := buf.Bytes()
	raw[len(raw)-1] ^= 0xFF // flip every bit in the last payload byte

	r := NewReader(bytes.NewReader(raw))
	_, err = r.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeerr.ErrFrameCorrupt))
}

func TestReadFrameDetectsChecksumCorruption(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)
	_, err := w.WriteFrame([]byte("payload"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	raw := buf.Bytes()
	raw[1] ^= 0xFF // checksum bytes start right after the single control byte

	r := NewReader(bytes.NewReader(raw))
	_, err = r.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeerr.ErrFrameCorrupt))
}

func TestReadFrameDetectsTruncatedPayload(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)
	_, err := w.WriteFrame([]byte("a full payload"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	raw := buf.Bytes()[:buf.Len()-3] // chop off the last few payload bytes

	r := NewReader(bytes.NewReader(raw))
	_, err = r.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeerr.ErrFrameCorrupt))
}

func TestReadFrameDetectsTruncatedHeader(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)
	_, err := w.WriteFrame(bytes.Repeat([]byte("z"), 64)) // forces an extra length byte
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	raw := buf.Bytes()[:1] // only the control byte survives

	r := NewReader(bytes.NewReader(raw))
	_, err = r.ReadFrame()
	require.Error(t, err)
	assert.True(t, errors.Is(err, storeerr.ErrFrameCorrupt))
}

func TestOffsetTrackingAcrossFrames(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 0, false)

	_, err := w.WriteFrame([]byte("one"))
	require.NoError(t, err)
	_, err = w.WriteFrame([]byte("two"))
	require.NoError(t, err)
	require.NoError(t, w.Flush())

	writerEnd := w.Offset()
	assert.EqualValues(t, buf.Len(), writerEnd)

	r := NewReader(bytes.NewReader(buf.Bytes()))
	_, err = r.ReadFrame()
	require.NoError(t, err)
	_, err = r.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, writerEnd, r.Offset())
}

func TestNewWriterStartOffset(t *testing.T) {
	buf := &fakeSyncer{}
	w := NewWriter(buf, 1024, false)
	assert.Equal(t, int64(1024), w.Offset())

	off, err := w.WriteFrame([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), off)
	assert.Greater(t, w.Offset(), int64(1024))
}
