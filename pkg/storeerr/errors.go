// Package storeerr defines the error taxonomy shared by pkg/serial,
// pkg/frame and pkg/store. Sentinel errors are created with
// github.com/cockroachdb/errors so callers further up the stack get a
// captured stack trace on first Wrap.
package storeerr

import "github.com/cockroachdb/errors"

// Configuration and directory errors.
var (
	// ErrConfig is returned when a Store is constructed with an invalid
	// configuration: a non-empty default value for V, or an out-of-range
	// buffer size.
	ErrConfig = errors.New("invalid store configuration")

	// ErrPathNotDirectory is returned when the configured path exists but
	// is a regular file.
	ErrPathNotDirectory = errors.New("path exists and is not a directory")

	// ErrDirectoryMissing is returned when the configured path does not
	// exist and CreateDir was not requested.
	ErrDirectoryMissing = errors.New("data directory does not exist")

	// ErrDirectoryCreateFailed wraps a failure to create the data directory.
	ErrDirectoryCreateFailed = errors.New("failed to create data directory")
)

// I/O errors.
var (
	ErrIoOpen   = errors.New("failed to open file")
	ErrIoRead   = errors.New("failed to read file")
	ErrIoWrite  = errors.New("failed to write file")
	ErrIoRename = errors.New("failed to rename file")
	ErrIoClose  = errors.New("failed to close file")
)

// Recovery and decode errors.
var (
	// ErrCorruptSnapshot is fatal: it stops load() outright. Unlike a
	// corrupt event file, there is no earlier generation to fall back to.
	ErrCorruptSnapshot = errors.New("snapshot file is corrupt")

	// ErrDecode covers malformed VarUint streams, invalid sum-type
	// discriminants, invalid partial-mode headers, and length fields that
	// exceed their caps.
	ErrDecode = errors.New("malformed encoded value")

	// ErrNotLoaded is returned when save() is invoked on a Store
	// constructed with DeferLoad before load() has run.
	ErrNotLoaded = errors.New("store has not been loaded")

	// ErrFrameCorrupt indicates a frame header, payload, or checksum could
	// not be validated during replay.
	ErrFrameCorrupt = errors.New("frame is corrupt")
)

// Wrap annotates err with msg using errors.Wrap, or returns nil if err is
// nil. It exists so call sites read like fmt.Errorf("...: %w", err)
// wrapping without losing cockroachdb/errors' stack capture.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, msg)
}

// Wrapf is the formatted form of Wrap.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return errors.Wrapf(err, format, args...)
}
