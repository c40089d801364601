package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/freyja-labs/eventkv/pkg/storeerr"
)

const (
	genDigits    = 20
	eventsExt    = ".events"
	snapshotExt  = ".snapshot"
	tmpSnapshotPrefix = "tmp_snapshot_"
)

// genStem formats a generation as a 20-digit zero-padded decimal string.
func genStem(gen uint64) string {
	return fmt.Sprintf("%0*d", genDigits, gen)
}

func eventsPath(dir string, gen uint64) string {
	return filepath.Join(dir, genStem(gen)+eventsExt)
}

func snapshotPath(dir string, gen uint64) string {
	return filepath.Join(dir, genStem(gen)+snapshotExt)
}

// tmpSnapshotName builds the transient filename a snapshot is written under
// before its atomic rename, scoped by pid and nanosecond timestamp so a
// ForkSave parent/child pair (or two concurrent saves) never collide.
func tmpSnapshotName(pid int, nanos int64, gen uint64) string {
	return fmt.Sprintf("%s%d_%d_%s", tmpSnapshotPrefix, pid, nanos, genStem(gen))
}

// genFile describes one generation-numbered file found in a data directory.
type genFile struct {
	gen  uint64
	path string
}

// parseGenStem parses a filename stem as a generation number. It requires
// all-digit stems of exactly genDigits characters, matching the on-disk
// naming scheme; anything else is not a generation file.
func parseGenStem(stem string) (uint64, bool) {
	if len(stem) != genDigits {
		return 0, false
	}
	for _, r := range stem {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	gen, err := strconv.ParseUint(stem, 10, 64)
	if err != nil {
		return 0, false
	}
	return gen, true
}

// scanGenFiles lists every file in dir with the given extension whose stem
// is a valid generation number, sorted ascending by generation.
func scanGenFiles(dir, ext string) ([]genFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, storeerr.Wrapf(storeerr.ErrIoRead, "read directory %q", dir)
	}

	var files []genFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ext) {
			continue
		}
		stem := strings.TrimSuffix(name, ext)
		gen, ok := parseGenStem(stem)
		if !ok {
			continue
		}
		files = append(files, genFile{gen: gen, path: filepath.Join(dir, name)})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].gen < files[j].gen })
	return files, nil
}

// latestSnapshot returns the highest-generation .snapshot file in dir, if
// any.
func latestSnapshot(dir string) (genFile, bool, error) {
	files, err := scanGenFiles(dir, snapshotExt)
	if err != nil {
		return genFile{}, false, err
	}
	if len(files) == 0 {
		return genFile{}, false, nil
	}
	return files[len(files)-1], true, nil
}

// removeDataFiles deletes every generation-numbered .events and .snapshot
// file in dir. Used by the DeleteData construction flag.
func removeDataFiles(dir string) error {
	for _, ext := range []string{eventsExt, snapshotExt} {
		files, err := scanGenFiles(dir, ext)
		if err != nil {
			return err
		}
		for _, f := range files {
			if err := os.Remove(f.path); err != nil && !os.IsNotExist(err) {
				return storeerr.Wrapf(storeerr.ErrIoWrite, "remove %q", f.path)
			}
		}
	}
	return nil
}

// removeObsoleteFiles deletes every .events or .snapshot file with
// generation strictly below belowGen. Individual failures are swallowed
// (best effort), matching the save() partial-failure policy: a single
// permission glitch must not block forward progress.
func removeObsoleteFiles(dir string, belowGen uint64) {
	for _, ext := range []string{eventsExt, snapshotExt} {
		files, err := scanGenFiles(dir, ext)
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.gen < belowGen {
				_ = os.Remove(f.path)
			}
		}
	}
}
