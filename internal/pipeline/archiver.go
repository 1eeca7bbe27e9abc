package pipeline

// archiver.go packs serialized CSV entries into a single ZIP archive held
// entirely in memory.
//
// Entries carry no timestamps or platform metadata, so byte-identical input
// produces a byte-identical archive. Each entry is deflate-compressed and
// independently extractable (local file header plus central directory).

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

// BuildArchive writes entries into one ZIP, in order. The returned bytes
// are the complete archive; nothing touches the filesystem. Failures
// surface as ResourceError.
func BuildArchive(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			return nil, &ResourceError{Op: "archive", Err: fmt.Errorf("create entry %q: %w", e.Name, err)}
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, &ResourceError{Op: "archive", Err: fmt.Errorf("write entry %q: %w", e.Name, err)}
		}
	}

	if err := zw.Close(); err != nil {
		return nil, &ResourceError{Op: "archive", Err: fmt.Errorf("finalize archive: %w", err)}
	}
	return buf.Bytes(), nil
}

// ArchiveName returns the suggested download filename for an archive
// completed at the given time, e.g. Monthly_Reports_2026-08.zip. The name
// derives from the clock, never from data content.
func ArchiveName(folder string, at time.Time) string {
	if folder == "" {
		folder = DefaultFolder
	}
	return folder + "_" + at.Format("2006-01") + ".zip"
}
