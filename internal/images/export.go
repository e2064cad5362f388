package images

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
)

// Backup is the JSON document written by WriteBackup. It can be fed back
// through manual import.
type Backup struct {
	Images map[string]string `json:"images"`
}

// WriteZip writes every payload to w as images/<id>.<ext>. Payloads that
// are not valid data URIs are skipped. It returns the number of files
// written.
func WriteZip(w io.Writer, payloads map[string]string) (int, error) {
	zw := zip.NewWriter(w)

	ids := make([]string, 0, len(payloads))
	for id := range payloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	written := 0
	for _, id := range ids {
		mimeType, data, err := DecodeDataURI(payloads[id])
		if err != nil {
			slog.Warn("Skipping unreadable image", "id", id, "err", err)
			continue
		}

		fw, err := zw.Create("images/" + id + Extension(mimeType))
		if err != nil {
			return written, fmt.Errorf("failed to add %s to archive: %w", id, err)
		}
		if _, err := fw.Write(data); err != nil {
			return written, fmt.Errorf("failed to write %s to archive: %w", id, err)
		}
		written++
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finish archive: %w", err)
	}
	return written, nil
}

// WriteBackup writes payloads as an indented JSON Backup
func WriteBackup(w io.Writer, payloads map[string]string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Backup{Images: payloads}); err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	return nil
}
