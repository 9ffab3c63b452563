// Package download writes remote bodies to disk so that the destination is
// only ever observed whole.
package download

import (
	"fmt"
	"io"
	"os"
)

// TempSuffix is appended to the destination to form the staging file name
const TempSuffix = ".tmp"

// FileMode is applied to every materialized file
const FileMode os.FileMode = 0o644

// Materialize streams r into dest+TempSuffix and renames the staging file over
// dest once the stream has been fully written and flushed. On any failure the
// staging file is removed and dest is left as it was. The parent directory of
// dest must already exist.
func Materialize(r io.Reader, dest string) (n int64, err error) {
	tmp := dest + TempSuffix

	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, FileMode)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	n, err = io.Copy(f, r)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err = f.Sync(); err != nil {
		return n, fmt.Errorf("failed to flush %s: %w", tmp, err)
	}
	if err = f.Close(); err != nil {
		return n, fmt.Errorf("failed to close %s: %w", tmp, err)
	}

	// rename replaces an existing file atomically
	if err = os.Rename(tmp, dest); err != nil {
		return n, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return n, nil
}
