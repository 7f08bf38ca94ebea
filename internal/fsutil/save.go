package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// SaveFile streams r into dst. Data lands in a temp file next to dst first and
// is moved into place with a rename, so a failed copy never leaves a
// truncated dst behind. An existing dst is replaced.
func SaveFile(fsys afero.Fs, dst string, r io.Reader) (int64, error) {
	tmp := filepath.Join(filepath.Dir(dst), ".upload-"+uuid.NewString()+".tmp")
	out, err := fsys.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, r)
	if err == nil {
		err = out.Sync()
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = fsys.Remove(tmp)
		return 0, err
	}
	if err := fsys.Rename(tmp, dst); err != nil {
		_ = fsys.Remove(tmp)
		return 0, fmt.Errorf("move into place: %w", err)
	}
	return n, nil
}
