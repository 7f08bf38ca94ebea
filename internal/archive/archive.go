// Package archive streams a directory subtree as a ZIP file.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"
)

var ErrNotDir = errors.New("not a folder")

// WriteZip writes every file below dirAbs into a ZIP stream on w. Entry names
// are relative to dirAbs, so the folder's own name never appears in them.
//
// The first read error aborts the archive; whatever was already flushed to w
// stays there and the caller decides what to do with a half-written response.
func WriteZip(ctx context.Context, fsys afero.Fs, dirAbs string, w io.Writer) error {
	st, err := fsys.Stat(dirAbs)
	if err != nil || !st.IsDir() {
		return ErrNotDir
	}

	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.DefaultCompression)
	})

	walkErr := afero.Walk(fsys, dirAbs, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			return nil
		}
		if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
			return nil // fifo, socket, device
		}
		rel, err := filepath.Rel(dirAbs, p)
		if err != nil {
			return err
		}
		return addFile(zw, fsys, p, filepath.ToSlash(rel), info)
	})
	if walkErr != nil {
		_ = zw.Close()
		return fmt.Errorf("zip %s: %w", dirAbs, walkErr)
	}
	return zw.Close()
}

func addFile(zw *zip.Writer, fsys afero.Fs, abs, name string, info os.FileInfo) error {
	f, err := fsys.Open(abs)
	if err != nil {
		return err
	}
	defer f.Close()

	if info.Mode()&os.ModeSymlink != 0 {
		// archive what the link points at
		if info, err = f.Stat(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
	}

	h := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: info.ModTime(),
	}
	h.SetMode(info.Mode().Perm())
	wr, err := zw.CreateHeader(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(wr, f)
	return err
}
