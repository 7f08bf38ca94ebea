// Package fsops implements the mutating file manager operations. All paths
// coming in are relative to the root and are passed through fsutil.Confine;
// all failures come back as *Error so callers can pick the response per Kind.
package fsops

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"nasdrive/internal/fsutil"
)

type Ops struct {
	fs   afero.Fs
	root string
}

func New(fsys afero.Fs, root string) *Ops {
	return &Ops{fs: fsys, root: filepath.Clean(root)}
}

func (o *Ops) resolve(rel string) string {
	return fsutil.Confine(o.root, rel)
}

func (o *Ops) isRoot(abs string) bool {
	return filepath.Clean(abs) == o.root
}

// Save writes r as filename inside dirRel and returns the sanitized name it
// was stored under.
func (o *Ops) Save(dirRel, filename string, r io.Reader) (string, error) {
	name := fsutil.SanitizeName(filename)
	if name == "" {
		return "", invalid("upload", dirRel, "invalid file name")
	}
	dst := filepath.Join(o.resolve(dirRel), name)
	if _, err := fsutil.SaveFile(o.fs, dst, r); err != nil {
		return "", ioFailure("upload", joinRel(dirRel, name), err)
	}
	return name, nil
}

// Mkdir creates folder name inside dirRel. An existing folder is not an error.
func (o *Ops) Mkdir(dirRel, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("mkdir", dirRel, "Folder name cannot be empty")
	}
	safe := fsutil.SanitizeName(name)
	if safe == "" {
		return "", invalid("mkdir", dirRel, "invalid folder name")
	}
	if err := o.fs.MkdirAll(filepath.Join(o.resolve(dirRel), safe), 0o755); err != nil {
		return "", ioFailure("mkdir", joinRel(dirRel, safe), err)
	}
	return safe, nil
}

// Move moves srcRel into the directory dstRel, keeping its base name.
func (o *Ops) Move(srcRel, dstRel string) error {
	if srcRel == "" || dstRel == "" {
		return invalid("move", srcRel, "Missing src or dst")
	}
	src := o.resolve(srcRel)
	dst := o.resolve(dstRel)
	if o.isRoot(src) {
		return invalid("move", srcRel, "Invalid source or destination")
	}
	if _, err := o.fs.Stat(src); err != nil {
		return invalid("move", srcRel, "Invalid source or destination")
	}
	if st, err := o.fs.Stat(dst); err != nil || !st.IsDir() {
		return invalid("move", srcRel, "Invalid source or destination")
	}
	if err := o.fs.Rename(src, filepath.Join(dst, filepath.Base(src))); err != nil {
		return ioFailure("move", srcRel, err)
	}
	return nil
}

// Rename renames rel in place and returns the sanitized new name.
func (o *Ops) Rename(rel, newName string) (string, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return "", invalid("rename", rel, "New name cannot be empty")
	}
	safe := fsutil.SanitizeName(newName)
	if safe == "" {
		return "", invalid("rename", rel, "invalid name")
	}
	target := o.resolve(rel)
	if o.isRoot(target) {
		return "", invalid("rename", rel, "cannot rename the root folder")
	}
	if _, err := o.fs.Stat(target); err != nil {
		if os.IsNotExist(err) {
			return "", notFound("rename", rel, err)
		}
		return "", ioFailure("rename", rel, err)
	}
	if err := o.fs.Rename(target, filepath.Join(filepath.Dir(target), safe)); err != nil {
		return "", ioFailure("rename", rel, err)
	}
	return safe, nil
}

// Delete removes rel; directories are removed recursively. The root itself is
// never removed.
func (o *Ops) Delete(rel string) error {
	target := o.resolve(rel)
	if o.isRoot(target) {
		return invalid("delete", rel, "cannot delete the root folder")
	}
	st, err := o.lstat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return notFound("delete", rel, err)
		}
		return ioFailure("delete", rel, err)
	}
	if st.IsDir() {
		err = o.fs.RemoveAll(target)
	} else {
		err = o.fs.Remove(target)
	}
	if err != nil {
		return ioFailure("delete", rel, err)
	}
	return nil
}

// lstat does not follow a final symlink, so a dangling link can still be
// deleted.
func (o *Ops) lstat(p string) (os.FileInfo, error) {
	if l, ok := o.fs.(afero.Lstater); ok {
		fi, _, err := l.LstatIfPossible(p)
		return fi, err
	}
	return o.fs.Stat(p)
}

func joinRel(parent, name string) string {
	parent = fsutil.CleanRelPath(parent)
	if parent == "" {
		return name
	}
	return parent + "/" + name
}
