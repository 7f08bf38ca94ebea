// Package listing enumerates one directory level for the browser UI: hidden
// names and search misses are filtered out, directories sort before files, and
// the result is cut into fixed-size pages.
package listing

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/afero"

	"nasdrive/internal/fsutil"
)

// DefaultPageSize is the number of entries per listing page.
const DefaultPageSize = 20

// DefaultHidden are directory entries never shown in a listing.
var DefaultHidden = []string{"lost+found", "kali"}

var (
	ErrNotFound = errors.New("path not found")
	ErrNotDir   = errors.New("not a directory")
)

// Entry describes one child of the listed directory.
type Entry struct {
	Name    string
	IsDir   bool
	Size    int64 // 0 for directories
	ModTime time.Time
	Ext     string // lowercased, with leading dot; empty for directories
	MIME    string // empty for directories and unknown types
}

// Page is one slice of a sorted listing.
type Page struct {
	Entries []Entry
	Page    int // requested page, 1-based
	Pages   int // at least 1
	Total   int // entries after filtering, across all pages
	Parent  string
}

type Options struct {
	Search   string
	Page     int
	PageSize int
	Hidden   []string
}

// List reads the immediate children of dirAbs, which must be root or a path
// beneath it. A page outside [1, Pages] is not an error; it comes back empty.
func List(fsys afero.Fs, root, dirAbs string, opts Options) (Page, error) {
	st, err := fsys.Stat(dirAbs)
	if err != nil {
		if os.IsNotExist(err) {
			return Page{}, ErrNotFound
		}
		return Page{}, err
	}
	if !st.IsDir() {
		return Page{}, ErrNotDir
	}

	infos, err := afero.ReadDir(fsys, dirAbs)
	if err != nil {
		return Page{}, err
	}

	hidden := opts.Hidden
	if hidden == nil {
		hidden = DefaultHidden
	}
	search := strings.ToLower(opts.Search)

	all := make([]Entry, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if isHidden(hidden, name) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(name), search) {
			continue
		}
		if info.Mode()&os.ModeSymlink != 0 {
			// follow for metadata; dangling links stay as-is
			if target, err := fsys.Stat(filepath.Join(dirAbs, name)); err == nil {
				info = target
			}
		}
		all = append(all, newEntry(name, info))
	}
	Sort(all)

	size := opts.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	p := Page{
		Page:   opts.Page,
		Pages:  PageCount(len(all), size),
		Total:  len(all),
		Parent: parentRel(root, dirAbs),
	}
	p.Entries = Paginate(all, opts.Page, size)
	return p, nil
}

func newEntry(name string, info os.FileInfo) Entry {
	e := Entry{
		Name:    name,
		IsDir:   info.IsDir(),
		ModTime: info.ModTime(),
	}
	if !e.IsDir {
		e.Size = info.Size()
		if info.Mode()&os.ModeSymlink != 0 {
			e.Size = 0
		}
		e.Ext = strings.ToLower(filepath.Ext(name))
		e.MIME = ContentType(name)
	}
	return e
}

// Sort orders entries directories first, then by case-insensitive name.
func Sort(entries []Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.IsDir != b.IsDir {
			return a.IsDir
		}
		al, bl := strings.ToLower(a.Name), strings.ToLower(b.Name)
		if al != bl {
			return al < bl
		}
		return a.Name < b.Name
	})
}

// PageCount is ceil(total/size), never less than 1.
func PageCount(total, size int) int {
	if size <= 0 {
		size = DefaultPageSize
	}
	n := (total + size - 1) / size
	if n < 1 {
		return 1
	}
	return n
}

// Paginate returns the 1-based page of entries. Out-of-range pages are empty.
func Paginate(entries []Entry, page, size int) []Entry {
	if page < 1 || size <= 0 {
		return []Entry{}
	}
	// compare page numbers first, (page-1)*size overflows for huge pages
	if page > (len(entries)+size-1)/size {
		return []Entry{}
	}
	start := (page - 1) * size
	end := start + size
	if end > len(entries) {
		end = len(entries)
	}
	return entries[start:end]
}

func parentRel(root, dirAbs string) string {
	if filepath.Clean(dirAbs) == filepath.Clean(root) {
		return ""
	}
	return fsutil.RelToRoot(root, filepath.Dir(dirAbs))
}

func isHidden(hidden []string, name string) bool {
	for _, h := range hidden {
		if h == name {
			return true
		}
	}
	return false
}
