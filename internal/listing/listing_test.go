package listing

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const root = "/srv"

func newFs(t *testing.T) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll(root, 0o755))
	return fsys
}

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

func names(entries []Entry) []string {
	res := make([]string, 0, len(entries))
	for _, e := range entries {
		res = append(res, e.Name)
	}
	return res
}

func TestList_Pagination(t *testing.T) {
	fsys := newFs(t)
	for i := 0; i < 45; i++ {
		writeFile(t, fsys, fmt.Sprintf("%s/f%02d.txt", root, i), "x")
	}

	p1, err := List(fsys, root, root, Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, p1.Pages)
	assert.Equal(t, 45, p1.Total)
	assert.Len(t, p1.Entries, 20)
	assert.Equal(t, "f00.txt", p1.Entries[0].Name)

	p3, err := List(fsys, root, root, Options{Page: 3})
	require.NoError(t, err)
	assert.Len(t, p3.Entries, 5)
	assert.Equal(t, "f44.txt", p3.Entries[4].Name)

	for _, page := range []int{0, -1, 4, 100, math.MaxInt, math.MinInt} {
		p, err := List(fsys, root, root, Options{Page: page})
		require.NoError(t, err, "page %d", page)
		assert.Empty(t, p.Entries, "page %d", page)
		assert.Equal(t, 3, p.Pages)
	}
}

func TestList_EmptyDirHasOnePage(t *testing.T) {
	fsys := newFs(t)
	p, err := List(fsys, root, root, Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, p.Pages)
	assert.Equal(t, 0, p.Total)
	assert.Empty(t, p.Entries)
}

func TestList_Search(t *testing.T) {
	fsys := newFs(t)
	for _, n := range []string{"Report-2023.pdf", "annual_REPORT.xlsx", "notes.txt", "rep.txt"} {
		writeFile(t, fsys, root+"/"+n, "x")
	}
	require.NoError(t, fsys.Mkdir(root+"/reports", 0o755))

	p, err := List(fsys, root, root, Options{Page: 1, Search: "report"})
	require.NoError(t, err)
	assert.Equal(t, []string{"reports", "annual_REPORT.xlsx", "Report-2023.pdf"}, names(p.Entries))
	assert.Equal(t, 3, p.Total)

	p, err = List(fsys, root, root, Options{Page: 1, Search: "nothing-matches"})
	require.NoError(t, err)
	assert.Empty(t, p.Entries)
	assert.Equal(t, 1, p.Pages)
}

func TestList_SortAndMetadata(t *testing.T) {
	fsys := newFs(t)
	writeFile(t, fsys, root+"/b.txt", "bbb")
	writeFile(t, fsys, root+"/a.txt", "a")
	require.NoError(t, fsys.Mkdir(root+"/A", 0o755))
	mtime := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, fsys.Chtimes(root+"/b.txt", mtime, mtime))

	p, err := List(fsys, root, root, Options{Page: 1})
	require.NoError(t, err)
	require.Equal(t, []string{"A", "a.txt", "b.txt"}, names(p.Entries))

	dir := p.Entries[0]
	assert.True(t, dir.IsDir)
	assert.Zero(t, dir.Size)
	assert.Empty(t, dir.Ext)
	assert.Empty(t, dir.MIME)

	b := p.Entries[2]
	assert.False(t, b.IsDir)
	assert.Equal(t, int64(3), b.Size)
	assert.Equal(t, ".txt", b.Ext)
	assert.Contains(t, b.MIME, "text/plain")
	assert.True(t, mtime.Equal(b.ModTime))
}

func TestList_Hidden(t *testing.T) {
	fsys := newFs(t)
	require.NoError(t, fsys.Mkdir(root+"/lost+found", 0o755))
	require.NoError(t, fsys.Mkdir(root+"/kali", 0o755))
	writeFile(t, fsys, root+"/visible.txt", "x")

	p, err := List(fsys, root, root, Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"visible.txt"}, names(p.Entries))

	p, err = List(fsys, root, root, Options{Page: 1, Hidden: []string{"visible.txt"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"kali", "lost+found"}, names(p.Entries))
}

func TestList_Parent(t *testing.T) {
	fsys := newFs(t)
	require.NoError(t, fsys.MkdirAll(root+"/a/b", 0o755))

	p, err := List(fsys, root, root, Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "", p.Parent)

	p, err = List(fsys, root, root+"/a", Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "", p.Parent)

	p, err = List(fsys, root, root+"/a/b", Options{Page: 1})
	require.NoError(t, err)
	assert.Equal(t, "a", p.Parent)
}

func TestList_Errors(t *testing.T) {
	fsys := newFs(t)
	writeFile(t, fsys, root+"/file.txt", "x")

	_, err := List(fsys, root, root+"/missing", Options{Page: 1})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = List(fsys, root, root+"/file.txt", Options{Page: 1})
	assert.ErrorIs(t, err, ErrNotDir)
}

func TestPaginate(t *testing.T) {
	entries := make([]Entry, 3)
	assert.Len(t, Paginate(entries, 1, 20), 3)
	assert.Len(t, Paginate(entries, 2, 2), 1)
	assert.Empty(t, Paginate(entries, 3, 2))
	assert.Empty(t, Paginate(entries, math.MaxInt, 20))
	assert.Empty(t, Paginate(entries, math.MaxInt/20+2, 20), "(page-1)*size wraps negative")
	assert.Empty(t, Paginate(nil, 1, 20))
	assert.Empty(t, Paginate(entries, 1, 0))
}

func TestPageCount(t *testing.T) {
	assert.Equal(t, 1, PageCount(0, 20))
	assert.Equal(t, 1, PageCount(20, 20))
	assert.Equal(t, 2, PageCount(21, 20))
	assert.Equal(t, 3, PageCount(45, 20))
	assert.Equal(t, 3, PageCount(45, 0))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "", ContentType("README"))
	assert.Equal(t, "application/pdf", ContentType("x.PDF"))
	assert.Equal(t, "image/webp", ContentType("x.webp"))
	assert.Equal(t, "video/x-matroska", ContentType("movie.MKV"))
	assert.Equal(t, "", ContentType("x.unknownext"))
	assert.True(t, IsImage("photo.JPG"))
	assert.False(t, IsImage("doc.txt"))
}
