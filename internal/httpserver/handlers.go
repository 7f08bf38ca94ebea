package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"

	"nasdrive/internal/archive"
	"nasdrive/internal/auth"
	"nasdrive/internal/fsops"
	"nasdrive/internal/fsutil"
	"nasdrive/internal/listing"
)

// resolve confines the raw {path...} value and returns the absolute path and
// its root-relative form.
func (s *Server) resolve(r *http.Request) (abs, rel string) {
	abs = fsutil.Confine(s.cfg.Root, r.PathValue("path"))
	return abs, fsutil.RelToRoot(s.cfg.Root, abs)
}

type entryView struct {
	listing.Entry
	Path      string // root-relative
	URL       string
	Thumb     string
	RenameURL string
	DeleteURL string
	ZipURL    string
}

type indexView struct {
	User    string
	Path    string
	Crumbs  []crumb
	AtRoot  bool
	Parent  string
	Entries []entryView
	Page    int
	Pages   int
	Total   int
	Search  string
	Flash   string
	Readme  template.HTML

	PrevURL   string
	NextURL   string
	UploadURL string
	MkdirURL  string
	ZipURL    string
	ParentURL string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	abs, rel := s.resolve(r)
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil {
		page = 1
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	res, err := listing.List(s.fs, s.cfg.Root, abs, listing.Options{
		Search:   search,
		Page:     page,
		PageSize: s.cfg.PageSize,
		Hidden:   s.hidden,
	})
	switch {
	case errors.Is(err, listing.ErrNotFound):
		http.Error(w, "Path not found: /"+rel, http.StatusNotFound)
		return
	case errors.Is(err, listing.ErrNotDir):
		s.serveFile(w, r, abs)
		return
	case err != nil:
		lgr.Printf("[ERROR] list %q: %v", rel, err)
		http.Error(w, "read failed", http.StatusInternalServerError)
		return
	}

	v := indexView{
		User:      auth.UserFromContext(r.Context()),
		Path:      rel,
		Crumbs:    breadcrumbs(rel),
		AtRoot:    rel == "",
		Parent:    res.Parent,
		ParentURL: routeURL("/", res.Parent),
		Page:      page,
		Pages:     res.Pages,
		Total:     res.Total,
		Search:    search,
		Flash:     popFlash(w, r),
		UploadURL: routeURL("/upload/", rel),
		MkdirURL:  routeURL("/mkdir/", rel),
		ZipURL:    routeURL("/download-folder/", rel),
	}
	if page > 1 {
		v.PrevURL = listingURL(rel, page-1, search)
	}
	if page < res.Pages {
		v.NextURL = listingURL(rel, page+1, search)
	}
	for _, e := range res.Entries {
		p := joinRel(rel, e.Name)
		ev := entryView{
			Entry:     e,
			Path:      p,
			URL:       routeURL("/", p),
			RenameURL: routeURL("/rename/", p),
			DeleteURL: routeURL("/delete/", p),
		}
		if e.IsDir {
			ev.ZipURL = routeURL("/download-folder/", p)
		}
		if !e.IsDir && !s.cfg.DisableThumbnails && listing.IsImage(e.Name) {
			ev.Thumb = routeURL(reservedPrefix+"/thumb/", p)
		}
		v.Entries = append(v.Entries, ev)
	}
	if !s.cfg.DisableReadme {
		v.Readme = s.readme(abs)
	}
	s.render(w, http.StatusOK, "index.html", v)
}

func (s *Server) serveFile(w http.ResponseWriter, r *http.Request, abs string) {
	f, err := s.fs.Open(abs)
	if err != nil {
		http.Error(w, "open failed", http.StatusInternalServerError)
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		http.Error(w, "stat failed", http.StatusInternalServerError)
		return
	}
	if ct := listing.ContentType(st.Name()); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, st.Name(), st.ModTime(), f)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	_, rel := s.resolve(r)
	back := listingURL(rel, 0, "")

	if err := r.ParseMultipartForm(s.cfg.MaxUploadMemory); err != nil {
		lgr.Printf("[WARN] upload to %q: %v", rel, err)
		redirectWithFlash(w, r, back, "No files uploaded")
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	files := r.MultipartForm.File["file"]
	saved := 0
	for _, fh := range files {
		if fh.Filename == "" {
			continue
		}
		src, err := fh.Open()
		if err != nil {
			redirectWithFlash(w, r, back, "Upload failed: "+err.Error())
			return
		}
		name, err := s.ops.Save(rel, fh.Filename, src)
		_ = src.Close()
		if err != nil {
			lgr.Printf("[WARN] upload %q to %q: %v", fh.Filename, rel, err)
			redirectWithFlash(w, r, back, "Upload failed: "+fsops.MessageOf(err))
			return
		}
		lgr.Printf("[INFO] uploaded %s (%d bytes)", joinRel(rel, name), fh.Size)
		saved++
	}
	if saved == 0 {
		redirectWithFlash(w, r, back, "No files uploaded")
		return
	}
	redirectWithFlash(w, r, back, "Upload successful")
}

func (s *Server) handleMkdir(w http.ResponseWriter, r *http.Request) {
	_, rel := s.resolve(r)
	back := listingURL(rel, 0, "")

	name, err := s.ops.Mkdir(rel, r.FormValue("foldername"))
	if err != nil {
		if fsops.KindOf(err) == fsops.KindIO {
			lgr.Printf("[WARN] %v", err)
			redirectWithFlash(w, r, back, "Error creating folder: "+fsops.MessageOf(err))
			return
		}
		redirectWithFlash(w, r, back, fsops.MessageOf(err))
		return
	}
	lgr.Printf("[INFO] created folder %s", joinRel(rel, name))
	redirectWithFlash(w, r, back, fmt.Sprintf("Folder '%s' created", name))
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Src string `json:"src"`
		Dst string `json:"dst"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		rest.SendErrorJSON(w, r, lgr.Default(), http.StatusBadRequest, err, "Invalid JSON body")
		return
	}
	if err := s.ops.Move(req.Src, req.Dst); err != nil {
		code := http.StatusInternalServerError
		if fsops.KindOf(err) == fsops.KindInvalid {
			code = http.StatusBadRequest
		}
		rest.SendErrorJSON(w, r, lgr.Default(), code, err, fsops.MessageOf(err))
		return
	}
	lgr.Printf("[INFO] moved %q into %q", req.Src, req.Dst)
	rest.RenderJSON(w, rest.JSON{"success": true})
}

func (s *Server) handleDownloadFolder(w http.ResponseWriter, r *http.Request) {
	abs, rel := s.resolve(r)
	st, err := s.fs.Stat(abs)
	if err != nil || !st.IsDir() {
		http.Error(w, "Not a folder", http.StatusBadRequest)
		return
	}

	name := filepath.Base(abs) + ".zip"
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	start := time.Now()
	if err := archive.WriteZip(r.Context(), s.fs, abs, w); err != nil {
		// headers and part of the body are already out
		lgr.Printf("[WARN] zip %q aborted: %v", rel, err)
		return
	}
	lgr.Printf("[INFO] zipped %q in %v", rel, time.Since(start).Round(time.Millisecond))
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	_, rel := s.resolve(r)
	back := listingURL(parentRel(rel), 0, "")

	if err := s.ops.Delete(rel); err != nil {
		lgr.Printf("[WARN] %v", err)
		redirectWithFlash(w, r, back, "Error deleting: "+fsops.MessageOf(err))
		return
	}
	lgr.Printf("[INFO] deleted %s", rel)
	redirectWithFlash(w, r, back, fmt.Sprintf("Deleted '%s'", rel))
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	_, rel := s.resolve(r)
	back := listingURL(parentRel(rel), 0, "")

	name, err := s.ops.Rename(rel, r.FormValue("newname"))
	if err != nil {
		if fsops.KindOf(err) == fsops.KindInvalid {
			redirectWithFlash(w, r, back, fsops.MessageOf(err))
			return
		}
		lgr.Printf("[WARN] %v", err)
		redirectWithFlash(w, r, back, "Error renaming: "+fsops.MessageOf(err))
		return
	}
	lgr.Printf("[INFO] renamed %s to %s", rel, name)
	redirectWithFlash(w, r, back, fmt.Sprintf("Renamed to '%s'", name))
}
