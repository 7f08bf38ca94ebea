package httpserver

import (
	"bytes"
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pkgz/lgr"
)

func parseTemplates() (*template.Template, error) {
	funcs := template.FuncMap{
		"humanSize": func(n int64) string {
			if n < 0 {
				n = 0
			}
			return humanize.IBytes(uint64(n))
		},
		"datetime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format("2006-01-02 15:04:05")
		},
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
	}
	return template.New("").Funcs(funcs).ParseFS(embeddedWeb, "web/templates/*.html")
}

// render buffers the template so a failure still yields a clean 500.
func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := s.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		lgr.Printf("[ERROR] render %s: %v", name, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// routeURL builds an escaped URL for a route prefix ("/", "/upload/", ...)
// followed by a root-relative path.
func routeURL(prefix, rel string) string {
	return (&url.URL{Path: prefix + rel}).EscapedPath()
}

// listingURL points at the listing of rel; an optional page and search are
// kept as query parameters.
func listingURL(rel string, page int, search string) string {
	u := routeURL("/", rel)
	q := url.Values{}
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}
	if search != "" {
		q.Set("search", search)
	}
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	return u
}

func joinRel(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

func parentRel(rel string) string {
	p := path.Dir(rel)
	if p == "." || p == "/" {
		return ""
	}
	return p
}

type crumb struct {
	Name string
	URL  string
}

func breadcrumbs(rel string) []crumb {
	res := []crumb{{Name: "Home", URL: "/"}}
	if rel == "" {
		return res
	}
	acc := ""
	for _, part := range strings.Split(rel, "/") {
		acc = joinRel(acc, part)
		res = append(res, crumb{Name: part, URL: routeURL("/", acc)})
	}
	return res
}
