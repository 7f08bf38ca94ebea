package httpserver

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-pkgz/lcw/v2"
	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"
	"github.com/spf13/afero"
	"github.com/yuin/goldmark"

	"nasdrive/internal/auth"
	"nasdrive/internal/config"
	"nasdrive/internal/fsops"
	"nasdrive/internal/listing"
)

type Options struct {
	Config  config.Config
	Version string
	// FS is where Root lives. Default: the OS filesystem.
	FS afero.Fs
}

type Server struct {
	cfg      config.Config
	version  string
	fs       afero.Fs
	ops      *fsops.Ops
	sessions *auth.Sessions
	creds    auth.Credentials
	hidden   []string

	tmpl     *template.Template
	staticFS fs.FS
	markdown goldmark.Markdown
	thumbs   lcw.LoadingCache[[]byte]
}

// Endpoints outside the file tree live under reservedPrefix. SanitizeName never
// yields a dot-name and listings hide reservedDir.
const (
	reservedDir    = ".nasdrive"
	reservedPrefix = "/" + reservedDir
)

//go:embed web/templates/*.html web/static/*
var embeddedWeb embed.FS

func New(opts Options) (*Server, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	sessions, err := auth.NewSessions(opts.Config)
	if err != nil {
		return nil, err
	}
	tmpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}
	static, err := fs.Sub(embeddedWeb, "web/static")
	if err != nil {
		return nil, err
	}
	hidden := opts.Config.Hidden
	if hidden == nil {
		hidden = listing.DefaultHidden
	}
	hidden = append(append([]string(nil), hidden...), reservedDir)

	thumbs, err := lcw.NewLruCache(lcw.NewOpts[[]byte]().MaxKeys(512))
	if err != nil {
		return nil, err
	}
	return &Server{
		cfg:      opts.Config,
		version:  opts.Version,
		fs:       fsys,
		ops:      fsops.New(fsys, opts.Config.Root),
		sessions: sessions,
		creds:    auth.NewCredentials(opts.Config),
		hidden:   hidden,
		tmpl:     tmpl,
		staticFS: static,
		markdown: newMarkdown(),
		thumbs:   thumbs,
	}, nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	router := routegroup.New(mux)
	router.Use(rest.Recoverer(lgr.Default()), rest.RealIP)
	router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	router.Use(rest.AppInfo("nasdrive", "nasdrive", s.version), withHeaders)

	// public
	router.HandleFunc("GET "+reservedPrefix+"/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "ok\n")
	})
	router.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(s.staticFS))))
	router.HandleFunc("GET /login", s.handleLoginPage)
	router.HandleFunc("POST /login", s.handleLoginSubmit)

	// everything else needs a session
	router.Group().Route(func(b *routegroup.Bundle) {
		b.Use(s.sessions.Middleware)
		b.HandleFunc("GET /logout", s.handleLogout)
		b.HandleFunc("GET /{path...}", s.handleIndex)
		b.HandleFunc("POST /upload/{path...}", s.handleUpload)
		b.HandleFunc("POST /mkdir/{path...}", s.handleMkdir)
		b.HandleFunc("POST /move", s.handleMove)
		b.HandleFunc("GET /download-folder/{path...}", s.handleDownloadFolder)
		b.HandleFunc("POST /delete/{path...}", s.handleDelete)
		b.HandleFunc("POST /rename/{path...}", s.handleRename)
		if !s.cfg.DisableThumbnails {
			b.HandleFunc("GET "+reservedPrefix+"/thumb/{path...}", s.handleThumb)
		}
	})

	if s.cfg.DisableWebDAV {
		return router
	}
	// WebDAV speaks methods ServeMux patterns can't enumerate, so it is
	// dispatched ahead of the router.
	dav := rest.Recoverer(lgr.Default())(withHeaders(s.davHandler()))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == davPrefix || strings.HasPrefix(r.URL.Path, davPrefix+"/") {
			dav.ServeHTTP(w, r)
			return
		}
		router.ServeHTTP(w, r)
	})
}

func withHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Basic hardening / UX.
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")

		if strings.HasPrefix(r.URL.Path, "/static/") {
			w.Header().Set("Cache-Control", "public, max-age=3600")
		} else {
			w.Header().Set("Cache-Control", "no-store")
		}
		next.ServeHTTP(w, r)
	})
}
