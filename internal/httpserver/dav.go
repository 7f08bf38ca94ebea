package httpserver

import (
	"net/http"

	"github.com/go-pkgz/lgr"
	"golang.org/x/net/webdav"

	"nasdrive/internal/auth"
)

const davPrefix = reservedPrefix + "/dav"

// davHandler exposes Root over WebDAV. Browsers with a session cookie get in
// directly; DAV clients authenticate with Basic credentials.
func (s *Server) davHandler() http.Handler {
	dav := &webdav.Handler{
		Prefix:     davPrefix,
		FileSystem: webdav.Dir(s.cfg.Root),
		LockSystem: webdav.NewMemLS(),
		Logger: func(r *http.Request, err error) {
			if err != nil {
				lgr.Printf("[WARN] webdav %s %s: %v", r.Method, r.URL.Path, err)
			}
		},
	}
	return auth.RequireSessionOrBasic(s.sessions, s.creds, "nasdrive", dav)
}
