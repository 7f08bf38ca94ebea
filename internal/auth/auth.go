package auth

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"nasdrive/internal/config"
)

type ctxKey string

const userKey ctxKey = "nasdrive.user"

func UserFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userKey).(string)
	return v
}

func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Credentials holds the single shared login.
type Credentials struct {
	user string
	hash []byte
}

func NewCredentials(cfg config.Config) Credentials {
	return Credentials{user: cfg.Username, hash: []byte(cfg.PasswordBcrypt)}
}

// Check compares user and password against the configured login.
func (c Credentials) Check(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.user)) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := bcrypt.CompareHashAndPassword(c.hash, []byte(pass)) == nil
	return userOK && passOK
}

// RequireSession lets requests with a valid session cookie through and sends
// everything else to the login page, remembering where it was headed.
func RequireSession(s *Sessions, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.FromRequest(r)
		if err != nil {
			http.Redirect(w, r, LoginURL(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Middleware is RequireSession in the func(http.Handler) http.Handler shape
// used by routegroup.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return RequireSession(s, next)
}

// RequireSessionOrBasic accepts a session cookie or HTTP Basic credentials and
// answers with a Basic challenge otherwise. Used for WebDAV clients.
func RequireSessionOrBasic(s *Sessions, creds Credentials, realm string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, err := s.FromRequest(r); err == nil {
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
			return
		}
		u, p, ok := parseBasicAuth(r.Header.Get("Authorization"))
		if !ok || !creds.Check(u, p) {
			deny(w, realm)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}

// LoginURL is the login page with next set to target.
func LoginURL(target string) string {
	if target == "" || target == "/" {
		return "/login"
	}
	return "/login?next=" + url.QueryEscape(target)
}

// SafeNext returns next if it is a local absolute path, "/" otherwise.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if u, err := url.Parse(next); err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	return next
}

func deny(w http.ResponseWriter, realm string) {
	w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`"`)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func parseBasicAuth(v string) (user, pass string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(v, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(strings.TrimPrefix(v, prefix)))
	if err != nil {
		return "", "", false
	}
	s := string(raw)
	i := strings.IndexByte(s, ':')
	if i < 0 {
		return "", "", false
	}
	u := s[:i]
	p := s[i+1:]
	if u == "" {
		return "", "", false
	}
	if strings.Contains(u, "\x00") || strings.Contains(p, "\x00") {
		return "", "", false
	}
	return u, p, true
}
