package httpserver

import (
	"net/http"

	"github.com/go-pkgz/lgr"

	"nasdrive/internal/auth"
)

type loginView struct {
	Next  string
	Error string
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := auth.SafeNext(r.URL.Query().Get("next"))
	if _, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	s.render(w, http.StatusOK, "login.html", loginView{Next: next})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	next := r.PostForm.Get("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	next = auth.SafeNext(next)

	user := r.PostForm.Get("username")
	if !s.creds.Check(user, r.PostForm.Get("password")) {
		lgr.Printf("[WARN] failed login for %q from %s", user, r.RemoteAddr)
		s.render(w, http.StatusOK, "login.html", loginView{Next: next, Error: "Invalid username or password."})
		return
	}
	if err := s.sessions.SetCookie(w, user); err != nil {
		lgr.Printf("[ERROR] issue session: %v", err)
		http.Error(w, "session failed", http.StatusInternalServerError)
		return
	}
	lgr.Printf("[INFO] %s logged in from %s", user, r.RemoteAddr)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
