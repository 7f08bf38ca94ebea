package httpserver

import (
	"encoding/base64"
	"net/http"
)

const flashCookie = "nasdrive_flash"

// setFlash leaves a one-shot status message for the next page render.
func setFlash(w http.ResponseWriter, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(msg)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending message, if any, and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	ck, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, HttpOnly: true})
	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return ""
	}
	return string(b)
}

// redirectWithFlash answers a form post: status message, then back to a
// listing page.
func redirectWithFlash(w http.ResponseWriter, r *http.Request, to, msg string) {
	setFlash(w, msg)
	http.Redirect(w, r, to, http.StatusSeeOther)
}
