package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"nasdrive/internal/config"
)

// CookieName carries the signed session token.
const CookieName = "nasdrive_session"

var ErrNoSession = errors.New("no valid session")

type claims struct {
	LoggedIn bool `json:"loggedIn"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies session tokens. Keys are tried by "kid"; the
// first configured key signs new tokens, the rest only verify, so a key can be
// rotated out by prepending a new one and dropping the old one after one TTL.
type Sessions struct {
	keys         []config.SessionKey
	byID         map[string][]byte
	ttl          time.Duration
	secureCookie bool
	now          func() time.Time
}

func NewSessions(cfg config.Config) (*Sessions, error) {
	keys := cfg.SessionKeys
	if len(keys) == 0 {
		k, err := randomKey()
		if err != nil {
			return nil, err
		}
		lgr.Printf("[WARN] no session keys configured, generated a random one; sessions will not survive a restart")
		keys = []config.SessionKey{k}
	}
	s := &Sessions{
		keys:         keys,
		byID:         make(map[string][]byte, len(keys)),
		ttl:          cfg.SessionTTL.Duration,
		secureCookie: cfg.SecureCookie,
		now:          time.Now,
	}
	for _, k := range keys {
		if k.Secret == "" {
			return nil, fmt.Errorf("session key %q: empty secret", k.ID)
		}
		if _, dup := s.byID[k.ID]; dup {
			return nil, fmt.Errorf("session key %q: duplicate id", k.ID)
		}
		s.byID[k.ID] = []byte(k.Secret)
	}
	if s.ttl <= 0 {
		s.ttl = config.DefaultSessionTTL
	}
	return s, nil
}

func randomKey() (config.SessionKey, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return config.SessionKey{}, fmt.Errorf("generate session key: %w", err)
	}
	return config.SessionKey{ID: uuid.NewString(), Secret: base64.StdEncoding.EncodeToString(b)}, nil
}

// Issue returns a signed token marking user as logged in.
func (s *Sessions) Issue(user string) (string, error) {
	now := s.now()
	signer := s.keys[0]
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		LoggedIn: true,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	})
	tok.Header["kid"] = signer.ID
	return tok.SignedString([]byte(signer.Secret))
}

// Verify checks signature, expiry and the logged-in flag, returning the user.
func (s *Sessions) Verify(token string) (string, error) {
	var c claims
	_, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := s.byID[kid]
		if !ok {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoSession, err)
	}
	if !c.LoggedIn {
		return "", ErrNoSession
	}
	return c.Subject, nil
}

// FromRequest verifies the session cookie of r.
func (s *Sessions) FromRequest(r *http.Request) (string, error) {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return "", ErrNoSession
	}
	return s.Verify(ck.Value)
}

// SetCookie issues a token for user and attaches it to the response.
func (s *Sessions) SetCookie(w http.ResponseWriter, user string) error {
	tok, err := s.Issue(user)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearCookie expires the session cookie.
func (s *Sessions) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
