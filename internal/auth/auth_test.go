package auth

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"nasdrive/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)
	return config.Config{
		Username:       "admin",
		PasswordBcrypt: string(h),
		SessionKeys:    []config.SessionKey{{ID: "k1", Secret: "first-secret"}},
		SessionTTL:     config.Duration{Duration: time.Hour},
	}
}

func TestCredentials(t *testing.T) {
	c := NewCredentials(testConfig(t))
	assert.True(t, c.Check("admin", "s3cret"))
	assert.False(t, c.Check("admin", "wrong"))
	assert.False(t, c.Check("other", "s3cret"))
	assert.False(t, c.Check("", ""))
}

func TestSessions_IssueVerify(t *testing.T) {
	s, err := NewSessions(testConfig(t))
	require.NoError(t, err)

	tok, err := s.Issue("admin")
	require.NoError(t, err)
	user, err := s.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "admin", user)

	_, err = s.Verify(tok + "x")
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = s.Verify("")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_Expiry(t *testing.T) {
	s, err := NewSessions(testConfig(t))
	require.NoError(t, err)
	now := time.Now()
	s.now = func() time.Time { return now }

	tok, err := s.Issue("admin")
	require.NoError(t, err)

	s.now = func() time.Time { return now.Add(2 * time.Hour) }
	_, err = s.Verify(tok)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessions_KeyRotation(t *testing.T) {
	oldCfg := testConfig(t)
	oldS, err := NewSessions(oldCfg)
	require.NoError(t, err)
	oldTok, err := oldS.Issue("admin")
	require.NoError(t, err)

	// new key prepended: old tokens still verify, new tokens use the new key
	rotated := oldCfg
	rotated.SessionKeys = []config.SessionKey{{ID: "k2", Secret: "second-secret"}, oldCfg.SessionKeys[0]}
	s, err := NewSessions(rotated)
	require.NoError(t, err)
	_, err = s.Verify(oldTok)
	require.NoError(t, err)
	newTok, err := s.Issue("admin")
	require.NoError(t, err)
	_, err = oldS.Verify(newTok)
	assert.ErrorIs(t, err, ErrNoSession, "old key set must not know k2")

	// old key dropped: old tokens are rejected
	dropped := oldCfg
	dropped.SessionKeys = []config.SessionKey{{ID: "k2", Secret: "second-secret"}}
	s2, err := NewSessions(dropped)
	require.NoError(t, err)
	_, err = s2.Verify(oldTok)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = s2.Verify(newTok)
	assert.NoError(t, err)
}

func TestSessions_RandomKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionKeys = nil
	s, err := NewSessions(cfg)
	require.NoError(t, err)
	tok, err := s.Issue("admin")
	require.NoError(t, err)
	_, err = s.Verify(tok)
	assert.NoError(t, err)
}

func TestRequireSession(t *testing.T) {
	s, err := NewSessions(testConfig(t))
	require.NoError(t, err)
	h := RequireSession(s, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("hello " + UserFromContext(r.Context())))
	}))

	t.Run("no cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/docs/a.txt?page=2", http.NoBody))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login?next=%2Fdocs%2Fa.txt%3Fpage%3D2", rec.Header().Get("Location"))
	})

	t.Run("root", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/login", rec.Header().Get("Location"))
	})

	t.Run("valid cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		require.NoError(t, s.SetCookie(rec, "admin"))
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "hello admin", rec.Body.String())
	})

	t.Run("cleared cookie", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.ClearCookie(rec)
		ck := rec.Result().Cookies()
		require.Len(t, ck, 1)
		assert.Equal(t, CookieName, ck[0].Name)
		assert.Empty(t, ck[0].Value)
		assert.Negative(t, ck[0].MaxAge)
	})
}

func TestRequireSessionOrBasic(t *testing.T) {
	cfg := testConfig(t)
	s, err := NewSessions(cfg)
	require.NoError(t, err)
	h := RequireSessionOrBasic(s, NewCredentials(cfg), "nasdrive", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	basic := func(u, p string) string {
		return "Basic " + base64.StdEncoding.EncodeToString([]byte(u+":"+p))
	}

	req := httptest.NewRequest("PROPFIND", "/dav/", http.NoBody)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Header().Get("WWW-Authenticate"), "Basic")

	req.Header.Set("Authorization", basic("admin", "nope"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req.Header.Set("Authorization", basic("admin", "s3cret"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestSafeNext(t *testing.T) {
	tbl := map[string]string{
		"":                    "/",
		"/":                   "/",
		"/docs/a.txt?page=2":  "/docs/a.txt?page=2",
		"//evil.com":          "/",
		"/\\evil.com":         "/",
		"https://evil.com/x":  "/",
		"docs":                "/",
		"javascript:alert(1)": "/",
	}
	for in, want := range tbl {
		assert.Equal(t, want, SafeNext(in), in)
	}
}

func TestParseBasicAuth(t *testing.T) {
	u, p, ok := parseBasicAuth("Basic " + base64.StdEncoding.EncodeToString([]byte("a:b:c")))
	require.True(t, ok)
	assert.Equal(t, "a", u)
	assert.Equal(t, "b:c", p)

	for _, v := range []string{"", "Bearer x", "Basic !!!", "Basic " + base64.StdEncoding.EncodeToString([]byte("nocolon")),
		"Basic " + base64.StdEncoding.EncodeToString([]byte(":pw"))} {
		_, _, ok := parseBasicAuth(v)
		assert.False(t, ok, v)
	}
}
