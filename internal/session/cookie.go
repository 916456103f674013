package session

import (
	"fmt"
	"net/http"
	"time"

	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jws"
)

const (
	CookieName = "shopline_lab_session"
)

// Cookies binds browsers to session ids. The cookie value is a compact
// HS256 JWS over the id, so ids cannot be forged or chosen by clients.
type Cookies struct {
	secret []byte
	maxAge time.Duration
	secure bool
}

func NewCookies(secret string, maxAge time.Duration, secure bool) *Cookies {
	return &Cookies{
		secret: []byte(secret),
		maxAge: maxAge,
		secure: secure,
	}
}

// ID returns the session id carried by the request, or "" when the cookie
// is missing or its signature does not verify.
func (c *Cookies) ID(r *http.Request) string {
	ck, err := r.Cookie(CookieName)
	if err != nil || ck.Value == "" {
		return ""
	}
	payload, err := jws.Verify([]byte(ck.Value), jws.WithKey(jwa.HS256(), c.secret))
	if err != nil {
		return ""
	}
	return string(payload)
}

// Ensure returns the request's session id, issuing a new cookie when the
// request has none.
func (c *Cookies) Ensure(w http.ResponseWriter, r *http.Request) (string, error) {
	if id := c.ID(r); id != "" {
		return id, nil
	}
	id, err := newID()
	if err != nil {
		return "", err
	}
	signed, err := jws.Sign([]byte(id), jws.WithKey(jwa.HS256(), c.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session cookie: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    string(signed),
		Path:     "/",
		MaxAge:   int(c.maxAge.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return id, nil
}

func (c *Cookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
