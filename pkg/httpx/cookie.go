package httpx

import (
	"net/http"
	"time"
)

// CookieConfig describes how one token travels as a cookie.
type CookieConfig struct {
	Name     string
	MaxAge   int // seconds
	Path     string
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
}

// NewCookieConfig returns the only cookie shape we hand out: HttpOnly,
// Secure, SameSite=Strict, scoped to the whole site.
func NewCookieConfig(name string, maxAge int) CookieConfig {
	return CookieConfig{
		Name:     name,
		MaxAge:   maxAge,
		Path:     "/",
		HTTPOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	}
}

func (c CookieConfig) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     c.Path,
		MaxAge:   maxAge,
		HttpOnly: c.HTTPOnly,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// SetCookie writes token under cfg.
func SetCookie(w http.ResponseWriter, cfg CookieConfig, token string) {
	http.SetCookie(w, cfg.cookie(token, cfg.MaxAge))
}

// ClearCookie tells the browser to drop the cookie. The attributes must
// match the ones it was set with or browsers keep the original.
func ClearCookie(w http.ResponseWriter, cfg CookieConfig) {
	c := cfg.cookie("", -1) // net/http renders -1 as Max-Age=0
	c.Expires = time.Unix(0, 0)
	http.SetCookie(w, c)
}

// ReadCookie returns the named cookie's value. Missing and empty are the
// same thing.
func ReadCookie(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}
