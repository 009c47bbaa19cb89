package web

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
)

// Double-submit cookie scheme: every GET page handler plants a random token
// cookie, csrf.js copies it into the hidden form fields, and every POST
// action compares both copies. No server side state is involved.
const (
	csrfCookieName = "tgtg_csrf"
	csrfFormField  = "csrf_token"
	csrfHeaderName = "X-CSRF-Token"
)

// csrfToken plants the token cookie unless the request already carries one.
// HttpOnly stays off so csrf.js can read the cookie; Secure stays off because
// the panel serves plain HTTP behind the Home Assistant ingress.
func csrfToken(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(csrfCookieName); err == nil && cookie.Value != "" {
		return
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		panic("csrf: token entropy unavailable: " + err.Error())
	}

	http.SetCookie(w, &http.Cookie{
		Name:     csrfCookieName,
		Value:    hex.EncodeToString(raw),
		Path:     "/",
		SameSite: http.SameSiteStrictMode,
	})
}

// validateCSRF reports whether the request's submitted token matches the
// cookie. The header wins over the form field so fetch-based callers do not
// need a body rewrite.
func validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	submitted := r.Header.Get(csrfHeaderName)
	if submitted == "" {
		submitted = r.FormValue(csrfFormField)
	}
	if submitted == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(submitted), []byte(cookie.Value)) == 1
}
