package model

import "time"

// Credential holds a service credential key-value pair. Service identifies
// the external system ("tgtg"), and Key identifies the credential type
// within that service ("access_token", "refresh_token").
type Credential struct {
	ID        int64
	Service   string
	Key       string
	Value     string
	UpdatedAt time.Time
}

// Well-known credential keys under the "tgtg" service.
const (
	CredentialServiceTGTG = "tgtg"

	CredentialKeyAccessToken  = "access_token"
	CredentialKeyRefreshToken = "refresh_token"
	CredentialKeyUserID       = "user_id"
	CredentialKeyCookie       = "cookie" // datadome anti-bot cookie
	CredentialKeyEmail        = "email"  // address the token set was issued for
)

// TokenSet is the full set of values needed to call the TGTG API as a user.
// Assembled from individual credentials at the domain boundary.
type TokenSet struct {
	AccessToken  string
	RefreshToken string
	UserID       string
	Cookie       string
}

// Usable reports whether the set is complete enough for API calls.
// The cookie is optional at first; the API hands one out on the first request.
func (t TokenSet) Usable() bool {
	return t.AccessToken != "" && t.RefreshToken != "" && t.UserID != ""
}
