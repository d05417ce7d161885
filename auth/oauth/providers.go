package oauth

import "time"

// TokenResponse is the client-credentials grant response body.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`

	IssuedAt  time.Time `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// IsExpired reports whether the token is past its ExpiresAt, so a caller
// holding one can decide whether it still needs a fresh Token() call.
func (t *TokenResponse) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}
