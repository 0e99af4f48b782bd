package auth

import "time"

type User struct {
	ID           string
	Email        string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Tokens struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Identity is the verified result of a credential check. It is built only
// from claims the Verifier accepted, never from request bodies, and the raw
// token is retained so logout can revoke it.
type Identity struct {
	Subject string
	Email   string
	Token   string
}
