package pasetotoken

import "time"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims is the app-facing token payload. The role is not carried: it is
// read from the profile on every request.
type Claims struct {
	Type TokenType

	UserID    string
	Email     string
	SessionID string

	Issuer   string
	Audience string

	IssuedAt    time.Time
	NotBefore   time.Time
	ExpiresAt   time.Time
	TokenID     string // jti
	Subject     string
	RawClaimsJS []byte
}

func (c *Claims) GetUserID() string { return c.UserID }

func (c *Claims) GetSessionID() string { return c.SessionID }

func (c *Claims) GetTokenType() string { return string(c.Type) }

func (c *Claims) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
