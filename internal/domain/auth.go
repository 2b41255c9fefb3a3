package domain

import "time"

// Identity is the authenticated caller as asserted by a validated token.
type Identity struct {
	UserID    string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

// AuthResult is returned by register and login.
type AuthResult struct {
	Token     string
	Role      Role
	ExpiresAt time.Time
}
