package auth

import (
	"fmt"
	"time"
)

// Role is what an operator token may do.
type Role string

const (
	// RoleBot is held by the chat transport adapter. It may act on behalf of
	// chat users and forward admin commands, which are then checked against
	// the admin list.
	RoleBot Role = "bot"
	// RoleAdmin is held by admin tooling. Admin endpoints still require an
	// acting admin id.
	RoleAdmin Role = "admin"
)

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleBot, RoleAdmin:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown operator role %q", s)
	}
}

// OperatorClaims are the claims carried in a v4.local operator token.
// The token is encrypted, so they are opaque to the holder.
type OperatorClaims struct {
	Operator string `json:"operator"`
	Role     Role   `json:"role"`

	Issuer     string    `json:"iss"`
	Subject    string    `json:"sub"`
	Audience   string    `json:"aud"`
	Expiration time.Time `json:"exp"`
	NotBefore  time.Time `json:"nbf"`
	IssuedAt   time.Time `json:"iat"`
	TokenID    string    `json:"jti"`
}
