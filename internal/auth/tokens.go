package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"

	"github.com/pointsbot/pointsbot-server/internal/id"
)

const (
	tokenIssuer   = "pointsbot-server"
	tokenAudience = "pointsbot-operator"
)

// TokenService issues and verifies PASETO v4.local operator tokens.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	ttl          time.Duration
	now          func() time.Time
}

// NewTokenService creates a token service from a 32-byte key.
func NewTokenService(key []byte, ttl time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}
	if ttl <= 0 {
		return nil, errors.New("token lifetime must be positive")
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}
	return &TokenService{symmetricKey: symmetricKey, ttl: ttl, now: time.Now}, nil
}

// Issue creates a token for operator with role, returning it and its expiry.
func (s *TokenService) Issue(operator string, role Role) (string, time.Time, error) {
	if operator == "" {
		return "", time.Time{}, errors.New("operator name is required")
	}
	if _, err := ParseRole(string(role)); err != nil {
		return "", time.Time{}, err
	}

	now := s.now()
	expires := now.Add(s.ttl)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(operator)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expires)

	tokenID, err := id.Generate("tok")
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on values that cannot be marshalled
	_ = token.Set("operator", operator)
	//nolint:errcheck // Token.Set only errors on values that cannot be marshalled
	_ = token.Set("role", string(role))

	return token.V4Encrypt(s.symmetricKey, nil), expires, nil
}

// Verify decrypts and validates a token, returning its claims.
func (s *TokenService) Verify(tokenString string) (*OperatorClaims, error) {
	now := s.now()

	parser := paseto.NewParserWithoutExpiryCheck()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.ValidAt(now))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims OperatorClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if _, err := ParseRole(string(claims.Role)); err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	return &claims, nil
}

