package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/auth"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "issueToken",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/token",
		Summary:     "Issue operator token",
		Description: "Exchanges an operator name and secret for a PASETO bearer token. Rate limited per client IP.",
		Tags:        []string{tagAuth},
	}, s.handleIssueToken)

	huma.Register(s.api, huma.Operation{
		OperationID: "whoami",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/me",
		Summary:     "Current operator",
		Description: "Returns the operator and role carried by the bearer token",
		Tags:        []string{tagAuth},
		Security:    bearerSecurity,
	}, s.handleWhoAmI)
}

// === DTOs ===

// TokenRequest is the request body for a token exchange.
type TokenRequest struct {
	Operator string `json:"operator" minLength:"1" maxLength:"64" doc:"Configured operator name"`
	Secret   string `json:"secret" minLength:"1" maxLength:"1024" doc:"Operator secret"`
}

// TokenInput wraps the token request for Huma.
type TokenInput struct {
	Body TokenRequest
}

// TokenResponse carries a freshly issued token.
type TokenResponse struct {
	Token     string    `json:"token" doc:"PASETO v4.local bearer token"`
	Role      auth.Role `json:"role" doc:"Operator role: bot or admin"`
	ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
}

// TokenOutput wraps the token response for Huma.
type TokenOutput struct {
	Body TokenResponse
}

// OperatorResponse describes the calling operator.
type OperatorResponse struct {
	Operator  string    `json:"operator" doc:"Operator name"`
	Role      auth.Role `json:"role" doc:"Operator role"`
	ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
}

// OperatorOutput wraps the operator response for Huma.
type OperatorOutput struct {
	Body OperatorResponse
}

// === Handlers ===

func (s *Server) handleIssueToken(_ context.Context, input *TokenInput) (*TokenOutput, error) {
	role, ok := s.operators.Authenticate(input.Body.Operator, input.Body.Secret)
	if !ok {
		s.logger.Warn("operator authentication failed", "operator", input.Body.Operator)
		return nil, domainerrors.Unauthorized("invalid operator credentials")
	}

	token, expires, err := s.tokens.Issue(input.Body.Operator, role)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to issue token")
	}

	s.logger.Info("operator token issued", "operator", input.Body.Operator, "role", role)
	return &TokenOutput{Body: TokenResponse{Token: token, Role: role, ExpiresAt: expires}}, nil
}

func (s *Server) handleWhoAmI(ctx context.Context, _ *struct{}) (*OperatorOutput, error) {
	claims, err := s.RequireOperator(ctx)
	if err != nil {
		return nil, err
	}
	return &OperatorOutput{Body: OperatorResponse{
		Operator:  claims.Operator,
		Role:      claims.Role,
		ExpiresAt: claims.Expiration,
	}}, nil
}
