package api

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/auth"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// operatorKey is the context key for the verified operator claims.
const operatorKey ctxKey = "operator"

// GetOperator returns the authenticated operator from context.
// Returns 401 error if the request carried no valid token.
func GetOperator(ctx context.Context) (*auth.OperatorClaims, error) {
	claims, ok := ctx.Value(operatorKey).(*auth.OperatorClaims)
	if !ok || claims == nil {
		return nil, huma.Error401Unauthorized("Authentication required")
	}
	return claims, nil
}

// setOperator stores the operator claims in context.
func setOperator(ctx context.Context, claims *auth.OperatorClaims) context.Context {
	return context.WithValue(ctx, operatorKey, claims)
}

// authMiddleware returns a middleware that validates Bearer tokens and stores
// the operator in context. Requests without a valid token continue anonymously;
// handlers use GetOperator to reject them.
func authMiddleware(tokens *auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(setOperator(r.Context(), claims)))
		})
	}
}

// RequireOperator validates the caller is an authenticated operator holding
// one of roles. With no roles any operator passes.
func (s *Server) RequireOperator(ctx context.Context, roles ...auth.Role) (*auth.OperatorClaims, error) {
	claims, err := GetOperator(ctx)
	if err != nil {
		return nil, err
	}
	if len(roles) > 0 && !slices.Contains(roles, claims.Role) {
		return nil, domainerrors.Forbiddenf("operator role %q may not call this endpoint", claims.Role)
	}
	return claims, nil
}

// RequireBot validates the caller is the chat transport acting for users.
func (s *Server) RequireBot(ctx context.Context) error {
	_, err := s.RequireOperator(ctx, auth.RoleBot)
	return err
}

// RequireAdmin validates the operator token and that actorID currently holds
// admin rights. Returns the trimmed actor id.
func (s *Server) RequireAdmin(ctx context.Context, actorID string) (string, error) {
	if _, err := s.RequireOperator(ctx); err != nil {
		return "", err
	}
	actorID = strings.TrimSpace(actorID)
	if err := s.services.Admins.Authorize(ctx, actorID); err != nil {
		return "", err
	}
	return actorID, nil
}

// RequireOwner is RequireAdmin restricted to configured owners.
func (s *Server) RequireOwner(ctx context.Context, actorID string) (string, error) {
	actorID, err := s.RequireAdmin(ctx, actorID)
	if err != nil {
		return "", err
	}
	if err := s.services.Admins.AuthorizeOwner(actorID); err != nil {
		return "", err
	}
	return actorID, nil
}
