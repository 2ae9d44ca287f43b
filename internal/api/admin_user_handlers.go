package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerAdminUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "adminGetUser",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/users/{id}",
		Summary:     "Get user",
		Description: "Returns any user's profile, including banned users",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleAdminGetUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "setUserBanned",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/users/{id}/ban",
		Summary:     "Ban or unban user",
		Description: "Banned users cannot redeem keys, claim items or complete a referral",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleSetUserBanned)

	huma.Register(s.api, huma.Operation{
		OperationID: "adjustPoints",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/users/{id}/points",
		Summary:     "Adjust points",
		Description: "Grants (positive delta) or deducts (negative delta) points. Balances never go below zero.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleAdjustPoints)
}

// === DTOs ===

// AdminUserInput selects a user for an admin command.
type AdminUserInput struct {
	ActorHeader
	ID string `path:"id" doc:"Chat platform user id"`
}

// BanRequest is the request body for banning or unbanning.
type BanRequest struct {
	Banned bool `json:"banned" doc:"true to ban, false to lift the ban"`
}

// SetUserBannedInput wraps the ban request for Huma.
type SetUserBannedInput struct {
	ActorHeader
	ID   string `path:"id" doc:"Chat platform user id"`
	Body BanRequest
}

// AdjustPointsRequest is the request body for adjusting points.
type AdjustPointsRequest struct {
	Delta int64 `json:"delta" doc:"Points to add, negative to deduct"`
}

// AdjustPointsInput wraps the adjust request for Huma.
type AdjustPointsInput struct {
	ActorHeader
	ID   string `path:"id" doc:"Chat platform user id"`
	Body AdjustPointsRequest
}

// === Handlers ===

func (s *Server) handleAdminGetUser(ctx context.Context, input *AdminUserInput) (*UserProfileOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	user, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfileOutput{Body: UserProfileResponse{User: *user, ReferralState: user.ReferralState()}}, nil
}

func (s *Server) handleSetUserBanned(ctx context.Context, input *SetUserBannedInput) (*MessageOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Users.SetBanned(ctx, actorID, input.ID, input.Body.Banned); err != nil {
		return nil, err
	}
	if input.Body.Banned {
		return message("user banned"), nil
	}
	return message("user unbanned"), nil
}

func (s *Server) handleAdjustPoints(ctx context.Context, input *AdjustPointsInput) (*BalanceOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	balance, err := s.services.Users.AdjustPoints(ctx, actorID, input.ID, input.Body.Delta)
	if err != nil {
		return nil, err
	}
	return &BalanceOutput{Body: BalanceResponse{UserID: input.ID, Balance: balance}}, nil
}

