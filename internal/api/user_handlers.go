package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

func (s *Server) registerUserRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "registerUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/users",
		Summary:     "Register user",
		Description: "Records a chat user's first contact. A referrer is attached only to a new user; repeated calls refresh the display name.",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleRegisterUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserProfile",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}",
		Summary:     "Get user profile",
		Description: "Returns the user's balance, referral count and referral state",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleGetUserProfile)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserBalance",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/balance",
		Summary:     "Get balance",
		Description: "Returns the user's current points balance",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleGetUserBalance)

	huma.Register(s.api, huma.Operation{
		OperationID: "redeemKey",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/redeem",
		Summary:     "Redeem key",
		Description: "Claims a key code for the user and credits its points. Each code can be redeemed once.",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleRedeemKey)

	huma.Register(s.api, huma.Operation{
		OperationID: "claimItem",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/claim",
		Summary:     "Claim item",
		Description: "Takes one item from a platform's stock and debits its price from the user",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleClaimItem)

	huma.Register(s.api, huma.Operation{
		OperationID: "verifyUser",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/verify",
		Summary:     "Verify membership",
		Description: "Checks the user joined every required channel and credits their referrer on first success",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleVerifyUser)

	huma.Register(s.api, huma.Operation{
		OperationID: "getUserReferral",
		Method:      http.MethodGet,
		Path:        "/api/v1/users/{id}/referral",
		Summary:     "Get referral",
		Description: "Returns the credited referral that brought the user in",
		Tags:        []string{tagUsers},
		Security:    bearerSecurity,
	}, s.handleGetUserReferral)
}

// === DTOs ===

// RegisterUserRequest is the request body for registering a user.
type RegisterUserRequest struct {
	ID          string `json:"id" doc:"Chat platform user id"`
	DisplayName string `json:"display_name,omitempty" doc:"Name shown to admins"`
	ReferrerID  string `json:"referrer_id,omitempty" doc:"Referral code: the inviting user's id"`
}

// RegisterUserInput wraps the register request for Huma.
type RegisterUserInput struct {
	Body RegisterUserRequest
}

// RegisterUserOutput wraps the register response for Huma.
type RegisterUserOutput struct {
	Body service.RegisterResult
}

// UserPathInput selects a user by path.
type UserPathInput struct {
	ID string `path:"id" doc:"Chat platform user id"`
}

// UserProfileResponse is a user with its derived referral state.
type UserProfileResponse struct {
	domain.User
	ReferralState domain.ReferralState `json:"referral_state" doc:"unreferred, pending or credited"`
}

// UserProfileOutput wraps the profile response for Huma.
type UserProfileOutput struct {
	Body UserProfileResponse
}

// BalanceResponse carries a user's balance.
type BalanceResponse struct {
	UserID  string `json:"user_id" doc:"Chat platform user id"`
	Balance int64  `json:"balance" doc:"Current points balance"`
}

// BalanceOutput wraps the balance response for Huma.
type BalanceOutput struct {
	Body BalanceResponse
}

// RedeemRequest is the request body for redeeming a key.
type RedeemRequest struct {
	Code string `json:"code" doc:"Key code, e.g. NKEY-7K2M9QXA. Case and surrounding spaces are ignored."`
}

// RedeemInput wraps the redeem request for Huma.
type RedeemInput struct {
	ID   string `path:"id" doc:"Chat platform user id"`
	Body RedeemRequest
}

// RedeemOutput wraps the redeem response for Huma.
type RedeemOutput struct {
	Body service.RedeemResult
}

// ClaimRequest is the request body for claiming an item.
type ClaimRequest struct {
	Platform string `json:"platform" doc:"Platform name, matched ignoring case"`
}

// ClaimInput wraps the claim request for Huma.
type ClaimInput struct {
	ID   string `path:"id" doc:"Chat platform user id"`
	Body ClaimRequest
}

// ClaimOutput wraps the claim response for Huma.
type ClaimOutput struct {
	Body service.ClaimResult
}

// ReferralOutput wraps a referral outcome for Huma.
type ReferralOutput struct {
	Body service.ReferralResult
}

// ReferralRecordOutput wraps a stored referral for Huma.
type ReferralRecordOutput struct {
	Body domain.Referral
}

// === Handlers ===

func (s *Server) handleRegisterUser(ctx context.Context, input *RegisterUserInput) (*RegisterUserOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Users.Register(ctx, service.RegisterRequest{
		ID:          input.Body.ID,
		DisplayName: input.Body.DisplayName,
		ReferrerID:  input.Body.ReferrerID,
	})
	if err != nil {
		return nil, err
	}
	return &RegisterUserOutput{Body: *result}, nil
}

func (s *Server) handleGetUserProfile(ctx context.Context, input *UserPathInput) (*UserProfileOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	user, err := s.services.Users.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &UserProfileOutput{Body: UserProfileResponse{User: *user, ReferralState: user.ReferralState()}}, nil
}

func (s *Server) handleGetUserBalance(ctx context.Context, input *UserPathInput) (*BalanceOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	balance, err := s.services.Users.Balance(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BalanceOutput{Body: BalanceResponse{UserID: input.ID, Balance: balance}}, nil
}

func (s *Server) handleRedeemKey(ctx context.Context, input *RedeemInput) (*RedeemOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Keys.Redeem(ctx, input.ID, input.Body.Code)
	if err != nil {
		return nil, err
	}
	return &RedeemOutput{Body: *result}, nil
}

func (s *Server) handleClaimItem(ctx context.Context, input *ClaimInput) (*ClaimOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Claims.Claim(ctx, input.ID, input.Body.Platform)
	if err != nil {
		return nil, err
	}
	return &ClaimOutput{Body: *result}, nil
}

func (s *Server) handleVerifyUser(ctx context.Context, input *UserPathInput) (*ReferralOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Referrals.Verify(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReferralOutput{Body: *result}, nil
}

func (s *Server) handleGetUserReferral(ctx context.Context, input *UserPathInput) (*ReferralRecordOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	referral, err := s.services.Referrals.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReferralRecordOutput{Body: *referral}, nil
}
