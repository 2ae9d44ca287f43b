package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

func (s *Server) registerAdminRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAdmins",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/admins",
		Summary:     "List admins",
		Description: "Returns the configured owners and the stored admins",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleListAdmins)

	huma.Register(s.api, huma.Operation{
		OperationID: "addAdmin",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/admins",
		Summary:     "Add admin",
		Description: "Grants admin rights to a user. Owners only.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleAddAdmin)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeAdmin",
		Method:      http.MethodDelete,
		Path:        "/api/v1/admin/admins/{id}",
		Summary:     "Remove admin",
		Description: "Revokes a user's admin rights. Owners only.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleRemoveAdmin)

	huma.Register(s.api, huma.Operation{
		OperationID: "setAdminBanned",
		Method:      http.MethodPut,
		Path:        "/api/v1/admin/admins/{id}/ban",
		Summary:     "Suspend or restore admin",
		Description: "A banned admin keeps their entry but cannot act. Owners only.",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleSetAdminBanned)

	huma.Register(s.api, huma.Operation{
		OperationID: "getStats",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/stats",
		Summary:     "Ledger statistics",
		Description: "Returns user, points, key, referral, report and stock totals",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleGetStats)
}

// === DTOs ===

// ActorInput carries only the acting admin.
type ActorInput struct {
	ActorHeader
}

// AdminListOutput wraps the admin list for Huma.
type AdminListOutput struct {
	Body service.AdminList
}

// AddAdminRequest is the request body for adding an admin.
type AddAdminRequest struct {
	UserID string `json:"user_id" doc:"Chat user id to promote"`
}

// AddAdminInput wraps the add-admin request for Huma.
type AddAdminInput struct {
	ActorHeader
	Body AddAdminRequest
}

// SetAdminBannedInput wraps the admin ban request for Huma.
type SetAdminBannedInput struct {
	ActorHeader
	ID   string `path:"id" doc:"Admin's chat user id"`
	Body BanRequest
}

// StatsOutput wraps ledger statistics for Huma.
type StatsOutput struct {
	Body *domain.Stats
}

// === Handlers ===

func (s *Server) handleListAdmins(ctx context.Context, input *ActorInput) (*AdminListOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	list, err := s.services.Admins.List(ctx)
	if err != nil {
		return nil, err
	}
	return &AdminListOutput{Body: *list}, nil
}

func (s *Server) handleAddAdmin(ctx context.Context, input *AddAdminInput) (*MessageOutput, error) {
	actorID, err := s.RequireOwner(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Admins.Add(ctx, actorID, input.Body.UserID); err != nil {
		return nil, err
	}
	return message("admin added"), nil
}

func (s *Server) handleRemoveAdmin(ctx context.Context, input *AdminUserInput) (*MessageOutput, error) {
	actorID, err := s.RequireOwner(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Admins.Remove(ctx, actorID, input.ID); err != nil {
		return nil, err
	}
	return message("admin removed"), nil
}

func (s *Server) handleSetAdminBanned(ctx context.Context, input *SetAdminBannedInput) (*MessageOutput, error) {
	actorID, err := s.RequireOwner(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	if err := s.services.Admins.SetBanned(ctx, actorID, input.ID, input.Body.Banned); err != nil {
		return nil, err
	}
	if input.Body.Banned {
		return message("admin suspended"), nil
	}
	return message("admin restored"), nil
}

func (s *Server) handleGetStats(ctx context.Context, input *ActorInput) (*StatsOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	stats, err := s.services.Stats.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &StatsOutput{Body: stats}, nil
}
