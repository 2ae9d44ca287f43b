package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
)

func (s *Server) registerAuditRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listAuditEvents",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/audit",
		Summary:     "Recent audit events",
		Description: "Returns ledger events newest first: redemptions, claims, referrals and admin actions",
		Tags:        []string{tagAdmin},
		Security:    bearerSecurity,
	}, s.handleListAuditEvents)
}

// === DTOs ===

// ListAuditInput filters the audit listing.
type ListAuditInput struct {
	ActorHeader
	Kind   string `query:"kind" doc:"Only events of this kind, e.g. key.redeemed"`
	UserID string `query:"user_id" doc:"Only events about this user"`
	Since  string `query:"since" doc:"Only events at or after this RFC 3339 time"`
	Limit  int    `query:"limit" minimum:"0" maximum:"1000" doc:"Maximum events returned, defaults to 100"`
}

// AuditListResponse lists audit events.
type AuditListResponse struct {
	Events []audit.Event `json:"events" doc:"Events, newest first"`
}

// AuditListOutput wraps the event list for Huma.
type AuditListOutput struct {
	Body AuditListResponse
}

// === Handlers ===

func (s *Server) handleListAuditEvents(ctx context.Context, input *ListAuditInput) (*AuditListOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}
	if s.journal == nil {
		return nil, domainerrors.NotFound("audit events are not being recorded")
	}

	since, err := parseOptionalTime("since", input.Since)
	if err != nil {
		return nil, err
	}

	events, err := s.journal.Recent(ctx, audit.Query{
		Kind:   audit.Kind(input.Kind),
		UserID: input.UserID,
		Since:  since,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeInternal, "failed to read audit events")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return &AuditListOutput{Body: AuditListResponse{Events: events}}, nil
}
