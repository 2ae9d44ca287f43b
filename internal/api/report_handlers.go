package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pointsbot/pointsbot-server/internal/domain"
	"github.com/pointsbot/pointsbot-server/internal/service"
)

func (s *Server) registerReportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createReport",
		Method:      http.MethodPost,
		Path:        "/api/v1/users/{id}/reports",
		Summary:     "File report",
		Description: "Files a complaint about an item the user received from a platform",
		Tags:        []string{tagReports},
		Security:    bearerSecurity,
	}, s.handleCreateReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "listReports",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/reports",
		Summary:     "List reports",
		Description: "Lists reports, optionally only those in one status",
		Tags:        []string{tagReports},
		Security:    bearerSecurity,
	}, s.handleListReports)

	huma.Register(s.api, huma.Operation{
		OperationID: "getReport",
		Method:      http.MethodGet,
		Path:        "/api/v1/admin/reports/{id}",
		Summary:     "Get report",
		Tags:        []string{tagReports},
		Security:    bearerSecurity,
	}, s.handleGetReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "claimReport",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reports/{id}/claim",
		Summary:     "Take report",
		Description: "Assigns an open report to the acting admin. Only the first admin succeeds.",
		Tags:        []string{tagReports},
		Security:    bearerSecurity,
	}, s.handleClaimReport)

	huma.Register(s.api, huma.Operation{
		OperationID: "resolveReport",
		Method:      http.MethodPost,
		Path:        "/api/v1/admin/reports/{id}/resolve",
		Summary:     "Resolve report",
		Description: "Closes a report taken by the acting admin, or an open one",
		Tags:        []string{tagReports},
		Security:    bearerSecurity,
	}, s.handleResolveReport)
}

// === DTOs ===

// CreateReportRequest is the request body for filing a report.
type CreateReportRequest struct {
	Platform string `json:"platform" doc:"Platform the item came from"`
	Message  string `json:"message,omitempty" maxLength:"2000" doc:"What went wrong"`
}

// CreateReportInput wraps the report request for Huma.
type CreateReportInput struct {
	ID   string `path:"id" doc:"Reporting user's chat id"`
	Body CreateReportRequest
}

// ReportResponse is a report with its derived status.
type ReportResponse struct {
	domain.Report
	Status domain.ReportStatus `json:"status" doc:"open, claimed or resolved"`
}

// ReportOutput wraps a report for Huma.
type ReportOutput struct {
	Body ReportResponse
}

// ListReportsInput filters the report listing.
type ListReportsInput struct {
	ActorHeader
	Status string `query:"status" enum:"open,claimed,resolved" doc:"Only reports in this status"`
}

// ReportListResponse lists reports.
type ReportListResponse struct {
	Reports []ReportResponse `json:"reports" doc:"Reports, oldest first"`
}

// ReportListOutput wraps the report list for Huma.
type ReportListOutput struct {
	Body ReportListResponse
}

// ReportPathInput selects a report for an admin command.
type ReportPathInput struct {
	ActorHeader
	ID string `path:"id" doc:"Report id"`
}

func reportResponse(r *domain.Report) ReportResponse {
	return ReportResponse{Report: *r, Status: r.Status()}
}

// === Handlers ===

func (s *Server) handleCreateReport(ctx context.Context, input *CreateReportInput) (*ReportOutput, error) {
	if err := s.RequireBot(ctx); err != nil {
		return nil, err
	}

	report, err := s.services.Reports.Create(ctx, service.CreateReportRequest{
		UserID:   input.ID,
		Platform: input.Body.Platform,
		Message:  input.Body.Message,
	})
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Body: reportResponse(report)}, nil
}

func (s *Server) handleListReports(ctx context.Context, input *ListReportsInput) (*ReportListOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	reports, err := s.services.Reports.List(ctx, domain.ReportStatus(input.Status))
	if err != nil {
		return nil, err
	}
	out := make([]ReportResponse, 0, len(reports))
	for _, r := range reports {
		out = append(out, reportResponse(r))
	}
	return &ReportListOutput{Body: ReportListResponse{Reports: out}}, nil
}

func (s *Server) handleGetReport(ctx context.Context, input *ReportPathInput) (*ReportOutput, error) {
	if _, err := s.RequireAdmin(ctx, input.ActorID); err != nil {
		return nil, err
	}

	report, err := s.services.Reports.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Body: reportResponse(report)}, nil
}

func (s *Server) handleClaimReport(ctx context.Context, input *ReportPathInput) (*ReportOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	report, err := s.services.Reports.Claim(ctx, actorID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Body: reportResponse(report)}, nil
}

func (s *Server) handleResolveReport(ctx context.Context, input *ReportPathInput) (*ReportOutput, error) {
	actorID, err := s.RequireAdmin(ctx, input.ActorID)
	if err != nil {
		return nil, err
	}

	report, err := s.services.Reports.Resolve(ctx, actorID, input.ID)
	if err != nil {
		return nil, err
	}
	return &ReportOutput{Body: reportResponse(report)}, nil
}
