package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/pointsbot/pointsbot-server/internal/audit"
	"github.com/pointsbot/pointsbot-server/internal/domain"
	domainerrors "github.com/pointsbot/pointsbot-server/internal/errors"
	"github.com/pointsbot/pointsbot-server/internal/id"
	"github.com/pointsbot/pointsbot-server/internal/store"
)

// ReportService tracks user complaints about delivered items. Each open report
// is taken by exactly one admin.
type ReportService struct {
	store    store.Ledger
	notifier Notifier
	logger   *slog.Logger
}

// NewReportService creates a new report service.
func NewReportService(store store.Ledger, notifier Notifier, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// CreateReportRequest describes a user's complaint.
type CreateReportRequest struct {
	UserID   string `json:"user_id" validate:"required,chatid,max=64"`
	Platform string `json:"platform" validate:"required,platform,max=64"`
	Message  string `json:"message" validate:"max=2000"`
}

// Create files an open report. The platform must exist.
func (s *ReportService) Create(ctx context.Context, req CreateReportRequest) (*domain.Report, error) {
	req.Message = strings.TrimSpace(req.Message)
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, storeError(err, "get user", domainerrors.NotFound("user not found"))
	}
	platform, err := s.store.GetPlatform(ctx, req.Platform)
	if err != nil {
		return nil, storeError(err, "get platform", notFoundPlatform(req.Platform))
	}

	reportID, err := id.Generate("report")
	if err != nil {
		return nil, fmt.Errorf("generate report ID: %w", err)
	}
	report := &domain.Report{
		ID:        reportID,
		UserID:    req.UserID,
		Platform:  platform.Name,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, storeError(err, "create report", nil)
	}

	s.logger.Info("report filed", "report_id", report.ID, "user_id", req.UserID, "platform", platform.Name)
	s.emit("", report, "opened")
	return report, nil
}

// Get returns one report.
func (s *ReportService) Get(ctx context.Context, reportID string) (*domain.Report, error) {
	report, err := s.store.GetReport(ctx, reportID)
	if err != nil {
		return nil, storeError(err, "get report", domainerrors.NotFound("report not found"))
	}
	return report, nil
}

// List returns reports in the given status, or all reports when status is empty.
func (s *ReportService) List(ctx context.Context, status domain.ReportStatus) ([]*domain.Report, error) {
	switch status {
	case "", domain.ReportOpen, domain.ReportClaimed, domain.ReportResolved:
	default:
		return nil, domainerrors.Validationf("unknown report status %q", status)
	}
	reports, err := s.store.ListReports(ctx, status)
	if err != nil {
		return nil, storeError(err, "list reports", nil)
	}
	return reports, nil
}

// Claim assigns an open report to adminID. When admins race, the first wins and
// the others get a Conflict.
func (s *ReportService) Claim(ctx context.Context, adminID, reportID string) (*domain.Report, error) {
	report, err := s.store.ClaimReport(ctx, reportID, adminID, time.Now())
	if err != nil {
		return nil, storeError(err, "claim report", domainerrors.NotFound("report not found"))
	}
	s.logger.Info("report claimed", "report_id", reportID, "actor_id", adminID)
	s.emit(adminID, report, "claimed")
	return report, nil
}

// Resolve closes a report claimed by adminID, or an unclaimed one.
func (s *ReportService) Resolve(ctx context.Context, adminID, reportID string) (*domain.Report, error) {
	report, err := s.store.ResolveReport(ctx, reportID, adminID, time.Now())
	if err != nil {
		return nil, storeError(err, "resolve report", domainerrors.NotFound("report not found"))
	}
	s.logger.Info("report resolved", "report_id", reportID, "actor_id", adminID)
	s.emit(adminID, report, "resolved")
	return report, nil
}

func (s *ReportService) emit(actorID string, report *domain.Report, action string) {
	event := audit.NewEvent(audit.KindReportChanged)
	event.ActorID = actorID
	event.UserID = report.UserID
	event.Platform = report.Platform
	s.notifier.Notify(event.With("report_id", report.ID).With("action", action))
}
