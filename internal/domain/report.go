package domain

import "time"

// ReportStatus tracks a report through triage.
type ReportStatus string

const (
	// ReportOpen is waiting for an admin.
	ReportOpen ReportStatus = "open"
	// ReportClaimed is being handled by exactly one admin.
	ReportClaimed ReportStatus = "claimed"
	// ReportResolved is closed.
	ReportResolved ReportStatus = "resolved"
)

// Report is a user complaint about a delivered item.
type Report struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Platform   string     `json:"platform"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ClaimedBy  string     `json:"claimed_by,omitempty"`
	ClaimedAt  *time.Time `json:"claimed_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Status derives the report status from its timestamps.
func (r *Report) Status() ReportStatus {
	switch {
	case r.ResolvedAt != nil:
		return ReportResolved
	case r.ClaimedAt != nil:
		return ReportClaimed
	default:
		return ReportOpen
	}
}
