package dto

import (
	"time"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

// SubmitReportRequest is the public intake payload. Enum values are
// matched case-insensitively.
type SubmitReportRequest struct {
	IssueType   string `json:"issue_type"`
	Urgency     string `json:"urgency"`
	Summary     string `json:"summary"`
	FullDetails string `json:"full_details"`
}

// SubmitReportResponse acknowledges an anonymous submission.
type SubmitReportResponse struct {
	ID        int64               `json:"id"`
	Status    domain.ReportStatus `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status          string `json:"status"`
	ExpectedVersion *int   `json:"expected_version"`
}

// UpdateUrgencyRequest payload.
type UpdateUrgencyRequest struct {
	Urgency         string `json:"urgency"`
	ExpectedVersion *int   `json:"expected_version"`
}

// AssignReportRequest payload. An empty assignee clears the assignment.
type AssignReportRequest struct {
	AssigneeID string `json:"assignee_id"`
}

// AddNoteRequest payload.
type AddNoteRequest struct {
	Content string `json:"content"`
}

// ReportSummary is a list row.
type ReportSummary struct {
	ID           int64               `json:"id"`
	IssueType    domain.IssueType    `json:"issue_type"`
	Urgency      domain.Urgency      `json:"urgency"`
	Summary      string              `json:"summary"`
	Status       domain.ReportStatus `json:"status"`
	AssignedToID *string             `json:"assigned_to_id"`
	Version      int                 `json:"version"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ReportResponse provides full report info.
type ReportResponse struct {
	ID           int64                 `json:"id"`
	IssueType    domain.IssueType      `json:"issue_type"`
	Urgency      domain.Urgency        `json:"urgency"`
	Summary      string                `json:"summary"`
	FullDetails  string                `json:"full_details"`
	Status       domain.ReportStatus   `json:"status"`
	NextStatuses []domain.ReportStatus `json:"next_statuses"`
	IsAnonymous  bool                  `json:"is_anonymous"`
	AssignedToID *string               `json:"assigned_to_id"`
	Version      int                   `json:"version"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ClosedAt     *time.Time            `json:"closed_at"`
}

// ReportDetailResponse bundles a report with its notes and history.
type ReportDetailResponse struct {
	ReportResponse
	Notes   []NoteResponse    `json:"notes"`
	History []HistoryResponse `json:"history"`
}

// NoteResponse represents an admin note.
type NoteResponse struct {
	ID        int64     `json:"id"`
	ReportID  int64     `json:"report_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// HistoryResponse represents an audit entry.
type HistoryResponse struct {
	ID          int64                   `json:"id"`
	ChangedByID *string                 `json:"changed_by_id"`
	ChangeType  domain.ReportChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}

// PageMeta describes a paginated listing.
type PageMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"total_pages"`
}

// NewPageMeta copies page metadata.
func NewPageMeta[T any](page *domain.Page[T]) PageMeta {
	return PageMeta{Total: page.Total, Page: page.Page, Limit: page.Limit, TotalPages: page.TotalPages}
}

// NewReportSummary maps a domain report to a list row.
func NewReportSummary(r *domain.ComplianceReport) ReportSummary {
	return ReportSummary{
		ID:           r.ID,
		IssueType:    r.IssueType,
		Urgency:      r.Urgency,
		Summary:      r.Summary,
		Status:       r.Status,
		AssignedToID: r.AssignedToID,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

// NewReportResponse maps a domain report.
func NewReportResponse(r *domain.ComplianceReport) ReportResponse {
	return ReportResponse{
		ID:           r.ID,
		IssueType:    r.IssueType,
		Urgency:      r.Urgency,
		Summary:      r.Summary,
		FullDetails:  r.FullDetails,
		Status:       r.Status,
		NextStatuses: domain.NextStatuses(r.Status),
		IsAnonymous:  r.IsAnonymous,
		AssignedToID: r.AssignedToID,
		Version:      r.Version,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		ClosedAt:     r.ClosedAt,
	}
}

// NewNoteResponse maps a domain note.
func NewNoteResponse(n *domain.AdminNote) NoteResponse {
	return NoteResponse{ID: n.ID, ReportID: n.ReportID, AuthorID: n.AuthorID, Content: n.Content, CreatedAt: n.CreatedAt}
}

// NewHistoryResponse maps an audit entry.
func NewHistoryResponse(h *domain.ReportHistory) HistoryResponse {
	return HistoryResponse{
		ID:          h.ID,
		ChangedByID: h.ChangedByID,
		ChangeType:  h.ChangeType,
		OldValue:    h.OldValue,
		NewValue:    h.NewValue,
		CreatedAt:   h.CreatedAt,
	}
}
