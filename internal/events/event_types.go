package events

import (
	"time"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventReportSubmitted      EventType = "report_submitted"
	EventReportStatusChanged  EventType = "report_status_changed"
	EventReportUrgencyChanged EventType = "report_urgency_changed"
	EventReportAssigned       EventType = "report_assigned"
	EventReportNoteAdded      EventType = "report_note_added"
)

// AllEventTypes lists every event the service emits.
var AllEventTypes = []EventType{
	EventReportSubmitted,
	EventReportStatusChanged,
	EventReportUrgencyChanged,
	EventReportAssigned,
	EventReportNoteAdded,
}

// Actor identifies who caused an event. Submissions have no actor.
type Actor struct {
	UserID *string          `json:"user_id,omitempty"`
	Role   *domain.UserRole `json:"role,omitempty"`
}

// ActorFor builds an Actor from an authenticated user.
func ActorFor(user *domain.User) Actor {
	if user == nil {
		return Actor{}
	}
	id, role := user.ID, user.Role
	return Actor{UserID: &id, Role: &role}
}

// Event represents a domain event emitted by services. Payloads carry
// identifiers and enum values only, never reporter-supplied text.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	ReportID  int64     `json:"report_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ReportSubmittedPayload payload.
type ReportSubmittedPayload struct {
	IssueType domain.IssueType `json:"issue_type"`
	Urgency   domain.Urgency   `json:"urgency"`
}

// ReportStatusChangedPayload payload.
type ReportStatusChangedPayload struct {
	OldStatus domain.ReportStatus `json:"old_status"`
	NewStatus domain.ReportStatus `json:"new_status"`
}

// ReportUrgencyChangedPayload payload.
type ReportUrgencyChangedPayload struct {
	OldUrgency domain.Urgency `json:"old_urgency"`
	NewUrgency domain.Urgency `json:"new_urgency"`
}

// ReportAssignedPayload payload.
type ReportAssignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID *string `json:"new_assignee_id,omitempty"`
}

// ReportNoteAddedPayload payload.
type ReportNoteAddedPayload struct {
	NoteID   int64  `json:"note_id"`
	AuthorID string `json:"author_id"`
}
