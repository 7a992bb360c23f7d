package domain

import (
	"errors"
	"strings"
	"time"
)

// ReportStatus enumerates lifecycle states for compliance reports.
type ReportStatus string

const (
	ReportStatusNew             ReportStatus = "NEW"
	ReportStatusPendingReview   ReportStatus = "PENDING_REVIEW"
	ReportStatusInInvestigation ReportStatus = "IN_INVESTIGATION"
	ReportStatusClosed          ReportStatus = "CLOSED"
)

// IssueType categorizes the alleged problem.
type IssueType string

const (
	IssueTypeCorruption IssueType = "CORRUPTION"
	IssueTypeMisconduct IssueType = "MISCONDUCT"
	IssueTypeNepotism   IssueType = "NEPOTISM"
	IssueTypeOther      IssueType = "OTHER"
)

// Urgency is the triage priority of a report.
type Urgency string

const (
	UrgencyHigh   Urgency = "HIGH"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyLow    Urgency = "LOW"
)

var (
	ReportStatuses = []ReportStatus{ReportStatusNew, ReportStatusPendingReview, ReportStatusInInvestigation, ReportStatusClosed}
	IssueTypes     = []IssueType{IssueTypeCorruption, IssueTypeMisconduct, IssueTypeNepotism, IssueTypeOther}
	Urgencies      = []Urgency{UrgencyHigh, UrgencyMedium, UrgencyLow}
)

var (
	ErrReportClosed      = errors.New("report is closed")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ComplianceReport is an anonymous complaint and its triage state.
// FullDetails is the citizen's original claim and never changes after intake.
type ComplianceReport struct {
	ID           int64
	IssueType    IssueType
	Urgency      Urgency
	Summary      string
	FullDetails  string
	Status       ReportStatus
	IsAnonymous  bool
	AssignedToID *string
	Version      int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ClosedAt     *time.Time
}

// IsClosed reports whether the report reached its terminal state.
func (r *ComplianceReport) IsClosed() bool {
	return r.Status == ReportStatusClosed
}

// Forward-only; a stage may be skipped but never revisited.
var allowedTransitions = map[ReportStatus][]ReportStatus{
	ReportStatusNew:             {ReportStatusPendingReview, ReportStatusInInvestigation, ReportStatusClosed},
	ReportStatusPendingReview:   {ReportStatusInInvestigation, ReportStatusClosed},
	ReportStatusInInvestigation: {ReportStatusClosed},
	ReportStatusClosed:          {},
}

// ValidateTransition checks a status change against the transition table.
func ValidateTransition(current, next ReportStatus) error {
	if current == ReportStatusClosed {
		return ErrReportClosed
	}
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return nil
		}
	}
	return ErrInvalidTransition
}

// NextStatuses lists the states reachable from current.
func NextStatuses(current ReportStatus) []ReportStatus {
	return append([]ReportStatus(nil), allowedTransitions[current]...)
}

// ParseReportStatus accepts "IN_INVESTIGATION", "In Investigation" and "InInvestigation" alike.
func ParseReportStatus(raw string) (ReportStatus, bool) {
	key := normalizeEnum(raw)
	for _, s := range ReportStatuses {
		if normalizeEnum(string(s)) == key {
			return s, true
		}
	}
	return "", false
}

// ParseIssueType parses an issue type case-insensitively.
func ParseIssueType(raw string) (IssueType, bool) {
	key := normalizeEnum(raw)
	for _, t := range IssueTypes {
		if normalizeEnum(string(t)) == key {
			return t, true
		}
	}
	return "", false
}

// ParseUrgency parses an urgency case-insensitively.
func ParseUrgency(raw string) (Urgency, bool) {
	key := normalizeEnum(raw)
	for _, u := range Urgencies {
		if normalizeEnum(string(u)) == key {
			return u, true
		}
	}
	return "", false
}

func normalizeEnum(raw string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(raw)))
}

// ReportStats counts reports for the staff dashboard.
type ReportStats struct {
	Total     int                  `json:"total"`
	ByStatus  map[ReportStatus]int `json:"by_status"`
	ByUrgency map[Urgency]int      `json:"by_urgency"`
}

// NewReportStats returns stats with every known bucket present at zero.
func NewReportStats() *ReportStats {
	stats := &ReportStats{
		ByStatus:  make(map[ReportStatus]int, len(ReportStatuses)),
		ByUrgency: make(map[Urgency]int, len(Urgencies)),
	}
	for _, s := range ReportStatuses {
		stats.ByStatus[s] = 0
	}
	for _, u := range Urgencies {
		stats.ByUrgency[u] = 0
	}
	return stats
}
