package domain

import "time"

// AdminNote is a staff-authored, append-only annotation on a report.
type AdminNote struct {
	ID        int64
	ReportID  int64
	AuthorID  string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}
