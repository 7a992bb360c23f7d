package repository

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

func TestBuildReportWhere_Empty(t *testing.T) {
	where, args := buildReportWhere(ReportFilter{})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestBuildReportWhere_AllFilters(t *testing.T) {
	search := "Road 401"
	assignee := "staff-1"
	from := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	where, args := buildReportWhere(ReportFilter{
		Statuses:     []domain.ReportStatus{domain.ReportStatusNew, domain.ReportStatusPendingReview},
		IssueTypes:   []domain.IssueType{domain.IssueTypeCorruption},
		Urgencies:    []domain.Urgency{domain.UrgencyHigh},
		AssignedToID: &assignee,
		SearchText:   &search,
		CreatedFrom:  &from,
		CreatedTo:    &to,
	})

	wantWhere := "1=1 AND status IN ($1,$2) AND issue_type IN ($3) AND urgency IN ($4) AND assigned_to_id=$5" +
		" AND created_at >= $6 AND created_at <= $7 AND (LOWER(summary) LIKE $8 OR CAST(id AS TEXT) LIKE $8)"
	assert.Equal(t, wantWhere, where)

	wantArgs := []any{
		domain.ReportStatusNew, domain.ReportStatusPendingReview,
		domain.IssueTypeCorruption,
		domain.UrgencyHigh,
		"staff-1",
		from, to,
		"%road 401%",
	}
	if diff := cmp.Diff(wantArgs, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildReportWhere_BlankSearchIgnored(t *testing.T) {
	blank := "   "
	where, args := buildReportWhere(ReportFilter{SearchText: &blank})
	assert.Equal(t, "1=1", where)
	assert.Empty(t, args)
}

func TestLikePattern_EscapesWildcards(t *testing.T) {
	assert.Equal(t, `%100\%\_done%`, likePattern(" 100%_DONE "))
	assert.Equal(t, `%a\\b%`, likePattern(`a\b`))
}

func TestNormalizePaging(t *testing.T) {
	limit, offset := normalizePaging(0, -5, 20)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 0, offset)

	limit, offset = normalizePaging(10, 30, 20)
	assert.Equal(t, 10, limit)
	assert.Equal(t, 30, offset)
}
