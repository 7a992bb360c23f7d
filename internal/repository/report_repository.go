package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

// ReportFilter captures staff search parameters.
type ReportFilter struct {
	Statuses     []domain.ReportStatus
	IssueTypes   []domain.IssueType
	Urgencies    []domain.Urgency
	AssignedToID *string
	SearchText   *string
	CreatedFrom  *time.Time
	CreatedTo    *time.Time
	Limit        int
	Offset       int
}

// ReportRepository encapsulates compliance report persistence.
type ReportRepository interface {
	Create(ctx context.Context, report *domain.ComplianceReport) error
	// Update persists mutable fields when the stored version still equals
	// report.Version, then bumps report.Version. A non-nil history entry is
	// written in the same transaction.
	Update(ctx context.Context, report *domain.ComplianceReport, history *domain.ReportHistory) error
	GetByID(ctx context.Context, id int64) (*domain.ComplianceReport, error)
	List(ctx context.Context, filter ReportFilter) ([]domain.ComplianceReport, int, error)
	Stats(ctx context.Context) (*domain.ReportStats, error)
}

const reportColumns = `id, issue_type, urgency, summary, full_details, status, is_anonymous,
               assigned_to_id, version, created_at, updated_at, closed_at`

type reportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository instantiates repository.
func NewReportRepository(pool *pgxpool.Pool) ReportRepository {
	return &reportRepository{pool: pool}
}

func (r *reportRepository) Create(ctx context.Context, report *domain.ComplianceReport) error {
	const query = `
        INSERT INTO compliance_reports (issue_type, urgency, summary, full_details, status, is_anonymous)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, version, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		report.IssueType,
		report.Urgency,
		report.Summary,
		report.FullDetails,
		report.Status,
		report.IsAnonymous,
	).Scan(&report.ID, &report.Version, &report.CreatedAt, &report.UpdatedAt)
}

// Update writes report and history in one transaction. report keeps the
// version it was read with until the commit succeeds, so a retried call
// after a rollback predicates on the same version.
func (r *reportRepository) Update(ctx context.Context, report *domain.ComplianceReport, history *domain.ReportHistory) error {
	var (
		version   int
		updatedAt time.Time
	)
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		version, updatedAt, err = updateReport(ctx, tx, report)
		if err != nil {
			return err
		}
		if history == nil {
			return nil
		}
		history.ReportID = report.ID
		return insertHistory(ctx, tx, history)
	})
	if err != nil {
		return err
	}
	report.Version = version
	report.UpdatedAt = updatedAt
	return nil
}

// updateReport returns the stored version and timestamp without touching
// report. full_details is deliberately absent from the SET list.
func updateReport(ctx context.Context, db dbtx, report *domain.ComplianceReport) (int, time.Time, error) {
	const query = `
        UPDATE compliance_reports SET summary=$1, status=$2, urgency=$3, assigned_to_id=$4, closed_at=$5,
            version=version+1, updated_at=NOW()
        WHERE id=$6 AND version=$7
        RETURNING version, updated_at`
	var (
		version   int
		updatedAt time.Time
	)
	err := db.QueryRow(ctx, query,
		report.Summary,
		report.Status,
		report.Urgency,
		report.AssignedToID,
		report.ClosedAt,
		report.ID,
		report.Version,
	).Scan(&version, &updatedAt)
	if err == nil {
		return version, updatedAt, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, time.Time{}, err
	}

	var exists bool
	if err := db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM compliance_reports WHERE id=$1)`, report.ID).Scan(&exists); err != nil {
		return 0, time.Time{}, err
	}
	if !exists {
		return 0, time.Time{}, pgx.ErrNoRows
	}
	return 0, time.Time{}, ErrVersionConflict
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*domain.ComplianceReport, error) {
	query := `SELECT ` + reportColumns + ` FROM compliance_reports WHERE id=$1`
	var report domain.ComplianceReport
	if err := scanReport(r.pool.QueryRow(ctx, query, id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *reportRepository) List(ctx context.Context, filter ReportFilter) ([]domain.ComplianceReport, int, error) {
	where, args := buildReportWhere(filter)
	limit, offset := normalizePaging(filter.Limit, filter.Offset, 20)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM compliance_reports WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM compliance_reports WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		reportColumns, where, limit, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.ComplianceReport{}
	for rows.Next() {
		var report domain.ComplianceReport
		if err := scanReport(rows, &report); err != nil {
			return nil, 0, err
		}
		result = append(result, report)
	}
	return result, total, rows.Err()
}

func (r *reportRepository) Stats(ctx context.Context) (*domain.ReportStats, error) {
	const query = `SELECT status, urgency, COUNT(*) FROM compliance_reports GROUP BY status, urgency`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := domain.NewReportStats()
	for rows.Next() {
		var (
			status  domain.ReportStatus
			urgency domain.Urgency
			count   int
		)
		if err := rows.Scan(&status, &urgency, &count); err != nil {
			return nil, err
		}
		stats.ByStatus[status] += count
		stats.ByUrgency[urgency] += count
		stats.Total += count
	}
	return stats, rows.Err()
}

// buildReportWhere renders filter into a WHERE clause with $n placeholders.
func buildReportWhere(filter ReportFilter) (string, []any) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.IssueTypes) > 0 {
		placeholders := make([]string, len(filter.IssueTypes))
		for i, issueType := range filter.IssueTypes {
			args = append(args, issueType)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("issue_type IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Urgencies) > 0 {
		placeholders := make([]string, len(filter.Urgencies))
		for i, urgency := range filter.Urgencies {
			args = append(args, urgency)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("urgency IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.AssignedToID != nil {
		args = append(args, *filter.AssignedToID)
		clauses = append(clauses, fmt.Sprintf("assigned_to_id=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchText != nil && strings.TrimSpace(*filter.SearchText) != "" {
		args = append(args, likePattern(*filter.SearchText))
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(summary) LIKE %s OR CAST(id AS TEXT) LIKE %s)", placeholder, placeholder))
	}

	return strings.Join(clauses, " AND "), args
}

func scanReport(row pgx.Row, report *domain.ComplianceReport) error {
	return row.Scan(
		&report.ID,
		&report.IssueType,
		&report.Urgency,
		&report.Summary,
		&report.FullDetails,
		&report.Status,
		&report.IsAnonymous,
		&report.AssignedToID,
		&report.Version,
		&report.CreatedAt,
		&report.UpdatedAt,
		&report.ClosedAt,
	)
}
