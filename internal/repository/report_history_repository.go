package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

// ReportHistoryRepository reads audit entries. Entries are written by
// ReportRepository.Update alongside the change they describe.
type ReportHistoryRepository interface {
	ListByReport(ctx context.Context, reportID int64) ([]domain.ReportHistory, error)
}

type reportHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewReportHistoryRepository builds repository.
func NewReportHistoryRepository(pool *pgxpool.Pool) ReportHistoryRepository {
	return &reportHistoryRepository{pool: pool}
}

func insertHistory(ctx context.Context, db dbtx, history *domain.ReportHistory) error {
	const query = `
        INSERT INTO report_history (report_id, changed_by_id, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return db.QueryRow(ctx, query,
		history.ReportID,
		history.ChangedByID,
		history.ChangeType,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *reportHistoryRepository) ListByReport(ctx context.Context, reportID int64) ([]domain.ReportHistory, error) {
	const query = `
        SELECT id, report_id, changed_by_id, change_type, old_value, new_value, created_at
        FROM report_history WHERE report_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.ReportHistory{}
	for rows.Next() {
		var history domain.ReportHistory
		if err := rows.Scan(
			&history.ID,
			&history.ReportID,
			&history.ChangedByID,
			&history.ChangeType,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
