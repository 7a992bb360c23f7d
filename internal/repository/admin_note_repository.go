package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/woreda-portal/compliance-service/internal/domain"
)

// AdminNoteRepository persists staff notes. There is no update or delete:
// notes form part of the report's audit trail.
type AdminNoteRepository interface {
	Create(ctx context.Context, note *domain.AdminNote) error
	GetByID(ctx context.Context, id int64) (*domain.AdminNote, error)
	ListByReport(ctx context.Context, reportID int64, limit, offset int) ([]domain.AdminNote, int, error)
}

type adminNoteRepository struct {
	pool *pgxpool.Pool
}

// NewAdminNoteRepository instantiates the repository.
func NewAdminNoteRepository(pool *pgxpool.Pool) AdminNoteRepository {
	return &adminNoteRepository{pool: pool}
}

func (r *adminNoteRepository) Create(ctx context.Context, note *domain.AdminNote) error {
	const query = `
        INSERT INTO admin_notes (report_id, author_id, content)
        VALUES ($1,$2,$3)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		note.ReportID,
		note.AuthorID,
		note.Content,
	).Scan(&note.ID, &note.CreatedAt, &note.UpdatedAt)
}

func (r *adminNoteRepository) GetByID(ctx context.Context, id int64) (*domain.AdminNote, error) {
	const query = `
        SELECT id, report_id, author_id, content, created_at, updated_at
        FROM admin_notes WHERE id=$1`
	var note domain.AdminNote
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&note.ID,
		&note.ReportID,
		&note.AuthorID,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &note, nil
}

func (r *adminNoteRepository) ListByReport(ctx context.Context, reportID int64, limit, offset int) ([]domain.AdminNote, int, error) {
	limit, offset = normalizePaging(limit, offset, 50)

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_notes WHERE report_id=$1`, reportID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`
        SELECT id, report_id, author_id, content, created_at, updated_at
        FROM admin_notes WHERE report_id=$1 ORDER BY created_at ASC, id ASC LIMIT %d OFFSET %d`, limit, offset)
	rows, err := r.pool.Query(ctx, query, reportID)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	result := []domain.AdminNote{}
	for rows.Next() {
		var note domain.AdminNote
		if err := rows.Scan(
			&note.ID,
			&note.ReportID,
			&note.AuthorID,
			&note.Content,
			&note.CreatedAt,
			&note.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, note)
	}
	return result, total, rows.Err()
}
