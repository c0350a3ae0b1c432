package postgres

import (
	"context"
	"database/sql"

	"sectland-backend/internal/domain"
	"sectland-backend/internal/repository"
)

type debtRepository struct {
	db *sql.DB
}

func NewDebtRepository(db *sql.DB) repository.DebtRepository {
	return &debtRepository{db: db}
}

func (r *debtRepository) ListAll(ctx context.Context) ([]domain.DebtRecord, error) {
	query := `SELECT sect_id, started_at, due_amount, last_warning_at, frozen FROM debt_records ORDER BY sect_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.DebtRecord
	for rows.Next() {
		var d domain.DebtRecord
		if err := rows.Scan(&d.SectID, &d.StartedAt, &d.DueAmount, &d.LastWarningAt, &d.Frozen); err != nil {
			return nil, err
		}
		records = append(records, d)
	}
	return records, rows.Err()
}

func (r *debtRepository) Upsert(ctx context.Context, record *domain.DebtRecord) error {
	query := `INSERT INTO debt_records (sect_id, started_at, due_amount, last_warning_at, frozen)
	          VALUES ($1, $2, $3, $4, $5)
	          ON CONFLICT (sect_id) DO UPDATE SET
	            due_amount = EXCLUDED.due_amount,
	            last_warning_at = EXCLUDED.last_warning_at,
	            frozen = EXCLUDED.frozen`
	_, err := r.db.ExecContext(ctx, query, record.SectID, record.StartedAt,
		record.DueAmount, record.LastWarningAt, record.Frozen)
	return err
}

func (r *debtRepository) Delete(ctx context.Context, sectID int32) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM debt_records WHERE sect_id = $1`, sectID)
	return err
}
