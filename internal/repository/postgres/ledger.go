package postgres

import (
	"context"
	"database/sql"
	"time"

	"sectland-backend/internal/domain"
	"sectland-backend/internal/repository"
)

type ledgerRepository struct {
	db *sql.DB
}

func NewLedgerRepository(db *sql.DB) repository.LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) CreateTransaction(ctx context.Context, tx *domain.LedgerTransaction) error {
	query := `INSERT INTO ledger_transactions (sect_id, amount, type, description, created_on)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id`
	return r.db.QueryRowContext(ctx, query, tx.SectID, tx.Amount, tx.Type,
		tx.Description, time.Now()).Scan(&tx.ID)
}

func (r *ledgerRepository) ListBySect(ctx context.Context, sectID int32, page, pageSize int32) ([]domain.LedgerTransaction, int32, error) {
	offset := (page - 1) * pageSize
	query := `SELECT id, sect_id, amount, type, COALESCE(description, ''), created_on
	          FROM ledger_transactions WHERE sect_id = $1 ORDER BY created_on DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, sectID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var count int32
	countQuery := `SELECT count(*) FROM ledger_transactions WHERE sect_id = $1`
	if err := r.db.QueryRowContext(ctx, countQuery, sectID).Scan(&count); err != nil {
		return nil, 0, err
	}

	var txs []domain.LedgerTransaction
	for rows.Next() {
		var tx domain.LedgerTransaction
		if err := rows.Scan(&tx.ID, &tx.SectID, &tx.Amount, &tx.Type, &tx.Description, &tx.CreatedOn); err != nil {
			return nil, 0, err
		}
		txs = append(txs, tx)
	}
	return txs, count, rows.Err()
}
