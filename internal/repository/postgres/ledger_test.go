package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectland-backend/internal/domain"
)

func TestLedgerRepository_CreateTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)

	tx := &domain.LedgerTransaction{
		SectID:      1,
		Amount:      -500,
		Type:        domain.TransactionTypeMaintenanceDebit,
		Description: "periodic maintenance fee for 5 units",
	}

	mock.ExpectQuery("INSERT INTO ledger_transactions").
		WithArgs(tx.SectID, tx.Amount, tx.Type, tx.Description, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))

	require.NoError(t, repo.CreateTransaction(context.Background(), tx))
	assert.Equal(t, int32(7), tx.ID)
}

func TestLedgerRepository_ListBySect(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewLedgerRepository(db)
	now := time.Now()

	mock.ExpectQuery("SELECT (.+) FROM ledger_transactions WHERE sect_id").
		WithArgs(int32(1), int32(20), int32(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sect_id", "amount", "type", "description", "created_on"}).
			AddRow(2, 1, 250, "SHRINK_REFUND", "released 5 units of territory", now).
			AddRow(1, 1, -500, "MAINTENANCE_DEBIT", "periodic maintenance fee", now))
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM ledger_transactions").
		WithArgs(int32(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	txs, total, err := repo.ListBySect(context.Background(), 1, 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int32(2), total)
	require.Len(t, txs, 2)
	assert.Equal(t, domain.TransactionTypeShrinkRefund, txs[0].Type)
	assert.Equal(t, int64(-500), txs[1].Amount)
}
