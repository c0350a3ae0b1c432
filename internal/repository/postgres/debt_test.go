package postgres

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sectland-backend/internal/domain"
)

func TestDebtRepository_ListAll(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDebtRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM debt_records").
		WillReturnRows(sqlmock.NewRows([]string{"sect_id", "started_at", "due_amount", "last_warning_at", "frozen"}).
			AddRow(1, 1700000000000, 500, 1700000050000, false).
			AddRow(4, 1699000000000, 900, 1699000050000, true))

	records, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(500), records[0].DueAmount)
	assert.True(t, records[1].Frozen)
}

func TestDebtRepository_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDebtRepository(db)
	rec := &domain.DebtRecord{
		SectID:        1,
		StartedAt:     1700000000000,
		DueAmount:     500,
		LastWarningAt: 1700000050000,
		Frozen:        true,
	}

	mock.ExpectExec("INSERT INTO debt_records").
		WithArgs(rec.SectID, rec.StartedAt, rec.DueAmount, rec.LastWarningAt, rec.Frozen).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Upsert(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebtRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewDebtRepository(db)

	mock.ExpectExec("DELETE FROM debt_records").
		WithArgs(int32(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 1))
	assert.NoError(t, mock.ExpectationsWereMet())
}
