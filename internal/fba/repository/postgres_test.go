package repository

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/fulfillment-service/internal/model"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*PGRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPGRepository(sqlx.NewDb(db, "pgx")), mock
}

// Prioritising bumps every order below the cap down one place before the
// target takes slot 1, so [1, 2, 999] becomes [2, 3, 999] plus the new 1.
func TestPrioritiseShiftsBelowCapThenTakesTop(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE fba_orders SET priority = priority \+ 1 WHERE priority < \$1`).
		WithArgs(model.MaxFBAPriority).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(`UPDATE fba_orders SET priority = 1, updated_at = NOW\(\) WHERE id = \$1`).
		WithArgs("fba-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Prioritise(context.Background(), "fba-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPrioritiseRollsBackOnShiftFailure(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE fba_orders SET priority = priority \+ 1 WHERE priority < \$1`).
		WithArgs(model.MaxFBAPriority).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Prioritise(context.Background(), "fba-1")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
