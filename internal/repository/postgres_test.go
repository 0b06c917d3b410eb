package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"storefront-restock-api/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPostgresInventory_SetQty_LocksRowInOneTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO inventory (product_id, variant, qty, updated_at)`)).
		WithArgs("fl-01", "3.5g").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT qty FROM inventory WHERE product_id = $1 AND variant = $2 FOR UPDATE`)).
		WithArgs("fl-01", "3.5g").
		WillReturnRows(sqlmock.NewRows([]string{"qty"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory SET qty = $1, updated_at = NOW() WHERE product_id = $2 AND variant = $3`)).
		WithArgs(10, "fl-01", "3.5g").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewPostgresInventoryRepository(db, zap.NewNop())
	change, err := repo.SetQty(context.Background(), "fl-01", "3.5g", 10)
	require.NoError(t, err)
	assert.Equal(t, model.QtyChange{Prev: 0, Next: 10}, change)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresInventory_SetQty_CommitFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO inventory`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).WillReturnRows(sqlmock.NewRows([]string{"qty"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE inventory`)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit().WillReturnError(errors.New("disk full"))

	repo := NewPostgresInventoryRepository(db, zap.NewNop())
	_, err = repo.SetQty(context.Background(), "fl-01", "3.5g", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
}

func TestPostgresInventory_BulkCreateMissing_ContinuesPastFailures(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	insert := regexp.QuoteMeta(`INSERT INTO inventory (product_id, variant, qty, updated_at)`)
	mock.ExpectExec(insert).WithArgs("a", "").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(insert).WithArgs("b", "1g").WillReturnError(errors.New("boom"))
	mock.ExpectExec(insert).WithArgs("c", "2g").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(insert).WithArgs("d", "").WillReturnResult(sqlmock.NewResult(2, 1))

	repo := NewPostgresInventoryRepository(db, nil)
	created, errs := repo.BulkCreateMissing(context.Background(), []model.InventoryKey{
		{ProductID: "a"}, {ProductID: "b", Variant: "1g"}, {ProductID: "c", Variant: "2g"}, {ProductID: "d"},
	})
	assert.Equal(t, 2, created)
	assert.Len(t, errs, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSubscriptions_DeleteByIDs_UsesDollarPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM subscriptions`)).
		WithArgs("fl-01", "fl-01:%").
		WillReturnRows(sqlmock.NewRows([]string{"id", "product_id", "variant", "email", "created_at"}).
			AddRow("s1", "fl-01", "3.5g", "alice@x.com", nowForTest()).
			AddRow("s2", "fl-01", "3.5g", "bob@x.com", nowForTest()).
			AddRow("s3", "fl-01", "", "carol@x.com", nowForTest()))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM subscriptions WHERE id IN ($1, $2)`)).
		WithArgs("s1", "s2").
		WillReturnResult(sqlmock.NewResult(0, 2))

	reg := NewPostgresSubscriptionRepository(db)
	n, err := reg.DeleteByIDs(context.Background(), "fl-01", "3.5g", []string{"s1", "s3", "s2"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
