package storage

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udihermony/algo-trader/internal/domain"
	"github.com/udihermony/algo-trader/internal/storage/repository"
)

func newMockStorage(t *testing.T) (*PostgresStorage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &PostgresStorage{
		db:        db,
		orders:    repository.NewOrderRepository(db),
		positions: repository.NewPositionRepository(db),
		trades:    repository.NewTradeRepository(db),
	}, mock
}

func fillFixture() (*Trade, *Position) {
	trade := &Trade{
		UserID:   1,
		OrderID:  15,
		Symbol:   "TCS",
		Side:     domain.SideBuy,
		Quantity: 10,
		Price:    3500,
	}
	position := &Position{
		UserID:   1,
		Symbol:   "TCS",
		Quantity: 10,
		AvgPrice: 3500,
		Active:   true,
	}
	return trade, position
}

func TestApplyFill_CommitsTradePositionAndOrder(t *testing.T) {
	s, mock := newMockStorage(t)
	trade, position := fillFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO trades").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO positions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := s.ApplyFill(trade, position, 15, domain.OrderStatusFilled, 10, 12.5, "{}")
	require.NoError(t, err)
	assert.Equal(t, int64(3), trade.ID)
	assert.Equal(t, int64(7), position.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFill_RollsBackWhenTradeInsertFails(t *testing.T) {
	s, mock := newMockStorage(t)
	trade, position := fillFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO trades").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.ApplyFill(trade, position, 15, domain.OrderStatusFilled, 10, 12.5, "{}")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFill_RollsBackWhenPositionUpsertFails(t *testing.T) {
	s, mock := newMockStorage(t)
	trade, position := fillFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO trades").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO positions").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	err := s.ApplyFill(trade, position, 15, domain.OrderStatusFilled, 10, 12.5, "{}")
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyFill_SurfacesTerminalOrder(t *testing.T) {
	s, mock := newMockStorage(t)
	trade, position := fillFixture()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO trades").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectQuery("INSERT INTO positions").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE orders").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := s.ApplyFill(trade, position, 15, domain.OrderStatusFilled, 10, 12.5, "{}")
	assert.ErrorIs(t, err, domain.ErrOrderTerminal)
	assert.NoError(t, mock.ExpectationsWereMet())
}
