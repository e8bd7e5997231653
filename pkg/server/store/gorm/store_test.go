package gorm

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/marathon-in-go/pkg/model"
	"github.com/doodlesbykumbi/marathon-in-go/pkg/server/store"
)

type Suite struct {
	suite.Suite
	DB   *gorm.DB
	mock sqlmock.Sqlmock
}

func (s *Suite) SetupTest() {
	var (
		db  *sql.DB
		err error
	)

	db, s.mock, err = sqlmock.New()
	require.NoError(s.T(), err)

	s.DB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(s.T(), err)
}

// AfterTest checks that every expected statement ran
func (s *Suite) AfterTest(_, _ string) {
	require.NoError(s.T(), s.mock.ExpectationsWereMet())
}

func TestStores(t *testing.T) {
	suite.Run(t, new(Suite))
}

var batchRow = []string{"id", "created_at", "finished_at", "product", "mode", "serial_count", "succeeded", "failed", "success", "error"}

func (s *Suite) TestAddBatchPrunesHistory() {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	batch := &model.Batch{
		ID:          "b1",
		CreatedAt:   now,
		FinishedAt:  now.Add(time.Minute),
		Product:     "MLS-AB",
		Mode:        "batch",
		SerialCount: 2,
		Succeeded:   1,
		Failed:      1,
		Items: []model.BatchItem{
			{Serial: "AB100", Product: "MLS-AB", OK: true, Attempted: true},
			{Serial: "AB101", Product: "MLS-AB", Attempted: true, Error: "timeout"},
		},
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO batches`).
		WithArgs("b1", sqlmock.AnyArg(), sqlmock.AnyArg(), "MLS-AB", "batch", 2, 1, 1, false, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO batch_items`).
		WithArgs("b1", 0, "AB100", "MLS-AB", true, true, "").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO batch_items`).
		WithArgs("b1", 1, "AB101", "MLS-AB", false, true, "timeout").
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`DELETE FROM batches WHERE id NOT IN`).
		WithArgs(50).
		WillReturnResult(sqlmock.NewResult(0, 0))
	s.mock.ExpectCommit()

	err := NewHistoryStore(s.DB).AddBatch(batch, 50)
	assert.NoError(s.T(), err)
}

func (s *Suite) TestAddBatchRollsBackOnFailure() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO batches`).
		WillReturnError(errors.New("disk full"))
	s.mock.ExpectRollback()

	err := NewHistoryStore(s.DB).AddBatch(&model.Batch{ID: "b1"}, 50)
	assert.EqualError(s.T(), err, "disk full")
}

func (s *Suite) TestListBatches() {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(`SELECT (.+) FROM batches ORDER BY created_at DESC LIMIT`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows(batchRow).
			AddRow("b2", now.Add(time.Hour), now.Add(time.Hour), "MLS-CD", "batch", 1, 1, 0, true, "").
			AddRow("b1", now, now, "MLS-AB", "per_item", 1, 0, 1, false, "Step 6/10 (confirm): timed out"))
	s.mock.ExpectQuery(`SELECT (.+) FROM batch_items WHERE batch_id IN`).
		WithArgs("b2", "b1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "position", "serial", "product", "ok", "attempted", "error"}).
			AddRow("b1", 0, "AB100", "MLS-AB", false, true, "timed out").
			AddRow("b2", 0, "CD200", "MLS-CD", true, true, ""))

	batches, err := NewHistoryStore(s.DB).ListBatches(10)
	require.NoError(s.T(), err)
	require.Len(s.T(), batches, 2)
	assert.Equal(s.T(), "b2", batches[0].ID)
	assert.Equal(s.T(), []string{"CD200"}, batches[0].Serials())
	assert.Equal(s.T(), []string{"AB100"}, batches[1].Serials())
	assert.Equal(s.T(), "per_item", batches[1].Mode)
}

func (s *Suite) TestListBatchesEmpty() {
	s.mock.ExpectQuery(`SELECT (.+) FROM batches`).
		WillReturnRows(sqlmock.NewRows(batchRow))

	batches, err := NewHistoryStore(s.DB).ListBatches(10)
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), batches)
	assert.Empty(s.T(), batches)
}

func (s *Suite) TestFetchBatchNotFound() {
	s.mock.ExpectQuery(`SELECT (.+) FROM batches WHERE id =`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(batchRow))

	_, err := NewHistoryStore(s.DB).FetchBatch("missing")
	assert.ErrorIs(s.T(), err, store.ErrBatchNotFound)
}

func (s *Suite) TestFetchBatch() {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(`SELECT (.+) FROM batches WHERE id =`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows(batchRow).
			AddRow("b1", now, now, "MLS-AB", "batch", 2, 2, 0, true, ""))
	s.mock.ExpectQuery(`SELECT (.+) FROM batch_items WHERE batch_id =`).
		WithArgs("b1").
		WillReturnRows(sqlmock.NewRows([]string{"batch_id", "position", "serial", "product", "ok", "attempted", "error"}).
			AddRow("b1", 0, "AB100", "MLS-AB", true, true, "").
			AddRow("b1", 1, "AB101", "MLS-AB", true, true, ""))

	batch, err := NewHistoryStore(s.DB).FetchBatch("b1")
	require.NoError(s.T(), err)
	assert.True(s.T(), batch.Success)
	assert.Equal(s.T(), []string{"AB100", "AB101"}, batch.Serials())
}

func (s *Suite) TestRecordBatch() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(`INSERT INTO daily_statistics`).
		WithArgs("2024-03-01", 3, 0, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO product_statistics`).
		WithArgs("MLS-AB", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(`INSERT INTO product_statistics`).
		WithArgs("MLS-CD", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	err := NewStatisticsStore(s.DB).RecordBatch(store.BatchStatistic{
		Day:      "2024-03-01",
		Serials:  3,
		Success:  false,
		Products: map[string]int{"MLS-CD": 1, "MLS-AB": 2},
	})
	assert.NoError(s.T(), err)
}

func (s *Suite) TestTodayWithoutRuns() {
	s.mock.ExpectQuery(`SELECT (.+) FROM daily_statistics WHERE day =`).
		WithArgs("2024-03-02").
		WillReturnRows(sqlmock.NewRows([]string{"day", "serials", "batches", "successes", "errors"}))

	stat, err := NewStatisticsStore(s.DB).Today("2024-03-02")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), model.DailyStatistic{Day: "2024-03-02"}, *stat)
}

func (s *Suite) TestSummary() {
	s.mock.ExpectQuery(`SELECT (.+) FROM daily_statistics ORDER BY day`).
		WillReturnRows(sqlmock.NewRows([]string{"day", "serials", "batches", "successes", "errors"}).
			AddRow("2024-03-01", 10, 2, 1, 1).
			AddRow("2024-03-02", 5, 1, 1, 0))
	s.mock.ExpectQuery(`SELECT (.+) FROM product_statistics`).
		WillReturnRows(sqlmock.NewRows([]string{"product", "serials"}).
			AddRow("MLS-AB", 12).
			AddRow("MLS-CD", 3))

	summary, err := NewStatisticsStore(s.DB).Summary()
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 15, summary.TotalSerials)
	assert.Equal(s.T(), 3, summary.TotalBatches)
	assert.Equal(s.T(), 2, summary.SuccessCount)
	assert.Equal(s.T(), 1, summary.ErrorCount)
	assert.Equal(s.T(), map[string]int{"MLS-AB": 12, "MLS-CD": 3}, summary.Products)
	assert.Equal(s.T(), 5, summary.Daily["2024-03-02"].Serials)
}

func (s *Suite) TestCheckConnectivity() {
	s.mock.ExpectExec(`SELECT 1`).WillReturnResult(sqlmock.NewResult(0, 0))
	assert.NoError(s.T(), NewHealthStore(s.DB).CheckConnectivity())
}
