package snapshot

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteDataset_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	ds := testDataset()
	ds.ID = "snap-1"
	ds.CreatedAt = time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO snapshot_meta").
		WithArgs("snap-1", "PM", "joined", "/data/march", "2020-01-02T03:04:05Z", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))
	recPrep := mock.ExpectPrepare("INSERT INTO records")
	mock.ExpectPrepare("INSERT INTO record_values")
	recPrep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = writeDataset(context.Background(), db, ds)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write record 0")
	assert.Contains(t, err.Error(), "disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWriteDataset_MetadataFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO snapshot_meta").WillReturnError(errors.New("readonly database"))
	mock.ExpectRollback()

	err = writeDataset(context.Background(), db, core.NewDataset(core.PollutantNO2, core.StageJoined))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write snapshot metadata")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadDataset_RejectsUnknownPollutant(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("SELECT id, pollutant, stage, source, created_at, row_count FROM snapshot_meta").
		WillReturnRows(sqlmock.NewRows([]string{"id", "pollutant", "stage", "source", "created_at", "row_count"}).
			AddRow("snap-2", "CO2", "joined", "", "2020-01-02T03:04:05Z", 0))

	_, err = readDataset(context.Background(), db)
	require.ErrorIs(t, err, core.ErrInvalidPollutant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReadDataset_RowCountMismatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	mock.ExpectQuery("FROM snapshot_meta").
		WillReturnRows(sqlmock.NewRows([]string{"id", "pollutant", "stage", "source", "created_at", "row_count"}).
			AddRow("snap-3", "NO2", "joined", "", "2020-01-02T03:04:05Z", 2))
	mock.ExpectQuery("FROM records").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "date", "ref"}).AddRow(0, "2020-01-01", "A"))

	_, err = readDataset(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "holds 1 records, metadata says 2")
	assert.NoError(t, mock.ExpectationsWereMet())
}
