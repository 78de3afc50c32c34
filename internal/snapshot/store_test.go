package snapshot

import (
	"context"
	"database/sql"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/airprep/internal/testutil"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nf(v float64) sql.NullFloat64 { return sql.NullFloat64{Float64: v, Valid: true} }

func testDataset() *core.Dataset {
	ds := core.NewDataset(core.PollutantPM, core.StageJoined)
	ds.Source = "/data/march"
	ds.Records = []core.Record{
		{
			Date:         "2020-01-01 00:15",
			Ref:          sql.NullString{String: "R1", Valid: true},
			Measurements: []sql.NullFloat64{nf(1), nf(2), nf(3), nf(4.5), nf(5), nf(6)},
			Env:          core.Environment{RH: nf(50), TGrad: nf(-0.5), Pressure: nf(1013), Temp: nf(20), Pluvio: nf(0)},
		},
		{
			Date:         "2020-01-01 00:30",
			Measurements: []sql.NullFloat64{nf(7), {}, nf(9), nf(10), nf(11), nf(12)},
		},
	}
	return ds
}

func TestStore_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pm.db")
	store := NewStore(BackendAuto, testutil.NewTestLogger(t))

	in := testDataset()
	require.NoError(t, store.Save(ctx, path, in))
	assert.NotEmpty(t, in.ID, "Save assigns an ID")
	assert.False(t, in.CreatedAt.IsZero())

	out, err := store.Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, core.PollutantPM, out.Pollutant)
	assert.Equal(t, core.StageJoined, out.Stage)
	assert.Equal(t, "/data/march", out.Source)
	assert.WithinDuration(t, in.CreatedAt, out.CreatedAt, time.Millisecond)
	require.Len(t, out.Records, 2)
	for i := range in.Records {
		assert.Equal(t, in.Row(i), out.Row(i), "row %d", i)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "only the snapshot file should remain")
}

func TestStore_SaveOverwrites(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "no2.db")
	store := NewStore("", nil)

	first := core.NewDataset(core.PollutantNO2, core.StageJoined)
	require.NoError(t, store.Save(ctx, path, first))

	second := testDataset()
	require.NoError(t, store.Save(ctx, path, second))

	out, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, second.ID, out.ID)
	assert.Len(t, out.Records, 2)
}

func TestStore_EmptyDataset(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.db")
	store := NewStore(BackendSQLite, nil)

	require.NoError(t, store.Save(ctx, path, core.NewDataset(core.PollutantNO2, core.StageNormalized)))
	out, err := store.Load(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, out.Records)
	assert.Equal(t, core.StageNormalized, out.Stage)
}

func TestStore_LoadErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewStore(BackendAuto, nil)

	_, err := store.Load(ctx, filepath.Join(dir, "missing.db"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))

	_, err = store.Load(ctx, dir)
	require.Error(t, err)

	notSnapshot := filepath.Join(dir, "plain.db")
	db, err := sql.Open("sqlite", notSnapshot)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE other (x INTEGER)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	_, err = store.Load(ctx, notSnapshot)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an airprep snapshot")
}

func TestStore_SaveIntoMissingDirectory(t *testing.T) {
	err := NewStore(BackendAuto, nil).Save(context.Background(),
		filepath.Join(t.TempDir(), "nope", "x.db"), testDataset())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output directory does not exist")
}

func TestSQLiteBackend_InitSchemaIdempotent(t *testing.T) {
	ctx := context.Background()
	b := &SQLiteBackend{logger: testutil.NewTestLogger(t)}

	db, err := b.Open(ctx, filepath.Join(t.TempDir(), "v.db"), false)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, b.InitSchema(ctx, db))
	require.NoError(t, b.InitSchema(ctx, db))

	var version int64
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT MAX(version_id) FROM goose_db_version`).Scan(&version))
	assert.Equal(t, int64(1), version)
}

func TestStore_DuckDBRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("duckdb round trip skipped in short mode")
	}
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "pm.duckdb")
	store := NewStore(BackendAuto, testutil.NewTestLogger(t))

	in := testDataset()
	require.NoError(t, store.Save(ctx, path, in))

	out, err := store.Load(ctx, path)
	require.NoError(t, err)
	require.Len(t, out.Records, 2)
	assert.Equal(t, in.Row(0), out.Row(0))
	assert.Equal(t, in.Row(1), out.Row(1))
}

func TestStore_NonFiniteValuesStoredAsNull(t *testing.T) {
	tests := []struct {
		name string
		file string
		slow bool
	}{
		{name: "sqlite", file: "pm.db"},
		{name: "duckdb", file: "pm.duckdb", slow: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.slow && testing.Short() {
				t.Skip("duckdb skipped in short mode")
			}
			ctx := context.Background()
			path := filepath.Join(t.TempDir(), tt.file)
			store := NewStore(BackendAuto, testutil.NewTestLogger(t))

			in := testDataset()
			in.Records[0].Measurements[1] = nf(math.NaN())
			in.Records[0].Env.Temp = nf(math.Inf(1))
			in.Records[0].Env.RH = nf(math.Inf(-1))
			require.NoError(t, store.Save(ctx, path, in))

			out, err := store.Load(ctx, path)
			require.NoError(t, err)
			require.Len(t, out.Records, 2)

			rec := out.Records[0]
			assert.False(t, rec.Measurements[1].Valid)
			assert.False(t, rec.Env.Temp.Valid)
			assert.False(t, rec.Env.RH.Valid)
			assert.Equal(t, 1.0, rec.Measurements[0].Float64)
			assert.False(t, rec.Complete())
		})
	}
}
