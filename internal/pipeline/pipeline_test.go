package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/airprep/internal/table"
	"github.com/leapstack-labs/airprep/internal/testutil"
	"github.com/leapstack-labs/airprep/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	return New(Config{Logger: testutil.NewTestLogger(t)})
}

// setupNO2Folder writes raw (uncleaned) vendor exports.
func setupNO2Folder(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AllNO2_QH.csv"),
		"# date;#ref;#61FD;#61F0;#61EF\n"+
			"2020-01-01;A;10;12;11\n"+
			"2020-01-02;A;14;18;13\n"+
			"2020-01-03;A;6;9;20\n"+
			"2020-01-09;A;1;2;3\n")
	writeFile(t, filepath.Join(dir, "Env_QH.csv"),
		"# date;Temp;RH;Tgrad;Patm;Pluvio\n"+
			"2020-01-01;20;50;1;1013;0\n"+
			"2020-01-02;22;60;2;1010;1.5\n"+
			"2020-01-03;18;55;4;1008;0\n")
	return dir
}

func TestClean_SingleFileInPlace(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "env.csv")
	writeFile(t, path, "# date;Temp;Patm;comment\n2020-01-01;20;1013;ok\n")

	results, err := newTestPipeline(t).Clean(context.Background(), path, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, path, results[0].Destination)
	assert.Equal(t, map[string]string{"# date": "date", "Temp": "temp", "Patm": "pressure"}, results[0].Renamed)

	tbl, err := table.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"date", "temp", "pressure", "comment"}, tbl.Header)
	assert.Equal(t, [][]string{{"2020-01-01", "20", "1013", "ok"}}, tbl.Rows)
}

func TestClean_Idempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pm.csv")
	writeFile(t, path, "date;ref;PM25_6179\n2020-01-01;A;3\n")

	p := newTestPipeline(t)
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	results, err := p.Clean(context.Background(), path, "")
	require.NoError(t, err)
	assert.Empty(t, results[0].Renamed)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestClean_LegacyAliasAndLatin1(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pm.csv")
	writeFile(t, path, "# date;PM25_6170;lieu\n2020-01-01;3;Orl\xe9ans\n")

	out := filepath.Join(dir, "clean.csv")
	results, err := newTestPipeline(t).Clean(context.Background(), path, out)
	require.NoError(t, err)
	assert.Equal(t, table.EncodingLatin1, results[0].Encoding)

	tbl, err := table.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, table.EncodingUTF8, tbl.Encoding)
	assert.Equal(t, []string{"date", "PM25_6179", "lieu"}, tbl.Header)
	assert.Equal(t, "Orléans", tbl.Rows[0][2])
}

func TestClean_Directory(t *testing.T) {
	in := t.TempDir()
	writeFile(t, filepath.Join(in, "a.csv"), "#ref\nx\n")
	writeFile(t, filepath.Join(in, "b.csv"), "RH\n1\n")
	writeFile(t, filepath.Join(in, "notes.txt"), "RH\n1\n")
	out := filepath.Join(t.TempDir(), "cleaned")

	results, err := newTestPipeline(t).Clean(context.Background(), in, out)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, filepath.Join(out, "a.csv"), results[0].Destination)
	assert.Equal(t, filepath.Join(out, "b.csv"), results[1].Destination)

	_, err = os.Stat(filepath.Join(out, "notes.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestClean_OutputDirectoryForFile(t *testing.T) {
	in := filepath.Join(t.TempDir(), "env.csv")
	writeFile(t, in, "Temp\n1\n")
	outDir := t.TempDir()

	results, err := newTestPipeline(t).Clean(context.Background(), in, outDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "env.csv"), results[0].Destination)
}

func TestClean_Errors(t *testing.T) {
	p := newTestPipeline(t)
	dir := t.TempDir()

	_, err := p.Clean(context.Background(), filepath.Join(dir, "missing.csv"), "")
	assert.ErrorIs(t, err, ErrMissingInput)

	txt := filepath.Join(dir, "data.txt")
	writeFile(t, txt, "a\n")
	_, err = p.Clean(context.Background(), txt, "")
	assert.ErrorIs(t, err, ErrNotCSV)

	_, err = p.Clean(context.Background(), dir, txt)
	assert.ErrorIs(t, err, ErrNotDirectory)
}

func TestCreateTable_NO2(t *testing.T) {
	dir := setupNO2Folder(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	res, err := p.CreateTable(ctx, dir, core.PollutantNO2, "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "NO2_table.db"), res.Output)
	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 3, res.Complete)
	assert.Equal(t, 1, res.Unmatched)

	ds, err := p.Store().Load(ctx, res.Output)
	require.NoError(t, err)
	assert.Equal(t, res.SnapshotID, ds.ID)
	assert.Equal(t, core.StageJoined, ds.Stage)
	assert.Equal(t,
		[]any{"2020-01-01", "A", 10.0, 12.0, 11.0, 50.0, 1.0, 1013.0, 20.0, 0.0},
		ds.Row(0))
	assert.Equal(t,
		[]any{"2020-01-09", "A", 1.0, 2.0, 3.0, nil, nil, nil, nil, nil},
		ds.Row(3))
}

func TestCreateTable_MatchedDateWithMissingFieldsIsNotUnmatched(t *testing.T) {
	dir := setupNO2Folder(t)
	writeFile(t, filepath.Join(dir, "Env_QH.csv"),
		"# date;Temp;RH;Tgrad;Patm;Pluvio\n"+
			"2020-01-01;20;50;1;1013;0\n"+
			"2020-01-02;NA;NA;NA;NA;NA\n"+
			"2020-01-03;18;55;4;1008;0\n")

	res, err := newTestPipeline(t).CreateTable(context.Background(), dir, core.PollutantNO2, "")
	require.NoError(t, err)

	assert.Equal(t, 1, res.Unmatched, "only 2020-01-09 lacks an environment row")
	assert.Equal(t, 2, res.Complete)
}

func TestCreateTable_Errors(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()
	dir := setupNO2Folder(t)

	_, err := p.CreateTable(ctx, filepath.Join(dir, "nope"), core.PollutantNO2, "")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = p.CreateTable(ctx, filepath.Join(dir, "Env_QH.csv"), core.PollutantNO2, "")
	assert.ErrorIs(t, err, ErrNotDirectory)

	_, err = p.CreateTable(ctx, dir, core.PollutantPM, "")
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.Contains(t, err.Error(), "AllPM_QH.csv")

	_, err = p.CreateTable(ctx, dir, core.Pollutant(0), "")
	assert.ErrorIs(t, err, core.ErrInvalidPollutant)

	require.NoError(t, os.Remove(filepath.Join(dir, "Env_QH.csv")))
	_, err = p.CreateTable(ctx, dir, core.PollutantNO2, "")
	assert.ErrorIs(t, err, ErrMissingInput)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no output may be written on failure")
}

func TestCreateTable_ConfiguredFileNames(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pm.csv"),
		"date;ref;PM_6182;PM_6179;PM_617B;PM25_6182;PM25_6179;PM25_617B\n2020-01-01;R;1;2;3;4;5;6\n")
	writeFile(t, filepath.Join(dir, "env.csv"), "date;temp;rh;t_grad;pressure;pluvio\n2020-01-01;1;2;3;4;5\n")

	p := New(Config{
		Files:             FileNames{PM: "pm.csv", Env: "env.csv"},
		SnapshotExtension: ".duckdb",
		SnapshotBackend:   "sqlite",
	})
	out := filepath.Join(dir, "custom.db")
	res, err := p.CreateTable(context.Background(), dir, core.PollutantPM, out)
	require.NoError(t, err)
	assert.Equal(t, out, res.Output)
	assert.Equal(t, 1, res.Complete)
}

func TestNormalizeTable(t *testing.T) {
	dir := setupNO2Folder(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	created, err := p.CreateTable(ctx, dir, core.PollutantNO2, "")
	require.NoError(t, err)

	res, err := p.NormalizeTable(ctx, created.Output, core.PollutantNO2, "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "NO2_table_normalized.db"), res.Output)
	assert.Equal(t, 4, res.Report.RowsIn)
	assert.Equal(t, 3, res.Report.RowsKept)

	ds, err := p.Store().Load(ctx, res.Output)
	require.NoError(t, err)
	assert.Equal(t, core.StageNormalized, ds.Stage)
	require.Len(t, ds.Records, 3)
	for i := range ds.Records {
		assert.NotEqual(t, "2020-01-09", ds.Records[i].Date, "unmatched reading must be dropped")
	}
	assert.InDelta(t, 0, ds.Records[0].Measurements[0].Float64, 1e-12)
	assert.InDelta(t, 1, ds.Records[1].Measurements[0].Float64, 1e-12)
}

func TestNormalizeTable_Errors(t *testing.T) {
	dir := setupNO2Folder(t)
	p := newTestPipeline(t)
	ctx := context.Background()

	created, err := p.CreateTable(ctx, dir, core.PollutantNO2, "")
	require.NoError(t, err)

	_, err = p.NormalizeTable(ctx, created.Output, core.PollutantPM, "")
	assert.ErrorIs(t, err, ErrPollutantMismatch)

	_, err = p.NormalizeTable(ctx, filepath.Join(dir, "missing.db"), core.PollutantNO2, "")
	assert.ErrorIs(t, err, ErrMissingInput)

	_, err = p.NormalizeTable(ctx, created.Output, core.Pollutant(7), "")
	assert.True(t, errors.Is(err, core.ErrInvalidPollutant))

	_, err = os.Stat(p.NormalizedPath(created.Output))
	assert.True(t, os.IsNotExist(err))
}

func TestNormalizedPath(t *testing.T) {
	p := New(Config{NormalizedSuffix: "_z"})
	assert.Equal(t, filepath.Join("data", "no2.v1_z.db"), p.NormalizedPath(filepath.Join("data", "no2.v1.db")))
	assert.Equal(t, "table_z", p.NormalizedPath("table"))
}

func TestFileNames(t *testing.T) {
	var f FileNames
	assert.Equal(t, "AllNO2_QH.csv", f.Readings(core.PollutantNO2))
	assert.Equal(t, "AllPM_QH.csv", f.Readings(core.PollutantPM))
	assert.Equal(t, "Env_QH.csv", f.Environment())

	f = FileNames{NO2: "no2.csv", Env: "env.csv"}
	assert.Equal(t, "no2.csv", f.Readings(core.PollutantNO2))
	assert.Equal(t, "AllPM_QH.csv", f.Readings(core.PollutantPM))
	assert.Equal(t, "env.csv", f.Environment())
}
