package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/leapstack-labs/airprep/pkg/core"
)

// writeDataset inserts ds into an initialized snapshot database in one transaction.
func writeDataset(ctx context.Context, db *sql.DB, ds *core.Dataset) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO snapshot_meta (id, pollutant, stage, source, created_at, row_count) VALUES (?, ?, ?, ?, ?, ?)`,
		ds.ID, ds.Pollutant.String(), string(ds.Stage), ds.Source,
		ds.CreatedAt.UTC().Format(time.RFC3339Nano), len(ds.Records),
	)
	if err != nil {
		return fmt.Errorf("failed to write snapshot metadata: %w", err)
	}

	recStmt, err := tx.PrepareContext(ctx, `INSERT INTO records (seq, date, ref) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare record insert: %w", err)
	}
	defer func() { _ = recStmt.Close() }()

	valStmt, err := tx.PrepareContext(ctx, `INSERT INTO record_values (seq, column_name, value) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare value insert: %w", err)
	}
	defer func() { _ = valStmt.Close() }()

	numeric := append(ds.Pollutant.MeasurementColumns(), core.EnvironmentColumns()...)
	for i, rec := range ds.Records {
		if _, err = recStmt.ExecContext(ctx, i, rec.Date, rec.Ref); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
		for _, col := range numeric {
			v := ds.Numeric(i, col)
			if v == nil {
				return fmt.Errorf("record %d has no %s value slot", i, col)
			}
			if _, err = valStmt.ExecContext(ctx, i, col, storable(*v)); err != nil {
				return fmt.Errorf("failed to write record %d column %s: %w", i, col, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// storable maps NaN and infinities to NULL so every backend keeps the same
// values.
func storable(v sql.NullFloat64) sql.NullFloat64 {
	if v.Valid && (math.IsNaN(v.Float64) || math.IsInf(v.Float64, 0)) {
		return sql.NullFloat64{}
	}
	return v
}

// readDataset loads the single dataset stored in a snapshot database.
func readDataset(ctx context.Context, db *sql.DB) (*core.Dataset, error) {
	var (
		id, pollutant, stage, source, createdAt string
		rowCount                                int
	)
	err := db.QueryRowContext(ctx,
		`SELECT id, pollutant, stage, source, created_at, row_count FROM snapshot_meta`,
	).Scan(&id, &pollutant, &stage, &source, &createdAt, &rowCount)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot metadata (not an airprep snapshot?): %w", err)
	}

	p, err := core.ParsePollutant(pollutant)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", id, err)
	}
	created, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: invalid created_at: %w", id, err)
	}

	ds := core.NewDataset(p, core.Stage(stage))
	ds.ID = id
	ds.Source = source
	ds.CreatedAt = created
	ds.Records = make([]core.Record, rowCount)

	if err := readRecords(ctx, db, ds); err != nil {
		return nil, err
	}
	if err := readValues(ctx, db, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func readRecords(ctx context.Context, db *sql.DB, ds *core.Dataset) error {
	rows, err := db.QueryContext(ctx, `SELECT seq, date, ref FROM records ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	n := len(ds.Pollutant.MeasurementColumns())
	seen := 0
	for rows.Next() {
		var (
			seq int
			rec core.Record
		)
		if err := rows.Scan(&seq, &rec.Date, &rec.Ref); err != nil {
			return fmt.Errorf("failed to scan record: %w", err)
		}
		if seq < 0 || seq >= len(ds.Records) {
			return fmt.Errorf("record sequence %d out of range (row_count %d)", seq, len(ds.Records))
		}
		rec.Measurements = make([]sql.NullFloat64, n)
		ds.Records[seq] = rec
		seen++
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating records: %w", err)
	}
	if seen != len(ds.Records) {
		return fmt.Errorf("snapshot holds %d records, metadata says %d", seen, len(ds.Records))
	}
	return nil
}

func readValues(ctx context.Context, db *sql.DB, ds *core.Dataset) error {
	rows, err := db.QueryContext(ctx, `SELECT seq, column_name, value FROM record_values ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to query record values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var (
			seq int
			col string
			v   sql.NullFloat64
		)
		if err := rows.Scan(&seq, &col, &v); err != nil {
			return fmt.Errorf("failed to scan record value: %w", err)
		}
		if seq < 0 || seq >= len(ds.Records) {
			return fmt.Errorf("value for unknown record %d", seq)
		}
		slot := ds.Numeric(seq, col)
		if slot == nil {
			return fmt.Errorf("record %d: unknown %s column %q", seq, ds.Pollutant, col)
		}
		*slot = v
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating record values: %w", err)
	}
	return nil
}
