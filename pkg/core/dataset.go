package core

import (
	"database/sql"
	"math"
	"slices"
	"time"
)

// =============================================================================
// Dataset
// =============================================================================

// Stage records which pipeline step produced a dataset.
type Stage string

// Dataset stages.
const (
	StageJoined     Stage = "joined"
	StageNormalized Stage = "normalized"
)

// Environment holds the ambient fields joined onto a reading.
// An invalid field means no environment value was found for the date.
type Environment struct {
	RH       sql.NullFloat64
	TGrad    sql.NullFloat64
	Pressure sql.NullFloat64
	Temp     sql.NullFloat64
	Pluvio   sql.NullFloat64
}

// Field returns a pointer to the named environment field, or nil.
func (e *Environment) Field(name string) *sql.NullFloat64 {
	switch name {
	case ColRH:
		return &e.RH
	case ColTGrad:
		return &e.TGrad
	case ColPressure:
		return &e.Pressure
	case ColTemp:
		return &e.Temp
	case ColPluvio:
		return &e.Pluvio
	default:
		return nil
	}
}

// Fields returns the environment values in output column order.
func (e Environment) Fields() []sql.NullFloat64 {
	return []sql.NullFloat64{e.RH, e.TGrad, e.Pressure, e.Temp, e.Pluvio}
}

// Record is one joined (or standardized) reading.
type Record struct {
	Date string
	Ref  sql.NullString
	// Measurements follow Pollutant.MeasurementColumns order.
	Measurements []sql.NullFloat64
	Env          Environment
}

// Complete reports whether every field of the record holds a finite value.
func (r *Record) Complete() bool {
	if r.Date == "" || !r.Ref.Valid {
		return false
	}
	for _, m := range r.Measurements {
		if !Present(m) {
			return false
		}
	}
	for _, f := range r.Env.Fields() {
		if !Present(f) {
			return false
		}
	}
	return true
}

// Present reports whether v holds a finite number.
func Present(v sql.NullFloat64) bool {
	return v.Valid && !math.IsNaN(v.Float64) && !math.IsInf(v.Float64, 0)
}

// Dataset is a pollutant table: records in a fixed, pollutant-specific column order.
type Dataset struct {
	ID        string
	Pollutant Pollutant
	Stage     Stage
	Source    string
	CreatedAt time.Time
	Records   []Record
}

// NewDataset creates an empty dataset for the pollutant.
func NewDataset(p Pollutant, stage Stage) *Dataset {
	return &Dataset{Pollutant: p, Stage: stage}
}

// Columns returns the dataset column order.
func (d *Dataset) Columns() []string {
	return d.Pollutant.OutputColumns()
}

// Numeric returns a pointer to the named numeric field of record i, or nil
// when the column is not numeric for this dataset.
func (d *Dataset) Numeric(i int, column string) *sql.NullFloat64 {
	rec := &d.Records[i]
	if idx := slices.Index(d.Pollutant.MeasurementColumns(), column); idx >= 0 {
		if idx < len(rec.Measurements) {
			return &rec.Measurements[idx]
		}
		return nil
	}
	return rec.Env.Field(column)
}

// Row returns record i as cells in column order. Missing values are nil.
func (d *Dataset) Row(i int) []any {
	rec := d.Records[i]
	row := make([]any, 0, 2+len(rec.Measurements)+5)
	row = append(row, rec.Date)
	if rec.Ref.Valid {
		row = append(row, rec.Ref.String)
	} else {
		row = append(row, nil)
	}
	for _, v := range rec.Measurements {
		row = append(row, nullableCell(v))
	}
	for _, v := range rec.Env.Fields() {
		row = append(row, nullableCell(v))
	}
	return row
}

func nullableCell(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}
