package core

import (
	"errors"
	"fmt"
)

// =============================================================================
// Pollutant
// =============================================================================

// ErrInvalidPollutant is matched by errors.Is for any unrecognized selector.
var ErrInvalidPollutant = errors.New("invalid pollutant type")

// Pollutant selects the measurement layout of a readings table.
type Pollutant int

// Supported pollutant types.
const (
	PollutantNO2 Pollutant = iota + 1
	PollutantPM
)

type pollutantSpec struct {
	name         string
	file         string
	measurements []string
}

var pollutantSpecs = map[Pollutant]pollutantSpec{
	PollutantNO2: {
		name:         "NO2",
		file:         "AllNO2_QH.csv",
		measurements: []string{ColNO2_61FD, ColNO2_61F0, ColNO2_61EF},
	},
	PollutantPM: {
		name: "PM",
		file: "AllPM_QH.csv",
		measurements: []string{
			ColPM_6182, ColPM_6179, ColPM_617B,
			ColPM25_6182, ColPM25_6179, ColPM25_617B,
		},
	},
}

// Pollutants returns every supported pollutant in a stable order.
func Pollutants() []Pollutant {
	return []Pollutant{PollutantNO2, PollutantPM}
}

// ParsePollutant converts a selector ("NO2" or "PM") into a Pollutant.
// Matching is exact.
func ParsePollutant(s string) (Pollutant, error) {
	for _, p := range Pollutants() {
		if pollutantSpecs[p].name == s {
			return p, nil
		}
	}
	return 0, &InvalidPollutantError{Value: s}
}

// Valid reports whether p is a supported pollutant.
func (p Pollutant) Valid() bool {
	_, ok := pollutantSpecs[p]
	return ok
}

// String returns the selector name of the pollutant.
func (p Pollutant) String() string {
	if spec, ok := pollutantSpecs[p]; ok {
		return spec.name
	}
	return fmt.Sprintf("Pollutant(%d)", int(p))
}

// DefaultFilename is the readings file expected in a create-table folder.
func (p Pollutant) DefaultFilename() string {
	return pollutantSpecs[p].file
}

// MeasurementColumns returns the pollutant-specific measurement columns.
func (p Pollutant) MeasurementColumns() []string {
	return append([]string(nil), pollutantSpecs[p].measurements...)
}

// OutputColumns returns the full joined column order:
// date, ref, measurements, then the environment fields.
func (p Pollutant) OutputColumns() []string {
	m := pollutantSpecs[p].measurements
	cols := make([]string, 0, 2+len(m)+len(environmentColumns))
	cols = append(cols, ColDate, ColRef)
	cols = append(cols, m...)
	return append(cols, environmentColumns...)
}

// StandardizedColumns returns the numeric columns rescaled by the standardizer.
// Rainfall is carried through untouched.
func (p Pollutant) StandardizedColumns() []string {
	cols := p.MeasurementColumns()
	return append(cols, ColRH, ColTGrad, ColPressure, ColTemp)
}

// InvalidPollutantError is returned for an unrecognized pollutant selector.
type InvalidPollutantError struct {
	Value string
}

func (e *InvalidPollutantError) Error() string {
	return fmt.Sprintf("invalid type %q: must be PM or NO2", e.Value)
}

// Is makes errors.Is(err, ErrInvalidPollutant) match.
func (e *InvalidPollutantError) Is(target error) bool {
	return target == ErrInvalidPollutant
}
