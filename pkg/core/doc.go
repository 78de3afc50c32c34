// Package core defines the shared language of airprep.
//
// This package contains:
//   - Canonical column names and the raw header alias table
//   - The Pollutant variant (NO2, PM) and its column layouts
//   - Dataset, Record and Environment, the joined table model
//
// pkg/core imports ONLY the standard library.
// All other packages depend on core, not the reverse.
package core
