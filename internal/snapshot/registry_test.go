package snapshot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveName(t *testing.T) {
	tests := []struct {
		backend string
		path    string
		want    string
	}{
		{BackendAuto, "out.db", BackendSQLite},
		{BackendAuto, "out.SQLITE", BackendSQLite},
		{BackendAuto, "out.duckdb", BackendDuckDB},
		{BackendAuto, "out.pkl", BackendSQLite},
		{"", "out.ddb", BackendDuckDB},
		{BackendDuckDB, "out.db", BackendDuckDB},
	}
	for _, tt := range tests {
		t.Run(tt.backend+"/"+tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveName(tt.backend, tt.path))
		})
	}
}

func TestNewBackend(t *testing.T) {
	b, err := NewBackend(BackendAuto, "x.duckdb", nil)
	require.NoError(t, err)
	assert.Equal(t, BackendDuckDB, b.Name())

	_, err = NewBackend("parquet", "x.db", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownBackend))

	var unknown *UnknownBackendError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, []string{BackendDuckDB, BackendSQLite}, unknown.Available)
}

func TestListBackends(t *testing.T) {
	assert.Equal(t, []string{"duckdb", "sqlite"}, ListBackends())
}
