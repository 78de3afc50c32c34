package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"# date", ColDate, true},
		{"Temp", ColTemp, true},
		{"RH", ColRH, true},
		{"Tgrad", ColTGrad, true},
		{"Patm", ColPressure, true},
		{"Pluvio", ColPluvio, true},
		{"#ref", ColRef, true},
		{"#61FD", ColNO2_61FD, true},
		{"#61F0", ColNO2_61F0, true},
		{"#61EF", ColNO2_61EF, true},
		{"#6182", ColPM_6182, true},
		{"#6179", ColPM_6179, true},
		{"#617B", ColPM_617B, true},
		{"pm2.5#6182", ColPM25_6182, true},
		{"pm2.5#6179", ColPM25_6179, true},
		{"PM25_6170", ColPM25_6179, true},
		{"pm2.5#617B", ColPM25_617B, true},
		{"comment", "comment", false},
		{"temp", "temp", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := CanonicalName(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeHeaders_IdempotentOnCanonical(t *testing.T) {
	raw := []string{"# date", "#ref", "#61FD", "extra"}
	once := NormalizeHeaders(raw)
	twice := NormalizeHeaders(once)

	assert.Equal(t, []string{"date", "ref", "NO2_61FD", "extra"}, once)
	assert.Equal(t, once, twice)
	assert.Equal(t, "# date", raw[0], "input slice must not be modified")
}

func TestHeaderAliases_Count(t *testing.T) {
	assert.Len(t, headerAliases, 17)
}

func TestEnvironmentColumns(t *testing.T) {
	assert.Equal(t, []string{"rh", "t_grad", "pressure", "temp", "pluvio"}, EnvironmentColumns())
}
