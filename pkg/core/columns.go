package core

// =============================================================================
// Canonical column names
// =============================================================================

// Canonical column names used after header normalization.
const (
	ColDate     = "date"
	ColRef      = "ref"
	ColTemp     = "temp"
	ColRH       = "rh"
	ColTGrad    = "t_grad"
	ColPressure = "pressure"
	ColPluvio   = "pluvio"

	ColNO2_61FD = "NO2_61FD"
	ColNO2_61F0 = "NO2_61F0"
	ColNO2_61EF = "NO2_61EF"

	ColPM_6182 = "PM_6182"
	ColPM_6179 = "PM_6179"
	ColPM_617B = "PM_617B"

	ColPM25_6182 = "PM25_6182"
	ColPM25_6179 = "PM25_6179"
	ColPM25_617B = "PM25_617B"
)

// headerAliases maps raw vendor headers to canonical names.
// PM25_6170 is a legacy header of the 6179 fine-particulate sensor.
var headerAliases = map[string]string{
	"# date":     ColDate,
	"Temp":       ColTemp,
	"RH":         ColRH,
	"Tgrad":      ColTGrad,
	"Patm":       ColPressure,
	"Pluvio":     ColPluvio,
	"#ref":       ColRef,
	"#61FD":      ColNO2_61FD,
	"#61F0":      ColNO2_61F0,
	"#61EF":      ColNO2_61EF,
	"#6182":      ColPM_6182,
	"#6179":      ColPM_6179,
	"#617B":      ColPM_617B,
	"pm2.5#6182": ColPM25_6182,
	"pm2.5#6179": ColPM25_6179,
	"PM25_6170":  ColPM25_6179,
	"pm2.5#617B": ColPM25_617B,
}

// CanonicalName returns the canonical name for a raw header.
// Headers without an alias are returned unchanged with ok=false.
func CanonicalName(raw string) (name string, ok bool) {
	if canonical, found := headerAliases[raw]; found {
		return canonical, true
	}
	return raw, false
}

// NormalizeHeaders returns a copy of headers with every aliased entry renamed.
func NormalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i], _ = CanonicalName(h)
	}
	return out
}

// environmentColumns lists the environment fields in output order.
var environmentColumns = []string{ColRH, ColTGrad, ColPressure, ColTemp, ColPluvio}

// EnvironmentColumns returns the environment field names in output order.
func EnvironmentColumns() []string {
	return append([]string(nil), environmentColumns...)
}
