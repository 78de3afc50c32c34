// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/airprep/internal/cli/output"
)

// Raw vendor exports as they come off the sensors.
const (
	RawNO2CSV = "# date;#ref;#61FD;#61F0;#61EF\n" +
		"2020-01-01;A;10;12;11\n" +
		"2020-01-02;A;14;18;13\n" +
		"2020-01-03;A;6;9;20\n" +
		"2020-01-09;A;1;2;3\n"

	RawPMCSV = "# date;#ref;#6182;#6179;#617B;pm2.5#6182;PM25_6170;pm2.5#617B\n" +
		"2020-01-01;B;1;2;3;4;5;6\n" +
		"2020-01-02;B;2;4;1;8;5;7\n" +
		"2020-01-03;B;3;1;2;6;9;8\n"

	RawEnvCSV = "# date;Temp;RH;Tgrad;Patm;Pluvio\n" +
		"2020-01-01;20;50;1;1013;0\n" +
		"2020-01-02;22;60;2;1010;1.5\n" +
		"2020-01-03;18;55;4;1008;0\n"
)

// SetupTestFolder creates a temporary create-table folder with NO2, PM and
// environment exports.
func SetupTestFolder(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	files := map[string]string{
		"AllNO2_QH.csv": RawNO2CSV,
		"AllPM_QH.csv":  RawPMCSV,
		"Env_QH.csv":    RawEnvCSV,
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0644); err != nil {
			t.Fatalf("failed to create %s: %v", name, err)
		}
	}
	return tmpDir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a new test renderer with the specified mode and TTY state.
// Output is captured in buffers for inspection.
func NewTestRenderer(mode output.Mode, isTTY bool) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRendererWithTTY(out, errOut, isTTY, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// NewTestRendererMarkdown creates a new test renderer in markdown mode.
func NewTestRendererMarkdown() *TestRenderer {
	return NewTestRenderer(output.ModeMarkdown, false)
}

// NewTestRendererJSON creates a new test renderer in JSON mode.
func NewTestRendererJSON() *TestRenderer {
	return NewTestRenderer(output.ModeJSON, false)
}

// Output returns the combined stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertContains checks that the string contains the expected substring.
func AssertContains(t *testing.T, s, expected string) {
	t.Helper()
	if !strings.Contains(s, expected) {
		t.Errorf("string %q does not contain expected %q", s, expected)
	}
}
