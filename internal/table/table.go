// Package table reads and writes the semicolon-delimited sensor exports.
package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Delimiter separates fields in every sensor export.
const Delimiter = ';'

// Encodings reported on a loaded table.
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
)

// ErrDecode is returned when a file cannot be decoded with either encoding.
var ErrDecode = errors.New("failed to decode table")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Table is a header plus rows of raw cell text.
type Table struct {
	Header []string
	Rows   [][]string
	// Encoding is the source encoding the table was decoded from.
	Encoding string
}

// Index returns the position of a column, or -1.
func (t *Table) Index(column string) int {
	for i, h := range t.Header {
		if h == column {
			return i
		}
	}
	return -1
}

// RenameHeaders replaces every header with rename(header).
func (t *Table) RenameHeaders(rename func(string) string) {
	for i, h := range t.Header {
		t.Header[i] = rename(h)
	}
}

// ReadFile loads a table from path.
func ReadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		return nil, err
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes raw bytes (UTF-8, falling back to ISO-8859-1) and parses them
// as a semicolon-delimited table with a header row.
func Parse(data []byte) (*Table, error) {
	text, enc, err := decode(data)
	if err != nil {
		return nil, err
	}
	return parseCSV(bytes.NewReader(text), enc)
}

func decode(data []byte) ([]byte, string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, EncodingUTF8, nil
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return out, EncodingLatin1, nil
}

func parseCSV(r io.Reader, enc string) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("table is empty: missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	t := &Table{Header: header, Encoding: enc}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := cr.FieldPos(0)
		if len(rec) > len(header) {
			return nil, fmt.Errorf("line %d has %d fields, header has %d", line, len(rec), len(header))
		}
		// Short rows are padded with empty (missing) cells.
		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Write serializes t as UTF-8 semicolon-delimited text.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	cw.Comma = Delimiter
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteFile writes t to path. The file is written beside the destination
// and renamed into place, so a failed write leaves any existing file intact.
func WriteFile(path string, t *Table) error {
	return WriteAtomic(path, func(w io.Writer) error { return Write(w, t) })
}

// WriteAtomic writes through fn into a temporary file next to path and
// renames it over path once fn succeeds. An existing non-regular path
// (a device or named pipe such as /dev/stdout) is written directly.
func WriteAtomic(path string, fn func(io.Writer) error) error {
	if info, err := os.Stat(path); err == nil && !info.Mode().IsRegular() && !info.IsDir() {
		return writeThrough(path, fn)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if err := fn(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}

func writeThrough(path string, fn func(io.Writer) error) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0) //nolint:gosec // path comes from the operator
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
