package table

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Table is a header-indexed set of rows. Rows may be ragged; a missing cell
// reads as an empty string.
type Table struct {
	Headers []string
	Rows    [][]string
	Index   map[string]int
}

// New builds a Table and derives its header index. The first occurrence of a
// duplicated header name wins.
func New(headers []string, rows [][]string) *Table {
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		if _, ok := index[h]; !ok {
			index[h] = i
		}
	}
	return &Table{Headers: headers, Rows: rows, Index: index}
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Has reports whether the header is present.
func (t *Table) Has(header string) bool {
	if t == nil {
		return false
	}
	_, ok := t.Index[header]
	return ok
}

// Get returns the cell of row i under header, or "" when either is missing.
func (t *Table) Get(i int, header string) string {
	if t == nil {
		return ""
	}
	col, ok := t.Index[header]
	if !ok || i < 0 || i >= len(t.Rows) {
		return ""
	}
	row := t.Rows[i]
	if col >= len(row) {
		return ""
	}
	return row[col]
}

// Parse turns delimited text into a Table. The delimiter is detected from the
// header line only (tab, then semicolon, then comma) and applied to every line.
func Parse(raw string) *Table {
	raw = stripBOM(raw)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return New(nil, nil)
	}

	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	delim := detectDelimiter(lines[0])
	headers := splitLine(lines[0], delim)

	rows := make([][]string, 0, len(lines)-1)
	for _, line := range lines[1:] {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, splitLine(line, delim))
	}
	return New(headers, rows)
}

// ParseXLSX reads the first sheet of a workbook; its first row is the header.
func ParseXLSX(r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read rows from sheet %s: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return New(nil, nil), nil
	}

	headers := cleanFields(rows[0])
	data := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		data = append(data, cleanFields(row))
	}
	return New(headers, data), nil
}

// ParseBytes picks the parser from the file name extension.
func ParseBytes(name string, data []byte) (*Table, error) {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return ParseXLSX(bytes.NewReader(data))
	}
	return Parse(string(data)), nil
}

func stripBOM(raw string) string {
	out, _, err := transform.String(unicode.BOMOverride(transform.Nop), raw)
	if err != nil {
		return strings.TrimPrefix(raw, "\uFEFF")
	}
	return out
}

func detectDelimiter(header string) string {
	switch {
	case strings.Contains(header, "\t"):
		return "\t"
	case strings.Contains(header, ";"):
		return ";"
	default:
		return ","
	}
}

func splitLine(line, delim string) []string {
	return cleanFields(strings.Split(line, delim))
}

func cleanFields(fields []string) []string {
	out := make([]string, len(fields))
	for i, f := range fields {
		out[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(f), `"`))
	}
	return out
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
