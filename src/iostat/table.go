// Package iostat reads whitespace-delimited device statistics tables (iostat -x
// style) and plots selected columns, one panel per file.
package iostat

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/iafilius/FragScope/src/logging"
)

// DefaultColumns are plotted when no column is requested.
var DefaultColumns = []string{"r/s", "w/s", "%util"}

// Table is a parsed statistics file. Cells that are not numbers are NaN.
type Table struct {
	Path   string
	Header []string
	Rows   [][]float64
}

// ColumnError reports a requested column the table does not have.
type ColumnError struct {
	Path   string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("%s: no column %q", e.Path, e.Column)
}

// ReadFile parses the table stored at path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.Path = path
	return t, nil
}

// Parse reads a header line followed by data rows. Repeated header lines, as
// iostat prints them between intervals, are skipped, as are rows whose field
// count does not match the header.
func Parse(r io.Reader) (*Table, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	t := &Table{}
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		if t.Header == nil {
			t.Header = fields
			continue
		}
		if sameFields(fields, t.Header) {
			continue
		}
		if len(fields) != len(t.Header) {
			logging.Debugf("[iostat] line %d: %d fields, header has %d; skipped", line, len(fields), len(t.Header))
			continue
		}
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(strings.Replace(f, ",", ".", 1), 64)
			if err != nil {
				v = math.NaN()
			}
			row[i] = v
		}
		t.Rows = append(t.Rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if t.Header == nil {
		return nil, fmt.Errorf("empty table")
	}
	return t, nil
}

func sameFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Column returns the values of a named column in row order.
func (t *Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, h := range t.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &ColumnError{Path: t.Path, Column: name}
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		out[i] = row[idx]
	}
	return out, nil
}
