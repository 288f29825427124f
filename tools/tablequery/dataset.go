package tablequery

import (
	"regexp"
	"slices"

	"github.com/cockroachdb/errors"
)

// ColumnType is SQLite column affinity
type ColumnType string

// Supported column types
const (
	Text    ColumnType = "TEXT"
	Real    ColumnType = "REAL"
	Integer ColumnType = "INTEGER"
)

// Column of the dataset
type Column struct {
	Name string     `json:"name" yaml:"name"`
	Type ColumnType `json:"type" yaml:"type"`
}

// Dataset is a named table with typed columns and a fixed set of rows
type Dataset struct {
	name    string
	columns []Column
	rows    [][]any
}

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// NewDataset validates the rows against the columns,
// and returns the dataset.
// TEXT values must be strings, REAL values numbers,
// and INTEGER values integers.
func NewDataset(name string, columns []Column, rows [][]any) (*Dataset, error) {
	if !identRegex.MatchString(name) {
		return nil, errors.Errorf("invalid dataset name: %q", name)
	}
	if len(columns) == 0 {
		return nil, errors.Errorf("dataset %s: no columns", name)
	}

	seen := map[string]bool{}
	for _, c := range columns {
		if !identRegex.MatchString(c.Name) {
			return nil, errors.Errorf("dataset %s: invalid column name: %q", name, c.Name)
		}
		if seen[c.Name] {
			return nil, errors.Errorf("dataset %s: duplicate column: %s", name, c.Name)
		}
		seen[c.Name] = true

		switch c.Type {
		case Text, Real, Integer:
		default:
			return nil, errors.Errorf("dataset %s: unsupported type of column %s: %q", name, c.Name, c.Type)
		}
	}

	ds := &Dataset{
		name:    name,
		columns: slices.Clone(columns),
		rows:    make([][]any, 0, len(rows)),
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, errors.Errorf("dataset %s: row %d has %d values, expected %d", name, i, len(row), len(columns))
		}
		vals := make([]any, len(row))
		for j, v := range row {
			val, err := normalize(columns[j].Type, v)
			if err != nil {
				return nil, errors.Wrapf(err, "dataset %s: row %d, column %s", name, i, columns[j].Name)
			}
			vals[j] = val
		}
		ds.rows = append(ds.rows, vals)
	}
	return ds, nil
}

// MustDataset panics on invalid dataset
func MustDataset(name string, columns []Column, rows [][]any) *Dataset {
	ds, err := NewDataset(name, columns, rows)
	if err != nil {
		panic(err)
	}
	return ds
}

// Name returns the table name
func (d *Dataset) Name() string {
	return d.name
}

// Columns returns a copy of the columns
func (d *Dataset) Columns() []Column {
	return slices.Clone(d.columns)
}

// ColumnNames returns the names of the columns
func (d *Dataset) ColumnNames() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Rows returns a copy of the rows
func (d *Dataset) Rows() [][]any {
	rows := make([][]any, len(d.rows))
	for i, r := range d.rows {
		rows[i] = slices.Clone(r)
	}
	return rows
}

// Len returns the number of rows
func (d *Dataset) Len() int {
	return len(d.rows)
}

func normalize(typ ColumnType, v any) (any, error) {
	switch typ {
	case Text:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Real:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case int32:
			return float64(n), nil
		}
	case Integer:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		}
	}
	return nil, errors.Errorf("value %v of type %T is not %s", v, v, typ)
}
