package tablequery

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/finrecon/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/mattn/go-runewidth"

	// register sqlite driver
	_ "modernc.org/sqlite"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/finrecon/tools", "tablequery")

// ErrNotReadOnly is returned when the query is not a single SELECT statement
var ErrNotReadOnly = errors.New("only a single SELECT statement is allowed")

// PreviewRows is the number of rows shown to the model
const PreviewRows = 5

// Engine executes read-only SQL over a dataset
// loaded into a private in-memory SQLite database.
// Engine is safe for concurrent use.
type Engine struct {
	dataset *Dataset
	db      *sql.DB
}

// Open loads the dataset into a new in-memory database
func Open(ctx context.Context, ds *Dataset) (*Engine, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open sqlite")
	}
	// every connection to :memory: is a separate database,
	// and query_only is a connection setting
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err = load(ctx, db, ds); err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"status", "loaded",
		"dataset", ds.Name(),
		"rows", ds.Len(),
	)
	return &Engine{dataset: ds, db: db}, nil
}

func load(ctx context.Context, db *sql.DB, ds *Dataset) error {
	cols := make([]string, len(ds.columns))
	marks := make([]string, len(ds.columns))
	for i, c := range ds.columns {
		cols[i] = QuoteIdent(c.Name) + " " + string(c.Type)
		marks[i] = "?"
	}
	table := QuoteIdent(ds.name)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err = tx.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(cols, ", "))); err != nil {
		return errors.Wrapf(err, "failed to create table %s", ds.name)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", table, strings.Join(marks, ", ")))
	if err != nil {
		return errors.Wrapf(err, "failed to prepare insert into %s", ds.name)
	}
	defer stmt.Close()

	for i, row := range ds.rows {
		if _, err = stmt.ExecContext(ctx, row...); err != nil {
			return errors.Wrapf(err, "failed to insert row %d into %s", i, ds.name)
		}
	}
	if err = tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit")
	}

	if _, err = db.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
		return errors.Wrap(err, "failed to set query_only")
	}
	return nil
}

// Dataset returns the dataset of the engine
func (e *Engine) Dataset() *Dataset {
	return e.dataset
}

// Close closes the database
func (e *Engine) Close() error {
	return e.db.Close()
}

// Preview returns the first rows of the table
func (e *Engine) Preview(ctx context.Context) (*Result, error) {
	return e.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT %d", QuoteIdent(e.dataset.name), PreviewRows))
}

// Query executes a single SELECT or WITH statement
func (e *Engine) Query(ctx context.Context, query string) (*Result, error) {
	started := time.Now()
	defer metricskey.PerfTableQuery.MeasureSince(started, e.dataset.name)

	res, err := e.query(ctx, query)
	if err != nil {
		metricskey.StatsTableQueriesFailed.IncrCounter(1, e.dataset.name)
		logger.ContextKV(ctx, xlog.DEBUG,
			"reason", "query",
			"dataset", e.dataset.name,
			"sql", query,
			"err", err.Error(),
		)
		return nil, err
	}
	metricskey.StatsTableQueriesSucceeded.IncrCounter(1, e.dataset.name)
	return res, nil
}

func (e *Engine) query(ctx context.Context, query string) (*Result, error) {
	q, err := CheckReadOnly(query)
	if err != nil {
		return nil, err
	}

	rows, err := e.db.QueryContext(ctx, q)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to execute query over %s", e.dataset.name)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read columns")
	}

	res := &Result{Columns: cols}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err = rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "failed to scan row")
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		res.Rows = append(res.Rows, vals)
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to execute query over %s", e.dataset.name)
	}
	return res, nil
}

// CheckReadOnly returns the query without trailing semicolon,
// or ErrNotReadOnly if the query is not a single SELECT or WITH statement.
// The check is lexical, the connection is query_only.
func CheckReadOnly(query string) (string, error) {
	q := strings.TrimSpace(query)
	q = strings.TrimSpace(strings.TrimRight(q, "; \n\t"))
	if q == "" {
		return "", errors.Wrap(ErrNotReadOnly, "empty query")
	}
	if strings.Contains(q, ";") {
		return "", errors.Wrap(ErrNotReadOnly, "multiple statements")
	}

	keyword := strings.ToUpper(strings.Fields(q)[0])
	if keyword != "SELECT" && keyword != "WITH" {
		return "", errors.Wrapf(ErrNotReadOnly, "unexpected %s", keyword)
	}
	return q, nil
}

// QuoteIdent returns SQLite quoted identifier
func QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// Result of the query
type Result struct {
	Columns []string
	Rows    [][]any
}

// String renders the result as a text table
func (r *Result) String() string {
	if r == nil || len(r.Columns) == 0 {
		return ""
	}

	cells := make([][]string, 0, len(r.Rows)+1)
	cells = append(cells, r.Columns)
	for _, row := range r.Rows {
		line := make([]string, len(row))
		for i, v := range row {
			line[i] = FormatValue(v)
		}
		cells = append(cells, line)
	}

	widths := make([]int, len(r.Columns))
	for _, line := range cells {
		for i, c := range line {
			widths[i] = max(widths[i], runewidth.StringWidth(c))
		}
	}

	var buf strings.Builder
	for n, line := range cells {
		for i, c := range line {
			if i > 0 {
				buf.WriteString(" | ")
			}
			if i == len(line)-1 {
				buf.WriteString(c)
			} else {
				buf.WriteString(runewidth.FillRight(c, widths[i]))
			}
		}
		buf.WriteString("\n")
		if n == 0 {
			for i, w := range widths {
				if i > 0 {
					buf.WriteString("-+-")
				}
				buf.WriteString(strings.Repeat("-", w))
			}
			buf.WriteString("\n")
		}
	}
	return buf.String()
}

// FormatValue returns the text of SQL value
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return val
	case float64:
		s := strconv.FormatFloat(val, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEIN") {
			s += ".0"
		}
		return s
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}
