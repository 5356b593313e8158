package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"BondPanel/internal/domain/models"
	"BondPanel/pkg/util"
)

// Dialect selects the SQL flavour of a backend.
type Dialect int

const (
	ClickHouse Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	if d == SQLite {
		return "sqlite"
	}
	return "clickhouse"
}

// ParseDialect maps a backend name from configuration.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "clickhouse":
		return ClickHouse, nil
	case "sqlite":
		return SQLite, nil
	}
	return 0, fmt.Errorf("unknown backend %q", s)
}

// sqliteMaxParams stays under SQLITE_MAX_VARIABLE_NUMBER.
const sqliteMaxParams = 32000

type colType int

const (
	tString colType = iota
	tInt
	tNullInt
	tFloat
	tDate
	tClock
	tBool
)

func (t colType) ddl(d Dialect) string {
	if d == SQLite {
		switch t {
		case tInt, tNullInt, tBool:
			return "INTEGER"
		case tFloat:
			return "REAL"
		default:
			return "TEXT"
		}
	}
	switch t {
	case tInt:
		return "Int64"
	case tNullInt:
		return "Nullable(Int64)"
	case tFloat:
		return "Nullable(Float64)"
	case tDate:
		return "Nullable(Date32)"
	case tClock:
		return "Nullable(String)"
	case tBool:
		return "UInt8"
	default:
		return "String"
	}
}

// column maps one struct field to one SQL column.
type column[T any] struct {
	name string
	typ  colType
	arg  func(*T) any
	dest func(*T) any
}

// table is the shared DDL, insert and scan description of a row type.
type table[T any] struct {
	name string
	cols []column[T]
	key  []string
}

func strCol[T any, S ~string](name string, f func(*T) *S) column[T] {
	return column[T]{name, tString,
		func(r *T) any { return string(*f(r)) },
		func(r *T) any { return f(r) }}
}

func intCol[T any, I ~int | ~int64](name string, f func(*T) *I) column[T] {
	return column[T]{name, tInt,
		func(r *T) any { return int64(*f(r)) },
		func(r *T) any { return f(r) }}
}

func floatCol[T any](name string, f func(*T) *float64) column[T] {
	return column[T]{name, tFloat,
		func(r *T) any { return floatArg(*f(r)) },
		func(r *T) any { return &nanFloat{f(r)} }}
}

func dateCol[T any](name string, f func(*T) *time.Time) column[T] {
	return column[T]{name, tDate,
		func(r *T) any { return dateArg(*f(r)) },
		func(r *T) any { return &nullDate{f(r)} }}
}

func clockCol[T any](name string, f func(*T) *time.Duration) column[T] {
	return column[T]{name, tClock,
		func(r *T) any { return clockArg(*f(r)) },
		func(r *T) any { return &clock{f(r)} }}
}

func boolCol[T any](name string, f func(*T) *bool) column[T] {
	return column[T]{name, tBool,
		func(r *T) any {
			if *f(r) {
				return int64(1)
			}
			return int64(0)
		},
		func(r *T) any { return f(r) }}
}

func (t table[T]) columnNames() string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.name
	}
	return strings.Join(names, ", ")
}

func (t table[T]) ddl(d Dialect) string {
	defs := make([]string, len(t.cols))
	for i, c := range t.cols {
		typ := c.typ.ddl(d)
		if d == ClickHouse && slices.Contains(t.key, c.name) {
			// sorting keys must not be Nullable
			typ = strings.TrimSuffix(strings.TrimPrefix(typ, "Nullable("), ")")
		}
		defs[i] = fmt.Sprintf("%s %s", c.name, typ)
	}
	key := strings.Join(t.key, ", ")
	if d == SQLite {
		return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s, PRIMARY KEY (%s))",
			t.name, strings.Join(defs, ", "), key)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s) ENGINE = ReplacingMergeTree ORDER BY (%s)",
		t.name, strings.Join(defs, ", "), key)
}

// rowsPerStatement caps a multi-row VALUES insert by the configured batch
// and, on SQLite, by the bound-parameter limit.
func (t table[T]) rowsPerStatement(d Dialect, batch int) int {
	n := batch
	if n <= 0 {
		n = 2000
	}
	if d == SQLite {
		n = min(n, sqliteMaxParams/len(t.cols))
	}
	return max(n, 1)
}

// insert writes rows with multi-row VALUES statements. SQLite replaces
// rows on key conflict; ClickHouse collapses them at merge time.
func (t table[T]) insert(ctx context.Context, db *sql.DB, d Dialect, rows []T, batch int) error {
	if len(rows) == 0 {
		return nil
	}
	verb := "INSERT INTO"
	if d == SQLite {
		verb = "INSERT OR REPLACE INTO"
	}
	tuple := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(t.cols)), ", ") + ")"
	prefix := fmt.Sprintf("%s %s (%s) VALUES ", verb, t.name, t.columnNames())

	for _, chunk := range util.Chunk(rows, t.rowsPerStatement(d, batch)) {
		var sb strings.Builder
		sb.WriteString(prefix)
		args := make([]any, 0, len(chunk)*len(t.cols))
		for i := range chunk {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(tuple)
			for _, c := range t.cols {
				args = append(args, c.arg(&chunk[i]))
			}
		}
		if _, err := db.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert %s: %w", t.name, err)
		}
	}
	return nil
}

// selectFrom builds a SELECT over every column. ClickHouse reads FINAL so
// replaced rows are collapsed.
func (t table[T]) selectFrom(d Dialect, where, order string) string {
	q := fmt.Sprintf("SELECT %s FROM %s", t.columnNames(), t.name)
	if d == ClickHouse {
		q += " FINAL"
	}
	if where != "" {
		q += " WHERE " + where
	}
	if order != "" {
		q += " ORDER BY " + order
	}
	return q
}

func (t table[T]) query(ctx context.Context, db *sql.DB, q string, args ...any) ([]T, error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", t.name, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var r T
		dest := make([]any, len(t.cols))
		for i, c := range t.cols {
			dest[i] = c.dest(&r)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan %s: %w", t.name, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows %s: %w", t.name, err)
	}
	return out, nil
}

// inClause renders "col IN (?, ?, ...)" for n values.
func inClause(col string, n int) string {
	return col + " IN (" + strings.TrimSuffix(strings.Repeat("?, ", n), ", ") + ")"
}

func stringArgs(vs []string) []any {
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = v
	}
	return out
}

func floatArg(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

func dateArg(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Format(util.DateLayout)
}

func clockArg(d time.Duration) any {
	if d == models.NoTime || d < 0 {
		return nil
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, s/60%60, s%60)
}

// nanFloat scans NULL as NaN.
type nanFloat struct{ p *float64 }

func (n *nanFloat) Scan(src any) error {
	var f sql.NullFloat64
	if err := f.Scan(src); err != nil {
		return err
	}
	*n.p = math.NaN()
	if f.Valid {
		*n.p = f.Float64
	}
	return nil
}

// nullDate scans DATE values delivered as time.Time or ISO text. NULL
// leaves the zero time.
type nullDate struct{ p *time.Time }

func (n *nullDate) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n.p = time.Time{}
	case time.Time:
		*n.p = util.Day(v)
	case string:
		return n.parse(v)
	case []byte:
		return n.parse(string(v))
	default:
		return fmt.Errorf("date: unsupported %T", src)
	}
	return nil
}

func (n *nullDate) parse(s string) error {
	if s == "" {
		*n.p = time.Time{}
		return nil
	}
	if len(s) > len(util.DateLayout) {
		s = s[:len(util.DateLayout)]
	}
	t, ok := util.ParseDate(s)
	if !ok {
		return fmt.Errorf("date: cannot parse %q", s)
	}
	*n.p = t
	return nil
}

// clock scans HH:MM:SS text into a time of day. NULL or empty is NoTime.
type clock struct{ p *time.Duration }

func (c *clock) Scan(src any) error {
	var s sql.NullString
	if err := s.Scan(src); err != nil {
		return err
	}
	if !s.Valid || s.String == "" {
		*c.p = models.NoTime
		return nil
	}
	t, err := time.Parse("15:04:05", s.String)
	if err != nil {
		return fmt.Errorf("clock: %w", err)
	}
	*c.p = time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
	return nil
}

// optInt scans a nullable integer into a value and a presence flag.
type optInt struct {
	v   *int
	has *bool
}

func (o *optInt) Scan(src any) error {
	var n sql.NullInt64
	if err := n.Scan(src); err != nil {
		return err
	}
	*o.has = n.Valid
	*o.v = int(n.Int64)
	return nil
}
