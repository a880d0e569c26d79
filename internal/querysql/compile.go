// Package querysql compiles structured read and write requests into
// parameterised SQLite statements.
//
// Values are always bound as parameters, never interpolated. Column names
// taken from a value set are NFC-normalised and quoted. Table names, column
// lists of a SELECT and the clause fragments (WHERE, GROUP BY, HAVING,
// ORDER BY) are passed through verbatim: they are SQL written by the
// application and may contain expressions or joins.
package querysql

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Conflict selects the ON CONFLICT algorithm for INSERT and UPDATE.
type Conflict int

const (
	// ConflictNone applies no conflict clause (SQLite's default, ABORT).
	ConflictNone Conflict = iota
	ConflictRollback
	ConflictAbort
	ConflictFail
	ConflictIgnore
	ConflictReplace
)

var conflictKeywords = [...]string{
	ConflictNone:     "",
	ConflictRollback: "ROLLBACK",
	ConflictAbort:    "ABORT",
	ConflictFail:     "FAIL",
	ConflictIgnore:   "IGNORE",
	ConflictReplace:  "REPLACE",
}

// String returns the SQL keyword, or "NONE".
func (c Conflict) String() string {
	if !c.valid() {
		return fmt.Sprintf("Conflict(%d)", int(c))
	}
	if c == ConflictNone {
		return "NONE"
	}
	return conflictKeywords[c]
}

func (c Conflict) valid() bool {
	return c >= ConflictNone && int(c) < len(conflictKeywords)
}

// ParseConflict maps a keyword (case-insensitive) to a Conflict.
func ParseConflict(s string) (Conflict, error) {
	up := strings.ToUpper(strings.TrimSpace(s))
	if up == "" || up == "NONE" {
		return ConflictNone, nil
	}
	for i, kw := range conflictKeywords {
		if kw != "" && kw == up {
			return Conflict(i), nil
		}
	}
	return ConflictNone, fmt.Errorf("unknown conflict algorithm %q", s)
}

func (c Conflict) clause() string {
	if c == ConflictNone {
		return ""
	}
	return " OR " + conflictKeywords[c]
}

// limitPattern accepts "N" or "N,M" like SQLite's LIMIT/OFFSET shorthand.
var limitPattern = regexp.MustCompile(`^\s*\d+\s*(,\s*\d+\s*)?$`)

// Select describes a filtered query.
type Select struct {
	Distinct  bool
	Table     string
	Columns   []string // nil selects *
	Where     string
	WhereArgs []any
	GroupBy   string
	Having    string
	OrderBy   string
	Limit     string
}

// Insert describes a single-row insert.
type Insert struct {
	Table string
	// NullColumnHack names a nullable column that receives NULL when
	// Columns is empty, since SQLite cannot insert a row with no columns.
	NullColumnHack string
	Columns        []string
	Values         []any
	Conflict       Conflict
}

// Update describes an update of every row matching Where.
type Update struct {
	Table     string
	Columns   []string
	Values    []any
	Where     string
	WhereArgs []any
	Conflict  Conflict
}

// QuoteIdent normalises name to NFC and wraps it in double quotes.
func QuoteIdent(name string) string {
	n := norm.NFC.String(name)
	return `"` + strings.ReplaceAll(n, `"`, `""`) + `"`
}

// CompileSelect returns the SQL and parameters for q.
func CompileSelect(q Select) (string, []any, error) {
	if q.Table == "" {
		return "", nil, fmt.Errorf("select: table is required")
	}
	if q.Having != "" && q.GroupBy == "" {
		return "", nil, fmt.Errorf("select: HAVING clauses are only permitted with GROUP BY")
	}
	if q.Limit != "" && !limitPattern.MatchString(q.Limit) {
		return "", nil, fmt.Errorf("select: invalid LIMIT clause %q", q.Limit)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if q.Distinct {
		b.WriteString("DISTINCT ")
	}
	if len(q.Columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(q.Columns, ", "))
	}
	b.WriteString(" FROM ")
	b.WriteString(norm.NFC.String(q.Table))

	appendClause(&b, " WHERE ", q.Where)
	appendClause(&b, " GROUP BY ", q.GroupBy)
	appendClause(&b, " HAVING ", q.Having)
	appendClause(&b, " ORDER BY ", q.OrderBy)
	appendClause(&b, " LIMIT ", q.Limit)

	return b.String(), copyArgs(q.WhereArgs), nil
}

// CompileInsert returns the SQL and parameters for ins.
func CompileInsert(ins Insert) (string, []any, error) {
	if ins.Table == "" {
		return "", nil, fmt.Errorf("insert: table is required")
	}
	if !ins.Conflict.valid() {
		return "", nil, fmt.Errorf("insert: invalid conflict algorithm %d", int(ins.Conflict))
	}
	if len(ins.Columns) != len(ins.Values) {
		return "", nil, fmt.Errorf("insert: %d columns but %d values", len(ins.Columns), len(ins.Values))
	}

	var b strings.Builder
	b.WriteString("INSERT")
	b.WriteString(ins.Conflict.clause())
	b.WriteString(" INTO ")
	b.WriteString(norm.NFC.String(ins.Table))

	if len(ins.Columns) == 0 {
		if ins.NullColumnHack == "" {
			return "", nil, fmt.Errorf("insert: empty values require a null column hack")
		}
		b.WriteString(" (")
		b.WriteString(QuoteIdent(ins.NullColumnHack))
		b.WriteString(") VALUES (NULL)")
		return b.String(), nil, nil
	}

	quoted := make([]string, len(ins.Columns))
	for i, c := range ins.Columns {
		quoted[i] = QuoteIdent(c)
	}
	b.WriteString(" (")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(") VALUES (")
	b.WriteString(placeholders(len(ins.Columns)))
	b.WriteString(")")

	return b.String(), copyArgs(ins.Values), nil
}

// CompileUpdate returns the SQL and parameters for up. The parameters are the
// new values followed by the WHERE arguments.
func CompileUpdate(up Update) (string, []any, error) {
	if up.Table == "" {
		return "", nil, fmt.Errorf("update: table is required")
	}
	if !up.Conflict.valid() {
		return "", nil, fmt.Errorf("update: invalid conflict algorithm %d", int(up.Conflict))
	}
	if len(up.Columns) == 0 {
		return "", nil, fmt.Errorf("update: empty values")
	}
	if len(up.Columns) != len(up.Values) {
		return "", nil, fmt.Errorf("update: %d columns but %d values", len(up.Columns), len(up.Values))
	}

	var b strings.Builder
	b.WriteString("UPDATE")
	b.WriteString(up.Conflict.clause())
	b.WriteString(" ")
	b.WriteString(norm.NFC.String(up.Table))
	b.WriteString(" SET ")

	sets := make([]string, len(up.Columns))
	for i, c := range up.Columns {
		sets[i] = QuoteIdent(c) + " = ?"
	}
	b.WriteString(strings.Join(sets, ", "))
	appendClause(&b, " WHERE ", up.Where)

	params := make([]any, 0, len(up.Values)+len(up.WhereArgs))
	params = append(params, up.Values...)
	params = append(params, up.WhereArgs...)
	return b.String(), params, nil
}

// CompileDelete returns the SQL and parameters for deleting rows matching
// where. An empty where deletes every row.
func CompileDelete(table, where string, whereArgs []any) (string, []any, error) {
	if table == "" {
		return "", nil, fmt.Errorf("delete: table is required")
	}

	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(norm.NFC.String(table))
	appendClause(&b, " WHERE ", where)

	return b.String(), copyArgs(whereArgs), nil
}

func appendClause(b *strings.Builder, keyword, fragment string) {
	if strings.TrimSpace(fragment) == "" {
		return
	}
	b.WriteString(keyword)
	b.WriteString(fragment)
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func copyArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	out := make([]any, len(args))
	copy(out, args)
	return out
}
