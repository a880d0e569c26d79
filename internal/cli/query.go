package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/sqldb/internal/sqldb"
)

// ResultSet is a query result in column order.
type ResultSet struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <sql> [args...]",
		Short: "Run a read query on the reader goroutine",
		Long: `Run a SQL query through the asynchronous reader queue and print the rows.

Positional arguments after the SQL are bound to its ? placeholders. Integers
and floats bind as numbers, NULL binds as null, anything else as text.

Example:
  sqldb query --db ./app.db "SELECT * FROM notes WHERE owner = ?" ana
  sqldb query --db ./app.db --format json "SELECT COUNT(*) AS n FROM notes"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(rootOpts, args[0], args[1:], cmd)
		},
	}

	return cmd
}

func runQuery(opts *RootOptions, query string, args []string, cmd *cobra.Command) error {
	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer closeDB(db)

	formatter := newFormatter(opts, cmd)
	formatter.VerboseLog("query: %s", query)

	rs, err := sqldb.RawQuery(db, query, parseArgs(args), sqldb.Handler(scanResultSet, nil)).Get()
	if err != nil {
		_ = formatter.Error(CodeQueryFailed, "query failed", err.Error())
		return WrapExitError(ExitFailure, "query failed", err)
	}

	return formatter.Rows(rs)
}

// scanResultSet drains a cursor keeping column order. BLOBs become strings.
func scanResultSet(c sqldb.Cursor) (ResultSet, error) {
	cols, err := c.Columns()
	if err != nil {
		return ResultSet{}, err
	}

	rs := ResultSet{Columns: cols, Rows: [][]any{}}
	for c.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := c.Scan(ptrs...); err != nil {
			return ResultSet{}, err
		}
		for i, v := range vals {
			if b, ok := v.([]byte); ok {
				vals[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, vals)
	}
	return rs, c.Err()
}
