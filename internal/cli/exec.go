package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldb/internal/sqldb"
)

// ExecResult is the outcome of the exec command.
type ExecResult struct {
	Committed    bool  `json:"committed"`
	RowsAffected int64 `json:"rows_affected"`
}

func (r ExecResult) String() string {
	return fmt.Sprintf("committed: %d rows affected", r.RowsAffected)
}

// NewExecCommand creates the exec command.
func NewExecCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exec <sql> [args...]",
		Short: "Run statements inside a transaction on the writer goroutine",
		Long: `Run one or more SQL statements inside a single transaction on the
writer goroutine. Each statement is a separate argument when --multi is set;
otherwise arguments after the SQL bind to its ? placeholders.

The transaction commits only if every statement succeeds.

Example:
  sqldb exec --db ./app.db "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)"
  sqldb exec --db ./app.db "DELETE FROM notes WHERE id = ?" 3
  sqldb exec --db ./app.db --multi "INSERT INTO notes (body) VALUES ('a')" "INSERT INTO notes (body) VALUES ('b')"`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	multi := cmd.Flags().Bool("multi", false, "treat every argument as a statement")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		stmts := []statement{{query: args[0], args: parseArgs(args[1:])}}
		if *multi {
			stmts = stmts[:0]
			for _, a := range args {
				stmts = append(stmts, statement{query: a})
			}
		}
		return runExec(rootOpts, stmts, cmd)
	}

	return cmd
}

type statement struct {
	query string
	args  []any
}

func runExec(opts *RootOptions, stmts []statement, cmd *cobra.Command) error {
	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer closeDB(db)

	formatter := newFormatter(opts, cmd)

	var affected int64
	var bodyErr error
	committed, err := db.RunInTransaction(func(tx *sqldb.Tx) error {
		for _, s := range stmts {
			formatter.VerboseLog("exec: %s", s.query)
			n, err := tx.Exec(s.query, s.args...)
			if err != nil {
				bodyErr = err
				return err
			}
			affected += n
		}
		return nil
	}, nil).Get()
	if err != nil {
		return WrapExitError(ExitCommandError, "transaction not run", err)
	}

	if !committed {
		details := "transaction rolled back"
		if bodyErr != nil {
			details = bodyErr.Error()
		}
		_ = formatter.Error(CodeRolledBack, "transaction rolled back", details)
		return WrapExitError(ExitFailure, "transaction rolled back", bodyErr)
	}

	return formatter.Success(ExecResult{Committed: true, RowsAffected: affected})
}
