package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sqldb/internal/querysql"
)

// InsertOptions holds flags for the insert command.
type InsertOptions struct {
	*RootOptions
	OnConflict     string
	NullColumnHack string
}

// InsertResult is the outcome of the insert command.
type InsertResult struct {
	RowID int64 `json:"rowid"`
}

func (r InsertResult) String() string {
	if r.RowID == -1 {
		return "row skipped (conflict)"
	}
	return fmt.Sprintf("rowid: %d", r.RowID)
}

// NewInsertCommand creates the insert command.
func NewInsertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InsertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "insert <table> [column=value...]",
		Short: "Insert one row on the writer goroutine",
		Long: `Insert one row through the asynchronous writer queue and print its rowid.

Example:
  sqldb insert --db ./app.db notes body=hello owner=ana
  sqldb insert --db ./app.db --on-conflict replace notes id=1 body=again
  sqldb insert --db ./app.db --null-column body notes`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInsert(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OnConflict, "on-conflict", "none", "conflict algorithm (none|rollback|abort|fail|ignore|replace)")
	cmd.Flags().StringVar(&opts.NullColumnHack, "null-column", "", "column set to NULL when no values are given")

	return cmd
}

func runInsert(opts *InsertOptions, table string, pairs []string, cmd *cobra.Command) error {
	conflict, err := querysql.ParseConflict(opts.OnConflict)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --on-conflict", err)
	}
	values, err := parseAssignments(pairs)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid arguments", err)
	}

	db, err := openDB(opts.RootOptions)
	if err != nil {
		return err
	}
	defer closeDB(db)

	formatter := newFormatter(opts.RootOptions, cmd)

	id, err := db.InsertWithOnConflict(table, opts.NullColumnHack, values, conflict, nil).Get()
	if err != nil {
		_ = formatter.Error(CodeInsertFailed, "insert failed", err.Error())
		return WrapExitError(ExitFailure, "insert failed", err)
	}

	return formatter.Success(InsertResult{RowID: id})
}
