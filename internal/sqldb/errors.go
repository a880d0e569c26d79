package sqldb

import (
	"errors"
	"fmt"

	"github.com/roach88/sqldb/internal/store"
)

var (
	// ErrClosed is the failure of operations submitted after Close.
	ErrClosed = errors.New("sqldb: database closed")

	// ErrPanic wraps a panic recovered inside a unit of work.
	ErrPanic = errors.New("sqldb: unit of work panicked")

	// ErrTxDone is returned by Tx methods called after the transaction body
	// has returned.
	ErrTxDone = errors.New("sqldb: transaction already finished")

	// ErrUnitAborted is returned by Tx methods after the engine rolled the
	// transaction back on its own, e.g. on an OR ROLLBACK conflict.
	ErrUnitAborted = store.ErrUnitAborted
)

// OpError describes a failed database operation.
type OpError struct {
	// Op is the facade operation, e.g. "insert" or "query".
	Op string

	// Table is the target table, empty for raw SQL.
	Table string

	// LaterID correlates the failure with log lines.
	LaterID string

	Err error
}

// Error implements the error interface.
func (e *OpError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("sqldb %s %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("sqldb %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// IsPanic reports whether err came from a recovered panic.
func IsPanic(err error) bool {
	return errors.Is(err, ErrPanic)
}

// guard runs fn and converts a panic into an ErrPanic error.
func guard[R any](fn func() (R, error)) (result R, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero R
			result = zero
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()
	return fn()
}
