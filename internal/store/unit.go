package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrNoUnit is returned by MarkSuccessful and End without an open unit.
	ErrNoUnit = errors.New("store: no atomic unit is open")

	// ErrAlreadyMarked is returned when the innermost level was already
	// marked successful.
	ErrAlreadyMarked = errors.New("store: atomic unit already marked successful")

	// ErrUnitAborted is returned once SQLite has rolled the open unit back on
	// its own (an OR ROLLBACK conflict, SQLITE_FULL, I/O errors). Statements
	// are refused until the outermost End.
	ErrUnitAborted = errors.New("store: atomic unit was rolled back by the engine")
)

// unitState tracks nested atomic units. levels[i] records whether level i
// was marked successful.
type unitState struct {
	levels      []bool
	childFailed bool
	aborted     bool
}

func (u *unitState) open() bool {
	return len(u.levels) > 0
}

// SupportsNonExclusive reports whether BeginNonExclusive is available.
// SQLite always supports BEGIN IMMEDIATE.
func (s *Store) SupportsNonExclusive() bool {
	return true
}

// Begin opens an exclusive atomic unit (BEGIN EXCLUSIVE): no other
// connection may read or write until it ends, WAL readers excepted.
func (s *Store) Begin(ctx context.Context) error {
	return s.begin(ctx, "BEGIN EXCLUSIVE")
}

// BeginNonExclusive opens an immediate atomic unit (BEGIN IMMEDIATE): other
// connections may keep reading.
func (s *Store) BeginNonExclusive(ctx context.Context) error {
	return s.begin(ctx, "BEGIN IMMEDIATE")
}

func (s *Store) begin(ctx context.Context, stmt string) error {
	if s.unit.open() {
		s.unit.levels = append(s.unit.levels, false)
		return nil
	}
	if _, err := s.writer.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("begin atomic unit: %w", err)
	}
	s.unit = unitState{levels: []bool{false}}
	return nil
}

// InUnit reports whether an atomic unit is open.
func (s *Store) InUnit() bool {
	return s.unit.open()
}

// MarkSuccessful flags the innermost level for commit.
func (s *Store) MarkSuccessful() error {
	if !s.unit.open() {
		return ErrNoUnit
	}
	top := len(s.unit.levels) - 1
	if s.unit.aborted {
		return ErrUnitAborted
	}
	if s.unit.levels[top] {
		return ErrAlreadyMarked
	}
	s.unit.levels[top] = true
	return nil
}

// End closes the innermost level. The outermost End commits when every level
// was marked successful and rolls back otherwise.
func (s *Store) End(ctx context.Context) error {
	if !s.unit.open() {
		return ErrNoUnit
	}

	top := len(s.unit.levels) - 1
	if !s.unit.levels[top] {
		s.unit.childFailed = true
	}
	s.unit.levels = s.unit.levels[:top]
	if top > 0 {
		return nil
	}

	if s.unit.aborted {
		// SQLite already rolled back; there is no transaction to end
		s.unit = unitState{}
		return ErrUnitAborted
	}
	return s.finishUnit(ctx, !s.unit.childFailed)
}

// checkUnit refuses statements after the open unit was aborted.
func (s *Store) checkUnit() error {
	if s.unit.aborted {
		return ErrUnitAborted
	}
	return nil
}

// noteFailure inspects the writer connection after a failed statement. If a
// unit is open but SQLite is back in autocommit mode, the engine rolled the
// transaction back and the unit is marked aborted. The returned error wraps
// both err and ErrUnitAborted in that case.
func (s *Store) noteFailure(err error) error {
	if err == nil || !s.unit.open() || s.unit.aborted {
		return err
	}

	autocommit := false
	rawErr := s.writer.Raw(func(dc any) error {
		c, ok := dc.(*sqlite3.SQLiteConn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", dc)
		}
		autocommit = c.AutoCommit()
		return nil
	})
	if rawErr != nil {
		slog.Warn("cannot inspect transaction state", "error", rawErr)
		return err
	}

	if autocommit {
		s.unit.aborted = true
		slog.Warn("atomic unit rolled back by the engine", "error", err)
		return fmt.Errorf("%w (%w)", err, ErrUnitAborted)
	}
	return err
}

func (s *Store) finishUnit(ctx context.Context, commit bool) error {
	s.unit = unitState{}

	if commit {
		if _, err := s.writer.ExecContext(ctx, "COMMIT"); err != nil {
			// A failed COMMIT can leave the transaction open
			if _, rbErr := s.writer.ExecContext(ctx, "ROLLBACK"); rbErr != nil {
				slog.Debug("rollback after failed commit", "error", rbErr)
			}
			return fmt.Errorf("commit atomic unit: %w", err)
		}
		return nil
	}

	if _, err := s.writer.ExecContext(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("rollback atomic unit: %w", err)
	}
	return nil
}
