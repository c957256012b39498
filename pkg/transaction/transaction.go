// Package transaction brackets image operations with store transactions and
// translates store faults into the image error taxonomy.
package transaction

import (
	"errors"
	"fmt"

	"plankton/pkg/errs"
	"plankton/pkg/log"
	"plankton/pkg/objectstore"
)

// Executor exposes the store's transaction primitives.
type Executor interface {
	PreExec() error
	PostExec(success bool) error
}

// State is the lifecycle position of a Tx.
type State int

const (
	Idle State = iota
	Active
	Committed
	RolledBack
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Active:
		return "active"
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled-back"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrState is returned when a Tx is driven out of order.
var ErrState = errors.New("invalid transaction state")

// Tx is a single, non-nestable transaction on an Executor.
type Tx struct {
	exec  Executor
	state State
}

// New returns an idle transaction on exec.
func New(exec Executor) *Tx {
	return &Tx{exec: exec}
}

// State returns the current state.
func (t *Tx) State() State {
	return t.state
}

// Begin moves idle to active.
func (t *Tx) Begin() error {
	if t.state != Idle {
		return fmt.Errorf("%w: begin from %s", ErrState, t.state)
	}
	if err := t.exec.PreExec(); err != nil {
		return err
	}
	t.state = Active
	return nil
}

// Commit moves active to committed.
func (t *Tx) Commit() error {
	if t.state != Active {
		return fmt.Errorf("%w: commit from %s", ErrState, t.state)
	}
	t.state = Committed
	return t.exec.PostExec(true)
}

// Rollback moves active to rolled-back.
func (t *Tx) Rollback() error {
	if t.state != Active {
		return fmt.Errorf("%w: rollback from %s", ErrState, t.state)
	}
	t.state = RolledBack
	return t.exec.PostExec(false)
}

// Run executes op inside one transaction: committed when op succeeds, rolled
// back otherwise. The error op returned propagates after mapping through MapError.
func Run[T any](exec Executor, op func() (T, error)) (T, error) {
	var zero T

	tx := New(exec)
	if err := tx.Begin(); err != nil {
		return zero, MapError(err)
	}

	result, err := op()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("Transaction rollback failed")
		}
		return zero, MapError(err)
	}

	if err := tx.Commit(); err != nil {
		return zero, MapError(err)
	}
	return result, nil
}

// Do is Run for operations without a result.
func Do(exec Executor, op func() error) error {
	_, err := Run(exec, func() (struct{}, error) {
		return struct{}{}, op()
	})
	return err
}

// MapError translates store faults: not-allowed becomes errs.ErrForbidden,
// missing objects and versions become errs.ErrImageNotFound. Other errors pass through.
func MapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, errs.ErrForbidden), errors.Is(err, errs.ErrImageNotFound):
		return err
	case errors.Is(err, objectstore.ErrNotAllowed):
		return fmt.Errorf("%w: %w", errs.ErrForbidden, err)
	case errors.Is(err, objectstore.ErrItemNotExists), errors.Is(err, objectstore.ErrVersionNotExists):
		return fmt.Errorf("%w: %w", errs.ErrImageNotFound, err)
	default:
		return err
	}
}
