package engine

import (
	"errors"
	"fmt"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// Sentinel errors. Inspect with errors.Is.
var (
	// ErrInvariantViolation means probabilities drifted beyond the configured limit.
	ErrInvariantViolation = errors.New("probability invariant violated")

	// ErrRedistribution means displaced mass found no eligible destination.
	ErrRedistribution = errors.New("redistribution failed")

	// ErrInvalidMoveRequest means a move contradicts the known board.
	ErrInvalidMoveRequest = errors.New("invalid move request")

	// ErrNoKingCandidate means king inference eliminated every square.
	ErrNoKingCandidate = errors.New("no king candidate")

	// ErrNoAttacker means no square can host the piece an event requires.
	ErrNoAttacker = errors.New("no attacker candidate")

	// ErrInconsistentEvent means an umpire event contradicts the belief state.
	ErrInconsistentEvent = errors.New("inconsistent umpire event")

	// ErrInvalidConfig indicates invalid configuration values.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// RedistributionError carries the operation and square where a transfer of
// probability mass failed. It unwraps to the underlying sentinel.
type RedistributionError struct {
	Op     string
	Square gm.Square
	Kind   gm.Piece
	Err    error
}

func (e *RedistributionError) Error() string {
	msg := e.Op
	if e.Square.Valid() {
		msg += " " + e.Square.String()
	}
	if e.Kind < gm.NumKinds {
		msg += " " + e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RedistributionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRedistribution) match every RedistributionError.
func (e *RedistributionError) Is(target error) bool { return target == ErrRedistribution }

func redistErr(op string, sq gm.Square, kind gm.Piece, err error) error {
	return &RedistributionError{Op: op, Square: sq, Kind: kind, Err: err}
}

// Wrap adds context to an error. Returns nil if err is nil.
func Wrap(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}

// Wrapf adds formatted context to an error. Returns nil if err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
