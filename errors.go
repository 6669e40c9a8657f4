package pgmgo

import (
	"errors"

	"github.com/hupe1980/pgmgo/pla"
)

var (
	// ErrNotFound is returned when a named snapshot does not exist.
	ErrNotFound = errors.New("pgmgo: not found")

	// ErrUnsortedKeys is returned when input keys are out of order.
	ErrUnsortedKeys = pla.ErrUnsortedKeys
)

// ErrInvalidEpsilon indicates an error bound outside the valid range.
//
// It is the pla package's error type, re-exported so facade callers can
// errors.As against it without importing pla.
type ErrInvalidEpsilon = pla.ErrInvalidEpsilon
