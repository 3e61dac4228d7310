package sql

import (
	"errors"
	"fmt"
)

// ArgumentError reports malformed input to a constructor or mutator.
type ArgumentError struct {
	Message string
	Err     error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument error: %s", e.Message)
}

func (e *ArgumentError) Unwrap() error {
	return e.Err
}

// InvalidRequestError reports an operation that is not valid for the
// current state of a node.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("invalid request: %s", e.Message)
}

// NotImplementedError reports a structural operation a node does not support.
type NotImplementedError struct {
	Message string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("not implemented: %s", e.Message)
}

// UnsupportedError reports that a node cannot delegate an operation to the
// element it wraps.
type UnsupportedError struct {
	Op      string
	Element string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s is not supported by %s", e.Op, e.Element)
}

// Join condition inference failures. Both are returned wrapped in an
// ArgumentError.
var (
	ErrNoForeignKeys        = errors.New("no foreign key relationship found")
	ErrAmbiguousForeignKeys = errors.New("more than one foreign key relationship found")
)

// Common error messages
const (
	errColumnCountMismatch = "all selectables passed to CompoundSelect must have identical numbers of columns; select #1 has %d columns, select #%d has %d"
	errNoFromsCorrelated   = "select statement over %s returned no FROM clauses due to auto-correlation; specify Correlate(<tables>) to control correlation manually"
	errSelectHasNoType     = "select objects don't have a type; call AsScalar() on this select to obtain a scalar version"
	errFlatAliasName       = "can't send a name argument together with flat=true"
	errFromExpected        = "FROM expression expected, got %T"
	errNegativeValue       = "%s must be a non-negative integer, got %d"
	errMissingColumn       = "table %q has no column %q"
	errConstraintArity     = "foreign key constraint %q has %d local columns and %d referenced columns"
	errNoReferentTable     = "can't find any foreign key relationships between %q and %q%s"
	errGroupingHint        = "; perhaps you meant to convert the right side to a subquery using Alias()"
	errAmbiguousJoin       = "can't determine join between %q and %q; tables have more than one foreign key constraint relationship between them, specify the onclause explicitly"
)
