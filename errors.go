package docquery

import (
	"errors"
	"fmt"

	"github.com/hupe1980/docquery/ast"
	"github.com/hupe1980/docquery/index"
	"github.com/hupe1980/docquery/indexop"
	"github.com/hupe1980/docquery/optimizer"
	"github.com/hupe1980/docquery/value"
)

var (
	// ErrBadParameter is returned for malformed examples, conditions, queries
	// and index definitions.
	ErrBadParameter = errors.New("bad parameter")

	// ErrElementNotFound marks a query on an attribute path no document has.
	// Query entry points turn it into an empty result.
	ErrElementNotFound = errors.New("element not found")

	// ErrNotImplemented is returned when an index lacks a requested
	// capability.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoIndex is returned when an index id is unknown or names an index of
	// the wrong kind.
	ErrNoIndex = errors.New("no suitable index")

	// ErrInternal is returned when an index refers to a row the collection
	// does not hold.
	ErrInternal = errors.New("internal error")

	// ErrUniqueConstraint is returned when a write would violate a unique
	// index.
	ErrUniqueConstraint = errors.New("unique constraint violated")

	// ErrDocumentNotFound is returned when no document has the given key.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrIndexExists is returned when an index on the same fields already
	// exists with different options.
	ErrIndexExists = errors.New("index already exists")
)

// ErrUniqueViolation indicates a write that would duplicate a value tuple of
// a unique index. It matches ErrUniqueConstraint with errors.Is.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUniqueViolation struct {
	Index  index.ID
	Fields []string
	Values []value.Value
	cause  error
}

func (e *ErrUniqueViolation) Error() string {
	return fmt.Sprintf("unique constraint violated: index %d on %v already holds %v", e.Index, e.Fields, value.Array(e.Values...))
}

func (e *ErrUniqueViolation) Unwrap() error { return e.cause }

// Is reports whether target is ErrUniqueConstraint.
func (e *ErrUniqueViolation) Is(target error) bool { return target == ErrUniqueConstraint }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var uv *index.ErrUniqueViolation
	if errors.As(err, &uv) {
		return &ErrUniqueViolation{Index: uv.ID, Fields: uv.Fields, Values: uv.Values, cause: err}
	}

	if errors.Is(err, index.ErrNotImplemented) {
		return fmt.Errorf("%w: %w", ErrNotImplemented, err)
	}

	// Argument normalization.
	for _, bad := range []error{
		index.ErrBadParameter,
		indexop.ErrBadParameter,
		indexop.ErrTooManyValues,
		indexop.ErrNonPrefix,
		indexop.ErrTooManyCombinations,
		optimizer.ErrInvalidNode,
		ast.ErrUnknownFunction,
		ast.ErrUnboundVariable,
		ast.ErrUnboundParameter,
		ast.ErrInvalidOperand,
	} {
		if errors.Is(err, bad) {
			return fmt.Errorf("%w: %w", ErrBadParameter, err)
		}
	}

	return err
}
