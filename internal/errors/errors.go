package errors

import (
	"errors"
	"fmt"
	"runtime"
)

// Error types for different categories of failures
type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "validation"
	ErrorTypeState         ErrorType = "state"
	ErrorTypeComputation   ErrorType = "computation"
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinel causes. Every constructor below wraps exactly one of these so callers
// can branch with errors.Is.
var (
	ErrDuplicateQubit     = errors.New("qubit already allocated")
	ErrUnknownQubit       = errors.New("unknown qubit id")
	ErrSuperposition      = errors.New("qubit has not been measured / uncomputed; cannot access its classical value and/or deallocate a qubit in superposition")
	ErrImpossibleCollapse = errors.New("invalid collapse: probability is ~0")
	ErrGateSize           = errors.New("unsupported gate size")
	ErrOperatorRange      = errors.New("operator acts on more qubits than contained in the register")
	ErrIncompleteRegister = errors.New("qubit ordering must be a permutation of all allocated qubits")
	ErrQubitLimit         = errors.New("qubit limit reached")
	ErrInvalidArgument    = errors.New("invalid argument")
)

// StructuredError provides rich error context
type StructuredError struct {
	Type      ErrorType
	Operation string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Stack     []uintptr
}

// Error implements the error interface
func (e *StructuredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s: %v", e.Type, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Operation, e.Message)
}

// Unwrap returns the underlying cause
func (e *StructuredError) Unwrap() error {
	return e.Cause
}

// New creates a new structured error
func New(errType ErrorType, operation, message string) *StructuredError {
	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, operation, message string) *StructuredError {
	if err == nil {
		return nil
	}

	return &StructuredError{
		Type:      errType,
		Operation: operation,
		Message:   message,
		Cause:     err,
		Context:   make(map[string]interface{}),
		Stack:     captureStack(),
	}
}

// WithContext adds context information to an error
func (e *StructuredError) WithContext(key string, value interface{}) *StructuredError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// captureStack captures the current stack trace
func captureStack() []uintptr {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:]) // skip Callers, captureStack and the constructor
	return pcs[:n]
}

// TypeOf returns the ErrorType of the first StructuredError in err's chain, or "".
func TypeOf(err error) ErrorType {
	var se *StructuredError
	if errors.As(err, &se) {
		return se.Type
	}
	return ""
}

// Taxonomy constructors

// NewDuplicateQubitError reports an allocate of an id that is already live.
func NewDuplicateQubitError(operation string, id int) *StructuredError {
	return Wrap(ErrDuplicateQubit, ErrorTypeValidation, operation, fmt.Sprintf("qubit %d", id)).
		WithContext("qubit", id)
}

// NewUnknownQubitError reports an id that is absent from the index map.
func NewUnknownQubitError(operation string, id int) *StructuredError {
	return Wrap(ErrUnknownQubit, ErrorTypeValidation, operation, fmt.Sprintf("qubit %d", id)).
		WithContext("qubit", id)
}

// NewSuperpositionError reports a qubit that is not in a classical basis state.
func NewSuperpositionError(operation string, id int) *StructuredError {
	return Wrap(ErrSuperposition, ErrorTypeState, operation, fmt.Sprintf("qubit %d", id)).
		WithContext("qubit", id)
}

// NewImpossibleCollapseError reports a requested collapse outcome with ~zero probability.
func NewImpossibleCollapseError(operation string, probability float64) *StructuredError {
	return Wrap(ErrImpossibleCollapse, ErrorTypeState, operation, fmt.Sprintf("retained probability %g", probability)).
		WithContext("probability", probability)
}

// NewGateSizeError reports a unitary whose size is unsupported or inconsistent with its targets.
func NewGateSizeError(operation string, dim, targets int) *StructuredError {
	return Wrap(ErrGateSize, ErrorTypeValidation, operation,
		fmt.Sprintf("%dx%d matrix applied to %d qubits; only controlled k-qubit gates with k < 6 are supported, add a decomposition pass upstream", dim, dim, targets)).
		WithContext("dim", dim).
		WithContext("targets", targets)
}

// NewOperatorRangeError reports an operator term that indexes past the supplied register.
func NewOperatorRangeError(operation string, index, size int) *StructuredError {
	return Wrap(ErrOperatorRange, ErrorTypeValidation, operation, fmt.Sprintf("term index %d, register size %d", index, size)).
		WithContext("index", index).
		WithContext("size", size)
}

// NewIncompleteRegisterError reports an ordering that is not exactly the live register.
func NewIncompleteRegisterError(operation string, got, live int) *StructuredError {
	return Wrap(ErrIncompleteRegister, ErrorTypeValidation, operation, fmt.Sprintf("got %d ids, %d allocated", got, live)).
		WithContext("got", got).
		WithContext("live", live)
}

// NewQubitLimitError reports an allocation beyond the configured maximum.
func NewQubitLimitError(operation string, limit int) *StructuredError {
	return Wrap(ErrQubitLimit, ErrorTypeComputation, operation, fmt.Sprintf("max %d qubits", limit)).
		WithContext("limit", limit)
}

// NewInvalidArgumentError reports a malformed call that fits no other category.
func NewInvalidArgumentError(operation, message string) *StructuredError {
	return Wrap(ErrInvalidArgument, ErrorTypeValidation, operation, message)
}
