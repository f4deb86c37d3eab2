package connectx

import "github.com/cockroachdb/errors"

// Operator represents a numeric refinement operator.
type Operator string

const (
	// OpEq represents equality operator.
	OpEq Operator = "="
	// OpNe represents not-equal operator.
	OpNe Operator = "!="
	// OpGt represents greater-than operator.
	OpGt Operator = ">"
	// OpGte represents greater-than-or-equal operator.
	OpGte Operator = ">="
	// OpLt represents less-than operator.
	OpLt Operator = "<"
	// OpLte represents less-than-or-equal operator.
	OpLte Operator = "<="
)

// operatorOrder fixes the order numeric refinements are compiled in.
var operatorOrder = []Operator{OpEq, OpNe, OpGt, OpGte, OpLt, OpLte}

// Valid reports whether o is one of the known operators.
func (o Operator) Valid() bool {
	for _, known := range operatorOrder {
		if o == known {
			return true
		}
	}
	return false
}

// ErrorCode represents specific error codes for connector and search operations.
type ErrorCode int

const (
	// ErrCodeNonFiniteRange is returned when a range is refined with NaN or infinite bounds.
	ErrCodeNonFiniteRange ErrorCode = iota + 1000

	// ErrCodeInvalidWidget is returned when a widget is declared with unusable parameters.
	ErrCodeInvalidWidget

	// ErrCodeInvalidState is returned when a serialized search state cannot be decoded.
	ErrCodeInvalidState

	// ErrCodeTimeout is returned when a search operation times out.
	ErrCodeTimeout

	// ErrCodeCanceled is returned when a search operation is canceled.
	ErrCodeCanceled

	// ErrCodeBackendUnavailable is returned when the search backend is unavailable.
	ErrCodeBackendUnavailable
)

// String returns the human-readable string representation of the error code.
// This implements the fmt.Stringer interface.
func (e ErrorCode) String() string {
	switch e {
	case ErrCodeNonFiniteRange:
		return "non finite range"
	case ErrCodeInvalidWidget:
		return "invalid widget"
	case ErrCodeInvalidState:
		return "invalid search state"
	case ErrCodeTimeout:
		return "operation timed out"
	case ErrCodeCanceled:
		return "operation canceled"
	case ErrCodeBackendUnavailable:
		return "backend unavailable"
	default:
		return "unknown error"
	}
}

// newErrorWithCode creates a new error with a code and message.
func newErrorWithCode(code ErrorCode, msg string) error {
	err := errors.New(msg)
	return errors.WithSecondaryError(err, errors.Newf("code: %d", int(code)))
}

var (
	// ErrNonFiniteRange is returned by range refinements given NaN or infinite bounds.
	ErrNonFiniteRange = newErrorWithCode(ErrCodeNonFiniteRange, "connectx: can't provide non finite values to the range connector")

	// ErrInvalidWidget is returned when a widget cannot be built from its parameters.
	ErrInvalidWidget = newErrorWithCode(ErrCodeInvalidWidget, "connectx: invalid widget")

	// ErrInvalidState is returned when a serialized search state is malformed.
	ErrInvalidState = newErrorWithCode(ErrCodeInvalidState, "connectx: invalid search state")

	// ErrTimeout is returned when a search operation times out.
	ErrTimeout = newErrorWithCode(ErrCodeTimeout, "connectx: operation timed out")

	// ErrCanceled is returned when a search operation is canceled.
	ErrCanceled = newErrorWithCode(ErrCodeCanceled, "connectx: operation canceled")

	// ErrBackendUnavailable is returned when the search backend is unavailable.
	ErrBackendUnavailable = newErrorWithCode(ErrCodeBackendUnavailable, "connectx: backend unavailable")
)
