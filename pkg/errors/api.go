package errors

import (
	"fmt"

	"github.com/angelmondragon/gearstage-backend/pkg/types"
)

// ToAPIError renders err in its wire form without hiding the message. Use it for
// per-line validation results, not for top-level responses.
func ToAPIError(err error) types.APIError {
	typed := As(err)
	if typed == nil {
		typed = Wrap(CodeInternal, err, "unexpected error")
	}
	return types.APIError{
		Code:    string(typed.Code()),
		Message: typed.Message(),
		Details: typed.Details(),
	}
}

// ToAPIErrors renders each error with ToAPIError.
func ToAPIErrors(errs []error) []types.APIError {
	out := make([]types.APIError, 0, len(errs))
	for _, err := range errs {
		out = append(out, ToAPIError(err))
	}
	return out
}

// LineRejection folds per-line failures into one error. It keeps the code and message of
// the first failure and lists every failure in types.LineErrors details.
func LineRejection(errs []error) *Error {
	if len(errs) == 0 {
		return nil
	}
	first := As(errs[0])
	if first == nil {
		first = Wrap(CodeInternal, errs[0], "unexpected error")
	}
	msg := first.Message()
	if len(errs) > 1 {
		msg = fmt.Sprintf("%s (%d allocation lines rejected)", msg, len(errs))
	}
	return &Error{
		code:    first.Code(),
		message: msg,
		details: types.LineErrors{Rejected: len(errs), Lines: ToAPIErrors(errs)},
		cause:   errs[0],
	}
}
