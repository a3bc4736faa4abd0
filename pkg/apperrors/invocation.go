package apperrors

import (
	"errors"
	"fmt"
)

// InvocationKind classifies a local argument failure.
type InvocationKind string

const (
	MissingParameter InvocationKind = "missing_parameter"
	InvalidArgument  InvocationKind = "invalid_argument"
)

// InvocationError is returned by a tool invocation when the supplied
// arguments violate the tool's contract. No HTTP request is sent.
type InvocationError struct {
	Kind      InvocationKind
	Tool      string
	Parameter string
	Reason    string
}

func (e *InvocationError) Error() string {
	switch e.Kind {
	case MissingParameter:
		return fmt.Sprintf("tool %s: missing required parameter %q", e.Tool, e.Parameter)
	default:
		if e.Parameter == "" {
			return fmt.Sprintf("tool %s: invalid arguments: %s", e.Tool, e.Reason)
		}
		return fmt.Sprintf("tool %s: invalid value for %q: %s", e.Tool, e.Parameter, e.Reason)
	}
}

// Missing builds a MissingParameter InvocationError.
func Missing(tool, param string) *InvocationError {
	return &InvocationError{Kind: MissingParameter, Tool: tool, Parameter: param}
}

// Invalid builds an InvalidArgument InvocationError.
func Invalid(tool, param, reason string) *InvocationError {
	return &InvocationError{Kind: InvalidArgument, Tool: tool, Parameter: param, Reason: reason}
}

// IsInvocation reports whether err is an InvocationError of the given kind.
func IsInvocation(err error, kind InvocationKind) bool {
	var e *InvocationError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
