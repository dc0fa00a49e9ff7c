package entities

import "fmt"

// Error types carried by ErrorDetail.Type.
const (
	ErrorTypeArgument   = "argument"
	ErrorTypeValidation = "validation"
	ErrorTypeNotFound   = "not_found"
	ErrorTypeNative     = "native"
	ErrorTypePanic      = "panic"
	ErrorTypeInternal   = "internal"
)

// ErrorDetail is the host-representable form of a failure raised while
// calling an exported function. It is what crosses the boundary instead of
// a Go error value or a panic.
type ErrorDetail struct {
	// Details contains additional error context.
	Details map[string]any `json:"details,omitempty" yaml:"details,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message" yaml:"message"`

	// Type categorizes the error (see the ErrorType constants).
	Type string `json:"type" yaml:"type"`

	// Code is a machine-readable error code.
	Code string `json:"code,omitempty" yaml:"code,omitempty"`
}

// Error implements the error interface.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	return msg
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns the receiver.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a code and returns the receiver.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}
