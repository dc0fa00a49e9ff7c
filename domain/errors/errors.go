// Package errors provides the error taxonomy of the registration boundary.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/python-project-templates/nativemod/domain/entities"
)

// DetailedError is implemented by errors that know how to present themselves
// to a host as a structured ErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to the host error representation.
// Errors that are not already detailed are categorized as native failures.
// Context added by wrapping a detailed error is kept in the message, while
// type, code and details come from the detailed error. A typed nil pointer
// stored in err is reported as an internal error.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}
	if isNilPointer(err) {
		return entities.NewErrorDetail(entities.ErrorTypeInternal,
			fmt.Sprintf("native function returned a nil %T as its error", err))
	}

	switch d := err.(type) {
	case *entities.ErrorDetail:
		return d
	case DetailedError:
		if detail := d.ToErrorDetail(); detail != nil {
			return detail
		}
		return nativeDetail(err)
	}

	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) && e != nil {
		return withContext(err, e, e)
	}

	var de DetailedError
	if stdErrors.As(err, &de) && !isNilPointer(de) {
		if detail := de.ToErrorDetail(); detail != nil {
			return withContext(err, de, detail)
		}
	}

	return nativeDetail(err)
}

func nativeDetail(err error) *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeNative,
	}
}

// withContext copies detail and prefixes its message with whatever outer
// wrapped inner. If the outer text does not end with the inner text, the
// whole outer text becomes the message.
func withContext(outer, inner error, detail *entities.ErrorDetail) *entities.ErrorDetail {
	out := *detail
	full, tail := outer.Error(), inner.Error()
	if prefix, ok := strings.CutSuffix(full, tail); ok {
		out.Message = prefix + detail.Message
	} else {
		out.Message = full
	}
	return &out
}

func isNilPointer(v any) bool {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// WrapError reports that a native function could not be adapted into a
// host-callable function.
type WrapError struct {
	Err    error
	Func   string // Go type or name of the offending function
	Reason string
}

func (e *WrapError) Error() string {
	msg := "cannot wrap"
	if e.Func != "" {
		msg += " " + e.Func
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *WrapError) Unwrap() error {
	return e.Err
}

// DuplicateNameError reports two exports claiming the same name.
type DuplicateNameError struct {
	Module string
	Name   string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate export %q in module %q", e.Name, e.Module)
}

// InvalidNameError reports a module or export name that hosts cannot resolve.
type InvalidNameError struct {
	Module string
	Name   string
	Reason string
}

func (e *InvalidNameError) Error() string {
	if e.Module == "" {
		return fmt.Sprintf("invalid module name %q: %s", e.Name, e.Reason)
	}
	return fmt.Sprintf("invalid export name %q in module %q: %s", e.Name, e.Module, e.Reason)
}

// ModuleNotFoundError reports an import of a module that has no entry point.
type ModuleNotFoundError struct {
	Module string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("no module named %q", e.Module)
}

// LoadError is the umbrella error surfaced to host loaders. A host receiving
// a LoadError must treat the module as failed to import.
type LoadError struct {
	Err    error
	Module string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load module %q: %v", e.Module, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NativeError lets a native function raise a specific host error kind
// instead of the generic native failure.
type NativeError struct {
	Err     error
	Details map[string]any
	Kind    string
	Code    string
	Message string
}

// NewNativeError creates a NativeError with the given kind and message.
func NewNativeError(kind, message string) *NativeError {
	return &NativeError{Kind: kind, Message: message}
}

func (e *NativeError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Kind != "" {
		return e.Kind + ": " + msg
	}
	return msg
}

func (e *NativeError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *NativeError) ToErrorDetail() *entities.ErrorDetail {
	kind := e.Kind
	if kind == "" {
		kind = entities.ErrorTypeNative
	}
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return &entities.ErrorDetail{Message: msg, Type: kind, Code: e.Code, Details: e.Details}
}

// IsLoadError reports whether err is, or wraps, a LoadError.
func IsLoadError(err error) bool {
	var le *LoadError
	return stdErrors.As(err, &le)
}
