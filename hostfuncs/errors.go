package hostfuncs

import (
	"fmt"

	"github.com/python-project-templates/nativemod/domain/entities"
)

// NewArgumentError creates a host error for arguments that do not fit the
// native signature (wrong count, undecodable value).
func NewArgumentError(code, message string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeArgument, message).WithCode(code)
}

// NewValidationError creates a host error for arguments rejected by struct
// validation rules.
func NewValidationError(message string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeValidation, message)
}

// NewNotFoundError creates a host error for an unknown export name.
func NewNotFoundError(module, name string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeNotFound,
		fmt.Sprintf("module %q has no export %q", module, name)).WithCode(name)
}

// NewInternalError creates a host error for unexpected failures of the
// boundary itself.
func NewInternalError(message string) *entities.ErrorDetail {
	return entities.NewErrorDetail(entities.ErrorTypeInternal, message)
}

// NewPanicError creates a host error for a recovered panic.
func NewPanicError(panicValue any) *entities.ErrorDetail {
	var msg string
	switch v := panicValue.(type) {
	case error:
		msg = v.Error()
	case string:
		msg = v
	case fmt.Stringer:
		msg = v.String()
	default:
		msg = fmt.Sprintf("%v", v)
	}
	return entities.NewErrorDetail(entities.ErrorTypePanic, msg)
}
