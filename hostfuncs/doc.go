// Package hostfuncs adapts native Go functions into host-callable functions.
//
// A wrapped Function accepts positional arguments as JSON values and returns
// a JSON value or a host error (*entities.ErrorDetail). Native errors and
// panics are converted at this boundary; they never reach the host as Go
// errors of arbitrary type or as crashes. This package has no knowledge of
// any particular host runtime.
package hostfuncs
