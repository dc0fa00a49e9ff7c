// Package entities provides the core value types shared by the wrapper,
// the registrar and every host adapter.
package entities
