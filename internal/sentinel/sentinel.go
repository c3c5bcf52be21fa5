// Package sentinel provides a const-compatible error type.
package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an error backed by a string constant. Declaring sentinel errors
// as const Error values (instead of var + errors.New) makes them immutable:
// nothing can reassign them at runtime.
//
// Error is a comparable type, so the default == comparison used by
// errors.Is matches it correctly through wrapped error chains.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
