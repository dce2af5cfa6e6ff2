package factory

import "errors"

var (
	// ErrUnknownFunction is returned for a kind name nothing was registered under.
	ErrUnknownFunction = errors.New("factory: unknown function")

	// ErrInvalidAttribute is returned when an attribute is missing, unknown
	// to the kind, or has a value the kind cannot use.
	ErrInvalidAttribute = errors.New("factory: invalid attribute")

	// ErrSyntax is returned for malformed init strings.
	ErrSyntax = errors.New("factory: init string syntax error")

	// ErrDomain is returned by a kernel evaluated at parameters where it is
	// undefined (e.g. a zero-width peak).
	ErrDomain = errors.New("factory: parameters outside function domain")
)
