// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package errclass implements error classification.

The general idea is to classify golang errors to an enum of strings
with names resembling standard Unix error names. This package extends
[github.com/rbmk-project/common/errclass] with the classes used by
the address policy layer.

# Design Principles

1. Preserve original error in `err` in the structured logs.

2. Add the classified error as the `errClass` field.

3. Use [errors.As] to find errors created with [NewError].

4. Map the address family errors using platform constants.

5. Fall back to [github.com/rbmk-project/common/errclass].

6. Map the nil error to an empty string.

# Address Policy Errors

- [ECONVUNAVAIL] when the conversion routines cannot be bound

- [EMALFORMEDADDR] when an address does not parse

- [EENUMFAILED] when listing the local interfaces fails

- [ERESOLUTIONEMPTY] when no usable address is found

- [EINVALIDHANDLE] when a connection handle is nil or closed

# System Errors

- [EAFNOSUPPORT] for the address family not supported error

The system error constants are defined in platform-specific files:

- unix.go for Unix-like systems using x/sys/unix

- windows.go for Windows systems using x/sys/windows
*/
package errclass

import (
	"errors"

	"github.com/rbmk-project/common/errclass"
)

const (
	// ECONVUNAVAIL indicates that address conversion is unavailable.
	ECONVUNAVAIL = "ECONVUNAVAIL"

	// EMALFORMEDADDR indicates a malformed address.
	EMALFORMEDADDR = "EMALFORMEDADDR"

	// EENUMFAILED indicates that interface enumeration failed.
	EENUMFAILED = "EENUMFAILED"

	// ERESOLUTIONEMPTY indicates that no usable address was found.
	ERESOLUTIONEMPTY = "ERESOLUTIONEMPTY"

	// EINVALIDHANDLE indicates an invalid connection handle.
	EINVALIDHANDLE = "EINVALIDHANDLE"

	// EAFNOSUPPORT is the address family not supported error.
	EAFNOSUPPORT = "EAFNOSUPPORT"

	// EGENERIC is the generic, unclassified error.
	EGENERIC = errclass.EGENERIC
)

// classifier is implemented by errors carrying their own class.
type classifier interface {
	ErrClass() string
}

// classedError is the error returned by [NewError].
type classedError struct {
	class string
	msg   string
}

// Error implements error.
func (e *classedError) Error() string {
	return e.msg
}

// ErrClass implements classifier.
func (e *classedError) ErrClass() string {
	return e.class
}

// NewError creates a sentinel error that [New] maps to class.
func NewError(class, msg string) error {
	return &classedError{class: class, msg: msg}
}

// New classifies an error to a string. The nil error maps to the
// empty string; unknown errors map to [EGENERIC].
func New(err error) string {
	if err == nil {
		return ""
	}
	var ce classifier
	if errors.As(err, &ce) {
		return ce.ErrClass()
	}
	if errors.Is(err, errEAFNOSUPPORT) {
		return EAFNOSUPPORT
	}
	return errclass.New(err)
}
