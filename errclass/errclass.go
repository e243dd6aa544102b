// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package errclass classifies the reasons why the simulation drops
frames and datagrams.

The general idea is the same of [github.com/rbmk-project/common/errclass]:
we map golang errors to an enum of strings with names resembling standard
Unix error names, so that structured logs can be filtered by class.

# Design Principles

1. Drops are not failures: no drop reason travels back to the caller
that started a send. Drop reasons only end up in the structured logs.

2. Preserve the original error in `err` in the structured logs.

3. Add the classified error as the `errClass` field.

4. Packages define their drop reasons using [Define], which binds
an error message to a class.

5. Use [errors.As] for classification, so wrapped errors work.

6. Fall back to [github.com/rbmk-project/common/errclass] for
errors not created using [Define].

7. Map the nil error to an empty string.

# Classes

- [ENOBUFS] for a full bounded queue

- [ENOTCONN] for frames aborted by unlinking

- [EADDRNOTAVAIL] for frames not addressed to the receiver

- [ENETUNREACH] for datagrams without a matching route

- [EHOSTUNREACH] for next hops without an egress interface

- [ELOOP] for datagrams destined to the sending interface

- [EINVAL] for misconfigured nodes (e.g., unbound interfaces)

- [EGENERIC] for unclassified errors
*/
package errclass

import (
	"errors"

	"github.com/rbmk-project/common/errclass"
)

const (
	// ENOBUFS is the no buffer space available error.
	ENOBUFS = errclass.ENOBUFS

	// ENOTCONN is the not connected error.
	ENOTCONN = errclass.ENOTCONN

	// EADDRNOTAVAIL is the address not available error.
	EADDRNOTAVAIL = errclass.EADDRNOTAVAIL

	// ENETUNREACH is the network unreachable error.
	ENETUNREACH = errclass.ENETUNREACH

	// EHOSTUNREACH is the host unreachable error.
	EHOSTUNREACH = errclass.EHOSTUNREACH

	// ELOOP is the error for traffic that would loop back to its sender.
	ELOOP = "ELOOP"

	// EINVAL is the invalid argument error.
	EINVAL = errclass.EINVAL

	// EGENERIC is the generic, unclassified error.
	EGENERIC = errclass.EGENERIC
)

// classifiedError is an error bound to a class.
type classifiedError struct {
	class   string
	message string
}

var _ error = &classifiedError{}

// Error implements error.
func (e *classifiedError) Error() string {
	return e.message
}

// Define returns a new sentinel error with the given message, which
// [New] classifies as class. Compare using [errors.Is].
func Define(class, message string) error {
	return &classifiedError{class: class, message: message}
}

// New returns the class of the given error.
func New(err error) string {
	if err == nil {
		return ""
	}
	var ce *classifiedError
	if errors.As(err, &ce) {
		return ce.class
	}
	return errclass.New(err)
}
