// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Package diag carries the compiler's user-facing error taxonomy (spec
// §7). Internal invariants (DoubleTerminate and friends) stay as
// utils.Assert panics; these are surfaced to a CLI as a single diagnostic.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the user-facing error taxonomy from spec §7. Internal
// bugs (DoubleTerminate) are not represented here; they assert instead.
type Kind int

const (
	UnexpectedEvent Kind = iota
	UnknownEvent
	StackUnderflow
	UndefinedSymbol
	Redeclared
	MalformedSignature
	EmitError
)

func (k Kind) String() string {
	switch k {
	case UnexpectedEvent:
		return "UnexpectedEvent"
	case UnknownEvent:
		return "UnknownEvent"
	case StackUnderflow:
		return "StackUnderflow"
	case UndefinedSymbol:
		return "UndefinedSymbol"
	case Redeclared:
		return "Redeclared"
	case MalformedSignature:
		return "MalformedSignature"
	case EmitError:
		return "EmitError"
	default:
		return "<unknown kind>"
	}
}

// Error is a single diagnostic: a taxonomy Kind, the function it occurred
// in (if known), and a human-readable detail. It wraps an optional cause
// with github.com/pkg/errors so CLI output can walk the chain back to the
// underlying I/O or parse failure.
type Error struct {
	Kind     Kind
	Function string // enclosing function name, "" if not applicable
	Detail   string
	cause    error
}

func (e *Error) Error() string {
	if e.Function != "" {
		return fmt.Sprintf("%s: in function %q: %s", e.Kind, e.Function, e.Detail)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a diagnostic with no enclosing function context.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// In builds a diagnostic anchored to the named function.
func In(kind Kind, function, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Function: function, Detail: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/function context to an underlying error (an I/O
// failure writing the assembly file, a parse failure from the frontend).
func Wrap(kind Kind, function string, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Kind:     kind,
		Function: function,
		Detail:   fmt.Sprintf(format, args...),
		cause:    errors.WithStack(cause),
	}
}

// KindOf reports the Kind of err if it (or something it wraps) is a
// *Error, and ok=false otherwise.
func KindOf(err error) (Kind, bool) {
	var d *Error
	if errors.As(err, &d) {
		return d.Kind, true
	}
	return 0, false
}
