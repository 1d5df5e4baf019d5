/*
Copyright (C) 2026  Loro-Go Contributors

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package loro

import (
	"fmt"

	"github.com/loro-dev/loro-go/ids"
)

// ErrorKind tags the handful of legitimate-external-input failures a
// Doc's public methods report. Anything that indicates a bug in this
// library rather than bad input panics instead, via invariant below.
type ErrorKind int

const (
	DecodeError ErrorKind = iota
	SchemaMismatch
	DependencyMissing
	OutOfBound
	InvalidMove
	NotAttached
	UnknownContainerType
	Concurrent
	CodecThresholdExceeded
)

func (k ErrorKind) String() string {
	switch k {
	case DecodeError:
		return "DecodeError"
	case SchemaMismatch:
		return "SchemaMismatch"
	case DependencyMissing:
		return "DependencyMissing"
	case OutOfBound:
		return "OutOfBound"
	case InvalidMove:
		return "InvalidMove"
	case NotAttached:
		return "NotAttached"
	case UnknownContainerType:
		return "UnknownContainerType"
	case Concurrent:
		return "Concurrent"
	case CodecThresholdExceeded:
		return "CodecThresholdExceeded"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is the one error shape every Doc method returns: a handful of
// concrete, inspectable kinds rather than a wrapped-chain hierarchy.
// Missing is only populated for DependencyMissing.
type Error struct {
	Kind    ErrorKind
	Message string
	Missing ids.Frontiers
}

func (e *Error) Error() string {
	return fmt.Sprintf("loro: %s: %s", e.Kind, e.Message)
}

func newError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// invariant panics if cond is false: used for conditions that indicate
// a bug in this library, never a legitimate external-input failure
// (those return *Error instead).
func invariant(cond bool, format string, args ...any) {
	if !cond {
		panic("loro: invariant violated: " + fmt.Sprintf(format, args...))
	}
}
