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

// Package fractional implements FractionalIndex, the order-preserving
// byte-string position key used by the movable-list and movable-tree
// containers to order elements/siblings without rewriting every
// neighbor's position on every insert.
//
// A FractionalIndex is a "content" byte string using digits in
// [0x00, 0x7F], followed by a fixed sentinel Terminator byte (0x80),
// followed by zero or more random "jitter" bytes. Keeping content
// digits below the terminator value means two indices that share a
// content prefix but differ in length still compare correctly: the
// terminator always sorts above any digit that could follow it, so a
// shorter index is never accidentally treated as a prefix-continuation
// of a longer one once both are terminated.
package fractional

import (
	"bytes"
	"crypto/rand"
)

// Terminator marks the end of an index's content digits.
const Terminator byte = 0x80

// digitMax is the largest legal content digit value (inclusive).
const digitMax = 0x7F

// FractionalIndex is an immutable, order-preserving position key.
// Indices compare with bytes.Compare (equivalently Less/Compare
// below).
type FractionalIndex []byte

// Compare orders two indices; returns <0, 0, >0 like bytes.Compare.
func (f FractionalIndex) Compare(other FractionalIndex) int {
	return bytes.Compare(f, other)
}

func (f FractionalIndex) Less(other FractionalIndex) bool {
	return f.Compare(other) < 0
}

func (f FractionalIndex) Equal(other FractionalIndex) bool {
	return bytes.Equal(f, other)
}

// content returns the digits before the terminator byte.
func (f FractionalIndex) content() []byte {
	if f == nil {
		return nil
	}
	if idx := bytes.IndexByte(f, Terminator); idx >= 0 {
		return f[:idx]
	}
	return f
}

func seal(content []byte, jitterLen int) FractionalIndex {
	out := make([]byte, 0, len(content)+1+jitterLen)
	out = append(out, content...)
	out = append(out, Terminator)
	if jitterLen > 0 {
		suffix := make([]byte, jitterLen)
		_, _ = rand.Read(suffix)
		out = append(out, suffix...)
	}
	return FractionalIndex(out)
}

// Default returns the first index ever created in an otherwise-empty
// ordering: no lower or upper bound.
func Default(jitterLen int) FractionalIndex {
	return seal(nil, jitterLen)
}

// NewAfter returns an index strictly greater than lower, with no upper
// bound.
func NewAfter(lower FractionalIndex, jitterLen int) FractionalIndex {
	return seal(incrementContent(lower.content()), jitterLen)
}

// NewBefore returns an index strictly less than upper, with no lower
// bound.
func NewBefore(upper FractionalIndex, jitterLen int) FractionalIndex {
	return seal(decrementContent(upper.content()), jitterLen)
}

// NewBetween returns an index strictly between lower and upper. Returns
// ok=false if lower is not strictly less than upper.
func NewBetween(lower, upper FractionalIndex, jitterLen int) (FractionalIndex, bool) {
	if lower != nil && upper != nil && lower.Compare(upper) >= 0 {
		return nil, false
	}
	return seal(bisectContent(lower.content(), upper.content()), jitterLen), true
}

// New dispatches to NewBefore/NewAfter/NewBetween/Default based on
// which bounds are present, mirroring the "insert at this position"
// call sites in the movable-tree container.
func New(lower, upper *FractionalIndex, jitterLen int) (FractionalIndex, bool) {
	switch {
	case lower != nil && upper != nil:
		return NewBetween(*lower, *upper, jitterLen)
	case lower != nil:
		return NewAfter(*lower, jitterLen), true
	case upper != nil:
		return NewBefore(*upper, jitterLen), true
	default:
		return Default(jitterLen), true
	}
}

// GenerateNEvenly returns n indices spread evenly between lower and
// upper (either or both may be nil), via a balanced binary split so
// that later insertions in the same range tend to produce short keys.
func GenerateNEvenly(lower, upper *FractionalIndex, n int, jitterLen int) ([]FractionalIndex, bool) {
	if n == 0 {
		return nil, true
	}
	if lower != nil && upper != nil && (*lower).Compare(*upper) >= 0 {
		return nil, false
	}

	out := make([]FractionalIndex, 0, n)
	var gen func(lower, upper *FractionalIndex, n int)
	gen = func(lower, upper *FractionalIndex, n int) {
		if n == 0 {
			return
		}
		mid, ok := New(lower, upper, jitterLen)
		if !ok {
			panic("fractional: unreachable invalid bound in GenerateNEvenly")
		}
		if n == 1 {
			out = append(out, mid)
			return
		}
		half := n / 2
		gen(lower, &mid, half)
		out = append(out, mid)
		if n-half-1 > 0 {
			gen(&mid, upper, n-half-1)
		}
	}
	gen(lower, upper, n)
	return out, true
}

// --- content digit arithmetic (operates on the 0x00-0x7F digit range) ---

func incrementContent(content []byte) []byte {
	out := append([]byte(nil), content...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] < digitMax {
			out[i]++
			return out[:i+1]
		}
	}
	return append(append([]byte{}, content...), 1)
}

func decrementContent(content []byte) []byte {
	out := append([]byte(nil), content...)
	for i := len(out) - 1; i >= 0; i-- {
		if out[i] > 0 {
			out[i]--
			return out[:i+1]
		}
	}
	if len(out) == 0 {
		panic("fractional: no value before the empty index")
	}
	return out[:len(out)-1]
}

// bisectContent returns a digit string strictly between lowerContent
// and upperContent (either may be nil, meaning unbounded on that side).
func bisectContent(lowerContent, upperContent []byte) []byte {
	var out []byte
	loTied, hiTied := true, true
	i := 0
	for {
		lo := 0
		if loTied {
			if i < len(lowerContent) {
				lo = int(lowerContent[i])
			} else {
				loTied = false
			}
		}
		hi := digitMax + 1
		if hiTied {
			if i < len(upperContent) {
				hi = int(upperContent[i])
			} else {
				hiTied = false
			}
		}

		if hi-lo > 1 {
			d := lo + (hi-lo)/2
			out = append(out, byte(d))
			return out
		}

		d := lo
		out = append(out, byte(d))
		if hiTied && d != hi {
			hiTied = false
		}
		i++
	}
}
