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
package fractional

import "testing"

func TestNewAfterOrdering(t *testing.T) {
	a := Default(0)
	b := NewAfter(a, 0)
	c := NewAfter(b, 0)
	if !a.Less(b) || !b.Less(c) {
		t.Fatalf("expected a < b < c, got a=%x b=%x c=%x", a, b, c)
	}
}

func TestNewBeforeOrdering(t *testing.T) {
	a := Default(0)
	b := NewBefore(a, 0)
	c := NewBefore(b, 0)
	if !c.Less(b) || !b.Less(a) {
		t.Fatalf("expected c < b < a, got a=%x b=%x c=%x", a, b, c)
	}
}

func TestNewBetween(t *testing.T) {
	lower := Default(0)
	upper := NewAfter(lower, 0)
	mid, ok := NewBetween(lower, upper, 0)
	if !ok {
		t.Fatalf("NewBetween failed")
	}
	if !lower.Less(mid) || !mid.Less(upper) {
		t.Fatalf("expected lower < mid < upper: lower=%x mid=%x upper=%x", lower, mid, upper)
	}
}

func TestNewBetweenRejectsInvalidRange(t *testing.T) {
	a := Default(0)
	b := NewAfter(a, 0)
	if _, ok := NewBetween(b, a, 0); ok {
		t.Fatalf("expected failure when lower >= upper")
	}
	if _, ok := NewBetween(a, a, 0); ok {
		t.Fatalf("expected failure when lower == upper")
	}
}

func TestRepeatedBisectionStaysOrdered(t *testing.T) {
	lower := Default(0)
	upper := NewAfter(lower, 0)
	prev := lower
	for i := 0; i < 200; i++ {
		mid, ok := NewBetween(prev, upper, 0)
		if !ok {
			t.Fatalf("iteration %d: NewBetween failed", i)
		}
		if !prev.Less(mid) || !mid.Less(upper) {
			t.Fatalf("iteration %d: ordering violated prev=%x mid=%x upper=%x", i, prev, mid, upper)
		}
		prev = mid
	}
}

func TestGenerateNEvenly(t *testing.T) {
	lower := Default(0)
	upper := NewAfter(lower, 0)
	indices, ok := GenerateNEvenly(&lower, &upper, 50, 0)
	if !ok {
		t.Fatalf("GenerateNEvenly failed")
	}
	if len(indices) != 50 {
		t.Fatalf("got %d indices, want 50", len(indices))
	}
	for i := 1; i < len(indices); i++ {
		if !indices[i-1].Less(indices[i]) {
			t.Fatalf("indices not strictly increasing at %d: %x >= %x", i, indices[i-1], indices[i])
		}
	}
	if !lower.Less(indices[0]) || !indices[len(indices)-1].Less(upper) {
		t.Fatalf("generated indices escaped bounds")
	}
}

func TestJitterDoesNotBreakOrdering(t *testing.T) {
	lower := Default(4)
	upper := NewAfter(lower, 4)
	mid, ok := NewBetween(lower, upper, 4)
	if !ok {
		t.Fatalf("NewBetween failed")
	}
	if !lower.Less(mid) || !mid.Less(upper) {
		t.Fatalf("jittered ordering violated: lower=%x mid=%x upper=%x", lower, mid, upper)
	}
}
