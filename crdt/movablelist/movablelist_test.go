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

package movablelist

import (
	"reflect"
	"testing"

	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
)

func TestInsertOrderAndMove(t *testing.T) {
	l := New()
	a := ids.ID{Peer: 1, Counter: 0}
	b := ids.ID{Peer: 1, Counter: 1}
	c := ids.ID{Peer: 1, Counter: 2}

	posA := fractional.Default(0)
	posB := fractional.NewAfter(posA, 0)
	posC := fractional.NewAfter(posB, 0)
	l.Insert(a, "a", posA, ids.IdLp{Lamport: 1, Peer: 1})
	l.Insert(b, "b", posB, ids.IdLp{Lamport: 2, Peer: 1})
	l.Insert(c, "c", posC, ids.IdLp{Lamport: 3, Peer: 1})

	if got := l.Values(); !reflect.DeepEqual(got, []any{"a", "b", "c"}) {
		t.Fatalf("expected [a b c], got %v", got)
	}

	// Move c to the front.
	posFront := fractional.NewBefore(posA, 0)
	l.Move(c, posFront, ids.IdLp{Lamport: 4, Peer: 1})
	if got := l.Values(); !reflect.DeepEqual(got, []any{"c", "a", "b"}) {
		t.Fatalf("expected [c a b] after move, got %v", got)
	}
}

func TestSetAndMoveIndependentLWW(t *testing.T) {
	l := New()
	a := ids.ID{Peer: 1, Counter: 0}
	l.Insert(a, "orig", fractional.Default(0), ids.IdLp{Lamport: 1, Peer: 1})

	l.Set(a, "updated", ids.IdLp{Lamport: 5, Peer: 2})
	l.Move(a, fractional.NewAfter(fractional.Default(0), 0), ids.IdLp{Lamport: 3, Peer: 2})

	if got := l.Values(); got[0] != "updated" {
		t.Fatalf("expected value updated independent of move race, got %v", got)
	}

	// Stale set (lower lamport) must not overwrite.
	l.Set(a, "stale", ids.IdLp{Lamport: 2, Peer: 9})
	if got := l.Values(); got[0] != "updated" {
		t.Fatalf("expected 'updated' to survive stale set, got %v", got)
	}
}

func TestDeletePreservesElementForLateOps(t *testing.T) {
	l := New()
	a := ids.ID{Peer: 1, Counter: 0}
	l.Insert(a, "a", fractional.Default(0), ids.IdLp{Lamport: 1, Peer: 1})
	l.Delete(a)
	if l.Len() != 0 {
		t.Fatalf("expected len 0 after delete")
	}
	// A late concurrent move must still apply without panicking.
	l.Move(a, fractional.NewAfter(fractional.Default(0), 0), ids.IdLp{Lamport: 2, Peer: 1})
	if _, ok := l.PositionOf(a); !ok {
		t.Fatalf("expected deleted element to remain addressable")
	}
}
