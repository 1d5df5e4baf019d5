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

package mapstate

import (
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestSetLWWHigherLamportWins(t *testing.T) {
	m := New()
	m.Set("k", "first", false, ids.IdLp{Lamport: 5, Peer: 1})
	m.Set("k", "stale", false, ids.IdLp{Lamport: 3, Peer: 2}) // older, must lose
	if v, ok := m.Get("k"); !ok || v != "first" {
		t.Fatalf("expected 'first' to survive, got %v ok=%v", v, ok)
	}
	m.Set("k", "second", false, ids.IdLp{Lamport: 7, Peer: 1})
	if v, ok := m.Get("k"); !ok || v != "second" {
		t.Fatalf("expected 'second' to win, got %v ok=%v", v, ok)
	}
}

func TestSetLWWTieBreaksByPeer(t *testing.T) {
	m := New()
	m.Set("k", "fromPeer1", false, ids.IdLp{Lamport: 5, Peer: 1})
	m.Set("k", "fromPeer9", false, ids.IdLp{Lamport: 5, Peer: 9})
	if v, _ := m.Get("k"); v != "fromPeer9" {
		t.Fatalf("expected higher peer to win tie, got %v", v)
	}
}

func TestDeleteTombstoneThenLateSetLoses(t *testing.T) {
	m := New()
	m.Set("k", "v", false, ids.IdLp{Lamport: 1, Peer: 1})
	m.Set("k", nil, true, ids.IdLp{Lamport: 10, Peer: 1})
	if _, ok := m.Get("k"); ok {
		t.Fatalf("expected key absent after delete")
	}
	// A causally-older set, arriving late, must not resurrect the key.
	m.Set("k", "resurrect?", false, ids.IdLp{Lamport: 2, Peer: 1})
	if _, ok := m.Get("k"); ok {
		t.Fatalf("late older set must not resurrect a tombstoned key")
	}
}
