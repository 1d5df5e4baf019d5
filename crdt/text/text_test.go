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

package text

import (
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestLocalInsertSequential(t *testing.T) {
	tx := New()
	p := ids.PeerID(1)

	ol, or := tx.LocalInsert(0)
	if ol != nil || or != nil {
		t.Fatalf("expected nil anchors on empty doc, got %v %v", ol, or)
	}
	tx.Apply(ids.ID{Peer: p, Counter: 0}, 0, ol, or, []byte("ac"))
	if got := tx.String(); got != "ac" {
		t.Fatalf("expected 'ac', got %q", got)
	}

	ol, or = tx.LocalInsert(1)
	tx.Apply(ids.ID{Peer: p, Counter: 2}, 1, ol, or, []byte("b"))
	if got := tx.String(); got != "abc" {
		t.Fatalf("expected 'abc', got %q", got)
	}
}

func TestConcurrentInsertConverges(t *testing.T) {
	p1, p2 := ids.PeerID(1), ids.PeerID(2)

	base := New()
	ol, or := base.LocalInsert(0)
	base.Apply(ids.ID{Peer: p1, Counter: 0}, 0, ol, or, []byte("ac"))

	// Two replicas, both starting from "ac", concurrently insert at
	// the same visible position (between 'a' and 'c') with the same
	// lamport timestamp, so the tie is broken by peer.
	const concurrentLamport = ids.Lamport(1)

	replicaA := New()
	replicaA.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []byte("ac"))
	olA, orA := replicaA.LocalInsert(1)
	replicaA.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []byte("X"))

	replicaB := New()
	replicaB.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []byte("ac"))
	olB, orB := replicaB.LocalInsert(1)
	replicaB.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []byte("Y"))

	// Deliver both inserts to a fresh replica in each order and check
	// they converge to the same string regardless of delivery order.
	order1 := New()
	order1.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []byte("ac"))
	order1.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []byte("X"))
	order1.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []byte("Y"))

	order2 := New()
	order2.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []byte("ac"))
	order2.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []byte("Y"))
	order2.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []byte("X"))

	if order1.String() != order2.String() {
		t.Fatalf("diverged: %q vs %q", order1.String(), order2.String())
	}
	if order1.Len() != 4 {
		t.Fatalf("expected 4 visible chars, got %d (%q)", order1.Len(), order1.String())
	}
}

func TestApplyDeleteTombstones(t *testing.T) {
	tx := New()
	p := ids.PeerID(1)
	tx.Apply(ids.ID{Peer: p, Counter: 0}, 0, nil, nil, []byte("hello"))
	if tx.Len() != 5 {
		t.Fatalf("expected len 5, got %d", tx.Len())
	}
	tx.ApplyDelete(ids.IdSpan{Peer: p, Start: 1, End: 3}) // delete "el"
	if got := tx.String(); got != "hlo" {
		t.Fatalf("expected 'hlo', got %q", got)
	}
	if tx.Len() != 3 {
		t.Fatalf("expected len 3, got %d", tx.Len())
	}

	// Anchors referencing the tombstoned range must still resolve: a
	// later insert anchored on the deleted 'l' (counter 2) should land
	// right after it in document order, not be rejected.
	ol := ids.ID{Peer: p, Counter: 2}
	or := ids.ID{Peer: p, Counter: 3}
	tx.Apply(ids.ID{Peer: p, Counter: 5}, 1, &ol, &or, []byte("X"))
	if got := tx.String(); got != "hXlo" {
		t.Fatalf("expected 'hXlo', got %q", got)
	}
}
