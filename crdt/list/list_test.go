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

package list

import (
	"reflect"
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestListLocalInsertAndDelete(t *testing.T) {
	l := New()
	p := ids.PeerID(1)

	ol, or := l.LocalInsert(0)
	l.Apply(ids.ID{Peer: p, Counter: 0}, 0, ol, or, []any{int64(1), int64(3)})

	ol, or = l.LocalInsert(1)
	l.Apply(ids.ID{Peer: p, Counter: 2}, 1, ol, or, []any{int64(2)})

	if got := l.Values(); !reflect.DeepEqual(got, []any{int64(1), int64(2), int64(3)}) {
		t.Fatalf("expected [1 2 3], got %v", got)
	}

	l.ApplyDelete(ids.IdSpan{Peer: p, Start: 2, End: 3})
	if got := l.Values(); !reflect.DeepEqual(got, []any{int64(1), int64(3)}) {
		t.Fatalf("expected [1 3] after delete, got %v", got)
	}
	if l.Len() != 2 {
		t.Fatalf("expected len 2, got %d", l.Len())
	}
}

func TestListConcurrentInsertConverges(t *testing.T) {
	p1, p2 := ids.PeerID(1), ids.PeerID(2)

	const concurrentLamport = ids.Lamport(1)

	replicaA := New()
	replicaA.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []any{"a", "c"})
	olA, orA := replicaA.LocalInsert(1)
	replicaA.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []any{"X"})

	replicaB := New()
	replicaB.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []any{"a", "c"})
	olB, orB := replicaB.LocalInsert(1)
	replicaB.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []any{"Y"})

	order1 := New()
	order1.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []any{"a", "c"})
	order1.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []any{"X"})
	order1.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []any{"Y"})

	order2 := New()
	order2.Apply(ids.ID{Peer: p1, Counter: 0}, 0, nil, nil, []any{"a", "c"})
	order2.Apply(ids.ID{Peer: p2, Counter: 0}, concurrentLamport, olB, orB, []any{"Y"})
	order2.Apply(ids.ID{Peer: p1, Counter: 2}, concurrentLamport, olA, orA, []any{"X"})

	if !reflect.DeepEqual(order1.Values(), order2.Values()) {
		t.Fatalf("diverged: %v vs %v", order1.Values(), order2.Values())
	}
}
