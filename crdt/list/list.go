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

// Package list implements the plain List container: a Fugue-ordered
// sequence of arbitrary values, inserted once and never moved (for a
// sequence whose elements CAN move after insertion, see movablelist).
//
// This mirrors crdt/text's algorithm exactly but over boxed values
// instead of bytes, the same way the original keeps its rope tracker
// and its list tracker as separate trait implementations over a
// shared placement rule rather than one generic engine.
package list

import (
	"github.com/google/btree"

	"github.com/loro-dev/loro-go/ids"
)

type Status byte

const (
	Alive Status = iota
	Deleted
)

type valueSpan struct {
	ID          ids.ID
	Lamport     ids.Lamport
	Status      Status
	OriginLeft  *ids.ID
	OriginRight *ids.ID
	Value       any
}

func (s *valueSpan) idlp() ids.IdLp {
	return ids.IdLp{Lamport: s.Lamport, Peer: s.ID.Peer}
}

type idEntry struct {
	ID   ids.ID
	Span *valueSpan
}

// List is a Fugue-ordered sequence of values.
type List struct {
	spans []*valueSpan
	index *btree.BTreeG[idEntry]
}

func New() *List {
	return &List{
		index: btree.NewG(32, func(a, b idEntry) bool { return a.ID.Less(b.ID) }),
	}
}

// Apply integrates a remote or local insert op: id is the first
// element's id (subsequent elements get id.Inc(1), id.Inc(2), ...) and
// lamport is the op's lamport timestamp, shared by every element in
// this run.
func (l *List) Apply(id ids.ID, lamport ids.Lamport, originLeft, originRight *ids.ID, values []any) {
	left := originLeft
	for i, v := range values {
		elemID := id.Inc(int32(i))
		span := &valueSpan{ID: elemID, Lamport: lamport, Status: Alive, OriginLeft: left, OriginRight: originRight, Value: v}
		l.integrate(span)
		cid := elemID
		left = &cid
	}
}

// ApplyDelete tombstones every element in span.
func (l *List) ApplyDelete(span ids.IdSpan) {
	for c := span.Start; c < span.End; c++ {
		if sp := l.find(ids.ID{Peer: span.Peer, Counter: c}); sp != nil {
			sp.Status = Deleted
		}
	}
}

// LocalInsert computes the origin anchors for inserting at visible
// position pos.
func (l *List) LocalInsert(pos int) (originLeft, originRight *ids.ID) {
	if pos == 0 {
		for _, sp := range l.spans {
			if sp.Status == Alive {
				id := sp.ID
				return nil, &id
			}
		}
		return nil, nil
	}
	count := 0
	for i, sp := range l.spans {
		if sp.Status != Alive {
			continue
		}
		count++
		if count != pos {
			continue
		}
		left := sp.ID
		for j := i + 1; j < len(l.spans); j++ {
			if l.spans[j].Status == Alive {
				right := l.spans[j].ID
				return &left, &right
			}
		}
		return &left, nil
	}
	return nil, nil
}

// Values returns the currently visible elements in document order.
func (l *List) Values() []any {
	out := make([]any, 0, len(l.spans))
	for _, sp := range l.spans {
		if sp.Status == Alive {
			out = append(out, sp.Value)
		}
	}
	return out
}

// Len returns the number of visible (non-tombstoned) elements.
func (l *List) Len() int {
	n := 0
	for _, sp := range l.spans {
		if sp.Status == Alive {
			n++
		}
	}
	return n
}

// LiveIDsInRange returns the ids of the length visible elements
// starting at visible position pos, in visible order. Used by callers
// that need to turn a position-based delete into one or more
// DeleteContent ops, each covering a contiguous run of one peer's
// counters.
func (l *List) LiveIDsInRange(pos, length int) []ids.ID {
	if length <= 0 {
		return nil
	}
	out := make([]ids.ID, 0, length)
	count := 0
	for _, sp := range l.spans {
		if sp.Status != Alive {
			continue
		}
		if count >= pos && count < pos+length {
			out = append(out, sp.ID)
		}
		count++
		if count >= pos+length {
			break
		}
	}
	return out
}

// Clone returns a deep copy, used by docstate to checkpoint a
// container before a transaction so it can be restored on abort.
func (l *List) Clone() *List {
	clone := New()
	for _, sp := range l.spans {
		cp := *sp
		clone.spans = append(clone.spans, &cp)
		clone.index.ReplaceOrInsert(idEntry{ID: cp.ID, Span: &cp})
	}
	return clone
}

func (l *List) find(id ids.ID) *valueSpan {
	e, ok := l.index.Get(idEntry{ID: id})
	if !ok {
		return nil
	}
	return e.Span
}

func (l *List) sliceIndexOf(span *valueSpan) int {
	for i, s := range l.spans {
		if s == span {
			return i
		}
	}
	return -1
}

func (l *List) insertAt(i int, span *valueSpan) {
	l.spans = append(l.spans, nil)
	copy(l.spans[i+1:], l.spans[i:])
	l.spans[i] = span
	l.index.ReplaceOrInsert(idEntry{ID: span.ID, Span: span})
}

// integrate is crdt/text.Text.integrate's placement rule (tie-break by
// (lamport, peer), not id), specialized to valueSpan; see that file's
// doc comment for the scan invariant.
func (l *List) integrate(newSpan *valueSpan) {
	leftIdx := 0
	if newSpan.OriginLeft != nil {
		if sp := l.find(*newSpan.OriginLeft); sp != nil {
			leftIdx = l.sliceIndexOf(sp) + 1
		}
	}
	rightIdx := len(l.spans)
	if newSpan.OriginRight != nil {
		if sp := l.find(*newSpan.OriginRight); sp != nil {
			rightIdx = l.sliceIndexOf(sp)
		}
	}

	i := leftIdx
	for i < rightIdx {
		other := l.spans[i]

		oLeftIdx := 0
		if other.OriginLeft != nil {
			if sp := l.find(*other.OriginLeft); sp != nil {
				oLeftIdx = l.sliceIndexOf(sp) + 1
			}
		}
		if oLeftIdx < leftIdx {
			break
		}
		if oLeftIdx == leftIdx {
			oRightIdx := len(l.spans)
			if other.OriginRight != nil {
				if sp := l.find(*other.OriginRight); sp != nil {
					oRightIdx = l.sliceIndexOf(sp)
				}
			}
			if oRightIdx > rightIdx {
				break
			}
			if oRightIdx == rightIdx {
				if newSpan.idlp().Greater(other.idlp()) {
					i++
					continue
				}
				break
			}
		}
		i++
	}
	l.insertAt(i, newSpan)
}
