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

// Package text implements the Fugue sequence CRDT backing Text
// containers (List containers use package list, which follows the same
// placement rule): every inserted character is placed
// once, at a position determined by its origin-left/origin-right
// anchors and never moved again; deletion only flips a tombstone bit,
// so the anchors concurrent inserts reference stay valid forever.
//
// The reference implementation keeps spans run-length compressed in a
// generic B-tree with cached subtree lengths for O(log n) positional
// queries. This port keeps one fugueSpan per character in a plain
// slice instead: simpler to read and still fully correct, at the cost
// of O(n) (rather than O(log n)) inserts — an accepted trade for a
// teaching-scale document engine rather than loro's own target scale.
package text

import (
	"github.com/google/btree"

	"github.com/loro-dev/loro-go/ids"
)

// Status is a span's tombstone state.
type Status byte

const (
	Alive Status = iota
	Deleted
)

type fugueSpan struct {
	ID          ids.ID
	Lamport     ids.Lamport
	Status      Status
	OriginLeft  *ids.ID
	OriginRight *ids.ID
	Byte        byte
}

func (s *fugueSpan) idlp() ids.IdLp {
	return ids.IdLp{Lamport: s.Lamport, Peer: s.ID.Peer}
}

type idEntry struct {
	ID   ids.ID
	Span *fugueSpan
}

// Text is a Fugue-ordered sequence of bytes (UTF-8 code units of a
// Text container; crdt/list/list.go holds the value-carrying variant
// used for List containers).
type Text struct {
	spans []*fugueSpan
	index *btree.BTreeG[idEntry]
}

func New() *Text {
	return &Text{
		index: btree.NewG(32, func(a, b idEntry) bool { return a.ID.Less(b.ID) }),
	}
}

// Apply integrates a remote or local insert op: id is the first
// character's id (subsequent characters get id.Inc(1), id.Inc(2), ...)
// and lamport is the op's lamport timestamp (shared by every character
// in this run, since they all come from the same op). originLeft/
// originRight are the anchors recorded at the time of the op's
// creation and must not be recomputed from current state.
func (t *Text) Apply(id ids.ID, lamport ids.Lamport, originLeft, originRight *ids.ID, content []byte) {
	left := originLeft
	for i, b := range content {
		charID := id.Inc(int32(i))
		span := &fugueSpan{ID: charID, Lamport: lamport, Status: Alive, OriginLeft: left, OriginRight: originRight, Byte: b}
		t.integrate(span)
		cid := charID
		left = &cid
	}
}

// ApplyDelete tombstones every character in span; ids outside the
// current content (already deleted, or never inserted) are ignored.
func (t *Text) ApplyDelete(span ids.IdSpan) {
	for c := span.Start; c < span.End; c++ {
		if sp := t.find(ids.ID{Peer: span.Peer, Counter: c}); sp != nil {
			sp.Status = Deleted
		}
	}
}

// LocalInsert computes the origin anchors for inserting at visible
// position pos (0 <= pos <= t.Len()), for the caller to stamp onto a
// new op before calling Apply.
func (t *Text) LocalInsert(pos int) (originLeft, originRight *ids.ID) {
	if pos == 0 {
		for _, sp := range t.spans {
			if sp.Status == Alive {
				id := sp.ID
				return nil, &id
			}
		}
		return nil, nil
	}
	count := 0
	for i, sp := range t.spans {
		if sp.Status != Alive {
			continue
		}
		count++
		if count != pos {
			continue
		}
		left := sp.ID
		for j := i + 1; j < len(t.spans); j++ {
			if t.spans[j].Status == Alive {
				right := t.spans[j].ID
				return &left, &right
			}
		}
		return &left, nil
	}
	return nil, nil
}

// String returns the currently visible content.
func (t *Text) String() string {
	b := make([]byte, 0, len(t.spans))
	for _, sp := range t.spans {
		if sp.Status == Alive {
			b = append(b, sp.Byte)
		}
	}
	return string(b)
}

// Len returns the number of visible (non-tombstoned) characters.
func (t *Text) Len() int {
	n := 0
	for _, sp := range t.spans {
		if sp.Status == Alive {
			n++
		}
	}
	return n
}

// LiveIDsInRange returns the ids of the length visible characters
// starting at visible position pos, in visible order. Used by callers
// (docstate's edit helpers) that need to turn a position-based delete
// into one or more DeleteContent ops, each covering a contiguous run
// of one peer's counters.
func (t *Text) LiveIDsInRange(pos, length int) []ids.ID {
	if length <= 0 {
		return nil
	}
	out := make([]ids.ID, 0, length)
	count := 0
	for _, sp := range t.spans {
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
func (t *Text) Clone() *Text {
	clone := New()
	for _, sp := range t.spans {
		cp := *sp
		clone.spans = append(clone.spans, &cp)
		clone.index.ReplaceOrInsert(idEntry{ID: cp.ID, Span: &cp})
	}
	return clone
}

func (t *Text) find(id ids.ID) *fugueSpan {
	e, ok := t.index.Get(idEntry{ID: id})
	if !ok {
		return nil
	}
	return e.Span
}

func (t *Text) sliceIndexOf(span *fugueSpan) int {
	for i, s := range t.spans {
		if s == span {
			return i
		}
	}
	return -1
}

func (t *Text) insertAt(i int, span *fugueSpan) {
	t.spans = append(t.spans, nil)
	copy(t.spans[i+1:], t.spans[i:])
	t.spans[i] = span
	t.index.ReplaceOrInsert(idEntry{ID: span.ID, Span: span})
}

// integrate places newSpan among concurrent siblings using the Fugue
// rule: scan rightward from just after its origin-left anchor; a
// candidate stays to newSpan's left as long as its own origin-left is
// strictly right of newSpan's, or tied with it and its origin-right is
// strictly left of newSpan's (tied origin-right breaks by (lamport,
// peer), higher sorts right so replicas converge without
// coordination, per the op ordering every LWW container in this
// module also uses).
func (t *Text) integrate(newSpan *fugueSpan) {
	leftIdx := 0
	if newSpan.OriginLeft != nil {
		if sp := t.find(*newSpan.OriginLeft); sp != nil {
			leftIdx = t.sliceIndexOf(sp) + 1
		}
	}
	rightIdx := len(t.spans)
	if newSpan.OriginRight != nil {
		if sp := t.find(*newSpan.OriginRight); sp != nil {
			rightIdx = t.sliceIndexOf(sp)
		}
	}

	i := leftIdx
	for i < rightIdx {
		other := t.spans[i]

		oLeftIdx := 0
		if other.OriginLeft != nil {
			if sp := t.find(*other.OriginLeft); sp != nil {
				oLeftIdx = t.sliceIndexOf(sp) + 1
			}
		}
		if oLeftIdx < leftIdx {
			break
		}
		if oLeftIdx == leftIdx {
			oRightIdx := len(t.spans)
			if other.OriginRight != nil {
				if sp := t.find(*other.OriginRight); sp != nil {
					oRightIdx = t.sliceIndexOf(sp)
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
	t.insertAt(i, newSpan)
}
