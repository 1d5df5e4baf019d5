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

// Package movablelist implements the MovableList container: every
// element keeps the immutable id it was created with, plus a
// FractionalIndex position and a value, both independently
// repositionable after insertion via Move/Set ops resolved by
// (lamport, peer) LWW — unlike the plain List (package list), an
// element's id no longer determines its document order once a Move
// has touched it.
package movablelist

import (
	"sort"

	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
)

type element struct {
	id       ids.ID
	value    any
	pos      fractional.FractionalIndex
	lastSet  ids.IdLp
	lastMove ids.IdLp
	deleted  bool
}

// MovableList is the materialized state of a MovableList container.
type MovableList struct {
	elems map[ids.ID]*element
}

func New() *MovableList {
	return &MovableList{elems: make(map[ids.ID]*element)}
}

// Insert creates a new element at id with the given initial value and
// position (the caller derives pos from its neighbors the same way
// tree sibling positions are derived, e.g. fractional.NewBetween).
func (l *MovableList) Insert(id ids.ID, value any, pos fractional.FractionalIndex, idlp ids.IdLp) {
	l.elems[id] = &element{id: id, value: value, pos: pos, lastSet: idlp, lastMove: idlp}
}

// Move repositions an existing element. Loses the race against a
// concurrent move with a (lamport, peer) that dominates idlp; a move
// of an already-deleted element still records the new position (it
// takes effect only if the element is later restored — the spec
// requires it be "preserved for later checkouts" rather than dropped).
func (l *MovableList) Move(target ids.ID, pos fractional.FractionalIndex, idlp ids.IdLp) {
	e, ok := l.elems[target]
	if !ok || !idlp.Greater(e.lastMove) {
		return
	}
	e.pos = pos
	e.lastMove = idlp
}

// Set replaces an element's value, governed by its own independent
// LWW race (concurrent Set and Move to the same element don't
// conflict with each other).
func (l *MovableList) Set(target ids.ID, value any, idlp ids.IdLp) {
	e, ok := l.elems[target]
	if !ok || !idlp.Greater(e.lastSet) {
		return
	}
	e.value = value
	e.lastSet = idlp
}

// Delete tombstones target; it is dropped from Values/Len but its
// position and value are retained so a later concurrent Move or Set
// targeting it still has somewhere to land.
func (l *MovableList) Delete(target ids.ID) {
	if e, ok := l.elems[target]; ok {
		e.deleted = true
	}
}

// Values returns the currently visible elements ordered by position
// (ties broken by the creating peer).
func (l *MovableList) Values() []any {
	ordered := l.liveOrdered()
	out := make([]any, len(ordered))
	for i, e := range ordered {
		out[i] = e.value
	}
	return out
}

// Len returns the number of visible (non-tombstoned) elements.
func (l *MovableList) Len() int {
	n := 0
	for _, e := range l.elems {
		if !e.deleted {
			n++
		}
	}
	return n
}

// PositionOf returns an element's current fractional position, for
// computing a neighbor position when inserting or moving relative to
// it.
func (l *MovableList) PositionOf(target ids.ID) (fractional.FractionalIndex, bool) {
	e, ok := l.elems[target]
	if !ok {
		return nil, false
	}
	return e.pos, true
}

// LiveIDAt returns the id of the visible element at index (in the same
// order Values() returns), and whether index is in range.
func (l *MovableList) LiveIDAt(index int) (ids.ID, bool) {
	ordered := l.liveOrdered()
	if index < 0 || index >= len(ordered) {
		return ids.ID{}, false
	}
	return ordered[index].id, true
}

// Clone returns a deep copy, used by docstate to checkpoint a
// container before a transaction so it can be restored on abort.
func (l *MovableList) Clone() *MovableList {
	clone := New()
	for id, e := range l.elems {
		cp := *e
		clone.elems[id] = &cp
	}
	return clone
}

func (l *MovableList) liveOrdered() []*element {
	out := make([]*element, 0, len(l.elems))
	for _, e := range l.elems {
		if !e.deleted {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].pos.Compare(out[j].pos); c != 0 {
			return c < 0
		}
		return out[i].id.Peer < out[j].id.Peer
	})
	return out
}
