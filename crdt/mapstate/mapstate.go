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

// Package mapstate implements the LWW Map container: one register per
// key, the winning value decided purely by (lamport, peer) regardless
// of arrival order, so concurrent replicas converge without needing
// to see ops in any particular sequence.
package mapstate

import "github.com/loro-dev/loro-go/ids"

// slot is a key's LWW register. A tombstoned key (deleted) is kept as
// a slot with deleted=true rather than removed outright, so a late,
// causally-older Set arriving after a newer Delete is correctly
// shadowed by idlp comparison instead of resurrecting the value.
type slot struct {
	value   any
	idlp    ids.IdLp
	deleted bool
}

// Map is the LWW register set backing a Map container.
type Map struct {
	slots map[string]slot
}

func New() *Map {
	return &Map{slots: make(map[string]slot)}
}

// Set applies a Set op for key, keeping the incoming write only if
// idlp wins over whatever is currently in the slot (or the slot is
// unset). delete=true records a tombstone (spec's value==None).
func (m *Map) Set(key string, value any, delete bool, idlp ids.IdLp) {
	cur, ok := m.slots[key]
	if ok && !idlp.Greater(cur.idlp) {
		return
	}
	m.slots[key] = slot{value: value, idlp: idlp, deleted: delete}
}

// Get returns the materialized value for key and whether it is
// currently present (false for an absent or tombstoned key).
func (m *Map) Get(key string) (any, bool) {
	s, ok := m.slots[key]
	if !ok || s.deleted {
		return nil, false
	}
	return s.value, true
}

// Keys returns the currently present (non-tombstoned) keys, order
// unspecified.
func (m *Map) Keys() []string {
	out := make([]string, 0, len(m.slots))
	for k, s := range m.slots {
		if !s.deleted {
			out = append(out, k)
		}
	}
	return out
}

// Entries materializes the present key/value pairs.
func (m *Map) Entries() map[string]any {
	out := make(map[string]any, len(m.slots))
	for k, s := range m.slots {
		if !s.deleted {
			out[k] = s.value
		}
	}
	return out
}

// Clone returns a deep copy, used by docstate to checkpoint a
// container before a transaction so it can be restored on abort.
func (m *Map) Clone() *Map {
	clone := New()
	for k, s := range m.slots {
		clone.slots[k] = s
	}
	return clone
}

// IdLpOf returns the idlp currently recorded for key, for diff
// calculation (comparing the winning (lamport, peer) at two versions).
func (m *Map) IdLpOf(key string) (ids.IdLp, bool) {
	s, ok := m.slots[key]
	if !ok {
		return ids.IdLp{}, false
	}
	return s.idlp, true
}
