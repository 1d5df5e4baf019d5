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

// Package tree implements the movable Tree container: nodes keyed by
// their immutable creation id, each carrying a parent pointer and a
// FractionalIndex sibling position, both mutable via Move. Concurrent
// moves of the same target resolve by (lamport, peer); a move that
// would create a cycle is rejected at the local materialized view but
// never erased from history, so other replicas applying the same ops
// in a different order still converge.
package tree

import (
	"sort"

	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
)

// TrashRoot is the synthetic parent every deleted subtree is
// reparented under: keeping deleted nodes addressable (rather than
// erased) lets a late remote op that still references one of them
// apply without producing a dangling reference.
var TrashRoot = ids.ID{Peer: 0, Counter: -1}

type node struct {
	id       ids.ID
	parent   *ids.ID
	position fractional.FractionalIndex
	lastMove ids.IdLp
	deleted  bool
}

// Tree is the materialized state of a movable Tree container.
type Tree struct {
	nodes map[ids.ID]*node
}

func New() *Tree {
	return &Tree{nodes: make(map[ids.ID]*node)}
}

// Move applies a Move{target, parent, position} op. parent == nil
// means "reparent to the document root". Moves that lose the
// (lamport, peer) race against a node's current lastMove are dropped;
// moves that would create a cycle (parent is a descendant of target
// in the current state) are rejected locally but the caller should
// still record the op in the OpLog — Move never reports which
// happened, since both are a normal, convergent outcome.
func (t *Tree) Move(target ids.ID, parent *ids.ID, position fractional.FractionalIndex, idlp ids.IdLp) {
	n, ok := t.nodes[target]
	if !ok {
		n = &node{id: target}
		t.nodes[target] = n
	} else if !idlp.Greater(n.lastMove) {
		return
	}
	if parent != nil && t.isDescendant(*parent, target) {
		return
	}
	n.parent = parent
	n.position = position
	n.lastMove = idlp
	n.deleted = false
}

// Delete reparents target (and, implicitly, its whole subtree, since
// child lookups follow the live parent pointer) under TrashRoot. A
// delete that loses the (lamport, peer) race against target's last
// move leaves target where it is, not deleted.
func (t *Tree) Delete(target ids.ID, idlp ids.IdLp) {
	trash := TrashRoot
	t.Move(target, &trash, fractional.Default(0), idlp)
	if n, ok := t.nodes[target]; ok && n.parent != nil && *n.parent == TrashRoot {
		n.deleted = true
	}
}

// EmptyTrash permanently forgets the listed nodes; they must already
// be parented under TrashRoot (callers apply a TreeDelete first).
func (t *Tree) EmptyTrash(targets []ids.ID) {
	for _, id := range targets {
		delete(t.nodes, id)
	}
}

// Clone returns a deep copy, used by docstate to checkpoint a
// container before a transaction so it can be restored on abort.
func (t *Tree) Clone() *Tree {
	clone := New()
	for id, n := range t.nodes {
		cp := *n
		clone.nodes[id] = &cp
	}
	return clone
}

// isDescendant reports whether candidate is target or a descendant of
// target in the current (possibly cyclic-if-unchecked) parent graph.
// Walks toward the root with a visited set so a pre-existing cycle
// (which should never happen, but a buggy or adversarial remote
// change could construct one before this check runs) can't loop
// forever.
func (t *Tree) isDescendant(candidate, target ids.ID) bool {
	visited := map[ids.ID]bool{}
	cur := candidate
	for {
		if cur == target {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		n, ok := t.nodes[cur]
		if !ok || n.parent == nil {
			return false
		}
		cur = *n.parent
	}
}

// Children returns parent's live (non-deleted) children ordered by
// FractionalIndex, ties broken by peer. parent == nil lists
// document-root children.
func (t *Tree) Children(parent *ids.ID) []ids.ID {
	var out []ids.ID
	for id, n := range t.nodes {
		if n.deleted {
			continue
		}
		if (n.parent == nil) != (parent == nil) {
			continue
		}
		if n.parent != nil && parent != nil && *n.parent != *parent {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := t.nodes[out[i]], t.nodes[out[j]]
		if c := ni.position.Compare(nj.position); c != 0 {
			return c < 0
		}
		return ni.id.Peer < nj.id.Peer
	})
	return out
}

// Parent returns target's current parent (nil at document root), and
// whether target is known at all.
func (t *Tree) Parent(target ids.ID) (*ids.ID, bool) {
	n, ok := t.nodes[target]
	if !ok {
		return nil, false
	}
	return n.parent, true
}

// IsDeleted reports whether target currently lives under TrashRoot.
func (t *Tree) IsDeleted(target ids.ID) bool {
	n, ok := t.nodes[target]
	return ok && n.deleted
}

// Position returns target's current sibling position, and whether
// target is known at all.
func (t *Tree) Position(target ids.ID) (fractional.FractionalIndex, bool) {
	n, ok := t.nodes[target]
	if !ok {
		return nil, false
	}
	return n.position, true
}

// Nodes returns every node id this Tree has ever seen, live or
// trashed, in no particular order; used by the diff calculator to
// enumerate candidates for comparison against another version.
func (t *Tree) Nodes() []ids.ID {
	out := make([]ids.ID, 0, len(t.nodes))
	for id := range t.nodes {
		out = append(out, id)
	}
	return out
}
