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

package diff

import (
	"sort"

	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
)

// TreeActionKind tags one entry of a Tree diff.
type TreeActionKind byte

const (
	TreeCreate TreeActionKind = iota
	TreeMove
	TreeDelete
	TreeRestore
)

// TreeAction is one node's change between two Tree snapshots.
type TreeAction struct {
	Kind     TreeActionKind
	Target   ids.ID
	Parent   *ids.ID // Create, Move, Restore
	Position fractional.FractionalIndex
}

// Tree compares two Tree snapshots and returns the actions turning old
// into new, ordered so a parent's action always precedes its
// children's (required so a caller replaying the script never sees a
// Move/Create targeting a not-yet-placed parent).
func Tree(old, new *tree.Tree) []TreeAction {
	seen := map[ids.ID]bool{}
	var actions []TreeAction

	for _, id := range new.Nodes() {
		seen[id] = true
		newDeleted := new.IsDeleted(id)
		newParent, _ := new.Parent(id)
		newPos, _ := new.Position(id)

		oldParent, existedInOld := old.Parent(id)
		oldDeleted := old.IsDeleted(id)

		switch {
		case !existedInOld:
			if !newDeleted {
				actions = append(actions, TreeAction{Kind: TreeCreate, Target: id, Parent: newParent, Position: newPos})
			}
		case oldDeleted && !newDeleted:
			actions = append(actions, TreeAction{Kind: TreeRestore, Target: id, Parent: newParent, Position: newPos})
		case !oldDeleted && newDeleted:
			actions = append(actions, TreeAction{Kind: TreeDelete, Target: id})
		case !oldDeleted && !newDeleted:
			if !idPtrEqual(oldParent, newParent) || oldPositionChanged(old, new, id) {
				actions = append(actions, TreeAction{Kind: TreeMove, Target: id, Parent: newParent, Position: newPos})
			}
		}
	}

	depth := make(map[ids.ID]int, len(actions))
	for _, a := range actions {
		depth[a.Target] = depthOf(new, a.Target)
	}
	sort.SliceStable(actions, func(i, j int) bool { return depth[actions[i].Target] < depth[actions[j].Target] })
	return actions
}

func depthOf(t *tree.Tree, id ids.ID) int {
	depth := 0
	cur := id
	visited := map[ids.ID]bool{}
	for {
		if visited[cur] {
			return depth
		}
		visited[cur] = true
		parent, ok := t.Parent(cur)
		if !ok || parent == nil {
			return depth
		}
		cur = *parent
		depth++
	}
}

func idPtrEqual(a, b *ids.ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func oldPositionChanged(old, new *tree.Tree, id ids.ID) bool {
	op, _ := old.Position(id)
	np, _ := new.Position(id)
	return op.Compare(np) != 0
}
