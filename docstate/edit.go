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

// edit.go adds position-based convenience methods on top of
// ApplyLocalOp: inserting/deleting by visible position needs per-
// container anchor bookkeeping (origin-left/right for Text/List, a
// fractional position for MovableList) that's fiddly enough to want one
// implementation instead of every caller re-deriving it. Used by
// package undo and by the loro façade's container handles.
package docstate

import (
	"github.com/loro-dev/loro-go/crdt/list"
	"github.com/loro-dev/loro-go/crdt/movablelist"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/oplog"
)

// InsertText stages inserting s at visible position pos of a Text
// container. Must be called between StartTxn and Commit/Abort.
func (ds *DocState) InsertText(cid ids.ContainerID, pos int, s string) ids.ID {
	ds.mu.Lock()
	t, ok := ds.getOrCreate(cid).(*text.Text)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: InsertText on a non-text container")
	}
	originLeft, originRight := t.LocalInsert(pos)
	ds.mu.Unlock()
	return ds.ApplyLocalOp(cid, oplog.InsertContent{OriginLeft: originLeft, OriginRight: originRight, Items: []byte(s)})
}

// DeleteText stages deleting the length visible characters starting at
// pos, as one DeleteContent op per contiguous run of ids so a deleted
// range spanning several origins still round-trips correctly.
func (ds *DocState) DeleteText(cid ids.ContainerID, pos, length int) {
	ds.mu.Lock()
	t, ok := ds.getOrCreate(cid).(*text.Text)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: DeleteText on a non-text container")
	}
	targets := t.LiveIDsInRange(pos, length)
	ds.mu.Unlock()
	deleteByID(ds, cid, targets)
}

// InsertListValues stages inserting values at visible position pos of a
// List container.
func (ds *DocState) InsertListValues(cid ids.ContainerID, pos int, values []any) ids.ID {
	ds.mu.Lock()
	l, ok := ds.getOrCreate(cid).(*list.List)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: InsertListValues on a non-list container")
	}
	originLeft, originRight := l.LocalInsert(pos)
	ds.mu.Unlock()
	return ds.ApplyLocalOp(cid, oplog.InsertContent{OriginLeft: originLeft, OriginRight: originRight, ValueItems: values})
}

// DeleteListRange stages deleting the length visible elements starting
// at pos of a List container.
func (ds *DocState) DeleteListRange(cid ids.ContainerID, pos, length int) {
	ds.mu.Lock()
	l, ok := ds.getOrCreate(cid).(*list.List)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: DeleteListRange on a non-list container")
	}
	targets := l.LiveIDsInRange(pos, length)
	ds.mu.Unlock()
	deleteByID(ds, cid, targets)
}

// InsertMovableListValue stages inserting one value at visible position
// pos of a MovableList container, deriving a fractional position
// between its neighbors the same way a Move would.
func (ds *DocState) InsertMovableListValue(cid ids.ContainerID, pos int, value any) ids.ID {
	ds.mu.Lock()
	ml, ok := ds.getOrCreate(cid).(*movablelist.MovableList)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: InsertMovableListValue on a non-movablelist container")
	}
	var lower, upper *fractional.FractionalIndex
	if id, ok := ml.LiveIDAt(pos - 1); ok {
		if p, ok2 := ml.PositionOf(id); ok2 {
			lower = &p
		}
	}
	if id, ok := ml.LiveIDAt(pos); ok {
		if p, ok2 := ml.PositionOf(id); ok2 {
			upper = &p
		}
	}
	ds.mu.Unlock()
	position, _ := fractional.New(lower, upper, 0)
	return ds.ApplyLocalOp(cid, oplog.InsertContent{ValueItems: []any{value}, Position: []byte(position)})
}

// MoveMovableListElement stages moving the element currently at visible
// position from to visible position to (both relative to the view
// before the move), deriving a fractional position between its new
// neighbors the same way InsertMovableListValue does.
func (ds *DocState) MoveMovableListElement(cid ids.ContainerID, from, to int) ids.ID {
	ds.mu.Lock()
	ml, ok := ds.getOrCreate(cid).(*movablelist.MovableList)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: MoveMovableListElement on a non-movablelist container")
	}
	elemID, _ := ml.LiveIDAt(from)
	live := make([]ids.ID, 0, ml.Len())
	for i := 0; i < ml.Len(); i++ {
		if id, ok := ml.LiveIDAt(i); ok && id != elemID {
			live = append(live, id)
		}
	}
	var lower, upper *fractional.FractionalIndex
	if to > 0 && to-1 < len(live) {
		if p, ok2 := ml.PositionOf(live[to-1]); ok2 {
			lower = &p
		}
	}
	if to < len(live) {
		if p, ok2 := ml.PositionOf(live[to]); ok2 {
			upper = &p
		}
	}
	ds.mu.Unlock()
	position, _ := fractional.New(lower, upper, 0)
	return ds.ApplyLocalOp(cid, oplog.ListMoveContent{Elem: elemID, Position: []byte(position)})
}

// DeleteMovableListRange stages deleting the length visible elements
// starting at pos of a MovableList container.
func (ds *DocState) DeleteMovableListRange(cid ids.ContainerID, pos, length int) {
	ds.mu.Lock()
	ml, ok := ds.getOrCreate(cid).(*movablelist.MovableList)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: DeleteMovableListRange on a non-movablelist container")
	}
	targets := make([]ids.ID, 0, length)
	for i := 0; i < length; i++ {
		if id, ok := ml.LiveIDAt(pos + i); ok {
			targets = append(targets, id)
		}
	}
	ds.mu.Unlock()
	for _, id := range targets {
		ds.ApplyLocalOp(cid, oplog.DeleteContent{Span: ids.IdSpan{Peer: id.Peer, Start: id.Counter, End: id.Counter + 1}})
	}
}

// SetMapValue stages setting key to value on a Map container.
func (ds *DocState) SetMapValue(cid ids.ContainerID, key string, value any) ids.ID {
	return ds.ApplyLocalOp(cid, oplog.MapSetContent{Key: key, Value: value})
}

// DeleteMapKey stages tombstoning key on a Map container.
func (ds *DocState) DeleteMapKey(cid ids.ContainerID, key string) ids.ID {
	return ds.ApplyLocalOp(cid, oplog.MapSetContent{Key: key, Delete: true})
}

// AddCounter stages adding delta to a Counter container.
func (ds *DocState) AddCounter(cid ids.ContainerID, delta float64) ids.ID {
	return ds.ApplyLocalOp(cid, oplog.CounterAddContent{Delta: delta})
}

// MoveTreeNode stages (re)parenting target to parent at position; also
// how a new Tree node is created (a Move whose target was never seen
// before).
func (ds *DocState) MoveTreeNode(cid ids.ContainerID, target ids.ID, parent *ids.ID, position fractional.FractionalIndex) ids.ID {
	return ds.ApplyLocalOp(cid, oplog.TreeMoveContent{Target: target, Parent: parent, Position: []byte(position)})
}

// DeleteTreeNode stages moving target to the Tree's trash.
func (ds *DocState) DeleteTreeNode(cid ids.ContainerID, target ids.ID) ids.ID {
	return ds.ApplyLocalOp(cid, oplog.TreeDeleteContent{Target: target})
}

// CreateTreeNode stages creating a new Tree node as the last child of
// parent (nil for a new root), returning its id. The new id is picked
// with PeekNextID and used as both the op's own id and the Move's
// never-before-seen Target, per crdt/tree's create-via-Move design.
func (ds *DocState) CreateTreeNode(cid ids.ContainerID, parent *ids.ID) ids.ID {
	ds.mu.Lock()
	t, ok := ds.getOrCreate(cid).(*tree.Tree)
	if !ok {
		ds.mu.Unlock()
		panic("docstate: CreateTreeNode on a non-tree container")
	}
	siblings := t.Children(parent)
	var lower *fractional.FractionalIndex
	if n := len(siblings); n > 0 {
		if p, ok2 := t.Position(siblings[n-1]); ok2 {
			lower = &p
		}
	}
	ds.mu.Unlock()
	position, _ := fractional.New(lower, nil, 0)
	target := ds.PeekNextID()
	return ds.ApplyLocalOp(cid, oplog.TreeMoveContent{Target: target, Parent: parent, Position: []byte(position)})
}

func deleteByID(ds *DocState, cid ids.ContainerID, targets []ids.ID) {
	for i := 0; i < len(targets); {
		span := ids.IdSpan{Peer: targets[i].Peer, Start: targets[i].Counter, End: targets[i].Counter + 1}
		i++
		for i < len(targets) && targets[i].Peer == span.Peer && targets[i].Counter == span.End {
			span.End++
			i++
		}
		ds.ApplyLocalOp(cid, oplog.DeleteContent{Span: span})
	}
}
