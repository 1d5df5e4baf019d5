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

// events.go turns each Commit/Import/Checkout into a single subscriber
// fan-out, carrying a per-container diff (package diff) rather than the
// raw ops: subscribers see what changed, not how it was encoded.
//
// Fan-out is synchronous and runs after the state change is already
// complete, so every callback observes a consistent snapshot. A
// subscriber is never invoked from inside a call to Subscribe/Unsubscribe
// made by another subscriber's callback: such calls are queued and
// applied once the current fan-out finishes, so the subscriber list
// never mutates mid-iteration.
package docstate

import (
	"github.com/loro-dev/loro-go/crdt/counter"
	"github.com/loro-dev/loro-go/crdt/list"
	"github.com/loro-dev/loro-go/crdt/mapstate"
	"github.com/loro-dev/loro-go/crdt/movablelist"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/diff"
	"github.com/loro-dev/loro-go/ids"
)

// Subscription is a callback registered with Subscribe/SubscribeRoot. It
// must not block: it runs synchronously inside the commit/import/checkout
// call that produced the event, after the state change is complete and
// before that call returns.
type Subscription func(Event)

// Event is one fan-out: every container diff produced by a single
// Commit, Import call or Checkout.
type Event struct {
	Frontiers    ids.Frontiers
	FromCheckout bool
	// Local is true for an Event raised by this peer's own Commit, false
	// for one raised by Import or Checkout. Package undo uses this to
	// tell its own edits apart from remote ones arriving while an undo
	// item sits on the stack.
	Local bool
	// Msg is the committing Change's message, empty for Import/Checkout
	// events.
	Msg   string
	Diffs []ContainerDiff
}

// ContainerDiff is one container's change within an Event. Exactly the
// field matching Kind is populated; the rest are zero values. Before
// and After carry the raw pre- and post-change container state (nil,
// *text.Text, *list.List, ... matching Kind) for callers that need more
// than the shaped diff affords, e.g. package undo, which can't recover
// a deleted map value from a diff.MapEntry alone. After is a defensive
// clone, safe to hold onto after the container keeps mutating.
type ContainerDiff struct {
	Container    ids.ContainerID
	Kind         ids.ContainerType
	Text         []diff.TextOp
	List         []diff.ListOp
	Map          []diff.MapEntry
	Tree         []diff.TreeAction
	CounterDelta float64
	Before       any
	After        any
}

// IsEmpty reports a diff with nothing a subscriber would want to see,
// e.g. a container re-derived to the same value it already had.
func (d ContainerDiff) IsEmpty() bool {
	return len(d.Text) == 0 && len(d.List) == 0 && len(d.Map) == 0 && len(d.Tree) == 0 && d.CounterDelta == 0
}

type subEntry struct {
	id uint64
	fn Subscription
}

// Subscribe registers fn for events whose diff touches cid. There is no
// notion of container nesting below the DocState layer (a Map or List
// holding a container-id value just stores that id as an opaque value),
// so "descendant" fan-out per container hierarchy is not modeled here;
// a subscriber only sees events that directly touch cid. Returns an id
// usable with Unsubscribe.
func (ds *DocState) Subscribe(cid ids.ContainerID, fn Subscription) uint64 {
	return ds.subscribeLocked(func(id uint64) {
		ds.containerSubs[cid] = append(ds.containerSubs[cid], subEntry{id, fn})
	})
}

// SubscribeRoot registers fn for every event, regardless of which
// container its diff touches.
func (ds *DocState) SubscribeRoot(fn Subscription) uint64 {
	return ds.subscribeLocked(func(id uint64) {
		ds.rootSubs = append(ds.rootSubs, subEntry{id, fn})
	})
}

func (ds *DocState) subscribeLocked(register func(id uint64)) uint64 {
	ds.subsMu.Lock()
	defer ds.subsMu.Unlock()
	ds.nextSubID++
	id := ds.nextSubID
	if ds.dispatching {
		ds.deferredSubs = append(ds.deferredSubs, func() { register(id) })
		return id
	}
	register(id)
	return id
}

// Unsubscribe removes a subscription by the id Subscribe/SubscribeRoot
// returned. A no-op if id is unknown (already removed, or never valid).
func (ds *DocState) Unsubscribe(id uint64) {
	ds.subsMu.Lock()
	defer ds.subsMu.Unlock()
	remove := func() {
		for cid, entries := range ds.containerSubs {
			ds.containerSubs[cid] = removeSub(entries, id)
		}
		ds.rootSubs = removeSub(ds.rootSubs, id)
	}
	if ds.dispatching {
		ds.deferredSubs = append(ds.deferredSubs, remove)
		return
	}
	remove()
}

func removeSub(entries []subEntry, id uint64) []subEntry {
	out := entries[:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// fanOut diffs every container in touched against its pre-change
// snapshot in before (nil entries are treated as an empty/never-created
// container) and, if anything actually changed, dispatches one Event.
func (ds *DocState) fanOut(before map[ids.ContainerID]any, touched []ids.ContainerID, fromCheckout, local bool, msg string) {
	ds.mu.Lock()
	var diffs []ContainerDiff
	for _, cid := range touched {
		cd := diffContainer(cid, before[cid], ds.containers[cid])
		if !cd.IsEmpty() {
			diffs = append(diffs, cd)
		}
	}
	frontiers := ds.frontiers.Clone()
	ds.mu.Unlock()

	if len(diffs) == 0 {
		return
	}
	ds.dispatch(Event{Frontiers: frontiers, FromCheckout: fromCheckout, Local: local, Msg: msg, Diffs: diffs})
}

func (ds *DocState) dispatch(event Event) {
	touched := map[ids.ContainerID]bool{}
	for _, d := range event.Diffs {
		touched[d.Container] = true
	}

	ds.subsMu.Lock()
	ds.dispatching = true
	var callbacks []Subscription
	for cid := range touched {
		for _, e := range ds.containerSubs[cid] {
			callbacks = append(callbacks, e.fn)
		}
	}
	for _, e := range ds.rootSubs {
		callbacks = append(callbacks, e.fn)
	}
	ds.subsMu.Unlock()

	for _, fn := range callbacks {
		fn(event)
	}

	ds.subsMu.Lock()
	ds.dispatching = false
	deferred := ds.deferredSubs
	ds.deferredSubs = nil
	ds.subsMu.Unlock()
	for _, op := range deferred {
		op()
	}
}

// diffContainer builds the ContainerDiff for one container given its
// pre-change (before) and current (after) materialized state. before
// may be nil, meaning the container didn't exist (or wasn't touched)
// before this change.
func diffContainer(cid ids.ContainerID, before, after any) ContainerDiff {
	cd := ContainerDiff{Container: cid, Before: before, After: cloneContainer(after)}
	switch a := after.(type) {
	case *text.Text:
		cd.Kind = ids.ContainerText
		var old string
		if b, ok := before.(*text.Text); ok && b != nil {
			old = b.String()
		}
		cd.Text = diff.Text(old, a.String())
	case *list.List:
		cd.Kind = ids.ContainerList
		var old []any
		if b, ok := before.(*list.List); ok && b != nil {
			old = b.Values()
		}
		cd.List = diff.List(old, a.Values())
	case *movablelist.MovableList:
		cd.Kind = ids.ContainerMovableList
		var old []any
		if b, ok := before.(*movablelist.MovableList); ok && b != nil {
			old = b.Values()
		}
		cd.List = diff.List(old, a.Values())
	case *mapstate.Map:
		cd.Kind = ids.ContainerMap
		var old map[string]any
		if b, ok := before.(*mapstate.Map); ok && b != nil {
			old = b.Entries()
		}
		cd.Map = diff.Map(old, a.Entries())
	case *tree.Tree:
		cd.Kind = ids.ContainerTree
		oldTree := tree.New()
		if b, ok := before.(*tree.Tree); ok && b != nil {
			oldTree = b
		}
		cd.Tree = diff.Tree(oldTree, a)
	case *counter.Counter:
		cd.Kind = ids.ContainerCounter
		var old float64
		if b, ok := before.(*counter.Counter); ok && b != nil {
			old = b.Value()
		}
		cd.CounterDelta = diff.Counter(old, a.Value())
	}
	return cd
}
