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

// Package docstate holds the materialized, checked-out view of every
// container reachable from an OpLog: container_id -> ContainerState,
// plus the transaction machinery (start/apply/commit/abort) that lets
// a caller stage several ops as one atomic Change, and the checkout
// machinery that re-derives state at an arbitrary point in history.
package docstate

import (
	"sync"
	"time"

	"github.com/loro-dev/loro-go/crdt/counter"
	"github.com/loro-dev/loro-go/crdt/list"
	"github.com/loro-dev/loro-go/crdt/mapstate"
	"github.com/loro-dev/loro-go/crdt/movablelist"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/oplog"
)

// transaction stages the ops of a not-yet-committed Change.
type transaction struct {
	ops            []oplog.Op
	checkpoints    map[ids.ContainerID]any
	startFrontiers ids.Frontiers
	startCounter   ids.Counter
	lamportBase    ids.Lamport
	msg            string
}

// DocState is a document's materialized state: every container's
// current value, plus the frontiers it was checked out to.
type DocState struct {
	mu sync.Mutex

	Peer ids.PeerID
	Log  *oplog.OpLog

	containers map[ids.ContainerID]any

	frontiers   ids.Frontiers
	nextCounter ids.Counter
	detached    bool

	txn *transaction

	subsMu        sync.Mutex
	nextSubID     uint64
	containerSubs map[ids.ContainerID][]subEntry
	rootSubs      []subEntry
	dispatching   bool
	deferredSubs  []func()
}

func New(peer ids.PeerID, log *oplog.OpLog) *DocState {
	return &DocState{
		Peer:          peer,
		Log:           log,
		containers:    map[ids.ContainerID]any{},
		frontiers:     log.Frontiers(),
		nextCounter:   log.VV().Get(peer),
		containerSubs: map[ids.ContainerID][]subEntry{},
	}
}

// Frontiers returns the version this state currently reflects.
func (ds *DocState) Frontiers() ids.Frontiers {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.frontiers.Clone()
}

// IsDetached reports whether the document is checked out to a
// non-latest version; local edits are refused while detached.
func (ds *DocState) IsDetached() bool {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.detached
}

// PeekNextID returns the id the next ApplyLocalOp call on this peer
// would assign, without staging anything. Some ops need to reference
// their own id before they're created — a Tree "create" is a Move
// whose never-before-seen Target is its own creation id (see
// crdt/tree.Move) — so the caller computes it here first.
func (ds *DocState) PeekNextID() ids.ID {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ids.ID{Peer: ds.Peer, Counter: ds.nextCounter}
}

// Roots returns the id of every root container this state has
// materialized (touched by at least one applied op), in no particular
// order. Used by the document façade to walk the whole document
// without a separate root-name-to-type index.
func (ds *DocState) Roots() []ids.ContainerID {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	var out []ids.ContainerID
	for cid := range ds.containers {
		if cid.IsRoot {
			out = append(out, cid)
		}
	}
	return out
}

// getOrCreate returns (creating if necessary) the concrete container
// state for cid. Returns nil for an unrecognized container type: ops
// targeting it are preserved in history (UnknownContent) but have no
// materialized view.
func (ds *DocState) getOrCreate(cid ids.ContainerID) any {
	if cs, ok := ds.containers[cid]; ok {
		return cs
	}
	var cs any
	switch cid.Type {
	case ids.ContainerText:
		cs = text.New()
	case ids.ContainerList:
		cs = list.New()
	case ids.ContainerMovableList:
		cs = movablelist.New()
	case ids.ContainerMap:
		cs = mapstate.New()
	case ids.ContainerTree:
		cs = tree.New()
	case ids.ContainerCounter:
		cs = counter.New()
	}
	ds.containers[cid] = cs
	return cs
}

// Container returns the materialized state for cid (nil if it has
// never been touched or its type is unrecognized). Callers type-assert
// to the concrete *text.Text / *list.List / etc. they expect.
func (ds *DocState) Container(cid ids.ContainerID) any {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	return ds.getOrCreate(cid)
}

func cloneContainer(cs any) any {
	switch c := cs.(type) {
	case *text.Text:
		return c.Clone()
	case *list.List:
		return c.Clone()
	case *movablelist.MovableList:
		return c.Clone()
	case *mapstate.Map:
		return c.Clone()
	case *tree.Tree:
		return c.Clone()
	case *counter.Counter:
		return c.Clone()
	default:
		return cs
	}
}

// StartTxn stages a new change. Panics if a transaction is already
// open, or the document is detached (checked out to a non-latest
// version): both are programmer errors, not recoverable conditions.
func (ds *DocState) StartTxn() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.txn != nil {
		panic("docstate: transaction already in progress")
	}
	if ds.detached {
		panic("docstate: cannot start a transaction while detached; call Attach first")
	}
	ds.txn = &transaction{
		checkpoints:    map[ids.ContainerID]any{},
		startFrontiers: ds.frontiers.Clone(),
		startCounter:   ds.nextCounter,
		lamportBase:    ds.Log.NextLamport(),
	}
}

func (ds *DocState) checkpoint(cid ids.ContainerID) {
	if _, ok := ds.txn.checkpoints[cid]; ok {
		return
	}
	ds.txn.checkpoints[cid] = cloneContainer(ds.getOrCreate(cid))
}

// ApplyLocalOp stages content as an op on cid, applying it to the
// materialized state immediately (optimistic execution: readers see
// the op's effect before Commit, the same way a database transaction's
// own connection sees its uncommitted writes). Must be called between
// StartTxn and Commit/Abort.
func (ds *DocState) ApplyLocalOp(cid ids.ContainerID, content oplog.OpContent) ids.ID {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.txn == nil {
		panic("docstate: ApplyLocalOp outside a transaction")
	}
	ds.checkpoint(cid)

	counter := ds.nextCounter
	op := oplog.Op{Container: cid, Counter: counter, Content: content}
	lamport := ds.txn.lamportBase + ids.Lamport(counter-ds.txn.startCounter)
	ds.applyOp(ds.Peer, op, lamport)

	ds.txn.ops = append(ds.txn.ops, op)
	ds.nextCounter += ids.Counter(content.Len())
	return ids.ID{Peer: ds.Peer, Counter: counter}
}

// Commit builds a Change from the staged ops and pushes it to the
// OpLog. Returns nil without recording anything if no ops were staged
// (per spec: an empty transaction is a no-op).
func (ds *DocState) Commit(msg string) *oplog.Change {
	ds.mu.Lock()
	if ds.txn == nil {
		ds.mu.Unlock()
		panic("docstate: Commit without an open transaction")
	}
	txn := ds.txn
	ds.txn = nil
	if len(txn.ops) == 0 {
		ds.mu.Unlock()
		return nil
	}

	change := oplog.Change{
		ID:        ids.ID{Peer: ds.Peer, Counter: txn.startCounter},
		Lamport:   txn.lamportBase,
		Timestamp: time.Now().Unix(),
		Deps:      txn.startFrontiers,
		Ops:       txn.ops,
		Msg:       msg,
	}
	ds.Log.ImportLocal(change)
	ds.frontiers = ds.Log.Frontiers()

	before := txn.checkpoints
	touched := make([]ids.ContainerID, 0, len(before))
	for cid := range before {
		touched = append(touched, cid)
	}
	ds.mu.Unlock()

	ds.fanOut(before, touched, false, true, msg)
	return &change
}

// Abort reverts every container touched since StartTxn to its
// pre-transaction checkpoint and discards the staged ops.
func (ds *DocState) Abort() {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	if ds.txn == nil {
		panic("docstate: Abort without an open transaction")
	}
	for cid, snapshot := range ds.txn.checkpoints {
		ds.containers[cid] = snapshot
	}
	ds.nextCounter = ds.txn.startCounter
	ds.txn = nil
}

// ApplyRemoteChange replays an already-imported Change's ops into
// materialized state and advances frontiers. The caller is
// responsible for having already recorded c in ds.Log (typically via
// Import, which does both).
func (ds *DocState) ApplyRemoteChange(c oplog.Change) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.applyChangeLocked(c)
	ds.frontiers = ds.Log.Frontiers()
}

func (ds *DocState) applyChangeLocked(c oplog.Change) {
	offset := ids.Counter(0)
	for _, op := range c.Ops {
		lamport := c.Lamport + ids.Lamport(offset)
		ds.applyOp(c.ID.Peer, op, lamport)
		offset += ids.Counter(op.Len())
	}
}

// Import decodes an updates blob, records every new change in the
// OpLog, and replays each into materialized state. Stops (returning
// the oplog error) at the first change with an unmet dependency,
// exactly like OpLog.ImportUpdatesBlob, but additionally keeps
// DocState's own view in sync.
func (ds *DocState) Import(blob []byte) error {
	changes, err := oplog.DecodeUpdates(blob)
	if err != nil {
		return err
	}

	touched := touchedContainers(changes)
	before := ds.snapshotContainers(touched)
	var anyApplied bool
	defer func() {
		if anyApplied {
			ds.fanOut(before, touched, false, false, "")
		}
	}()

	for _, c := range changes {
		prevCount := ds.Log.VV().Get(c.ID.Peer)
		if err := ds.Log.ImportRemote(c); err != nil {
			return err
		}
		if ds.Log.VV().Get(c.ID.Peer) == prevCount {
			continue // already had this change; state already reflects it
		}
		ds.ApplyRemoteChange(c)
		anyApplied = true
	}
	return nil
}

// ApplyPendingLogChanges replays every change recorded in ds.Log that
// ds's own materialized state doesn't yet reflect (per ds.frontiers,
// not the OpLog's own dedup check), firing one fanOut for the batch.
// Import's per-change loop can't be reused here: RestoreSnapshot
// records changes straight into ds.Log, so by the time this runs the
// log already "has" every one of them, and Import's ImportRemote-then-
// compare-VV skip would treat that as already materialized too and
// apply nothing.
func (ds *DocState) ApplyPendingLogChanges() {
	ds.mu.Lock()
	stateVV := ds.Log.VVFromFrontiers(ds.frontiers)
	logVV := ds.Log.VV()
	ds.mu.Unlock()
	changes := ds.Log.IterChangesBetween(stateVV, logVV)

	touched := touchedContainers(changes)
	before := ds.snapshotContainers(touched)
	var anyApplied bool
	for _, c := range changes {
		ds.ApplyRemoteChange(c)
		anyApplied = true
	}
	if anyApplied {
		ds.fanOut(before, touched, false, false, "")
	}
}

// touchedContainers collects, in first-seen order, every container id
// any op in changes targets.
func touchedContainers(changes []oplog.Change) []ids.ContainerID {
	seen := map[ids.ContainerID]bool{}
	var out []ids.ContainerID
	for _, c := range changes {
		for _, op := range c.Ops {
			if !seen[op.Container] {
				seen[op.Container] = true
				out = append(out, op.Container)
			}
		}
	}
	return out
}

// snapshotContainers clones the current state of each listed container,
// for use as the "before" side of a fanOut once changes finish applying.
func (ds *DocState) snapshotContainers(cids []ids.ContainerID) map[ids.ContainerID]any {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	out := make(map[ids.ContainerID]any, len(cids))
	for _, cid := range cids {
		out[cid] = cloneContainer(ds.getOrCreate(cid))
	}
	return out
}

// Checkout re-derives materialized state at target, setting the
// detached flag if target isn't the OpLog's latest version. Rebuilds
// from an empty container set rather than computing an incremental
// diff and patch against the previous state — a simpler, fully correct
// alternative appropriate at this document scale; see DESIGN.md.
func (ds *DocState) Checkout(target ids.Frontiers) {
	ds.mu.Lock()
	if ds.txn != nil {
		ds.mu.Unlock()
		panic("docstate: Checkout with an open transaction")
	}
	if target.Equal(ds.frontiers) {
		ds.mu.Unlock()
		return
	}

	before := ds.containers

	targetVV := ds.Log.VVFromFrontiers(target)
	ds.containers = map[ids.ContainerID]any{}
	for _, p := range targetVV.Peers() {
		n := targetVV.Get(p)
		if n == 0 {
			continue
		}
		for _, c := range ds.Log.IterChangesIn(ids.IdSpan{Peer: p, Start: 0, End: n}) {
			ds.applyChangeLocked(c)
		}
	}

	ds.frontiers = target.Clone()
	ds.nextCounter = targetVV.Get(ds.Peer)
	latestVV := ds.Log.VV()
	ds.detached = !latestVV.Equal(targetVV)

	touched := make([]ids.ContainerID, 0, len(before)+len(ds.containers))
	seen := map[ids.ContainerID]bool{}
	for cid := range before {
		seen[cid] = true
		touched = append(touched, cid)
	}
	for cid := range ds.containers {
		if !seen[cid] {
			touched = append(touched, cid)
		}
	}
	ds.mu.Unlock()

	ds.fanOut(before, touched, true, false, "")
}

// Attach checks out to the OpLog's current latest version and clears
// the detached flag.
func (ds *DocState) Attach() {
	ds.mu.Lock()
	latest := ds.Log.Frontiers()
	ds.mu.Unlock()
	ds.Checkout(latest)
}

// applyOp dispatches a single op to its container's concrete Apply
// method, boxing peer+lamport into the ids.IdLp every LWW container
// needs.
func (ds *DocState) applyOp(peer ids.PeerID, op oplog.Op, lamport ids.Lamport) {
	cs := ds.getOrCreate(op.Container)
	if cs == nil {
		return
	}
	opID := op.ID(peer)
	idlp := ids.IdLp{Lamport: lamport, Peer: peer}

	switch content := op.Content.(type) {
	case oplog.InsertContent:
		switch target := cs.(type) {
		case *text.Text:
			target.Apply(opID, lamport, content.OriginLeft, content.OriginRight, content.Items)
		case *list.List:
			target.Apply(opID, lamport, content.OriginLeft, content.OriginRight, content.ValueItems)
		case *movablelist.MovableList:
			pos := fractional.FractionalIndex(content.Position)
			for i, v := range content.ValueItems {
				elemID := ids.ID{Peer: opID.Peer, Counter: opID.Counter + ids.Counter(i)}
				elemPos := pos
				if i > 0 {
					elemPos = fractional.NewAfter(pos, 0)
					pos = elemPos
				}
				target.Insert(elemID, v, elemPos, idlp)
			}
		}
	case oplog.DeleteContent:
		switch target := cs.(type) {
		case *text.Text:
			target.ApplyDelete(content.Span)
		case *list.List:
			target.ApplyDelete(content.Span)
		case *movablelist.MovableList:
			for c := content.Span.Start; c < content.Span.End; c++ {
				target.Delete(ids.ID{Peer: content.Span.Peer, Counter: c})
			}
		}
	case oplog.ListMoveContent:
		if target, ok := cs.(*movablelist.MovableList); ok {
			target.Move(content.Elem, fractional.FractionalIndex(content.Position), idlp)
		}
	case oplog.ListSetContent:
		if target, ok := cs.(*movablelist.MovableList); ok {
			target.Set(content.Elem, content.Value, idlp)
		}
	case oplog.MapSetContent:
		if target, ok := cs.(*mapstate.Map); ok {
			target.Set(content.Key, content.Value, content.Delete, idlp)
		}
	case oplog.TreeMoveContent:
		if target, ok := cs.(*tree.Tree); ok {
			target.Move(content.Target, content.Parent, fractional.FractionalIndex(content.Position), idlp)
		}
	case oplog.TreeDeleteContent:
		if target, ok := cs.(*tree.Tree); ok {
			target.Delete(content.Target, idlp)
		}
	case oplog.TreeEmptyTrashContent:
		if target, ok := cs.(*tree.Tree); ok {
			target.EmptyTrash(content.Nodes)
		}
	case oplog.CounterAddContent:
		if target, ok := cs.(*counter.Counter); ok {
			target.Add(content.Delta)
		}
		// StyleStartContent, StyleEndContent and UnknownContent carry no
		// materialized state at this layer: styles are a richtext
		// presentation concern layered on top of Text, and unknown ops
		// are preserved for forward-compat round-tripping only.
	}
}
