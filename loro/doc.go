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

// Package loro is the public document façade: it owns an OpLog and a
// DocState, opens/commits the transaction each batch of handle edits
// stages, and dispatches import/export, checkout, and subscription
// calls to the lower layers. Everything below this package (ids,
// arena, oplog, crdt/*, docstate, diff, codec, undo) is usable
// directly, but a caller wiring up a document from scratch is expected
// to start here, the same way an application wiring up storage starts
// from a *storage.Database rather than assembling a shard/overlay/
// transaction by hand.
package loro

import (
	"sync"

	"github.com/loro-dev/loro-go/codec"
	"github.com/loro-dev/loro-go/docstate"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/oplog"
)

// ExportMode selects what Export produces; see the Mode* constants.
type ExportMode struct {
	kind exportKind
	from ids.VersionVector // Updates
	at   ids.Frontiers      // ShallowSnapshot, GcSnapshot
}

type exportKind int

const (
	exportUpdates exportKind = iota
	exportSnapshot
	exportFastSnapshot
	exportShallowSnapshot
	exportGcSnapshot
)

// ModeUpdates exports every change the document has recorded that from
// doesn't already include.
func ModeUpdates(from ids.VersionVector) ExportMode {
	return ExportMode{kind: exportUpdates, from: from}
}

// ModeSnapshot exports full state and history in one blob.
func ModeSnapshot() ExportMode { return ExportMode{kind: exportSnapshot} }

// ModeFastSnapshot produces the same blob as ModeSnapshot, compression
// included (codec/kvblock.go LZ4-compresses every block and keeps it
// raw only when compression doesn't shrink it); this port has one
// snapshot body shape rather than loro's separate fast-path encoding.
func ModeFastSnapshot() ExportMode { return ExportMode{kind: exportFastSnapshot} }

// ModeShallowSnapshot exports state trimmed to changes on or after at.
// See oplog.BuildShallowSnapshot's doc comment for what this port does
// and does not guarantee on import.
func ModeShallowSnapshot(at ids.Frontiers) ExportMode {
	return ExportMode{kind: exportShallowSnapshot, at: at}
}

// ModeGcSnapshot is ModeShallowSnapshot under another name in this
// port: both trim history to a frontier. loro's GcSnapshot additionally
// discards metadata for containers unreachable as of at; this engine
// has no unreachable-container GC beyond the trim itself (spec
// Non-goal), so the two modes produce identical output here.
func ModeGcSnapshot(at ids.Frontiers) ExportMode {
	return ExportMode{kind: exportGcSnapshot, at: at}
}

// Doc is the public document handle: transaction boundaries, container
// handles, import/export, checkout, and subscription dispatch all go
// through it. A single sync.Mutex guards the façade's own bookkeeping
// (matching the concurrency model's stated choice over fine-grained
// per-subsystem locks); DocState and OpLog keep their own locks for
// their own invariants.
type Doc struct {
	mu      sync.Mutex
	state   *docstate.DocState
	log     *oplog.OpLog
	txnOpen bool
	nextMsg string

	blockSize int // change-store block size used by Export(Snapshot); 0 = default
}

// New creates an empty document with a randomly chosen peer id.
func New() *Doc {
	return NewWithPeer(ids.NewPeerID())
}

// NewWithPeer creates an empty document using peer as its local peer id.
func NewWithPeer(peer ids.PeerID) *Doc {
	log := oplog.New()
	return &Doc{state: docstate.New(peer, log), log: log}
}

// State returns the underlying DocState, for callers (package undo,
// tests) that need to work a level below the façade.
func (d *Doc) State() *docstate.DocState { return d.state }

// PeerID returns the document's local peer id.
func (d *Doc) PeerID() ids.PeerID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Peer
}

// SetPeerID changes the document's local peer id. Only meaningful
// before any local edit has been committed on the old id; callers that
// mix peer ids mid-document risk colliding counters with their own
// prior ops.
func (d *Doc) SetPeerID(peer ids.PeerID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	invariant(!d.txnOpen, "SetPeerID called with a transaction open")
	d.state.Peer = peer
}

// SetNextCommitMessage records msg to use the next time Commit is
// called with an empty message.
func (d *Doc) SetNextCommitMessage(msg string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextMsg = msg
}

// ensureTxn opens a transaction on first use if one isn't already
// open; every handle mutation funnels through this before staging an
// op, so a batch of handle calls between two Commits lands in one
// Change.
func (d *Doc) ensureTxn() *Error {
	if d.txnOpen {
		return nil
	}
	if d.state.IsDetached() {
		return newError(NotAttached, "cannot edit a detached document; call Attach first")
	}
	d.state.StartTxn()
	d.txnOpen = true
	return nil
}

// Commit closes the currently open transaction (if any) and pushes a
// Change to the OpLog, firing subscriber events. A no-op if no edits
// were staged since the last Commit/Checkout. msg overrides
// SetNextCommitMessage's pending message when non-empty.
func (d *Doc) Commit(msg string) *oplog.Change {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.txnOpen {
		return nil
	}
	if msg == "" {
		msg = d.nextMsg
	}
	d.nextMsg = ""
	d.txnOpen = false
	return d.state.Commit(msg)
}

// Import decodes an updates or snapshot blob and merges it into the
// document, applying every change it records that this document
// doesn't already have.
func (d *Doc) Import(blob []byte) *Error {
	d.mu.Lock()
	defer d.mu.Unlock()
	invariant(!d.txnOpen, "Import called with a local transaction open")

	mode, err := codec.PeekMode(blob)
	if err != nil {
		return wrapDecodeErr(err)
	}
	switch mode {
	case codec.ModeSnapshot:
		if err := oplog.RestoreSnapshot(blob, d.log); err != nil {
			return wrapDecodeErr(err)
		}
		// RestoreSnapshot records changes straight into the OpLog, which
		// would make the ordinary Import path's dedup check (compare the
		// OpLog's VV before/after ImportRemote) see everything as already
		// present and materialize nothing; ApplyPendingLogChanges compares
		// against DocState's own frontiers instead.
		d.state.ApplyPendingLogChanges()
		return nil
	default:
		if err := d.state.Import(blob); err != nil {
			return wrapDecodeErr(err)
		}
		return nil
	}
}

// Export produces a blob per mode; see the ExportMode constructors.
func (d *Doc) Export(mode ExportMode) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch mode.kind {
	case exportUpdates:
		return d.log.ExportUpdates(mode.from)
	case exportSnapshot, exportFastSnapshot:
		return oplog.BuildSnapshot(d.log, d.blockSize)
	case exportShallowSnapshot, exportGcSnapshot:
		return oplog.BuildShallowSnapshot(d.log, mode.at, d.blockSize)
	default:
		invariant(false, "unknown export mode %d", mode.kind)
		return nil
	}
}

// OplogVV returns the version vector covering every change recorded in
// the OpLog (independent of what DocState is currently checked out to).
func (d *Doc) OplogVV() ids.VersionVector {
	return d.log.VV()
}

// StateVV returns the version vector DocState's materialized view
// currently reflects.
func (d *Doc) StateVV() ids.VersionVector {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.log.VVFromFrontiers(d.state.Frontiers())
}

// OplogFrontiers returns the OpLog's latest frontiers.
func (d *Doc) OplogFrontiers() ids.Frontiers {
	return d.log.Frontiers()
}

// StateFrontiers returns the frontiers DocState is currently checked
// out to.
func (d *Doc) StateFrontiers() ids.Frontiers {
	return d.state.Frontiers()
}

// IsDetached reports whether the document is checked out to a
// non-latest version.
func (d *Doc) IsDetached() bool {
	return d.state.IsDetached()
}

// Checkout re-derives materialized state at target, entering detached
// mode unless target is the OpLog's latest version.
func (d *Doc) Checkout(target ids.Frontiers) {
	d.mu.Lock()
	defer d.mu.Unlock()
	invariant(!d.txnOpen, "Checkout called with a local transaction open")
	d.state.Checkout(target)
}

// Attach re-checks-out to the OpLog's latest version and clears
// detached mode.
func (d *Doc) Attach() {
	d.mu.Lock()
	defer d.mu.Unlock()
	invariant(!d.txnOpen, "Attach called with a local transaction open")
	d.state.Attach()
}

// Fork returns an independent copy of the document sharing no mutable
// state: built by exporting a full snapshot and importing it into a
// fresh Doc on a new peer id, the simplest implementation that is
// trivially correct (no aliasing to audit) at this document scale.
func (d *Doc) Fork() *Doc {
	blob := d.Export(ModeSnapshot())
	fork := NewWithPeer(ids.NewPeerID())
	if err := fork.Import(blob); err != nil {
		invariant(false, "Fork: re-importing this document's own snapshot failed: %v", err)
	}
	return fork
}

// Subscribe registers fn to run synchronously after every Commit,
// Import, or Checkout that touches container cid.
func (d *Doc) Subscribe(cid ids.ContainerID, fn docstate.Subscription) uint64 {
	return d.state.Subscribe(cid, fn)
}

// SubscribeRoot registers fn to run synchronously after every Commit,
// Import, or Checkout, regardless of which containers it touched.
func (d *Doc) SubscribeRoot(fn docstate.Subscription) uint64 {
	return d.state.SubscribeRoot(fn)
}

// Unsubscribe cancels a subscription previously returned by Subscribe
// or SubscribeRoot.
func (d *Doc) Unsubscribe(id uint64) {
	d.state.Unsubscribe(id)
}

func wrapDecodeErr(err error) *Error {
	switch e := err.(type) {
	case *codec.DecodeError:
		return &Error{Kind: DecodeError, Message: e.Error()}
	case *codec.SchemaMismatchError:
		return &Error{Kind: SchemaMismatch, Message: e.Error()}
	case *oplog.DependencyMissingError:
		return &Error{Kind: DependencyMissing, Message: e.Error(), Missing: e.Missing}
	default:
		return &Error{Kind: DecodeError, Message: err.Error()}
	}
}
