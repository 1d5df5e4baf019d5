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

package docstate

import (
	"testing"

	"github.com/loro-dev/loro-go/crdt/mapstate"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/oplog"
)

func TestApplyLocalOpVisibleBeforeCommit(t *testing.T) {
	log := oplog.New()
	ds := New(ids.PeerID(1), log)
	textID := ids.RootContainerID("doc", ids.ContainerText)

	ds.StartTxn()
	ds.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("hi")})

	got := ds.Container(textID).(*text.Text)
	if got.String() != "hi" {
		t.Fatalf("expected uncommitted state visible, got %q", got.String())
	}

	change := ds.Commit("greet")
	if change == nil {
		t.Fatalf("expected non-nil change")
	}
	if log.VV().Get(ds.Peer) != 2 {
		t.Fatalf("expected oplog vv advanced to 2, got %d", log.VV().Get(ds.Peer))
	}
}

func TestCommitWithNoStagedOpsIsNoop(t *testing.T) {
	log := oplog.New()
	ds := New(ids.PeerID(1), log)

	ds.StartTxn()
	change := ds.Commit("empty")
	if change != nil {
		t.Fatalf("expected nil change for empty transaction")
	}
	if log.VV().Get(ds.Peer) != 0 {
		t.Fatalf("expected no change recorded, vv=%d", log.VV().Get(ds.Peer))
	}
}

func TestAbortRevertsContainerState(t *testing.T) {
	log := oplog.New()
	ds := New(ids.PeerID(1), log)
	mapID := ids.RootContainerID("cfg", ids.ContainerMap)

	ds.StartTxn()
	ds.ApplyLocalOp(mapID, oplog.MapSetContent{Key: "a", Value: "1"})
	ds.Commit("seed")

	ds.StartTxn()
	ds.ApplyLocalOp(mapID, oplog.MapSetContent{Key: "a", Value: "2"})
	got := ds.Container(mapID).(*mapstate.Map)
	if v, _ := got.Get("a"); v != "2" {
		t.Fatalf("expected uncommitted overwrite visible, got %v", v)
	}
	ds.Abort()

	afterAbort := ds.Container(mapID).(*mapstate.Map)
	if v, _ := afterAbort.Get("a"); v != "1" {
		t.Fatalf("expected abort to revert to pre-transaction value, got %v", v)
	}
	if log.VV().Get(ds.Peer) != 1 {
		t.Fatalf("expected oplog unaffected by aborted transaction, vv=%d", log.VV().Get(ds.Peer))
	}
}

func TestImportConvergesTwoReplicas(t *testing.T) {
	logA := oplog.New()
	logB := oplog.New()
	dsA := New(ids.PeerID(1), logA)
	dsB := New(ids.PeerID(2), logB)
	textID := ids.RootContainerID("doc", ids.ContainerText)

	dsA.StartTxn()
	dsA.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("hello")})
	dsA.Commit("a")

	blob := logA.ExportUpdates(ids.NewVersionVector())
	if err := dsB.Import(blob); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	got := dsB.Container(textID).(*text.Text)
	if got.String() != "hello" {
		t.Fatalf("expected replica B to converge to %q, got %q", "hello", got.String())
	}

	dsB.StartTxn()
	dsB.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("!")})
	dsB.Commit("b")

	blobBack := logB.ExportUpdates(logA.VV())
	if err := dsA.Import(blobBack); err != nil {
		t.Fatalf("Import back failed: %v", err)
	}
	if !logA.VV().Equal(logB.VV()) {
		t.Fatalf("version vectors diverged after mutual import")
	}
}

func TestImportIsIdempotent(t *testing.T) {
	logA := oplog.New()
	logB := oplog.New()
	dsA := New(ids.PeerID(1), logA)
	dsB := New(ids.PeerID(2), logB)
	textID := ids.RootContainerID("doc", ids.ContainerText)

	dsA.StartTxn()
	dsA.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("x")})
	dsA.Commit("a")

	blob := logA.ExportUpdates(ids.NewVersionVector())
	if err := dsB.Import(blob); err != nil {
		t.Fatalf("first import failed: %v", err)
	}
	if err := dsB.Import(blob); err != nil {
		t.Fatalf("second import failed: %v", err)
	}
	got := dsB.Container(textID).(*text.Text)
	if got.String() != "x" {
		t.Fatalf("expected re-import to be a no-op, got %q", got.String())
	}
}

func TestCheckoutAndAttach(t *testing.T) {
	log := oplog.New()
	ds := New(ids.PeerID(1), log)
	textID := ids.RootContainerID("doc", ids.ContainerText)

	ds.StartTxn()
	ds.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("a")})
	ds.Commit("first")
	midpoint := ds.Frontiers()

	ds.StartTxn()
	ds.ApplyLocalOp(textID, oplog.InsertContent{Items: []byte("b")})
	ds.Commit("second")

	ds.Checkout(midpoint)
	if !ds.IsDetached() {
		t.Fatalf("expected detached after checking out a non-latest version")
	}
	got := ds.Container(textID).(*text.Text)
	if got.String() != "a" {
		t.Fatalf("expected checked-out state %q, got %q", "a", got.String())
	}

	ds.Attach()
	if ds.IsDetached() {
		t.Fatalf("expected attach to clear detached flag")
	}
	got = ds.Container(textID).(*text.Text)
	if got.String() != "ab" {
		t.Fatalf("expected attach to restore latest state %q, got %q", "ab", got.String())
	}
}
