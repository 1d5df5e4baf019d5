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

package oplog

import (
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestChangeStoreRoundTripsAllPeers(t *testing.T) {
	log := New()
	pa, pb := ids.PeerID(1), ids.PeerID(2)

	for i := 0; i < 5; i++ {
		// timestamps far apart so the merge window keeps the changes separate
		c := localChange(log, pa, []Op{textInsert("x")}, int64(i)*1000)
		log.ImportLocal(c)
	}
	cb := localChange(log, pb, []Op{textInsert("y")}, 100)
	log.ImportLocal(cb)
	if err := log.ImportRemote(cb); err != nil {
		t.Fatalf("re-importing an already-local change should be a no-op, got %v", err)
	}

	blob := BuildChangeStore(log, 2) // force multiple blocks per peer
	cs, err := OpenChangeStore(blob, "", nil)
	if err != nil {
		t.Fatalf("OpenChangeStore failed: %v", err)
	}

	loadedA, err := cs.LoadPeer(pa)
	if err != nil {
		t.Fatalf("LoadPeer(pa) failed: %v", err)
	}
	if len(loadedA) != 5 {
		t.Fatalf("expected 5 changes for pa, got %d", len(loadedA))
	}
	for i, c := range loadedA {
		if c.ID.Counter != int32(i) {
			t.Fatalf("change %d out of order: %+v", i, c)
		}
	}

	loadedB, err := cs.LoadPeer(pb)
	if err != nil {
		t.Fatalf("LoadPeer(pb) failed: %v", err)
	}
	if len(loadedB) != 1 || loadedB[0].ID != cb.ID {
		t.Fatalf("expected pb's single change, got %+v", loadedB)
	}
}

func TestChangeStoreLoadSpanIntersectsBlocks(t *testing.T) {
	log := New()
	p := ids.PeerID(9)
	for i := 0; i < 6; i++ {
		// timestamps far apart so the merge window keeps the changes separate
		c := localChange(log, p, []Op{textInsert("z")}, int64(i)*1000)
		log.ImportLocal(c)
	}

	blob := BuildChangeStore(log, 2)
	cs, err := OpenChangeStore(blob, "", nil)
	if err != nil {
		t.Fatalf("OpenChangeStore failed: %v", err)
	}

	changes, err := cs.LoadSpan(ids.IdSpan{Peer: p, Start: 1, End: 4})
	if err != nil {
		t.Fatalf("LoadSpan failed: %v", err)
	}
	var total int
	for _, c := range changes {
		total += c.Len()
	}
	if total != 3 {
		t.Fatalf("expected span covering 3 ops, got %d across %+v", total, changes)
	}
}

func TestChangeStoreImportIntoRehydratesLog(t *testing.T) {
	log := New()
	pa, pb := ids.PeerID(1), ids.PeerID(2)
	ca := localChange(log, pa, []Op{textInsert("a")}, 1)
	log.ImportLocal(ca)
	cb := localChange(log, pb, []Op{textInsert("b")}, 2)
	log.ImportLocal(cb)

	blob := BuildChangeStore(log, DefaultChangeStoreBlockSize)
	cs, err := OpenChangeStore(blob, "", nil)
	if err != nil {
		t.Fatalf("OpenChangeStore failed: %v", err)
	}

	fresh := New()
	if err := cs.ImportInto(fresh); err != nil {
		t.Fatalf("ImportInto failed: %v", err)
	}
	if !fresh.VV().Equal(log.VV()) {
		t.Fatalf("rehydrated log's VV %+v doesn't match original %+v", fresh.VV(), log.VV())
	}
}
