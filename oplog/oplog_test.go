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

func textInsert(s string) Op {
	return Op{
		Container: ids.RootContainerID("doc", ids.ContainerText),
		Content:   InsertContent{Items: []byte(s)},
	}
}

func localChange(log *OpLog, peer ids.PeerID, ops []Op, ts int64) Change {
	counter := log.VV().Get(peer)
	for i := range ops {
		ops[i].Counter = counter + ids.Counter(i)
	}
	return Change{
		ID:        ids.ID{Peer: peer, Counter: counter},
		Lamport:   log.NextLamport(),
		Timestamp: ts,
		Deps:      log.Frontiers(),
		Ops:       ops,
	}
}

func TestImportLocalSequential(t *testing.T) {
	log := New()
	p := ids.PeerID(1)

	c1 := localChange(log, p, []Op{textInsert("a")}, 1000)
	log.ImportLocal(c1)
	c2 := localChange(log, p, []Op{textInsert("b")}, 2000)
	log.ImportLocal(c2)

	if got := log.VV().Get(p); got != 2 {
		t.Fatalf("expected vv[p]=2, got %d", got)
	}
	fr := log.Frontiers()
	if len(fr) != 1 || !fr[0].Equal(c2.LastID()) {
		t.Fatalf("unexpected frontiers: %+v", fr)
	}
}

func TestImportRemoteMissingDependency(t *testing.T) {
	log := New()
	p := ids.PeerID(7)

	// counter 0 never imported; try to import counter 1 directly.
	bad := Change{
		ID:   ids.ID{Peer: p, Counter: 1},
		Deps: ids.Frontiers{{Peer: p, Counter: 0}},
		Ops:  []Op{textInsert("x")},
	}
	err := log.ImportRemote(bad)
	if err == nil {
		t.Fatalf("expected DependencyMissingError")
	}
	if _, ok := err.(*DependencyMissingError); !ok {
		t.Fatalf("expected *DependencyMissingError, got %T", err)
	}
}

func TestImportRemoteTwoPeersMerge(t *testing.T) {
	logA := New()
	logB := New()
	pa, pb := ids.PeerID(1), ids.PeerID(2)

	ca := localChange(logA, pa, []Op{textInsert("a")}, 100)
	logA.ImportLocal(ca)

	if err := logB.ImportRemote(ca); err != nil {
		t.Fatalf("ImportRemote failed: %v", err)
	}
	cb := localChange(logB, pb, []Op{textInsert("b")}, 200)
	logB.ImportLocal(cb)

	if err := logA.ImportRemote(cb); err != nil {
		t.Fatalf("ImportRemote failed: %v", err)
	}

	if !logA.VV().Equal(logB.VV()) {
		t.Fatalf("version vectors diverged: %+v vs %+v", logA.VV(), logB.VV())
	}
	fr := logA.Frontiers()
	if len(fr) != 2 {
		t.Fatalf("expected two concurrent frontiers, got %+v", fr)
	}
}

func TestEncodeDecodeUpdatesRoundTrip(t *testing.T) {
	log := New()
	p := ids.PeerID(3)
	c1 := localChange(log, p, []Op{textInsert("hello")}, 10)
	log.ImportLocal(c1)
	c2 := localChange(log, p, []Op{
		{Container: ids.RootContainerID("m", ids.ContainerMap), Content: MapSetContent{Key: "k", Value: "v"}},
		{Container: ids.RootContainerID("t", ids.ContainerTree), Content: TreeMoveContent{Target: ids.ID{Peer: p, Counter: 99}, Position: []byte{0x40, 0x80}}},
	}, 20)
	log.ImportLocal(c2)

	blob := log.ExportUpdates(ids.NewVersionVector())
	decoded, err := DecodeUpdates(blob)
	if err != nil {
		t.Fatalf("DecodeUpdates failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(decoded))
	}
	if decoded[0].ID != c1.ID || decoded[1].ID != c2.ID {
		t.Fatalf("change ids mismatched after round trip")
	}
	mapOp := decoded[1].Ops[0].Content.(MapSetContent)
	if mapOp.Key != "k" || mapOp.Value != "v" {
		t.Fatalf("map op content mismatched: %+v", mapOp)
	}
}

func TestCompareFrontiersConcurrent(t *testing.T) {
	logA := New()
	pa, pb := ids.PeerID(1), ids.PeerID(2)

	ca := localChange(logA, pa, []Op{textInsert("a")}, 1)
	logA.ImportLocal(ca)

	logB := New()
	_ = logB.ImportRemote(ca)
	cb := localChange(logB, pb, []Op{textInsert("b")}, 2)
	logB.ImportLocal(cb)
	_ = logA.ImportRemote(cb)

	cc := localChange(logA, pa, []Op{textInsert("c")}, 3)
	logA.ImportLocal(cc)

	order := logA.CompareFrontiers(ids.Frontiers{ca.LastID()}, ids.Frontiers{cb.LastID()})
	if order != ids.Incomparable {
		t.Fatalf("expected concurrent changes to be Incomparable, got %s", order)
	}
	order2 := logA.CompareFrontiers(ids.Frontiers{ca.LastID()}, ids.Frontiers{cc.LastID()})
	if order2 != ids.Less {
		t.Fatalf("expected ca < cc, got %s", order2)
	}
}
