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
	"sort"
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestBuildSnapshotRestoresFullHistory(t *testing.T) {
	log := New()
	pa, pb := ids.PeerID(1), ids.PeerID(2)

	ca := localChange(log, pa, []Op{textInsert("hello")}, 1)
	log.ImportLocal(ca)
	cb := localChange(log, pb, []Op{
		{Container: ids.RootContainerID("m", ids.ContainerMap), Content: MapSetContent{Key: "k", Value: "v"}},
	}, 2)
	log.ImportLocal(cb)
	cc := localChange(log, pa, []Op{
		{Container: ids.RootContainerID("t", ids.ContainerTree), Content: TreeMoveContent{Target: ids.ID{Peer: pa, Counter: 0}, Position: []byte{0x80}}},
	}, 3)
	log.ImportLocal(cc)

	blob := BuildSnapshot(log, 2)

	fresh := New()
	if err := RestoreSnapshot(blob, fresh); err != nil {
		t.Fatalf("RestoreSnapshot failed: %v", err)
	}
	if !fresh.VV().Equal(log.VV()) {
		t.Fatalf("restored VV %+v doesn't match original %+v", fresh.VV(), log.VV())
	}
	if !fresh.Frontiers().Equal(log.Frontiers()) {
		t.Fatalf("restored frontiers %+v doesn't match original %+v", fresh.Frontiers(), log.Frontiers())
	}
}

func TestSnapshotRootNamesListsEveryRootContainer(t *testing.T) {
	log := New()
	p := ids.PeerID(1)

	c := localChange(log, p, []Op{
		textInsert("hi"),
		{Container: ids.RootContainerID("m", ids.ContainerMap), Content: MapSetContent{Key: "k", Value: "v"}},
	}, 1)
	log.ImportLocal(c)

	blob := BuildSnapshot(log, DefaultChangeStoreBlockSize)
	names, err := SnapshotRootNames(blob)
	if err != nil {
		t.Fatalf("SnapshotRootNames failed: %v", err)
	}
	sort.Strings(names)
	if len(names) != 2 || names[0] != "doc" || names[1] != "m" {
		t.Fatalf("expected root names [doc m], got %v", names)
	}
}

func TestSnapshotRootNamesDeduplicatesAcrossChanges(t *testing.T) {
	log := New()
	p := ids.PeerID(1)
	c1 := localChange(log, p, []Op{textInsert("a")}, 1)
	log.ImportLocal(c1)
	c2 := localChange(log, p, []Op{textInsert("b")}, 2)
	log.ImportLocal(c2)

	blob := BuildSnapshot(log, DefaultChangeStoreBlockSize)
	names, err := SnapshotRootNames(blob)
	if err != nil {
		t.Fatalf("SnapshotRootNames failed: %v", err)
	}
	if len(names) != 1 || names[0] != "doc" {
		t.Fatalf("expected a single deduplicated root name, got %v", names)
	}
}
