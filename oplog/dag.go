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
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/rleutil"
)

// DagNode is one run-length-compressed entry of the causal DAG: a
// contiguous span of one peer's counters that all share the same
// cross-peer dependencies (the deps of the span's first counter; every
// later counter in the span implicitly depends on the one before it).
type DagNode struct {
	IDSpan       ids.IdSpan
	Deps         ids.Frontiers
	LamportStart ids.Lamport
}

func (n DagNode) Len() int { return n.IDSpan.Len() }

// Mergeable folds a directly-following span into this one when it was
// caused solely by "the previous counter", i.e. it carries no
// cross-peer deps of its own.
func (n DagNode) Mergeable(other DagNode) bool {
	if !n.IDSpan.Mergeable(other.IDSpan) {
		return false
	}
	return len(other.Deps) == 1 && other.Deps[0].Equal(ids.ID{Peer: n.IDSpan.Peer, Counter: n.IDSpan.End - 1})
}

func (n DagNode) Merge(other DagNode) DagNode {
	return DagNode{
		IDSpan:       ids.IdSpan{Peer: n.IDSpan.Peer, Start: n.IDSpan.Start, End: other.IDSpan.End},
		Deps:         n.Deps,
		LamportStart: n.LamportStart,
	}
}

// Slice returns the sub-run covering local offsets [start, end); a
// non-zero start synthesizes a same-peer predecessor dependency since
// the run's own recorded Deps only describe its first counter.
func (n DagNode) Slice(start, end int) DagNode {
	span := ids.IdSpan{Peer: n.IDSpan.Peer, Start: n.IDSpan.Start + ids.Counter(start), End: n.IDSpan.Start + ids.Counter(end)}
	deps := n.Deps
	if start > 0 {
		deps = ids.Frontiers{{Peer: n.IDSpan.Peer, Counter: span.Start - 1}}
	}
	return DagNode{IDSpan: span, Deps: deps, LamportStart: n.LamportStart + ids.Lamport(start)}
}

// peerDag is the NonLockingReadMap element for one peer's DAG runs.
type peerDag struct {
	peer ids.PeerID
	vec  rleutil.Vec[DagNode]
}

func (p peerDag) GetKey() ids.PeerID { return p.peer }
func (p peerDag) ComputeSize() uint  { return 32 + uint(p.vec.RunCount()*48) }

// depsOf returns the dependencies of the single counter id, looked up
// from the run covering it: the run's own Deps if id is the run's
// first counter, otherwise the implicit same-peer predecessor.
func depsOf(pd *peerDag, id ids.ID) ids.Frontiers {
	run, offset, ok := pd.vec.At(int(id.Counter))
	if !ok {
		return nil
	}
	if offset == 0 {
		return run.Deps
	}
	return ids.Frontiers{{Peer: id.Peer, Counter: id.Counter - 1}}
}

// lamportOf returns the Lamport timestamp of id, looked up from the
// run covering it.
func lamportOf(pd *peerDag, id ids.ID) (ids.Lamport, bool) {
	run, offset, ok := pd.vec.At(int(id.Counter))
	if !ok {
		return 0, false
	}
	return run.LamportStart + ids.Lamport(offset), true
}
