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

import "github.com/loro-dev/loro-go/ids"

// VVFromFrontiers walks the causal DAG backward from f, returning the
// VersionVector of everything f causally includes. This is the
// expensive direction of the Frontiers<->VersionVector bijection (the
// reverse, FrontiersFromVV, is comparatively cheap), which is why the
// conversion lives here rather than in the ids package: it needs the
// DAG to walk.
func (log *OpLog) VVFromFrontiers(f ids.Frontiers) ids.VersionVector {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.vvFromFrontiersLocked(f)
}

func (log *OpLog) vvFromFrontiersLocked(f ids.Frontiers) ids.VersionVector {
	vv := ids.NewVersionVector()
	reached := map[ids.PeerID]ids.Counter{}
	queue := append(ids.Frontiers(nil), f...)

	for len(queue) > 0 {
		id := queue[len(queue)-1]
		queue = queue[:len(queue)-1]

		covered := reached[id.Peer]
		if id.Counter < covered {
			continue
		}

		pd := log.dag.Get(id.Peer)
		if pd != nil {
			for _, run := range pd.vec.SliceBetween(int(covered), int(id.Counter)+1) {
				queue = append(queue, run.Deps...)
			}
		}
		vv.ExtendToInclude(id)
		reached[id.Peer] = id.Counter + 1
	}
	return vv
}

// vvIncludesLocked reports whether ancestor is id itself or a causal
// ancestor of id.
func (log *OpLog) vvIncludesLocked(id, ancestor ids.ID) bool {
	if id.Equal(ancestor) {
		return true
	}
	if id.Peer == ancestor.Peer && ancestor.Counter <= id.Counter {
		return true
	}
	return log.vvFromFrontiersLocked(ids.Frontiers{id}).Includes(ancestor)
}

// FrontiersFromVV returns the minimal antichain of ids whose causal
// closure equals vv: one candidate per peer with a non-zero entry,
// pruned of any candidate dominated by another (i.e. already a causal
// ancestor of some other candidate).
func (log *OpLog) FrontiersFromVV(vv ids.VersionVector) ids.Frontiers {
	log.mu.Lock()
	defer log.mu.Unlock()

	var candidates ids.Frontiers
	for _, p := range vv.Peers() {
		if c := vv.Get(p); c > 0 {
			candidates = append(candidates, ids.ID{Peer: p, Counter: c - 1})
		}
	}
	if len(candidates) <= 1 {
		return candidates
	}
	var out ids.Frontiers
	for i, cand := range candidates {
		dominated := false
		for j, other := range candidates {
			if i == j {
				continue
			}
			if log.vvIncludesLocked(other, cand) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, cand)
		}
	}
	return out
}

// CompareFrontiers reports how a relates to b by causal reachability:
// Equal if they name the same version, Less if every op in a is a
// causal ancestor of b, Greater for the reverse, Incomparable if
// neither dominates the other (concurrent edits exist on both sides).
func (log *OpLog) CompareFrontiers(a, b ids.Frontiers) ids.Ordering {
	if a.Equal(b) {
		return ids.Equal
	}
	log.mu.Lock()
	va := log.vvFromFrontiersLocked(a)
	vb := log.vvFromFrontiersLocked(b)
	log.mu.Unlock()

	aIncludesB := va.IncludesVV(vb)
	bIncludesA := vb.IncludesVV(va)
	switch {
	case aIncludesB && bIncludesA:
		return ids.Equal
	case aIncludesB:
		return ids.Greater
	case bIncludesA:
		return ids.Less
	default:
		return ids.Incomparable
	}
}

// CommonAncestors returns the frontiers of the latest version both a
// and b causally include: the pointwise-min of their version vectors,
// converted back to frontiers.
func (log *OpLog) CommonAncestors(a, b ids.Frontiers) ids.Frontiers {
	log.mu.Lock()
	va := log.vvFromFrontiersLocked(a)
	vb := log.vvFromFrontiersLocked(b)
	log.mu.Unlock()

	min := ids.NewVersionVector()
	peers := append(va.Peers(), vb.Peers()...)
	seen := map[ids.PeerID]bool{}
	for _, p := range peers {
		if seen[p] {
			continue
		}
		seen[p] = true
		n := va.Get(p)
		if m := vb.Get(p); m < n {
			n = m
		}
		min.Set(p, n)
	}
	return log.FrontiersFromVV(min)
}

// IterChangesBetween returns the changes (or change fragments) that to
// includes and from does not, grouped by peer in ascending peer order,
// ascending by counter within each peer. Changes of different peers
// are not put in causal order.
func (log *OpLog) IterChangesBetween(from, to ids.VersionVector) []Change {
	log.mu.Lock()
	defer log.mu.Unlock()

	diff := from.Diff(to)
	var out []Change
	for _, p := range to.Peers() {
		span, ok := diff.Right[p]
		if !ok {
			continue
		}
		out = append(out, log.iterChangesInLocked(span)...)
	}
	return out
}
