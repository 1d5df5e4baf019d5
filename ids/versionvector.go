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
package ids

import "sort"

// VersionVector maps each peer to its next-counter (an exclusive end):
// "I have seen counters [0, v) from this peer." A zero value (the
// type's zero value) is the empty vector, the version before anything
// has happened.
type VersionVector struct {
	m map[PeerID]Counter
}

func NewVersionVector() VersionVector {
	return VersionVector{m: make(map[PeerID]Counter)}
}

// Get returns the next-counter for peer, 0 if unknown.
func (vv VersionVector) Get(peer PeerID) Counter {
	if vv.m == nil {
		return 0
	}
	return vv.m[peer]
}

// Set records that vv has seen peer's counters up to (but excluding) n.
func (vv *VersionVector) Set(peer PeerID, n Counter) {
	if vv.m == nil {
		vv.m = make(map[PeerID]Counter)
	}
	if n <= 0 {
		delete(vv.m, peer)
		return
	}
	vv.m[peer] = n
}

// Extend advances peer's next-counter to at least n.
func (vv *VersionVector) Extend(peer PeerID, n Counter) {
	if n > vv.Get(peer) {
		vv.Set(peer, n)
	}
}

// ExtendToInclude advances vv to include id (i.e. Get(id.Peer) becomes
// at least id.Counter+1).
func (vv *VersionVector) ExtendToInclude(id ID) {
	vv.Extend(id.Peer, id.Counter+1)
}

// ExtendToIncludeSpan advances vv to include every counter in span.
func (vv *VersionVector) ExtendToIncludeSpan(span IdSpan) {
	vv.Extend(span.Peer, span.End)
}

// Includes reports whether vv has seen id.
func (vv VersionVector) Includes(id ID) bool {
	return id.Counter < vv.Get(id.Peer)
}

// IncludesSpan reports whether vv has seen every counter in span.
func (vv VersionVector) IncludesSpan(span IdSpan) bool {
	return span.End <= vv.Get(span.Peer)
}

// Peers returns the peers with a non-zero entry, in ascending order.
func (vv VersionVector) Peers() []PeerID {
	peers := make([]PeerID, 0, len(vv.m))
	for p := range vv.m {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })
	return peers
}

// Clone returns an independent copy of vv.
func (vv VersionVector) Clone() VersionVector {
	out := NewVersionVector()
	for p, n := range vv.m {
		out.m[p] = n
	}
	return out
}

// Merge returns a new VersionVector that is the pointwise max of vv and
// other.
func (vv VersionVector) Merge(other VersionVector) VersionVector {
	out := vv.Clone()
	for p, n := range other.m {
		out.Extend(p, n)
	}
	return out
}

// VVDiff holds the counters present only on the left or only on the
// right side of a VersionVector.Diff call, per peer.
type VVDiff struct {
	Left  map[PeerID]IdSpan
	Right map[PeerID]IdSpan
}

// Diff returns, for every peer mentioned by either vv or other, the
// counter range present only in vv ("left") and only in other
// ("right").
func (vv VersionVector) Diff(other VersionVector) VVDiff {
	out := VVDiff{Left: map[PeerID]IdSpan{}, Right: map[PeerID]IdSpan{}}
	seen := map[PeerID]bool{}
	for p := range vv.m {
		seen[p] = true
	}
	for p := range other.m {
		seen[p] = true
	}
	for p := range seen {
		a, b := vv.Get(p), other.Get(p)
		if a > b {
			out.Left[p] = IdSpan{Peer: p, Start: b, End: a}
		} else if b > a {
			out.Right[p] = IdSpan{Peer: p, Start: a, End: b}
		}
	}
	return out
}

// IncludesVV reports whether vv >= other pointwise (every counter other
// has seen, vv has also seen).
func (vv VersionVector) IncludesVV(other VersionVector) bool {
	for p, n := range other.m {
		if vv.Get(p) < n {
			return false
		}
	}
	return true
}

// Equal reports whether vv and other record the same seen counters.
func (vv VersionVector) Equal(other VersionVector) bool {
	return vv.IncludesVV(other) && other.IncludesVV(vv)
}
