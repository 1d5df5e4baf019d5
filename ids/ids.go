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

// Package ids defines the identifier types shared by every layer of the
// document engine: per-replica peer ids, the (peer, counter) op id, id
// spans, Lamport timestamps, and the frontiers/version-vector pair used
// to name a version of the document.
package ids

import (
	"fmt"

	"github.com/google/uuid"
)

// PeerID identifies a replica. Chosen randomly by NewPeerID, or assigned
// by the caller (e.g. a fixed id per device).
type PeerID uint64

// NewPeerID draws a random, non-zero peer id. Randomness is sourced from
// a UUID rather than math/rand so peer ids are safe to mint concurrently
// across processes without any shared seed.
func NewPeerID() PeerID {
	for {
		u := uuid.New()
		lo := uint64(0)
		for _, b := range u[8:] {
			lo = lo<<8 | uint64(b)
		}
		if lo != 0 {
			return PeerID(lo)
		}
	}
}

// Counter is a per-peer monotonic op sequence number, starting at 0.
type Counter = int32

// ID names a single op: the peer that authored it and its counter.
type ID struct {
	Peer    PeerID
	Counter Counter
}

// Less orders IDs lexicographically by (peer, counter). This is a total
// order used for tie-breaking (e.g. equal-Lamport conflict resolution),
// not the causal order — causality is answered by the DAG, not by ID.Less.
func (a ID) Less(b ID) bool {
	if a.Peer != b.Peer {
		return a.Peer < b.Peer
	}
	return a.Counter < b.Counter
}

func (a ID) Equal(b ID) bool {
	return a.Peer == b.Peer && a.Counter == b.Counter
}

func (id ID) String() string {
	return fmt.Sprintf("%d@%d", id.Counter, id.Peer)
}

// Inc returns the ID n counters after id.
func (id ID) Inc(n int32) ID {
	return ID{Peer: id.Peer, Counter: id.Counter + n}
}

// IdSpan names a contiguous, half-open run of counters for one peer:
// [Start, End).
type IdSpan struct {
	Peer  PeerID
	Start Counter
	End   Counter // exclusive
}

func (s IdSpan) Len() int {
	return int(s.End - s.Start)
}

func (s IdSpan) IsEmpty() bool {
	return s.End <= s.Start
}

// Contains reports whether id falls within the span.
func (s IdSpan) Contains(id ID) bool {
	return id.Peer == s.Peer && id.Counter >= s.Start && id.Counter < s.End
}

// ContainsSpan reports whether other is entirely covered by s.
func (s IdSpan) ContainsSpan(other IdSpan) bool {
	return s.Peer == other.Peer && other.Start >= s.Start && other.End <= s.End
}

// Overlaps reports whether the two spans share any counters.
func (s IdSpan) Overlaps(other IdSpan) bool {
	return s.Peer == other.Peer && s.Start < other.End && other.Start < s.End
}

// Intersect returns the overlapping portion of s and other, and whether
// there was one.
func (s IdSpan) Intersect(other IdSpan) (IdSpan, bool) {
	if s.Peer != other.Peer {
		return IdSpan{}, false
	}
	start := s.Start
	if other.Start > start {
		start = other.Start
	}
	end := s.End
	if other.End < end {
		end = other.End
	}
	if start >= end {
		return IdSpan{}, false
	}
	return IdSpan{Peer: s.Peer, Start: start, End: end}, true
}

// Mergeable reports whether other can be appended directly after s to
// form one contiguous span (same peer, other.Start == s.End).
func (s IdSpan) Mergeable(other IdSpan) bool {
	return s.Peer == other.Peer && other.Start == s.End
}

// First returns the ID of the span's first counter.
func (s IdSpan) First() ID {
	return ID{Peer: s.Peer, Counter: s.Start}
}

// Last returns the ID of the span's last counter (End-1); panics if the
// span is empty.
func (s IdSpan) Last() ID {
	if s.IsEmpty() {
		panic("ids: Last of empty IdSpan")
	}
	return ID{Peer: s.Peer, Counter: s.End - 1}
}

func (s IdSpan) String() string {
	return fmt.Sprintf("%d@[%d,%d)", s.Peer, s.Start, s.End)
}

// Lamport is a 32-bit logical clock: every op has one, and
// max(deps.lamport)+1 <= change.lamport.
type Lamport = uint32

// IdLp pairs a Lamport timestamp with the peer of the op that produced
// it, the tie-break key used by every LWW container (Map, MovableList
// Set/Move, Tree Move): higher lamport wins, ties broken by peer.
type IdLp struct {
	Lamport Lamport
	Peer    PeerID
}

// Greater reports whether a should win over b under the (lamport,
// peer) LWW rule used throughout the container CRDTs.
func (a IdLp) Greater(b IdLp) bool {
	if a.Lamport != b.Lamport {
		return a.Lamport > b.Lamport
	}
	return a.Peer > b.Peer
}
