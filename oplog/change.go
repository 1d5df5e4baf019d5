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

// Change is a transaction: one or more Ops committed together by one
// peer, with the Lamport timestamp and causal Deps of its first op.
// Every later op in the change is implicitly dependent on the one
// before it, so Deps only needs to name cross-peer/cross-change
// dependencies.
type Change struct {
	ID        ids.ID
	Lamport   ids.Lamport
	Timestamp int64 // unix seconds, wall-clock, advisory only
	Deps      ids.Frontiers
	Ops       []Op
	Msg       string
}

// Len returns the number of counters this change spans.
func (c Change) Len() int {
	n := 0
	for _, op := range c.Ops {
		n += op.Len()
	}
	return n
}

// IDSpan returns the contiguous counter range this change occupies.
func (c Change) IDSpan() ids.IdSpan {
	return ids.IdSpan{Peer: c.ID.Peer, Start: c.ID.Counter, End: c.ID.Counter + ids.Counter(c.Len())}
}

// LastID returns the id of the change's last counter.
func (c Change) LastID() ids.ID {
	return c.ID.Inc(int32(c.Len()) - 1)
}

// LastLamport returns the Lamport timestamp of the change's last
// counter.
func (c Change) LastLamport() ids.Lamport {
	return c.Lamport + ids.Lamport(c.Len()) - 1
}

// mergePolicy bounds when Append folds a new change into the previous
// one instead of storing it as a separate entry, mirroring the
// change-merging rule: same peer, contiguous counters, close enough in
// wall-clock time, and the continuing change doesn't carry a commit
// message that should keep it separately addressable.
type mergePolicy struct {
	maxInterval int64 // seconds; 0 disables time-based merging
}

var defaultMergePolicy = mergePolicy{maxInterval: 60}

// canMergeInto reports whether next can be folded into the end of
// prev under policy.
func canMergeInto(prev, next Change, policy mergePolicy) bool {
	if prev.ID.Peer != next.ID.Peer {
		return false
	}
	if next.ID.Counter != prev.ID.Counter+ids.Counter(prev.Len()) {
		return false
	}
	if next.Msg != "" {
		return false
	}
	if len(next.Deps) != 1 || !next.Deps[0].Equal(prev.LastID()) {
		return false
	}
	if policy.maxInterval > 0 {
		delta := next.Timestamp - prev.Timestamp
		if delta < 0 {
			delta = -delta
		}
		if delta > policy.maxInterval {
			return false
		}
	}
	return true
}

// mergeChanges folds next onto the end of prev; only valid when
// canMergeInto(prev, next, policy) holds.
func mergeChanges(prev, next Change) Change {
	out := prev
	out.Ops = append(append([]Op(nil), prev.Ops...), next.Ops...)
	out.Timestamp = next.Timestamp
	return out
}
