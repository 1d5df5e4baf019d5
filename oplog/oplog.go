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
	"sync"

	"github.com/launix-de/NonLockingReadMap"

	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/rleutil"
)

// peerChanges is the NonLockingReadMap element for one peer's ordered,
// append-only Change history.
type peerChanges struct {
	peer ids.PeerID
	list []Change
}

func (p peerChanges) GetKey() ids.PeerID { return p.peer }
func (p peerChanges) ComputeSize() uint {
	n := uint(32)
	for _, c := range p.list {
		n += 48 + uint(len(c.Ops))*24
	}
	return n
}

// DependencyMissingError is returned by ImportRemote when a change
// depends on ops this log hasn't seen yet; the caller is expected to
// fetch Missing and retry the import.
type DependencyMissingError struct {
	Missing ids.Frontiers
}

func (e *DependencyMissingError) Error() string {
	return "oplog: missing dependencies, cannot import change out of causal order"
}

// OpLog is the append-only per-peer change log and the causal DAG
// derived from it. All exported methods are safe for concurrent use.
type OpLog struct {
	mu sync.Mutex

	changes NonLockingReadMap.NonLockingReadMap[peerChanges, ids.PeerID]
	dag     NonLockingReadMap.NonLockingReadMap[peerDag, ids.PeerID]

	vv        ids.VersionVector
	frontiers ids.Frontiers

	nextLamport     ids.Lamport
	latestTimestamp int64

	MergeInterval int64 // seconds; see mergePolicy.maxInterval
}

func New() *OpLog {
	return &OpLog{
		changes:       NonLockingReadMap.New[peerChanges, ids.PeerID](),
		dag:           NonLockingReadMap.New[peerDag, ids.PeerID](),
		vv:            ids.NewVersionVector(),
		MergeInterval: defaultMergePolicy.maxInterval,
	}
}

// VV returns a snapshot of the current version vector.
func (log *OpLog) VV() ids.VersionVector { return log.vv.Clone() }

// Frontiers returns a snapshot of the current frontiers.
func (log *OpLog) Frontiers() ids.Frontiers { return log.frontiers.Clone() }

// NextLamport returns the Lamport timestamp the next locally-authored
// change would receive given the current frontiers.
func (log *OpLog) NextLamport() ids.Lamport { return log.nextLamport }

// ImportLocal appends a change authored by this process. The caller
// has already stamped change.Deps with the current Frontiers() and
// change.Lamport with NextLamport(); ImportLocal trusts that and never
// returns DependencyMissingError.
func (log *OpLog) ImportLocal(change Change) {
	log.mu.Lock()
	defer log.mu.Unlock()
	log.insert(change)
}

// ImportRemote imports a change received from another peer. Returns
// *DependencyMissingError if change.Deps aren't all present in the
// current version vector; the change is not recorded in that case.
func (log *OpLog) ImportRemote(change Change) error {
	log.mu.Lock()
	defer log.mu.Unlock()

	if log.vv.IncludesSpan(change.IDSpan()) {
		return nil // already have it
	}
	var missing ids.Frontiers
	for _, dep := range change.Deps {
		if !log.vv.Includes(dep) {
			missing = append(missing, dep)
		}
	}
	if change.ID.Counter > log.vv.Get(change.ID.Peer) {
		missing = append(missing, ids.ID{Peer: change.ID.Peer, Counter: log.vv.Get(change.ID.Peer)})
	}
	if len(missing) > 0 {
		return &DependencyMissingError{Missing: missing}
	}
	log.insert(change)
	return nil
}

// insert records change in both the per-peer change list and the
// causal DAG, and advances vv/frontiers/nextLamport. Caller holds mu.
func (log *OpLog) insert(change Change) {
	pc := log.changes.Get(change.ID.Peer)
	list := []Change{change}
	if pc != nil {
		if n := len(pc.list); n > 0 && canMergeInto(pc.list[n-1], change, mergePolicy{maxInterval: log.MergeInterval}) {
			list = append(append([]Change(nil), pc.list[:n-1]...), mergeChanges(pc.list[n-1], change))
		} else {
			list = append(append([]Change(nil), pc.list...), change)
		}
	}
	log.changes.Set(&peerChanges{peer: change.ID.Peer, list: list})

	pd := log.dag.Get(change.ID.Peer)
	vec := rleutil.NewVec[DagNode]()
	if pd != nil {
		for _, run := range pd.vec.Runs() {
			vec.Push(run)
		}
	}
	vec.Push(DagNode{IDSpan: change.IDSpan(), Deps: change.Deps, LamportStart: change.Lamport})
	log.dag.Set(&peerDag{peer: change.ID.Peer, vec: *vec})

	span := change.IDSpan()
	log.vv.ExtendToIncludeSpan(span)
	log.frontiers = advanceFrontiers(log.frontiers, change)
	if last := change.LastLamport() + 1; last > log.nextLamport {
		log.nextLamport = last
	}
	if change.Timestamp > log.latestTimestamp {
		log.latestTimestamp = change.Timestamp
	}
}

// advanceFrontiers drops any frontier id that change now depends on
// and adds change's own last id.
func advanceFrontiers(f ids.Frontiers, change Change) ids.Frontiers {
	out := make(ids.Frontiers, 0, len(f)+1)
	for _, id := range f {
		dominated := false
		for _, dep := range change.Deps {
			if id.Equal(dep) {
				dominated = true
				break
			}
		}
		if !dominated {
			out = append(out, id)
		}
	}
	return append(out, change.LastID())
}

// IterChangesIn returns every Change (or change fragment) whose id
// span intersects span, the fragments trimmed to span's bounds.
func (log *OpLog) IterChangesIn(span ids.IdSpan) []Change {
	log.mu.Lock()
	defer log.mu.Unlock()
	return log.iterChangesInLocked(span)
}

// sliceChange trims change to the counters in span (a subset of
// change's own span), re-deriving Lamport/Deps for the fragment.
func sliceChange(c Change, span ids.IdSpan) Change {
	startOffset := int(span.Start - c.ID.Counter)
	endOffset := int(span.End - c.ID.Counter)

	var ops []Op
	pos := 0
	for _, op := range c.Ops {
		opEnd := pos + op.Len()
		if opEnd <= startOffset || pos >= endOffset {
			pos = opEnd
			continue
		}
		ops = append(ops, op)
		pos = opEnd
	}

	deps := c.Deps
	if startOffset > 0 {
		deps = ids.Frontiers{{Peer: c.ID.Peer, Counter: span.Start - 1}}
	}
	return Change{
		ID:        span.First(),
		Lamport:   c.Lamport + ids.Lamport(startOffset),
		Timestamp: c.Timestamp,
		Deps:      deps,
		Ops:       ops,
		Msg:       c.Msg,
	}
}

// GetLamportAt returns the Lamport timestamp of id, if known.
func (log *OpLog) GetLamportAt(id ids.ID) (ids.Lamport, bool) {
	log.mu.Lock()
	defer log.mu.Unlock()
	pd := log.dag.Get(id.Peer)
	if pd == nil {
		return 0, false
	}
	return lamportOf(pd, id)
}

// ExportUpdates encodes every change not yet included in fromVV.
func (log *OpLog) ExportUpdates(fromVV ids.VersionVector) []byte {
	log.mu.Lock()
	defer log.mu.Unlock()

	diff := fromVV.Diff(log.vv)
	peers := make([]ids.PeerID, 0, len(diff.Right))
	for p := range diff.Right {
		peers = append(peers, p)
	}
	sort.Slice(peers, func(i, j int) bool { return peers[i] < peers[j] })

	var changes []Change
	for _, p := range peers {
		changes = append(changes, log.iterChangesInLocked(diff.Right[p])...)
	}
	return EncodeUpdates(changes)
}

// iterChangesInLocked is IterChangesIn without re-acquiring mu.
func (log *OpLog) iterChangesInLocked(span ids.IdSpan) []Change {
	pc := log.changes.Get(span.Peer)
	if pc == nil {
		return nil
	}
	var out []Change
	for _, c := range pc.list {
		cSpan := c.IDSpan()
		inter, ok := cSpan.Intersect(span)
		if !ok {
			continue
		}
		if inter == cSpan {
			out = append(out, c)
			continue
		}
		out = append(out, sliceChange(c, inter))
	}
	return out
}

// ImportUpdatesBlob decodes an ExportUpdates blob and imports each
// change with ImportRemote, stopping at the first missing dependency.
func (log *OpLog) ImportUpdatesBlob(blob []byte) error {
	changes, err := DecodeUpdates(blob)
	if err != nil {
		return err
	}
	for _, c := range changes {
		if err := log.ImportRemote(c); err != nil {
			return err
		}
	}
	return nil
}
