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
	"encoding/binary"
	"sort"

	"github.com/loro-dev/loro-go/codec"
	"github.com/loro-dev/loro-go/ids"
)

// changestore.go groups a log's changes into ordered, immutable blocks
// backed by the KV-block SSTable (codec/kvblock.go) instead of one flat
// ExportUpdates blob. A snapshot only needs recent history resident to
// answer Checkout/diff queries near the current frontiers; older blocks
// stay on disk (or in a Backend) until a caller actually asks for a
// span that falls inside them, at which point ChangeStore pages that
// one block in and leaves the rest alone.
//
// Keys are 12 bytes: the peer id (8 bytes, big-endian) followed by the
// block's first counter (4 bytes, big-endian), so key order matches
// (peer, counter) order and a reader can binary-search straight to the
// block covering a given ids.IdSpan.

// DefaultChangeStoreBlockSize bounds how many changes go into one
// change-store block before BuildChangeStore starts a new one.
const DefaultChangeStoreBlockSize = 256

// BuildChangeStore packs every change currently in log into a change-
// store blob: one KV-block SSTable entry per run of up to blockSize
// consecutive changes from a single peer. blockSize <= 0 uses
// DefaultChangeStoreBlockSize.
func BuildChangeStore(log *OpLog, blockSize int) []byte {
	log.mu.Lock()
	all := log.changes.GetAll()
	peers := make([]*peerChanges, len(all))
	copy(peers, all)
	log.mu.Unlock()

	byPeer := make(map[ids.PeerID][]Change, len(peers))
	for _, pc := range peers {
		byPeer[pc.peer] = pc.list
	}
	return buildChangeStoreBlocks(byPeer, blockSize)
}

// BuildChangeStoreFromChanges packs an explicit, already-filtered list
// of changes (e.g. the tail IterChangesBetween returns for a shallow
// snapshot) into the same block layout BuildChangeStore produces from
// a full log, so ChangeStore.ImportInto can load either one the same
// way.
func BuildChangeStoreFromChanges(changes []Change, blockSize int) []byte {
	byPeer := make(map[ids.PeerID][]Change)
	for _, c := range changes {
		byPeer[c.ID.Peer] = append(byPeer[c.ID.Peer], c)
	}
	for peer, list := range byPeer {
		sort.Slice(list, func(i, j int) bool { return list[i].ID.Counter < list[j].ID.Counter })
		byPeer[peer] = list
	}
	return buildChangeStoreBlocks(byPeer, blockSize)
}

func buildChangeStoreBlocks(byPeer map[ids.PeerID][]Change, blockSize int) []byte {
	if blockSize <= 0 {
		blockSize = DefaultChangeStoreBlockSize
	}

	peerIDs := make([]ids.PeerID, 0, len(byPeer))
	for p := range byPeer {
		peerIDs = append(peerIDs, p)
	}
	sort.Slice(peerIDs, func(i, j int) bool { return peerIDs[i] < peerIDs[j] })

	w := codec.NewKVWriter()
	for _, peer := range peerIDs {
		list := byPeer[peer]
		for start := 0; start < len(list); start += blockSize {
			end := start + blockSize
			if end > len(list) {
				end = len(list)
			}
			block := list[start:end]
			w.Put(changeBlockKey(peer, block[0].ID.Counter), EncodeUpdates(block))
		}
	}
	return w.Finish()
}

func changeBlockKey(peer ids.PeerID, startCounter int32) []byte {
	key := make([]byte, 12)
	binary.BigEndian.PutUint64(key[:8], uint64(peer))
	binary.BigEndian.PutUint32(key[8:], uint32(startCounter))
	return key
}

func peerKeyPrefix(peer ids.PeerID) []byte {
	prefix := make([]byte, 8)
	binary.BigEndian.PutUint64(prefix, uint64(peer))
	return prefix
}

// ChangeStore opens a blob built by BuildChangeStore for paged reads.
// A ChangeStore is read-only; rebuilding is always a full
// BuildChangeStore pass, matching the KV-block SSTable it wraps.
type ChangeStore struct {
	kv *codec.KVReader
}

// OpenChangeStore opens a change-store blob. cache may be nil to
// disable decompressed-block caching (see codec.BlockCache); passing a
// shared cache lets repeated Checkout/diff calls against the same
// change store avoid re-decompressing blocks they already paged in.
func OpenChangeStore(blob []byte, sourceID string, cache *codec.BlockCache) (*ChangeStore, error) {
	kv, err := codec.OpenKVStoreCached(blob, sourceID, cache)
	if err != nil {
		return nil, err
	}
	return &ChangeStore{kv: kv}, nil
}

// LoadPeer decodes every block belonging to peer, in counter order.
func (cs *ChangeStore) LoadPeer(peer ids.PeerID) ([]Change, error) {
	entries := cs.kv.ScanPrefix(peerKeyPrefix(peer))
	var out []Change
	for _, e := range entries {
		changes, err := DecodeUpdates(e.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, changes...)
	}
	return out, nil
}

// LoadSpan decodes only the changes (or change fragments) intersecting
// span, without decoding blocks that fall entirely outside it.
func (cs *ChangeStore) LoadSpan(span ids.IdSpan) ([]Change, error) {
	entries := cs.kv.ScanPrefix(peerKeyPrefix(span.Peer))
	var out []Change
	for i, e := range entries {
		blockStart := int32(binary.BigEndian.Uint32(e.Key[8:]))
		if blockStart >= span.End {
			break
		}
		if i+1 < len(entries) && int32(binary.BigEndian.Uint32(entries[i+1].Key[8:])) <= span.Start {
			continue // this block ends before the next one starts, so before span
		}
		changes, err := DecodeUpdates(e.Value)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			continue
		}
		blockEnd := changes[len(changes)-1].LastID().Counter + 1
		blockSpan := ids.IdSpan{Peer: span.Peer, Start: blockStart, End: blockEnd}
		inter, ok := blockSpan.Intersect(span)
		if !ok {
			continue
		}
		for _, c := range changes {
			cSpan := c.IDSpan()
			cInter, ok := cSpan.Intersect(inter)
			if !ok {
				continue
			}
			if cInter == cSpan {
				out = append(out, c)
				continue
			}
			out = append(out, sliceChange(c, cInter))
		}
	}
	return out, nil
}

// ImportInto replays every change recorded in the store into log via
// ImportRemote, in ascending (peer, counter) order; a change whose
// dependencies on another peer are not imported yet is retried after
// the rest, so causal dependencies are satisfied before their
// dependents. Returns the DependencyMissingError of a change whose
// dependencies are absent from the store altogether.
// Used to rehydrate an OpLog from a snapshot's change-store section.
func (cs *ChangeStore) ImportInto(log *OpLog) error {
	var pending []Change
	for _, e := range cs.kv.All() {
		changes, err := DecodeUpdates(e.Value)
		if err != nil {
			return err
		}
		pending = append(pending, changes...)
	}
	for len(pending) > 0 {
		var deferred []Change
		var lastErr error
		for _, c := range pending {
			if err := log.ImportRemote(c); err != nil {
				deferred, lastErr = append(deferred, c), err
			}
		}
		if len(deferred) == len(pending) {
			return lastErr
		}
		pending = deferred
	}
	return nil
}
