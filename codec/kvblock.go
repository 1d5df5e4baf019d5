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
package codec

import (
	"bytes"
	"encoding/binary"
	"sort"
	"strconv"

	"github.com/OneOfOne/xxhash"
	"github.com/pierrec/lz4/v4"
)

// kvblock.go implements the KV-block SSTable: a sorted, append-only,
// block-chunked key-value file used to page change-store blocks and
// large container snapshots to disk without loading the whole
// document into memory. Layout, after the common codec header:
//
//	[Block Chunk]...[Block Meta][Meta Offset u32]
//
// A Block Chunk is either a Normal Block (many small key-value pairs,
// shared-prefix compressed and then LZ4-compressed) or a Large Value
// Block (one oversized value, stored raw). Block Meta records each
// block's offset, key range and kind so a reader can binary-search
// straight to the block holding a key without scanning the file.

const (
	largeValueThreshold = 4096 // values at or above this size get their own block
	blockSizeTarget     = 4096 // target uncompressed bytes per normal block before flush
)

type blockMeta struct {
	offset   uint32
	firstKey []byte
	isLarge  bool
	lastKey  []byte // empty when isLarge
}

// KVWriter builds a KV-block SSTable from keys inserted in ascending
// order. Callers must insert keys in sorted order; KVWriter does not
// re-sort.
type KVWriter struct {
	pending     []kvPair
	pendingSize int
	blocks      bytes.Buffer
	metas       []blockMeta
}

type kvPair struct {
	key, value []byte
}

func NewKVWriter() *KVWriter {
	return &KVWriter{}
}

// Put appends a key-value pair. Keys must be inserted in strictly
// ascending order.
func (w *KVWriter) Put(key, value []byte) {
	if len(value) >= largeValueThreshold {
		w.flush()
		w.writeLargeBlock(key, value)
		return
	}
	w.pending = append(w.pending, kvPair{key: append([]byte(nil), key...), value: append([]byte(nil), value...)})
	w.pendingSize += len(key) + len(value)
	if w.pendingSize >= blockSizeTarget {
		w.flush()
	}
}

func (w *KVWriter) flush() {
	if len(w.pending) == 0 {
		return
	}
	offset := uint32(w.blocks.Len())
	raw := encodeNormalBlockRaw(w.pending)
	w.blocks.Write(compressAndChecksum(raw))

	w.metas = append(w.metas, blockMeta{
		offset:   offset,
		firstKey: w.pending[0].key,
		isLarge:  false,
		lastKey:  w.pending[len(w.pending)-1].key,
	})
	w.pending = w.pending[:0]
	w.pendingSize = 0
}

func (w *KVWriter) writeLargeBlock(key, value []byte) {
	offset := uint32(w.blocks.Len())
	block := appendChecksum(value)
	w.blocks.Write(block)
	w.metas = append(w.metas, blockMeta{
		offset:   offset,
		firstKey: append([]byte(nil), key...),
		isLarge:  true,
	})
}

// Finish flushes any pending block and returns the complete encoded
// SSTable.
func (w *KVWriter) Finish() []byte {
	w.flush()

	buf := writeHeader(nil, ModeKVStore)
	buf = append(buf, w.blocks.Bytes()...)

	metaOffset := uint32(len(buf))
	buf = appendBlockMetaSection(buf, w.metas)
	buf = binary.LittleEndian.AppendUint32(buf, metaOffset)
	return buf
}

// KVReader reads a KV-block SSTable produced by KVWriter, supporting
// point lookups (via binary search over block ranges) and ordered
// prefix scans.
type KVReader struct {
	data        []byte
	blocksStart int
	metas       []blockMeta

	sourceID string
	cache    *BlockCache
}

func OpenKVStore(data []byte) (*KVReader, error) {
	return OpenKVStoreCached(data, "", nil)
}

// OpenKVStoreCached is OpenKVStore but decompressed blocks are looked up
// in and stored back into cache, keyed by sourceID plus the block's
// offset, so repeated reads of the same SSTable (e.g. paging a single
// peer's history blocks back in one at a time) don't re-run LZ4 and
// checksum verification on every call. cache may be nil to disable
// caching, matching plain OpenKVStore.
func OpenKVStoreCached(data []byte, sourceID string, cache *BlockCache) (*KVReader, error) {
	h, rest, err := readHeader(data)
	if err != nil {
		return nil, err
	}
	if h.Mode != ModeKVStore {
		return nil, &SchemaMismatchError{Want: ModeKVStore, Got: h.Mode}
	}
	blocksStart := len(data) - len(rest)

	if len(data) < blocksStart+4 {
		return nil, &DecodeError{Reason: "truncated kv store: missing meta offset"}
	}
	metaOffset := binary.LittleEndian.Uint32(data[len(data)-4:])
	if int(metaOffset) > len(data)-4 {
		return nil, &DecodeError{Reason: "kv store meta offset out of range"}
	}
	metas, err := parseBlockMetaSection(data[metaOffset : len(data)-4])
	if err != nil {
		return nil, err
	}
	return &KVReader{data: data, blocksStart: blocksStart, metas: metas, sourceID: sourceID, cache: cache}, nil
}

// Get returns the value for key, or (nil, false) if absent.
func (r *KVReader) Get(key []byte) ([]byte, bool) {
	idx := sort.Search(len(r.metas), func(i int) bool {
		return bytes.Compare(r.metas[i].firstKey, key) > 0
	}) - 1
	if idx < 0 {
		return nil, false
	}
	return r.lookupInBlock(idx, key)
}

func (r *KVReader) lookupInBlock(idx int, key []byte) ([]byte, bool) {
	m := r.metas[idx]
	raw := r.blockRaw(m, idx)
	if m.isLarge {
		if bytes.Equal(m.firstKey, key) {
			return raw, true
		}
		return nil, false
	}
	pairs, err := decodeNormalBlockRaw(raw)
	if err != nil {
		return nil, false
	}
	i := sort.Search(len(pairs), func(i int) bool { return bytes.Compare(pairs[i].key, key) >= 0 })
	if i < len(pairs) && bytes.Equal(pairs[i].key, key) {
		return pairs[i].value, true
	}
	return nil, false
}

// blockRaw returns the decoded (decompressed, checksum-verified) bytes
// of block m: the raw value for a large block, or the raw encoded
// key-value chunk region for a normal block.
func (r *KVReader) blockRaw(m blockMeta, idx int) []byte {
	cacheKey := ""
	if r.cache != nil {
		cacheKey = r.sourceID + "#" + strconv.FormatUint(uint64(m.offset), 10)
		if cached := r.cache.Get(cacheKey); cached != nil {
			return cached
		}
	}

	start := r.blocksStart + int(m.offset)
	end := r.metaSectionStart()
	if idx+1 < len(r.metas) {
		end = r.blocksStart + int(r.metas[idx+1].offset)
	}
	compressed := r.data[start:end]

	var raw []byte
	if m.isLarge {
		value, err := verifyAndStripChecksum(compressed)
		if err != nil {
			return nil
		}
		raw = value
	} else {
		decoded, err := decompressAndVerify(compressed)
		if err != nil {
			return nil
		}
		raw = decoded
	}

	if r.cache != nil {
		r.cache.Put(cacheKey, raw)
	}
	return raw
}

func (r *KVReader) metaSectionStart() int {
	metaOffset := binary.LittleEndian.Uint32(r.data[len(r.data)-4:])
	return int(metaOffset)
}

// All returns every key-value pair in ascending key order.
func (r *KVReader) All() []struct {
	Key, Value []byte
} {
	var out []struct {
		Key, Value []byte
	}
	for i, m := range r.metas {
		raw := r.blockRaw(m, i)
		if m.isLarge {
			out = append(out, struct{ Key, Value []byte }{m.firstKey, raw})
			continue
		}
		pairs, err := decodeNormalBlockRaw(raw)
		if err != nil {
			continue
		}
		for _, p := range pairs {
			out = append(out, struct{ Key, Value []byte }{p.key, p.value})
		}
	}
	return out
}

// ScanPrefix returns every key-value pair whose key starts with prefix,
// in ascending key order.
func (r *KVReader) ScanPrefix(prefix []byte) []struct {
	Key, Value []byte
} {
	var out []struct {
		Key, Value []byte
	}
	for _, kv := range r.All() {
		if bytes.HasPrefix(kv.Key, prefix) {
			out = append(out, kv)
		}
	}
	return out
}

// --- normal block raw (pre-compression) encode/decode ---

func encodeNormalBlockRaw(pairs []kvPair) []byte {
	var chunkData bytes.Buffer
	offsets := make([]uint16, len(pairs))
	var prevKey []byte
	for i, p := range pairs {
		offsets[i] = uint16(chunkData.Len())
		commonLen := commonPrefixLen(prevKey, p.key)
		if commonLen > 255 {
			commonLen = 255
		}
		chunkData.WriteByte(byte(commonLen))
		suffix := p.key[commonLen:]
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(suffix)))
		chunkData.Write(lenBuf[:])
		chunkData.Write(suffix)
		chunkData.Write(p.value)
		prevKey = p.key
	}

	buf := chunkData.Bytes()
	for _, off := range offsets {
		buf = binary.LittleEndian.AppendUint16(buf, off)
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(pairs)))
	return buf
}

func decodeNormalBlockRaw(raw []byte) ([]kvPair, error) {
	if len(raw) < 2 {
		return nil, &DecodeError{Reason: "kv block shorter than count field"}
	}
	count := int(binary.LittleEndian.Uint16(raw[len(raw)-2:]))
	offsetsEnd := len(raw) - 2
	offsetsStart := offsetsEnd - count*2
	if offsetsStart < 0 {
		return nil, &DecodeError{Reason: "kv block offsets out of range"}
	}
	chunkData := raw[:offsetsStart]

	offsets := make([]int, count)
	for i := 0; i < count; i++ {
		offsets[i] = int(binary.LittleEndian.Uint16(raw[offsetsStart+i*2 : offsetsStart+i*2+2]))
	}

	pairs := make([]kvPair, count)
	var prevKey []byte
	for i := 0; i < count; i++ {
		start := offsets[i]
		end := len(chunkData)
		if i+1 < count {
			end = offsets[i+1]
		}
		chunk := chunkData[start:end]
		if len(chunk) < 3 {
			return nil, &DecodeError{Reason: "kv chunk shorter than header"}
		}
		commonLen := int(chunk[0])
		suffixLen := int(binary.LittleEndian.Uint16(chunk[1:3]))
		if commonLen > len(prevKey) || 3+suffixLen > len(chunk) {
			return nil, &DecodeError{Reason: "kv chunk key/value out of range"}
		}
		key := make([]byte, commonLen+suffixLen)
		copy(key, prevKey[:commonLen])
		copy(key[commonLen:], chunk[3:3+suffixLen])
		value := chunk[3+suffixLen:]
		pairs[i] = kvPair{key: key, value: value}
		prevKey = key
	}
	return pairs, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// --- block meta section encode/decode ---

func appendBlockMetaSection(buf []byte, metas []blockMeta) []byte {
	start := len(buf)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(metas)))
	for _, m := range metas {
		buf = binary.LittleEndian.AppendUint32(buf, m.offset)
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(m.firstKey)))
		buf = append(buf, m.firstKey...)
		if m.isLarge {
			buf = append(buf, 1)
		} else {
			buf = append(buf, 0)
			buf = binary.LittleEndian.AppendUint16(buf, uint16(len(m.lastKey)))
			buf = append(buf, m.lastKey...)
		}
	}
	sum := xxhash.Checksum32(buf[start:])
	buf = binary.LittleEndian.AppendUint32(buf, sum)
	return buf
}

func parseBlockMetaSection(section []byte) ([]blockMeta, error) {
	if len(section) < 4 {
		return nil, &DecodeError{Reason: "block meta section too short"}
	}
	payload := section[:len(section)-4]
	sum := binary.LittleEndian.Uint32(section[len(section)-4:])
	if xxhash.Checksum32(payload) != sum {
		return nil, &DecodeError{Reason: "block meta checksum mismatch"}
	}

	if len(payload) < 4 {
		return nil, &DecodeError{Reason: "block meta count missing"}
	}
	count := binary.LittleEndian.Uint32(payload[:4])
	pos := 4
	metas := make([]blockMeta, 0, count)
	for i := uint32(0); i < count; i++ {
		if pos+4+2 > len(payload) {
			return nil, &DecodeError{Reason: "block meta entry truncated"}
		}
		offset := binary.LittleEndian.Uint32(payload[pos:])
		pos += 4
		firstKeyLen := int(binary.LittleEndian.Uint16(payload[pos:]))
		pos += 2
		if pos+firstKeyLen+1 > len(payload) {
			return nil, &DecodeError{Reason: "block meta first key truncated"}
		}
		firstKey := payload[pos : pos+firstKeyLen]
		pos += firstKeyLen
		isLarge := payload[pos] != 0
		pos++

		m := blockMeta{offset: offset, firstKey: firstKey, isLarge: isLarge}
		if !isLarge {
			if pos+2 > len(payload) {
				return nil, &DecodeError{Reason: "block meta last key length truncated"}
			}
			lastKeyLen := int(binary.LittleEndian.Uint16(payload[pos:]))
			pos += 2
			if pos+lastKeyLen > len(payload) {
				return nil, &DecodeError{Reason: "block meta last key truncated"}
			}
			m.lastKey = payload[pos : pos+lastKeyLen]
			pos += lastKeyLen
		}
		metas = append(metas, m)
	}
	return metas, nil
}

// --- shared LZ4 + xxhash_32 block framing ---

// compressAndChecksum LZ4-compresses raw (prefixed with its
// decompressed length, since LZ4's block API needs the output size up
// front) and appends an xxhash_32 checksum over the compressed bytes.
func compressAndChecksum(raw []byte) []byte {
	bound := lz4.CompressBlockBound(len(raw))
	dst := make([]byte, bound)
	var c lz4.Compressor
	n, err := c.CompressBlock(raw, dst)
	var body []byte
	if err != nil || n == 0 || n >= len(raw) {
		// incompressible or compression declined: store raw with a
		// sentinel length of 0 meaning "store follows uncompressed".
		body = binary.LittleEndian.AppendUint32(nil, 0)
		body = append(body, raw...)
	} else {
		body = binary.LittleEndian.AppendUint32(nil, uint32(len(raw)))
		body = append(body, dst[:n]...)
	}
	return appendChecksum(body)
}

func decompressAndVerify(block []byte) ([]byte, error) {
	body, err := verifyAndStripChecksum(block)
	if err != nil {
		return nil, err
	}
	if len(body) < 4 {
		return nil, &DecodeError{Reason: "compressed block shorter than length prefix"}
	}
	rawLen := binary.LittleEndian.Uint32(body[:4])
	payload := body[4:]
	if rawLen == 0 {
		return payload, nil
	}
	dst := make([]byte, rawLen)
	n, err := lz4.UncompressBlock(payload, dst)
	if err != nil {
		return nil, &DecodeError{Reason: "lz4 decompress failed: " + err.Error()}
	}
	return dst[:n], nil
}

func appendChecksum(body []byte) []byte {
	sum := xxhash.Checksum32(body)
	return binary.LittleEndian.AppendUint32(body, sum)
}

func verifyAndStripChecksum(block []byte) ([]byte, error) {
	if len(block) < 4 {
		return nil, &DecodeError{Reason: "block shorter than checksum"}
	}
	body := block[:len(block)-4]
	sum := binary.LittleEndian.Uint32(block[len(block)-4:])
	if xxhash.Checksum32(body) != sum {
		return nil, &DecodeError{Reason: "block checksum mismatch"}
	}
	return body, nil
}
