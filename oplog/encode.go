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
	"fmt"
	"math"

	"github.com/loro-dev/loro-go/codec"
	"github.com/loro-dev/loro-go/ids"
)

// EncodeUpdates frames changes behind the common codec header in
// ModeUpdates: a uint32 change count, then each change with its own
// length-prefixed fields (mirrors codec/kvblock.go's own style of
// manual length-prefixed framing rather than a general-purpose
// serialization library — no library in the dependency set specializes
// in content-addressed CRDT op encoding).
func EncodeUpdates(changes []Change) []byte {
	buf := codec.WriteHeader(codec.ModeUpdates)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(changes)))
	for _, c := range changes {
		buf = appendChange(buf, c)
	}
	return buf
}

// DecodeUpdates parses a blob produced by EncodeUpdates.
func DecodeUpdates(blob []byte) ([]Change, error) {
	rest, err := codec.ReadHeader(blob, codec.ModeUpdates)
	if err != nil {
		return nil, err
	}
	if len(rest) < 4 {
		return nil, &codec.DecodeError{Reason: "updates blob missing change count"}
	}
	count := binary.LittleEndian.Uint32(rest)
	rest = rest[4:]

	changes := make([]Change, 0, count)
	for i := uint32(0); i < count; i++ {
		var c Change
		c, rest, err = readChange(rest)
		if err != nil {
			return nil, err
		}
		changes = append(changes, c)
	}
	return changes, nil
}

func appendChange(buf []byte, c Change) []byte {
	buf = appendID(buf, c.ID)
	buf = binary.LittleEndian.AppendUint32(buf, c.Lamport)
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Timestamp))
	buf = appendFrontiers(buf, c.Deps)
	buf = appendString(buf, c.Msg)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(c.Ops)))
	for _, op := range c.Ops {
		buf = appendOp(buf, op)
	}
	return buf
}

func readChange(buf []byte) (Change, []byte, error) {
	id, buf, err := readID(buf)
	if err != nil {
		return Change{}, nil, err
	}
	if len(buf) < 12 {
		return Change{}, nil, &codec.DecodeError{Reason: "change header truncated"}
	}
	lamport := binary.LittleEndian.Uint32(buf)
	ts := int64(binary.LittleEndian.Uint64(buf[4:]))
	buf = buf[12:]

	deps, buf, err := readFrontiers(buf)
	if err != nil {
		return Change{}, nil, err
	}
	msg, buf, err := readString(buf)
	if err != nil {
		return Change{}, nil, err
	}
	if len(buf) < 4 {
		return Change{}, nil, &codec.DecodeError{Reason: "change op count truncated"}
	}
	opCount := binary.LittleEndian.Uint32(buf)
	buf = buf[4:]

	ops := make([]Op, 0, opCount)
	for i := uint32(0); i < opCount; i++ {
		var op Op
		op, buf, err = readOp(buf)
		if err != nil {
			return Change{}, nil, err
		}
		ops = append(ops, op)
	}
	return Change{ID: id, Lamport: lamport, Timestamp: ts, Deps: deps, Ops: ops, Msg: msg}, buf, nil
}

func appendID(buf []byte, id ids.ID) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(id.Peer))
	return binary.LittleEndian.AppendUint32(buf, uint32(id.Counter))
}

func readID(buf []byte) (ids.ID, []byte, error) {
	if len(buf) < 12 {
		return ids.ID{}, nil, &codec.DecodeError{Reason: "id truncated"}
	}
	peer := ids.PeerID(binary.LittleEndian.Uint64(buf))
	counter := int32(binary.LittleEndian.Uint32(buf[8:]))
	return ids.ID{Peer: peer, Counter: counter}, buf[12:], nil
}

func appendFrontiers(buf []byte, f ids.Frontiers) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(f)))
	for _, id := range f {
		buf = appendID(buf, id)
	}
	return buf
}

func readFrontiers(buf []byte) (ids.Frontiers, []byte, error) {
	if len(buf) < 2 {
		return nil, nil, &codec.DecodeError{Reason: "frontiers count truncated"}
	}
	n := binary.LittleEndian.Uint16(buf)
	buf = buf[2:]
	if n == 0 {
		return nil, buf, nil
	}
	out := make(ids.Frontiers, 0, n)
	for i := uint16(0); i < n; i++ {
		var id ids.ID
		var err error
		id, buf, err = readID(buf)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, id)
	}
	return out, buf, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func readString(buf []byte) (string, []byte, error) {
	if len(buf) < 2 {
		return "", nil, &codec.DecodeError{Reason: "string length truncated"}
	}
	n := int(binary.LittleEndian.Uint16(buf))
	buf = buf[2:]
	if len(buf) < n {
		return "", nil, &codec.DecodeError{Reason: "string body truncated"}
	}
	return string(buf[:n]), buf[n:], nil
}

func appendBytes(buf []byte, b []byte) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func readBytes(buf []byte) ([]byte, []byte, error) {
	if len(buf) < 4 {
		return nil, nil, &codec.DecodeError{Reason: "bytes length truncated"}
	}
	n := int(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	if len(buf) < n {
		return nil, nil, &codec.DecodeError{Reason: "bytes body truncated"}
	}
	return append([]byte(nil), buf[:n]...), buf[n:], nil
}

func appendContainerID(buf []byte, c ids.ContainerID) []byte {
	if c.IsRoot {
		buf = append(buf, 1, byte(c.Type))
		return appendString(buf, c.Name)
	}
	buf = append(buf, 0, byte(c.Type))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(c.Peer))
	return binary.LittleEndian.AppendUint32(buf, uint32(c.Counter))
}

func readContainerID(buf []byte) (ids.ContainerID, []byte, error) {
	if len(buf) < 2 {
		return ids.ContainerID{}, nil, &codec.DecodeError{Reason: "container id truncated"}
	}
	isRoot := buf[0] != 0
	typ := ids.ContainerType(buf[1])
	buf = buf[2:]
	if isRoot {
		name, rest, err := readString(buf)
		if err != nil {
			return ids.ContainerID{}, nil, err
		}
		return ids.RootContainerID(name, typ), rest, nil
	}
	if len(buf) < 12 {
		return ids.ContainerID{}, nil, &codec.DecodeError{Reason: "container id body truncated"}
	}
	peer := ids.PeerID(binary.LittleEndian.Uint64(buf))
	counter := int32(binary.LittleEndian.Uint32(buf[8:]))
	return ids.NormalContainerID(ids.ID{Peer: peer, Counter: counter}, typ), buf[12:], nil
}

// content type tags
const (
	tagInsert         = 1
	tagDelete         = 2
	tagStyleStart     = 3
	tagStyleEnd       = 4
	tagListMove       = 5
	tagListSet        = 6
	tagMapSet         = 7
	tagTreeMove       = 8
	tagTreeDelete     = 9
	tagTreeEmptyTrash = 10
	tagCounterAdd     = 11
	tagUnknown        = 255
)

func appendOp(buf []byte, op Op) []byte {
	buf = appendContainerID(buf, op.Container)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(op.Counter))
	return appendOpContent(buf, op.Content)
}

func readOp(buf []byte) (Op, []byte, error) {
	container, buf, err := readContainerID(buf)
	if err != nil {
		return Op{}, nil, err
	}
	if len(buf) < 4 {
		return Op{}, nil, &codec.DecodeError{Reason: "op counter truncated"}
	}
	counter := int32(binary.LittleEndian.Uint32(buf))
	buf = buf[4:]
	content, buf, err := readOpContent(buf)
	if err != nil {
		return Op{}, nil, err
	}
	return Op{Container: container, Counter: counter, Content: content}, buf, nil
}

func appendOpContent(buf []byte, c OpContent) []byte {
	switch x := c.(type) {
	case InsertContent:
		buf = append(buf, tagInsert)
		buf = appendOptionalID(buf, x.OriginLeft)
		buf = appendOptionalID(buf, x.OriginRight)
		buf = appendBytes(buf, x.Position)
		if x.ValueItems != nil {
			buf = append(buf, 1)
			buf = binary.LittleEndian.AppendUint32(buf, uint32(len(x.ValueItems)))
			for _, v := range x.ValueItems {
				buf = appendValue(buf, v)
			}
			return buf
		}
		buf = append(buf, 0)
		return appendBytes(buf, x.Items)
	case DeleteContent:
		buf = append(buf, tagDelete)
		return appendIdSpan(buf, x.Span)
	case StyleStartContent:
		buf = append(buf, tagStyleStart)
		buf = appendString(buf, x.Key)
		buf = appendValue(buf, x.Value)
		return append(buf, x.Info)
	case StyleEndContent:
		return append(buf, tagStyleEnd)
	case ListMoveContent:
		buf = append(buf, tagListMove)
		buf = appendID(buf, x.Elem)
		return appendBytes(buf, x.Position)
	case ListSetContent:
		buf = append(buf, tagListSet)
		buf = appendID(buf, x.Elem)
		return appendValue(buf, x.Value)
	case MapSetContent:
		buf = append(buf, tagMapSet)
		buf = appendString(buf, x.Key)
		del := byte(0)
		if x.Delete {
			del = 1
		}
		buf = append(buf, del)
		return appendValue(buf, x.Value)
	case TreeMoveContent:
		buf = append(buf, tagTreeMove)
		buf = appendID(buf, x.Target)
		if x.Parent != nil {
			buf = append(buf, 1)
			buf = appendID(buf, *x.Parent)
		} else {
			buf = append(buf, 0)
		}
		return appendBytes(buf, x.Position)
	case TreeDeleteContent:
		buf = append(buf, tagTreeDelete)
		return appendID(buf, x.Target)
	case TreeEmptyTrashContent:
		buf = append(buf, tagTreeEmptyTrash)
		buf = appendFrontiers(buf, x.Nodes)
		return buf
	case CounterAddContent:
		buf = append(buf, tagCounterAdd)
		var tmp [8]byte
		binary.LittleEndian.PutUint64(tmp[:], math.Float64bits(x.Delta))
		return append(buf, tmp[:]...)
	case UnknownContent:
		buf = append(buf, tagUnknown)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(x.Prop))
		return appendBytes(buf, x.Value)
	default:
		panic(fmt.Sprintf("oplog: unencodable op content %T", c))
	}
}

func readOpContent(buf []byte) (OpContent, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, &codec.DecodeError{Reason: "op content tag truncated"}
	}
	tag := buf[0]
	buf = buf[1:]
	switch tag {
	case tagInsert:
		originLeft, buf, err := readOptionalID(buf)
		if err != nil {
			return nil, nil, err
		}
		originRight, buf, err := readOptionalID(buf)
		if err != nil {
			return nil, nil, err
		}
		position, buf, err := readBytes(buf)
		if err != nil {
			return nil, nil, err
		}
		if len(buf) < 1 {
			return nil, nil, &codec.DecodeError{Reason: "insert content kind truncated"}
		}
		kind := buf[0]
		buf = buf[1:]
		if kind == 1 {
			if len(buf) < 4 {
				return nil, nil, &codec.DecodeError{Reason: "insert value count truncated"}
			}
			n := binary.LittleEndian.Uint32(buf)
			buf = buf[4:]
			values := make([]any, 0, n)
			for i := uint32(0); i < n; i++ {
				var v any
				v, buf, err = readValue(buf)
				if err != nil {
					return nil, nil, err
				}
				values = append(values, v)
			}
			return InsertContent{ValueItems: values, OriginLeft: originLeft, OriginRight: originRight, Position: position}, buf, nil
		}
		items, buf, err := readBytes(buf)
		return InsertContent{Items: items, OriginLeft: originLeft, OriginRight: originRight, Position: position}, buf, err
	case tagDelete:
		span, buf, err := readIdSpan(buf)
		return DeleteContent{Span: span}, buf, err
	case tagStyleStart:
		key, buf, err := readString(buf)
		if err != nil {
			return nil, nil, err
		}
		value, buf, err := readValue(buf)
		if err != nil {
			return nil, nil, err
		}
		if len(buf) < 1 {
			return nil, nil, &codec.DecodeError{Reason: "style info byte truncated"}
		}
		return StyleStartContent{Key: key, Value: value, Info: buf[0]}, buf[1:], nil
	case tagStyleEnd:
		return StyleEndContent{}, buf, nil
	case tagListMove:
		elem, buf, err := readID(buf)
		if err != nil {
			return nil, nil, err
		}
		pos, buf, err := readBytes(buf)
		return ListMoveContent{Elem: elem, Position: pos}, buf, err
	case tagListSet:
		elem, buf, err := readID(buf)
		if err != nil {
			return nil, nil, err
		}
		value, buf, err := readValue(buf)
		return ListSetContent{Elem: elem, Value: value}, buf, err
	case tagMapSet:
		key, buf, err := readString(buf)
		if err != nil {
			return nil, nil, err
		}
		if len(buf) < 1 {
			return nil, nil, &codec.DecodeError{Reason: "map set delete flag truncated"}
		}
		del := buf[0] != 0
		buf = buf[1:]
		value, buf, err := readValue(buf)
		return MapSetContent{Key: key, Value: value, Delete: del}, buf, err
	case tagTreeMove:
		target, buf, err := readID(buf)
		if err != nil {
			return nil, nil, err
		}
		if len(buf) < 1 {
			return nil, nil, &codec.DecodeError{Reason: "tree move parent flag truncated"}
		}
		hasParent := buf[0] != 0
		buf = buf[1:]
		var parent *ids.ID
		if hasParent {
			var p ids.ID
			p, buf, err = readID(buf)
			if err != nil {
				return nil, nil, err
			}
			parent = &p
		}
		pos, buf, err := readBytes(buf)
		return TreeMoveContent{Target: target, Parent: parent, Position: pos}, buf, err
	case tagTreeDelete:
		target, buf, err := readID(buf)
		return TreeDeleteContent{Target: target}, buf, err
	case tagTreeEmptyTrash:
		nodes, buf, err := readFrontiers(buf)
		return TreeEmptyTrashContent{Nodes: nodes}, buf, err
	case tagCounterAdd:
		if len(buf) < 8 {
			return nil, nil, &codec.DecodeError{Reason: "counter add delta truncated"}
		}
		delta := math.Float64frombits(binary.LittleEndian.Uint64(buf))
		return CounterAddContent{Delta: delta}, buf[8:], nil
	case tagUnknown:
		if len(buf) < 4 {
			return nil, nil, &codec.DecodeError{Reason: "unknown content prop truncated"}
		}
		prop := int32(binary.LittleEndian.Uint32(buf))
		buf = buf[4:]
		value, buf, err := readBytes(buf)
		return UnknownContent{Prop: prop, Value: value}, buf, err
	default:
		return nil, nil, &codec.DecodeError{Reason: fmt.Sprintf("unknown op content tag %d", tag)}
	}
}

func appendOptionalID(buf []byte, id *ids.ID) []byte {
	if id == nil {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	return appendID(buf, *id)
}

func readOptionalID(buf []byte) (*ids.ID, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, &codec.DecodeError{Reason: "optional id flag truncated"}
	}
	has := buf[0] != 0
	buf = buf[1:]
	if !has {
		return nil, buf, nil
	}
	id, buf, err := readID(buf)
	if err != nil {
		return nil, nil, err
	}
	return &id, buf, nil
}

func appendIdSpan(buf []byte, s ids.IdSpan) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.Peer))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(s.Start))
	return binary.LittleEndian.AppendUint32(buf, uint32(s.End))
}

func readIdSpan(buf []byte) (ids.IdSpan, []byte, error) {
	if len(buf) < 16 {
		return ids.IdSpan{}, nil, &codec.DecodeError{Reason: "id span truncated"}
	}
	peer := ids.PeerID(binary.LittleEndian.Uint64(buf))
	start := int32(binary.LittleEndian.Uint32(buf[8:]))
	end := int32(binary.LittleEndian.Uint32(buf[12:]))
	return ids.IdSpan{Peer: peer, Start: start, End: end}, buf[16:], nil
}

// value tags: a minimal value model covering the LWW payload types
// (map/list/style values) that appear in ops.
const (
	valNil    = 0
	valBool   = 1
	valInt64  = 2
	valFloat  = 3
	valString = 4
	valBytes  = 5
)

func appendValue(buf []byte, v any) []byte {
	switch x := v.(type) {
	case nil:
		return append(buf, valNil)
	case bool:
		b := byte(0)
		if x {
			b = 1
		}
		return append(buf, valBool, b)
	case int64:
		buf = append(buf, valInt64)
		return binary.LittleEndian.AppendUint64(buf, uint64(x))
	case float64:
		buf = append(buf, valFloat)
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(x))
	case string:
		buf = append(buf, valString)
		return appendString(buf, x)
	case []byte:
		buf = append(buf, valBytes)
		return appendBytes(buf, x)
	default:
		buf = append(buf, valString)
		return appendString(buf, fmt.Sprintf("%v", x))
	}
}

func readValue(buf []byte) (any, []byte, error) {
	if len(buf) < 1 {
		return nil, nil, &codec.DecodeError{Reason: "value tag truncated"}
	}
	tag := buf[0]
	buf = buf[1:]
	switch tag {
	case valNil:
		return nil, buf, nil
	case valBool:
		if len(buf) < 1 {
			return nil, nil, &codec.DecodeError{Reason: "bool value truncated"}
		}
		return buf[0] != 0, buf[1:], nil
	case valInt64:
		if len(buf) < 8 {
			return nil, nil, &codec.DecodeError{Reason: "int64 value truncated"}
		}
		return int64(binary.LittleEndian.Uint64(buf)), buf[8:], nil
	case valFloat:
		if len(buf) < 8 {
			return nil, nil, &codec.DecodeError{Reason: "float value truncated"}
		}
		return math.Float64frombits(binary.LittleEndian.Uint64(buf)), buf[8:], nil
	case valString:
		s, buf, err := readString(buf)
		return s, buf, err
	case valBytes:
		b, buf, err := readBytes(buf)
		return b, buf, err
	default:
		return nil, nil, &codec.DecodeError{Reason: fmt.Sprintf("unknown value tag %d", tag)}
	}
}
