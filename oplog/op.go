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

// Package oplog holds the append-only, per-peer log of ops and the
// causal DAG derived from it: the layer every container CRDT replays
// to reconstruct state, and the layer that answers "what have you
// seen" (VersionVector) and "what's missing" (DependencyMissing)
// questions during sync.
package oplog

import "github.com/loro-dev/loro-go/ids"

// OpContent is the payload of a single Op: what changed, independent
// of which peer/counter/container it belongs to. Each container kind
// has its own content variants; docstate and the crdt/* packages type
// switch on these to apply an op to their state.
type OpContent interface {
	// Len reports how many contiguous counters this op consumes. Most
	// op kinds are a single counter; Insert/Delete span as many
	// counters as elements inserted/deleted so a whole run can be
	// addressed by an IdSpan.
	Len() int
	opContent()
}

// InsertContent inserts Items (characters, for Text) or ValueItems
// (elements, for List/MovableList).
//
// For Text/List, placement is Fugue-anchored: OriginLeft/OriginRight
// (either may be nil, meaning "document start/end" at the time this
// op was created) are recorded once, at creation time, and never
// recomputed — that's what lets a remote replica place the run
// correctly regardless of what else has been concurrently inserted
// nearby.
//
// For MovableList, placement instead uses Position, a
// fractional.FractionalIndex (stored opaque here to avoid an import
// cycle, as with TreeMoveContent.Position): elements can be
// repositioned later by ListMoveContent, which plain Fugue anchors
// can't express once an element has moved away from its insertion
// neighbors.
type InsertContent struct {
	Items       []byte // raw content; list-of-value containers box values separately, see ValueItems
	ValueItems  []any  // non-nil for List/MovableList insert of arbitrary values; nil for Text
	OriginLeft  *ids.ID
	OriginRight *ids.ID
	Position    []byte // MovableList only
}

func (c InsertContent) Len() int {
	if c.ValueItems != nil {
		return len(c.ValueItems)
	}
	return len(c.Items)
}
func (InsertContent) opContent() {}

// DeleteContent marks Span (ids of previously-inserted elements, not
// necessarily contiguous with this op's own counters) as deleted.
type DeleteContent struct {
	Span ids.IdSpan
}

func (c DeleteContent) Len() int { return c.Span.Len() }
func (DeleteContent) opContent() {}

// StyleStartContent/StyleEndContent bracket a text style range with an
// anchor pair, per the Fugue-anchor rich-text scheme: the style
// applies to every character whose insertion position falls between
// the start and end anchors at the time they're both visible.
type StyleStartContent struct {
	Key   string
	Value any
	Info  byte // bit 0: isContainer; bit 1: expand-start; bit 2: expand-end
}

func (StyleStartContent) Len() int   { return 1 }
func (StyleStartContent) opContent() {}

type StyleEndContent struct{}

func (StyleEndContent) Len() int   { return 1 }
func (StyleEndContent) opContent() {}

// ListMoveContent repositions the MovableList element created at Elem
// to Position (a fractional.FractionalIndex, opaque here; see
// InsertContent's doc comment), resolved by (lamport, peer) LWW
// against any concurrent move of the same element.
type ListMoveContent struct {
	Elem     ids.ID
	Position []byte
}

func (ListMoveContent) Len() int   { return 1 }
func (ListMoveContent) opContent() {}

// ListSetContent overwrites the value of the list element created at
// Elem (MovableList's LWW "set", distinct from a structural move).
type ListSetContent struct {
	Elem  ids.ID
	Value any
}

func (ListSetContent) Len() int   { return 1 }
func (ListSetContent) opContent() {}

// MapSetContent sets (or, with Delete, removes) a Map key. LWW by
// (Lamport, peer) at apply time, decided by docstate, not here.
type MapSetContent struct {
	Key    string
	Value  any
	Delete bool
}

func (MapSetContent) Len() int   { return 1 }
func (MapSetContent) opContent() {}

// TreeMoveContent moves (or creates, if Target has never appeared
// before) a tree node under Parent (nil for a new root) at Position.
type TreeMoveContent struct {
	Target   ids.ID
	Parent   *ids.ID
	Position []byte // fractional.FractionalIndex, stored opaque here to avoid an import cycle
}

func (TreeMoveContent) Len() int   { return 1 }
func (TreeMoveContent) opContent() {}

// TreeDeleteContent moves Target into the trash (a well-known sink
// parent), to be physically removed on the next EmptyTrash.
type TreeDeleteContent struct {
	Target ids.ID
}

func (TreeDeleteContent) Len() int   { return 1 }
func (TreeDeleteContent) opContent() {}

// TreeEmptyTrashContent physically forgets every node in Nodes (all of
// which must already be trashed); a separate op so it can itself be
// undone without resurrecting the nodes it forgot.
type TreeEmptyTrashContent struct {
	Nodes []ids.ID
}

func (TreeEmptyTrashContent) Len() int   { return 1 }
func (TreeEmptyTrashContent) opContent() {}

// CounterAddContent adds Delta to a Counter container's value.
type CounterAddContent struct {
	Delta float64
}

func (CounterAddContent) Len() int   { return 1 }
func (CounterAddContent) opContent() {}

// UnknownContent preserves an op this version of the library doesn't
// recognize (a newer Prop byte), so import/re-export round-trips
// without data loss even across skewed versions.
type UnknownContent struct {
	Prop  int32
	Value []byte
}

func (UnknownContent) Len() int   { return 1 }
func (UnknownContent) opContent() {}

// Op is one container mutation: Counter is the op's own absolute
// counter within its change's peer (not an offset), letting a Change's
// Ops be addressed individually by ID without re-deriving offsets.
type Op struct {
	Container ids.ContainerID
	Counter   ids.Counter
	Content   OpContent
}

func (o Op) Len() int { return o.Content.Len() }

// ID returns the op's own id.
func (o Op) ID(peer ids.PeerID) ids.ID {
	return ids.ID{Peer: peer, Counter: o.Counter}
}
