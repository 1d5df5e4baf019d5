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

// handle.go gives every container kind a typed, position/key-based
// view over a Doc, wrapping the lower-level ApplyLocalOp calls in
// edit.go with the bound checking and typed errors the raw docstate
// layer leaves to its caller.
package loro

import (
	"unicode/utf16"
	"unicode/utf8"

	"github.com/loro-dev/loro-go/crdt/counter"
	"github.com/loro-dev/loro-go/crdt/list"
	"github.com/loro-dev/loro-go/crdt/mapstate"
	"github.com/loro-dev/loro-go/crdt/movablelist"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
	"github.com/loro-dev/loro-go/oplog"
)

// GetText returns a handle on the root Text container named name,
// creating it on first write if it doesn't exist yet.
func (d *Doc) GetText(name string) *TextHandle {
	return &TextHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerText)}
}

// GetList returns a handle on the root List container named name.
func (d *Doc) GetList(name string) *ListHandle {
	return &ListHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerList)}
}

// GetMovableList returns a handle on the root MovableList container named name.
func (d *Doc) GetMovableList(name string) *MovableListHandle {
	return &MovableListHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerMovableList)}
}

// GetMap returns a handle on the root Map container named name.
func (d *Doc) GetMap(name string) *MapHandle {
	return &MapHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerMap)}
}

// GetTree returns a handle on the root Tree container named name.
func (d *Doc) GetTree(name string) *TreeHandle {
	return &TreeHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerTree)}
}

// GetCounter returns a handle on the root Counter container named name.
func (d *Doc) GetCounter(name string) *CounterHandle {
	return &CounterHandle{doc: d, cid: ids.RootContainerID(name, ids.ContainerCounter)}
}

// handleFor wraps an arbitrary (root or nested) container id in the
// handle matching its type, for GetByPath and InsertContainer results.
func (d *Doc) handleFor(cid ids.ContainerID) any {
	switch cid.Type {
	case ids.ContainerText:
		return &TextHandle{doc: d, cid: cid}
	case ids.ContainerList:
		return &ListHandle{doc: d, cid: cid}
	case ids.ContainerMovableList:
		return &MovableListHandle{doc: d, cid: cid}
	case ids.ContainerMap:
		return &MapHandle{doc: d, cid: cid}
	case ids.ContainerTree:
		return &TreeHandle{doc: d, cid: cid}
	case ids.ContainerCounter:
		return &CounterHandle{doc: d, cid: cid}
	default:
		return nil
	}
}

func (d *Doc) startEdit() *Error {
	d.mu.Lock()
	if err := d.ensureTxn(); err != nil {
		d.mu.Unlock()
		return err
	}
	return nil
}

// --- Text -------------------------------------------------------------

// TextHandle edits and reads one Text container.
type TextHandle struct {
	doc *Doc
	cid ids.ContainerID
}

// RichtextSpan is one run of a Text container's value, annotated with
// the style attributes active over it. This port doesn't materialize
// mark ranges (see Mark's comment), so GetRichtextValue returns a
// single unstyled span (nil for empty text); it exists so Mark/Unmark's bracket ops have
// somewhere to eventually resolve without changing callers' shapes.
type RichtextSpan struct {
	Text  string
	Attrs map[string]any
}

func (h *TextHandle) container() *text.Text {
	return h.doc.state.Container(h.cid).(*text.Text)
}

// Insert inserts s at visible position pos.
func (h *TextHandle) Insert(pos int, s string) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || pos > h.container().Len() {
		return newError(OutOfBound, "Text.Insert: pos %d out of range", pos)
	}
	h.doc.state.InsertText(h.cid, pos, s)
	return nil
}

// Delete deletes length visible characters starting at pos.
func (h *TextHandle) Delete(pos, length int) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || length < 0 || pos+length > h.container().Len() {
		return newError(OutOfBound, "Text.Delete: range [%d,%d) out of range", pos, pos+length)
	}
	h.doc.state.DeleteText(h.cid, pos, length)
	return nil
}

// Mark stages a style range [start,end) under key/value. Anchors are
// not materialized against the live sequence in this port (see
// docstate's applyOp comment on StyleStartContent/StyleEndContent) so
// the range itself isn't enforced locally; the ops still round-trip
// through commit/export/import for a consumer that does track them.
func (h *TextHandle) Mark(start, end int, key string, value any) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if start < 0 || end < start || end > h.container().Len() {
		return newError(OutOfBound, "Text.Mark: range [%d,%d) out of range", start, end)
	}
	h.doc.state.ApplyLocalOp(h.cid, oplog.StyleStartContent{Key: key, Value: value})
	h.doc.state.ApplyLocalOp(h.cid, oplog.StyleEndContent{})
	return nil
}

// Unmark stages removal of key over [start,end), the same way Mark
// stages its addition.
func (h *TextHandle) Unmark(start, end int, key string) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if start < 0 || end < start || end > h.container().Len() {
		return newError(OutOfBound, "Text.Unmark: range [%d,%d) out of range", start, end)
	}
	h.doc.state.ApplyLocalOp(h.cid, oplog.StyleStartContent{Key: key, Value: nil})
	h.doc.state.ApplyLocalOp(h.cid, oplog.StyleEndContent{})
	return nil
}

// ToString returns the container's current visible text.
func (h *TextHandle) ToString() string {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().String()
}

// LenUnicode returns the visible length in Unicode scalar values.
func (h *TextHandle) LenUnicode() int {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return utf8.RuneCountInString(h.container().String())
}

// LenUTF16 returns the visible length in UTF-16 code units.
func (h *TextHandle) LenUTF16() int {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return len(utf16.Encode([]rune(h.container().String())))
}

// LenUTF8 returns the visible length in bytes.
func (h *TextHandle) LenUTF8() int {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return len(h.container().String())
}

// GetRichtextValue returns the container's value as styled spans; see
// RichtextSpan's comment for this port's scope.
func (h *TextHandle) GetRichtextValue() []RichtextSpan {
	s := h.ToString()
	if s == "" {
		return nil
	}
	return []RichtextSpan{{Text: s}}
}

// --- List ---------------------------------------------------------------

// ListHandle edits and reads one List container.
type ListHandle struct {
	doc *Doc
	cid ids.ContainerID
}

func (h *ListHandle) container() *list.List {
	return h.doc.state.Container(h.cid).(*list.List)
}

// Insert inserts value at visible position pos.
func (h *ListHandle) Insert(pos int, value any) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || pos > h.container().Len() {
		return newError(OutOfBound, "List.Insert: pos %d out of range", pos)
	}
	h.doc.state.InsertListValues(h.cid, pos, []any{value})
	return nil
}

// Delete deletes length visible elements starting at pos.
func (h *ListHandle) Delete(pos, length int) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || length < 0 || pos+length > h.container().Len() {
		return newError(OutOfBound, "List.Delete: range [%d,%d) out of range", pos, pos+length)
	}
	h.doc.state.DeleteListRange(h.cid, pos, length)
	return nil
}

// Get returns the value at visible position pos.
func (h *ListHandle) Get(pos int) (any, *Error) {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	values := h.container().Values()
	if pos < 0 || pos >= len(values) {
		return nil, newError(OutOfBound, "List.Get: pos %d out of range", pos)
	}
	return values[pos], nil
}

// InsertContainer inserts a new, empty container of kind at visible
// position pos and returns a handle on it. The child's ContainerID is
// stored as the list element's value; this port's value codec (see
// oplog/encode.go) has no dedicated container-reference tag, so a
// round trip through Export/Import degrades the reference to its
// fmt.Sprintf default-case string rather than reconstructing a handle
// (see DESIGN.md).
func (h *ListHandle) InsertContainer(pos int, kind ids.ContainerType) (any, *Error) {
	if err := h.doc.startEdit(); err != nil {
		return nil, err
	}
	if pos < 0 || pos > h.container().Len() {
		h.doc.mu.Unlock()
		return nil, newError(OutOfBound, "List.InsertContainer: pos %d out of range", pos)
	}
	childID := ids.NormalContainerID(h.doc.state.PeekNextID(), kind)
	h.doc.state.InsertListValues(h.cid, pos, []any{childID})
	h.doc.mu.Unlock()
	return h.doc.handleFor(childID), nil
}

// Len returns the number of visible elements.
func (h *ListHandle) Len() int {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Len()
}

// ToSlice returns every visible element in order.
func (h *ListHandle) ToSlice() []any {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Values()
}

// --- MovableList ----------------------------------------------------------

// MovableListHandle edits and reads one MovableList container: List's
// operations plus Move and Set.
type MovableListHandle struct {
	doc *Doc
	cid ids.ContainerID
}

func (h *MovableListHandle) container() *movablelist.MovableList {
	return h.doc.state.Container(h.cid).(*movablelist.MovableList)
}

// Insert inserts value at visible position pos.
func (h *MovableListHandle) Insert(pos int, value any) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || pos > h.container().Len() {
		return newError(OutOfBound, "MovableList.Insert: pos %d out of range", pos)
	}
	h.doc.state.InsertMovableListValue(h.cid, pos, value)
	return nil
}

// Delete deletes length visible elements starting at pos.
func (h *MovableListHandle) Delete(pos, length int) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if pos < 0 || length < 0 || pos+length > h.container().Len() {
		return newError(OutOfBound, "MovableList.Delete: range [%d,%d) out of range", pos, pos+length)
	}
	h.doc.state.DeleteMovableListRange(h.cid, pos, length)
	return nil
}

// Get returns the value at visible position pos.
func (h *MovableListHandle) Get(pos int) (any, *Error) {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	values := h.container().Values()
	if pos < 0 || pos >= len(values) {
		return nil, newError(OutOfBound, "MovableList.Get: pos %d out of range", pos)
	}
	return values[pos], nil
}

// Mov moves the element at visible position from to visible position to.
func (h *MovableListHandle) Mov(from, to int) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	n := h.container().Len()
	if from < 0 || from >= n || to < 0 || to >= n {
		return newError(OutOfBound, "MovableList.Mov: from %d to %d out of range (len %d)", from, to, n)
	}
	h.doc.state.MoveMovableListElement(h.cid, from, to)
	return nil
}

// Set overwrites the value at visible position pos in place, without
// changing its order.
func (h *MovableListHandle) Set(pos int, value any) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	ml := h.container()
	elemID, ok := ml.LiveIDAt(pos)
	if !ok {
		return newError(OutOfBound, "MovableList.Set: pos %d out of range", pos)
	}
	h.doc.state.ApplyLocalOp(h.cid, oplog.ListSetContent{Elem: elemID, Value: value})
	return nil
}

// InsertContainer inserts a new, empty container of kind at visible
// position pos; see ListHandle.InsertContainer's comment on value-codec scope.
func (h *MovableListHandle) InsertContainer(pos int, kind ids.ContainerType) (any, *Error) {
	if err := h.doc.startEdit(); err != nil {
		return nil, err
	}
	if pos < 0 || pos > h.container().Len() {
		h.doc.mu.Unlock()
		return nil, newError(OutOfBound, "MovableList.InsertContainer: pos %d out of range", pos)
	}
	childID := ids.NormalContainerID(h.doc.state.PeekNextID(), kind)
	h.doc.state.InsertMovableListValue(h.cid, pos, childID)
	h.doc.mu.Unlock()
	return h.doc.handleFor(childID), nil
}

// Len returns the number of visible elements.
func (h *MovableListHandle) Len() int {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Len()
}

// ToSlice returns every visible element in order.
func (h *MovableListHandle) ToSlice() []any {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Values()
}

// --- Map ------------------------------------------------------------------

// MapHandle edits and reads one Map container.
type MapHandle struct {
	doc *Doc
	cid ids.ContainerID
}

func (h *MapHandle) container() *mapstate.Map {
	return h.doc.state.Container(h.cid).(*mapstate.Map)
}

// Set sets key to value.
func (h *MapHandle) Set(key string, value any) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	h.doc.state.SetMapValue(h.cid, key, value)
	return nil
}

// Delete tombstones key.
func (h *MapHandle) Delete(key string) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	h.doc.state.DeleteMapKey(h.cid, key)
	return nil
}

// Get returns key's current value, and whether it's set.
func (h *MapHandle) Get(key string) (any, bool) {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Get(key)
}

// Keys returns every live key.
func (h *MapHandle) Keys() []string {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Keys()
}

// InsertContainer sets key to a new, empty container of kind and
// returns a handle on it; see ListHandle.InsertContainer's comment on
// value-codec scope.
func (h *MapHandle) InsertContainer(key string, kind ids.ContainerType) any {
	if err := h.doc.startEdit(); err != nil {
		return nil
	}
	childID := ids.NormalContainerID(h.doc.state.PeekNextID(), kind)
	h.doc.state.SetMapValue(h.cid, key, childID)
	h.doc.mu.Unlock()
	return h.doc.handleFor(childID)
}

// --- Tree -------------------------------------------------------------

// TreeHandle edits and reads one Tree container.
type TreeHandle struct {
	doc *Doc
	cid ids.ContainerID
}

func (h *TreeHandle) container() *tree.Tree {
	return h.doc.state.Container(h.cid).(*tree.Tree)
}

// metaCid derives the per-node metadata Map container backing
// GetMeta(target): this port has no separate meta-container arena, so
// each Tree node is given an implicit Map keyed by its own creation id,
// mirroring loro's one-meta-map-per-node layout without a third table.
func metaCid(target ids.ID) ids.ContainerID {
	return ids.NormalContainerID(target, ids.ContainerMap)
}

// Create creates a new node as the last child of parent (nil for a new
// root) and returns its id.
func (h *TreeHandle) Create(parent *ids.ID) (ids.ID, *Error) {
	if err := h.doc.startEdit(); err != nil {
		return ids.ID{}, err
	}
	defer h.doc.mu.Unlock()
	t := h.container()
	if parent != nil {
		if _, ok := t.Parent(*parent); !ok {
			return ids.ID{}, newError(InvalidMove, "Tree.Create: parent %v not found", *parent)
		}
	}
	return h.doc.state.CreateTreeNode(h.cid, parent), nil
}

// isAncestor reports whether candidate is ancestor or target itself,
// walking target's parent chain in t's current state.
func isAncestor(t *tree.Tree, candidate, target ids.ID) bool {
	cur := target
	visited := map[ids.ID]bool{}
	for {
		if cur == candidate {
			return true
		}
		if visited[cur] {
			return false
		}
		visited[cur] = true
		parent, ok := t.Parent(cur)
		if !ok || parent == nil {
			return false
		}
		cur = *parent
	}
}

// Mov reparents target under parent (nil for document root). If index
// is non-nil the node lands at that position among its new siblings;
// otherwise it's appended last.
func (h *TreeHandle) Mov(target ids.ID, parent *ids.ID, index *int) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	t := h.container()
	if _, ok := t.Parent(target); !ok {
		return newError(InvalidMove, "Tree.Mov: target %v not found", target)
	}
	if parent != nil && isAncestor(t, target, *parent) {
		return newError(InvalidMove, "Tree.Mov: %v is an ancestor of %v, move would create a cycle", target, *parent)
	}
	siblings := t.Children(parent)
	n := len(siblings)
	at := n
	if index != nil {
		at = *index
		if at < 0 || at > n {
			return newError(OutOfBound, "Tree.Mov: index %d out of range", at)
		}
	}
	var lower, upper *fractional.FractionalIndex
	if at > 0 {
		if p, ok := t.Position(siblings[at-1]); ok {
			lower = &p
		}
	}
	if at < n {
		if p, ok := t.Position(siblings[at]); ok {
			upper = &p
		}
	}
	position, _ := fractional.New(lower, upper, 0)
	h.doc.state.MoveTreeNode(h.cid, target, parent, position)
	return nil
}

// Delete moves target to the trash.
func (h *TreeHandle) Delete(target ids.ID) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	if _, ok := h.container().Parent(target); !ok {
		return newError(InvalidMove, "Tree.Delete: target %v not found", target)
	}
	h.doc.state.DeleteTreeNode(h.cid, target)
	return nil
}

// GetMeta returns a handle on target's metadata map.
func (h *TreeHandle) GetMeta(target ids.ID) *MapHandle {
	return &MapHandle{doc: h.doc, cid: metaCid(target)}
}

// Nodes returns every node this Tree has ever seen, live or trashed.
func (h *TreeHandle) Nodes() []ids.ID {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Nodes()
}

// Children returns parent's live children in sibling order (nil for
// document-root children).
func (h *TreeHandle) Children(parent *ids.ID) []ids.ID {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Children(parent)
}

// --- Counter ----------------------------------------------------------

// CounterHandle edits and reads one Counter container.
type CounterHandle struct {
	doc *Doc
	cid ids.ContainerID
}

func (h *CounterHandle) container() *counter.Counter {
	return h.doc.state.Container(h.cid).(*counter.Counter)
}

// Increment adds n (n should be positive; AddCounter doesn't enforce
// that, it just adds).
func (h *CounterHandle) Increment(n float64) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	h.doc.state.AddCounter(h.cid, n)
	return nil
}

// Decrement subtracts n.
func (h *CounterHandle) Decrement(n float64) *Error {
	if err := h.doc.startEdit(); err != nil {
		return err
	}
	defer h.doc.mu.Unlock()
	h.doc.state.AddCounter(h.cid, -n)
	return nil
}

// Value returns the counter's current value.
func (h *CounterHandle) Value() float64 {
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	return h.container().Value()
}
