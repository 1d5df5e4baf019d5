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

// Package undo implements per-peer undo/redo stacks on top of a
// docstate.DocState's root subscription: every local commit is recorded
// as an Item carrying each touched container's before/after snapshot,
// and undoing it replays the inverse of that change against whatever
// the container looks like right now — which is what makes undo still
// correct after concurrent remote edits have landed on the same
// container in the meantime, without needing a second, operational-
// transform-aware engine alongside the CRDTs in package crdt.
//
// Remote changes (docstate.Event.Local == false) are never recorded:
// they're exactly what an undo needs to be transformed through, not
// something a peer can undo on another peer's behalf.
package undo

import (
	"strings"
	"sync"
	"time"

	"github.com/loro-dev/loro-go/crdt/counter"
	"github.com/loro-dev/loro-go/crdt/list"
	"github.com/loro-dev/loro-go/crdt/mapstate"
	"github.com/loro-dev/loro-go/crdt/movablelist"
	"github.com/loro-dev/loro-go/crdt/text"
	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/diff"
	"github.com/loro-dev/loro-go/docstate"
	"github.com/loro-dev/loro-go/ids"
)

// internalOriginPrefix tags the commit messages Manager generates when
// replaying an undo/redo, so its own replays are never themselves
// recorded as undoable items. No application-chosen ExcludeOriginPrefix
// can collide with it: commit messages never legitimately start with a
// NUL byte.
const internalOriginPrefix = "\x00undo\x00"

// Stack identifies which of a Manager's two stacks an item moved to or
// from, passed to push/pop callbacks.
type Stack int

const (
	UndoStack Stack = iota
	RedoStack
)

func (s Stack) String() string {
	if s == RedoStack {
		return "redo"
	}
	return "undo"
}

// Config holds a Manager's tunables.
type Config struct {
	// MaxSteps caps each stack's length; the oldest item is dropped once
	// a push would exceed it. Zero means unbounded.
	MaxSteps int
	// MergeIntervalMs: a commit arriving within this many milliseconds
	// of the undo stack's current top is folded into it instead of
	// pushed as a new item, so e.g. a burst of single-character typing
	// undoes as one step. Zero disables merging.
	MergeIntervalMs int64
	// ExcludeOriginPrefix: commits whose message has this prefix are
	// never recorded (a non-empty prefix app code uses to mark
	// system-generated edits that shouldn't be individually undoable).
	ExcludeOriginPrefix string
}

// Callback is a push/pop notification; it runs synchronously, after the
// Manager's own bookkeeping for that push/pop has completed, with no
// Manager lock held.
type Callback func(stack Stack, item Item)

// Item is one undo/redo stack entry: every container diff of the local
// commit it was recorded from (or, if merged/grouped, of several
// commits folded together), each carrying that container's state from
// just before the earliest of those commits (Before) to just after the
// latest (After).
type Item struct {
	Msg      string
	Diffs    []docstate.ContainerDiff
	PushedAt time.Time
}

// Manager tracks one peer's undo/redo history for a DocState via a root
// subscription. Safe for concurrent use.
type Manager struct {
	ds  *docstate.DocState
	cfg Config

	mu         sync.Mutex
	undoStack  []Item
	redoStack  []Item
	groupDepth int
	pending    *Item
	subID      uint64

	onPush Callback
	onPop  Callback
}

// New creates a Manager and subscribes it to ds's root events.
func New(ds *docstate.DocState, cfg Config) *Manager {
	m := &Manager{ds: ds, cfg: cfg}
	m.subID = ds.SubscribeRoot(m.onEvent)
	return m
}

// Close unsubscribes the Manager from its DocState. The stacks remain
// readable; nothing further is recorded.
func (m *Manager) Close() {
	m.ds.Unsubscribe(m.subID)
}

// OnPush registers the callback invoked whenever an item is pushed onto
// either stack (a fresh local commit, or Undo/Redo flipping an item to
// the opposite stack). Replaces any previously registered callback.
func (m *Manager) OnPush(fn Callback) {
	m.mu.Lock()
	m.onPush = fn
	m.mu.Unlock()
}

// OnPop registers the callback invoked whenever Undo/Redo pops an item
// off a stack, before that item's inverse has been applied.
func (m *Manager) OnPop(fn Callback) {
	m.mu.Lock()
	m.onPop = fn
	m.mu.Unlock()
}

// CanUndo reports whether Undo would do anything right now.
func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undoStack) > 0
}

// CanRedo reports whether Redo would do anything right now.
func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redoStack) > 0
}

// BeginGroup starts (or nests into) a group: commits made before the
// matching EndGroup are folded into a single undo item instead of one
// per commit. Groups nest; only the outermost EndGroup pushes.
func (m *Manager) BeginGroup() {
	m.mu.Lock()
	m.groupDepth++
	m.mu.Unlock()
}

// EndGroup closes a group opened with BeginGroup. Panics if called
// without a matching BeginGroup, a programmer error.
func (m *Manager) EndGroup() {
	m.mu.Lock()
	if m.groupDepth == 0 {
		m.mu.Unlock()
		panic("undo: EndGroup without a matching BeginGroup")
	}
	m.groupDepth--
	var pushed Item
	doPush := false
	if m.groupDepth == 0 && m.pending != nil {
		pushed = *m.pending
		m.pending = nil
		m.pushUndoLocked(pushed)
		doPush = true
	}
	onPush := m.onPush
	m.mu.Unlock()
	if doPush && onPush != nil {
		onPush(UndoStack, pushed)
	}
}

// Undo pops the most recent undo item, applies its inverse as a new
// local commit, and pushes it onto the redo stack. Returns false if the
// undo stack was empty.
func (m *Manager) Undo() bool {
	return m.step(&m.undoStack, &m.redoStack, false)
}

// Redo pops the most recent redo item, reapplies it as a new local
// commit, and pushes it back onto the undo stack. Returns false if the
// redo stack was empty.
func (m *Manager) Redo() bool {
	return m.step(&m.redoStack, &m.undoStack, true)
}

func (m *Manager) step(from, to *[]Item, forward bool) bool {
	fromKind, toKind := UndoStack, RedoStack
	if forward {
		fromKind, toKind = RedoStack, UndoStack
	}

	m.mu.Lock()
	if len(*from) == 0 {
		m.mu.Unlock()
		return false
	}
	item := (*from)[len(*from)-1]
	*from = (*from)[:len(*from)-1]
	onPop := m.onPop
	m.mu.Unlock()

	if onPop != nil {
		onPop(fromKind, item)
	}

	m.replay(item, forward)

	m.mu.Lock()
	*to = append(*to, item)
	m.trimLocked(to)
	onPush := m.onPush
	m.mu.Unlock()

	if onPush != nil {
		onPush(toKind, item)
	}
	return true
}

// replay stages one new local commit that turns the current state of
// every container item touches into item.After (forward, i.e. redo) or
// item.Before (inverse, i.e. undo), computed by diffing item's own
// recorded snapshots and replaying that script positionally against
// whatever the container holds right now. A concurrent remote edit to
// an untouched region of the same container shifts positions the same
// way it would for any other script-based patch; see DESIGN.md for why
// this (rather than a full operational-transform pass) is the chosen
// trade-off.
func (m *Manager) replay(item Item, forward bool) {
	m.ds.StartTxn()
	for _, d := range item.Diffs {
		applyContainerDiff(m.ds, d, forward)
	}
	msg := internalOriginPrefix + item.Msg
	m.ds.Commit(msg)
}

func (m *Manager) trimLocked(stack *[]Item) {
	if m.cfg.MaxSteps > 0 && len(*stack) > m.cfg.MaxSteps {
		*stack = (*stack)[len(*stack)-m.cfg.MaxSteps:]
	}
}

func (m *Manager) onEvent(ev docstate.Event) {
	if !ev.Local || strings.HasPrefix(ev.Msg, internalOriginPrefix) {
		return
	}
	if m.cfg.ExcludeOriginPrefix != "" && strings.HasPrefix(ev.Msg, m.cfg.ExcludeOriginPrefix) {
		return
	}

	m.mu.Lock()
	if m.groupDepth > 0 {
		if m.pending == nil {
			item := newItem(ev)
			m.pending = &item
		} else {
			mergeItem(m.pending, ev)
		}
		m.mu.Unlock()
		return
	}

	if len(m.undoStack) > 0 && m.cfg.MergeIntervalMs > 0 {
		top := &m.undoStack[len(m.undoStack)-1]
		if time.Since(top.PushedAt) <= time.Duration(m.cfg.MergeIntervalMs)*time.Millisecond {
			mergeItem(top, ev)
			m.redoStack = nil
			m.mu.Unlock()
			return
		}
	}

	item := newItem(ev)
	m.pushUndoLocked(item)
	onPush := m.onPush
	m.mu.Unlock()
	if onPush != nil {
		onPush(UndoStack, item)
	}
}

// pushUndoLocked appends item to the undo stack, trims it to MaxSteps,
// and discards the redo stack (a fresh local edit invalidates whatever
// used to be redoable, same as any editor's undo history). Caller holds
// m.mu.
func (m *Manager) pushUndoLocked(item Item) {
	m.undoStack = append(m.undoStack, item)
	m.trimLocked(&m.undoStack)
	m.redoStack = nil
}

func newItem(ev docstate.Event) Item {
	return Item{
		Msg:      ev.Msg,
		Diffs:    append([]docstate.ContainerDiff(nil), ev.Diffs...),
		PushedAt: time.Now(),
	}
}

// mergeItem folds ev's diffs into dst: a container already present in
// dst keeps its original Before and adopts ev's After, so dst's net
// diff still covers the whole merged span; a container touched for the
// first time is appended as-is.
func mergeItem(dst *Item, ev docstate.Event) {
	for _, incoming := range ev.Diffs {
		merged := false
		for i := range dst.Diffs {
			if dst.Diffs[i].Container.Equal(incoming.Container) {
				dst.Diffs[i].After = incoming.After
				merged = true
				break
			}
		}
		if !merged {
			dst.Diffs = append(dst.Diffs, incoming)
		}
	}
	dst.PushedAt = time.Now()
	if dst.Msg == "" {
		dst.Msg = ev.Msg
	}
}

func applyContainerDiff(ds *docstate.DocState, d docstate.ContainerDiff, forward bool) {
	switch d.Kind {
	case ids.ContainerText:
		before, after := resolveText(d.Before), resolveText(d.After)
		var ops []diff.TextOp
		if forward {
			ops = diff.Text(before.String(), after.String())
		} else {
			ops = diff.Text(after.String(), before.String())
		}
		applyTextScript(ds, d.Container, ops)

	case ids.ContainerList:
		before, after := resolveList(d.Before), resolveList(d.After)
		var ops []diff.ListOp
		if forward {
			ops = diff.List(before.Values(), after.Values())
		} else {
			ops = diff.List(after.Values(), before.Values())
		}
		applyListScript(ds, d.Container, ops, false)

	case ids.ContainerMovableList:
		before, after := resolveMovableList(d.Before), resolveMovableList(d.After)
		var ops []diff.ListOp
		if forward {
			ops = diff.List(before.Values(), after.Values())
		} else {
			ops = diff.List(after.Values(), before.Values())
		}
		applyListScript(ds, d.Container, ops, true)

	case ids.ContainerMap:
		before, after := resolveMap(d.Before), resolveMap(d.After)
		var entries []diff.MapEntry
		if forward {
			entries = diff.Map(before.Entries(), after.Entries())
		} else {
			entries = diff.Map(after.Entries(), before.Entries())
		}
		applyMapDiff(ds, d.Container, entries)

	case ids.ContainerTree:
		before, after := resolveTree(d.Before), resolveTree(d.After)
		var actions []diff.TreeAction
		if forward {
			actions = diff.Tree(before, after)
		} else {
			actions = diff.Tree(after, before)
		}
		applyTreeDiff(ds, d.Container, actions)

	case ids.ContainerCounter:
		before, after := resolveCounterValue(d.Before), resolveCounterValue(d.After)
		var delta float64
		if forward {
			delta = after - before
		} else {
			delta = before - after
		}
		if delta != 0 {
			ds.AddCounter(d.Container, delta)
		}
	}
}

// applyTextScript replays a Text edit script against the container's
// current live content, tracking a position cursor the same way a
// rich-text editor would apply an incoming delta.
func applyTextScript(ds *docstate.DocState, cid ids.ContainerID, ops []diff.TextOp) {
	pos := 0
	for _, op := range ops {
		switch op.Kind {
		case diff.TextRetain:
			pos += op.Len
		case diff.TextDelete:
			ds.DeleteText(cid, pos, op.Len)
		case diff.TextInsert:
			ds.InsertText(cid, pos, string(op.Content))
			pos += len(op.Content)
		}
	}
}

// applyListScript replays a List/MovableList edit script the same way
// applyTextScript does, inserting one element at a time for a movable
// list so each gets its own fractional position derived from its
// current neighbors.
func applyListScript(ds *docstate.DocState, cid ids.ContainerID, ops []diff.ListOp, movable bool) {
	pos := 0
	for _, op := range ops {
		switch op.Kind {
		case diff.ListRetain:
			pos += op.Len
		case diff.ListDelete:
			if movable {
				ds.DeleteMovableListRange(cid, pos, op.Len)
			} else {
				ds.DeleteListRange(cid, pos, op.Len)
			}
		case diff.ListInsert:
			if movable {
				for _, v := range op.Values {
					ds.InsertMovableListValue(cid, pos, v)
					pos++
				}
			} else {
				ds.InsertListValues(cid, pos, op.Values)
				pos += len(op.Values)
			}
		}
	}
}

func applyMapDiff(ds *docstate.DocState, cid ids.ContainerID, entries []diff.MapEntry) {
	for _, e := range entries {
		if e.Deleted {
			ds.DeleteMapKey(cid, e.Key)
		} else {
			ds.SetMapValue(cid, e.Key, e.Value)
		}
	}
}

func applyTreeDiff(ds *docstate.DocState, cid ids.ContainerID, actions []diff.TreeAction) {
	for _, a := range actions {
		if a.Kind == diff.TreeDelete {
			ds.DeleteTreeNode(cid, a.Target)
			continue
		}
		ds.MoveTreeNode(cid, a.Target, a.Parent, a.Position)
	}
}

func resolveText(v any) *text.Text {
	if t, ok := v.(*text.Text); ok && t != nil {
		return t
	}
	return text.New()
}

func resolveList(v any) *list.List {
	if l, ok := v.(*list.List); ok && l != nil {
		return l
	}
	return list.New()
}

func resolveMovableList(v any) *movablelist.MovableList {
	if l, ok := v.(*movablelist.MovableList); ok && l != nil {
		return l
	}
	return movablelist.New()
}

func resolveMap(v any) *mapstate.Map {
	if m, ok := v.(*mapstate.Map); ok && m != nil {
		return m
	}
	return mapstate.New()
}

func resolveTree(v any) *tree.Tree {
	if t, ok := v.(*tree.Tree); ok && t != nil {
		return t
	}
	return tree.New()
}

func resolveCounterValue(v any) float64 {
	if c, ok := v.(*counter.Counter); ok && c != nil {
		return c.Value()
	}
	return 0
}
