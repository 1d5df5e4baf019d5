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

package loro

import (
	"testing"

	"github.com/loro-dev/loro-go/docstate"
	"github.com/loro-dev/loro-go/ids"
)

func TestTextInsertDeleteCommit(t *testing.T) {
	doc := New()
	text := doc.GetText("doc")
	if err := text.Insert(0, "hello"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := text.Insert(5, " world"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if got := text.ToString(); got != "hello world" {
		t.Fatalf("expected %q, got %q", "hello world", got)
	}
	if err := text.Delete(5, 6); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := text.ToString(); got != "hello" {
		t.Fatalf("expected %q after delete, got %q", "hello", got)
	}
	if change := doc.Commit("greet"); change == nil {
		t.Fatalf("expected a non-nil committed change")
	}
}

func TestTextOutOfBoundInsert(t *testing.T) {
	doc := New()
	text := doc.GetText("doc")
	err := text.Insert(5, "x")
	if err == nil || err.Kind != OutOfBound {
		t.Fatalf("expected OutOfBound, got %v", err)
	}
}

func TestListInsertGetDelete(t *testing.T) {
	doc := New()
	l := doc.GetList("items")
	l.Insert(0, "a")
	l.Insert(1, "b")
	l.Insert(1, "c")
	if got := l.ToSlice(); len(got) != 3 || got[0] != "a" || got[1] != "c" || got[2] != "b" {
		t.Fatalf("unexpected list contents %v", got)
	}
	v, err := l.Get(1)
	if err != nil || v != "c" {
		t.Fatalf("Get(1) = %v, %v, want \"c\", nil", v, err)
	}
	if err := l.Delete(0, 1); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if got := l.ToSlice(); len(got) != 2 || got[0] != "c" {
		t.Fatalf("unexpected list contents after delete %v", got)
	}
}

func TestMovableListMoveAndSet(t *testing.T) {
	doc := New()
	l := doc.GetMovableList("items")
	l.Insert(0, "a")
	l.Insert(1, "b")
	l.Insert(2, "c")

	if err := l.Mov(0, 2); err != nil {
		t.Fatalf("Mov failed: %v", err)
	}
	if got := l.ToSlice(); len(got) != 3 || got[0] != "b" || got[1] != "c" || got[2] != "a" {
		t.Fatalf("unexpected order after move: %v", got)
	}
	if err := l.Set(0, "B"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if got := l.ToSlice(); got[0] != "B" {
		t.Fatalf("expected set value to stick, got %v", got)
	}
}

func TestMapSetDeleteKeys(t *testing.T) {
	doc := New()
	m := doc.GetMap("attrs")
	m.Set("a", int64(1))
	m.Set("b", int64(2))
	if v, ok := m.Get("a"); !ok || v != int64(1) {
		t.Fatalf("Get(a) = %v, %v", v, ok)
	}
	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Fatalf("expected a to be gone after Delete")
	}
	keys := m.Keys()
	if len(keys) != 1 || keys[0] != "b" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestTreeCreateMoveDelete(t *testing.T) {
	doc := New()
	tr := doc.GetTree("tree")

	root, err := tr.Create(nil)
	if err != nil {
		t.Fatalf("Create root failed: %v", err)
	}
	child, err := tr.Create(&root)
	if err != nil {
		t.Fatalf("Create child failed: %v", err)
	}
	kids := tr.Children(&root)
	if len(kids) != 1 || kids[0] != child {
		t.Fatalf("expected root to have one child %v, got %v", child, kids)
	}

	if err := tr.Mov(root, &child, nil); err == nil || err.Kind != InvalidMove {
		t.Fatalf("expected InvalidMove moving an ancestor under its own descendant, got %v", err)
	}

	if err := tr.Mov(child, nil, nil); err != nil {
		t.Fatalf("Mov to document root failed: %v", err)
	}
	if kids := tr.Children(&root); len(kids) != 0 {
		t.Fatalf("expected root to have no children after move, got %v", kids)
	}

	if err := tr.Delete(child); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
}

func TestTreeMetaMap(t *testing.T) {
	doc := New()
	tr := doc.GetTree("tree")
	node, err := tr.Create(nil)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	meta := tr.GetMeta(node)
	meta.Set("label", "root node")
	if v, ok := meta.Get("label"); !ok || v != "root node" {
		t.Fatalf("meta.Get(label) = %v, %v", v, ok)
	}
}

func TestCounterIncrementDecrement(t *testing.T) {
	doc := New()
	c := doc.GetCounter("n")
	c.Increment(5)
	c.Decrement(2)
	if got := c.Value(); got != 3 {
		t.Fatalf("expected value 3, got %v", got)
	}
}

func TestExportUpdatesImportIntoFreshDoc(t *testing.T) {
	a := New()
	a.GetText("doc").Insert(0, "hi")
	a.Commit("")

	blob := a.Export(ModeUpdates(ids.NewVersionVector()))

	b := New()
	if err := b.Import(blob); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if got := b.GetText("doc").ToString(); got != "hi" {
		t.Fatalf("expected %q after import, got %q", "hi", got)
	}
}

func TestExportSnapshotImportIntoFreshDoc(t *testing.T) {
	a := New()
	a.GetText("doc").Insert(0, "hello")
	a.GetMap("attrs").Set("k", "v")
	a.Commit("")

	blob := a.Export(ModeSnapshot())

	b := New()
	if err := b.Import(blob); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if got := b.GetText("doc").ToString(); got != "hello" {
		t.Fatalf("expected %q after snapshot import, got %q", "hello", got)
	}
	if v, ok := b.GetMap("attrs").Get("k"); !ok || v != "v" {
		t.Fatalf("expected map key k=v after snapshot import, got %v, %v", v, ok)
	}
	if !b.StateFrontiers().Equal(a.StateFrontiers()) {
		t.Fatalf("expected imported doc's frontiers to match source")
	}
}

func TestFork(t *testing.T) {
	a := New()
	a.GetText("doc").Insert(0, "base")
	a.Commit("")

	fork := a.Fork()
	fork.GetText("doc").Insert(4, "-fork")
	fork.Commit("")

	a.GetText("doc").Insert(4, "-orig")
	a.Commit("")

	if got := fork.GetText("doc").ToString(); got != "base-fork" {
		t.Fatalf("expected fork's own edit only, got %q", got)
	}
	if got := a.GetText("doc").ToString(); got != "base-orig" {
		t.Fatalf("expected original's own edit only, got %q", got)
	}
}

func TestSubscribeFiresOnCommit(t *testing.T) {
	doc := New()
	cid := ids.RootContainerID("doc", ids.ContainerText)
	var events int
	doc.Subscribe(cid, func(ev docstate.Event) { events++ })

	doc.GetText("doc").Insert(0, "x")
	doc.Commit("")

	if events != 1 {
		t.Fatalf("expected exactly one event, got %d", events)
	}
}

func TestGetByPathWalksMapThenList(t *testing.T) {
	doc := New()
	m := doc.GetMap("root")
	listHandle := m.InsertContainer("items", ids.ContainerList)
	list := listHandle.(*ListHandle)
	list.Insert(0, "first")
	doc.Commit("")

	v, err := doc.GetByPath([]any{RootRef{Name: "root", Type: ids.ContainerMap}, "items", 0})
	if err != nil {
		t.Fatalf("GetByPath failed: %v", err)
	}
	if v != "first" {
		t.Fatalf("expected %q, got %v", "first", v)
	}
}

func TestGetDeepValueAndToJSON(t *testing.T) {
	doc := New()
	doc.GetText("doc").Insert(0, "hi")
	doc.GetMap("attrs").Set("k", int64(7))
	doc.Commit("")

	deep := doc.GetDeepValue()
	if deep["doc"] != "hi" {
		t.Fatalf("expected deep value doc=hi, got %v", deep["doc"])
	}
	attrs, ok := deep["attrs"].(map[string]any)
	if !ok || attrs["k"] != int64(7) {
		t.Fatalf("expected deep value attrs.k=7, got %v", deep["attrs"])
	}

	if _, err := doc.ToJSON(); err != nil {
		t.Fatalf("ToJSON failed: %v", err)
	}
}

func TestJSONPathFieldAndIndex(t *testing.T) {
	doc := New()
	m := doc.GetMap("root")
	listHandle := m.InsertContainer("items", ids.ContainerList)
	list := listHandle.(*ListHandle)
	list.Insert(0, "a")
	list.Insert(1, "b")
	doc.Commit("")

	v, err := doc.JSONPath("$.root.items[1]")
	if err != nil {
		t.Fatalf("JSONPath failed: %v", err)
	}
	if v != "b" {
		t.Fatalf("expected %q, got %v", "b", v)
	}
}

func TestCheckoutDetachesAndAttachReturns(t *testing.T) {
	doc := New()
	doc.GetText("doc").Insert(0, "a")
	doc.Commit("")
	mid := doc.OplogFrontiers()

	doc.GetText("doc").Insert(1, "b")
	doc.Commit("")

	doc.Checkout(mid)
	if !doc.IsDetached() {
		t.Fatalf("expected detached after checkout to a non-latest frontier")
	}
	if got := doc.GetText("doc").ToString(); got != "a" {
		t.Fatalf("expected %q while checked out to mid, got %q", "a", got)
	}

	doc.Attach()
	if doc.IsDetached() {
		t.Fatalf("expected attached after Attach")
	}
	if got := doc.GetText("doc").ToString(); got != "ab" {
		t.Fatalf("expected %q after reattaching, got %q", "ab", got)
	}
}
