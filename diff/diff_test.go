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

package diff

import (
	"testing"

	"github.com/loro-dev/loro-go/crdt/tree"
	"github.com/loro-dev/loro-go/fractional"
	"github.com/loro-dev/loro-go/ids"
)

func applyText(old string, ops []TextOp) string {
	out := []byte(old)[:0:0]
	pos := 0
	for _, op := range ops {
		switch op.Kind {
		case TextRetain:
			out = append(out, old[pos:pos+op.Len]...)
			pos += op.Len
		case TextDelete:
			pos += op.Len
		case TextInsert:
			out = append(out, op.Content...)
		}
	}
	out = append(out, old[pos:]...)
	return string(out)
}

func TestTextDiffRoundTrips(t *testing.T) {
	cases := []struct{ old, new string }{
		{"hello", "hello"},
		{"hello", "hXllo"},
		{"abc", "abcdef"},
		{"abcdef", "abc"},
		{"", "x"},
		{"x", ""},
		{"hello world", "goodbye world"},
	}
	for _, c := range cases {
		ops := Text(c.old, c.new)
		if got := applyText(c.old, ops); got != c.new {
			t.Errorf("Text(%q,%q) produced script that replays to %q", c.old, c.new, got)
		}
	}
}

func TestTextDiffIdempotentUnderComposition(t *testing.T) {
	a, b := "hello world", "goodbye world wide web"
	ab := Text(a, b)
	mid := applyText(a, ab)
	if mid != b {
		t.Fatalf("A->B replay mismatch: %q", mid)
	}
	ba := Text(b, a)
	back := applyText(b, ba)
	if back != a {
		t.Fatalf("B->A replay didn't return original: %q vs %q", back, a)
	}
}

func applyList(old []any, ops []ListOp) []any {
	var out []any
	pos := 0
	for _, op := range ops {
		switch op.Kind {
		case ListRetain:
			out = append(out, old[pos:pos+op.Len]...)
			pos += op.Len
		case ListDelete:
			pos += op.Len
		case ListInsert:
			out = append(out, op.Values...)
		}
	}
	out = append(out, old[pos:]...)
	return out
}

func TestListDiffRoundTrips(t *testing.T) {
	old := []any{int64(1), int64(2), int64(3)}
	new := []any{int64(1), int64(9), int64(3), int64(4)}
	ops := List(old, new)
	got := applyList(old, ops)
	if len(got) != len(new) {
		t.Fatalf("expected %v, got %v", new, got)
	}
	for i := range new {
		if got[i] != new[i] {
			t.Fatalf("expected %v, got %v", new, got)
		}
	}
}

func TestMapDiffTracksDeletesAndChanges(t *testing.T) {
	old := map[string]any{"a": int64(1), "b": "keep", "c": int64(3)}
	new := map[string]any{"a": int64(2), "b": "keep"}

	entries := Map(old, new)
	var sawAChanged, sawCDeleted, sawB bool
	for _, e := range entries {
		switch e.Key {
		case "a":
			if e.Deleted || e.Value != int64(2) {
				t.Fatalf("expected a -> 2, got %+v", e)
			}
			sawAChanged = true
		case "c":
			if !e.Deleted {
				t.Fatalf("expected c deleted, got %+v", e)
			}
			sawCDeleted = true
		case "b":
			sawB = true
		}
	}
	if !sawAChanged || !sawCDeleted {
		t.Fatalf("missing expected entries: %+v", entries)
	}
	if sawB {
		t.Fatalf("unchanged key b should not appear in diff: %+v", entries)
	}
}

func TestCounterDiff(t *testing.T) {
	if got := Counter(3.5, 10); got != 6.5 {
		t.Fatalf("expected delta 6.5, got %v", got)
	}
}

func TestTreeDiffOrdersParentsBeforeChildren(t *testing.T) {
	p1, p2 := ids.PeerID(1), ids.PeerID(2)
	root := ids.ID{Peer: p1, Counter: 0}
	child := ids.ID{Peer: p1, Counter: 1}
	grandchild := ids.ID{Peer: p2, Counter: 0}

	before := tree.New()

	after := tree.New()
	after.Move(root, nil, fractional.Default(0), ids.IdLp{Lamport: 1, Peer: p1})
	after.Move(child, &root, fractional.Default(0), ids.IdLp{Lamport: 2, Peer: p1})
	after.Move(grandchild, &child, fractional.Default(0), ids.IdLp{Lamport: 3, Peer: p2})

	actions := Tree(before, after)
	if len(actions) != 3 {
		t.Fatalf("expected 3 create actions, got %d: %+v", len(actions), actions)
	}
	pos := map[ids.ID]int{}
	for i, a := range actions {
		if a.Kind != TreeCreate {
			t.Fatalf("expected all Create actions, got %+v", a)
		}
		pos[a.Target] = i
	}
	if pos[root] > pos[child] || pos[child] > pos[grandchild] {
		t.Fatalf("expected root before child before grandchild, got order %+v", actions)
	}
}

func TestTreeDiffDeleteAndRestore(t *testing.T) {
	p := ids.PeerID(1)
	target := ids.ID{Peer: p, Counter: 0}

	before := tree.New()
	before.Move(target, nil, fractional.Default(0), ids.IdLp{Lamport: 1, Peer: p})

	after := before.Clone()
	after.Delete(target, ids.IdLp{Lamport: 2, Peer: p})

	actions := Tree(before, after)
	if len(actions) != 1 || actions[0].Kind != TreeDelete || actions[0].Target != target {
		t.Fatalf("expected single Delete action, got %+v", actions)
	}

	restored := after.Clone()
	restored.Move(target, nil, fractional.Default(0), ids.IdLp{Lamport: 3, Peer: p})
	actions = Tree(after, restored)
	if len(actions) != 1 || actions[0].Kind != TreeRestore {
		t.Fatalf("expected single Restore action, got %+v", actions)
	}
}
