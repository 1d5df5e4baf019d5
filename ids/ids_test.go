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
package ids

import "testing"

func TestIDOrdering(t *testing.T) {
	cases := []struct {
		a, b ID
		want bool
	}{
		{ID{Peer: 1, Counter: 0}, ID{Peer: 2, Counter: 0}, true},
		{ID{Peer: 2, Counter: 0}, ID{Peer: 1, Counter: 0}, false},
		{ID{Peer: 1, Counter: 0}, ID{Peer: 1, Counter: 1}, true},
		{ID{Peer: 1, Counter: 1}, ID{Peer: 1, Counter: 1}, false},
	}
	for _, c := range cases {
		if got := c.a.Less(c.b); got != c.want {
			t.Errorf("%v.Less(%v) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestIdSpanOverlapAndIntersect(t *testing.T) {
	a := IdSpan{Peer: 1, Start: 0, End: 10}
	b := IdSpan{Peer: 1, Start: 5, End: 15}
	c := IdSpan{Peer: 1, Start: 10, End: 20}
	d := IdSpan{Peer: 2, Start: 0, End: 10}

	if !a.Overlaps(b) {
		t.Fatalf("expected overlap")
	}
	if a.Overlaps(c) {
		t.Fatalf("expected no overlap (adjacent, not overlapping)")
	}
	if a.Overlaps(d) {
		t.Fatalf("different peers never overlap")
	}
	if !a.Mergeable(c) {
		t.Fatalf("expected a mergeable with c")
	}

	inter, ok := a.Intersect(b)
	if !ok || inter != (IdSpan{Peer: 1, Start: 5, End: 10}) {
		t.Fatalf("Intersect = %v, %v", inter, ok)
	}
}

func TestVersionVectorDiffAndMerge(t *testing.T) {
	a := NewVersionVector()
	a.Set(1, 5)
	a.Set(2, 3)

	b := NewVersionVector()
	b.Set(1, 2)
	b.Set(3, 7)

	diff := a.Diff(b)
	if diff.Left[1] != (IdSpan{Peer: 1, Start: 2, End: 5}) {
		t.Fatalf("Left[1] = %v", diff.Left[1])
	}
	if diff.Left[2] != (IdSpan{Peer: 2, Start: 0, End: 3}) {
		t.Fatalf("Left[2] = %v", diff.Left[2])
	}
	if diff.Right[3] != (IdSpan{Peer: 3, Start: 0, End: 7}) {
		t.Fatalf("Right[3] = %v", diff.Right[3])
	}

	merged := a.Merge(b)
	if merged.Get(1) != 5 || merged.Get(2) != 3 || merged.Get(3) != 7 {
		t.Fatalf("Merge = %+v", merged)
	}
	if !merged.IncludesVV(a) || !merged.IncludesVV(b) {
		t.Fatalf("merge should include both inputs")
	}
}

func TestVersionVectorIncludes(t *testing.T) {
	vv := NewVersionVector()
	vv.ExtendToInclude(ID{Peer: 9, Counter: 4})
	if !vv.Includes(ID{Peer: 9, Counter: 4}) {
		t.Fatalf("expected to include (9,4)")
	}
	if vv.Includes(ID{Peer: 9, Counter: 5}) {
		t.Fatalf("should not include (9,5)")
	}
}

func TestFrontiersEqual(t *testing.T) {
	f1 := Frontiers{{Peer: 1, Counter: 0}, {Peer: 2, Counter: 1}}
	f2 := Frontiers{{Peer: 2, Counter: 1}, {Peer: 1, Counter: 0}}
	if !f1.Equal(f2) {
		t.Fatalf("expected equal regardless of order")
	}
	f3 := f1.Without(ID{Peer: 1, Counter: 0})
	if f3.Contains(ID{Peer: 1, Counter: 0}) {
		t.Fatalf("expected removal")
	}
}

func TestContainerIDEquality(t *testing.T) {
	root1 := RootContainerID("doc", ContainerText)
	root2 := RootContainerID("doc", ContainerText)
	if !root1.Equal(root2) {
		t.Fatalf("expected equal root container ids")
	}
	normal := NormalContainerID(ID{Peer: 1, Counter: 2}, ContainerMap)
	if root1.Equal(normal) {
		t.Fatalf("root and normal ids must differ")
	}
}

func TestNewPeerIDNonZero(t *testing.T) {
	for i := 0; i < 10; i++ {
		if NewPeerID() == 0 {
			t.Fatalf("NewPeerID returned 0")
		}
	}
}
