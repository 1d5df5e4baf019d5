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

package arena

import (
	"testing"

	"github.com/loro-dev/loro-go/ids"
)

func TestInternDeduplicates(t *testing.T) {
	a := New[string]()
	h1 := a.Intern("title")
	h2 := a.Intern("body")
	h3 := a.Intern("title")
	if h1 != h3 {
		t.Fatalf("expected repeated intern to reuse handle, got %d and %d", h1, h3)
	}
	if h1 == h2 {
		t.Fatalf("distinct values got the same handle")
	}
	if a.Len() != 2 {
		t.Fatalf("expected 2 distinct values, got %d", a.Len())
	}
	v, ok := a.Lookup(h2)
	if !ok || v != "body" {
		t.Fatalf("expected lookup(h2) = body, got %q %v", v, ok)
	}
}

func TestLookupUnknownHandle(t *testing.T) {
	a := New[string]()
	a.Intern("x")
	if _, ok := a.Lookup(5); ok {
		t.Fatalf("expected lookup of unissued handle to fail")
	}
}

func TestLoadAllRehydrates(t *testing.T) {
	a := New[string]()
	a.Intern("a")
	a.Intern("b")
	saved := a.All()

	b := New[string]()
	b.LoadAll(saved)
	if b.Len() != 2 {
		t.Fatalf("expected 2 values after LoadAll, got %d", b.Len())
	}
	if h := b.Intern("a"); h != 0 {
		t.Fatalf("expected interning a pre-loaded value to reuse handle 0, got %d", h)
	}
}

func TestPoolInternValueRoundTrips(t *testing.T) {
	p := NewPool()

	h, ok := p.InternValue("hello")
	if !ok {
		t.Fatalf("expected string value to intern")
	}
	got, ok := p.ValueAt(h)
	if !ok || got != "hello" {
		t.Fatalf("expected round trip to hello, got %v %v", got, ok)
	}

	if _, ok := p.InternValue([]byte("blob")); ok {
		t.Fatalf("expected []byte value to be rejected from the scalar pool")
	}

	hNil, _ := p.InternValue(nil)
	hAgain, _ := p.InternValue(nil)
	if hNil != hAgain {
		t.Fatalf("expected nil to dedupe to the same handle")
	}
}

func TestPoolInternContainerID(t *testing.T) {
	p := NewPool()
	c1 := ids.RootContainerID("root", ids.ContainerText)
	c2 := ids.NormalContainerID(ids.ID{Peer: 1, Counter: 0}, ids.ContainerList)

	h1 := p.Containers.Intern(c1)
	h2 := p.Containers.Intern(c2)
	h1Again := p.Containers.Intern(c1)
	if h1 != h1Again {
		t.Fatalf("expected repeated container id to reuse handle")
	}
	if h1 == h2 {
		t.Fatalf("distinct container ids got the same handle")
	}
}
