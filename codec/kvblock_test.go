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
	"fmt"
	"testing"
)

func TestKVStoreRoundTrip(t *testing.T) {
	w := NewKVWriter()
	want := map[string]string{}
	for i := 0; i < 500; i++ {
		key := fmt.Sprintf("key-%04d", i)
		val := fmt.Sprintf("value for %d", i)
		w.Put([]byte(key), []byte(val))
		want[key] = val
	}
	data := w.Finish()

	r, err := OpenKVStore(data)
	if err != nil {
		t.Fatalf("OpenKVStore: %v", err)
	}

	for key, val := range want {
		got, ok := r.Get([]byte(key))
		if !ok {
			t.Fatalf("Get(%q): not found", key)
		}
		if string(got) != val {
			t.Fatalf("Get(%q) = %q, want %q", key, got, val)
		}
	}

	if _, ok := r.Get([]byte("missing-key")); ok {
		t.Fatalf("Get(missing-key): expected not found")
	}
}

func TestKVStoreLargeValue(t *testing.T) {
	w := NewKVWriter()
	large := bytes.Repeat([]byte("x"), largeValueThreshold*2)
	w.Put([]byte("a-small"), []byte("small"))
	w.Put([]byte("b-large"), large)
	w.Put([]byte("c-small"), []byte("also small"))
	data := w.Finish()

	r, err := OpenKVStore(data)
	if err != nil {
		t.Fatalf("OpenKVStore: %v", err)
	}

	got, ok := r.Get([]byte("b-large"))
	if !ok {
		t.Fatalf("Get(b-large): not found")
	}
	if !bytes.Equal(got, large) {
		t.Fatalf("Get(b-large): mismatch, len(got)=%d want %d", len(got), len(large))
	}

	got, ok = r.Get([]byte("a-small"))
	if !ok || string(got) != "small" {
		t.Fatalf("Get(a-small) = %q, %v", got, ok)
	}
}

func TestKVStoreScanPrefix(t *testing.T) {
	w := NewKVWriter()
	w.Put([]byte("container/1/a"), []byte("1"))
	w.Put([]byte("container/1/b"), []byte("2"))
	w.Put([]byte("container/2/a"), []byte("3"))
	data := w.Finish()

	r, err := OpenKVStore(data)
	if err != nil {
		t.Fatalf("OpenKVStore: %v", err)
	}

	got := r.ScanPrefix([]byte("container/1/"))
	if len(got) != 2 {
		t.Fatalf("ScanPrefix: got %d entries, want 2", len(got))
	}
	if string(got[0].Key) != "container/1/a" || string(got[1].Key) != "container/1/b" {
		t.Fatalf("ScanPrefix: unexpected keys %q, %q", got[0].Key, got[1].Key)
	}
}

func TestKVStoreBadMagic(t *testing.T) {
	_, err := OpenKVStore([]byte("not a kv store at all"))
	if err == nil {
		t.Fatalf("expected error for corrupt header")
	}
}

func TestKVStoreWrongMode(t *testing.T) {
	buf := writeHeader(nil, ModeSnapshot)
	_, err := OpenKVStore(buf)
	if err == nil {
		t.Fatalf("expected SchemaMismatchError")
	}
	if _, ok := err.(*SchemaMismatchError); !ok {
		t.Fatalf("expected *SchemaMismatchError, got %T", err)
	}
}
